package ir

import (
	"slices"
	"strings"
)

// Props records which properties of a dependency were touched.
//
// Attributes is either "all attributes" (AllAttributes) or a set of keys
// (AttributeKeys, sorted, deduplicated). An empty Props touches nothing.
type Props struct {
	RawContent      bool     `json:"raw_content,omitempty"`
	AllAttributes   bool     `json:"all_attributes,omitempty"`
	AttributeKeys   []string `json:"attribute_keys,omitempty"`
	CompiledContent bool     `json:"compiled_content,omitempty"`
	Path            bool     `json:"path,omitempty"`
}

// Convenience constructors.
var (
	PropsRawContent      = Props{RawContent: true}
	PropsAttributes      = Props{AllAttributes: true}
	PropsCompiledContent = Props{CompiledContent: true}
	PropsPath            = Props{Path: true}
	PropsAll             = Props{RawContent: true, AllAttributes: true, CompiledContent: true, Path: true}
)

// AttributeProps returns Props touching only the given attribute keys.
func AttributeProps(keys ...string) Props {
	return Props{AttributeKeys: normalizeKeys(keys)}
}

// Attributes reports whether any attribute is touched.
func (p Props) Attributes() bool {
	return p.AllAttributes || len(p.AttributeKeys) > 0
}

// Empty reports whether no property is touched.
func (p Props) Empty() bool {
	return !p.RawContent && !p.Attributes() && !p.CompiledContent && !p.Path
}

// Merge returns the union of p and o.
func (p Props) Merge(o Props) Props {
	out := Props{
		RawContent:      p.RawContent || o.RawContent,
		AllAttributes:   p.AllAttributes || o.AllAttributes,
		CompiledContent: p.CompiledContent || o.CompiledContent,
		Path:            p.Path || o.Path,
	}
	if !out.AllAttributes {
		out.AttributeKeys = normalizeKeys(append(slices.Clone(p.AttributeKeys), o.AttributeKeys...))
	}
	return out
}

// Intersects reports whether p and o share any touched property.
func (p Props) Intersects(o Props) bool {
	if (p.RawContent && o.RawContent) ||
		(p.CompiledContent && o.CompiledContent) ||
		(p.Path && o.Path) {
		return true
	}
	if !p.Attributes() || !o.Attributes() {
		return false
	}
	if p.AllAttributes || o.AllAttributes {
		return true
	}
	for _, k := range p.AttributeKeys {
		if slices.Contains(o.AttributeKeys, k) {
			return true
		}
	}
	return false
}

// String renders the active props, e.g. "raw_content,attributes[title]".
func (p Props) String() string {
	var parts []string
	if p.RawContent {
		parts = append(parts, "raw_content")
	}
	switch {
	case p.AllAttributes:
		parts = append(parts, "attributes")
	case len(p.AttributeKeys) > 0:
		parts = append(parts, "attributes["+strings.Join(p.AttributeKeys, ",")+"]")
	}
	if p.CompiledContent {
		parts = append(parts, "compiled_content")
	}
	if p.Path {
		parts = append(parts, "path")
	}
	return strings.Join(parts, ",")
}

func normalizeKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}
