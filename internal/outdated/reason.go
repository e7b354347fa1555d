package outdated

import (
	"strings"

	"github.com/roach88/folio/internal/ir"
)

// ReasonKind names why an object is outdated.
type ReasonKind string

const (
	NotCompiledBefore    ReasonKind = "not_compiled_before"
	CodeSnippetsModified ReasonKind = "code_snippets_modified"
	ContentModified      ReasonKind = "content_modified"
	AttributesModified   ReasonKind = "attributes_modified"
	ConfigModified       ReasonKind = "config_modified"
	CollectionModified   ReasonKind = "collection_modified"
	RulesModified        ReasonKind = "rules_modified"
	DependenciesOutdated ReasonKind = "dependencies_outdated"
	NotWritten           ReasonKind = "not_written"
)

// Reason is one outdatedness reason and the properties it affects.
// Dependents that read none of Props are unaffected.
type Reason struct {
	Kind  ReasonKind
	Props ir.Props
}

// String renders the reason for humans, e.g. "attributes modified (title)".
func (r Reason) String() string {
	s := strings.ReplaceAll(string(r.Kind), "_", " ")
	if len(r.Props.AttributeKeys) > 0 && !r.Props.AllAttributes {
		s += " (" + strings.Join(r.Props.AttributeKeys, ", ") + ")"
	}
	return s
}

func contentReason() Reason {
	return Reason{Kind: ContentModified, Props: ir.Props{RawContent: true, CompiledContent: true}}
}

func attributesReason(kind ReasonKind, keys []string) Reason {
	p := ir.AttributeProps(keys...)
	p.CompiledContent = true
	return Reason{Kind: kind, Props: p}
}

func rulesReason() Reason {
	return Reason{Kind: RulesModified, Props: ir.Props{CompiledContent: true, Path: true}}
}

// Status accumulates every reason found for one object.
type Status struct {
	Reasons []Reason
	Props   ir.Props
}

func (s *Status) add(r Reason) {
	s.Reasons = append(s.Reasons, r)
	s.Props = s.Props.Merge(r.Props)
}

func (s *Status) merge(o Status) {
	for _, r := range o.Reasons {
		s.add(r)
	}
}

// Outdated reports whether any reason was found.
func (s Status) Outdated() bool {
	return len(s.Reasons) > 0
}
