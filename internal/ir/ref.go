package ir

import "strings"

// Reference is the stable identity of an object across runs. Persistent
// stores are keyed by Reference; object identity, not content, decides
// which records belong to which object.
//
// Formats:
//
//	item:/a.md
//	layout:/default.html
//	rep:/a.md:default
//	code_snippet:rules.cue
//	config
//	items
//	layouts
type Reference string

// Reference kinds.
const (
	KindItem        = "item"
	KindLayout      = "layout"
	KindRep         = "rep"
	KindCodeSnippet = "code_snippet"
	KindConfig      = "config"
	KindItems       = "items"
	KindLayouts     = "layouts"
)

// Singleton references.
const (
	ConfigRef  Reference = KindConfig
	ItemsRef   Reference = KindItems
	LayoutsRef Reference = KindLayouts
)

// ItemRef returns the reference of the item with the given identifier.
func ItemRef(id Identifier) Reference {
	return Reference(KindItem + ":" + string(id))
}

// LayoutRef returns the reference of the layout with the given identifier.
func LayoutRef(id Identifier) Reference {
	return Reference(KindLayout + ":" + string(id))
}

// RepRef returns the reference of an item rep.
func RepRef(id Identifier, rep string) Reference {
	return Reference(KindRep + ":" + string(id) + ":" + rep)
}

// CodeSnippetRef returns the reference of a code snippet (e.g. the rules file).
func CodeSnippetRef(name string) Reference {
	return Reference(KindCodeSnippet + ":" + name)
}

// Kind returns the reference kind.
func (r Reference) Kind() string {
	s := string(r)
	if i := strings.Index(s, ":"); i >= 0 {
		return s[:i]
	}
	return s
}

// Identifier returns the identifier part of item, layout and rep references,
// or "" for other kinds.
func (r Reference) Identifier() Identifier {
	s := string(r)
	switch r.Kind() {
	case KindItem, KindLayout:
		return Identifier(s[strings.Index(s, ":")+1:])
	case KindRep:
		rest := s[len(KindRep)+1:]
		if i := strings.LastIndex(rest, ":"); i >= 0 {
			return Identifier(rest[:i])
		}
	}
	return ""
}

// RepName returns the rep name of a rep reference, or "".
func (r Reference) RepName() string {
	if r.Kind() != KindRep {
		return ""
	}
	s := string(r)
	return s[strings.LastIndex(s, ":")+1:]
}
