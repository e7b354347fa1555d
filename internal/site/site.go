package site

import (
	"fmt"

	"github.com/roach88/folio/internal/ir"
)

type document struct {
	identifier ir.Identifier
	content    ir.Content
	attributes ir.IRObject
}

// Identifier returns the document identifier.
func (d *document) Identifier() ir.Identifier { return d.identifier }

// Content returns the raw content.
func (d *document) Content() ir.Content { return d.content }

// Attributes returns a copy of the attributes.
func (d *document) Attributes() ir.IRObject { return d.attributes.Clone() }

// Attribute returns a copy of one attribute value.
func (d *document) Attribute(key string) (ir.IRValue, bool) {
	v, ok := d.attributes[key]
	if !ok {
		return nil, false
	}
	return ir.CloneValue(v), true
}

// Item is a frozen item.
type Item struct{ document }

// Reference returns the item reference.
func (i *Item) Reference() ir.Reference { return ir.ItemRef(i.identifier) }

// Layout is a frozen layout.
type Layout struct{ document }

// Reference returns the layout reference.
func (l *Layout) Reference() ir.Reference { return ir.LayoutRef(l.identifier) }

// Site is the frozen, immutable site compiled during a run.
type Site struct {
	items       []*Item
	itemsByID   map[ir.Identifier]*Item
	layouts     []*Layout
	layoutsByID map[ir.Identifier]*Layout
	config      ir.IRObject
}

// Freeze converts a draft into an immutable Site. Attributes and config are
// deep-copied, so later edits to the draft do not leak into the site.
func Freeze(d *Draft) (*Site, error) {
	s := &Site{
		itemsByID:   make(map[ir.Identifier]*Item),
		layoutsByID: make(map[ir.Identifier]*Layout),
		config:      d.Config.Clone(),
	}

	for _, di := range d.Items() {
		if err := di.Identifier.Validate(); err != nil {
			return nil, fmt.Errorf("freeze: %w", err)
		}
		it := &Item{document{identifier: di.Identifier, content: di.Content, attributes: di.Attributes.Clone()}}
		s.items = append(s.items, it)
		s.itemsByID[it.identifier] = it
	}
	for _, dl := range d.Layouts() {
		if err := dl.Identifier.Validate(); err != nil {
			return nil, fmt.Errorf("freeze: %w", err)
		}
		l := &Layout{document{identifier: dl.Identifier, content: dl.Content, attributes: dl.Attributes.Clone()}}
		s.layouts = append(s.layouts, l)
		s.layoutsByID[l.identifier] = l
	}
	return s, nil
}

// Items returns every item, sorted by identifier.
func (s *Site) Items() []*Item {
	return append([]*Item(nil), s.items...)
}

// Item returns the item with id.
func (s *Site) Item(id ir.Identifier) (*Item, bool) {
	it, ok := s.itemsByID[id]
	return it, ok
}

// Layouts returns every layout, sorted by identifier.
func (s *Site) Layouts() []*Layout {
	return append([]*Layout(nil), s.layouts...)
}

// Layout returns the layout with id.
func (s *Site) Layout(id ir.Identifier) (*Layout, bool) {
	l, ok := s.layoutsByID[id]
	return l, ok
}

// FindLayout returns the first layout (in identifier order) matching p.
func (s *Site) FindLayout(p ir.Pattern) (*Layout, bool) {
	for _, l := range s.layouts {
		if p.Match(l.identifier) {
			return l, true
		}
	}
	return nil, false
}

// Config returns a copy of the site configuration.
func (s *Site) Config() ir.IRObject {
	return s.config.Clone()
}

// ItemIdentifiers returns the sorted item identifiers.
func (s *Site) ItemIdentifiers() []string {
	out := make([]string, len(s.items))
	for i, it := range s.items {
		out[i] = string(it.identifier)
	}
	return out
}

// LayoutIdentifiers returns the sorted layout identifiers.
func (s *Site) LayoutIdentifiers() []string {
	out := make([]string, len(s.layouts))
	for i, l := range s.layouts {
		out[i] = string(l.identifier)
	}
	return out
}

// Parent returns the item whose identifier, without extensions, is the
// directory of it ("/blog.md" is the parent of "/blog/post.md").
func (s *Site) Parent(it *Item) (*Item, bool) {
	dir := it.identifier.Dir()
	if dir == "/" {
		return nil, false
	}
	for _, cand := range s.items {
		if cand != it && cand.identifier.WithoutExts() == dir {
			return cand, true
		}
	}
	return nil, false
}

// Children returns the items whose parent is it.
func (s *Site) Children(it *Item) []*Item {
	base := it.identifier.WithoutExts()
	var out []*Item
	for _, cand := range s.items {
		if cand != it && cand.identifier.Dir() == base {
			out = append(out, cand)
		}
	}
	return out
}
