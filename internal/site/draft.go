package site

import (
	"fmt"
	"slices"

	"github.com/roach88/folio/internal/ir"
)

// DraftItem is a mutable item, used before the site is frozen.
type DraftItem struct {
	Identifier ir.Identifier
	Content    ir.Content
	Attributes ir.IRObject
}

// DraftLayout is a mutable layout, used before the site is frozen.
type DraftLayout struct {
	Identifier ir.Identifier
	Content    ir.Content
	Attributes ir.IRObject
}

// Draft is the mutable form of a site.
type Draft struct {
	items   map[ir.Identifier]*DraftItem
	layouts map[ir.Identifier]*DraftLayout

	// Config is the site configuration exposed to rules and templates.
	Config ir.IRObject
}

// NewDraft returns an empty draft.
func NewDraft() *Draft {
	return &Draft{
		items:   make(map[ir.Identifier]*DraftItem),
		layouts: make(map[ir.Identifier]*DraftLayout),
		Config:  ir.IRObject{},
	}
}

// AddItem adds an item. Identifiers must be unique.
func (d *Draft) AddItem(item *DraftItem) error {
	if err := item.Identifier.Validate(); err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	if _, exists := d.items[item.Identifier]; exists {
		return fmt.Errorf("add item: duplicate identifier %s", item.Identifier)
	}
	if item.Attributes == nil {
		item.Attributes = ir.IRObject{}
	}
	d.items[item.Identifier] = item
	return nil
}

// Item returns the item with id, or nil.
func (d *Draft) Item(id ir.Identifier) *DraftItem {
	return d.items[id]
}

// DeleteItem removes the item with id and reports whether it existed.
func (d *Draft) DeleteItem(id ir.Identifier) bool {
	_, ok := d.items[id]
	delete(d.items, id)
	return ok
}

// Items returns the items sorted by identifier.
func (d *Draft) Items() []*DraftItem {
	out := make([]*DraftItem, 0, len(d.items))
	for _, it := range d.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b *DraftItem) int { return compareIDs(a.Identifier, b.Identifier) })
	return out
}

// AddLayout adds a layout. Identifiers must be unique.
func (d *Draft) AddLayout(layout *DraftLayout) error {
	if err := layout.Identifier.Validate(); err != nil {
		return fmt.Errorf("add layout: %w", err)
	}
	if _, exists := d.layouts[layout.Identifier]; exists {
		return fmt.Errorf("add layout: duplicate identifier %s", layout.Identifier)
	}
	if layout.Attributes == nil {
		layout.Attributes = ir.IRObject{}
	}
	d.layouts[layout.Identifier] = layout
	return nil
}

// Layout returns the layout with id, or nil.
func (d *Draft) Layout(id ir.Identifier) *DraftLayout {
	return d.layouts[id]
}

// DeleteLayout removes the layout with id and reports whether it existed.
func (d *Draft) DeleteLayout(id ir.Identifier) bool {
	_, ok := d.layouts[id]
	delete(d.layouts, id)
	return ok
}

// Layouts returns the layouts sorted by identifier.
func (d *Draft) Layouts() []*DraftLayout {
	out := make([]*DraftLayout, 0, len(d.layouts))
	for _, l := range d.layouts {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b *DraftLayout) int { return compareIDs(a.Identifier, b.Identifier) })
	return out
}

func compareIDs(a, b ir.Identifier) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
