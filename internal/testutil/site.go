package testutil

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// MemSite is an in-memory data source. Each Load returns a fresh draft of
// the current contents, so tests change the site between runs.
type MemSite struct {
	mu      sync.Mutex
	items   map[ir.Identifier]memDoc
	layouts map[ir.Identifier]memDoc
	config  ir.IRObject
	loads   int
}

type memDoc struct {
	content ir.Content
	attrs   ir.IRObject
}

// NewMemSite returns an empty site.
func NewMemSite() *MemSite {
	return &MemSite{
		items:   map[ir.Identifier]memDoc{},
		layouts: map[ir.Identifier]memDoc{},
		config:  ir.IRObject{},
	}
}

// SetItem adds or replaces a textual item.
func (s *MemSite) SetItem(id ir.Identifier, text string, attrs ir.IRObject) *MemSite {
	return s.SetItemContent(id, ir.NewTextualContent(text, ""), attrs)
}

// SetItemContent adds or replaces an item with arbitrary content.
func (s *MemSite) SetItemContent(id ir.Identifier, c ir.Content, attrs ir.IRObject) *MemSite {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = memDoc{content: c, attrs: attrs.Clone()}
	return s
}

// DeleteItem removes an item.
func (s *MemSite) DeleteItem(id ir.Identifier) *MemSite {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return s
}

// SetLayout adds or replaces a layout.
func (s *MemSite) SetLayout(id ir.Identifier, text string, attrs ir.IRObject) *MemSite {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[id] = memDoc{content: ir.NewTextualContent(text, ""), attrs: attrs.Clone()}
	return s
}

// DeleteLayout removes a layout.
func (s *MemSite) DeleteLayout(id ir.Identifier) *MemSite {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layouts, id)
	return s
}

// SetConfig sets one configuration key.
func (s *MemSite) SetConfig(key string, v ir.IRValue) *MemSite {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = v
	return s
}

// Loads returns how many times Load was called.
func (s *MemSite) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// Load builds a draft of the current contents.
func (s *MemSite) Load(ctx context.Context) (*site.Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++

	d := site.NewDraft()
	d.Config = s.config.Clone()
	for _, id := range slices.Sorted(maps.Keys(s.items)) {
		doc := s.items[id]
		if err := d.AddItem(&site.DraftItem{Identifier: id, Content: doc.content, Attributes: doc.attrs.Clone()}); err != nil {
			return nil, err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(s.layouts)) {
		doc := s.layouts[id]
		if err := d.AddLayout(&site.DraftLayout{Identifier: id, Content: doc.content, Attributes: doc.attrs.Clone()}); err != nil {
			return nil, err
		}
	}
	return d, nil
}
