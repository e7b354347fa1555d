package testutil

import (
	"sync"

	"github.com/roach88/folio/internal/filters"
	"github.com/roach88/folio/internal/ir"
)

// Spy wraps a filter and counts its invocations per rep.
type Spy struct {
	filters.Filter

	mu    sync.Mutex
	calls map[string]int
	total int
}

// NewSpy wraps inner.
func NewSpy(inner filters.Filter) *Spy {
	return &Spy{Filter: inner, calls: map[string]int{}}
}

// Run implements filters.Filter.
func (s *Spy) Run(fctx *filters.Context, content ir.Content, params ir.IRObject) (ir.Content, error) {
	s.mu.Lock()
	if fctx.Rep != nil {
		s.calls[string(fctx.Rep.Unwrap().Reference())]++
	}
	s.total++
	s.mu.Unlock()
	return s.Filter.Run(fctx, content, params)
}

// Calls returns how often the filter ran for rep.
func (s *Spy) Calls(rep ir.Reference) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[string(rep)]
}

// Total returns how often the filter ran.
func (s *Spy) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Reset clears the counters.
func (s *Spy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = map[string]int{}
	s.total = 0
}

// SpyOnBuiltins returns a registry of the built-in filters, with the named
// ones wrapped in spies.
func SpyOnBuiltins(names ...string) (*filters.Registry, map[string]*Spy, error) {
	spies := map[string]*Spy{}
	var all []filters.Filter
	for _, f := range filters.Builtins() {
		for _, n := range names {
			if f.Name() == n {
				spy := NewSpy(f)
				spies[n] = spy
				f = spy
				break
			}
		}
		all = append(all, f)
	}
	reg, err := filters.NewRegistry(all...)
	return reg, spies, err
}
