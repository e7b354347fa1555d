// Package content holds compiled snapshot content: a run-scoped store and a
// persistent cache that lets unchanged reps skip compilation.
package content

import (
	"maps"
	"slices"

	"github.com/roach88/folio/internal/ir"
)

// Store maps (rep, snapshot) to the content produced this run.
type Store struct {
	byRep map[ir.Reference]map[string]ir.Content
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byRep: map[ir.Reference]map[string]ir.Content{}}
}

// Set stores the content of one snapshot.
func (s *Store) Set(rep ir.Reference, snapshot string, c ir.Content) {
	m, ok := s.byRep[rep]
	if !ok {
		m = map[string]ir.Content{}
		s.byRep[rep] = m
	}
	m[snapshot] = c
}

// SetAll replaces every snapshot of rep.
func (s *Store) SetAll(rep ir.Reference, snapshots map[string]ir.Content) {
	s.byRep[rep] = maps.Clone(snapshots)
}

// Get returns the content of one snapshot.
func (s *Store) Get(rep ir.Reference, snapshot string) (ir.Content, bool) {
	c, ok := s.byRep[rep][snapshot]
	return c, ok
}

// Snapshots returns a copy of every snapshot of rep.
func (s *Store) Snapshots(rep ir.Reference) map[string]ir.Content {
	return maps.Clone(s.byRep[rep])
}

// SnapshotNames returns the snapshot names stored for rep, sorted.
func (s *Store) SnapshotNames(rep ir.Reference) []string {
	return slices.Sorted(maps.Keys(s.byRep[rep]))
}

// Forget drops every snapshot of rep.
func (s *Store) Forget(rep ir.Reference) {
	delete(s.byRep, rep)
}
