package checksum

import (
	"maps"
	"slices"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/store"
)

// Store holds the checksums of the previous run next to the ones computed
// for this run. Only the current ones are persisted.
type Store struct {
	previous map[ir.Reference]store.ChecksumRecord
	current  map[ir.Reference]store.ChecksumRecord
}

// NewStore returns a store seeded with the previous run's records.
func NewStore(previous map[ir.Reference]store.ChecksumRecord) *Store {
	if previous == nil {
		previous = map[ir.Reference]store.ChecksumRecord{}
	}
	return &Store{previous: previous, current: map[ir.Reference]store.ChecksumRecord{}}
}

// SetCurrent replaces this run's records.
func (s *Store) SetCurrent(current map[ir.Reference]store.ChecksumRecord) {
	s.current = maps.Clone(current)
}

// Previous returns the record of ref from the previous run.
func (s *Store) Previous(ref ir.Reference) (store.ChecksumRecord, bool) {
	r, ok := s.previous[ref]
	return r, ok
}

// Current returns the record of ref computed this run.
func (s *Store) Current(ref ir.Reference) (store.ChecksumRecord, bool) {
	r, ok := s.current[ref]
	return r, ok
}

// CurrentAll returns a copy of this run's records, ready to persist.
func (s *Store) CurrentAll() map[ir.Reference]store.ChecksumRecord {
	return maps.Clone(s.current)
}

// ChangedAttributes returns the attribute keys of ref whose checksum differs
// between runs, including added and removed keys, in sorted order.
func (s *Store) ChangedAttributes(ref ir.Reference) []string {
	prev, okPrev := s.previous[ref]
	cur, okCur := s.current[ref]
	if !okPrev || !okCur {
		return nil
	}
	seen := map[string]struct{}{}
	for k, v := range cur.AttributeSums {
		if prev.AttributeSums[k] != v {
			seen[k] = struct{}{}
		}
	}
	for k := range prev.AttributeSums {
		if _, ok := cur.AttributeSums[k]; !ok {
			seen[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
