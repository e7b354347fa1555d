package outdated

import (
	"maps"
	"slices"

	"github.com/roach88/folio/internal/ir"
)

// Store is the persisted set of references known to be outdated. Reps are
// added when found outdated and removed once compiled, so a crashed run
// leaves its unfinished reps in the set.
type Store struct {
	refs map[ir.Reference]struct{}
}

// NewStore returns a store holding refs.
func NewStore(refs []ir.Reference) *Store {
	s := &Store{refs: map[ir.Reference]struct{}{}}
	for _, r := range refs {
		s.refs[r] = struct{}{}
	}
	return s
}

// Add marks ref outdated.
func (s *Store) Add(ref ir.Reference) { s.refs[ref] = struct{}{} }

// Remove clears ref.
func (s *Store) Remove(ref ir.Reference) { delete(s.refs, ref) }

// Contains reports whether ref is outdated.
func (s *Store) Contains(ref ir.Reference) bool {
	_, ok := s.refs[ref]
	return ok
}

// All returns every outdated reference, sorted.
func (s *Store) All() []ir.Reference {
	return slices.Sorted(maps.Keys(s.refs))
}

// Len returns the number of outdated references.
func (s *Store) Len() int { return len(s.refs) }

// SequenceStore holds the previous run's action sequences next to this
// run's. Only the current ones are persisted.
type SequenceStore struct {
	previous map[ir.Reference]ir.ActionSequence
	current  map[ir.Reference]ir.ActionSequence
}

// NewSequenceStore returns a store seeded with the previous run's sequences.
func NewSequenceStore(previous map[ir.Reference]ir.ActionSequence) *SequenceStore {
	if previous == nil {
		previous = map[ir.Reference]ir.ActionSequence{}
	}
	return &SequenceStore{previous: previous, current: map[ir.Reference]ir.ActionSequence{}}
}

// SetCurrent replaces this run's sequences.
func (s *SequenceStore) SetCurrent(current map[ir.Reference]ir.ActionSequence) {
	s.current = maps.Clone(current)
}

// Previous returns the sequence of ref from the previous run.
func (s *SequenceStore) Previous(ref ir.Reference) (ir.ActionSequence, bool) {
	seq, ok := s.previous[ref]
	return seq, ok
}

// Current returns the sequence of ref computed this run.
func (s *SequenceStore) Current(ref ir.Reference) (ir.ActionSequence, bool) {
	seq, ok := s.current[ref]
	return seq, ok
}

// CurrentAll returns a copy of this run's sequences, ready to persist.
func (s *SequenceStore) CurrentAll() map[ir.Reference]ir.ActionSequence {
	return maps.Clone(s.current)
}
