package deps

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/store"
)

// Dependency is one edge of the graph. Removed is set when the dependency
// no longer exists in the current site.
type Dependency struct {
	Dependent  ir.Reference
	Dependency ir.Reference
	Props      ir.Props
	Removed    bool
}

// Store is the in-memory dependency graph with forward and inverse lookup.
type Store struct {
	edges   map[ir.Reference]map[ir.Reference]ir.Props
	inverse map[ir.Reference]map[ir.Reference]struct{}
	objects map[ir.Reference]struct{}
}

// NewStore returns an empty graph over the given existing objects. The
// config and the collections always exist.
func NewStore(objects []ir.Reference) *Store {
	s := &Store{
		edges:   map[ir.Reference]map[ir.Reference]ir.Props{},
		inverse: map[ir.Reference]map[ir.Reference]struct{}{},
		objects: map[ir.Reference]struct{}{
			ir.ConfigRef:  {},
			ir.ItemsRef:   {},
			ir.LayoutsRef: {},
		},
	}
	for _, o := range objects {
		s.objects[o] = struct{}{}
	}
	return s
}

// Load adds the stored edges of a previous run. Edges whose dependent no
// longer exists are dropped; edges to a vanished dependency are kept so the
// dependent is found outdated.
func (s *Store) Load(records []store.DependencyRecord) {
	for _, r := range records {
		if !s.Exists(r.Dependent) {
			continue
		}
		// Stored self-loops cannot be produced by the tracker; ignore them.
		_ = s.Record(r.Dependent, r.Dependency, r.Props)
	}
}

// Exists reports whether ref names an object of the current site.
func (s *Store) Exists(ref ir.Reference) bool {
	_, ok := s.objects[ref]
	return ok
}

// Record adds an edge, merging props into an existing edge.
func (s *Store) Record(dependent, dependency ir.Reference, props ir.Props) error {
	if dependent == dependency {
		return fmt.Errorf("dependency of %s on itself", dependent)
	}
	out, ok := s.edges[dependent]
	if !ok {
		out = map[ir.Reference]ir.Props{}
		s.edges[dependent] = out
	}
	out[dependency] = out[dependency].Merge(props)

	in, ok := s.inverse[dependency]
	if !ok {
		in = map[ir.Reference]struct{}{}
		s.inverse[dependency] = in
	}
	in[dependent] = struct{}{}
	return nil
}

// DependenciesOf returns the outgoing edges of dependent ordered by dependency.
func (s *Store) DependenciesOf(dependent ir.Reference) []Dependency {
	out := s.edges[dependent]
	keys := slices.Sorted(maps.Keys(out))
	deps := make([]Dependency, len(keys))
	for i, k := range keys {
		deps[i] = Dependency{
			Dependent:  dependent,
			Dependency: k,
			Props:      out[k],
			Removed:    !s.Exists(k),
		}
	}
	return deps
}

// DependentsOf returns every object with an edge to dependency, sorted.
func (s *Store) DependentsOf(dependency ir.Reference) []ir.Reference {
	return slices.Sorted(maps.Keys(s.inverse[dependency]))
}

// Forget removes every outgoing edge of dependent.
func (s *Store) Forget(dependent ir.Reference) {
	for dep := range s.edges[dependent] {
		if in := s.inverse[dep]; in != nil {
			delete(in, dependent)
			if len(in) == 0 {
				delete(s.inverse, dep)
			}
		}
	}
	delete(s.edges, dependent)
}

// Records returns every edge in (dependent, dependency) order, ready to
// persist. Edges to removed objects are not persisted.
func (s *Store) Records() []store.DependencyRecord {
	var out []store.DependencyRecord
	for _, from := range slices.Sorted(maps.Keys(s.edges)) {
		for _, d := range s.DependenciesOf(from) {
			if d.Removed {
				continue
			}
			out = append(out, store.DependencyRecord{
				Dependent:  d.Dependent,
				Dependency: d.Dependency,
				Props:      d.Props,
			})
		}
	}
	return out
}

// Len returns the number of edges.
func (s *Store) Len() int {
	n := 0
	for _, out := range s.edges {
		n += len(out)
	}
	return n
}
