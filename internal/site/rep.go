package site

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/folio/internal/ir"
)

// DefaultRep is the name of the rep used when none is given.
const DefaultRep = "default"

// Well-known snapshot names.
const (
	SnapshotRaw  = "raw"
	SnapshotPre  = "pre"
	SnapshotLast = "last"
)

// ItemRep is one named rendering of an item. Reps are created fresh each
// run by the build_reps stage and never persisted as objects.
type ItemRep struct {
	item *Item
	name string

	// snapshot name -> routed output paths ("/a/index.html")
	paths map[string][]string
	// snapshot name -> paths on disk, under the output directory
	rawPaths map[string][]string

	snapshotNames []string
	compiled      bool
}

// NewItemRep returns a rep named name for item.
func NewItemRep(item *Item, name string) *ItemRep {
	return &ItemRep{
		item:     item,
		name:     name,
		paths:    map[string][]string{},
		rawPaths: map[string][]string{},
	}
}

// Item returns the item this rep renders.
func (r *ItemRep) Item() *Item { return r.item }

// Name returns the rep name.
func (r *ItemRep) Name() string { return r.name }

// Reference returns the rep reference.
func (r *ItemRep) Reference() ir.Reference {
	return ir.RepRef(r.item.identifier, r.name)
}

// String is used in logs and error messages.
func (r *ItemRep) String() string {
	return string(r.item.identifier) + " (rep " + r.name + ")"
}

// Binary reports whether the item's raw content is binary.
func (r *ItemRep) Binary() bool { return r.item.content.IsBinary() }

// Assign sets the snapshot names and routed paths from an action sequence.
// Raw paths are placed under outputDir.
func (r *ItemRep) Assign(seq ir.ActionSequence, outputDir string) {
	r.snapshotNames = seq.SnapshotNames()
	r.paths = map[string][]string{}
	r.rawPaths = map[string][]string{}
	for snapshot, paths := range seq.PathsBySnapshot() {
		if len(paths) == 0 {
			continue
		}
		for _, p := range paths {
			r.paths[snapshot] = append(r.paths[snapshot], stripIndex(p))
			r.rawPaths[snapshot] = append(r.rawPaths[snapshot], filepath.Join(outputDir, filepath.FromSlash(p)))
		}
	}
}

// SnapshotNames returns the snapshot names of the rep's action sequence.
func (r *ItemRep) SnapshotNames() []string {
	return slices.Clone(r.snapshotNames)
}

// HasSnapshot reports whether the action sequence defines snapshot name.
func (r *ItemRep) HasSnapshot(name string) bool {
	return slices.Contains(r.snapshotNames, name)
}

// Path returns the first routed path of snapshot, or "" when not routed.
func (r *ItemRep) Path(snapshot string) string {
	if ps := r.paths[snapshot]; len(ps) > 0 {
		return ps[0]
	}
	return ""
}

// RawPath returns the first on-disk path of snapshot, or "".
func (r *ItemRep) RawPath(snapshot string) string {
	if ps := r.rawPaths[snapshot]; len(ps) > 0 {
		return ps[0]
	}
	return ""
}

// RawPaths returns every on-disk path keyed by snapshot name.
func (r *ItemRep) RawPaths() map[string][]string {
	out := make(map[string][]string, len(r.rawPaths))
	for k, v := range r.rawPaths {
		out[k] = slices.Clone(v)
	}
	return out
}

// AllRawPaths returns every on-disk path, sorted.
func (r *ItemRep) AllRawPaths() []string {
	var out []string
	for _, ps := range r.rawPaths {
		out = append(out, ps...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Compiled reports whether the rep has been compiled (or served from cache)
// during this run.
func (r *ItemRep) Compiled() bool { return r.compiled }

// MarkCompiled marks the rep as compiled.
func (r *ItemRep) MarkCompiled() { r.compiled = true }

func stripIndex(p string) string {
	if strings.HasSuffix(p, "/index.html") {
		return strings.TrimSuffix(p, "index.html")
	}
	return p
}

// RepRepository holds every rep of the current run in creation order.
type RepRepository struct {
	reps   []*ItemRep
	byItem map[ir.Identifier][]*ItemRep
}

// NewRepRepository returns an empty repository.
func NewRepRepository() *RepRepository {
	return &RepRepository{byItem: map[ir.Identifier][]*ItemRep{}}
}

// Add appends rep.
func (r *RepRepository) Add(rep *ItemRep) {
	r.reps = append(r.reps, rep)
	id := rep.item.identifier
	r.byItem[id] = append(r.byItem[id], rep)
}

// All returns every rep.
func (r *RepRepository) All() []*ItemRep {
	return slices.Clone(r.reps)
}

// Len returns the number of reps.
func (r *RepRepository) Len() int { return len(r.reps) }

// ForItem returns the reps of the item with id.
func (r *RepRepository) ForItem(id ir.Identifier) []*ItemRep {
	return slices.Clone(r.byItem[id])
}

// Get returns the rep named name of the item with id.
func (r *RepRepository) Get(id ir.Identifier, name string) (*ItemRep, bool) {
	for _, rep := range r.byItem[id] {
		if rep.name == name {
			return rep, true
		}
	}
	return nil, false
}

// ByReference returns the rep with the given rep reference.
func (r *RepRepository) ByReference(ref ir.Reference) (*ItemRep, bool) {
	if ref.Kind() != ir.KindRep {
		return nil, false
	}
	return r.Get(ref.Identifier(), ref.RepName())
}
