package pipeline

import (
	"fmt"

	"github.com/roach88/folio/internal/content"
	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// storeSource serves compiled content after compilation, when every
// snapshot is final.
type storeSource struct {
	content *content.Store
}

var _ site.ContentSource = storeSource{}

func (s storeSource) CompiledContent(rep *site.ItemRep, snapshot string) (ir.Content, error) {
	if snapshot == "" {
		snapshot = site.SnapshotLast
		if rep.HasSnapshot(site.SnapshotPre) {
			snapshot = site.SnapshotPre
		}
	}
	c, ok := s.content.Get(rep.Reference(), snapshot)
	if !ok {
		return ir.Content{}, fmt.Errorf("%s has no compiled snapshot %q", rep, snapshot)
	}
	if c.IsBinary() {
		return ir.Content{}, fmt.Errorf("%s: snapshot %q is binary", rep, snapshot)
	}
	return c, nil
}
