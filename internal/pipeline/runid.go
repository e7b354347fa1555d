package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces run IDs for the run log.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs, so the run log
// sorts by start time even when clocks are coarse.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns predetermined IDs in order, for tests and
// golden traces.
type SequenceGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewSequenceGenerator returns a generator yielding ids in order.
func NewSequenceGenerator(ids ...string) *SequenceGenerator {
	return &SequenceGenerator{ids: ids}
}

// Generate returns the next ID. Panics once every ID has been used, which
// catches a test creating more runs than it declared.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("SequenceGenerator: all IDs used")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
