package testutil

import (
	"fmt"
	"sync"
)

// RunIDs generates "<prefix>-0001", "<prefix>-0002", ... so golden traces
// and run log assertions do not depend on UUIDs.
//
// Thread-safety: safe for concurrent use.
type RunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewRunIDs returns a generator. An empty prefix means "run".
func NewRunIDs(prefix string) *RunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &RunIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *RunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
