package deps

import (
	"log/slog"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// Tracker records dependencies of the object on top of its stack.
type Tracker struct {
	store *Store
	stack []ir.Reference
}

var _ site.Tracker = (*Tracker)(nil)

// NewTracker returns a tracker recording into s.
func NewTracker(s *Store) *Tracker {
	return &Tracker{store: s}
}

// Enter pushes ref as the object currently being compiled.
func (t *Tracker) Enter(ref ir.Reference) {
	t.stack = append(t.stack, ref)
}

// Exit pops the object currently being compiled.
func (t *Tracker) Exit() {
	if len(t.stack) == 0 {
		return
	}
	t.stack = t.stack[:len(t.stack)-1]
}

// Top returns the object currently being compiled.
func (t *Tracker) Top() (ir.Reference, bool) {
	if len(t.stack) == 0 {
		return "", false
	}
	return t.stack[len(t.stack)-1], true
}

// Bounce records that the current object read props of dependency. Reads
// outside compilation and reads of the object itself record nothing.
func (t *Tracker) Bounce(dependency ir.Reference, props ir.Props) {
	top, ok := t.Top()
	if !ok || top == dependency || props.Empty() {
		return
	}
	if err := t.store.Record(top, dependency, props); err != nil {
		slog.Debug("dependency not recorded", "dependent", top, "dependency", dependency, "error", err)
	}
}

// Null is the tracker used outside compilation. It records nothing.
type Null struct{}

var _ site.Tracker = Null{}

// Bounce implements site.Tracker.
func (Null) Bounce(ir.Reference, ir.Props) {}
