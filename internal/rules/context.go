package rules

import (
	"strconv"
	"strings"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// pathMode says where a snapshot's path comes from.
type pathMode int

const (
	pathRouted pathMode = iota
	pathExplicit
	pathNone
)

type snapshotOptions struct {
	mode pathMode
	path string
}

// SnapshotOption configures a recorded snapshot.
type SnapshotOption func(*snapshotOptions)

// WithPath writes the snapshot to path instead of asking the routing rules.
func WithPath(path string) SnapshotOption {
	return func(o *snapshotOptions) {
		o.mode = pathExplicit
		o.path = path
	}
}

// WithoutPath keeps the snapshot in memory only.
func WithoutPath() SnapshotOption {
	return func(o *snapshotOptions) {
		o.mode = pathNone
	}
}

// recordedSnapshot is a snapshot action plus how its path is resolved.
type recordedSnapshot struct {
	name string
	opts snapshotOptions
}

// RecordingContext is what a compile rule body runs against. Its methods
// record actions; nothing is executed.
type RecordingContext struct {
	item *site.ItemView
	rep  string

	// each entry is an ir.Action or a recordedSnapshot
	steps     []any
	snapshots map[string]bool
	anonymous int
	layouts   bool
}

func newRecordingContext(item *site.ItemView, rep string) *RecordingContext {
	return &RecordingContext{item: item, rep: rep, snapshots: map[string]bool{}}
}

// Item returns a non-tracking view of the item being compiled.
func (c *RecordingContext) Item() *site.ItemView { return c.item }

// RepName returns the name of the rep being compiled.
func (c *RecordingContext) RepName() string { return c.rep }

// Filter records a filter action.
func (c *RecordingContext) Filter(name string, params ir.IRObject) {
	c.steps = append(c.steps, ir.FilterAction{Name: name, Params: params.Clone()})
}

// Layout records a layout action. The layout is looked up by pattern at
// compile time, so "/default.*" is fine.
func (c *RecordingContext) Layout(identifier string, params ir.IRObject) {
	if !c.layouts {
		c.layouts = true
		if !c.snapshots[site.SnapshotPre] {
			c.snapshots[site.SnapshotPre] = true
			c.steps = append(c.steps, recordedSnapshot{name: site.SnapshotPre, opts: snapshotOptions{mode: pathRouted}})
		}
	}
	c.steps = append(c.steps, ir.LayoutAction{Identifier: identifier, Params: params.Clone()})
}

// Snapshot records a named snapshot of the current content.
func (c *RecordingContext) Snapshot(name string, opts ...SnapshotOption) error {
	o := snapshotOptions{mode: pathRouted}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mode == pathExplicit && !strings.HasPrefix(o.path, "/") {
		return NewPathWithoutInitialSlashError(string(c.item.Identifier()), c.rep, o.path)
	}
	return c.addSnapshot(name, o)
}

// Write records an anonymous snapshot written to path.
func (c *RecordingContext) Write(path string) error {
	name := "_" + strconv.Itoa(c.anonymous)
	c.anonymous++
	return c.Snapshot(name, WithPath(path))
}

func (c *RecordingContext) addSnapshot(name string, o snapshotOptions) error {
	if c.snapshots[name] {
		return NewSnapshotAlreadyExistsError(string(c.item.Identifier()), c.rep, name)
	}
	c.snapshots[name] = true
	c.steps = append(c.steps, recordedSnapshot{name: name, opts: o})
	return nil
}

func (c *RecordingContext) hasSnapshot(name string) bool {
	return c.snapshots[name]
}
