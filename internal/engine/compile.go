package engine

import (
	"fmt"
	"time"

	"github.com/roach88/folio/internal/deps"
	"github.com/roach88/folio/internal/filters"
	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/rules"
	"github.com/roach88/folio/internal/site"
)

// compileRep is the body of a task. It runs on the task's goroutine.
func (e *Executor) compileRep(t *task) error {
	rep := t.rep
	ref := rep.Reference()

	seq, err := e.opts.Calculator.ForRep(rep)
	if err != nil {
		return err
	}

	tracker := deps.NewTracker(e.opts.Deps)
	tracker.Enter(rep.Item().Reference())
	defer tracker.Exit()

	view := &site.ViewContext{
		Site:    e.opts.Site,
		Reps:    e.opts.Reps,
		Tracker: tracker,
		Content: &taskSource{e: e, t: t},
	}
	itemView := view.Item(rep.Item())
	repView, err := itemView.Rep(rep.Name())
	if err != nil {
		return err
	}

	e.opts.Content.Forget(ref)
	current := rep.Item().Content()
	for i := 0; i < seq.Len(); i++ {
		fctx := &filters.Context{View: view, Item: itemView, Rep: repView, TmpDir: e.opts.TmpDir}
		switch a := seq.At(i).(type) {
		case ir.FilterAction:
			current, err = e.runFilter(t, fctx, a.Name, current, a.Params)
		case ir.LayoutAction:
			current, err = e.applyLayout(t, fctx, tracker, current, a)
		case ir.SnapshotAction:
			for _, name := range a.Names {
				e.opts.Content.Set(ref, name, current)
			}
		default:
			err = fmt.Errorf("unknown action %T", a)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// runFilter reports the filter's duration without the time its task spent
// suspended.
func (e *Executor) runFilter(t *task, fctx *filters.Context, name string, in ir.Content, params ir.IRObject) (ir.Content, error) {
	rep := t.rep.Reference()
	f, ok := e.opts.Filters.Get(name)
	if !ok {
		return ir.Content{}, NewUnknownFilterError(rep, name)
	}
	if got := filters.KindOf(in); got != f.From() {
		return ir.Content{}, NewWrongContentKindError(rep, name, string(f.From()), string(got))
	}

	start, paused := time.Now(), t.suspended
	out, err := f.Run(fctx, in, params)
	e.sink.FilterRan(name, string(rep), time.Since(start)-(t.suspended-paused))
	if err != nil {
		return ir.Content{}, fmt.Errorf("filter %s: %w", name, err)
	}
	return out, nil
}

// applyLayout runs the layout's filter over the layout's content, exposing
// the rep's current content to it. Action params override the layout
// rule's params.
func (e *Executor) applyLayout(t *task, fctx *filters.Context, tracker *deps.Tracker, current ir.Content, a ir.LayoutAction) (ir.Content, error) {
	rep := t.rep.Reference()
	pattern, err := ir.CompilePattern(a.Identifier)
	if err != nil {
		return ir.Content{}, fmt.Errorf("layout %q: %w", a.Identifier, err)
	}
	layout, ok := e.opts.Site.FindLayout(pattern)
	if !ok {
		return ir.Content{}, NewUnknownLayoutError(rep, a.Identifier)
	}
	tracker.Bounce(layout.Reference(), ir.Props{RawContent: true, CompiledContent: true})

	seq, err := e.opts.Calculator.ForLayout(layout)
	if err != nil {
		return ir.Content{}, err
	}
	fa, err := rules.LayoutFilter(layout.Identifier(), seq)
	if err != nil {
		return ir.Content{}, err
	}
	params := fa.Params.Clone()
	for k, v := range a.Params {
		params[k] = ir.CloneValue(v)
	}

	if current.IsBinary() {
		return ir.Content{}, NewWrongContentKindError(rep, fa.Name, string(filters.Text), string(filters.Binary))
	}
	text, err := current.Text()
	if err != nil {
		return ir.Content{}, err
	}
	fctx.Layout = fctx.View.Layout(layout)
	fctx.Content = text
	return e.runFilter(t, fctx, fa.Name, layout.Content(), params)
}

// taskSource serves compiled content to one task, suspending it until the
// requested snapshot exists.
type taskSource struct {
	e *Executor
	t *task
}

var _ site.ContentSource = (*taskSource)(nil)

// CompiledContent implements site.ContentSource. An empty snapshot selects
// pre when the rep defines it, otherwise last.
func (s *taskSource) CompiledContent(rep *site.ItemRep, snapshot string) (ir.Content, error) {
	ref := rep.Reference()
	if snapshot == "" {
		snapshot = defaultSnapshot(rep)
	}
	if !rep.HasSnapshot(snapshot) {
		return ir.Content{}, NewNoSuchSnapshotError(ref, snapshot)
	}

	for {
		if failure, ok := s.e.failed[ref]; ok {
			return ir.Content{}, &DependencyFailedError{Upstream: ref, Err: failure}
		}
		if s.e.available(rep, snapshot) {
			c, _ := s.e.opts.Content.Get(ref, snapshot)
			if c.IsBinary() {
				return ir.Content{}, NewBinaryCompiledContentError(ref, snapshot)
			}
			return c, nil
		}
		if err := s.t.suspend(unmetDependency{rep: rep, snapshot: snapshot}); err != nil {
			return ir.Content{}, err
		}
	}
}

func defaultSnapshot(rep *site.ItemRep) string {
	if rep.HasSnapshot(site.SnapshotPre) {
		return site.SnapshotPre
	}
	return site.SnapshotLast
}
