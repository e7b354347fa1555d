package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/folio/internal/content"
	"github.com/roach88/folio/internal/deps"
	"github.com/roach88/folio/internal/events"
	"github.com/roach88/folio/internal/filters"
	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/outdated"
	"github.com/roach88/folio/internal/rules"
	"github.com/roach88/folio/internal/site"
)

// Writer writes snapshot content to an output path. It reports whether
// the file on disk changed.
type Writer interface {
	Write(path string, c ir.Content) (modified bool, err error)
}

// Options configures an Executor. Site, Reps, Calculator, Filters, Content
// and Deps are required.
type Options struct {
	Site       *site.Site
	Reps       *site.RepRepository
	Calculator *rules.Calculator
	Filters    *filters.Registry
	Content    *content.Store
	Deps       *deps.Store

	// Outdated holds the reps that must run their action sequence. Reps
	// not in it are served from Cache when possible. Compiled reps are
	// removed from it. Nil means every rep is outdated.
	Outdated *outdated.Store

	// Cache and Fingerprint enable the compiled-content cache. A rep whose
	// fingerprint is empty is never cached.
	Cache       *content.Cache
	Fingerprint func(rep *site.ItemRep) string

	// Writer receives every routed snapshot. Nil skips writing.
	Writer Writer

	Sink   events.Sink
	TmpDir string
}

// Result summarizes one Run.
type Result struct {
	// Compiled lists reps whose action sequence ran, in completion order.
	Compiled []ir.Reference
	// Cached lists reps served from the cache.
	Cached []ir.Reference
	// Written lists output paths whose content changed.
	Written []string
}

// Executor compiles reps with one cooperative task per rep.
type Executor struct {
	opts  Options
	sink  events.Sink
	clock suspensionClock

	tasks  map[ir.Reference]*task
	ready  []*task
	failed map[ir.Reference]*CompilationError
	result Result
}

// NewExecutor returns an executor for one run.
func NewExecutor(opts Options) *Executor {
	return &Executor{
		opts:   opts,
		sink:   events.OrNop(opts.Sink),
		tasks:  map[ir.Reference]*task{},
		failed: map[ir.Reference]*CompilationError{},
	}
}

// Run compiles reps. Reps that are not outdated and have a cache entry
// matching their fingerprint are restored without running filters; all
// others get a task. Reps outside reps are compiled on demand when a task
// needs their content.
//
// The returned error joins every CompilationError, sorted by rep. A
// dependency cycle or a cancelled context aborts all unfinished tasks.
func (e *Executor) Run(ctx context.Context, reps []*site.ItemRep) (Result, error) {
	sorted := slices.Clone(reps)
	slices.SortFunc(sorted, func(a, b *site.ItemRep) int {
		return cmp.Compare(a.Reference(), b.Reference())
	})

	for _, rep := range sorted {
		if e.restoreFromCache(rep) {
			continue
		}
		e.ensureTask(rep)
	}

	if err := e.schedule(ctx); err != nil {
		e.abortAll()
		return e.result, errors.Join(append([]error{err}, e.failures()...)...)
	}
	return e.result, errors.Join(e.failures()...)
}

// Failed reports whether rep failed to compile in this run.
func (e *Executor) Failed(rep ir.Reference) bool {
	_, ok := e.failed[rep]
	return ok
}

func (e *Executor) outdated(rep *site.ItemRep) bool {
	return e.opts.Outdated == nil || e.opts.Outdated.Contains(rep.Reference())
}

func (e *Executor) fingerprint(rep *site.ItemRep) string {
	if e.opts.Cache == nil || e.opts.Fingerprint == nil {
		return ""
	}
	return e.opts.Fingerprint(rep)
}

// restoreFromCache serves rep from the cache when it is not outdated and
// the cached entry holds every snapshot the rep defines.
func (e *Executor) restoreFromCache(rep *site.ItemRep) bool {
	if e.outdated(rep) {
		return false
	}
	fp := e.fingerprint(rep)
	if fp == "" {
		return false
	}
	ref := rep.Reference()
	snapshots, hit, err := e.opts.Cache.Get(ref, fp)
	if err != nil {
		slog.Warn("compiled content cache lookup failed", "rep", ref, "error", err)
		return false
	}
	if !hit {
		return false
	}
	for _, name := range rep.SnapshotNames() {
		if _, ok := snapshots[name]; !ok {
			return false
		}
	}

	e.opts.Content.SetAll(ref, snapshots)
	rep.MarkCompiled()
	if err := e.writeOutputs(rep); err != nil {
		e.recordFailure(rep, err)
		return true
	}
	e.result.Cached = append(e.result.Cached, ref)
	e.sink.RepCompiled(string(ref), true)
	return true
}

func (e *Executor) ensureTask(rep *site.ItemRep) *task {
	ref := rep.Reference()
	if t, ok := e.tasks[ref]; ok {
		return t
	}
	t := newTask(rep)
	e.tasks[ref] = t
	e.ready = append(e.ready, t)
	return t
}

// schedule drives tasks until none is runnable.
func (e *Executor) schedule(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("compile reps: %w", err)
		}

		t := e.popReady()
		if t == nil {
			if !e.anySuspended() {
				return nil
			}
			return e.stalled()
		}

		if !t.started {
			t.start(e.compileRep)
		}
		sig := t.step()
		switch sig.kind {
		case signalSuspended:
			t.state = taskSuspended
			t.wait = sig.wait
			t.suspendedAt = e.clock.tick()
			e.sink.RepSuspended(string(t.rep.Reference()), string(sig.wait.rep.Reference()), sig.wait.snapshot)
			e.prioritize(sig.wait.rep)
		case signalDone:
			e.complete(t)
		case signalFailed:
			t.state = taskFailed
			e.recordFailure(t.rep, sig.err)
		}
		e.wakeWaiters()
	}
}

func (e *Executor) popReady() *task {
	for len(e.ready) > 0 {
		t := e.ready[0]
		e.ready[0] = nil
		e.ready = e.ready[1:]
		if t.state == taskPending || t.state == taskRunning {
			return t
		}
	}
	return nil
}

// prioritize moves the task compiling rep to the front of the ready queue,
// creating it if rep has no task yet.
func (e *Executor) prioritize(rep *site.ItemRep) {
	if rep.Compiled() || e.Failed(rep.Reference()) {
		return
	}
	t := e.ensureTask(rep)
	if t.state != taskPending {
		return
	}
	e.ready = slices.DeleteFunc(e.ready, func(r *task) bool { return r == t })
	e.ready = append([]*task{t}, e.ready...)
}

// wakeWaiters moves every suspended task whose wait is over to the front
// of the ready queue, oldest suspension first.
func (e *Executor) wakeWaiters() {
	var woken []*task
	for _, t := range e.tasks {
		if t.state == taskSuspended && e.resolved(t.wait) {
			woken = append(woken, t)
		}
	}
	if len(woken) == 0 {
		return
	}
	slices.SortFunc(woken, func(a, b *task) int { return cmp.Compare(a.suspendedAt, b.suspendedAt) })
	for _, t := range woken {
		t.state = taskRunning
		t.wait = unmetDependency{}
	}
	e.ready = append(woken, e.ready...)
}

// resolved reports whether a wait can end, either because the snapshot is
// available or because its rep failed.
func (e *Executor) resolved(w unmetDependency) bool {
	return e.Failed(w.rep.Reference()) || e.available(w.rep, w.snapshot)
}

// available reports whether snapshot of rep can be read. The moving
// snapshots last and pre are final only once the rep is compiled.
func (e *Executor) available(rep *site.ItemRep, snapshot string) bool {
	if isMoving(snapshot) && !rep.Compiled() {
		return false
	}
	_, ok := e.opts.Content.Get(rep.Reference(), snapshot)
	return ok
}

func isMoving(snapshot string) bool {
	return snapshot == site.SnapshotLast || snapshot == site.SnapshotPre
}

func (e *Executor) anySuspended() bool {
	for _, t := range e.tasks {
		if t.state == taskSuspended {
			return true
		}
	}
	return false
}

// stalled is called when suspended tasks remain but nothing can run.
func (e *Executor) stalled() error {
	g := waitGraph{}
	for ref, t := range e.tasks {
		if t.state == taskSuspended {
			g[ref] = []ir.Reference{t.wait.rep.Reference()}
		}
	}
	if cycles := g.cycles(); len(cycles) > 0 {
		err := &DependencyCycleError{Reps: cycles[0]}
		slog.Error("dependency cycle", "reps", err.Reps)
		return err
	}
	// Every wait leads to a cycle or a failed rep, so this is unreachable
	// unless a task waits on a rep that can never be compiled.
	return fmt.Errorf("compile reps: %d tasks suspended with nothing runnable", len(g))
}

func (e *Executor) abortAll() {
	for _, ref := range slices.Sorted(maps.Keys(e.tasks)) {
		e.tasks[ref].abort()
	}
}

// complete finishes a task whose action sequence ran to the end.
func (e *Executor) complete(t *task) {
	rep := t.rep
	ref := rep.Reference()
	t.state = taskDone
	rep.MarkCompiled()

	if err := e.writeOutputs(rep); err != nil {
		t.state = taskFailed
		e.recordFailure(rep, err)
		return
	}
	if e.opts.Outdated != nil {
		e.opts.Outdated.Remove(ref)
	}
	if fp := e.fingerprint(rep); fp != "" {
		e.opts.Cache.Put(ref, fp, e.opts.Content.Snapshots(ref))
	}
	e.result.Compiled = append(e.result.Compiled, ref)
	e.sink.RepCompiled(string(ref), false)
}

// writeOutputs writes every routed snapshot of rep.
func (e *Executor) writeOutputs(rep *site.ItemRep) error {
	if e.opts.Writer == nil {
		return nil
	}
	ref := rep.Reference()
	rawPaths := rep.RawPaths()
	for _, snapshot := range slices.Sorted(maps.Keys(rawPaths)) {
		c, ok := e.opts.Content.Get(ref, snapshot)
		if !ok {
			return NewNoSuchSnapshotError(ref, snapshot)
		}
		for _, path := range rawPaths[snapshot] {
			modified, err := e.opts.Writer.Write(path, c)
			if err != nil {
				return fmt.Errorf("write snapshot %s: %w", snapshot, err)
			}
			if modified {
				e.result.Written = append(e.result.Written, path)
			}
		}
	}
	return nil
}

func (e *Executor) recordFailure(rep *site.ItemRep, err error) {
	ref := rep.Reference()
	ce := &CompilationError{
		Rep:        ref,
		Identifier: rep.Item().Identifier(),
		RepName:    rep.Name(),
		Err:        err,
	}
	e.failed[ref] = ce
	if t, ok := e.tasks[ref]; ok {
		t.err = ce
	}
	e.opts.Content.Forget(ref)
	slog.Debug("rep failed", "rep", ref, "error", err)
}

// failures returns every compilation error, sorted by rep. Tasks torn down
// by abortAll are not failures of their own.
func (e *Executor) failures() []error {
	var out []error
	for _, ref := range slices.Sorted(maps.Keys(e.failed)) {
		out = append(out, e.failed[ref])
	}
	return out
}
