// Package pipeline runs a compilation as a fixed sequence of memoized
// stages, from loading the site to persisting what the next run needs to
// decide what is outdated.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/roach88/folio/internal/checksum"
	"github.com/roach88/folio/internal/content"
	"github.com/roach88/folio/internal/deps"
	"github.com/roach88/folio/internal/engine"
	"github.com/roach88/folio/internal/events"
	"github.com/roach88/folio/internal/filters"
	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/outdated"
	"github.com/roach88/folio/internal/rules"
	"github.com/roach88/folio/internal/site"
	"github.com/roach88/folio/internal/store"
)

// Stage names one step of a compilation.
type Stage string

const (
	StagePreprocess                 Stage = "preprocess"
	StageBuildReps                  Stage = "build_reps"
	StageLoadStores                 Stage = "load_stores"
	StageCalculateChecksums         Stage = "calculate_checksums"
	StageDetermineOutdatedness      Stage = "determine_outdatedness"
	StageForgetOutdatedDependencies Stage = "forget_outdated_dependencies"
	StageStorePreCompilationState   Stage = "store_pre_compilation_state"
	StagePrune                      Stage = "prune"
	StageCompileReps                Stage = "compile_reps"
	StageStorePostCompilationState  Stage = "store_post_compilation_state"
	StagePostprocess                Stage = "postprocess"
	StageCleanup                    Stage = "cleanup"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StagePreprocess,
	StageBuildReps,
	StageLoadStores,
	StageCalculateChecksums,
	StageDetermineOutdatedness,
	StageForgetOutdatedDependencies,
	StageStorePreCompilationState,
	StagePrune,
	StageCompileReps,
	StageStorePostCompilationState,
	StagePostprocess,
	StageCleanup,
}

// File names under the temp dir.
const (
	StoreFile       = "folio.db"
	CacheFile       = "compiled_content.db"
	BinaryCacheDir  = "binary_content"
	FilterOutputDir = "filters"
)

// Loader supplies the items and layouts of the site.
type Loader interface {
	Load(ctx context.Context) (*site.Draft, error)
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc func(ctx context.Context) (*site.Draft, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) (*site.Draft, error) { return f(ctx) }

// Pruner removes files from the output directory that no rep produces.
type Pruner interface {
	Prune(ctx context.Context, keep []string) (removed []string, err error)
}

// Options configures a compilation.
type Options struct {
	Loader  Loader
	Rules   rules.Provider
	Filters *filters.Registry

	// OutputDir receives routed snapshots. TmpDir holds the persistent
	// stores and the binary cache.
	OutputDir string
	TmpDir    string

	Writer engine.Writer

	// Pruner runs during the prune stage when AutoPrune is set.
	Pruner    Pruner
	AutoPrune bool

	Sink events.Sink
	IDs  IDGenerator
	Now  func() time.Time

	// FileExists defaults to os.Stat; the not-written rule uses it.
	FileExists func(string) bool
}

// Report summarizes a compilation.
type Report struct {
	RunID string

	// Outdated maps every rep found outdated to the first rule that fired.
	// Reps outdated only because a sibling rep is outdated, or left over
	// from an interrupted run, have no reason.
	Outdated map[ir.Reference]outdated.Reason

	// OutdatedLayouts maps every outdated layout to its first reason.
	// Layouts are not compiled; their reps follow through dependencies.
	OutdatedLayouts map[ir.Reference]outdated.Reason

	Compiled []ir.Reference
	Cached   []ir.Reference
	Written  []string
	Pruned   []string

	// Stale lists paths written by the previous run that no rep produces
	// anymore.
	Stale []string
}

// Compiler runs the stages of one compilation. A Compiler is single use.
type Compiler struct {
	opts Options
	sink events.Sink

	done     map[Stage]bool
	failed   error
	stageErr map[Stage]error

	runID       string
	draft       *site.Draft
	site        *site.Site
	reps        *site.RepRepository
	calc        *rules.Calculator
	db          *store.Store
	cache       *content.Cache
	checksums   *checksum.Store
	sequences   *outdated.SequenceStore
	deps        *deps.Store
	outdated    *outdated.Store
	checker     *outdated.Checker
	content     *content.Store
	prevOutputs map[ir.Reference][]string

	report Report
}

// New returns a compiler. Loader, Rules, Filters, OutputDir and TmpDir are
// required.
func New(opts Options) *Compiler {
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Compiler{
		opts:     opts,
		sink:     events.OrNop(opts.Sink),
		done:     map[Stage]bool{},
		stageErr: map[Stage]error{},
		report: Report{
			Outdated:        map[ir.Reference]outdated.Reason{},
			OutdatedLayouts: map[ir.Reference]outdated.Reason{},
		},
	}
}

// Run performs every stage and returns the report.
func (c *Compiler) Run(ctx context.Context) (Report, error) {
	err := c.RunUntil(ctx, StageCleanup)
	return c.report, err
}

// RunUntil performs every stage up to and including target. Stages already
// performed are skipped. When a stage fails, cleanup runs and the error is
// returned; later calls return the same error.
func (c *Compiler) RunUntil(ctx context.Context, target Stage) error {
	if !slices.Contains(Stages, target) {
		return fmt.Errorf("unknown stage %q", target)
	}
	if c.failed != nil {
		return c.failed
	}
	for _, stage := range Stages {
		if stage == StageCleanup {
			if target == StageCleanup {
				return c.cleanup(ctx, nil)
			}
			return nil
		}
		if !c.done[stage] {
			if err := c.runStage(ctx, stage); err != nil {
				c.failed = err
				return errors.Join(err, c.cleanup(ctx, err))
			}
		}
		if stage == target {
			return nil
		}
	}
	return nil
}

// Close runs cleanup if it has not run yet. Callers that stop with RunUntil
// before cleanup must call it.
func (c *Compiler) Close(ctx context.Context) error {
	return c.cleanup(ctx, nil)
}

func (c *Compiler) runStage(ctx context.Context, stage Stage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	if c.db != nil {
		if err := c.db.UpdateRunStage(ctx, c.runID, string(stage)); err != nil {
			slog.Warn("run log not updated", "run_id", c.runID, "stage", stage, "error", err)
		}
	}

	c.sink.StageStarted(string(stage))
	start := time.Now()
	err := c.stageFunc(stage)(ctx)
	c.sink.StageFinished(string(stage), time.Since(start), err)
	c.done[stage] = true
	if err != nil {
		c.stageErr[stage] = err
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}

func (c *Compiler) stageFunc(stage Stage) func(context.Context) error {
	switch stage {
	case StagePreprocess:
		return c.preprocess
	case StageBuildReps:
		return c.buildReps
	case StageLoadStores:
		return c.loadStores
	case StageCalculateChecksums:
		return c.calculateChecksums
	case StageDetermineOutdatedness:
		return c.determineOutdatedness
	case StageForgetOutdatedDependencies:
		return c.forgetOutdatedDependencies
	case StageStorePreCompilationState:
		return c.storePreCompilationState
	case StagePrune:
		return c.prune
	case StageCompileReps:
		return c.compileReps
	case StageStorePostCompilationState:
		return c.storePostCompilationState
	case StagePostprocess:
		return c.postprocess
	default:
		return func(context.Context) error { return fmt.Errorf("unknown stage %q", stage) }
	}
}

// cleanup closes the stores, finishes the run log and removes filter
// outputs. It runs at most once.
func (c *Compiler) cleanup(ctx context.Context, runErr error) error {
	if c.done[StageCleanup] {
		return c.stageErr[StageCleanup]
	}
	c.done[StageCleanup] = true
	c.sink.StageStarted(string(StageCleanup))
	start := time.Now()

	var errs []error
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if c.db != nil {
		if runErr == nil {
			if err := c.db.UpdateRunStage(context.WithoutCancel(ctx), c.runID, string(StageCleanup)); err != nil {
				errs = append(errs, fmt.Errorf("update run log: %w", err))
			}
		}
		if err := c.db.FinishRun(context.WithoutCancel(ctx), c.runID, c.opts.Now(), runErr); err != nil {
			errs = append(errs, fmt.Errorf("finish run log: %w", err))
		}
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if c.opts.TmpDir != "" {
		if err := os.RemoveAll(filepath.Join(c.opts.TmpDir, FilterOutputDir)); err != nil {
			errs = append(errs, fmt.Errorf("remove filter outputs: %w", err))
		}
	}

	err := errors.Join(errs...)
	c.sink.StageFinished(string(StageCleanup), time.Since(start), err)
	if err != nil {
		err = fmt.Errorf("%s: %w", StageCleanup, err)
		c.stageErr[StageCleanup] = err
	}
	return err
}

// Site returns the frozen site, once preprocess has run.
func (c *Compiler) Site() *site.Site { return c.site }

// Reps returns the reps, once build_reps has run.
func (c *Compiler) Reps() *site.RepRepository { return c.reps }

// Dependencies returns the dependency graph, once load_stores has run.
func (c *Compiler) Dependencies() *deps.Store { return c.deps }

// Checker returns the outdatedness checker, once determine_outdatedness
// has run.
func (c *Compiler) Checker() *outdated.Checker { return c.checker }

// ActionSequence returns the action sequence of a rep or layout computed
// this run.
func (c *Compiler) ActionSequence(ref ir.Reference) (ir.ActionSequence, bool) {
	if c.sequences == nil {
		return ir.ActionSequence{}, false
	}
	return c.sequences.Current(ref)
}

// Report returns the report so far.
func (c *Compiler) Report() Report { return c.report }

// RunID returns the ID of this run in the run log.
func (c *Compiler) RunID() string { return c.runID }

// OutputPaths returns every path a rep is routed to, once build_reps has
// run.
func (c *Compiler) OutputPaths() []string {
	if c.reps == nil {
		return nil
	}
	return c.outputPaths()
}

// IsOutdated reports whether ref will be recompiled, once
// determine_outdatedness has run.
func (c *Compiler) IsOutdated(ref ir.Reference) bool {
	return c.outdated != nil && c.outdated.Contains(ref)
}
