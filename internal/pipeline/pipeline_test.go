package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/folio/internal/engine"
	"github.com/roach88/folio/internal/events"
	"github.com/roach88/folio/internal/filters"
	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/outdated"
	"github.com/roach88/folio/internal/rules"
	"github.com/roach88/folio/internal/site"
	"github.com/roach88/folio/internal/store"
	"github.com/roach88/folio/internal/testutil"
	"github.com/roach88/folio/internal/writer"
)

// =============================================================================
// Fixtures
// =============================================================================

type fixture struct {
	site    *testutil.MemSite
	rules   *rules.Collection
	filters *filters.Registry
	spy     *testutil.Spy
	ids     *testutil.RunIDs
	clock   *testutil.Clock
	outDir  string
	tmpDir  string

	autoPrune bool
	rec       *events.Recorder
}

func htmlRoute(item *site.ItemView, _, _ string) (string, error) {
	return item.Identifier().WithoutExt() + ".html", nil
}

// newFixture compiles every item through the template filter and routes
// it to its identifier with an .html extension.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, spies, err := testutil.SpyOnBuiltins("template")
	require.NoError(t, err)

	coll := rules.NewCollection()
	require.NoError(t, coll.Compile("/**/*", "", func(ctx *rules.RecordingContext, _ *site.ItemView) error {
		ctx.Filter("template", nil)
		return nil
	}))
	require.NoError(t, coll.Route("/**/*", "", "", htmlRoute))

	root := t.TempDir()
	return &fixture{
		site:    testutil.NewMemSite(),
		rules:   coll,
		filters: reg,
		spy:     spies["template"],
		ids:     testutil.NewRunIDs(""),
		clock:   testutil.NewDefaultClock(),
		outDir:  filepath.Join(root, "output"),
		tmpDir:  filepath.Join(root, "tmp"),
	}
}

func (f *fixture) compiler(t *testing.T) *Compiler {
	t.Helper()
	require.NoError(t, os.MkdirAll(f.outDir, 0o755))
	w, err := writer.New(f.outDir)
	require.NoError(t, err)
	f.rec = &events.Recorder{}
	return New(Options{
		Loader:    f.site,
		Rules:     f.rules,
		Filters:   f.filters,
		OutputDir: f.outDir,
		TmpDir:    f.tmpDir,
		Writer:    w,
		Pruner:    writer.NewPruner(f.outDir, nil, false),
		AutoPrune: f.autoPrune,
		Sink:      f.rec,
		IDs:       f.ids,
		Now:       f.clock.Now,
	})
}

// compile runs one full compilation with the spy reset.
func (f *fixture) compile(t *testing.T) (Report, error) {
	t.Helper()
	f.spy.Reset()
	return f.compiler(t).Run(context.Background())
}

func (f *fixture) mustCompile(t *testing.T) Report {
	t.Helper()
	report, err := f.compile(t)
	require.NoError(t, err)
	return report
}

func (f *fixture) output(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.outDir, rel))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) runs(t *testing.T) []store.Run {
	t.Helper()
	db, err := store.Open(filepath.Join(f.tmpDir, StoreFile))
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.Runs(context.Background(), 0)
	require.NoError(t, err)
	return runs
}

// execStore runs statements directly against the state database.
func (f *fixture) execStore(t *testing.T, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(f.tmpDir, StoreFile))
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func failInserts(table string) string {
	return "CREATE TRIGGER fail_" + table + " BEFORE INSERT ON " + table +
		" BEGIN SELECT RAISE(ABORT, 'disk full'); END"
}

func repRef(id string) ir.Reference {
	return ir.RepRef(ir.Identifier(id), site.DefaultRep)
}

func reasonKinds(r Report) map[ir.Reference]outdated.ReasonKind {
	out := map[ir.Reference]outdated.ReasonKind{}
	for ref, reason := range r.Outdated {
		out[ref] = reason.Kind
	}
	return out
}

const embedA = `{{ compiledContent "/a.md" }}`

// =============================================================================
// Scenarios
// =============================================================================

func TestCompile_DependentItemFollowsItsDependency(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "A", nil).SetItem("/b.md", embedA, nil)

	first := f.mustCompile(t)
	assert.Equal(t, "A", f.output(t, "a.html"))
	assert.Equal(t, "A", f.output(t, "b.html"))
	assert.Equal(t, map[ir.Reference]outdated.ReasonKind{
		repRef("/a.md"): outdated.NotCompiledBefore,
		repRef("/b.md"): outdated.NotCompiledBefore,
	}, reasonKinds(first))

	f.site.SetItem("/a.md", "A2", nil)
	second := f.mustCompile(t)

	assert.Equal(t, map[ir.Reference]outdated.ReasonKind{
		repRef("/a.md"): outdated.ContentModified,
		repRef("/b.md"): outdated.DependenciesOutdated,
	}, reasonKinds(second))
	assert.Equal(t, "A2", f.output(t, "a.html"))
	assert.Equal(t, "A2", f.output(t, "b.html"))
	assert.ElementsMatch(t, []ir.Reference{repRef("/a.md"), repRef("/b.md")}, second.Compiled)
	assert.Empty(t, second.Cached)
	assert.Equal(t, 1, f.spy.Calls(repRef("/a.md")))
	assert.Equal(t, 1, f.spy.Calls(repRef("/b.md")))
	assert.Equal(t, 1, f.rec.Count("cache_written "+string(repRef("/a.md"))))
}

func TestCompile_SuspendedRepRunsItsFilterOnce(t *testing.T) {
	f := newFixture(t)
	// /a.md sorts first and waits for /z.md.
	f.site.SetItem("/a.md", `{{ compiledContent "/z.md" }}!`, nil).SetItem("/z.md", "Z", nil)

	report := f.mustCompile(t)

	assert.Equal(t, "Z!", f.output(t, "a.html"))
	assert.Equal(t, []ir.Reference{repRef("/z.md"), repRef("/a.md")}, report.Compiled)
	assert.Equal(t, 1, f.spy.Calls(repRef("/a.md")))
	assert.Equal(t, 1, f.rec.Count("suspended "+string(repRef("/a.md"))+" on "+string(repRef("/z.md"))))
}

func TestCompile_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "A", nil).SetItem("/b.md", embedA, nil)
	f.mustCompile(t)

	info, err := os.Stat(filepath.Join(f.outDir, "b.html"))
	require.NoError(t, err)

	second := f.mustCompile(t)

	assert.Empty(t, second.Outdated)
	assert.Empty(t, second.Compiled)
	assert.ElementsMatch(t, []ir.Reference{repRef("/a.md"), repRef("/b.md")}, second.Cached)
	assert.Empty(t, second.Written)
	assert.Equal(t, 0, f.spy.Total(), "cached reps must not run filters")
	assert.Equal(t, "A", f.output(t, "b.html"))

	after, err := os.Stat(filepath.Join(f.outDir, "b.html"))
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime())
}

func TestCompile_AttributeChangeOutdatesOnlyThatItem(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "A", ir.IRObject{"title": ir.IRString("one")}).
		SetItem("/c.md", "C", nil)
	f.mustCompile(t)

	f.site.SetItem("/a.md", "A", ir.IRObject{"title": ir.IRString("two")})
	report := f.mustCompile(t)

	require.Contains(t, report.Outdated, repRef("/a.md"))
	reason := report.Outdated[repRef("/a.md")]
	assert.Equal(t, outdated.AttributesModified, reason.Kind)
	assert.Equal(t, "attributes modified (title)", reason.String())
	assert.NotContains(t, report.Outdated, repRef("/c.md"))
	assert.Equal(t, []ir.Reference{repRef("/c.md")}, report.Cached)
}

func TestCompile_RuleChangeOutdatesMatchingReps(t *testing.T) {
	f := newFixture(t)
	shout := false
	f.rules = rules.NewCollection()
	require.NoError(t, f.rules.Compile("/a.md", "", func(ctx *rules.RecordingContext, _ *site.ItemView) error {
		ctx.Filter("template", nil)
		if shout {
			ctx.Filter("upcase", nil)
		}
		return nil
	}))
	require.NoError(t, f.rules.Compile("/**/*", "", func(ctx *rules.RecordingContext, _ *site.ItemView) error {
		ctx.Filter("template", nil)
		return nil
	}))
	require.NoError(t, f.rules.Route("/**/*", "", "", htmlRoute))
	f.site.SetItem("/a.md", "a", nil).SetItem("/c.md", "c", nil)
	f.mustCompile(t)

	shout = true
	report := f.mustCompile(t)

	assert.Equal(t, map[ir.Reference]outdated.ReasonKind{
		repRef("/a.md"): outdated.RulesModified,
	}, reasonKinds(report))
	assert.Equal(t, "A", f.output(t, "a.html"))
	assert.Equal(t, "c", f.output(t, "c.html"))
}

func TestCompile_CodeSnippetChangeOutdatesEverything(t *testing.T) {
	f := newFixture(t)
	f.rules.Snippets = []rules.CodeSnippet{{Name: "rules.cue", Source: "v1"}}
	f.site.SetItem("/a.md", "a", nil).SetItem("/c.md", "c", nil)
	f.mustCompile(t)

	f.rules.Snippets = []rules.CodeSnippet{{Name: "rules.cue", Source: "v2"}}
	report := f.mustCompile(t)

	assert.Equal(t, map[ir.Reference]outdated.ReasonKind{
		repRef("/a.md"): outdated.CodeSnippetsModified,
		repRef("/c.md"): outdated.CodeSnippetsModified,
	}, reasonKinds(report))
}

func TestCompile_DeletedOutputIsRewritten(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "a", nil)
	f.mustCompile(t)

	require.NoError(t, os.Remove(filepath.Join(f.outDir, "a.html")))
	report := f.mustCompile(t)

	assert.Equal(t, outdated.NotWritten, report.Outdated[repRef("/a.md")].Kind)
	assert.Equal(t, "a", f.output(t, "a.html"))
}

func TestCompile_LayoutSeesPreSnapshot(t *testing.T) {
	f := newFixture(t)
	f.rules = rules.NewCollection()
	require.NoError(t, f.rules.Compile("/**/*", "", func(ctx *rules.RecordingContext, _ *site.ItemView) error {
		ctx.Filter("upcase", nil)
		ctx.Layout("/default.*", ir.IRObject{"title": ir.IRString("Home")})
		return nil
	}))
	require.NoError(t, f.rules.Route("/**/*", "", "", htmlRoute))
	require.NoError(t, f.rules.Layout("/default.*", "template", nil))
	f.site.SetItem("/a.md", "hello", nil).
		SetLayout("/default.html", `<h1>{{ .Params.title }}</h1>{{ .Content }}`, nil)

	f.mustCompile(t)
	assert.Equal(t, "<h1>Home</h1>HELLO", f.output(t, "a.html"))

	f.site.SetLayout("/default.html", `<main>{{ .Content }}</main>`, nil)
	report := f.mustCompile(t)
	assert.Equal(t, outdated.DependenciesOutdated, report.Outdated[repRef("/a.md")].Kind)
	assert.Equal(t, "<main>HELLO</main>", f.output(t, "a.html"))
}

func TestCompile_LayoutOutdatednessReported(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rules.Layout("/**/*", "template", nil))
	f.site.SetItem("/a.md", "a", nil).
		SetLayout("/default.html", `<main>{{ .Content }}</main>`, nil).
		SetLayout("/other.html", `<div>{{ .Content }}</div>`, nil)
	layout := ir.LayoutRef("/default.html")

	first := f.mustCompile(t)
	assert.Equal(t, outdated.NotCompiledBefore, first.OutdatedLayouts[layout].Kind)
	assert.Len(t, first.OutdatedLayouts, 2)

	second := f.mustCompile(t)
	assert.Empty(t, second.OutdatedLayouts)

	f.site.SetLayout("/default.html", `<body>{{ .Content }}</body>`, nil)
	third := f.mustCompile(t)
	assert.Equal(t, map[ir.Reference]outdated.Reason{
		layout: {Kind: outdated.ContentModified, Props: ir.Props{RawContent: true, CompiledContent: true}},
	}, third.OutdatedLayouts)
	assert.Empty(t, third.Outdated, "no rep uses the layout")
	assert.NotContains(t, third.Compiled, layout)
}

func TestCompile_SnapshotDefaults(t *testing.T) {
	f := newFixture(t)
	f.rules = rules.NewCollection()
	require.NoError(t, f.rules.Compile("/with-layout.md", "", func(ctx *rules.RecordingContext, _ *site.ItemView) error {
		ctx.Filter("identity", nil)
		ctx.Layout("/default.html", nil)
		return nil
	}))
	require.NoError(t, f.rules.Compile("/**/*", "", func(ctx *rules.RecordingContext, _ *site.ItemView) error {
		ctx.Filter("identity", nil)
		return nil
	}))
	require.NoError(t, f.rules.Layout("/default.html", "template", nil))
	f.site.SetItem("/plain.md", "p", nil).
		SetItem("/with-layout.md", "w", nil).
		SetLayout("/default.html", "{{ .Content }}", nil)

	c := f.compiler(t)
	require.NoError(t, c.RunUntil(context.Background(), StageCalculateChecksums))
	defer func() { require.NoError(t, c.Close(context.Background())) }()

	plain, ok := c.ActionSequence(repRef("/plain.md"))
	require.True(t, ok)
	if diff := cmp.Diff([]string{site.SnapshotRaw, site.SnapshotLast}, plain.SnapshotNames()); diff != "" {
		t.Errorf("plain snapshots (-want +got):\n%s", diff)
	}

	withLayout, ok := c.ActionSequence(repRef("/with-layout.md"))
	require.True(t, ok)
	if diff := cmp.Diff([]string{site.SnapshotRaw, site.SnapshotPre, site.SnapshotLast}, withLayout.SnapshotNames()); diff != "" {
		t.Errorf("layout snapshots (-want +got):\n%s", diff)
	}
}

func TestCompile_PostprocessReadsCompiledContent(t *testing.T) {
	f := newFixture(t)
	var seen string
	f.rules.PostprocessFunc = func(_ context.Context, view *site.ViewContext) error {
		item, ok := view.Items().Get("/a.md")
		if !ok {
			return errors.New("no /a.md")
		}
		var err error
		seen, err = item.CompiledContent("")
		return err
	}
	f.site.SetItem("/a.md", `{{ upper "done" }}`, nil)

	f.mustCompile(t)
	assert.Equal(t, "DONE", seen)
}

func TestCompile_PreprocessEditsDraft(t *testing.T) {
	f := newFixture(t)
	f.rules.PreprocessFunc = func(_ context.Context, d *site.Draft) error {
		return d.AddItem(&site.DraftItem{Identifier: "/generated.md", Content: ir.NewTextualContent("gen", "")})
	}
	f.site.SetItem("/a.md", "a", nil)

	f.mustCompile(t)
	assert.Equal(t, "gen", f.output(t, "generated.html"))
}

// =============================================================================
// Failures
// =============================================================================

func TestCompile_CycleFailsAndCleansUp(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", `{{ compiledContent "/b.md" }}`, nil).
		SetItem("/b.md", embedA, nil)

	_, err := f.compile(t)
	require.Error(t, err)
	assert.True(t, engine.IsCycleError(err))
	var cycle *engine.DependencyCycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []ir.Reference{repRef("/a.md"), repRef("/b.md"), repRef("/a.md")}, cycle.Reps)

	_, statErr := os.Stat(filepath.Join(f.tmpDir, FilterOutputDir))
	assert.True(t, os.IsNotExist(statErr), "filter outputs must be removed")
	assert.Contains(t, f.rec.Events(), "stage_failed "+string(StageCompileReps))

	runs := f.runs(t)
	require.Len(t, runs, 1)
	assert.Equal(t, store.OutcomeFailed, runs[0].Outcome)
	assert.Equal(t, string(StageCompileReps), runs[0].Stage)
	assert.Contains(t, runs[0].Error, "dependency cycle")
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestCompile_FailedRepIsRetriedNextRun(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "a", nil).SetItem("/b.md", `{{ compiledContent "/missing.md" }}`, nil)

	_, err := f.compile(t)
	require.Error(t, err)
	assert.True(t, engine.IsCompilationError(err))
	assert.Contains(t, err.Error(), "no item /missing.md")

	f.site.SetItem("/b.md", "fixed", nil)
	report := f.mustCompile(t)

	assert.Equal(t, outdated.ContentModified, report.Outdated[repRef("/b.md")].Kind)
	assert.ElementsMatch(t, []ir.Reference{repRef("/a.md"), repRef("/b.md")}, report.Compiled,
		"reps left outdated by a failed run are compiled again")
	assert.Equal(t, "fixed", f.output(t, "b.html"))
}

func TestCompile_FailedPreCompilationStateKeepsDependentsOutdated(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "A", nil).SetItem("/b.md", embedA, nil)
	f.mustCompile(t)

	f.execStore(t, failInserts("outdated"))
	f.site.SetItem("/a.md", "A2", nil)
	_, err := f.compile(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(StageStorePreCompilationState))
	assert.Contains(t, err.Error(), "disk full")

	f.execStore(t, "DROP TRIGGER fail_outdated")
	report := f.mustCompile(t)

	assert.Equal(t, map[ir.Reference]outdated.ReasonKind{
		repRef("/a.md"): outdated.ContentModified,
		repRef("/b.md"): outdated.DependenciesOutdated,
	}, reasonKinds(report))
	assert.ElementsMatch(t, []ir.Reference{repRef("/a.md"), repRef("/b.md")}, report.Compiled)
	assert.Empty(t, report.Cached)
	assert.Equal(t, "A2", f.output(t, "b.html"))
}

func TestCompile_FailedPostCompilationStateRecompiles(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "A", nil).SetItem("/b.md", embedA, nil)
	f.mustCompile(t)

	f.execStore(t, failInserts("output_paths"))
	f.site.SetItem("/a.md", "A2", nil)
	_, err := f.compile(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(StageStorePostCompilationState))

	f.execStore(t, "DROP TRIGGER fail_output_paths")
	report := f.mustCompile(t)

	assert.ElementsMatch(t, []ir.Reference{repRef("/a.md"), repRef("/b.md")}, report.Compiled,
		"reps outdated before the failed run stay outdated")
	assert.Equal(t, "A2", f.output(t, "a.html"))
	assert.Equal(t, "A2", f.output(t, "b.html"))

	third := f.mustCompile(t)
	assert.Empty(t, third.Compiled)
	assert.Equal(t, "A2", f.output(t, "b.html"))
}

func TestCompile_DuplicateOutputPath(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "1", nil).SetItem("/a.txt", "2", nil)

	_, err := f.compile(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both routed to")
	assert.Contains(t, err.Error(), string(StageBuildReps))
}

func TestCompile_LoaderError(t *testing.T) {
	f := newFixture(t)
	c := f.compiler(t)
	c.opts.Loader = LoaderFunc(func(context.Context) (*site.Draft, error) {
		return nil, errors.New("disk on fire")
	})

	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preprocess: load site: disk on fire")

	// A failed compiler keeps returning the same error.
	err2 := c.RunUntil(context.Background(), StagePostprocess)
	assert.Equal(t, c.failed, err2)
}

func TestRunUntil_UnknownStage(t *testing.T) {
	f := newFixture(t)
	err := f.compiler(t).RunUntil(context.Background(), Stage("bogus"))
	require.Error(t, err)
}

func TestRunUntil_StagesRunOnce(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "a", nil)
	c := f.compiler(t)
	ctx := context.Background()

	require.NoError(t, c.RunUntil(ctx, StageBuildReps))
	require.NoError(t, c.RunUntil(ctx, StageBuildReps))
	require.NoError(t, c.RunUntil(ctx, StageCleanup))

	assert.Equal(t, 1, f.site.Loads())
	assert.Equal(t, 1, f.rec.Count("stage_started "+string(StagePreprocess)))
	assert.Equal(t, 1, f.rec.Count("stage_finished "+string(StageCleanup)))
	require.NoError(t, c.Close(ctx))
	assert.Equal(t, 1, f.rec.Count("stage_started "+string(StageCleanup)))
}

// =============================================================================
// Run log, versions and pruning
// =============================================================================

func TestCompile_RunLog(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "a", nil)
	first := f.mustCompile(t)
	second := f.mustCompile(t)

	assert.Equal(t, "run-0001", first.RunID)
	assert.Equal(t, "run-0002", second.RunID)

	runs := f.runs(t)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-0002", runs[0].ID)
	for _, r := range runs {
		assert.Equal(t, store.OutcomeSucceeded, r.Outcome)
		assert.Equal(t, string(StageCleanup), r.Stage)
		assert.Equal(t, versionTag, r.EngineVersion)
		require.NotNil(t, r.FinishedAt)
		assert.True(t, r.FinishedAt.After(r.StartedAt))
	}
}

func TestCompile_StateOfOtherStoreVersionIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "a", nil)
	f.mustCompile(t)

	db, err := store.Open(filepath.Join(f.tmpDir, StoreFile))
	require.NoError(t, err)
	later := testutil.Epoch.Add(24 * time.Hour)
	require.NoError(t, db.BeginRun(context.Background(), "legacy", later, "0.0.1 store/0"))
	require.NoError(t, db.Close())

	report := f.mustCompile(t)
	assert.Equal(t, outdated.NotCompiledBefore, report.Outdated[repRef("/a.md")].Kind)
}

func TestCompile_StaleOutputsArePruned(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "a", nil).SetItem("/old.md", "old", nil)
	f.mustCompile(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.outDir, "stray.txt"), []byte("x"), 0o644))

	f.site.DeleteItem("/old.md")
	f.autoPrune = true
	report := f.mustCompile(t)

	stale := filepath.Join(f.outDir, "old.html")
	assert.Equal(t, []string{stale}, report.Stale)
	assert.True(t, slices.Contains(report.Pruned, stale))
	assert.True(t, slices.Contains(report.Pruned, filepath.Join(f.outDir, "stray.txt")))
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "a", f.output(t, "a.html"))
}

func TestCompile_StaleOutputsKeptWithoutAutoPrune(t *testing.T) {
	f := newFixture(t)
	f.site.SetItem("/a.md", "a", nil).SetItem("/old.md", "old", nil)
	f.mustCompile(t)

	f.site.DeleteItem("/old.md")
	report := f.mustCompile(t)

	assert.Equal(t, []string{filepath.Join(f.outDir, "old.html")}, report.Stale)
	assert.Empty(t, report.Pruned)
	assert.Equal(t, "old", f.output(t, "old.html"))
}
