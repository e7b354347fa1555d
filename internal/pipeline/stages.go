package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/folio/internal/checksum"
	"github.com/roach88/folio/internal/content"
	"github.com/roach88/folio/internal/deps"
	"github.com/roach88/folio/internal/engine"
	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/outdated"
	"github.com/roach88/folio/internal/rules"
	"github.com/roach88/folio/internal/site"
	"github.com/roach88/folio/internal/store"
)

// versionTag is recorded with every run. State written under another
// store version is ignored.
var versionTag = ir.EngineVersion + " store/" + ir.StoreVersion

func (c *Compiler) preprocess(ctx context.Context) error {
	draft, err := c.opts.Loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load site: %w", err)
	}
	if err := c.opts.Rules.Preprocess(ctx, draft); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	s, err := site.Freeze(draft)
	if err != nil {
		return err
	}
	c.draft = draft
	c.site = s
	slog.Debug("site loaded", "items", len(s.Items()), "layouts", len(s.Layouts()))
	return nil
}

// buildReps creates every rep and assigns its action sequence and paths.
// Layout sequences are computed too, so a layout without a rule fails the
// run before anything compiles.
func (c *Compiler) buildReps(context.Context) error {
	c.reps = site.NewRepRepository()
	for _, it := range c.site.Items() {
		for _, name := range c.opts.Rules.RepNamesFor(it) {
			c.reps.Add(site.NewItemRep(it, name))
		}
	}

	c.calc = rules.NewCalculator(c.opts.Rules, &site.ViewContext{
		Site:    c.site,
		Reps:    c.reps,
		Tracker: deps.Null{},
	})

	owners := map[string]ir.Reference{}
	for _, rep := range c.reps.All() {
		seq, err := c.calc.ForRep(rep)
		if err != nil {
			return err
		}
		rep.Assign(seq, c.opts.OutputDir)
		for _, p := range rep.AllRawPaths() {
			if other, dup := owners[p]; dup {
				return fmt.Errorf("reps %s and %s are both routed to %s", other, rep.Reference(), p)
			}
			owners[p] = rep.Reference()
		}
	}
	for _, l := range c.site.Layouts() {
		if _, err := c.calc.ForLayout(l); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) loadStores(ctx context.Context) error {
	if err := os.MkdirAll(c.opts.TmpDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	db, err := store.Open(filepath.Join(c.opts.TmpDir, StoreFile))
	if err != nil {
		return err
	}
	c.db = db

	fresh, err := c.staleStoreVersion(ctx)
	if err != nil {
		return err
	}

	c.runID = c.opts.IDs.Generate()
	c.report.RunID = c.runID
	if err := db.BeginRun(ctx, c.runID, c.opts.Now(), versionTag); err != nil {
		return err
	}
	if err := db.UpdateRunStage(ctx, c.runID, string(StageLoadStores)); err != nil {
		return err
	}

	var (
		checksums   map[ir.Reference]store.ChecksumRecord
		records     []store.DependencyRecord
		sequences   map[ir.Reference]ir.ActionSequence
		outdatedRef []ir.Reference
	)
	if !fresh {
		if checksums, err = db.LoadChecksums(ctx); err != nil {
			return err
		}
		if records, err = db.LoadDependencies(ctx); err != nil {
			return err
		}
		if sequences, err = db.LoadActionSequences(ctx); err != nil {
			return err
		}
		if outdatedRef, err = db.LoadOutdated(ctx); err != nil {
			return err
		}
		if c.prevOutputs, err = db.LoadOutputPaths(ctx); err != nil {
			return err
		}
	}

	c.checksums = checksum.NewStore(checksums)
	c.sequences = outdated.NewSequenceStore(sequences)
	c.deps = deps.NewStore(c.objectRefs())
	c.deps.Load(records)
	c.outdated = outdated.NewStore(outdatedRef)
	c.content = content.NewStore()

	cache, err := content.OpenCache(filepath.Join(c.opts.TmpDir, CacheFile), filepath.Join(c.opts.TmpDir, BinaryCacheDir))
	if err != nil {
		return err
	}
	c.cache = cache

	slog.Debug("stores loaded",
		"run_id", c.runID,
		"checksums", len(checksums),
		"dependencies", len(records),
		"action_sequences", len(sequences),
		"outdated", len(outdatedRef))
	return nil
}

// staleStoreVersion reports whether the previous run wrote its state under
// a different store version, in which case that state is ignored.
func (c *Compiler) staleStoreVersion(ctx context.Context) (bool, error) {
	runs, err := c.db.Runs(ctx, 1)
	if err != nil {
		return false, err
	}
	if len(runs) == 0 {
		return false, nil
	}
	if !strings.HasSuffix(runs[0].EngineVersion, " store/"+ir.StoreVersion) {
		slog.Info("ignoring state of another store version", "previous", runs[0].EngineVersion, "current", versionTag)
		return true, nil
	}
	return false, nil
}

// objectRefs lists every object of the current site that can be a
// dependent or a dependency.
func (c *Compiler) objectRefs() []ir.Reference {
	var refs []ir.Reference
	for _, it := range c.site.Items() {
		refs = append(refs, it.Reference())
	}
	for _, l := range c.site.Layouts() {
		refs = append(refs, l.Reference())
	}
	return refs
}

func (c *Compiler) calculateChecksums(context.Context) error {
	sums, err := checksum.Compute(c.site, c.opts.Rules.CodeSnippets())
	if err != nil {
		return err
	}
	c.checksums.SetCurrent(sums)
	c.sequences.SetCurrent(c.calc.All())
	return nil
}

// determineOutdatedness fills the outdatedness store. An item is compiled
// as a whole: when one rep is outdated, so are its siblings. Reps left in
// the store by an interrupted run stay outdated.
func (c *Compiler) determineOutdatedness(context.Context) error {
	var snippets []ir.Reference
	for _, sn := range c.opts.Rules.CodeSnippets() {
		snippets = append(snippets, ir.CodeSnippetRef(sn.Name))
	}
	c.checker = outdated.NewChecker(outdated.Options{
		Site:       c.site,
		Reps:       c.reps,
		Checksums:  c.checksums,
		Sequences:  c.sequences,
		Deps:       c.deps,
		Snippets:   snippets,
		Sink:       c.sink,
		FileExists: c.opts.FileExists,
	})

	live := map[ir.Reference]bool{}
	for _, rep := range c.reps.All() {
		live[rep.Reference()] = true
	}
	for _, ref := range c.outdated.All() {
		if !live[ref] {
			c.outdated.Remove(ref)
		}
	}

	outdatedItems := map[ir.Identifier]bool{}
	for _, rep := range c.reps.All() {
		ref := rep.Reference()
		if reason, ok := c.checker.ReasonFor(rep); ok {
			c.report.Outdated[ref] = reason
			c.outdated.Add(ref)
			slog.Debug("rep outdated", "rep", ref, "reason", reason.String())
		}
		if c.outdated.Contains(ref) {
			outdatedItems[rep.Item().Identifier()] = true
		}
	}
	for id := range outdatedItems {
		for _, rep := range c.reps.ForItem(id) {
			c.outdated.Add(rep.Reference())
		}
	}
	for _, l := range c.site.Layouts() {
		if reason, ok := c.checker.LayoutReason(l); ok {
			c.report.OutdatedLayouts[l.Reference()] = reason
			slog.Debug("layout outdated", "layout", l.Reference(), "reason", reason.String())
		}
	}
	slog.Info("outdatedness determined",
		"outdated_reps", c.outdated.Len(),
		"reps", c.reps.Len(),
		"outdated_layouts", len(c.report.OutdatedLayouts))
	return nil
}

// forgetOutdatedDependencies drops the recorded dependencies of items about
// to be recompiled; compilation records them again.
func (c *Compiler) forgetOutdatedDependencies(context.Context) error {
	forgotten := map[ir.Reference]bool{}
	for _, ref := range c.outdated.All() {
		item := ir.ItemRef(ref.Identifier())
		if !forgotten[item] {
			c.deps.Forget(item)
			forgotten[item] = true
		}
	}
	return nil
}

// storePreCompilationState persists what the next run compares against.
// The outdated set is saved too, so an interrupted compilation is resumed.
func (c *Compiler) storePreCompilationState(ctx context.Context) error {
	return c.db.SavePreCompilationState(ctx, store.PreCompilationState{
		Checksums:       c.checksums.CurrentAll(),
		ActionSequences: c.sequences.CurrentAll(),
		Outdated:        c.outdated.All(),
	})
}

func (c *Compiler) prune(ctx context.Context) error {
	keep := c.outputPaths()
	current := map[string]bool{}
	for _, p := range keep {
		current[p] = true
	}
	for _, ref := range slices.Sorted(maps.Keys(c.prevOutputs)) {
		for _, p := range c.prevOutputs[ref] {
			if !current[p] {
				c.report.Stale = append(c.report.Stale, p)
			}
		}
	}

	if !c.opts.AutoPrune || c.opts.Pruner == nil {
		return nil
	}
	removed, err := c.opts.Pruner.Prune(ctx, keep)
	if err != nil {
		return err
	}
	c.report.Pruned = removed
	return nil
}

func (c *Compiler) outputPaths() []string {
	var out []string
	for _, rep := range c.reps.All() {
		out = append(out, rep.AllRawPaths()...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (c *Compiler) compileReps(ctx context.Context) error {
	exec := engine.NewExecutor(engine.Options{
		Site:        c.site,
		Reps:        c.reps,
		Calculator:  c.calc,
		Filters:     c.opts.Filters,
		Content:     c.content,
		Deps:        c.deps,
		Outdated:    c.outdated,
		Cache:       c.cache,
		Fingerprint: c.fingerprint,
		Writer:      c.opts.Writer,
		Sink:        c.sink,
		TmpDir:      filepath.Join(c.opts.TmpDir, FilterOutputDir),
	})
	res, err := exec.Run(ctx, c.reps.All())
	c.report.Compiled = res.Compiled
	c.report.Cached = res.Cached
	c.report.Written = res.Written
	slog.Info("reps compiled",
		"compiled", len(res.Compiled),
		"cached", len(res.Cached),
		"written", len(res.Written))
	return err
}

// fingerprint keys a rep's cache entry on its item and action sequence.
func (c *Compiler) fingerprint(rep *site.ItemRep) string {
	item, ok := c.checksums.Current(rep.Item().Reference())
	if !ok {
		return ""
	}
	seq, ok := c.sequences.Current(rep.Reference())
	if !ok {
		return ""
	}
	seqSum, err := seq.Checksum()
	if err != nil {
		return ""
	}
	return ir.CacheFingerprint(item.Full, seqSum)
}

// storePostCompilationState persists the cache first: the stored outdated
// set shrinks only once the entries that replace it are on disk.
func (c *Compiler) storePostCompilationState(ctx context.Context) error {
	paths := map[ir.Reference][]string{}
	live := make([]ir.Reference, 0, c.reps.Len())
	for _, rep := range c.reps.All() {
		live = append(live, rep.Reference())
		if ps := rep.AllRawPaths(); len(ps) > 0 {
			paths[rep.Reference()] = ps
		}
	}

	written, err := c.cache.Persist(live)
	if err != nil {
		return err
	}
	for _, ref := range written {
		c.sink.CacheWritten(string(ref))
	}

	return c.db.SavePostCompilationState(ctx, store.PostCompilationState{
		Dependencies: c.deps.Records(),
		Outdated:     c.outdated.All(),
		OutputPaths:  paths,
	})
}

func (c *Compiler) postprocess(ctx context.Context) error {
	view := &site.ViewContext{
		Site:    c.site,
		Reps:    c.reps,
		Tracker: deps.Null{},
		Content: storeSource{content: c.content},
	}
	return c.opts.Rules.Postprocess(ctx, view)
}
