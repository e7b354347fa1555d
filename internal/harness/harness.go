package harness

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/folio/internal/compiler"
	"github.com/roach88/folio/internal/events"
	"github.com/roach88/folio/internal/filters"
	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/pipeline"
	"github.com/roach88/folio/internal/rules"
	"github.com/roach88/folio/internal/testutil"
	"github.com/roach88/folio/internal/writer"
)

// Harness holds the state a scenario's runs share: the site, the rules
// and the output and temp directories.
type Harness struct {
	site    *testutil.MemSite
	rules   *rules.Collection
	filters *filters.Registry
	ids     *testutil.RunIDs
	clock   *testutil.Clock
	outDir  string
	tmpDir  string
	prune   bool
}

// Run executes every run of a scenario under dir, which should be empty.
// An error is returned when the scenario cannot be set up; expectation
// and assertion failures are reported in the result.
func Run(ctx context.Context, scenario *Scenario, dir string) (*Result, error) {
	reg, err := filters.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to register filters: %w", err)
	}
	h := &Harness{
		site:    testutil.NewMemSite(),
		filters: reg,
		ids:     testutil.NewRunIDs(""),
		clock:   testutil.NewDefaultClock(),
		outDir:  filepath.Join(dir, "output"),
		tmpDir:  filepath.Join(dir, "tmp"),
		prune:   scenario.AutoPrune,
	}
	if err := os.MkdirAll(h.outDir, 0o755); err != nil {
		return nil, err
	}
	if err := h.setRules(scenario.Rules); err != nil {
		return nil, err
	}
	if err := h.apply(&Changes{
		Items:   scenario.Site.Items,
		Layouts: scenario.Site.Layouts,
		Config:  scenario.Site.Config,
	}); err != nil {
		return nil, fmt.Errorf("failed to set up site: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Runs {
		if step.Changes != nil {
			if err := h.apply(step.Changes); err != nil {
				return nil, fmt.Errorf("runs[%d] %s: failed to apply changes: %w", i, step.Name, err)
			}
		}
		run, err := h.compile(ctx, step.Name)
		if err != nil {
			return nil, fmt.Errorf("runs[%d] %s: %w", i, step.Name, err)
		}
		result.Runs = append(result.Runs, run)

		for _, msg := range checkExpect(run, step.Expect) {
			result.AddError(fmt.Sprintf("%s: %s", step.Name, msg))
		}
		for _, msg := range EvaluateAssertions(run.Events, step.Assertions) {
			result.AddError(fmt.Sprintf("%s: %s", step.Name, msg))
		}
	}
	return result, nil
}

func (h *Harness) setRules(src string) error {
	c, err := compiler.CompileRulesSource("rules.cue", []byte(src))
	if err != nil {
		return fmt.Errorf("failed to compile rules: %w", err)
	}
	h.rules = c
	return nil
}

// apply edits the in-memory site and the output directory.
func (h *Harness) apply(ch *Changes) error {
	for _, id := range slices.Sorted(maps.Keys(ch.Items)) {
		attrs, err := ir.ObjectFromMap(orEmpty(ch.Items[id].Attributes))
		if err != nil {
			return fmt.Errorf("item %s: %w", id, err)
		}
		h.site.SetItem(ir.Identifier(id), ch.Items[id].Content, attrs)
	}
	for _, id := range ch.DeleteItems {
		h.site.DeleteItem(ir.Identifier(id))
	}
	for _, id := range slices.Sorted(maps.Keys(ch.Layouts)) {
		attrs, err := ir.ObjectFromMap(orEmpty(ch.Layouts[id].Attributes))
		if err != nil {
			return fmt.Errorf("layout %s: %w", id, err)
		}
		h.site.SetLayout(ir.Identifier(id), ch.Layouts[id].Content, attrs)
	}
	for _, id := range ch.DeleteLayouts {
		h.site.DeleteLayout(ir.Identifier(id))
	}
	for _, key := range slices.Sorted(maps.Keys(ch.Config)) {
		v, err := ir.FromAny(ch.Config[key])
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		h.site.SetConfig(key, v)
	}
	if ch.Rules != "" {
		if err := h.setRules(ch.Rules); err != nil {
			return err
		}
	}
	for _, p := range ch.DeleteOutputs {
		if err := os.Remove(h.outputPath(p)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (h *Harness) outputPath(p string) string {
	return filepath.Join(h.outDir, filepath.FromSlash(strings.TrimPrefix(p, "/")))
}

// compile runs one full compilation and records what it did. A failing
// compilation is recorded in the run result, not returned.
func (h *Harness) compile(ctx context.Context, name string) (RunResult, error) {
	w, err := writer.New(h.outDir)
	if err != nil {
		return RunResult{}, err
	}
	rec := &events.Recorder{}
	c := pipeline.New(pipeline.Options{
		Loader:    h.site,
		Rules:     h.rules,
		Filters:   h.filters,
		OutputDir: h.outDir,
		TmpDir:    h.tmpDir,
		Writer:    w,
		Pruner:    writer.NewPruner(h.outDir, nil, false),
		AutoPrune: h.prune,
		Sink:      rec,
		IDs:       h.ids,
		Now:       h.clock.Now,
	})

	report, runErr := c.Run(ctx)
	slog.Debug("scenario run finished", "run", name, "run_id", report.RunID, "error", runErr)

	run := RunResult{
		Name:     name,
		Events:   traceEvents(rec.Events()),
		Compiled: refStrings(report.Compiled),
		Cached:   refStrings(report.Cached),
		Outdated: map[string]string{},
	}
	for ref, reason := range report.Outdated {
		run.Outdated[string(ref)] = reason.String()
	}
	if runErr != nil {
		run.Err = runErr.Error()
	}
	run.Outputs, err = readOutputs(h.outDir)
	if err != nil {
		return RunResult{}, err
	}
	return run, nil
}

// traceEvents drops stage start and finish lines; they are identical for
// every successful run.
func traceEvents(all []string) []string {
	out := []string{}
	for _, e := range all {
		if strings.HasPrefix(e, "stage_started ") || strings.HasPrefix(e, "stage_finished ") {
			continue
		}
		out = append(out, e)
	}
	return out
}

func refStrings(refs []ir.Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = string(r)
	}
	return out
}

func readOutputs(root string) (map[string]string, error) {
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out["/"+filepath.ToSlash(rel)] = string(data)
		return nil
	})
	return out, err
}

// checkExpect compares a run with its expectations.
func checkExpect(run RunResult, exp *Expect) []string {
	var errs []string
	if exp == nil || exp.Error == "" {
		if run.Err != "" {
			errs = append(errs, fmt.Sprintf("unexpected error: %s", run.Err))
		}
	}
	if exp == nil {
		return errs
	}

	if exp.Error != "" && !strings.Contains(run.Err, exp.Error) {
		errs = append(errs, fmt.Sprintf("expected error containing %q, got %q", exp.Error, run.Err))
	}
	if exp.Compiled != nil {
		if diff := cmp.Diff(sorted(*exp.Compiled), sorted(run.Compiled)); diff != "" {
			errs = append(errs, fmt.Sprintf("compiled reps mismatch (-want +got):\n%s", diff))
		}
	}
	if exp.Cached != nil {
		if diff := cmp.Diff(sorted(*exp.Cached), sorted(run.Cached)); diff != "" {
			errs = append(errs, fmt.Sprintf("cached reps mismatch (-want +got):\n%s", diff))
		}
	}
	if exp.Outdated != nil {
		if diff := cmp.Diff(exp.Outdated, run.Outdated); diff != "" {
			errs = append(errs, fmt.Sprintf("outdated reps mismatch (-want +got):\n%s", diff))
		}
	}
	for _, p := range slices.Sorted(maps.Keys(exp.Outputs)) {
		got, ok := run.Outputs[p]
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("output %s: not written", p))
		case got != exp.Outputs[p]:
			errs = append(errs, fmt.Sprintf("output %s: expected %q, got %q", p, exp.Outputs[p], got))
		}
	}
	for _, p := range exp.Missing {
		if _, ok := run.Outputs[p]; ok {
			errs = append(errs, fmt.Sprintf("output %s: expected missing", p))
		}
	}
	return errs
}

func sorted(s []string) []string {
	out := slices.Clone(s)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return out
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
