package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/folio/internal/metrics"
	"github.com/roach88/folio/internal/pipeline"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	OutputDir string
	AutoPrune bool
}

// CompileResult is the outcome of a compilation.
type CompileResult struct {
	RunID    string            `json:"run_id"`
	Compiled []string          `json:"compiled"`
	Cached   []string          `json:"cached"`
	Written  []string          `json:"written"`
	Pruned   []string          `json:"pruned,omitempty"`
	Stale    []string          `json:"stale,omitempty"`
	Outdated map[string]string `json:"outdated"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the site",
		Long: `Compile every outdated item rep of the site and write its snapshots
to the output directory.

Reps whose content, attributes, rules and dependencies are unchanged since
the previous run are restored from the compiled content cache.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "output directory (overrides folio.yaml)")
	cmd.Flags().BoolVar(&opts.AutoPrune, "auto-prune", false, "remove stale files from the output directory")

	return cmd
}

func runCompile(cmd *cobra.Command, opts *CompileOptions) error {
	formatter := opts.formatter(cmd)

	s, err := loadSite(opts.Dir)
	if err != nil {
		return formatter.Fail("loading site failed", err)
	}
	if opts.OutputDir != "" {
		s.Config.OutputDir = opts.OutputDir
	}
	if cmd.Flags().Changed("auto-prune") {
		s.Config.Prune.AutoPrune = opts.AutoPrune
	}
	formatter.VerboseLog("Output directory: %s", s.Config.OutputPath())

	sink, m := newSink(opts.MetricsFile)
	popts, err := s.compilerOptions(sink)
	if err != nil {
		return formatter.Fail("loading site failed", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.New(popts).Run(ctx)
	formatter.RunID = report.RunID
	writeMetrics(formatter, m, opts.MetricsFile)
	if err != nil {
		return formatter.Fail("compilation failed", err)
	}

	result := newCompileResult(report)
	return outputCompileSuccess(formatter, result)
}

func newCompileResult(report pipeline.Report) CompileResult {
	r := CompileResult{
		RunID:    report.RunID,
		Compiled: make([]string, 0, len(report.Compiled)),
		Cached:   make([]string, 0, len(report.Cached)),
		Written:  slices.Clone(report.Written),
		Pruned:   report.Pruned,
		Stale:    report.Stale,
		Outdated: make(map[string]string, len(report.Outdated)),
	}
	for _, ref := range report.Compiled {
		r.Compiled = append(r.Compiled, string(ref))
	}
	for _, ref := range report.Cached {
		r.Cached = append(r.Cached, string(ref))
	}
	for ref, reason := range report.Outdated {
		r.Outdated[string(ref)] = reason.String()
	}
	if r.Written == nil {
		r.Written = []string{}
	}
	return r
}

func outputCompileSuccess(formatter *OutputFormatter, result CompileResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	ok, _ := formatter.Marks()
	fmt.Fprintf(formatter.Writer, "%s Compiled %d rep(s), %d from cache, %d file(s) written\n",
		ok, len(result.Compiled), len(result.Cached), len(result.Written))
	for _, ref := range result.Compiled {
		formatter.VerboseLog("  compiled %s (%s)", ref, reasonOrDefault(result.Outdated[ref]))
	}
	for _, p := range result.Written {
		formatter.VerboseLog("  wrote %s", p)
	}
	for _, p := range result.Pruned {
		fmt.Fprintf(formatter.Writer, "  pruned %s\n", p)
	}
	if len(result.Stale) > 0 && len(result.Pruned) == 0 {
		fmt.Fprintf(formatter.Writer, "%d stale file(s) in output; run `folio prune` to remove them\n", len(result.Stale))
	}
	return nil
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "outdated"
	}
	return reason
}

func writeMetrics(formatter *OutputFormatter, m *metrics.Sink, path string) {
	if m == nil {
		return
	}
	if err := m.WriteFile(path); err != nil {
		slog.Warn("metrics not written", "path", path, "error", err)
		return
	}
	formatter.VerboseLog("Metrics written to %s", path)
}

// runUntil drives a compiler up to stage and closes it.
func runUntil(ctx context.Context, c *pipeline.Compiler, stage pipeline.Stage, fn func() error) error {
	if err := c.RunUntil(ctx, stage); err != nil {
		return err
	}
	fnErr := fn()
	if err := c.Close(ctx); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}
