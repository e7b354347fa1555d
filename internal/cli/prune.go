package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/folio/internal/pipeline"
	"github.com/roach88/folio/internal/writer"
)

// PruneOptions holds flags for the prune command.
type PruneOptions struct {
	*RootOptions
	DryRun bool
}

// PruneResult lists the files removed, or that would be removed.
type PruneResult struct {
	DryRun  bool     `json:"dry_run"`
	Removed []string `json:"removed"`
}

// NewPruneCommand creates the prune command.
func NewPruneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PruneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove output files no item rep produces",
		Long: `Remove every file under the output directory that is not the output
path of some item rep snapshot. Paths matching prune.exclude in folio.yaml
are kept. Nothing is compiled.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "n", false, "list files without removing them")

	return cmd
}

func runPrune(cmd *cobra.Command, opts *PruneOptions) error {
	formatter := opts.formatter(cmd)

	s, err := loadSite(opts.Dir)
	if err != nil {
		return formatter.Fail("loading site failed", err)
	}
	popts, err := s.compilerOptions(nil)
	if err != nil {
		return formatter.Fail("loading site failed", err)
	}
	popts.AutoPrune = false

	c := pipeline.New(popts)
	pruner := writer.NewPruner(s.Config.OutputPath(), s.Config.Prune.Exclude, opts.DryRun)
	var removed []string
	err = runUntil(cmd.Context(), c, pipeline.StageBuildReps, func() error {
		var perr error
		removed, perr = pruner.Prune(cmd.Context(), c.OutputPaths())
		return perr
	})
	if err != nil {
		return formatter.Fail("prune failed", err)
	}
	if removed == nil {
		removed = []string{}
	}

	result := PruneResult{DryRun: opts.DryRun, Removed: removed}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	verb := "Removed"
	if opts.DryRun {
		verb = "Would remove"
	}
	ok, _ := formatter.Marks()
	fmt.Fprintf(formatter.Writer, "%s %s %d file(s)\n", ok, verb, len(removed))
	for _, p := range removed {
		fmt.Fprintf(formatter.Writer, "  %s\n", p)
	}
	return nil
}
