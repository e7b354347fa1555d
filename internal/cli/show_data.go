package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/folio/internal/pipeline"
)

// ShowData is the outdatedness and dependency report of a site.
type ShowData struct {
	Reps    []RepData    `json:"reps"`
	Layouts []LayoutData `json:"layouts"`
}

// RepData describes one item rep.
type RepData struct {
	Rep          string           `json:"rep"`
	Outdated     bool             `json:"outdated"`
	Reason       string           `json:"reason,omitempty"`
	Paths        []string         `json:"paths,omitempty"`
	Dependencies []DependencyData `json:"dependencies,omitempty"`
}

// DependencyData is one edge of the dependency graph.
type DependencyData struct {
	On      string `json:"on"`
	Props   string `json:"props"`
	Removed bool   `json:"removed,omitempty"`
}

// LayoutData describes one layout.
type LayoutData struct {
	Layout   string   `json:"layout"`
	Outdated bool     `json:"outdated"`
	Reasons  []string `json:"reasons,omitempty"`
}

// NewShowDataCommand creates the show-data command.
func NewShowDataCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show-data",
		Short: "Show outdatedness and dependencies without compiling",
		Long: `Run the compilation up to outdatedness checking and print, for every
item rep, whether it would be recompiled and why, along with the
dependencies recorded by the previous run. Nothing is written.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowData(cmd, rootOpts)
		},
	}
}

func runShowData(cmd *cobra.Command, opts *RootOptions) error {
	formatter := opts.formatter(cmd)

	s, err := loadSite(opts.Dir)
	if err != nil {
		return formatter.Fail("loading site failed", err)
	}
	sink, m := newSink(opts.MetricsFile)
	popts, err := s.compilerOptions(sink)
	if err != nil {
		return formatter.Fail("loading site failed", err)
	}

	c := pipeline.New(popts)
	var data ShowData
	err = runUntil(cmd.Context(), c, pipeline.StageDetermineOutdatedness, func() error {
		data = collectShowData(c)
		return nil
	})
	writeMetrics(formatter, m, opts.MetricsFile)
	if err != nil {
		return formatter.Fail("show-data failed", err)
	}
	return outputShowData(formatter, data)
}

func collectShowData(c *pipeline.Compiler) ShowData {
	checker := c.Checker()
	graph := c.Dependencies()
	outdated := c.Report().Outdated

	data := ShowData{Reps: []RepData{}, Layouts: []LayoutData{}}
	for _, rep := range c.Reps().All() {
		rd := RepData{
			Rep:      string(rep.Reference()),
			Outdated: c.IsOutdated(rep.Reference()),
			Paths:    rep.AllRawPaths(),
		}
		if reason, ok := outdated[rep.Reference()]; ok {
			rd.Reason = reason.String()
		}
		for _, d := range graph.DependenciesOf(rep.Item().Reference()) {
			rd.Dependencies = append(rd.Dependencies, DependencyData{
				On:      string(d.Dependency),
				Props:   d.Props.String(),
				Removed: d.Removed,
			})
		}
		data.Reps = append(data.Reps, rd)
	}
	for _, l := range c.Site().Layouts() {
		status := checker.LayoutStatus(l)
		ld := LayoutData{Layout: string(l.Reference()), Outdated: status.Outdated()}
		for _, r := range status.Reasons {
			ld.Reasons = append(ld.Reasons, r.String())
		}
		data.Layouts = append(data.Layouts, ld)
	}
	return data
}

func outputShowData(formatter *OutputFormatter, data ShowData) error {
	if formatter.Format == "json" {
		return formatter.Success(data)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "Item reps:")
	for _, r := range data.Reps {
		fmt.Fprintf(w, "\n  %s\n", r.Rep)
		if r.Outdated {
			fmt.Fprintf(w, "    outdated: yes (%s)\n", reasonOrDefault(r.Reason))
		} else {
			fmt.Fprintln(w, "    outdated: no")
		}
		if len(r.Paths) > 0 {
			fmt.Fprintf(w, "    paths: %s\n", strings.Join(r.Paths, ", "))
		}
		if len(r.Dependencies) == 0 {
			fmt.Fprintln(w, "    dependencies: (none)")
			continue
		}
		fmt.Fprintln(w, "    dependencies:")
		for _, d := range r.Dependencies {
			suffix := ""
			if d.Removed {
				suffix = " [removed]"
			}
			fmt.Fprintf(w, "      %s (%s)%s\n", d.On, d.Props, suffix)
		}
	}

	if len(data.Layouts) > 0 {
		fmt.Fprintln(w, "\nLayouts:")
		for _, l := range data.Layouts {
			if l.Outdated {
				fmt.Fprintf(w, "  %s: outdated (%s)\n", l.Layout, strings.Join(l.Reasons, "; "))
			} else {
				fmt.Fprintf(w, "  %s: up to date\n", l.Layout)
			}
		}
	}
	return nil
}
