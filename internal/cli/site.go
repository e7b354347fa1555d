package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/folio/internal/compiler"
	"github.com/roach88/folio/internal/datasource"
	"github.com/roach88/folio/internal/engine"
	"github.com/roach88/folio/internal/events"
	"github.com/roach88/folio/internal/filters"
	"github.com/roach88/folio/internal/metrics"
	"github.com/roach88/folio/internal/pipeline"
	"github.com/roach88/folio/internal/rules"
	"github.com/roach88/folio/internal/writer"
)

// Error codes reported by commands.
const (
	ErrCodeGeneric    = "E001"
	ErrCodeConfig     = "E002"
	ErrCodeRulesCUE   = "E003"
	ErrCodeRulesValid = "E004"
	ErrCodeLoad       = "E005"
	ErrCodeRule       = "E006"
	ErrCodeCompile    = "E007"
	ErrCodeCycle      = "E008"
)

// LoadError reports a failure to set up a site before compiling it.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// loadedSite is everything a command needs to build a compiler.
type loadedSite struct {
	Config  datasource.Config
	Rules   *rules.Collection
	Filters *filters.Registry
}

// loadSite reads folio.yaml and the rules file under root.
func loadSite(root string) (*loadedSite, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: "site directory not found", Err: err}
	}
	cfg, err := datasource.LoadConfig(root)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: "failed to load config", Err: err}
	}
	c, err := loadRules(cfg.RulesPath())
	if err != nil {
		return nil, err
	}
	reg, err := filters.Default()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "failed to register filters", Err: err}
	}
	return &loadedSite{Config: cfg, Rules: c, Filters: reg}, nil
}

func loadRules(path string) (*rules.Collection, error) {
	c, err := compiler.LoadRulesFile(path)
	if err == nil {
		return c, nil
	}
	var verrs *compiler.ValidationErrors
	if errors.As(err, &verrs) {
		return nil, &LoadError{Code: ErrCodeRulesValid, Message: "invalid rules", Err: err}
	}
	return nil, &LoadError{Code: ErrCodeRulesCUE, Message: "failed to load rules", Err: err}
}

// compilerOptions wires the filesystem data source, writer and pruner of
// a site into pipeline options.
func (s *loadedSite) compilerOptions(sink events.Sink) (pipeline.Options, error) {
	w, err := writer.New(s.Config.OutputPath())
	if err != nil {
		return pipeline.Options{}, &LoadError{Code: ErrCodeGeneric, Message: "failed to prepare output dir", Err: err}
	}
	return pipeline.Options{
		Loader:    datasource.NewFS(s.Config),
		Rules:     s.Rules,
		Filters:   s.Filters,
		OutputDir: s.Config.OutputPath(),
		TmpDir:    s.Config.TmpPath(),
		Writer:    w,
		Pruner:    writer.NewPruner(s.Config.OutputPath(), s.Config.Prune.Exclude, false),
		AutoPrune: s.Config.Prune.AutoPrune,
		Sink:      sink,
	}, nil
}

// newSink returns the event sink for a command: slog always, plus a
// metrics sink when metricsFile is set.
func newSink(metricsFile string) (events.Sink, *metrics.Sink) {
	if metricsFile == "" {
		return events.Slog{}, nil
	}
	m := metrics.New()
	return events.Multi{events.Slog{}, m}, m
}

// classify maps an error to an exit code and an error code.
func classify(err error) (int, string) {
	var le *LoadError
	var fmErr *datasource.FrontMatterError
	switch {
	case errors.As(err, &le):
		if le.Code == ErrCodeRulesCUE || le.Code == ErrCodeRulesValid {
			return ExitFailure, le.Code
		}
		return ExitCommandError, le.Code
	case engine.IsCycleError(err):
		return ExitFailure, ErrCodeCycle
	case engine.IsCompilationError(err):
		return ExitFailure, ErrCodeCompile
	case rules.IsRuleError(err, ""):
		return ExitFailure, ErrCodeRule
	case errors.As(err, &fmErr):
		return ExitFailure, ErrCodeLoad
	case errors.Is(err, fs.ErrNotExist):
		return ExitCommandError, ErrCodeLoad
	default:
		return ExitFailure, ErrCodeGeneric
	}
}
