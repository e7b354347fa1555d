package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/folio/internal/compiler"
	"github.com/roach88/folio/internal/datasource"
	"github.com/roach88/folio/internal/filters"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate folio.yaml and the rules file without compiling",
		Long: `Validate the site configuration and the CUE rules file.

Performs syntax checking, schema validation and checks that every filter
named by a rule is registered. Nothing is read from the content directory.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts)
		},
	}
}

func runValidate(cmd *cobra.Command, opts *RootOptions) error {
	formatter := opts.formatter(cmd)

	cfg, err := datasource.LoadConfig(opts.Dir)
	if err != nil {
		return formatter.Fail("invalid config", &LoadError{Code: ErrCodeConfig, Message: "failed to load config", Err: err})
	}
	formatter.VerboseLog("Validating %s", cfg.RulesPath())

	reg, err := filters.Default()
	if err != nil {
		return formatter.Fail("validation failed", err)
	}
	verrs, err := compiler.ValidateRulesFile(cfg.RulesPath(), reg.Names())
	if err != nil {
		var ce *compiler.CompileError
		if !errors.As(err, &ce) {
			return formatter.Fail("validation failed", &LoadError{Code: ErrCodeRulesCUE, Message: "failed to read rules", Err: err})
		}
		verrs = []compiler.ValidationError{{
			Field:   ce.Field,
			Message: ce.Message,
			Code:    ErrCodeRulesCUE,
			Line:    ce.Pos.Line(),
		}}
	}

	if len(verrs) > 0 {
		return outputValidationErrors(formatter, verrs)
	}
	return outputValidateSuccess(formatter)
}

func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	ok, _ := formatter.Marks()
	fmt.Fprintf(formatter.Writer, "%s Site is valid\n", ok)
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		_ = formatter.Success(ValidationResult{Valid: false, Errors: errs})
	} else {
		_, bad := formatter.Marks()
		fmt.Fprintf(formatter.Writer, "%s Validation failed with %d error(s):\n\n", bad, len(errs))
		for _, e := range errs {
			fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
