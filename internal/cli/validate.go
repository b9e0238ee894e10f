package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/leadflow/internal/compiler"
)

// ValidationResult holds validation results for a sequence directory.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Sequences []string                   `json:"sequences,omitempty"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
	Warnings  []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <sequences-dir>",
		Short: "Compile and validate sequence definitions",
		Long: `Compile CUE sequence definitions and check the structural rules the
engine relies on: unique step ids, resolvable next references, the
branch/fallback shape of conditional steps, and reachability.

Cycles in the step graph are reported as warnings, not errors: loops
may be intentional and are bounded at runtime by the step quota.

Exit codes:
  0 - All sequences valid
  1 - Validation errors found
  2 - Command error (directory missing, CUE compile failure)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadSequences(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Error())
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := ValidationResult{Valid: true}
	for i := range loaded.Definitions {
		def := &loaded.Definitions[i]
		result.Sequences = append(result.Sequences, def.ID)
		result.Errors = append(result.Errors, compiler.Validate(def)...)
		result.Warnings = append(result.Warnings, compiler.AnalyzeCycles(def)...)
	}
	result.Valid = len(result.Errors) == 0

	if formatter.Format == "json" {
		if !result.Valid {
			if err := formatter.Error(result.Errors[0].Code, result.Errors[0].Message, result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	if !result.Valid {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, verr := range result.Errors {
			fmt.Fprintf(w, "  %s %s: %s\n", verr.Code, verr.Field, verr.Message)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	fmt.Fprintf(w, "✓ %d sequence(s) valid\n", len(result.Sequences))
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  warning: %s: %s\n", warn.SequenceID, warn.Message)
	}
	return nil
}
