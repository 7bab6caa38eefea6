package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/glyph/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Errors []schema.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check card documents and the acceptance ledger",
		Long: `Check every raw card document against the card schema, then look for
duplicate ids, ids listed in more than one ledger set, and ledger entries
that name no active or archived card.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				return runValidate(cmd, e)
			})
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, e *env) error {
	v, err := schema.NewValidator()
	if err != nil {
		return e.out.Fail("load card schema", err)
	}
	problems, err := e.board.Validate(cmd.Context(), v)
	if err != nil {
		return e.out.Fail("validate", err)
	}
	e.out.VerboseLog("Validated workspace %s (%s backend)", e.ws.Root, e.ws.Config.Backend)

	if len(problems) > 0 {
		return outputValidationErrors(e.out, problems)
	}
	return e.out.Success(ValidationResult{Valid: true}, func(w io.Writer, s *Styler) {
		fmt.Fprintf(w, "%s All cards valid\n", s.OK("✓"))
	})
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []schema.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    ErrCodeValidation,
				Message: fmt.Sprintf("%d problem(s) found", len(errs)),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	s := formatter.styler()
	fmt.Fprintf(formatter.Writer, "%s Validation failed\n\n", s.Error("✗"))
	for _, e := range errs {
		fmt.Fprintln(formatter.Writer, e.Source)
		if e.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", e.Code, e.Message)
		}
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
