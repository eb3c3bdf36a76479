package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/querify/internal/queryir"
	"github.com/roach88/querify/internal/sqlcheck"
)

// ValidationIssue is one problem found in a query definition.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Queries int               `json:"queries"`
	Checked int               `json:"sql_checked"`
	Errors  []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <queries-dir>",
		Short: "Validate query definitions without printing renderings",
		Long: `Validate CUE query definitions without printing their renderings.

Stops at the first definition that fails the schema or the query builder.
Every select targeting mysql is then prepared against an in-memory SQLite
database to catch SQL syntax errors. Nothing is executed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, queriesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := formatter.Logger()

	// Use shared loader with fail-fast mode for validation
	loadResult, loadErrors := LoadQueries(queriesDir, LoadModeFailFast)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, queriesDir)

	result := ValidationResult{Queries: len(loadResult.Queries)}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, issueOf(err))
	}

	for _, q := range loadResult.Queries {
		if !slices.Contains(q.Targets, queryir.TargetMySQL) {
			continue
		}
		formatter.VerboseLog("Checking SQL for query: %s", q.Name)
		err := sqlcheck.Check(cmd.Context(), q.Statement)
		switch {
		case errors.Is(err, sqlcheck.ErrNotCheckable):
			logger.Debug("sql check skipped", "query", q.Name)
		case err != nil:
			code := ErrCodeInvalidStatement
			if queryir.IsUnsupported(err) {
				code = ErrCodeRenderUnsupported
			}
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    code,
				Message: fmt.Sprintf("query.%s: %v", q.Name, err),
			})
		default:
			result.Checked++
		}
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}

	result.Valid = true
	return outputValidateSuccess(formatter, result)
}

func issueOf(err error) ValidationIssue {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			issue.Line = loadErr.Pos.Line()
		}
		return issue
	}
	return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All queries valid (%d query(s), %d SQL checked)\n", result.Queries, result.Checked)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Validation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
