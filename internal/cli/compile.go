package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/querify/internal/compiler"
	"github.com/roach88/querify/internal/queryir"
	"github.com/roach88/querify/internal/render"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledQuery holds the renderings of one named query.
type CompiledQuery struct {
	Name      string         `json:"name"`
	Statement string         `json:"statement"`
	Outputs   []RenderOutput `json:"outputs"`
}

// CompilationResult holds every compiled query.
type CompilationResult struct {
	Queries []CompiledQuery `json:"queries"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <queries-dir>",
		Short: "Compile CUE query definitions for their targets",
		Long: `Compile the named queries in a CUE package and render each one for
its targets.

Queries live under the top-level "query" struct and are validated against
the #Query schema. A query without "targets" is rendered for every target
its statement supports.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, queriesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := formatter.Logger()

	// Use shared loader with collect-all mode
	loadResult, loadErrors := LoadQueries(queriesDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, queriesDir)

	result := &CompilationResult{Queries: make([]CompiledQuery, 0, len(loadResult.Queries))}
	errs := loadErrors
	for _, q := range loadResult.Queries {
		formatter.VerboseLog("Compiling query: %s", q.Name)
		compiled := compileQuery(q)
		for _, out := range compiled.Outputs {
			if out.Error != nil {
				logger.Debug("render failed", "query", q.Name, "target", out.Target, "code", out.Error.Code)
				errs = append(errs, &LoadError{
					Code:    out.Error.Code,
					Message: fmt.Sprintf("query.%s: %s: %s", q.Name, out.Target, out.Error.Message),
				})
			}
		}
		result.Queries = append(result.Queries, compiled)
	}

	// Handle compilation errors
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}
	logger.Info("queries compiled", "dir", queriesDir, "queries", len(result.Queries))

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// compileQuery renders q for every one of its targets.
func compileQuery(q *compiler.Query) CompiledQuery {
	compiled := CompiledQuery{
		Name:      q.Name,
		Statement: statementName(q.Statement),
		Outputs:   make([]RenderOutput, 0, len(q.Targets)),
	}
	for _, target := range q.Targets {
		compiled.Outputs = append(compiled.Outputs, renderOutput(target, func() (string, error) {
			return render.StatementText(q.Statement, target)
		}))
	}
	return compiled
}

func statementName(stmt queryir.Statement) string {
	switch stmt.(type) {
	case *queryir.Select:
		return "select"
	case *queryir.ShowTagKeys:
		return "show_tag_keys"
	case *queryir.ShowColumns:
		return "show_columns"
	default:
		return fmt.Sprintf("%T", stmt)
	}
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d query(s)\n\n", len(result.Queries))

	for _, q := range result.Queries {
		fmt.Fprintf(formatter.Writer, "%s (%s):\n", q.Name, q.Statement)
		for _, out := range q.Outputs {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", out.Target, out.Text)
		}
		fmt.Fprintln(formatter.Writer)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote compiled queries to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		// JSON format - use CLIResponse with first error
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeResultToFile writes the compilation result to a file as indented JSON.
func writeResultToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling queries: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
