package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querify/internal/ir"
	"github.com/roach88/querify/internal/queryir"
	"github.com/roach88/querify/internal/render"
	"github.com/roach88/querify/internal/sqlcheck"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Targets []string // targets to render; all when empty
	File    string   // read the filter from a file
	Check   bool     // prepare the MySQL rendering against SQLite
}

// RenderOutput is one target's rendering of a filter or statement.
type RenderOutput struct {
	Target string    `json:"target"`
	Text   string    `json:"text,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// RenderResult holds every rendering of a filter.
type RenderResult struct {
	Outputs []RenderOutput `json:"outputs"`
	Checked bool           `json:"checked,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render [filter]",
		Short: "Render a filter for one or more targets",
		Long: `Build a filter and render it for each target.

The filter is JSON or YAML. It is taken from the argument, from --file,
or from stdin when neither is given (or the argument is "-").

Exit codes:
  0 - Every requested target rendered
  1 - The filter was rejected, a requested target failed, or --check failed
  2 - Command error (unreadable input, unknown target, etc.)

Examples:
  querify render '{"host": "web1", "status": {"gt": 200}}'
  querify render --target mysql --check '{"name": "/^app-/"}'
  querify render --file filter.yaml --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Targets, "target", "t", nil, "target to render (influx|mysql|mongo|pandas), repeatable")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the filter from a file")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "prepare the MySQL rendering against SQLite")

	return cmd
}

func runRender(opts *RenderOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := formatter.Logger()

	targets, err := parseTargets(opts.Targets)
	if err != nil {
		return outputCommandError(formatter, ErrCodeInvalidTarget, err.Error())
	}

	filter, err := readFilter(args, opts.File, cmd.InOrStdin())
	if err != nil {
		return outputCommandError(formatter, ErrCodeBadInput, err.Error())
	}

	builder := queryir.NewBuilder(queryir.DefaultRegistry(), logger)
	expr, err := builder.BuildWhere(filter)
	if err != nil {
		return outputFailure(formatter, codeForQueryError(err), err.Error())
	}
	logger.Debug("filter built", "identifiers", queryir.Identifiers(expr))

	explicit := len(targets) > 0
	if !explicit {
		targets = queryir.Targets
	}

	result := RenderResult{Outputs: make([]RenderOutput, 0, len(targets))}
	var failed, rendered int
	for _, target := range targets {
		out := renderOutput(target, func() (string, error) { return render.ExprText(expr, target) })
		if out.Error != nil {
			logger.Debug("render failed", "target", target, "code", out.Error.Code)
			failed++
		} else {
			rendered++
		}
		result.Outputs = append(result.Outputs, out)
	}

	var checkErr error
	if opts.Check {
		checkErr = sqlcheck.CheckFilter(cmd.Context(), expr)
		result.Checked = checkErr == nil
	}

	if err := outputRenderResult(formatter, result, len(targets) > 1); err != nil {
		return err
	}

	switch {
	case checkErr != nil:
		if formatter.Format != "json" {
			fmt.Fprintf(formatter.Writer, "✗ SQL check failed: %v\n", checkErr)
		}
		return WrapExitError(ExitFailure, "sql check failed", checkErr)
	case explicit && failed > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d target(s) failed to render", failed))
	case rendered == 0:
		return NewExitError(ExitFailure, "no target could render the filter")
	}
	return nil
}

// renderOutput runs fn and records its text or error for target.
func renderOutput(target queryir.Target, fn func() (string, error)) RenderOutput {
	text, err := fn()
	if err != nil {
		return RenderOutput{
			Target: string(target),
			Error: &CLIError{
				Code:    codeForQueryError(err),
				Message: err.Error(),
			},
		}
	}
	return RenderOutput{Target: string(target), Text: text}
}

func outputRenderResult(formatter *OutputFormatter, result RenderResult, labelled bool) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, out := range result.Outputs {
		prefix := ""
		if labelled {
			prefix = out.Target + ": "
		}
		if out.Error != nil {
			fmt.Fprintf(formatter.Writer, "%s✗ [%s] %s\n", prefix, out.Error.Code, out.Error.Message)
			continue
		}
		fmt.Fprintf(formatter.Writer, "%s%s\n", prefix, out.Text)
	}
	if result.Checked {
		fmt.Fprintln(formatter.Writer, "✓ SQL check passed")
	}
	return nil
}

// parseTargets converts target names, which may be comma separated, to targets.
func parseTargets(names []string) ([]queryir.Target, error) {
	var targets []queryir.Target
	for _, name := range names {
		t, err := render.ParseTarget(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// readFilter reads and decodes the filter from args, file or stdin.
// JSON input keeps the distinction between integers and floats; anything
// else is decoded as YAML.
func readFilter(args []string, file string, stdin io.Reader) (any, error) {
	if file != "" && len(args) > 0 {
		return nil, errors.New("give the filter as an argument or with --file, not both")
	}

	var (
		data []byte
		err  error
	)
	switch {
	case file != "":
		data, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading filter file: %w", err)
		}
	case len(args) == 1 && args[0] != "-":
		data = []byte(args[0])
	default:
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.New("empty filter input")
	}
	return decodeFilter(data)
}

func decodeFilter(data []byte) (any, error) {
	if v, err := ir.DecodeJSON(data); err == nil {
		return v, nil
	}
	v, err := ir.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("filter is neither JSON nor YAML: %w", err)
	}
	return v, nil
}

// outputCommandError reports an error in the command's input (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputFailure reports a rejected query (exit code 1).
func outputFailure(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message))
}
