package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querify/internal/ir"
	"github.com/roach88/querify/internal/queryir"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	File string // read the filter from a file
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NormalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize [filter]",
		Short: "Print the normalized form of a filter",
		Long: `Normalize a filter and print it as canonical JSON.

Every field maps to explicit operator-value pairs, lists become an "or" of equalities,
"/pattern/" strings become "regex", and sibling fields are wrapped in "and".
Input is read the same way as for render.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the filter from a file")

	return cmd
}

func runNormalize(opts *NormalizeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	filter, err := readFilter(args, opts.File, cmd.InOrStdin())
	if err != nil {
		return outputCommandError(formatter, ErrCodeBadInput, err.Error())
	}

	normalized, err := queryir.Normalize(filter)
	if err != nil {
		return outputFailure(formatter, codeForQueryError(err), err.Error())
	}
	formatter.Logger().Debug("filter normalized", "keys", len(normalized))

	if formatter.Format == "json" {
		return formatter.Success(normalized)
	}

	data, err := ir.MarshalCanonical(normalized)
	if err != nil {
		return fmt.Errorf("encoding normalized filter: %w", err)
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}
