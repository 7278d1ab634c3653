package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/nodetree/internal/service"
)

// NewPropCommand creates the prop command.
func NewPropCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prop <path> <key> <value>",
		Short: "Set a numeric property on a node",
		Long: `Set property <key> on the node at <path>. An existing value for the
same key is overwritten.

Example:
  nodetree prop /AlphaPC/Processing RAM 32000`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return out.fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("value %q is not a number", args[2]), err)
			}

			return withService(rootOpts, cmd, func(ctx context.Context, svc *service.Service, out *OutputFormatter) error {
				prop, err := svc.AddProperty(ctx, args[0], args[1], value)
				if err != nil {
					return out.failOperation(err)
				}
				if out.Format == "json" {
					return out.Success(prop)
				}
				fmt.Fprintf(out.Writer, "set %s %s = %s\n", args[0], prop.Key, formatValue(prop.Value))
				return nil
			})
		},
	}

	return cmd
}
