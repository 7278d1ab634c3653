package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nodetree/internal/service"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Parent string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a node",
		Long: `Create a node named <name>, as a root or under an existing parent path.

Example:
  nodetree create AlphaPC
  nodetree create Processing --parent /AlphaPC`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(opts.RootOptions, cmd, func(ctx context.Context, svc *service.Service, out *OutputFormatter) error {
				node, err := svc.CreateNode(ctx, args[0], opts.Parent)
				if err != nil {
					return out.failOperation(err)
				}
				if out.Format == "json" {
					return out.Success(node)
				}
				fmt.Fprintf(out.Writer, "created %s (id %s)\n", node.Path, node.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Parent, "parent", "p", "", "parent node path (root when empty)")

	return cmd
}
