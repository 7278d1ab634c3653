package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nodetree/internal/seed"
	"github.com/roach88/nodetree/internal/service"
	"github.com/roach88/nodetree/internal/tree"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed [file]",
		Short: "Load a YAML seed file into the store",
		Long: `Validate a YAML seed file against the seed schema and create its nodes
and properties in document order. Without a file, the built-in AlphaPC
hierarchy is loaded.

Example:
  nodetree seed
  nodetree seed ./inventory.yaml --db ./nodetree.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runSeed(opts *RootOptions, args []string, cmd *cobra.Command) error {
	f := seed.Default()
	if len(args) == 1 {
		loaded, err := seed.Load(args[0])
		if err != nil {
			out := newFormatter(opts, cmd)
			return out.fail(ExitCommandError, ErrCodeSeedInvalid, "invalid seed file", err)
		}
		f = loaded
	}

	return withService(opts, cmd, func(ctx context.Context, svc *service.Service, out *OutputFormatter) error {
		res, err := seed.Apply(ctx, svc, f)
		if err != nil {
			return out.failOperation(err)
		}
		out.VerboseLog("Seeded %d node(s) and %d propert(ies)", res.Nodes, res.Properties)

		trees := make([]tree.NodeTree, 0, len(res.Roots))
		for _, root := range res.Roots {
			t, found, err := svc.GetSubtree(ctx, root)
			if err != nil {
				return out.failOperation(err)
			}
			if !found {
				return out.fail(ExitFailure, ErrCodeNotFound, "node not found: "+root, nil)
			}
			trees = append(trees, t)
		}

		if out.Format == "json" {
			return out.Success(trees)
		}
		for _, t := range trees {
			writeOutline(out.Writer, t)
		}
		fmt.Fprintf(out.Writer, "seeded %d nodes, %d properties\n", res.Nodes, res.Properties)
		return nil
	})
}
