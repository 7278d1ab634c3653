package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/spf13/cobra"

	"github.com/roach88/nodetree/internal/service"
	"github.com/roach88/nodetree/internal/tree"
)

// SubtreeOptions holds flags for the subtree command.
type SubtreeOptions struct {
	*RootOptions
	Select string
}

// NewSubtreeCommand creates the subtree command.
func NewSubtreeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubtreeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "subtree <path>",
		Short: "Print a node and all its descendants",
		Long: `Print the node at <path> with its properties and all descendants.

--select applies a JSONPath expression to the JSON form of the tree and
prints the matches instead.

Example:
  nodetree subtree /AlphaPC
  nodetree subtree /AlphaPC --select '$..properties.RAM'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubtree(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Select, "select", "s", "", "JSONPath expression applied to the tree")

	return cmd
}

func runSubtree(opts *SubtreeOptions, path string, cmd *cobra.Command) error {
	var selector jp.Expr
	if opts.Select != "" {
		x, err := jp.ParseString(opts.Select)
		if err != nil {
			out := newFormatter(opts.RootOptions, cmd)
			return out.fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("invalid jsonpath %q", opts.Select), err)
		}
		selector = x
	}

	return withService(opts.RootOptions, cmd, func(ctx context.Context, svc *service.Service, out *OutputFormatter) error {
		t, found, err := svc.GetSubtree(ctx, path)
		if err != nil {
			return out.failOperation(err)
		}
		if !found {
			return out.fail(ExitFailure, ErrCodeNotFound, "node not found: "+path, nil)
		}

		if selector != nil {
			matches, err := selectTree(t, selector)
			if err != nil {
				return out.fail(ExitCommandError, ErrCodeGeneric, "failed to evaluate selector", err)
			}
			return writeMatches(out, matches)
		}

		if out.Format == "json" {
			return out.Success(t)
		}
		writeOutline(out.Writer, t)
		return nil
	})
}

// selectTree evaluates x against the generic JSON form of t.
func selectTree(t tree.NodeTree, x jp.Expr) ([]any, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return x.Get(root), nil
}

// writeMatches prints JSONPath matches, one compact JSON value per line in
// text mode.
func writeMatches(out *OutputFormatter, matches []any) error {
	if matches == nil {
		matches = []any{}
	}
	if out.Format == "json" {
		return out.Success(matches)
	}
	for _, m := range matches {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		fmt.Fprintln(out.Writer, string(data))
	}
	return nil
}

// writeOutline prints t as an indented outline. The root is shown by path,
// descendants by name. Properties precede children, sorted by key.
func writeOutline(w io.Writer, t tree.NodeTree) {
	t.Walk(func(n tree.NodeTree, depth int) bool {
		indent := strings.Repeat("  ", depth)
		label := n.Name
		if depth == 0 {
			label = n.Path
		}
		fmt.Fprintf(w, "%s%s\n", indent, label)

		keys := make([]string, 0, len(n.Properties))
		for k := range n.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s  %s: %s\n", indent, k, formatValue(n.Properties[k]))
		}
		return true
	})
}

// formatValue prints v in its shortest exact decimal form.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
