package tree

import (
	"context"
	"fmt"
)

// Assembler builds nested NodeTree views from flat node and property rows.
type Assembler struct {
	nodes   *NodeStore
	props   *PropertyStore
	loader  SubtreeLoader
	perNode bool
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// PerNode forces the per-node strategy (one properties fetch and one
// children fetch per node) even when the backend can batch-load subtrees.
func PerNode() AssemblerOption {
	return func(a *Assembler) {
		a.perNode = true
	}
}

// NewAssembler creates an Assembler. If backend implements SubtreeLoader,
// subtrees are fetched in one batch and rebuilt with Build; the result is
// identical to the per-node strategy.
func NewAssembler(backend Backend, nodes *NodeStore, props *PropertyStore, opts ...AssemblerOption) *Assembler {
	a := &Assembler{nodes: nodes, props: props}
	if loader, ok := backend.(SubtreeLoader); ok {
		a.loader = loader
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetSubtree assembles the tree rooted at nodePath. found is false when no
// node has that path; that is a normal outcome, not an error.
func (a *Assembler) GetSubtree(ctx context.Context, nodePath string) (tree NodeTree, found bool, err error) {
	root, found, err := a.nodes.FindByPath(ctx, nodePath)
	if err != nil {
		return NodeTree{}, false, fmt.Errorf("get subtree: %w", err)
	}
	if !found {
		return NodeTree{}, false, nil
	}

	if a.loader != nil && !a.perNode {
		nodes, props, err := a.loader.LoadSubtree(ctx, root)
		if err != nil {
			return NodeTree{}, false, fmt.Errorf("get subtree %q: %w", nodePath, err)
		}
		return Build(root, nodes, props), true, nil
	}

	tree, err = a.assemble(ctx, root)
	if err != nil {
		return NodeTree{}, false, fmt.Errorf("get subtree %q: %w", nodePath, err)
	}
	return tree, true, nil
}

// assemble is depth-first pre-order: the node's own properties, then each
// child in name order. Termination follows from the acyclic parent relation.
func (a *Assembler) assemble(ctx context.Context, n Node) (NodeTree, error) {
	if err := ctx.Err(); err != nil {
		return NodeTree{}, err
	}

	props, err := a.props.Properties(ctx, n.ID)
	if err != nil {
		return NodeTree{}, err
	}
	children, err := a.nodes.Children(ctx, n.ID)
	if err != nil {
		return NodeTree{}, err
	}

	t := newNodeTree(n, props)
	t.Children = make([]NodeTree, 0, len(children))
	for _, child := range children {
		sub, err := a.assemble(ctx, child)
		if err != nil {
			return NodeTree{}, err
		}
		t.Children = append(t.Children, sub)
	}
	return t, nil
}
