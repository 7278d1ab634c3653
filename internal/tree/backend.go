package tree

import "context"

// Backend is the storage capability the stores are written against.
//
// Implementations must enforce uniqueness of Node.Path and of
// (Property.NodeID, Property.Key), and must be safe for concurrent use.
type Backend interface {
	// InsertNode stores a new node. It returns a PathConflict *Error if a
	// node with the same path exists, and an error wrapping
	// ErrRecordNotFound if n.ParentID does not reference an existing node.
	InsertNode(ctx context.Context, n Node) error

	// NodeByPath returns the node with exactly this path, or an error
	// wrapping ErrRecordNotFound.
	NodeByPath(ctx context.Context, path string) (Node, error)

	// NodeByID returns the node with this id, or an error wrapping
	// ErrRecordNotFound.
	NodeByID(ctx context.Context, id string) (Node, error)

	// Children returns the direct children of parentID ordered by name
	// ascending (byte order). It returns an empty slice for leaves.
	Children(ctx context.Context, parentID string) ([]Node, error)

	// UpsertProperty inserts p, or overwrites the value of the existing
	// (p.NodeID, p.Key) property in place, keeping its id. It returns the
	// post-write record, or an error wrapping ErrRecordNotFound if the node
	// does not exist.
	UpsertProperty(ctx context.Context, p Property) (Property, error)

	// Properties returns all properties of nodeID ordered by key. It returns
	// an empty slice when the node has none.
	Properties(ctx context.Context, nodeID string) ([]Property, error)
}

// SubtreeLoader is an optional Backend capability: fetch every node and
// property at or below root in a fixed number of round trips. The order of
// the returned slices is unspecified; Build restores the tree order.
type SubtreeLoader interface {
	LoadSubtree(ctx context.Context, root Node) ([]Node, []Property, error)
}
