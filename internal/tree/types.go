package tree

// Node is a named entity in the hierarchy.
//
// Path is a denormalized copy of the parent chain. Only NodeStore.CreateNode
// computes it; backends store and return it verbatim.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
	Path     string  `json:"path"`
}

// Property is a numeric attribute attached to exactly one node.
type Property struct {
	ID     string  `json:"id"`
	NodeID string  `json:"node_id"`
	Key    string  `json:"key"`
	Value  float64 `json:"value"`
}

// NodeTree is the assembled view of a node and its descendants.
// It is produced on demand and never persisted.
//
// Properties is never nil and Children is never nil, so JSON output always
// carries {} and [] for empty values.
type NodeTree struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Path       string             `json:"path"`
	Properties map[string]float64 `json:"properties"`
	Children   []NodeTree         `json:"children"`
}

// newNodeTree creates a childless tree node with the given properties inlined.
func newNodeTree(n Node, props []Property) NodeTree {
	m := make(map[string]float64, len(props))
	for _, p := range props {
		m[p.Key] = p.Value
	}
	return NodeTree{
		ID:         n.ID,
		Name:       n.Name,
		Path:       n.Path,
		Properties: m,
		Children:   []NodeTree{},
	}
}

// Size returns the number of nodes in the tree, including the root.
func (t NodeTree) Size() int {
	n := 1
	for _, c := range t.Children {
		n += c.Size()
	}
	return n
}

// Walk calls fn for every node in depth-first pre-order, passing the depth
// relative to t (t itself is depth 0). Walk stops early if fn returns false.
func (t NodeTree) Walk(fn func(node NodeTree, depth int) bool) {
	t.walk(fn, 0)
}

func (t NodeTree) walk(fn func(NodeTree, int) bool, depth int) bool {
	if !fn(t, depth) {
		return false
	}
	for _, c := range t.Children {
		if !c.walk(fn, depth+1) {
			return false
		}
	}
	return true
}
