package tree

import "sort"

// Build reconstructs the tree rooted at root from a flat set of rows.
//
// nodes may include root itself and may be in any order; nodes whose parent
// chain does not reach root are ignored. Children are ordered by name and
// properties are inlined, matching what Assembler produces node by node.
func Build(root Node, nodes []Node, props []Property) NodeTree {
	children := make(map[string][]Node)
	for _, n := range nodes {
		if n.ParentID == nil || n.ID == root.ID {
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}
	for _, list := range children {
		sort.Slice(list, func(i, j int) bool {
			return list[i].Name < list[j].Name
		})
	}

	propsByNode := make(map[string][]Property)
	for _, p := range props {
		propsByNode[p.NodeID] = append(propsByNode[p.NodeID], p)
	}

	var build func(n Node) NodeTree
	build = func(n Node) NodeTree {
		t := newNodeTree(n, propsByNode[n.ID])
		kids := children[n.ID]
		t.Children = make([]NodeTree, 0, len(kids))
		for _, c := range kids {
			t.Children = append(t.Children, build(c))
		}
		return t
	}
	return build(root)
}
