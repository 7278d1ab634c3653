// Package tree is the hierarchical node store.
//
// Nodes are addressed by slash-delimited paths. A node's path is derived
// exactly once, at creation, from its parent's path and its own name:
//
//	/AlphaPC
//	/AlphaPC/Processing
//	/AlphaPC/Processing/CPU
//
// The package has three parts, all written against the Backend interface so
// they can run over SQLite, BadgerDB or the in-memory fake:
//
//   - NodeStore: node creation with parent resolution, lookups by path and id
//   - PropertyStore: numeric property upserts keyed by (node id, key)
//   - Assembler: turns flat node and property rows into a nested NodeTree
//
// # Invariants
//
//   - path == parent.path + "/" + name (root: "/" + name), never mutated
//   - paths are unique across all nodes
//   - a parent must exist before its child is created, so the parent
//     relation is acyclic
//   - (node id, key) is unique among properties
//
// # Ordering
//
// Children are always listed in ascending byte order of their names
// (SQLite's BINARY collation), so repeated subtree reads are reproducible.
package tree
