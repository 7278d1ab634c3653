// Package memstore is an in-memory tree.Backend.
//
// It backs the "memory" storage backend and serves as the fake for tests of
// code written against tree.Backend. Data is lost when the process exits.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/nodetree/internal/tree"
)

type propKey struct {
	nodeID string
	key    string
}

// Store is a mutex-guarded map implementation of tree.Backend.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]tree.Node
	byPath   map[string]string   // path -> id
	children map[string][]string // parent id -> child ids ("" for roots)
	props    map[propKey]tree.Property
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		byID:     make(map[string]tree.Node),
		byPath:   make(map[string]string),
		children: make(map[string][]string),
		props:    make(map[propKey]tree.Property),
	}
}

// Close implements io.Closer so Store can be used wherever a persistent
// backend is. It is a no-op.
func (s *Store) Close() error {
	return nil
}

// InsertNode implements tree.Backend.
func (s *Store) InsertNode(_ context.Context, n tree.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byPath[n.Path]; exists {
		return tree.NewPathConflictError(n.Path, nil)
	}
	if _, exists := s.byID[n.ID]; exists {
		return fmt.Errorf("insert node: duplicate id %q", n.ID)
	}

	parent := ""
	if n.ParentID != nil {
		parent = *n.ParentID
		if _, ok := s.byID[parent]; !ok {
			return fmt.Errorf("insert node: parent %q: %w", parent, tree.ErrRecordNotFound)
		}
	}

	s.byID[n.ID] = copyNode(n)
	s.byPath[n.Path] = n.ID
	s.children[parent] = append(s.children[parent], n.ID)
	return nil
}

// NodeByPath implements tree.Backend.
func (s *Store) NodeByPath(_ context.Context, path string) (tree.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPath[path]
	if !ok {
		return tree.Node{}, fmt.Errorf("node %q: %w", path, tree.ErrRecordNotFound)
	}
	return copyNode(s.byID[id]), nil
}

// NodeByID implements tree.Backend.
func (s *Store) NodeByID(_ context.Context, id string) (tree.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[id]
	if !ok {
		return tree.Node{}, fmt.Errorf("node id %q: %w", id, tree.ErrRecordNotFound)
	}
	return copyNode(n), nil
}

// Children implements tree.Backend.
func (s *Store) Children(_ context.Context, parentID string) ([]tree.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.children[parentID]
	out := make([]tree.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyNode(s.byID[id]))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// UpsertProperty implements tree.Backend.
func (s *Store) UpsertProperty(_ context.Context, p tree.Property) (tree.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.NodeID]; !ok {
		return tree.Property{}, fmt.Errorf("upsert property: node %q: %w", p.NodeID, tree.ErrRecordNotFound)
	}

	k := propKey{nodeID: p.NodeID, key: p.Key}
	if existing, ok := s.props[k]; ok {
		p.ID = existing.ID
	}
	s.props[k] = p
	return p, nil
}

// Properties implements tree.Backend.
func (s *Store) Properties(_ context.Context, nodeID string) ([]tree.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []tree.Property{}
	for k, p := range s.props {
		if k.nodeID == nodeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// copyNode detaches the ParentID pointer from the stored value.
func copyNode(n tree.Node) tree.Node {
	if n.ParentID != nil {
		parent := *n.ParentID
		n.ParentID = &parent
	}
	return n
}
