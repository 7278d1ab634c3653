package tree

import (
	"context"
	"errors"
	"fmt"
)

// NodeStore owns node lifecycle: creation with parent resolution, path
// computation, and lookup by path or id.
type NodeStore struct {
	backend Backend
	ids     IDGenerator
}

// NewNodeStore creates a NodeStore over backend. If ids is nil, node ids are
// UUIDv7 strings.
func NewNodeStore(backend Backend, ids IDGenerator) *NodeStore {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &NodeStore{backend: backend, ids: ids}
}

// CreateNode creates a node named name under parentPath, or a root node when
// parentPath is empty.
//
// The parent is resolved before anything is written; an unresolvable parent
// yields a ParentNotFound *Error and no insert. A duplicate path yields a
// PathConflict *Error. On success the canonical stored record is returned.
func (s *NodeStore) CreateNode(ctx context.Context, name, parentPath string) (Node, error) {
	node := Node{
		ID:   s.ids.NewID(),
		Name: name,
		Path: RootPath(name),
	}

	if parentPath != "" {
		parent, found, err := s.FindByPath(ctx, parentPath)
		if err != nil {
			return Node{}, fmt.Errorf("create node: resolve parent: %w", err)
		}
		if !found {
			return Node{}, NewParentNotFoundError(parentPath)
		}
		node.ParentID = &parent.ID
		node.Path = JoinPath(parent.Path, name)
	}

	if err := s.backend.InsertNode(ctx, node); err != nil {
		// The foreign key caught a parent that vanished after resolution.
		if errors.Is(err, ErrRecordNotFound) {
			return Node{}, NewParentNotFoundError(parentPath)
		}
		return Node{}, fmt.Errorf("create node: %w", err)
	}

	return s.FindByID(ctx, node.ID)
}

// FindByPath looks up a node by exact path. found is false when no node has
// that path; err is reserved for storage failures.
func (s *NodeStore) FindByPath(ctx context.Context, path string) (node Node, found bool, err error) {
	node, err = s.backend.NodeByPath(ctx, path)
	if errors.Is(err, ErrRecordNotFound) {
		return Node{}, false, nil
	}
	if err != nil {
		return Node{}, false, fmt.Errorf("find node by path %q: %w", path, err)
	}
	return node, true, nil
}

// FindByID returns the node with the given id. A missing node yields a
// NodeNotFound *Error.
func (s *NodeStore) FindByID(ctx context.Context, id string) (Node, error) {
	node, err := s.backend.NodeByID(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return Node{}, &Error{
			Code:    ErrCodeNodeNotFound,
			Message: fmt.Sprintf("node %s not found", id),
			Err:     err,
		}
	}
	if err != nil {
		return Node{}, fmt.Errorf("find node by id %q: %w", id, err)
	}
	return node, nil
}

// Children returns the direct children of the node, ordered by name.
func (s *NodeStore) Children(ctx context.Context, nodeID string) ([]Node, error) {
	children, err := s.backend.Children(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list children of %q: %w", nodeID, err)
	}
	return children, nil
}
