package tree

import (
	"context"
	"errors"
	"fmt"
)

// PropertyStore attaches and updates numeric properties on existing nodes.
type PropertyStore struct {
	backend Backend
	nodes   *NodeStore
	ids     IDGenerator
}

// NewPropertyStore creates a PropertyStore that resolves node paths through
// nodes. If ids is nil, property ids are UUIDv7 strings.
func NewPropertyStore(backend Backend, nodes *NodeStore, ids IDGenerator) *PropertyStore {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &PropertyStore{backend: backend, nodes: nodes, ids: ids}
}

// AddProperty sets key to value on the node at nodePath.
//
// If the node already has the key, its value is overwritten and the property
// keeps its id; otherwise a new property is inserted. The post-write record
// is returned. An unresolvable nodePath yields a NodeNotFound *Error and no
// write.
func (s *PropertyStore) AddProperty(ctx context.Context, nodePath, key string, value float64) (Property, error) {
	node, found, err := s.nodes.FindByPath(ctx, nodePath)
	if err != nil {
		return Property{}, fmt.Errorf("add property: resolve node: %w", err)
	}
	if !found {
		return Property{}, NewNodeNotFoundError(nodePath)
	}

	prop, err := s.backend.UpsertProperty(ctx, Property{
		ID:     s.ids.NewID(),
		NodeID: node.ID,
		Key:    key,
		Value:  value,
	})
	if errors.Is(err, ErrRecordNotFound) {
		return Property{}, NewNodeNotFoundError(nodePath)
	}
	if err != nil {
		return Property{}, fmt.Errorf("add property %q: %w", key, err)
	}
	return prop, nil
}

// Properties returns the properties of a node ordered by key.
func (s *PropertyStore) Properties(ctx context.Context, nodeID string) ([]Property, error) {
	props, err := s.backend.Properties(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list properties of %q: %w", nodeID, err)
	}
	return props, nil
}
