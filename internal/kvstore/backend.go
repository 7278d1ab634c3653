package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/nodetree/internal/tree"
)

// InsertNode writes the node record and its path and child index entries in
// one transaction.
func (s *Store) InsertNode(ctx context.Context, n tree.Node) error {
	data, err := marshalNode(n)
	if err != nil {
		return fmt.Errorf("insert node: %w", err)
	}

	err = s.update(ctx, func(txn *badger.Txn) error {
		if exists, err := keyExists(txn, nodePathKey(n.Path)); err != nil {
			return err
		} else if exists {
			return tree.NewPathConflictError(n.Path, nil)
		}

		parentID := ""
		if n.ParentID != nil {
			parentID = *n.ParentID
			exists, err := keyExists(txn, nodeIDKey(parentID))
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("parent %s: %w", parentID, tree.ErrRecordNotFound)
			}
		}

		if err := txn.Set(nodeIDKey(n.ID), data); err != nil {
			return err
		}
		if err := txn.Set(nodePathKey(n.Path), []byte(n.ID)); err != nil {
			return err
		}
		return txn.Set(childKey(parentID, n.Name), []byte(n.ID))
	})
	if err != nil {
		var te *tree.Error
		if errors.As(err, &te) {
			return err
		}
		return fmt.Errorf("insert node: %w", err)
	}
	return nil
}

// NodeByPath resolves the path index, then reads the node record.
func (s *Store) NodeByPath(ctx context.Context, path string) (tree.Node, error) {
	var n tree.Node
	err := s.view(ctx, func(txn *badger.Txn) error {
		id, err := getString(txn, nodePathKey(path))
		if err != nil {
			return err
		}
		n, err = getNode(txn, id)
		return err
	})
	if err != nil {
		return tree.Node{}, fmt.Errorf("node %q: %w", path, err)
	}
	return n, nil
}

// NodeByID reads the node record.
func (s *Store) NodeByID(ctx context.Context, id string) (tree.Node, error) {
	var n tree.Node
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		n, err = getNode(txn, id)
		return err
	})
	if err != nil {
		return tree.Node{}, fmt.Errorf("node %s: %w", id, err)
	}
	return n, nil
}

// Children scans the child index of parentID, which is ordered by name.
func (s *Store) Children(ctx context.Context, parentID string) ([]tree.Node, error) {
	children := []tree.Node{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		children, err = scanChildren(txn, parentID, children)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

// UpsertProperty overwrites the value of an existing (node, key) property,
// keeping its id, or stores p as a new property.
func (s *Store) UpsertProperty(ctx context.Context, p tree.Property) (tree.Property, error) {
	var stored tree.Property
	err := s.update(ctx, func(txn *badger.Txn) error {
		exists, err := keyExists(txn, nodeIDKey(p.NodeID))
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("node %s: %w", p.NodeID, tree.ErrRecordNotFound)
		}

		stored = p
		item, err := txn.Get(propKey(p.NodeID, p.Key))
		switch {
		case err == nil:
			var existing tree.Property
			if err := item.Value(func(val []byte) error {
				existing, err = unmarshalProperty(val)
				return err
			}); err != nil {
				return err
			}
			stored.ID = existing.ID
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		data, err := marshalProperty(stored)
		if err != nil {
			return err
		}
		return txn.Set(propKey(p.NodeID, p.Key), data)
	})
	if err != nil {
		return tree.Property{}, fmt.Errorf("upsert property: %w", err)
	}
	return stored, nil
}

// Properties scans the property prefix of nodeID, which is ordered by key.
func (s *Store) Properties(ctx context.Context, nodeID string) ([]tree.Property, error) {
	props := []tree.Property{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		props, err = scanProperties(txn, nodeID, props)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return props, nil
}

// LoadSubtree reads root and all descendants from one snapshot. Descendants
// are found with a prefix scan over the path index using root.Path + "/".
func (s *Store) LoadSubtree(ctx context.Context, root tree.Node) ([]tree.Node, []tree.Property, error) {
	nodes := []tree.Node{root}
	props := []tree.Property{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		props, err = scanProperties(txn, root.ID, props)
		if err != nil {
			return err
		}

		prefix := nodePathKey(root.Path + tree.Separator)
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefix})
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			n, err := getNode(txn, id)
			if err != nil {
				return err
			}
			nodes = append(nodes, n)
			props, err = scanProperties(txn, id, props)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load subtree: %w", err)
	}
	return nodes, props, nil
}

// keyExists reports whether key is present.
func keyExists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// getString reads a string value, mapping a missing key to
// tree.ErrRecordNotFound.
func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", tree.ErrRecordNotFound
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func getNode(txn *badger.Txn, id string) (tree.Node, error) {
	item, err := txn.Get(nodeIDKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return tree.Node{}, tree.ErrRecordNotFound
	}
	if err != nil {
		return tree.Node{}, err
	}
	var n tree.Node
	err = item.Value(func(val []byte) error {
		n, err = unmarshalNode(val)
		return err
	})
	return n, err
}

func scanChildren(txn *badger.Txn, parentID string, dst []tree.Node) ([]tree.Node, error) {
	prefix := childPrefix(parentID)
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefix})
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		id, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		n, err := getNode(txn, string(id))
		if err != nil {
			return nil, err
		}
		dst = append(dst, n)
	}
	return dst, nil
}

func scanProperties(txn *badger.Txn, nodeID string, dst []tree.Property) ([]tree.Property, error) {
	prefix := propPrefix(nodeID)
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefix})
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var p tree.Property
		err := it.Item().Value(func(val []byte) error {
			var err error
			p, err = unmarshalProperty(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		dst = append(dst, p)
	}
	return dst, nil
}
