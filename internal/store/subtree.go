package store

import (
	"context"
	"fmt"

	"github.com/roach88/nodetree/internal/tree"
)

// LoadSubtree fetches root and every descendant plus all their properties in
// two queries inside one read transaction.
//
// Descendants of P are exactly the paths in [P+"/", P+"0"): '0' is the byte
// after '/', and BINARY collation compares bytes. A sibling such as P+"X"
// sorts outside the range, so "/PC" never matches "/PCI".
func (s *Store) LoadSubtree(ctx context.Context, root tree.Node) ([]tree.Node, []tree.Property, error) {
	lo, hi := descendantRange(root.Path)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("load subtree: begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, parent_id, path
		FROM nodes
		WHERE id = ? OR (path >= ? AND path < ?)
		ORDER BY path COLLATE BINARY ASC
	`, root.ID, lo, hi)
	if err != nil {
		return nil, nil, fmt.Errorf("load subtree: query nodes: %w", err)
	}
	nodes, err := collectNodes(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("load subtree: %w", err)
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT p.id, p.node_id, p.key, p.value
		FROM properties p
		JOIN nodes n ON n.id = p.node_id
		WHERE n.id = ? OR (n.path >= ? AND n.path < ?)
		ORDER BY p.node_id, p.key COLLATE BINARY ASC
	`, root.ID, lo, hi)
	if err != nil {
		return nil, nil, fmt.Errorf("load subtree: query properties: %w", err)
	}
	props, err := collectProperties(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("load subtree: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("load subtree: commit: %w", err)
	}
	return nodes, props, nil
}

// descendantRange returns the half-open path range covering every
// descendant of path.
func descendantRange(path string) (lo, hi string) {
	return path + tree.Separator, path + "0"
}
