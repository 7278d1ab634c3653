package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/nodetree/internal/tree"
)

// UpsertProperty inserts p or overwrites the value of the existing
// (node_id, key) row, keeping its id. Returns the post-write row.
func (s *Store) UpsertProperty(ctx context.Context, p tree.Property) (tree.Property, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tree.Property{}, fmt.Errorf("upsert property: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE id = ?`, p.NodeID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return tree.Property{}, fmt.Errorf("upsert property: node %s: %w", p.NodeID, tree.ErrRecordNotFound)
	}
	if err != nil {
		return tree.Property{}, fmt.Errorf("upsert property: check node: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO properties (id, node_id, key, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(node_id, key) DO UPDATE SET value = excluded.value
	`, p.ID, p.NodeID, p.Key, p.Value)
	if err != nil {
		return tree.Property{}, fmt.Errorf("upsert property: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, node_id, key, value
		FROM properties
		WHERE node_id = ? AND key = ?
	`, p.NodeID, p.Key)
	stored, err := scanProperty(row)
	if err != nil {
		return tree.Property{}, fmt.Errorf("upsert property: read back: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return tree.Property{}, fmt.Errorf("upsert property: commit: %w", err)
	}
	return stored, nil
}

// Properties returns the properties of nodeID ordered by key.
//
// Returns empty slice (not nil) if the node has none.
func (s *Store) Properties(ctx context.Context, nodeID string) ([]tree.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node_id, key, value
		FROM properties
		WHERE node_id = ?
		ORDER BY key COLLATE BINARY ASC
	`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	return collectProperties(rows)
}

func collectProperties(rows *sql.Rows) ([]tree.Property, error) {
	defer rows.Close()

	props := []tree.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return props, nil
}

func scanProperty(row rowScanner) (tree.Property, error) {
	var p tree.Property
	if err := row.Scan(&p.ID, &p.NodeID, &p.Key, &p.Value); err != nil {
		return tree.Property{}, err
	}
	return p, nil
}
