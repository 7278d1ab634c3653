package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/nodetree/internal/tree"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// InsertNode stores a new node.
//
// The path and parent are checked inside the same transaction as the insert,
// so the typed errors do not depend on driver-specific constraint messages.
func (s *Store) InsertNode(ctx context.Context, n tree.Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert node: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE path = ?`, n.Path).Scan(&exists)
	if err == nil {
		return tree.NewPathConflictError(n.Path, nil)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("insert node: check path: %w", err)
	}

	if n.ParentID != nil {
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE id = ?`, *n.ParentID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("insert node: parent %s: %w", *n.ParentID, tree.ErrRecordNotFound)
		}
		if err != nil {
			return fmt.Errorf("insert node: check parent: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (id, name, parent_id, path)
		VALUES (?, ?, ?, ?)
	`, n.ID, n.Name, nullString(n.ParentID), n.Path)
	if err != nil {
		if isConstraintError(err, "UNIQUE") {
			return tree.NewPathConflictError(n.Path, err)
		}
		if isConstraintError(err, "FOREIGN KEY") {
			return fmt.Errorf("insert node: %w: %v", tree.ErrRecordNotFound, err)
		}
		return fmt.Errorf("insert node: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert node: commit: %w", err)
	}
	return nil
}

// NodeByPath returns the node with exactly this path.
func (s *Store) NodeByPath(ctx context.Context, path string) (tree.Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, parent_id, path
		FROM nodes
		WHERE path = ?
	`, path)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tree.Node{}, fmt.Errorf("node %q: %w", path, tree.ErrRecordNotFound)
	}
	if err != nil {
		return tree.Node{}, fmt.Errorf("query node by path: %w", err)
	}
	return n, nil
}

// NodeByID returns the node with this id.
func (s *Store) NodeByID(ctx context.Context, id string) (tree.Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, parent_id, path
		FROM nodes
		WHERE id = ?
	`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tree.Node{}, fmt.Errorf("node %s: %w", id, tree.ErrRecordNotFound)
	}
	if err != nil {
		return tree.Node{}, fmt.Errorf("query node by id: %w", err)
	}
	return n, nil
}

// Children returns the direct children of parentID ordered by name.
//
// Returns empty slice (not nil) for leaves.
func (s *Store) Children(ctx context.Context, parentID string) ([]tree.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, parent_id, path
		FROM nodes
		WHERE parent_id = ?
		ORDER BY name COLLATE BINARY ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	return collectNodes(rows)
}

func collectNodes(rows *sql.Rows) ([]tree.Node, error) {
	defer rows.Close()

	nodes := []tree.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func scanNode(row rowScanner) (tree.Node, error) {
	var (
		n        tree.Node
		parentID sql.NullString
	)
	if err := row.Scan(&n.ID, &n.Name, &parentID, &n.Path); err != nil {
		return tree.Node{}, err
	}
	if parentID.Valid {
		p := parentID.String
		n.ParentID = &p
	}
	return n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// isConstraintError matches the "<KIND> constraint failed" text that both
// mattn/go-sqlite3 and modernc.org/sqlite put in their error messages.
func isConstraintError(err error, kind string) bool {
	return strings.Contains(err.Error(), kind+" constraint failed")
}
