package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Driver() != DriverCGO {
		t.Errorf("Driver() = %q, want %q", s.Driver(), DriverCGO)
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if _, err := s1.db.Exec(`INSERT INTO nodes (id, name, parent_id, path) VALUES ('n1', 'AlphaPC', NULL, '/AlphaPC')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("nodes count = %d after reopen, want 1", count)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"nodes", "properties"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	_, err := OpenWithOptions(path, Options{Driver: "postgres"})
	if err == nil {
		t.Error("expected error for unknown driver, got nil")
	}
}

func TestOpen_PureGoDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := OpenWithOptions(path, Options{Driver: DriverPure})
	if err != nil {
		t.Fatalf("OpenWithOptions() failed: %v", err)
	}
	defer s.Close()

	if s.Driver() != DriverPure {
		t.Errorf("Driver() = %q, want %q", s.Driver(), DriverPure)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	_ = s.Close()
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"}, // ON
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.expected); err != nil {
			t.Error(err)
		}
	}
}

// Schema tests

func TestSchema_NodesTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "nodes")
	for _, col := range []string{"id", "name", "parent_id", "path"} {
		if !contains(columns, col) {
			t.Errorf("nodes table missing column %q", col)
		}
	}
}

func TestSchema_PropertiesTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "properties")
	for _, col := range []string{"id", "node_id", "key", "value"} {
		if !contains(columns, col) {
			t.Errorf("properties table missing column %q", col)
		}
	}
}

// Constraint tests

func TestConstraint_PathUnique(t *testing.T) {
	s := createTestStore(t)

	if _, err := s.db.Exec(`INSERT INTO nodes (id, name, path) VALUES ('a', 'A', '/A')`); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, err := s.db.Exec(`INSERT INTO nodes (id, name, path) VALUES ('b', 'A', '/A')`)
	if err == nil {
		t.Fatal("expected UNIQUE violation for duplicate path")
	}
	if !isConstraintError(err, "UNIQUE") {
		t.Errorf("isConstraintError(%v, UNIQUE) = false", err)
	}
}

func TestConstraint_ParentForeignKey(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO nodes (id, name, parent_id, path) VALUES ('b', 'B', 'missing', '/missing/B')`)
	if err == nil {
		t.Fatal("expected FOREIGN KEY violation for missing parent")
	}
	if !isConstraintError(err, "FOREIGN KEY") {
		t.Errorf("isConstraintError(%v, FOREIGN KEY) = false", err)
	}
}

func TestConstraint_PropertyKeyUnique(t *testing.T) {
	s := createTestStore(t)

	if _, err := s.db.Exec(`INSERT INTO nodes (id, name, path) VALUES ('a', 'A', '/A')`); err != nil {
		t.Fatalf("insert node failed: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO properties (id, node_id, key, value) VALUES ('p1', 'a', 'RAM', 1)`); err != nil {
		t.Fatalf("insert property failed: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO properties (id, node_id, key, value) VALUES ('p2', 'a', 'RAM', 2)`); err == nil {
		t.Error("expected UNIQUE violation for duplicate (node_id, key)")
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_V1IndexExists(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "nodes")
	if !contains(indexes, "idx_nodes_parent_name") {
		t.Errorf("nodes table missing idx_nodes_parent_name, indexes: %v", indexes)
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Schema without migrations simulates a database from before v1.
	db, err := sql.Open(DriverCGO, path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d after migration", version, currentSchemaVersion)
	}
	if !contains(getTableIndexes(t, s.db, "nodes"), "idx_nodes_parent_name") {
		t.Error("expected idx_nodes_parent_name after migration")
	}
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
