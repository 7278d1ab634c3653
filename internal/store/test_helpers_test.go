package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return createTestStoreWithDriver(t, DriverCGO)
}

func createTestStoreWithDriver(t *testing.T, driver string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenWithOptions(path, Options{Driver: driver})
	if err != nil {
		t.Fatalf("OpenWithOptions(%q) failed: %v", driver, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
