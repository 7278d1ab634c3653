package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodetree/internal/config"
	"github.com/roach88/nodetree/internal/tree"
)

// execute runs the root command with args and returns stdout. Diagnostics go
// to stderr when non-nil.
func execute(t *testing.T, stderr io.Writer, args ...string) (string, error) {
	t.Helper()
	if stderr == nil {
		stderr = io.Discard
	}
	stdout := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// sqliteArgs returns the storage flags for a fresh SQLite database.
func sqliteArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--db", filepath.Join(t.TempDir(), "nodetree.db")}
}

func run(t *testing.T, storage []string, args ...string) (string, error) {
	t.Helper()
	return execute(t, nil, append(append([]string{}, storage...), args...)...)
}

func goldenFixture(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestCreateAndSubtree_Text(t *testing.T) {
	db := sqliteArgs(t)

	out, err := run(t, db, "create", "AlphaPC")
	require.NoError(t, err)
	assert.Regexp(t, `^created /AlphaPC \(id [0-9a-f-]{36}\)\n$`, out)

	_, err = run(t, db, "create", "Processing", "--parent", "/AlphaPC")
	require.NoError(t, err)

	out, err = run(t, db, "prop", "/AlphaPC/Processing", "RAM", "32000")
	require.NoError(t, err)
	assert.Equal(t, "set /AlphaPC/Processing RAM = 32000\n", out)

	out, err = run(t, db, "subtree", "/AlphaPC")
	require.NoError(t, err)
	assert.Equal(t, "/AlphaPC\n  Processing\n    RAM: 32000\n", out)
}

func TestCreate_JSON(t *testing.T) {
	db := sqliteArgs(t)

	out, err := run(t, db, "--format", "json", "create", "AlphaPC")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   tree.Node `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "AlphaPC", resp.Data.Name)
	assert.Equal(t, "/AlphaPC", resp.Data.Path)
	assert.Nil(t, resp.Data.ParentID)
	assert.NotEmpty(t, resp.Data.ID)
}

func TestCreate_Errors(t *testing.T) {
	db := sqliteArgs(t)
	_, err := run(t, db, "create", "AlphaPC")
	require.NoError(t, err)

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantCode string
	}{
		{"missing parent", []string{"create", "X", "--parent", "/Missing"}, ExitFailure, ErrCodeParentNotFound},
		{"duplicate", []string{"create", "AlphaPC"}, ExitFailure, ErrCodePathConflict},
		{"slash in name", []string{"create", "a/b"}, ExitFailure, ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, db, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestProp_Errors(t *testing.T) {
	db := sqliteArgs(t)
	_, err := run(t, db, "create", "X")
	require.NoError(t, err)

	out, err := run(t, db, "prop", "/X", "Height", "tall")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")

	out, err = run(t, db, "prop", "/Y", "Height", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]: node not found: /Y")

	_, err = run(t, db, "prop", "/X", "Height", "NaN")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestProp_Upsert(t *testing.T) {
	db := sqliteArgs(t)
	_, err := run(t, db, "create", "X")
	require.NoError(t, err)

	var first, second struct {
		Data tree.Property `json:"data"`
	}
	out, err := run(t, db, "--format", "json", "prop", "/X", "Height", "10")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &first))

	out, err = run(t, db, "--format", "json", "prop", "/X", "Height", "20")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &second))

	assert.Equal(t, first.Data.ID, second.Data.ID)
	assert.Equal(t, 20.0, second.Data.Value)
}

func TestSubtree_NotFound(t *testing.T) {
	out, err := run(t, sqliteArgs(t), "subtree", "/Nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Equal(t, "Error [E005]: node not found: /Nope\n", out)
}

func TestSeed_Golden(t *testing.T) {
	db := sqliteArgs(t)
	g := goldenFixture(t)

	out, err := run(t, db, "seed")
	require.NoError(t, err)
	g.Assert(t, "seed_alphapc", []byte(out))

	out, err = run(t, db, "subtree", "/AlphaPC/Storage")
	require.NoError(t, err)
	g.Assert(t, "subtree_storage", []byte(out))
}

func TestSeed_JSON(t *testing.T) {
	out, err := run(t, sqliteArgs(t), "--format", "json", "seed")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []tree.NodeTree `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 7, resp.Data[0].Size())
	assert.Equal(t, "/AlphaPC", resp.Data[0].Path)
}

func TestSeed_File(t *testing.T) {
	dir := t.TempDir()
	db := []string{"--db", filepath.Join(dir, "nodetree.db")}

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("nodes:\n  - name: Rack\n    properties: {Units: 42}\n"), 0o644))
	out, err := run(t, db, "seed", good)
	require.NoError(t, err)
	assert.Equal(t, "/Rack\n  Units: 42\nseeded 1 nodes, 1 properties\n", out)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("nodes:\n  - name: Rack\n    colour: red\n"), 0o644))
	out, err = run(t, db, "seed", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E007]")

	// Applying the same file twice conflicts on the first node.
	_, err = run(t, db, "seed", good)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSubtree_Select(t *testing.T) {
	db := sqliteArgs(t)
	_, err := run(t, db, "seed")
	require.NoError(t, err)

	out, err := run(t, db, "--format", "json", "subtree", "/AlphaPC", "--select", "$.children[*].name")
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []any{"Processing", "Storage"}, resp.Data)

	out, err = run(t, db, "subtree", "/AlphaPC", "--select", "$..properties.RAM")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"32000", "4000"}, strings.Fields(out))

	out, err = run(t, db, "subtree", "/AlphaPC", "--select", "$.nothing")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, db, "subtree", "/AlphaPC", "--select", "$[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBackends(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{"sqlite cgo", sqliteArgs},
		{"sqlite pure go", func(t *testing.T) []string {
			return append(sqliteArgs(t), "--driver", "sqlite")
		}},
		{"badger", func(t *testing.T) []string {
			return []string{"--backend", "badger", "--db", filepath.Join(t.TempDir(), "kv")}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := tt.args(t)

			_, err := run(t, storage, "seed")
			require.NoError(t, err)

			out, err := run(t, storage, "subtree", "/AlphaPC/Storage")
			require.NoError(t, err)
			goldenFixture(t).Assert(t, "subtree_storage", []byte(out))
		})
	}
}

func TestOpenBackend_Unknown(t *testing.T) {
	_, _, err := openBackend(config.StorageConfig{Backend: "postgres"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, `unknown storage backend "postgres"`)
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Storage.Backend = config.BackendMemory
	rootOpts := &RootOptions{Format: "text", Config: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	opts := &ServeOptions{RootOptions: rootOpts, Listener: ln}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := NewServeCommand(rootOpts)
	cmd.SetContext(ctx)
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)

	done := make(chan error, 1)
	go func() { done <- runServe(opts, cmd) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Post(base+"/api/nodes", "application/json", strings.NewReader(`{"name":"AlphaPC"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(base + "/api/nodes/AlphaPC/subtree")
	require.NoError(t, err)
	var got tree.NodeTree
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, "/AlphaPC", got.Path)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "nodetree_service_operations_total")
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Contains(t, stdout.String(), "Serving on "+ln.Addr().String())
}
