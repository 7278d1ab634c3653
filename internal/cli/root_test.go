package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "nodetree", cmd.Use)
	assert.Contains(t, cmd.Long, "subtrees")
	assert.Equal(t, Version, cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"serve", "create", "prop", "subtree", "seed"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	for _, name := range []string{"db", "backend", "driver"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue, name)
	}
}

func TestCreateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	createCmd, _, err := cmd.Find([]string{"create"})
	require.NoError(t, err)

	parentFlag := createCmd.Flags().Lookup("parent")
	require.NotNil(t, parentFlag)
	assert.Equal(t, "p", parentFlag.Shorthand)
	assert.Equal(t, "", parentFlag.DefValue)
}

func TestSubtreeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	subtreeCmd, _, err := cmd.Find([]string{"subtree"})
	require.NoError(t, err)

	selectFlag := subtreeCmd.Flags().Lookup("select")
	require.NotNil(t, selectFlag)
	assert.Equal(t, "s", selectFlag.Shorthand)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	addrFlag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, "", addrFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "subtree", "/A"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestResolve_ConfigFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-config.db")
	cfgPath := filepath.Join(dir, "nodetree.yaml")
	cfgYAML := "storage:\n  backend: sqlite\n  path: " + dbPath + "\nlog:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o644))

	stderr := &bytes.Buffer{}
	_, err := execute(t, stderr, "--config", cfgPath, "--backend", "memory", "create", "Solo")
	require.NoError(t, err)

	assert.NoFileExists(t, dbPath)
	assert.Contains(t, stderr.String(), `"msg":"opening storage"`)
	assert.Contains(t, stderr.String(), `"backend":"memory"`)
}

func TestResolve_VerboseForcesDebug(t *testing.T) {
	stderr := &bytes.Buffer{}
	_, err := execute(t, stderr, "--backend", "memory", "--verbose", "create", "Solo")
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "level=DEBUG")
	assert.Contains(t, stderr.String(), "opening storage")
}

func TestResolve_Errors(t *testing.T) {
	dir := t.TempDir()
	badCfg := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badCfg, []byte("storage:\n  engine: sqlite\n"), 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing config", []string{"--config", filepath.Join(dir, "missing.yaml"), "create", "A"}, "failed to load config"},
		{"unknown config field", []string{"--config", badCfg, "create", "A"}, "failed to load config"},
		{"bad backend", []string{"--backend", "postgres", "create", "A"}, "invalid configuration"},
		{"bad driver", []string{"--driver", "cgo", "create", "A"}, "invalid configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, nil, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
