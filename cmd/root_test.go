//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirConfig switches into a temp dir holding config.yaml with content and
// restores the working directory and cfg afterwards.
func chdirConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	if content != "" {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(content), 0o644))
	}

	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	oldCfg := cfg
	cfg = nil
	t.Cleanup(func() { cfg = oldCfg })
	return tmpDir
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"ingest", "schema", "export", "search", "serve", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "corpus-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		name string
		get  func() string
		def  string
	}{
		{"ingest --save", func() string { return ingestCmd.Flags().Lookup("save").DefValue }, "false"},
		{"schema --format", func() string { return schemaCmd.Flags().Lookup("format").DefValue }, ""},
		{"export --out", func() string { return exportCmd.Flags().Lookup("out").DefValue }, ""},
		{"search --raw", func() string { return searchCmd.Flags().Lookup("raw").DefValue }, "false"},
		{"serve --port", func() string { return serveCmd.Flags().Lookup("port").DefValue }, "0"},
		{"runs list --limit", func() string { return runsListCmd.Flags().Lookup("limit").DefValue }, "50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.def, tt.get())
		})
	}
}

func TestRootCmd_PersistentPreRunE_WithValidConfig(t *testing.T) {
	chdirConfig(t, `
store:
  driver: postgres
log:
  level: info
  format: console
`)

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestRootCmd_PersistentPreRunE_NoConfigFile(t *testing.T) {
	chdirConfig(t, "")

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestRootCmd_PersistentPreRunE_BadLogLevel(t *testing.T) {
	chdirConfig(t, `
log:
  level: NOT_A_LEVEL
  format: console
`)

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
}

func TestRootCmd_PersistentPreRunE_LogLevelFlag(t *testing.T) {
	chdirConfig(t, `
log:
  level: info
  format: console
`)
	require.NoError(t, rootCmd.PersistentFlags().Set("log-level", "debug"))
	t.Cleanup(func() { logLevel = "" })

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestRootCmd_PersistentPreRunE_BadLogLevelFlag(t *testing.T) {
	chdirConfig(t, "")
	logLevel = "loud"
	t.Cleanup(func() { logLevel = "" })

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
	assert.Nil(t, cfg)
}

func TestRootCmd_PersistentPreRunE_InvalidYAML(t *testing.T) {
	chdirConfig(t, "invalid: [yaml: bad")

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRootCmd_PersistentPostRun_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		rootCmd.PersistentPostRun(rootCmd, nil)
	})
}
