package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	out, err := captureOutput(t, func() error {
		return runInit(path, false)
	})

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote starter configuration to "+path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"database"`)
	assert.Contains(t, string(content), `"pool"`)
}

func TestRunInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	_, err := captureOutput(t, func() error {
		return runInit(path, false)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRunInitForceOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	_, err := captureOutput(t, func() error {
		return runInit(path, true)
	})

	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"database"`)
}
