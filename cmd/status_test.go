package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askdb/askdb/internal/pool"
)

func TestRunStatusUninitialized(t *testing.T) {
	manager := pool.NewManager(zap.NewNop())
	defer manager.Close()

	desc := pool.Descriptor{
		Driver:   "mssql",
		Server:   "db.example.com",
		Database: "Sales",
		Username: "reporting",
		Password: "hunter2",
	}

	out, err := captureOutput(t, func() error {
		return runStatus(manager, desc)
	})

	require.NoError(t, err)
	assert.Contains(t, out, "Target: mssql://db.example.com/Sales (sql-auth)")
	assert.Contains(t, out, "state: uninitialized")
	assert.NotContains(t, out, "hunter2")
}
