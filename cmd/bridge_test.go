package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/errors"
)

func TestPoolDescriptor(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Server = "db.example.com"
	cfg.Database.Database = "Sales"
	cfg.Database.Username = "reader"
	cfg.Database.Password = "hunter2"
	cfg.Database.Encrypt = true

	desc := poolDescriptor(cfg)

	assert.Equal(t, "mssql", desc.Driver)
	assert.Equal(t, "db.example.com", desc.Server)
	assert.Equal(t, "Sales", desc.Database)
	assert.Equal(t, "reader", desc.Username)
	assert.Equal(t, "hunter2", desc.Password)
	assert.True(t, desc.Encrypt)
	assert.True(t, desc.TrustServerCertificate)
	assert.NotContains(t, desc.Redacted(), "hunter2")
}

func TestPoolConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	pcfg, err := poolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, 5, pcfg.MaxSize)
	assert.Equal(t, 10, pcfg.MaxOverflow)
	assert.Equal(t, 30*time.Second, pcfg.AcquireTimeout)
	assert.Equal(t, 30*time.Minute, pcfg.RecycleAfter)
	assert.True(t, pcfg.ValidateBeforeUse)
}

func TestPoolConfigInvalidDuration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pool.AcquireTimeout = "soon"

	_, err := poolConfig(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestLLMConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	lcfg, err := llmConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "deepseek", lcfg.Provider)
	assert.Equal(t, "deepseek-chat", lcfg.Model)
	assert.Equal(t, 120*time.Second, lcfg.Timeout)
}

func TestLLMConfigInvalidTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Timeout = "eventually"

	_, err := llmConfig(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}
