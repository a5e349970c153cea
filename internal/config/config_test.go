package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "mssql", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Pool.MaxSize)
	assert.Equal(t, 10, cfg.Pool.MaxOverflow)
	assert.Equal(t, "30s", cfg.Pool.AcquireTimeout)
	assert.Equal(t, "30m", cfg.Pool.RecycleAfter)
	assert.True(t, cfg.Pool.ValidateBeforeUse)
	assert.Equal(t, "1.0", cfg.Cache.FormatVersion)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.NoError(t, validateConfig(cfg))
}

func TestDefaultAliases(t *testing.T) {
	assert.Contains(t, DefaultTableAliases, "WmsDeliverynoteDetail")
	assert.Contains(t, DefaultTableAliases["WmsDeliverynoteDetail"], "送货单")
	assert.Contains(t, DefaultTableAliases, "MesMachineMaintain")
	assert.Contains(t, DefaultTableAliases["MesMachineMaintain"], "维修")
}

func TestLoadConfigFromFileJSON(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	testConfig := map[string]interface{}{
		"database": map[string]interface{}{
			"driver":   "sqlite",
			"server":   "ignored",
			"database": ":memory:",
		},
		"pool": map[string]interface{}{
			"max_size":        8,
			"acquire_timeout": "10s",
		},
		"logging": map[string]interface{}{
			"level":  "debug",
			"format": "json",
		},
	}

	data, err := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	config := DefaultConfig()
	require.NoError(t, loadConfigFromFile(config, configPath))

	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, ":memory:", config.Database.Database)
	assert.Equal(t, 8, config.Pool.MaxSize)
	assert.Equal(t, "10s", config.Pool.AcquireTimeout)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	// Untouched fields keep their defaults.
	assert.Equal(t, 10, config.Pool.MaxOverflow)
}

func TestLoadConfigFromFileYAML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	content := `
database:
  driver: postgres
  server: pg.internal
  port: 5433
  database: warehouse
selector:
  max_tables: 3
  aliases:
    Shipments: ["发货", "shipment"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	config := DefaultConfig()
	require.NoError(t, loadConfigFromFile(config, configPath))

	assert.Equal(t, "postgres", config.Database.Driver)
	assert.Equal(t, "pg.internal", config.Database.Server)
	assert.Equal(t, 5433, config.Database.Port)
	assert.Equal(t, "warehouse", config.Database.Database)
	assert.Equal(t, 3, config.Selector.MaxTables)
	assert.Equal(t, []string{"发货", "shipment"}, config.Selector.Aliases["Shipments"])
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0600))

	config := DefaultConfig()
	err := loadConfigFromFile(config, configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvironmentOverrides(t *testing.T) {
	// Point at a missing config file so only env vars apply.
	t.Setenv("ASKDB_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("ASKDB_DB_DRIVER", "mysql")
	t.Setenv("ASKDB_DB_SERVER", "db.internal")
	t.Setenv("ASKDB_DB_PORT", "3307")
	t.Setenv("ASKDB_DB_NAME", "erp")
	t.Setenv("ASKDB_POOL_MAX_SIZE", "7")
	t.Setenv("ASKDB_CACHE_FORMAT_VERSION", "2.0")
	t.Setenv("ASKDB_LOG_LEVEL", "warn")

	config, err := LoadConfigWithOverrides(nil)
	require.NoError(t, err)

	assert.Equal(t, "mysql", config.Database.Driver)
	assert.Equal(t, "db.internal", config.Database.Server)
	assert.Equal(t, 3307, config.Database.Port)
	assert.Equal(t, "erp", config.Database.Database)
	assert.Equal(t, 7, config.Pool.MaxSize)
	assert.Equal(t, "2.0", config.Cache.FormatVersion)
	assert.Equal(t, "warn", config.Logging.Level)
	// Unset values fall back to env defaults.
	assert.Equal(t, 10, config.Pool.MaxOverflow)
	assert.Equal(t, "deepseek", config.LLM.Provider)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := DefaultConfig()

	overrides := map[string]interface{}{
		"log-level": "error",
		"schema":    "/flag/tables.json",
		"cache-dir": "/flag/cache",
		"no-cache":  true,
	}

	require.NoError(t, applyFlagOverrides(config, overrides))

	assert.Equal(t, "error", config.Logging.Level)
	assert.Equal(t, "/flag/tables.json", config.Schema.Path)
	assert.Equal(t, "/flag/cache", config.Cache.Directory)
	assert.False(t, config.Cache.Enabled)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name          string
		modifyConfig  func(*Config)
		expectError   bool
		errorContains string
	}{
		{
			name:         "valid config",
			modifyConfig: func(_ *Config) {},
			expectError:  false,
		},
		{
			name: "invalid driver",
			modifyConfig: func(c *Config) {
				c.Database.Driver = "oracle"
			},
			expectError:   true,
			errorContains: "invalid database driver",
		},
		{
			name: "invalid log level",
			modifyConfig: func(c *Config) {
				c.Logging.Level = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log level",
		},
		{
			name: "invalid log format",
			modifyConfig: func(c *Config) {
				c.Logging.Format = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log format",
		},
		{
			name: "invalid log output",
			modifyConfig: func(c *Config) {
				c.Logging.Output = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log output",
		},
		{
			name: "invalid llm provider",
			modifyConfig: func(c *Config) {
				c.LLM.Provider = "invalid"
			},
			expectError:   true,
			errorContains: "invalid llm provider",
		},
		{
			name: "invalid embedding provider",
			modifyConfig: func(c *Config) {
				c.Embedding.Provider = "invalid"
			},
			expectError:   true,
			errorContains: "invalid embedding provider",
		},
		{
			name: "invalid acquire timeout",
			modifyConfig: func(c *Config) {
				c.Pool.AcquireTimeout = "invalid"
			},
			expectError:   true,
			errorContains: "invalid pool acquire timeout",
		},
		{
			name: "invalid recycle interval",
			modifyConfig: func(c *Config) {
				c.Pool.RecycleAfter = "invalid"
			},
			expectError:   true,
			errorContains: "invalid pool recycle interval",
		},
		{
			name: "invalid pool size",
			modifyConfig: func(c *Config) {
				c.Pool.MaxSize = 0
			},
			expectError:   true,
			errorContains: "pool max size must be positive",
		},
		{
			name: "negative overflow",
			modifyConfig: func(c *Config) {
				c.Pool.MaxOverflow = -1
			},
			expectError:   true,
			errorContains: "pool max overflow must not be negative",
		},
		{
			name: "zero max tables",
			modifyConfig: func(c *Config) {
				c.Selector.MaxTables = 0
			},
			expectError:   true,
			errorContains: "selector max tables must be positive",
		},
		{
			name: "empty format version",
			modifyConfig: func(c *Config) {
				c.Cache.FormatVersion = ""
			},
			expectError:   true,
			errorContains: "cache format version must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modifyConfig(config)

			err := validateConfig(config)
			if tt.expectError {
				assert.Error(t, err)

				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	db := DatabaseConfig{
		Driver:   "mssql",
		Server:   "db.example.com",
		Database: "warehouse",
		Username: "reader",
		Password: "hunter2",
	}

	out := db.Redacted()
	assert.Contains(t, out, "db.example.com")
	assert.Contains(t, out, "warehouse")
	assert.Contains(t, out, "sql-auth")
	assert.NotContains(t, out, "hunter2")

	db.TrustedConnection = true
	assert.Contains(t, db.Redacted(), "trusted-connection")
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "absolute path",
			input:    "/absolute/path",
			expected: "/absolute/path",
		},
		{
			name:     "relative path",
			input:    "relative/path",
			expected: "relative/path",
		},
		{
			name:     "home directory only",
			input:    "~",
			expected: os.Getenv("HOME"),
		},
		{
			name:     "home directory with path",
			input:    "~/config/file.json",
			expected: filepath.Join(os.Getenv("HOME"), "config/file.json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.expected == os.Getenv("HOME") && tt.expected == "" {
				t.Skip("HOME environment variable not set")
			}

			assert.Equal(t, tt.expected, expandPath(tt.input))
		})
	}
}

func TestConfigExpandAllPaths(t *testing.T) {
	config := &Config{
		Schema: SchemaConfig{
			Path: "~/schema/tables.json",
		},
		Cache: CacheConfig{
			Directory: "~/cache",
		},
		Logging: LoggingConfig{
			File: "~/logs/app.log",
		},
	}

	config.ExpandAllPaths()

	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		t.Skip("HOME environment variable not set")
	}

	assert.Equal(t, filepath.Join(homeDir, "schema/tables.json"), config.Schema.Path)
	assert.Equal(t, filepath.Join(homeDir, "cache"), config.Cache.Directory)
	assert.Equal(t, filepath.Join(homeDir, "logs/app.log"), config.Logging.File)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	tempConfigPath := filepath.Join(t.TempDir(), "test_config.json")
	t.Setenv("ASKDB_CONFIG", tempConfigPath)

	config := DefaultConfig()
	config.Database.Server = "db.internal"
	config.Logging.Level = "debug"

	require.NoError(t, SaveConfig(config))

	data, err := os.ReadFile(tempConfigPath)
	require.NoError(t, err)

	var loadedConfig Config
	require.NoError(t, json.Unmarshal(data, &loadedConfig))

	assert.Equal(t, "db.internal", loadedConfig.Database.Server)
	assert.Equal(t, "debug", loadedConfig.Logging.Level)
}

func TestSaveConfigToYAML(t *testing.T) {
	tempConfigPath := filepath.Join(t.TempDir(), "config.yaml")

	config := DefaultConfig()
	config.Database.Server = "yaml.internal"

	require.NoError(t, SaveConfigTo(config, tempConfigPath))

	loaded := DefaultConfig()
	require.NoError(t, loadConfigFromFile(loaded, tempConfigPath))
	assert.Equal(t, "yaml.internal", loaded.Database.Server)
}

func TestLoadConfigWithOverridesNoFile(t *testing.T) {
	t.Setenv("ASKDB_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	config, err := LoadConfigWithOverrides(nil)
	require.NoError(t, err)

	assert.Equal(t, "mssql", config.Database.Driver)
	assert.Equal(t, "info", config.Logging.Level)
	// Alias defaults kick in when nothing configures them.
	assert.Contains(t, config.Selector.Aliases, "WmsDeliverynoteDetail")
}

func TestMergeConfigs(t *testing.T) {
	target := DefaultConfig()
	source := &Config{
		Database: DatabaseConfig{
			Server:   "merged.internal",
			Database: "sales",
		},
		Logging: LoggingConfig{
			Level: "debug",
		},
	}

	mergeConfigs(target, source)

	assert.Equal(t, "merged.internal", target.Database.Server)
	assert.Equal(t, "sales", target.Database.Database)
	assert.Equal(t, "debug", target.Logging.Level)
	// Other values should remain from target.
	assert.Equal(t, "30s", target.Pool.AcquireTimeout)
	assert.Equal(t, "console", target.Logging.Format)
}
