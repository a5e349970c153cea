package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `json:"database"  yaml:"database"`
	Pool      PoolConfig      `json:"pool"      yaml:"pool"`
	Schema    SchemaConfig    `json:"schema"    yaml:"schema"`
	Cache     CacheConfig     `json:"cache"     yaml:"cache"`
	Selector  SelectorConfig  `json:"selector"  yaml:"selector"`
	LLM       LLMConfig       `json:"llm"       yaml:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Logging   LoggingConfig   `json:"logging"   yaml:"logging"`
}

// DatabaseConfig describes the target database connection. The password is
// never logged; callers must go through Redacted for display.
type DatabaseConfig struct {
	Driver                 string `json:"driver"                   yaml:"driver"                   env:"DB_DRIVER"                   envDefault:"mssql"`
	Server                 string `json:"server"                   yaml:"server"                   env:"DB_SERVER"                   envDefault:"localhost"`
	Port                   int    `json:"port"                     yaml:"port"                     env:"DB_PORT"                     envDefault:"0"`
	Database               string `json:"database"                 yaml:"database"                 env:"DB_NAME"`
	Username               string `json:"username"                 yaml:"username"                 env:"DB_USER"`
	Password               string `json:"password"                 yaml:"password"                 env:"DB_PASSWORD"`
	TrustedConnection      bool   `json:"trusted_connection"       yaml:"trusted_connection"       env:"DB_TRUSTED_CONNECTION"       envDefault:"false"`
	Encrypt                bool   `json:"encrypt"                  yaml:"encrypt"                  env:"DB_ENCRYPT"                  envDefault:"false"`
	TrustServerCertificate bool   `json:"trust_server_certificate" yaml:"trust_server_certificate" env:"DB_TRUST_SERVER_CERTIFICATE" envDefault:"true"`
}

// PoolConfig tunes the connection pool. Durations are strings so they
// round-trip through JSON/YAML config files; validation parses them.
type PoolConfig struct {
	MaxSize           int    `json:"max_size"            yaml:"max_size"            env:"POOL_MAX_SIZE"            envDefault:"5"`
	MaxOverflow       int    `json:"max_overflow"        yaml:"max_overflow"        env:"POOL_MAX_OVERFLOW"        envDefault:"10"`
	AcquireTimeout    string `json:"acquire_timeout"     yaml:"acquire_timeout"     env:"POOL_ACQUIRE_TIMEOUT"     envDefault:"30s"`
	RecycleAfter      string `json:"recycle_after"       yaml:"recycle_after"       env:"POOL_RECYCLE_AFTER"       envDefault:"30m"`
	ValidateBeforeUse bool   `json:"validate_before_use" yaml:"validate_before_use" env:"POOL_VALIDATE_BEFORE_USE" envDefault:"true"`
}

// SchemaConfig locates the schema source file
type SchemaConfig struct {
	Path string `json:"path" yaml:"path" env:"SCHEMA_PATH" envDefault:"./tables.json"`
}

// CacheConfig configures the schema artifact cache
type CacheConfig struct {
	Enabled       bool   `json:"enabled"        yaml:"enabled"        env:"CACHE_ENABLED"        envDefault:"true"`
	Directory     string `json:"directory"      yaml:"directory"      env:"CACHE_DIR"            envDefault:"~/.askdb/cache"`
	FormatVersion string `json:"format_version" yaml:"format_version" env:"CACHE_FORMAT_VERSION" envDefault:"1.0"`
}

// SelectorConfig tunes table-relevance selection. Aliases maps a canonical
// table name to the domain phrases that identify it in user questions; it is
// file-config only (no env form) and falls back to DefaultTableAliases.
type SelectorConfig struct {
	MaxTables int                 `json:"max_tables" yaml:"max_tables" env:"SELECTOR_MAX_TABLES" envDefault:"5"`
	Aliases   map[string][]string `json:"aliases"    yaml:"aliases"`
}

// LLMConfig configures the language-model client
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider" env:"LLM_PROVIDER" envDefault:"deepseek"`
	Model    string `json:"model"    yaml:"model"    env:"LLM_MODEL"    envDefault:"deepseek-chat"`
	APIKey   string `json:"api_key"  yaml:"api_key"  env:"LLM_API_KEY"`
	BaseURL  string `json:"base_url" yaml:"base_url" env:"LLM_BASE_URL"`
	Timeout  string `json:"timeout"  yaml:"timeout"  env:"LLM_TIMEOUT"  envDefault:"120s"`
}

// EmbeddingConfig configures per-table embedding generation for cached
// artifacts. Disabled by default; enabling requires a reachable provider.
type EmbeddingConfig struct {
	Provider string `json:"provider" yaml:"provider" env:"EMBEDDING_PROVIDER" envDefault:"disabled"`
	Model    string `json:"model"    yaml:"model"    env:"EMBEDDING_MODEL"    envDefault:"nomic-embed-text"`
	BaseURL  string `json:"base_url" yaml:"base_url" env:"EMBEDDING_BASE_URL" envDefault:"http://localhost:11434"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  yaml:"level"  env:"LOG_LEVEL"  envDefault:"info"`    // debug, info, warn, error
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT" envDefault:"console"` // console, json
	Output string `json:"output" yaml:"output" env:"LOG_OUTPUT" envDefault:"stderr"`  // stdout, stderr, file
	File   string `json:"file"   yaml:"file"   env:"LOG_FILE"   envDefault:"~/.askdb/logs/askdb.log"`
}

// DefaultTableAliases is the built-in alias map used when no aliases are
// configured. Keys are canonical table names, values the phrases a user
// question may contain.
var DefaultTableAliases = map[string][]string{
	"WmsDeliverynoteDetail": {"送货单", "送货明细", "送货单明细", "送货"},
	"MesMachineMaintain":    {"设备维修", "维修记录", "设备维修记录", "维修"},
}

// DefaultConfig returns the built-in defaults, matching what env parsing
// produces with no environment set. Used by `askdb init` scaffolding.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:                 "mssql",
			Server:                 "localhost",
			TrustServerCertificate: true,
		},
		Pool: PoolConfig{
			MaxSize:           5,
			MaxOverflow:       10,
			AcquireTimeout:    "30s",
			RecycleAfter:      "30m",
			ValidateBeforeUse: true,
		},
		Schema: SchemaConfig{Path: "./tables.json"},
		Cache: CacheConfig{
			Enabled:       true,
			Directory:     "~/.askdb/cache",
			FormatVersion: "1.0",
		},
		Selector: SelectorConfig{
			MaxTables: 5,
			Aliases:   DefaultTableAliases,
		},
		LLM: LLMConfig{
			Provider: "deepseek",
			Model:    "deepseek-chat",
			Timeout:  "120s",
		},
		Embedding: EmbeddingConfig{
			Provider: "disabled",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
			File:   "~/.askdb/logs/askdb.log",
		},
	}
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides using env library (also sets defaults)
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "ASKDB_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Apply command-line flag overrides
	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if len(config.Selector.Aliases) == 0 {
		config.Selector.Aliases = DefaultTableAliases
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON or YAML file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &fileConfig); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "schema":
			if str, ok := value.(string); ok && str != "" {
				config.Schema.Path = str
			}
		case "cache-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Cache.Directory = str
			}
		case "no-cache":
			if b, ok := value.(bool); ok && b {
				config.Cache.Enabled = false
			}
		}
	}

	return nil
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := 0; i < s.NumField(); i++ {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validDrivers := map[string]bool{
		"mssql": true, "postgres": true, "mysql": true, "sqlite": true, "duckdb": true,
	}
	if !validDrivers[strings.ToLower(config.Database.Driver)] {
		return fmt.Errorf(
			"invalid database driver: %s (must be mssql, postgres, mysql, sqlite, or duckdb)",
			config.Database.Driver,
		)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"console": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be console or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	validProviders := map[string]bool{
		"deepseek": true, "openai": true, "ollama": true,
	}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf(
			"invalid llm provider: %s (must be deepseek, openai, or ollama)",
			config.LLM.Provider,
		)
	}

	validEmbedding := map[string]bool{
		"disabled": true, "ollama": true,
	}
	if !validEmbedding[strings.ToLower(config.Embedding.Provider)] {
		return fmt.Errorf(
			"invalid embedding provider: %s (must be disabled or ollama)",
			config.Embedding.Provider,
		)
	}

	if _, err := time.ParseDuration(config.Pool.AcquireTimeout); err != nil {
		return fmt.Errorf("invalid pool acquire timeout: %s", config.Pool.AcquireTimeout)
	}

	if _, err := time.ParseDuration(config.Pool.RecycleAfter); err != nil {
		return fmt.Errorf("invalid pool recycle interval: %s", config.Pool.RecycleAfter)
	}

	if _, err := time.ParseDuration(config.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid llm timeout: %s", config.LLM.Timeout)
	}

	if config.Pool.MaxSize <= 0 {
		return fmt.Errorf("pool max size must be positive: %d", config.Pool.MaxSize)
	}

	if config.Pool.MaxOverflow < 0 {
		return fmt.Errorf("pool max overflow must not be negative: %d", config.Pool.MaxOverflow)
	}

	if config.Selector.MaxTables <= 0 {
		return fmt.Errorf("selector max tables must be positive: %d", config.Selector.MaxTables)
	}

	if config.Cache.FormatVersion == "" {
		return fmt.Errorf("cache format version must not be empty")
	}

	return nil
}

// Redacted returns a display form of the connection descriptor with the
// password masked.
func (d DatabaseConfig) Redacted() string {
	auth := "sql-auth"
	if d.TrustedConnection {
		auth = "trusted-connection"
	}

	return fmt.Sprintf("%s://%s/%s (%s)", d.Driver, d.Server, d.Database, auth)
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	return SaveConfigTo(config, getConfigPath())
}

// SaveConfigTo saves configuration to an explicit path, choosing JSON or
// YAML by extension.
func SaveConfigTo(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	// Check for custom config path from environment
	if configPath := os.Getenv("ASKDB_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	dir := GetConfigDir()
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return filepath.Join(dir, "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Schema.Path = expandPath(c.Schema.Path)
	c.Cache.Directory = expandPath(c.Cache.Directory)
	c.Logging.File = expandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/askdb"
	}

	return filepath.Join(homeDir, ".config", "askdb")
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Cache.Directory,
		filepath.Dir(c.Logging.File),
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
