package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFilename is the config file looked up in the working directory.
const DefaultFilename = "tablero.yml"

// DefaultWorkspace is the board used when nothing else names one.
const DefaultWorkspace = "sigma-main"

// Environment overrides
const (
	EnvWorkspace = "TABLERO_WORKSPACE"
	EnvRedisURL  = "REDIS_URL"
)

// TableroConfig represents the top-level tablero.yml configuration
type TableroConfig struct {
	Version   string         `yaml:"version"`
	Workspace string         `yaml:"workspace,omitempty"`
	Store     *StoreConfig   `yaml:"store,omitempty"`
	Cache     *CacheConfig   `yaml:"cache,omitempty"`
	Sync      *SyncConfig    `yaml:"sync,omitempty"`
	Health    *HealthConfig  `yaml:"health,omitempty"`
	Logging   *LoggingConfig `yaml:"logging,omitempty"`
	Catalog   *CatalogConfig `yaml:"catalog,omitempty"`
}

// StoreConfig locates the shared store
type StoreConfig struct {
	RedisURL    string   `yaml:"redis_url,omitempty"`
	PushTimeout Duration `yaml:"push_timeout,omitempty"` // Bound on a single push (default 5s)
}

// CacheConfig selects the local cache backend
type CacheConfig struct {
	Backend string `yaml:"backend,omitempty"` // "badger" (default) or "file"
	Path    string `yaml:"path,omitempty"`
}

// SyncConfig tunes the push side of synchronization
type SyncConfig struct {
	MetaDebounce Duration `yaml:"meta_debounce,omitempty"` // Quiet period before a meta field is pushed (default 450ms)
}

// HealthConfig configures the serve command's HTTP endpoints
type HealthConfig struct {
	Addr string `yaml:"addr,omitempty"` // Empty disables the server
}

// LoggingConfig configures the slog handler
type LoggingConfig struct {
	Format string `yaml:"format,omitempty"` // "json" (default) or "text"
	Level  string `yaml:"level,omitempty"`  // debug, info (default), warn, error
}

// CatalogConfig lists the rows, columns and statuses of the board
type CatalogConfig struct {
	Staged    bool           `yaml:"staged"` // Split every platform into actual/siguiente
	Platforms []string       `yaml:"platforms"`
	Items     []string       `yaml:"items"`
	Statuses  []StatusOption `yaml:"statuses,omitempty"`
}

// StatusOption describes how a status is shown
type StatusOption struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Color string `yaml:"color,omitempty"` // green, red, yellow, blue or empty
}

// Duration is a time.Duration written as "450ms" / "5s" in YAML
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in Go notation.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Defaults
const (
	DefaultRedisURL     = "redis://localhost:6379"
	DefaultPushTimeout  = 5 * time.Second
	DefaultMetaDebounce = 450 * time.Millisecond
	DefaultCacheBackend = "badger"
	DefaultCachePath    = ".tablero/cache"
	DefaultLogFormat    = "json"
	DefaultLogLevel     = "info"
)

// Validate performs validation on the configuration and fills in defaults for omitted sections
func (c *TableroConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Workspace == "" {
		c.Workspace = DefaultWorkspace
	}

	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if c.Store.RedisURL == "" {
		c.Store.RedisURL = DefaultRedisURL
	}
	if c.Store.PushTimeout == 0 {
		c.Store.PushTimeout = Duration(DefaultPushTimeout)
	}
	if c.Store.PushTimeout < 0 {
		return fmt.Errorf("store.push_timeout must be positive, got %s", c.Store.PushTimeout.Std())
	}

	if c.Cache == nil {
		c.Cache = &CacheConfig{}
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = DefaultCacheBackend
	}
	if c.Cache.Backend != "badger" && c.Cache.Backend != "file" {
		return fmt.Errorf("invalid cache.backend: %s (must be 'badger' or 'file')", c.Cache.Backend)
	}
	if c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath
	}

	if c.Sync == nil {
		c.Sync = &SyncConfig{}
	}
	if c.Sync.MetaDebounce == 0 {
		c.Sync.MetaDebounce = Duration(DefaultMetaDebounce)
	}
	if c.Sync.MetaDebounce < 0 {
		return fmt.Errorf("sync.meta_debounce must be positive, got %s", c.Sync.MetaDebounce.Std())
	}

	if c.Health == nil {
		c.Health = &HealthConfig{}
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging.format: %s (must be 'json' or 'text')", c.Logging.Format)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s (must be 'debug', 'info', 'warn' or 'error')", c.Logging.Level)
	}

	if c.Catalog == nil {
		c.Catalog = DefaultCatalog()
	}
	return c.Catalog.Validate()
}

// Validate checks the catalog for empty and duplicate entries
func (c *CatalogConfig) Validate() error {
	if len(c.Platforms) == 0 {
		return fmt.Errorf("catalog: no platforms defined")
	}
	if len(c.Items) == 0 {
		return fmt.Errorf("catalog: no items defined")
	}

	if err := unique("platform", c.Platforms); err != nil {
		return err
	}
	if err := unique("item", c.Items); err != nil {
		return err
	}

	if len(c.Statuses) == 0 {
		c.Statuses = DefaultStatuses()
	}
	keys := make([]string, 0, len(c.Statuses))
	for _, s := range c.Statuses {
		if s.Key == "" {
			return fmt.Errorf("catalog: status key is required")
		}
		keys = append(keys, s.Key)
	}
	return unique("status", keys)
}

// Status returns the option for a status key
func (c *CatalogConfig) Status(key string) (StatusOption, bool) {
	for _, s := range c.Statuses {
		if s.Key == key {
			return s, true
		}
	}
	return StatusOption{}, false
}

func unique(kind string, values []string) error {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" {
			return fmt.Errorf("catalog: empty %s name", kind)
		}
		if seen[v] {
			return fmt.Errorf("catalog: duplicate %s '%s'", kind, v)
		}
		seen[v] = true
	}
	return nil
}

// ApplyEnv overrides values from the environment
func (c *TableroConfig) ApplyEnv() {
	if ws := os.Getenv(EnvWorkspace); ws != "" {
		c.Workspace = ws
	}
	if url := os.Getenv(EnvRedisURL); url != "" {
		if c.Store == nil {
			c.Store = &StoreConfig{}
		}
		c.Store.RedisURL = url
	}
}

// Default returns a validated configuration with every default applied
func Default() *TableroConfig {
	c := &TableroConfig{Version: "1.0"}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return c
}

// Load reads and validates tablero.yml from the specified path
func Load(path string) (*TableroConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config TableroConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path if it exists and falls back to Default otherwise.
// Environment overrides apply in both cases.
func LoadOrDefault(path string) (*TableroConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c := Default()
		c.ApplyEnv()
		return c, nil
	}
	return Load(path)
}
