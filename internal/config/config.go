// Package config loads the service configuration from a YAML file,
// MAPPER_* environment variables and built-in defaults, in that order of
// increasing precedence for the environment.
package config

import (
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MAPPER_SERVER_ADDR.
const EnvPrefix = "MAPPER"

// Store backends.
const (
	BackendSQLite  = "sqlite"
	BackendMemory  = "memory"
	BackendGraphDB = "graphdb"
)

// Config is the whole service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store"`
	GraphDB  GraphDBConfig  `mapstructure:"graphdb"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig locates the SQLite file holding entities and documents.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StoreConfig selects where records are read from and written to. Entities
// and documents always live in the database.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// GraphDBConfig reaches the external model store used by the graphdb backend.
type GraphDBConfig struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
}

// ExecutorConfig tunes job execution. Workers zero means GOMAXPROCS; a
// negative MaxFanOut disables the fan-out cap.
type ExecutorConfig struct {
	Workers        int     `mapstructure:"workers"`
	MaxFailureRate float64 `mapstructure:"max_failure_rate"`
	MinRecords     int     `mapstructure:"min_records"`
	MaxFanOut      int     `mapstructure:"max_fan_out"`
}

// LogConfig selects the log level and the text or json format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default value. Keys must be
// known to viper for environment overrides to apply on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.path", "mapper.db")
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("graphdb.url", "")
	v.SetDefault("graphdb.timeout", 30*time.Second)
	v.SetDefault("graphdb.page_size", 500)
	v.SetDefault("executor.workers", 0)
	v.SetDefault("executor.max_failure_rate", 0.5)
	v.SetDefault("executor.min_records", 10)
	v.SetDefault("executor.max_fan_out", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. An empty file means defaults and
// environment only.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	backends := []string{BackendSQLite, BackendMemory, BackendGraphDB}
	if !slices.Contains(backends, c.Store.Backend) {
		return errors.Newf("store.backend must be one of %s, got %q", strings.Join(backends, ", "), c.Store.Backend)
	}

	if c.Store.Backend == BackendGraphDB && c.GraphDB.URL == "" {
		return errors.New("graphdb.url is required for the graphdb backend")
	}

	if c.Executor.MaxFailureRate < 0 || c.Executor.MaxFailureRate > 1 {
		return errors.Newf("executor.max_failure_rate must be within [0, 1], got %v", c.Executor.MaxFailureRate)
	}

	if c.Executor.Workers < 0 {
		return errors.Newf("executor.workers must not be negative, got %d", c.Executor.Workers)
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.Newf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}
