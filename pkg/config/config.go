// Package config loads raven client configuration from an optional file
// and RAVEN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. RAVEN_DSN.
const EnvPrefix = "RAVEN"

// Transport kinds.
const (
	TransportHTTP   = "http"
	TransportSQLite = "sqlite"
	TransportMemory = "memory"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("raven: invalid config")

// Config holds everything needed to build a client.
type Config struct {
	DSN         string `mapstructure:"dsn"`
	ServerName  string `mapstructure:"server_name"`
	Release     string `mapstructure:"release"`
	Environment string `mapstructure:"environment"`

	Transport   string        `mapstructure:"transport"`
	ArchivePath string        `mapstructure:"archive_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	RateBurst   int           `mapstructure:"rate_burst"`
	Compress    bool          `mapstructure:"compress"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Transport:   TransportHTTP,
		ArchivePath: "raven.db",
		Timeout:     10 * time.Second,
		RateBurst:   1,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// New returns a viper instance with defaults and environment binding set
// up for raven keys.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("dsn", d.DSN)
	v.SetDefault("server_name", d.ServerName)
	v.SetDefault("release", d.Release)
	v.SetDefault("environment", d.Environment)
	v.SetDefault("transport", d.Transport)
	v.SetDefault("archive_path", d.ArchivePath)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("rate_burst", d.RateBurst)
	v.SetDefault("compress", d.Compress)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) on top of the defaults, applies RAVEN_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates a Config from v. It lets callers such as
// the CLI bind flags into v before decoding.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values. The DSN itself is parsed by the client.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportHTTP, TransportMemory:
	case TransportSQLite:
		if c.ArchivePath == "" {
			return fmt.Errorf("%w: archive_path is required for the sqlite transport", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: negative rate_limit", ErrInvalidConfig)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("%w: rate_burst must be at least 1", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
