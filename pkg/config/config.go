// Package config loads the proxy configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/intercept-cache/pkg/logging"
	"github.com/Sternrassler/intercept-cache/pkg/upstream"
)

// Environment variables that override file values.
const (
	EnvListenAddr    = "INTERCEPT_LISTEN_ADDR"
	EnvAdminAddr     = "INTERCEPT_ADMIN_ADDR"
	EnvRedisURL      = "REDIS_URL"
	EnvRedisPassword = "INTERCEPT_REDIS_PASSWORD"
	EnvRedisDB       = "INTERCEPT_REDIS_DB"
	EnvRedisDisabled = "INTERCEPT_REDIS_DISABLED"
	EnvLogLevel      = "INTERCEPT_LOG_LEVEL"
	EnvLogPretty     = "INTERCEPT_LOG_PRETTY"
)

// Config is the complete proxy configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the proxy and admin listeners.
type ServerConfig struct {
	// Listen is the forward-proxy address
	Listen string `yaml:"listen"`

	// Admin serves /health, /ready and /metrics. Empty disables it.
	Admin string `yaml:"admin"`

	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RedisConfig configures the shared cache tier.
type RedisConfig struct {
	// Enabled false runs the cache ephemeral-only
	Enabled bool `yaml:"enabled"`

	// Addr is host:port or a redis:// URL
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// UpstreamConfig configures the fetcher.
type UpstreamConfig struct {
	NavigationTimeout time.Duration `yaml:"navigationTimeout"`
	ResourceTimeout   time.Duration `yaml:"resourceTimeout"`
	MaxRedirects      int           `yaml:"maxRedirects"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:          ":8080",
			Admin:           ":9090",
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Enabled: true,
			Addr:    "localhost:6379",
		},
		Upstream: UpstreamConfig{
			NavigationTimeout: upstream.DefaultNavigationTimeout,
			ResourceTimeout:   upstream.DefaultResourceTimeout,
			MaxRedirects:      upstream.DefaultMaxRedirects,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (skipped
// when path is empty), then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment values. lookup is os.LookupEnv outside tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		c.Server.Listen = v
	}
	if v, ok := lookup(EnvAdminAddr); ok {
		c.Server.Admin = v
	}
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		c.Redis.Addr = v
	}
	if v, ok := lookup(EnvRedisPassword); ok {
		c.Redis.Password = v
	}
	if v, ok := lookup(EnvRedisDB); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRedisDB, err)
		}
		c.Redis.DB = db
	}
	if v, ok := lookup(EnvRedisDisabled); ok && v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRedisDisabled, err)
		}
		c.Redis.Enabled = !disabled
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogPretty); ok && v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogPretty, err)
		}
		c.Log.Pretty = pretty
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Listen) == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdownTimeout must not be negative"))
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db must not be negative, got %d", c.Redis.DB))
	}
	if c.Upstream.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("upstream.navigationTimeout must be positive"))
	}
	if c.Upstream.ResourceTimeout <= 0 {
		errs = append(errs, errors.New("upstream.resourceTimeout must be positive"))
	}
	if c.Upstream.MaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("upstream.maxRedirects must not be negative, got %d", c.Upstream.MaxRedirects))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// LogLevel returns the validated log level.
func (c Config) LogLevel() logging.LogLevel {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}
