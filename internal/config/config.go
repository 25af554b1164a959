// Package config loads railtopo settings.
//
// Settings come from three layers, later layers winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML or YAML file, chosen by extension
//  3. RAILTOPO_* environment variables, optionally read from a .env file
//
// The merged result is validated before use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/railtopo/pkg/errors"
)

// AppName names the configuration and cache directories.
const AppName = "railtopo"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the complete application configuration.
type Config struct {
	Log     LogConfig     `toml:"log" yaml:"log"`
	Cache   CacheConfig   `toml:"cache" yaml:"cache"`
	Convert ConvertConfig `toml:"convert" yaml:"convert"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `toml:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend string `toml:"backend" yaml:"backend" validate:"oneof=file redis none"`
	Dir     string `toml:"dir" yaml:"dir" validate:"required_if=Backend file"`
	TTL     string `toml:"ttl" yaml:"ttl" validate:"duration"`

	RedisAddr     string `toml:"redis_addr" yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int    `toml:"redis_db" yaml:"redis_db" validate:"gte=0"`
}

// TTLDuration returns the parsed TTL. It assumes a validated config.
func (c CacheConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// ConvertConfig holds defaults for conversion commands.
type ConvertConfig struct {
	// Format is the default render format.
	Format string `toml:"format" yaml:"format" validate:"oneof=dot svg"`
	// Detailed labels diagram edges with port names.
	Detailed bool `toml:"detailed" yaml:"detailed"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string `toml:"addr" yaml:"addr" validate:"required"`
	ReadTimeout     string `toml:"read_timeout" yaml:"read_timeout" validate:"duration"`
	ShutdownTimeout string `toml:"shutdown_timeout" yaml:"shutdown_timeout" validate:"duration"`
	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes" yaml:"max_body_bytes" validate:"gt=0"`
	// AllowedOrigins enables CORS for browser clients when non-empty.
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins" validate:"dive,required"`
}

// ReadTimeoutDuration returns the parsed read timeout.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.ReadTimeout)
	return d
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.ShutdownTimeout)
	return d
}

// Default returns the built-in configuration.
func Default() *Config {
	dir, err := CacheDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), AppName)
	}
	return &Config{
		Log: LogConfig{Level: "info"},
		Cache: CacheConfig{
			Backend: BackendFile,
			Dir:     dir,
			TTL:     "24h",
		},
		Convert: ConvertConfig{Format: "svg"},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "30s",
			ShutdownTimeout: "10s",
			MaxBodyBytes:    32 << 20,
		},
	}
}

// CacheDir returns the cache directory following the XDG convention
// (~/.cache/railtopo unless XDG_CACHE_HOME is set).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// DefaultPath returns the config file consulted when no path is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName, "config.toml"), nil
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path selects [DefaultPath], which may be absent;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	// A missing .env file is the normal case.
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := Decode(data, filepath.Ext(path), cfg); err != nil {
				return nil, err
			}
		case os.IsNotExist(err) && !explicit:
		case os.IsNotExist(err):
			return nil, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	ApplyEnv(cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode merges data into cfg. ext is a file extension such as ".toml",
// ".yaml" or ".yml".
func Decode(data []byte, ext string, cfg *Config) error {
	var err error
	switch strings.ToLower(ext) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q", ext)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	return nil
}

// ApplyEnv overrides cfg from RAILTOPO_* variables found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup("RAILTOPO_" + key); ok && v != "" {
			*dst = v
		}
	}
	set("LOG_LEVEL", &cfg.Log.Level)
	set("CACHE_BACKEND", &cfg.Cache.Backend)
	set("CACHE_DIR", &cfg.Cache.Dir)
	set("CACHE_TTL", &cfg.Cache.TTL)
	set("REDIS_ADDR", &cfg.Cache.RedisAddr)
	set("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	set("SERVER_ADDR", &cfg.Server.Addr)
	set("RENDER_FORMAT", &cfg.Convert.Format)
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("duration", validDuration); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "register validation")
	}
	if err := v.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid config")
	}
	return nil
}

func validDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}
