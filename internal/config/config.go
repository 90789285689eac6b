package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Environment variables (optionally from a .env file) override
// file values after loading.

var ErrEmptyPath = errors.New("config path is empty")

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LogConfig controls log level and the optional rotating log file.
type LogConfig struct {
	Level      string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// CaptureConfig controls periodic PNG snapshots of the dashboard page.
type CaptureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Refresh is the cron schedule for captures (e.g. "*/15 * * * *").
	Refresh    string `yaml:"refresh" json:"refresh" validate:"cron_spec"`
	Output     string `yaml:"output" json:"output" validate:"required"`
	Width      int    `yaml:"width" json:"width" validate:"gte=0"`
	Height     int    `yaml:"height" json:"height" validate:"gte=0"`
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec" validate:"gte=0"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Timezone is the IANA timezone of the viewer (e.g. "Asia/Seoul").
	// Empty means detect from the environment at startup.
	Timezone string `yaml:"timezone" json:"timezone" validate:"iana_zone"`

	// RefreshCron is a cron-style schedule string used to re-sample the
	// clock. The default fires at the top of every minute.
	RefreshCron string `yaml:"refresh" json:"refresh" validate:"cron_spec"`

	// Catalog is an optional path to a YAML catalog replacing the
	// built-in week.
	Catalog string `yaml:"catalog" json:"catalog"`

	// RateLimit is the per-IP request budget per second for the HTTP API.
	RateLimit int `yaml:"rate_limit" json:"rate_limit" validate:"gt=0"`

	Log     LogConfig     `yaml:"log" json:"log"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultRefreshCron = "* * * * *"
	defaultRateLimit   = 20
	defaultLogLevel    = "info"
	defaultCaptureCron = "*/15 * * * *"
	defaultCaptureOut  = "./cache/preview.png"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    "",
		RefreshCron: defaultRefreshCron,
		RateLimit:   defaultRateLimit,
		Log: LogConfig{
			Level:      defaultLogLevel,
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Capture: CaptureConfig{
			Enabled:    false,
			Refresh:    defaultCaptureCron,
			Output:     defaultCaptureOut,
			TimeoutSec: 30,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRateLimit
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Capture.Refresh == "" {
		c.Capture.Refresh = defaultCaptureCron
	}
	if c.Capture.Output == "" {
		c.Capture.Output = defaultCaptureOut
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = 30
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("iana_zone", validateTimezone)
	_ = v.RegisterValidation("cron_spec", validateCron)
	return v
}

// validateTimezone accepts empty (auto-detect) or a loadable IANA name.
func validateTimezone(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return true
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

func validateCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// Validate checks field constraints after Normalize.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//   - Environment overrides are applied and the result validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile reads KEY=VALUE pairs from path into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides file values with ALOS_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("ALOS_LISTEN")); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("ALOS_TIMEZONE")); v != "" {
		c.Timezone = v
	}
	if v := strings.TrimSpace(os.Getenv("ALOS_LOG_LEVEL")); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("ALOS_CATALOG")); v != "" {
		c.Catalog = v
	}
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".alos-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// CaptureTimeout is the capture timeout as a duration.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Capture.TimeoutSec) * time.Second
}
