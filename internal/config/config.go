// Package config handles keyfit configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/keyfit/internal/errors"
	"github.com/HartBrook/keyfit/internal/oracle"
)

// Oracle providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"
)

// OracleConfig selects and tunes the rewrite oracle.
type OracleConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model,omitempty"`
	Timeout        string `yaml:"timeout,omitempty"`    // per call, e.g. "30s"
	MaxAttempts    int    `yaml:"max_attempts,omitempty"`
	BaseDelay      string `yaml:"base_delay,omitempty"` // first backoff, e.g. "500ms"
	MaxDelay       string `yaml:"max_delay,omitempty"`
	RetryUnchanged int    `yaml:"retry_unchanged,omitempty"` // extra asks when the reply still carries the unit
}

// OptimizerConfig bounds the optimization loop.
type OptimizerConfig struct {
	MaxIterations   int    `yaml:"max_iterations,omitempty"`
	HardCapAttempts int    `yaml:"hard_cap_attempts,omitempty"`
	Seed            uint64 `yaml:"seed,omitempty"`
	Concurrency     int    `yaml:"concurrency,omitempty"` // documents optimized at once in batch mode
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// CacheConfig contains result cache settings.
type CacheConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// HistoryConfig contains run history settings.
type HistoryConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// Config represents the keyfit configuration file.
type Config struct {
	Version int `yaml:"version"`

	Oracle    OracleConfig    `yaml:"oracle"`
	Optimizer OptimizerConfig `yaml:"optimizer"`

	// Lexicon adds synonyms tried before the built-in ones.
	Lexicon map[string][]string `yaml:"lexicon,omitempty"`

	// Fillers are extra regular expressions stripped during local edits.
	Fillers []string `yaml:"fillers,omitempty"`

	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
}

// Default values.
const (
	DefaultVersion         = 1
	DefaultProvider        = ProviderNone
	DefaultTimeout         = "30s"
	DefaultMaxAttempts     = 3
	DefaultBaseDelay       = "500ms"
	DefaultMaxDelay        = "8s"
	DefaultMaxIterations   = 100
	DefaultHardCapAttempts = 20
	DefaultSeed            = 1
	DefaultConcurrency     = 4
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
	providers  = []string{ProviderAnthropic, ProviderGemini, ProviderNone}
)

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates config from the default location.
func Load() (*Config, error) {
	paths := NewPaths()
	return LoadFrom(paths.ConfigFile)
}

// LoadFrom reads and validates config from a specific path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(errors.ErrConfigInvalid, "failed to read config", "", err)
	}
	return Parse(data)
}

// LoadOrDefault reads config from path, falling back to defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadFrom(path)
	if errors.Is(err, errors.ErrConfigNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes, defaults and validates config YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "failed to parse config YAML", "Check config syntax", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SaveTo writes config to a specific path.
func SaveTo(cfg *Config, path string) error {
	cfg.applyDefaults()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, "failed to marshal config", "", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, "failed to create config directory", "", err)
	}

	return os.WriteFile(path, data, DefaultFileMode)
}

// Validate checks config for valid values.
func (c *Config) Validate() error {
	if !slices.Contains(providers, c.Oracle.Provider) {
		return errors.ConfigInvalid(fmt.Sprintf("unknown oracle.provider %q (use anthropic, gemini or none)", c.Oracle.Provider))
	}

	for name, value := range map[string]string{
		"oracle.timeout":    c.Oracle.Timeout,
		"oracle.base_delay": c.Oracle.BaseDelay,
		"oracle.max_delay":  c.Oracle.MaxDelay,
	} {
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return errors.ConfigInvalid(fmt.Sprintf("invalid %s %q, use a positive Go duration (e.g., 2s)", name, value))
		}
	}

	switch {
	case c.Oracle.MaxAttempts < 1:
		return errors.ConfigInvalid("oracle.max_attempts must be at least 1")
	case c.Oracle.RetryUnchanged < 0:
		return errors.ConfigInvalid("oracle.retry_unchanged must not be negative")
	case c.Optimizer.MaxIterations < 1:
		return errors.ConfigInvalid("optimizer.max_iterations must be at least 1")
	case c.Optimizer.HardCapAttempts < 1:
		return errors.ConfigInvalid("optimizer.hard_cap_attempts must be at least 1")
	case c.Optimizer.Concurrency < 1:
		return errors.ConfigInvalid("optimizer.concurrency must be at least 1")
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		return errors.ConfigInvalid(fmt.Sprintf("unknown logging.level %q", c.Logging.Level))
	}
	if !slices.Contains(logFormats, c.Logging.Format) {
		return errors.ConfigInvalid(fmt.Sprintf("unknown logging.format %q (use console or json)", c.Logging.Format))
	}

	for _, p := range c.Fillers {
		if _, err := regexp.Compile(p); err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("invalid filler pattern %q: %v", p, err))
		}
	}

	return nil
}

// applyDefaults sets default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = DefaultVersion
	}
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = DefaultProvider
	}
	if c.Oracle.Timeout == "" {
		c.Oracle.Timeout = DefaultTimeout
	}
	if c.Oracle.MaxAttempts == 0 {
		c.Oracle.MaxAttempts = DefaultMaxAttempts
	}
	if c.Oracle.BaseDelay == "" {
		c.Oracle.BaseDelay = DefaultBaseDelay
	}
	if c.Oracle.MaxDelay == "" {
		c.Oracle.MaxDelay = DefaultMaxDelay
	}
	if c.Optimizer.MaxIterations == 0 {
		c.Optimizer.MaxIterations = DefaultMaxIterations
	}
	if c.Optimizer.HardCapAttempts == 0 {
		c.Optimizer.HardCapAttempts = DefaultHardCapAttempts
	}
	if c.Optimizer.Seed == 0 {
		c.Optimizer.Seed = DefaultSeed
	}
	if c.Optimizer.Concurrency == 0 {
		c.Optimizer.Concurrency = DefaultConcurrency
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Policy returns the oracle retry policy described by the config.
func (o *OracleConfig) Policy() oracle.Policy {
	p := oracle.DefaultPolicy()
	p.MaxAttempts = o.MaxAttempts
	p.Timeout = parseDuration(o.Timeout, DefaultTimeout)
	p.BaseDelay = parseDuration(o.BaseDelay, DefaultBaseDelay)
	p.MaxDelay = parseDuration(o.MaxDelay, DefaultMaxDelay)
	return p
}

// IsEnabled reports whether caching is on. It defaults to true.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsEnabled reports whether run history is recorded. It defaults to true.
func (h HistoryConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

func parseDuration(value, fallback string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}
