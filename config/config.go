// Package config provides YAML configuration parsing for pulsewatch.
//
// This package enables running pulsewatch as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Edge reachability
//	port: 8080
//	timeout: 3s
//	interval: 10s
//	concurrency: 4
//	refresh_mode: full
//
//	urls:
//	  - https://example.com
//	  - https://${API_HOST:-api.example.com}/health
//
//	urls_file: urls.txt
//
//	log:
//	  level: info
//	  format: json
//	  file: /var/log/pulsewatch.log
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/pulsewatch"
)

// ErrNoURLs is returned when configuration yields no URLs to monitor.
var ErrNoURLs = pulsewatch.ErrNoURLs

const (
	defaultPort        = 8080
	defaultTimeout     = 3 * time.Second
	defaultInterval    = 10 * time.Second
	defaultConcurrency = 1
	defaultRefreshMode = "full"
	defaultLogLevel    = "info"
	defaultLogFormat   = "json"
)

// Config is the root configuration structure for pulsewatch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load], [Parse] or [Default] to create a Config.
type Config struct {
	// Title is the dashboard title. Defaults to "pulsewatch" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// URLs is the ordered list of URLs to monitor.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URLs []string `yaml:"urls"`

	// URLsFile is a newline-separated URL list, appended after URLs.
	// Relative paths are resolved against the config file's directory.
	URLsFile string `yaml:"urls_file"`

	// Timeout bounds each probe. Defaults to 3s.
	Timeout Duration `yaml:"timeout" validate:"min=100ms,max=1m"`

	// Interval is the pause after each cycle completes. Defaults to 10s.
	Interval Duration `yaml:"interval" validate:"min=1s,max=1h"`

	// Concurrency is the number of probes in flight within a cycle.
	// Defaults to 1 (sequential).
	Concurrency int `yaml:"concurrency" validate:"min=1,max=100"`

	// RefreshMode selects what cycles after the first re-probe:
	// "full" (every URL) or "skip-healthy". Defaults to "full".
	RefreshMode string `yaml:"refresh_mode" validate:"oneof=full skip-healthy"`

	// UserAgent overrides the probe User-Agent header.
	UserAgent string `yaml:"user_agent"`

	// Log configures the CLI logger.
	Log LogConfig `yaml:"log"`
}

// LogConfig configures logging output and rotation.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`

	// File enables rotating file output in addition to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"min=0"`
	MaxBackups int    `yaml:"max_backups" validate:"min=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"min=0"`
	Compress   bool   `yaml:"compress"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns a Config with every default applied and no URLs.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file, then reads urls_file.
//
// Returns [ErrNoURLs] if neither urls nor urls_file yields a URL.
func Load(path string) (*Config, error) {
	cfg, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.requireURLSource(); err != nil {
		return nil, err
	}
	if err := cfg.loadURLsFile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSettings reads and parses a YAML configuration file without requiring
// or reading URLs. A relative urls_file is resolved against the directory of
// path but not opened. Use it when the URL list comes from elsewhere.
func LoadSettings(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}

	if cfg.URLsFile != "" && !filepath.IsAbs(cfg.URLsFile) {
		cfg.URLsFile = filepath.Join(filepath.Dir(path), cfg.URLsFile)
	}
	return cfg, nil
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL values. Defaults are applied
// before validation. urls_file is recorded but not read; see [Load].
func Parse(data []byte) (*Config, error) {
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.requireURLSource(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) requireURLSource() error {
	if len(c.URLs) == 0 && c.URLsFile == "" {
		return fmt.Errorf("%w: set urls or urls_file", ErrNoURLs)
	}
	return nil
}

// Validate checks field constraints, for configs built or modified in code.
func (c *Config) Validate() error {
	return validateStruct(c)
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(defaultTimeout)
	}
	if c.Interval == 0 {
		c.Interval = Duration(defaultInterval)
	}
	if c.Concurrency == 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.RefreshMode == "" {
		c.RefreshMode = defaultRefreshMode
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
}

// expandAndValidate expands environment variables and validates the config.
//
// URLs are deliberately not checked for well-formedness: a malformed URL is
// reported as a probe error at runtime, not as a startup failure.
func (c *Config) expandAndValidate() error {
	for i, u := range c.URLs {
		expanded, err := expandEnvVars(u)
		if err != nil {
			return fmt.Errorf("urls[%d]: %w", i, err)
		}
		c.URLs[i] = expanded
	}

	if c.URLsFile != "" {
		expanded, err := expandEnvVars(c.URLsFile)
		if err != nil {
			return fmt.Errorf("urls_file: %w", err)
		}
		c.URLsFile = expanded
	}

	return validateStruct(c)
}

// loadURLsFile appends the contents of URLsFile to URLs.
func (c *Config) loadURLsFile() error {
	if c.URLsFile != "" {
		fileURLs, err := ReadURLList(c.URLsFile)
		if err != nil {
			return err
		}
		c.URLs = append(c.URLs, fileURLs...)
	}
	if len(c.URLs) == 0 {
		return ErrNoURLs
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}
