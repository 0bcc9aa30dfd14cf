package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/alvmarrod/spydey/internal/frontier"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultTraversal      = string(frontier.BreadthFirst)
	DefaultTimeoutSeconds = 30
	DefaultProfileSize    = 20
	DefaultLogLevel       = "info"
	DefaultUserAgent      = "spydey/1.0"
)

// Config holds all runtime configuration parameters
type Config struct {
	SeedURL        string   `json:"seed_url" yaml:"seed_url"`
	Traversal      string   `json:"traversal" yaml:"traversal"`
	Recursive      bool     `json:"recursive" yaml:"recursive"`
	PageRequisites bool     `json:"page_requisites" yaml:"page_requisites"`
	NoParent       bool     `json:"no_parent" yaml:"no_parent"`
	SpanHosts      bool     `json:"span_hosts" yaml:"span_hosts"`
	Accept         []string `json:"accept" yaml:"accept"`
	Reject         []string `json:"reject" yaml:"reject"`
	MaxRequests    int      `json:"max_requests" yaml:"max_requests"`
	Wait           float64  `json:"wait" yaml:"wait"`               // seconds
	RandomWait     float64  `json:"random_wait" yaml:"random_wait"` // seconds, waits 0..2*RandomWait
	TimeoutSeconds int      `json:"timeout" yaml:"timeout"`         // 0 means no timeout
	Profile        bool     `json:"profile" yaml:"profile"`
	ProfileSize    int      `json:"profile_size" yaml:"profile_size"`
	LogReferrer    bool     `json:"log_referrer" yaml:"log_referrer"`
	LogLevel       string   `json:"log_level" yaml:"log_level"`
	UserAgent      string   `json:"user_agent" yaml:"user_agent"`
	DBPath         string   `json:"db_path" yaml:"db_path"`
	MetricsPath    string   `json:"metrics_path" yaml:"metrics_path"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{TimeoutSeconds: DefaultTimeoutSeconds}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads configuration from a JSON or YAML file (by extension) on
// top of the defaults. Validation is left to the caller so that command-line
// flags can be applied first.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	// Apply defaults for missing values
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.Traversal == "" {
		cfg.Traversal = DefaultTraversal
	}
	if cfg.ProfileSize == 0 {
		cfg.ProfileSize = DefaultProfileSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
}

// Validate checks that required fields are present and values are sensible
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeedURL
	}
	u, err := url.Parse(c.SeedURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeedURL, c.SeedURL)
	}
	if _, err := frontier.ParseStrategy(c.Traversal); err != nil {
		return fmt.Errorf("invalid traversal: %w", err)
	}
	if c.MaxRequests < 0 {
		return ErrInvalidMaxRequests
	}
	if c.Wait < 0 || c.RandomWait < 0 {
		return ErrInvalidWait
	}
	if c.TimeoutSeconds < 0 {
		return ErrInvalidTimeout
	}
	if c.ProfileSize < 1 {
		return ErrInvalidProfileSize
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogLevel, err)
	}
	if _, err := CompilePatterns(c.Accept); err != nil {
		return fmt.Errorf("invalid accept pattern: %w", err)
	}
	if _, err := CompilePatterns(c.Reject); err != nil {
		return fmt.Errorf("invalid reject pattern: %w", err)
	}
	return nil
}

// Strategy returns the parsed traversal strategy
func (c *Config) Strategy() (frontier.Strategy, error) {
	return frontier.ParseStrategy(c.Traversal)
}

// WaitDuration returns the fixed inter-fetch delay
func (c *Config) WaitDuration() time.Duration {
	return seconds(c.Wait)
}

// RandomWaitDuration returns the half-range of the randomized inter-fetch delay
func (c *Config) RandomWaitDuration() time.Duration {
	return seconds(c.RandomWait)
}

// Timeout returns the transport timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CompilePatterns compiles a list of regular expressions
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
