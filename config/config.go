// Package config loads event service settings from TOML or YAML files
// with an environment-variable overlay, renders them as construction
// options, and watches the file for live reload.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/dshills/eventbus"
	"github.com/dshills/eventbus/selector"
)

// ErrUnknownFormat is returned for config files whose extension is
// neither .toml nor .yaml/.yml.
var ErrUnknownFormat = errors.New("unknown config format")

// Config holds the file-configurable settings of an event service.
type Config struct {
	Cache  CacheConfig  `toml:"cache" yaml:"cache"`
	Timing TimingConfig `toml:"timing" yaml:"timing"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// CacheConfig sets cache sizes. Per-type sizes have no file form; set
// those in code.
type CacheConfig struct {
	DefaultSize int            `toml:"default_size" yaml:"default_size"`
	Topics      map[string]int `toml:"topics" yaml:"topics"`
	Patterns    []PatternSize  `toml:"patterns" yaml:"patterns"`
}

// PatternSize sets a cache size for every topic matching a pattern.
type PatternSize struct {
	Pattern string `toml:"pattern" yaml:"pattern"`
	Size    int    `toml:"size" yaml:"size"`
}

// TimingConfig controls per-call timing instrumentation.
type TimingConfig struct {
	// Threshold is a time.ParseDuration string; empty disables timing.
	Threshold string `toml:"threshold" yaml:"threshold"`

	// LogRecords subscribes the built-in timing-record logger.
	LogRecords bool `toml:"log_records" yaml:"log_records"`
}

// LogConfig controls the service logger.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{Log: LogConfig{Level: "warn"}}
}

// Load reads path, applies the environment overlay, and validates. A
// missing file is not an error; defaults plus the environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		switch ext := filepath.Ext(path); ext {
		case ".toml":
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, ext)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays EVENTBUS_* environment variables on top of the file
// values. Unparseable numbers are ignored.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("EVENTBUS_CACHE_DEFAULT_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.DefaultSize = n
		}
	}
	if v, ok := os.LookupEnv("EVENTBUS_TIMING_THRESHOLD"); ok {
		c.Timing.Threshold = v
	}
	if v, ok := os.LookupEnv("EVENTBUS_TIMING_LOG"); ok {
		c.Timing.LogRecords = v == "true" || v == "1"
	}
	if v, ok := os.LookupEnv("EVENTBUS_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

// Validate checks sizes, pattern expressions, the timing threshold, and
// the log level.
func (c *Config) Validate() error {
	if c.Cache.DefaultSize < 0 {
		return fmt.Errorf("cache.default_size must not be negative: %d", c.Cache.DefaultSize)
	}
	for topic, size := range c.Cache.Topics {
		if size < 0 {
			return fmt.Errorf("cache size for topic %q must not be negative: %d", topic, size)
		}
	}
	for _, ps := range c.Cache.Patterns {
		if ps.Size < 0 {
			return fmt.Errorf("cache size for pattern %q must not be negative: %d", ps.Pattern, ps.Size)
		}
		if _, err := regexp.Compile(ps.Pattern); err != nil {
			return fmt.Errorf("cache pattern %q: %w", ps.Pattern, err)
		}
	}
	if _, err := c.Timing.Duration(); err != nil {
		return fmt.Errorf("timing.threshold: %w", err)
	}
	if _, err := c.Log.ParseLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Duration parses the timing threshold. Empty means timing disabled.
func (t TimingConfig) Duration() (time.Duration, error) {
	if t.Threshold == "" {
		return 0, nil
	}
	return time.ParseDuration(t.Threshold)
}

// ParseLevel parses the log level. Empty means warn.
func (l LogConfig) ParseLevel() (zerolog.Level, error) {
	if l.Level == "" {
		return zerolog.WarnLevel, nil
	}
	return zerolog.ParseLevel(l.Level)
}

// Options renders the configuration as construction options for
// eventbus.New, logging through log at the configured level.
func (c *Config) Options(log zerolog.Logger) ([]eventbus.Option, error) {
	lvl, err := c.Log.ParseLevel()
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	opts := []eventbus.Option{eventbus.WithLogger(log.Level(lvl))}
	if c.Cache.DefaultSize > 0 {
		opts = append(opts, eventbus.WithDefaultCacheSize(c.Cache.DefaultSize))
	}
	threshold, err := c.Timing.Duration()
	if err != nil {
		return nil, fmt.Errorf("timing.threshold: %w", err)
	}
	if threshold > 0 {
		opts = append(opts, eventbus.WithTimingThreshold(threshold))
	}
	if c.Timing.LogRecords {
		opts = append(opts, eventbus.WithTimingLog())
	}
	return opts, nil
}

// Apply pushes per-topic and per-pattern cache sizes to a running bus.
// Options covers the settings New accepts; Apply covers the rest.
func (c *Config) Apply(bus eventbus.Bus) error {
	for topic, size := range c.Cache.Topics {
		bus.SetCacheSizeForTopic(topic, size)
	}
	for _, ps := range c.Cache.Patterns {
		re, err := regexp.Compile(ps.Pattern)
		if err != nil {
			return fmt.Errorf("cache pattern %q: %w", ps.Pattern, err)
		}
		bus.SetCacheSizeForPattern(selector.Pattern(re), ps.Size)
	}
	return nil
}
