package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/recera/voyager/internal/cache"
	"github.com/recera/voyager/pkg/graph"
)

// FileName is the configuration file looked up in the project directory
const FileName = "voyager.yaml"

// Config represents the voyager.yaml configuration
type Config struct {
	// Path to the GraphQL SDL file
	Schema string `yaml:"schema,omitempty"`

	// How the type graph is built and drawn
	Display graph.DisplayOptions `yaml:"display"`

	Output OutputConfig `yaml:"output"`
	Cache  CacheConfig  `yaml:"cache"`
	Serve  ServeConfig  `yaml:"serve"`
	Watch  WatchConfig  `yaml:"watch"`
	Log    LogConfig    `yaml:"log"`
}

// OutputConfig controls rendered images
type OutputConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Path   string `yaml:"path"`
}

// CacheConfig controls the layout cache
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// Defaults to the user cache directory
	Dir string `yaml:"dir,omitempty"`

	// Bytes; 0 means unbounded
	MaxSize int64 `yaml:"maxSize,omitempty"`

	MaxAge time.Duration `yaml:"maxAge,omitempty"`

	// "lru" or "fifo"
	Strategy string `yaml:"strategy,omitempty"`
}

// ServeConfig contains the viewer server configuration
type ServeConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig controls schema file watching
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LogConfig controls log output
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Addr returns host:port
func (s ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheOptions converts the cache section into cache.Config
func (c CacheConfig) CacheOptions() (cache.Config, error) {
	opts := cache.DefaultConfig()
	if c.Dir != "" {
		opts.Dir = c.Dir
	}
	opts.MaxSize = c.MaxSize
	opts.MaxAge = c.MaxAge

	switch strings.ToLower(c.Strategy) {
	case "", "lru":
		opts.Strategy = cache.LRU
	case "fifo":
		opts.Strategy = cache.FIFO
	default:
		return opts, fmt.Errorf("unknown cache strategy %q", c.Strategy)
	}
	return opts, nil
}

// Load loads configuration from voyager.yaml in projectPath
func Load(projectPath string) (*Config, error) {
	return LoadFile(filepath.Join(projectPath, FileName))
}

// LoadFile loads configuration from path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}

	// Decoding over the defaults keeps every key the file leaves out
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Save writes configuration to voyager.yaml in projectPath
func Save(config *Config, projectPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectPath, FileName), data, 0644)
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("output size %dx%d must be positive", c.Output.Width, c.Output.Height)
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve port %d out of range", c.Serve.Port)
	}
	if _, err := c.Cache.CacheOptions(); err != nil {
		return err
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Display: *graph.DefaultDisplayOptions(),
		Output: OutputConfig{
			Width:  1600,
			Height: 1000,
			Path:   "schema.png",
		},
		Cache: CacheConfig{
			Enabled:  true,
			Strategy: "lru",
			MaxSize:  64 << 20,
			MaxAge:   7 * 24 * time.Hour,
		},
		Serve: ServeConfig{
			Host: "localhost",
			Port: 8080,
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyDefaults fills settings the file cleared explicitly
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Output.Path == "" {
		config.Output.Path = defaults.Output.Path
	}
	if config.Serve.Host == "" {
		config.Serve.Host = defaults.Serve.Host
	}
	if config.Serve.Port == 0 {
		config.Serve.Port = defaults.Serve.Port
	}
	if config.Watch.Debounce <= 0 {
		config.Watch.Debounce = defaults.Watch.Debounce
	}
	if config.Log.Level == "" {
		config.Log.Level = defaults.Log.Level
	}
	if config.Log.Format == "" {
		config.Log.Format = defaults.Log.Format
	}
}
