// Package config loads backdrop settings from defaults, a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/backdrop/internal/batch"
	"github.com/jmylchreest/backdrop/internal/colour"
	"github.com/jmylchreest/backdrop/internal/compositor"
	"github.com/jmylchreest/backdrop/internal/security"
)

const (
	// DefaultListen is the address the HTTP API binds to.
	DefaultListen = "127.0.0.1:8080"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	fileName = "config.yaml"
	appDir   = "backdrop"
)

// Config holds backdrop settings.
type Config struct {
	Opacity       int           `yaml:"opacity"`
	Background    string        `yaml:"background"`
	Debounce      time.Duration `yaml:"debounce"`
	ExportSpacing time.Duration `yaml:"export_spacing"`
	Workers       int           `yaml:"workers"`
	MaxPixels     int           `yaml:"max_pixels"`
	Listen        string        `yaml:"listen"`
	OutputDir     string        `yaml:"output_dir"`
	LogLevel      string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Opacity:       batch.DefaultOpacity,
		Background:    batch.DefaultBackground,
		Debounce:      batch.DefaultDebounce,
		ExportSpacing: batch.DefaultExportSpacing,
		Workers:       runtime.NumCPU(),
		MaxPixels:     compositor.DefaultMaxPixels,
		Listen:        DefaultListen,
		OutputDir:     ".",
		LogLevel:      DefaultLogLevel,
	}
}

// DefaultPath returns the per-user config file location, honouring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appDir, fileName)
}

// Validate clamps opacity and normalises the background. It rejects values
// that cannot be corrected.
func (c *Config) Validate() error {
	c.Opacity = security.ClampInt(c.Opacity, compositor.MinOpacity, compositor.MaxOpacity)

	bg, err := colour.NormaliseHex(c.Background)
	if err != nil {
		return fmt.Errorf("background: %w", err)
	}
	c.Background = bg

	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce)
	}
	if c.ExportSpacing < 0 {
		return fmt.Errorf("export_spacing cannot be negative, got %s", c.ExportSpacing)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("max_pixels must be positive, got %d", c.MaxPixels)
	}
	if c.Listen == "" {
		return errors.New("listen address cannot be empty")
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Params returns the initial compositing parameters.
func (c *Config) Params() batch.Params {
	return batch.Params{Background: c.Background, Opacity: c.Opacity}
}

// Builder provides a fluent interface for assembling a Config.
type Builder struct {
	config       Config
	path         string
	requireFile  bool
	useEnv       bool
	lookupEnvVar func(string) (string, bool)
}

// NewBuilder creates a Builder seeded with Default().
func NewBuilder() *Builder {
	return &Builder{
		config:       Default(),
		lookupEnvVar: os.LookupEnv,
	}
}

// WithConfig replaces the base configuration.
func (b *Builder) WithConfig(config Config) *Builder {
	b.config = config
	return b
}

// WithFile layers a YAML file over the base configuration. An empty path
// selects DefaultPath, and a missing default file is ignored. A path given
// explicitly must exist.
func (b *Builder) WithFile(path string) *Builder {
	if path == "" {
		b.path = DefaultPath()
		b.requireFile = false
		return b
	}
	b.path = path
	b.requireFile = true
	return b
}

// WithEnvConfig layers BACKDROP_* environment variables over the file.
func (b *Builder) WithEnvConfig() *Builder {
	b.useEnv = true
	return b
}

// Build applies every layer and validates the result.
func (b *Builder) Build() (*Config, error) {
	config := b.config

	if b.path != "" {
		if err := loadFile(b.path, b.requireFile, &config); err != nil {
			return nil, err
		}
	}

	if b.useEnv {
		if err := applyEnv(b.lookupEnvVar, &config); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func loadFile(path string, required bool, config *Config) error {
	data, err := os.ReadFile(path) // #nosec G304 - config path is user-specified
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(lookup func(string) (string, bool), config *Config) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("BACKDROP_BACKGROUND", &config.Background)
	str("BACKDROP_LISTEN", &config.Listen)
	str("BACKDROP_OUTPUT_DIR", &config.OutputDir)
	str("BACKDROP_LOG_LEVEL", &config.LogLevel)

	return errors.Join(
		num("BACKDROP_OPACITY", &config.Opacity),
		num("BACKDROP_WORKERS", &config.Workers),
		num("BACKDROP_MAX_PIXELS", &config.MaxPixels),
		dur("BACKDROP_DEBOUNCE", &config.Debounce),
		dur("BACKDROP_EXPORT_SPACING", &config.ExportSpacing),
	)
}
