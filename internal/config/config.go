// Package config loads service configuration from YAML with environment
// overrides. A missing config file yields pure defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML round trips using the standard
// "30s" / "24h" notation.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// FetchConfig bounds remote resource downloads.
type FetchConfig struct {
	Timeout       Duration `yaml:"timeout"`
	MaxImageBytes int64    `yaml:"max_image_bytes"`
	MaxFontBytes  int64    `yaml:"max_font_bytes"`
}

// RenderConfig bounds the rendering pipeline.
type RenderConfig struct {
	MaxConcurrent int64 `yaml:"max_concurrent"`
	MaxTextWords  int   `yaml:"max_text_words"`
	UpscaleWidth  int   `yaml:"upscale_width"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config is the root service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// BaseURL is the public URL prefix used in returned image links.
	// Empty means links are derived from each request's Host header.
	BaseURL string `yaml:"base_url"`

	// OutputDir is where rendered images are stored.
	OutputDir string `yaml:"output_dir"`

	// StoreDB is the path of the render index database.
	StoreDB string `yaml:"store_db"`

	// RenderTTL is how long rendered images are kept. Zero keeps them
	// forever.
	RenderTTL Duration `yaml:"render_ttl"`

	// FontDir optionally names a directory of local fonts that requests
	// can reference by name instead of URL.
	FontDir string `yaml:"font_dir"`

	Fetch   FetchConfig   `yaml:"fetch"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Listen:    ":8080",
		OutputDir: "output",
		StoreDB:   "output/renders.db",
		RenderTTL: Duration(24 * time.Hour),
		Fetch: FetchConfig{
			Timeout:       Duration(30 * time.Second),
			MaxImageBytes: 16 << 20,
			MaxFontBytes:  8 << 20,
		},
		Render: RenderConfig{
			MaxConcurrent: 4,
			MaxTextWords:  2000,
			UpscaleWidth:  2000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist, and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets SHAPEFILL_* environment variables win over file
// values, which keeps container deployments configuration-file free.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SHAPEFILL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("SHAPEFILL_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("SHAPEFILL_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("SHAPEFILL_STORE_DB"); v != "" {
		c.StoreDB = v
	}
	if v := os.Getenv("SHAPEFILL_FONT_DIR"); v != "" {
		c.FontDir = v
	}
	if v := os.Getenv("SHAPEFILL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SHAPEFILL_RENDER_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RenderTTL = Duration(d)
		}
	}
	if v := os.Getenv("SHAPEFILL_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Render.MaxConcurrent = n
		}
	}
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config: output_dir is required")
	}
	if c.Render.MaxConcurrent <= 0 {
		return fmt.Errorf("config: render.max_concurrent must be positive")
	}
	if c.Fetch.MaxImageBytes <= 0 || c.Fetch.MaxFontBytes <= 0 {
		return fmt.Errorf("config: fetch size limits must be positive")
	}
	if c.RenderTTL < 0 {
		return fmt.Errorf("config: render_ttl cannot be negative")
	}
	return nil
}
