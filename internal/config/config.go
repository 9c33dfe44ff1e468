// Package config loads trim settings from defaults, a TOML file and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/linuxmatters/jivetrim/internal/audio"
	"github.com/linuxmatters/jivetrim/internal/logging"
	"github.com/linuxmatters/jivetrim/internal/processor"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "JIVETRIM_"

// ErrInvalidConfig is returned when a loaded or overridden value is out of range
var ErrInvalidConfig = errors.New("config: invalid configuration")

var validate = validator.New()

// Config holds every user-tunable setting.
// Environment variables use the env tag name with EnvPrefix, e.g. JIVETRIM_THRESHOLD_DB.
type Config struct {
	// Trim settings
	ThresholdDB        float64 `toml:"threshold_db" env:"THRESHOLD_DB, overwrite" validate:"gte=-100,lte=0"`
	AutoThreshold      bool    `toml:"auto_threshold" env:"AUTO_THRESHOLD, overwrite"`
	MinSilenceDuration float64 `toml:"min_silence" env:"MIN_SILENCE, overwrite" validate:"gte=0,lte=60"` // seconds
	SilenceMargin      float64 `toml:"margin" env:"MARGIN, overwrite" validate:"gte=0,lte=10"`          // seconds

	// Analysis settings
	ResolutionMs int `toml:"resolution_ms" env:"RESOLUTION_MS, overwrite" validate:"gte=10,lte=5000"`

	// Output settings
	Format       string `toml:"format" env:"FORMAT, overwrite" validate:"oneof=wav mp3 flac"`
	BitrateKbps  int    `toml:"bitrate_kbps" env:"BITRATE_KBPS, overwrite" validate:"gte=32,lte=320"`
	OutputSuffix string `toml:"output_suffix" env:"OUTPUT_SUFFIX, overwrite" validate:"required,excludesall=/"`
	TempDir      string `toml:"temp_dir" env:"TEMP_DIR, overwrite"`

	// Logging settings
	LogFormat string `toml:"log_format" env:"LOG_FORMAT, overwrite" validate:"oneof=text json"`
	LogLevel  string `toml:"log_level" env:"LOG_LEVEL, overwrite" validate:"oneof=debug info warn warning error"`
}

// Overrides carries values set explicitly on the command line. Nil fields are left alone.
type Overrides struct {
	ThresholdDB        *float64
	AutoThreshold      *bool
	MinSilenceDuration *float64
	SilenceMargin      *float64
	ResolutionMs       *int
	Format             *string
	BitrateKbps        *int
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		ThresholdDB:        processor.DefaultThresholdDB,
		MinSilenceDuration: processor.DefaultMinSilenceDuration,
		SilenceMargin:      processor.DefaultSilenceMargin,
		ResolutionMs:       processor.DefaultResolutionMs,
		Format:             audio.FormatWAV,
		BitrateKbps:        128,
		OutputSuffix:       processor.DefaultOutputSuffix,
		LogFormat:          "text",
		LogLevel:           "info",
	}
}

// Load builds a Config from the defaults, the optional TOML file at path and
// JIVETRIM_* environment variables, in that order. It does not validate; call
// Validate once command-line overrides have been applied.
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWithLookuper(ctx, path, envconfig.OsLookuper())
}

// LoadWithLookuper is Load with a custom environment source
func LoadWithLookuper(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
		}
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.Format = strings.ToLower(cfg.Format)
	return cfg, nil
}

// Apply copies every non-nil override into c
func (c *Config) Apply(o Overrides) {
	if o.ThresholdDB != nil {
		c.ThresholdDB = *o.ThresholdDB
	}
	if o.AutoThreshold != nil {
		c.AutoThreshold = *o.AutoThreshold
	}
	if o.MinSilenceDuration != nil {
		c.MinSilenceDuration = *o.MinSilenceDuration
	}
	if o.SilenceMargin != nil {
		c.SilenceMargin = *o.SilenceMargin
	}
	if o.ResolutionMs != nil {
		c.ResolutionMs = *o.ResolutionMs
	}
	if o.Format != nil {
		c.Format = strings.ToLower(*o.Format)
	}
	if o.BitrateKbps != nil {
		c.BitrateKbps = *o.BitrateKbps
	}
}

// Validate checks every setting against its allowed range
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// TrimConfig projects the trim settings
func (c *Config) TrimConfig() processor.TrimConfig {
	return processor.TrimConfig{
		ThresholdDB:        c.ThresholdDB,
		MinSilenceDuration: c.MinSilenceDuration,
		SilenceMargin:      c.SilenceMargin,
	}
}

// Options projects the per-file processing options
func (c *Config) Options() processor.Options {
	return processor.Options{
		ResolutionMs:  c.ResolutionMs,
		Trim:          c.TrimConfig(),
		AutoThreshold: c.AutoThreshold,
		Output: audio.EncodeOptions{
			Format:      c.Format,
			BitrateKbps: c.BitrateKbps,
		},
		OutputSuffix: c.OutputSuffix,
	}
}

// NewLogger creates a structured logger writing to w at the configured format and level
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return logging.NewLogger(c.LogFormat, c.LogLevel, w)
}

// String returns a one-line summary of the settings
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{ThresholdDB: %.1f, AutoThreshold: %t, MinSilence: %.2fs, Margin: %.2fs, Resolution: %dms, Format: %s, Bitrate: %dk, Suffix: %s, LogFormat: %s, LogLevel: %s}",
		c.ThresholdDB,
		c.AutoThreshold,
		c.MinSilenceDuration,
		c.SilenceMargin,
		c.ResolutionMs,
		c.Format,
		c.BitrateKbps,
		c.OutputSuffix,
		c.LogFormat,
		c.LogLevel,
	)
}
