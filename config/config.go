// Package config loads the quire configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/iw2rmb/quire/document"
	"github.com/iw2rmb/quire/internal/textenc"
)

// Store kinds
const (
	StoreFile   = "file"
	StoreBadger = "badger"
	StoreGCS    = "gcs"
	StoreMemory = "memory"
)

type Config struct {
	Autosave AutosaveConfig `yaml:"autosave"`

	// Encoding is the preferred encoding; empty adopts what the store reports.
	Encoding string `yaml:"encoding,omitempty" validate:"omitempty,encoding"`

	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Watch   WatchConfig   `yaml:"watch"`
	Tracing bool          `yaml:"tracing"`
}

type AutosaveConfig struct {
	Mode  string        `yaml:"mode" validate:"oneof=off after_delay"`
	Delay time.Duration `yaml:"delay" validate:"gte=0s"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" validate:"oneof=file badger gcs memory"`

	// Root resolves relative file resources.
	Root string `yaml:"root,omitempty"`

	// Path is the badger database directory.
	Path string `yaml:"path,omitempty" validate:"required_if=Kind badger"`

	Bucket      string `yaml:"bucket,omitempty" validate:"required_if=Kind gcs"`
	Prefix      string `yaml:"prefix,omitempty"`
	Credentials string `yaml:"credentials,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty" validate:"required_if=Enabled true,omitempty,hostname_port"`
}

type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce" validate:"gte=0s"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("encoding", validateEncoding)
}

func validateEncoding(fl validator.FieldLevel) bool {
	_, err := textenc.Canonical(fl.Field().String())
	return err == nil
}

func Default() Config {
	return Config{
		Autosave: AutosaveConfig{Mode: "off", Delay: document.DefaultAutosaveDelay},
		Store:    StoreConfig{Kind: StoreFile},
		Log:      LogConfig{Level: "info"},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:9464"},
		Watch:    WatchConfig{Enabled: true, Debounce: 100 * time.Millisecond},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/quire/quire.yaml or its platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user config directory: %w", err)
	}
	return filepath.Join(dir, "quire", "quire.yaml"), nil
}

// Load reads path over the defaults. A missing file at the default path is
// not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DocumentOptions maps the configuration to controller options for resource.
func (c Config) DocumentOptions(resource string) document.Options {
	opts := document.DefaultOptions()
	opts.Resource = resource
	opts.Encoding = c.Encoding
	opts.Tracing = c.Tracing
	if c.Autosave.Mode == "after_delay" {
		opts.Autosave = document.AutosaveAfterDelay
	}
	if c.Autosave.Delay > 0 {
		opts.AutosaveDelay = c.Autosave.Delay
	}
	return opts
}

func (c Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
