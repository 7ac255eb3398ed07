package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dshills/loom/internal/option"
)

// ErrInvalidConfig is returned when a config fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Optional extensions and presets that can be enabled on top of the core
// preset.
const (
	EnableFormatting = "formatting"
	EnableCodeBlock  = "codeBlock"
	EnableDropCursor = "dropCursor"
	EnablePersist    = "persist"
)

// Config is the complete loom configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Document DocumentConfig `yaml:"document"`

	// Enable lists the optional extensions and presets to add.
	Enable []string `yaml:"enable,omitempty" validate:"unique,dive,oneof=formatting codeBlock dropCursor persist"`

	// Options holds option values keyed by extension or preset name.
	Options map[string]map[string]any `yaml:"options,omitempty"`

	// Exclude is the manager-wide "exclude" default.
	Exclude map[string]bool `yaml:"exclude,omitempty"`

	Scripts []ScriptConfig `yaml:"scripts,omitempty" validate:"dive"`
}

// LogConfig configures the zap logger and its lumberjack rotation.
type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"maxSize" validate:"gte=0"`    // megabytes
	MaxBackups int    `yaml:"maxBackups" validate:"gte=0"` // files
	MaxAge     int    `yaml:"maxAge" validate:"gte=0"`     // days
	Compress   bool   `yaml:"compress"`
}

// StoreConfig configures the snapshot store. An empty path disables it.
type StoreConfig struct {
	Path     string `yaml:"path"`
	Debounce int    `yaml:"debounce" validate:"gte=0"` // milliseconds
}

// DocumentConfig names the document being edited.
type DocumentConfig struct {
	ID     string `yaml:"id"`
	Source string `yaml:"source"`
}

// ScriptConfig adds a Lua scripted extension.
type ScriptConfig struct {
	Name    string `yaml:"name" validate:"required"`
	File    string `yaml:"file" validate:"required_without=Source"`
	Source  string `yaml:"source"`
	Timeout int    `yaml:"timeout" validate:"gte=0"` // milliseconds
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		},
		Store: StoreConfig{Debounce: 1000},
	}
}

// Enabled reports whether name is in Enable.
func (c *Config) Enabled(name string) bool {
	for _, e := range c.Enable {
		if e == name {
			return true
		}
	}
	return false
}

// OptionsFor returns the configured options of an extension or preset.
func (c *Config) OptionsFor(name string) option.Values {
	return option.Values(c.Options[name]).Clone()
}

// Globals returns the manager-wide option defaults.
func (c *Config) Globals() option.Values {
	if len(c.Exclude) == 0 {
		return nil
	}
	exclude := make(map[string]any, len(c.Exclude))
	for k, v := range c.Exclude {
		exclude[k] = v
	}
	return option.Values{"exclude": exclude}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
