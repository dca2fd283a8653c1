package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents a post-build action document.
type Config struct {
	Version     string            `yaml:"version" toml:"version" validate:"required,semver"`
	Name        string            `yaml:"name" toml:"name" validate:"required,min=1,max=100"`
	Description string            `yaml:"description,omitempty" toml:"description,omitempty"`
	Variables   map[string]string `yaml:"variables,omitempty" toml:"variables,omitempty" validate:"omitempty,dive,keys,var_name,endkeys"`
	Settings    Settings          `yaml:"settings,omitempty" toml:"settings,omitempty"`
	Actions     []ActionConfig    `yaml:"actions" toml:"actions" validate:"required,min=1,dive"`
}

// Settings holds defaults applied to every action that does not override them.
type Settings struct {
	DefaultOnFailure string   `yaml:"default_on_failure,omitempty" toml:"default_on_failure,omitempty" validate:"omitempty,policy"`
	DefaultTimeout   Duration `yaml:"default_timeout,omitempty" toml:"default_timeout,omitempty" validate:"duration"`
}

// ActionConfig declares one external tool invocation attached to a build target.
type ActionConfig struct {
	Target      string            `yaml:"target" toml:"target" validate:"required,target_name"`
	Name        string            `yaml:"name,omitempty" toml:"name,omitempty" validate:"omitempty,max=100"`
	Command     []string          `yaml:"command" toml:"command" validate:"required,min=1,dive,required"`
	Description string            `yaml:"description,omitempty" toml:"description,omitempty"`
	OnFailure   string            `yaml:"on_failure,omitempty" toml:"on_failure,omitempty" validate:"omitempty,policy"`
	Stdout      string            `yaml:"stdout,omitempty" toml:"stdout,omitempty"`
	Dir         string            `yaml:"dir,omitempty" toml:"dir,omitempty"`
	Env         map[string]string `yaml:"env,omitempty" toml:"env,omitempty" validate:"omitempty,dive,keys,var_name,endkeys"`
	Glob        bool              `yaml:"glob,omitempty" toml:"glob,omitempty"`
	Timeout     Duration          `yaml:"timeout,omitempty" toml:"timeout,omitempty" validate:"duration"`
	Enabled     *bool             `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
}

// IsEnabled reports whether the action should be registered. Actions are enabled unless
// explicitly disabled.
func (a ActionConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Duration is a time.Duration written as a Go duration string such as "30s".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std converts to time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
