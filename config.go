package kcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/runtime/kernel"
	"github.com/viant/kcore/service/meta"
)

// Config is a serialisable representation of the kernel configuration. It is
// usually loaded from YAML; fields left out keep their DefaultConfig values.
type Config struct {
	Kernel kernel.Config `json:"kernel" yaml:"kernel"`
	Log    LogConfig     `json:"log" yaml:"log"`
	Boot   BootConfig    `json:"boot" yaml:"boot"`
	Trace  TraceConfig   `json:"trace" yaml:"trace"`
	Events EventsConfig  `json:"events" yaml:"events"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
}

// BootConfig describes the init process.
type BootConfig struct {
	Shell    string   `json:"shell" yaml:"shell"`
	Priority uint8    `json:"priority" yaml:"priority"`
	Script   []string `json:"script,omitempty" yaml:"script,omitempty"`
	// Manifest is a YAML document with further script lines, resolved by the meta service.
	Manifest    string `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Interactive bool   `json:"interactive" yaml:"interactive"`
}

type TraceConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Output  string `json:"output,omitempty" yaml:"output,omitempty"`
}

type EventsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Buffer  int  `json:"buffer" yaml:"buffer"`
}

// Manifest lists boot script lines.
type Manifest struct {
	Lines []string `json:"lines" yaml:"lines"`
}

// DefaultConfig returns the configuration used when nothing is loaded.
func DefaultConfig() *Config {
	return &Config{
		Kernel: kernel.DefaultConfig(),
		Log:    LogConfig{Level: "info"},
		Boot:   BootConfig{Shell: "sh", Priority: process.MaxPriority},
		Events: EventsConfig{Buffer: 1024},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if err := c.Kernel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if c.Boot.Shell == "" {
		errs = append(errs, fmt.Errorf("boot.shell is required"))
	}
	if c.Boot.Priority > process.MaxPriority {
		errs = append(errs, fmt.Errorf("boot.priority must be <= %d", process.MaxPriority))
	}
	if c.Events.Enabled && c.Events.Buffer <= 0 {
		errs = append(errs, fmt.Errorf("events.buffer must be > 0"))
	}
	return errors.Join(errs...)
}

func (l LogConfig) level() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level: unsupported level %q", l.Level)
}

// SlogLevel returns the configured level, info when unset or unknown.
func (l LogConfig) SlogLevel() slog.Level {
	ret, _ := l.level()
	return ret
}

// LoadConfig decodes the YAML document at location over DefaultConfig and validates it.
func LoadConfig(ctx context.Context, metaService *meta.Service, location string) (*Config, error) {
	ret := DefaultConfig()
	if err := metaService.Load(ctx, location, ret); err != nil {
		return nil, err
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", metaService.URL(location), err)
	}
	return ret, nil
}
