// Package config loads procwatch settings from an optional file and the
// environment. Configuration is read only; nothing is written back.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. PROCWATCH_INTERVAL=2s.
const EnvPrefix = "PROCWATCH"

// Default logging configuration constants
const (
	DefaultLogLevel   = "info"
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// FileConfig is the top-level structure of a procwatch config file.
//
//	interval = "5s"
//
//	[[targets]]
//	name = "nginx"
//	command = "/usr/sbin/nginx -g 'daemon off;'"
//
//	[log]
//	file = "/var/tmp/procwatch.log"
type FileConfig struct {
	Interval time.Duration  `mapstructure:"interval"`
	Targets  []TargetConfig `mapstructure:"targets"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	History  HistoryConfig  `mapstructure:"history"`
}

// TargetConfig is one watch target entry.
type TargetConfig struct {
	Name    string `mapstructure:"name"`
	Command string `mapstructure:"command"`
}

// LogConfig controls the operational log. Rotation parameters follow
// lumberjack semantics.
type LogConfig struct {
	File       string `mapstructure:"file"` // empty logs to stderr
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the endpoint
}

// HistoryConfig controls the encrypted event history.
type HistoryConfig struct {
	Dir string `mapstructure:"dir"` // empty disables history
}

// Default returns the configuration used when no file is given.
func Default() *FileConfig {
	return &FileConfig{
		Interval: 5 * time.Second,
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
			MaxAgeDays: DefaultMaxAgeDays,
		},
	}
}

// Load reads path (TOML, YAML or JSON by extension) layered over defaults
// and PROCWATCH_* environment variables. An empty path reads only the
// environment.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("interval", d.Interval)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("history.dir", "")
}

// Validate checks the interval and every target.
func (c *FileConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	for i, t := range c.Targets {
		if t.Name == "" || strings.TrimSpace(t.Command) == "" {
			return fmt.Errorf("targets[%d]: %w", i, domain.ErrInvalidTarget)
		}
	}
	return nil
}

// WatchTargets converts the configured targets to domain entities.
func (c *FileConfig) WatchTargets() []domain.WatchTarget {
	out := make([]domain.WatchTarget, 0, len(c.Targets))
	for _, t := range c.Targets {
		out = append(out, domain.WatchTarget{Name: t.Name, Command: t.Command})
	}
	return out
}

// ParseTarget parses a "name=command" flag value. Only the first '=' splits,
// so commands may contain '='.
func ParseTarget(s string) (domain.WatchTarget, error) {
	name, command, ok := strings.Cut(s, "=")
	if !ok {
		return domain.WatchTarget{}, errors.New(`watch target must look like "name=command"`)
	}
	name = strings.TrimSpace(name)
	command = strings.TrimSpace(command)
	if name == "" || command == "" {
		return domain.WatchTarget{}, domain.ErrInvalidTarget
	}
	return domain.WatchTarget{Name: name, Command: command}, nil
}
