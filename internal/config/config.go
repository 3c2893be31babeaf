// Package config loads the afm configuration. The config is read once
// at startup and passed explicitly to everything that needs it; no
// package-level cache.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration.
type Config struct {
	// RegistryPath is the agent registry JSON document maintained by
	// the spawner.
	RegistryPath string `toml:"registry_path"`
	// Session is the tmux session hosting the fleet. Empty means the
	// currently attached session.
	Session string `toml:"session"`
	// RefreshIntervalMS is the dashboard poll interval.
	RefreshIntervalMS int `toml:"refresh_interval_ms"`
	// CaptureLines is how much scrollback a signal scrape captures.
	CaptureLines int `toml:"capture_lines"`

	Tmux TmuxConfig `toml:"tmux"`
}

// TmuxConfig holds terminal bridge settings.
type TmuxConfig struct {
	// Remote is an optional "user@host" for driving tmux over ssh.
	Remote string `toml:"remote"`
	// SendDelayMS is the pause between sending text and pressing
	// Enter, giving the agent's readline time to ingest the paste.
	SendDelayMS int `toml:"send_delay_ms"`
	// CommandTimeoutMS bounds every tmux subprocess call.
	CommandTimeoutMS int `toml:"command_timeout_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RegistryPath:      DefaultRegistryPath(),
		RefreshIntervalMS: 2000,
		CaptureLines:      200,
		Tmux: TmuxConfig{
			SendDelayMS:      200,
			CommandTimeoutMS: 5000,
		},
	}
}

// RefreshInterval returns the poll interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

// SendDelay returns the text-to-Enter delay as a duration.
func (c *Config) SendDelay() time.Duration {
	return time.Duration(c.Tmux.SendDelayMS) * time.Millisecond
}

// CommandTimeout returns the tmux call timeout as a duration.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Tmux.CommandTimeoutMS) * time.Millisecond
}

// DefaultPath returns the config file location. Uses XDG_CONFIG_HOME
// if set, otherwise ~/.config/afm/config.toml. The AFM_CONFIG
// environment variable overrides both.
func DefaultPath() string {
	if p := os.Getenv("AFM_CONFIG"); p != "" {
		return p
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "afm", "config.toml")
}

// DefaultRegistryPath returns where the spawner keeps the registry.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share/afm/.
func DefaultRegistryPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "registry.json"
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "afm", "registry.json")
}

// Load reads configuration from a file. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Zero values from an explicit file fall back to defaults rather
	// than disabling polling or timeouts outright.
	def := Default()
	if cfg.RegistryPath == "" {
		cfg.RegistryPath = def.RegistryPath
	}
	if cfg.RefreshIntervalMS <= 0 {
		cfg.RefreshIntervalMS = def.RefreshIntervalMS
	}
	if cfg.CaptureLines <= 0 {
		cfg.CaptureLines = def.CaptureLines
	}
	if cfg.Tmux.SendDelayMS <= 0 {
		cfg.Tmux.SendDelayMS = def.Tmux.SendDelayMS
	}
	if cfg.Tmux.CommandTimeoutMS <= 0 {
		cfg.Tmux.CommandTimeoutMS = def.Tmux.CommandTimeoutMS
	}

	return cfg, nil
}
