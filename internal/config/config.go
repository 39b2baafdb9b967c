// Package config loads the muxd daemon's on-disk configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's top-level configuration, loaded from
// ~/.muxd/config.yaml.
type Config struct {
	// ListenAddrs are the addresses the daemon listens on, e.g.
	// "unix:///home/me/.muxd/sockets/daemon.default.sock" or
	// "tcp://127.0.0.1:7777". Load does not require any; when the list is
	// empty, `mux daemon` listens on the default daemon socket in
	// socketdir.Dir().
	ListenAddrs []string `yaml:"listen_addrs"`

	// SocketDir is loaded from the socket_dir key. The host and daemon do
	// not read it: they always use socketdir.Dir().
	SocketDir string `yaml:"socket_dir"`

	// IdleTimeout is how long a session may go without input or output
	// before the host kills it. Zero disables idle killing.
	IdleTimeout time.Duration `yaml:"-"`
	IdleTimeoutRaw string `yaml:"idle_timeout"`

	// ReapGrace is how long an Exited session is retained before the host
	// removes it from the session map.
	ReapGrace time.Duration `yaml:"-"`
	ReapGraceRaw string `yaml:"reap_grace"`

	// MaintenanceSchedule is an RRULE string gating when the reap/idle-kill
	// background task is allowed to run destructive work. An empty string
	// means "always".
	MaintenanceSchedule string `yaml:"maintenance_schedule"`
}

// ConfigDir returns the muxd configuration directory (~/.muxd/).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".muxd")
	}
	return filepath.Join(home, ".muxd")
}

// defaultIdleTimeout and defaultReapGrace apply when the corresponding
// config key is absent or empty.
const (
	defaultIdleTimeout = 30 * time.Minute
	defaultReapGrace   = 5 * time.Minute
)

// Load reads the muxd config from ~/.muxd/config.yaml. If the file does not
// exist, it returns a Config populated with defaults and no error.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(ConfigDir(), "config.yaml"))
}

// LoadFrom reads the muxd config from the given path. If the file does not
// exist, it returns a Config populated with defaults and no error.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.resolveDurations(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		IdleTimeout: defaultIdleTimeout,
		ReapGrace:   defaultReapGrace,
	}
}

// resolveDurations parses the raw yaml duration strings, falling back to
// the existing (default) value when the key was absent.
func (c *Config) resolveDurations() error {
	if c.IdleTimeoutRaw != "" {
		d, err := time.ParseDuration(c.IdleTimeoutRaw)
		if err != nil {
			return fmt.Errorf("idle_timeout: %w", err)
		}
		c.IdleTimeout = d
	}
	if c.ReapGraceRaw != "" {
		d, err := time.ParseDuration(c.ReapGraceRaw)
		if err != nil {
			return fmt.Errorf("reap_grace: %w", err)
		}
		c.ReapGrace = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout must not be negative")
	}
	if c.ReapGrace < 0 {
		return fmt.Errorf("reap_grace must not be negative")
	}
	return nil
}
