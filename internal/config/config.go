// Package config loads console settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServer               = "http://127.0.0.1:8080"
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
	DefaultLoginTimeout         = 10 * time.Second
	DefaultLogLevel             = "info"
)

// Config holds console settings.
type Config struct {
	Server    string          `yaml:"server"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Login     LoginConfig     `yaml:"login"`
}

// ReconnectConfig controls the stream retry policy.
type ReconnectConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"` // multiplied by the attempt number
}

// LoginConfig controls the login request.
type LoginConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server:   DefaultServer,
		DataDir:  defaultDataDir(),
		LogLevel: DefaultLogLevel,
		Reconnect: ReconnectConfig{
			MaxAttempts: DefaultMaxReconnectAttempts,
			Delay:       DefaultReconnectDelay,
		},
		Login: LoginConfig{Timeout: DefaultLoginTimeout},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".neonddos"
	}
	return filepath.Join(home, ".neonddos")
}

// DefaultPath returns $NEONDDOS_CONFIG or <data dir>/config.yaml.
func DefaultPath(getenv func(string) string) string {
	if p := getenv("NEONDDOS_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Overrides are command-line values. Empty fields leave the setting alone.
type Overrides struct {
	Server   string
	DataDir  string
	LogLevel string
}

// Load reads the file at path over the defaults, then applies environment
// overrides and finally flag overrides, and validates the result. A missing
// file is not an error.
func Load(path string, getenv func(string) string, flags Overrides) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if v := strings.TrimSpace(getenv("NEONDDOS_SERVER")); v != "" {
		cfg.Server = v
	}
	if v := strings.TrimSpace(getenv("NEONDDOS_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}

	if flags.Server != "" {
		cfg.Server = flags.Server
	}
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	if _, err := c.ServerURL(); err != nil {
		return err
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must be >= 0, got %d", c.Reconnect.MaxAttempts)
	}
	if c.Reconnect.Delay <= 0 {
		return fmt.Errorf("reconnect.delay must be positive, got %s", c.Reconnect.Delay)
	}
	if c.Login.Timeout <= 0 {
		return fmt.Errorf("login.timeout must be positive, got %s", c.Login.Timeout)
	}
	return nil
}

// ServerURL parses the server setting. Only http and https are accepted;
// the scheme decides between ws and wss for the stream.
func (c Config) ServerURL() (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(c.Server, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server %q: %w", c.Server, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server %q: scheme must be http or https", c.Server)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server %q: missing host", c.Server)
	}
	return u, nil
}
