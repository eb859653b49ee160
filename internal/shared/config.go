package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Polling  PollingConfig  `toml:"polling"`
	Database DatabaseConfig `toml:"database"`
	Dev      DevConfig      `toml:"dev"`
}

// ServerConfig describes the media library server the client talks to.
type ServerConfig struct {
	BaseURL           string  `toml:"base_url"`
	SessionPath       string  `toml:"session_path"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	LibraryPath       string  `toml:"library_path"`
}

// PollingConfig contains task status polling delays in milliseconds.
type PollingConfig struct {
	IntervalMS      int `toml:"interval_ms"`
	ErrorIntervalMS int `toml:"error_interval_ms"`
}

// Interval returns the delay after a successful non-terminal poll.
func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMS) * time.Millisecond
}

// ErrorInterval returns the delay after a failed poll.
func (p PollingConfig) ErrorInterval() time.Duration {
	return time.Duration(p.ErrorIntervalMS) * time.Millisecond
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// DevConfig contains settings for the local job simulator.
type DevConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	FailAfter int    `toml:"fail_after"`
}

// Addr returns the simulator listen address.
func (d DevConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that would make the client misbehave.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("%w: server.base_url is empty", ErrInvalidConfig)
	}
	if c.Polling.IntervalMS <= 0 || c.Polling.ErrorIntervalMS <= 0 {
		return fmt.Errorf("%w: polling intervals must be positive", ErrInvalidConfig)
	}
	if c.Server.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: server.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
