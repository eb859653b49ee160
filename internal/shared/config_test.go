package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Server.BaseURL != "http://127.0.0.1:8000" {
			t.Errorf("expected base URL http://127.0.0.1:8000, got %s", config.Server.BaseURL)
		}
		if config.Polling.Interval() != 2*time.Second {
			t.Errorf("expected poll interval 2s, got %v", config.Polling.Interval())
		}
		if config.Polling.ErrorInterval() != 2500*time.Millisecond {
			t.Errorf("expected error interval 2.5s, got %v", config.Polling.ErrorInterval())
		}
		if config.Server.LibraryPath != "/artists/" {
			t.Errorf("expected library path /artists/, got %s", config.Server.LibraryPath)
		}
		if config.Database.Path != "./sonusitory.db" {
			t.Errorf("expected database path ./sonusitory.db, got %s", config.Database.Path)
		}
		if config.Dev.Addr() != "127.0.0.1:8000" {
			t.Errorf("expected dev addr 127.0.0.1:8000, got %s", config.Dev.Addr())
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[server]
base_url = "https://music.example.com"
requests_per_second = 1.5

[polling]
interval_ms = 500
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.BaseURL != "https://music.example.com" {
			t.Errorf("expected base URL override, got %s", config.Server.BaseURL)
		}
		if config.Polling.Interval() != 500*time.Millisecond {
			t.Errorf("expected interval 500ms, got %v", config.Polling.Interval())
		}
		if config.Polling.ErrorInterval() != 2500*time.Millisecond {
			t.Errorf("omitted keys should keep defaults, got %v", config.Polling.ErrorInterval())
		}
		if config.Server.LibraryPath != "/artists/" {
			t.Errorf("omitted keys should keep defaults, got %s", config.Server.LibraryPath)
		}
	})

	t.Run("LoadConfig Rejects Invalid Values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[polling]\ninterval_ms = 0\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}
