package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/vincentbai/pixel-bridge/internal/models"
	"gopkg.in/yaml.v3"
)

// Config is read from PIXEL_BRIDGE_* environment variables.
type Config struct {
	Address        string `env:"ADDRESS" envDefault:"127.0.0.1:8124"`
	DatabasePath   string `env:"DATABASE_PATH"`
	ScriptPath     string `env:"SCRIPT_PATH" envDefault:"/apps/fueled/client.js"`
	CacheBuster    string `env:"CACHE_BUSTER"`
	TrackingConfig string `env:"TRACKING_CONFIG"`
}

var DefaultTracking = models.TrackingConfiguration{
	TrackEvents: []string{
		"checkout_started",
		"checkout_contact_info_submitted",
		"checkout_address_info_submitted",
		"payment_info_submitted",
	},
	GA4ExcludedEvents: []string{"checkout_started"},
}

func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "PIXEL_BRIDGE_"}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// ApplicationDirectory is the platform-specific app data dir.
func ApplicationDirectory() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDirectory, "Library", "Application Support", "PixelBridge"), nil
	case "windows":
		return filepath.Join(homeDirectory, "AppData", "Roaming", "PixelBridge"), nil
	default: // linux and others
		return filepath.Join(homeDirectory, ".local", "share", "PixelBridge"), nil
	}
}

// LoadTracking reads the tracking configuration from a YAML file. An empty
// path returns the built-in checkout defaults.
func LoadTracking(path string) (models.TrackingConfiguration, error) {
	if path == "" {
		return DefaultTracking, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.TrackingConfiguration{}, fmt.Errorf("failed to read tracking config %s: %w", path, err)
	}
	var tracking models.TrackingConfiguration
	if err := yaml.Unmarshal(data, &tracking); err != nil {
		return models.TrackingConfiguration{}, fmt.Errorf("failed to parse tracking config %s: %w", path, err)
	}
	if len(tracking.TrackEvents) == 0 {
		return models.TrackingConfiguration{}, errors.New("tracking config must list at least one track_events entry")
	}
	return tracking, nil
}
