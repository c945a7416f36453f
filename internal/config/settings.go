// Package config loads and saves video-timer settings.
//
// Settings live in settings.yaml inside the config directory
// (os.UserConfigDir()/video-timer unless overridden). The same directory
// holds the queue snapshot and the log file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AppName        = "video-timer"
	SettingsFile   = "settings.yaml"
	EnvConfigDir   = "VIDEO_TIMER_CONFIG_DIR"
	DefaultLogFile = "video-timer.log"

	DefaultSessionMinutes    = 60
	DefaultMPVPath           = "mpv"
	DefaultOEmbedEndpoint    = "https://www.youtube.com/oembed"
	DefaultLookupTimeout     = 5 * time.Second
	DefaultLookupConcurrency = 8
)

// Settings holds the user-editable application settings
type Settings struct {
	// DefaultSessionMinutes seeds the session duration of a fresh queue
	DefaultSessionMinutes int `yaml:"default_session_minutes"`

	MPVPath string `yaml:"mpv_path"`
	NoVideo bool   `yaml:"no_video"` // audio only

	OEmbedEndpoint    string `yaml:"oembed_endpoint"`
	LookupTimeout     string `yaml:"lookup_timeout"` // Go duration, e.g. "5s"
	LookupConcurrency int    `yaml:"lookup_concurrency"`
}

// DefaultSettings returns the default settings
func DefaultSettings() *Settings {
	return &Settings{
		DefaultSessionMinutes: DefaultSessionMinutes,
		MPVPath:               DefaultMPVPath,
		OEmbedEndpoint:        DefaultOEmbedEndpoint,
		LookupTimeout:         DefaultLookupTimeout.String(),
		LookupConcurrency:     DefaultLookupConcurrency,
	}
}

// ConfigDir returns the config directory, honoring VIDEO_TIMER_CONFIG_DIR
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// LoadSettings reads settings.yaml from configDir. A missing file yields the
// defaults, which are written back so the user has something to edit.
func LoadSettings(configDir string) (*Settings, error) {
	settingsPath := filepath.Join(configDir, SettingsFile)

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			settings := DefaultSettings()
			if err := SaveSettings(configDir, settings); err != nil {
				return settings, err
			}
			return settings, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	settings.normalize()

	return settings, nil
}

// SaveSettings saves the settings to the config directory
func SaveSettings(configDir string, settings *Settings) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if err := os.WriteFile(filepath.Join(configDir, SettingsFile), data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// Timeout returns the parsed lookup timeout
func (s *Settings) Timeout() time.Duration {
	d, err := time.ParseDuration(s.LookupTimeout)
	if err != nil || d <= 0 {
		return DefaultLookupTimeout
	}
	return d
}

// normalize replaces zero or invalid values with defaults
func (s *Settings) normalize() {
	if s.DefaultSessionMinutes <= 0 {
		s.DefaultSessionMinutes = DefaultSessionMinutes
	}
	if s.MPVPath == "" {
		s.MPVPath = DefaultMPVPath
	}
	if s.OEmbedEndpoint == "" {
		s.OEmbedEndpoint = DefaultOEmbedEndpoint
	}
	if d, err := time.ParseDuration(s.LookupTimeout); err != nil || d <= 0 {
		s.LookupTimeout = DefaultLookupTimeout.String()
	}
	if s.LookupConcurrency <= 0 {
		s.LookupConcurrency = DefaultLookupConcurrency
	}
}
