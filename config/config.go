// Package config loads engine settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/postpress/core"
)

// DefaultPath is where settings are looked up when no path is given.
func DefaultPath() string {
	return filepath.Join(".postpress", "settings.yaml")
}

// Load reads settings from path. A missing file yields the defaults; zero or
// negative values fall back to their defaults with a warning.
func Load(path string) (core.EngineSettings, error) {
	settings := core.DefaultEngineSettings()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var loaded core.EngineSettings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return settings, fmt.Errorf("failed to parse settings YAML: %w", err)
	}
	return applyDefaults(loaded), nil
}

func applyDefaults(s core.EngineSettings) core.EngineSettings {
	d := core.DefaultEngineSettings()
	if s.Concurrency <= 0 {
		if s.Concurrency < 0 {
			slog.Warn("settings: concurrency must be positive, using default", "value", s.Concurrency, "default", d.Concurrency)
		}
		s.Concurrency = d.Concurrency
	}
	if s.FetchTimeout <= 0 {
		if s.FetchTimeout < 0 {
			slog.Warn("settings: fetch_timeout must be positive, using default", "value", s.FetchTimeout, "default", d.FetchTimeout)
		}
		s.FetchTimeout = d.FetchTimeout
	}
	if s.ImageTimeout <= 0 {
		if s.ImageTimeout < 0 {
			slog.Warn("settings: image_timeout must be positive, using default", "value", s.ImageTimeout, "default", d.ImageTimeout)
		}
		s.ImageTimeout = d.ImageTimeout
	}
	if strings.TrimSpace(s.Language) == "" {
		s.Language = d.Language
	}
	if strings.TrimSpace(s.UserAgent) == "" {
		s.UserAgent = d.UserAgent
	}
	if s.RequestsPerSecond <= 0 {
		if s.RequestsPerSecond < 0 {
			slog.Warn("settings: requests_per_second must be positive, using default", "value", s.RequestsPerSecond, "default", d.RequestsPerSecond)
		}
		s.RequestsPerSecond = d.RequestsPerSecond
	}
	if s.Burst <= 0 {
		s.Burst = d.Burst
	}
	return s
}
