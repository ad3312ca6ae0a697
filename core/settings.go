package core

import "time"

// EngineSettings are the tunables of the export engine itself, as opposed to
// the per-job ExportConfiguration.
type EngineSettings struct {
	Concurrency       int           `yaml:"concurrency"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	ImageTimeout      time.Duration `yaml:"image_timeout"`
	Language          string        `yaml:"language"`
	UserAgent         string        `yaml:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// DefaultUserAgent identifies postpress to publication servers.
const DefaultUserAgent = "Mozilla/5.0 (compatible; postpress/1.0; +https://github.com/gaurav-prasanna/postpress)"

// DefaultEngineSettings returns the settings used when nothing is configured.
func DefaultEngineSettings() EngineSettings {
	return EngineSettings{
		Concurrency:       4,
		FetchTimeout:      30 * time.Second,
		ImageTimeout:      20 * time.Second,
		Language:          "en",
		UserAgent:         DefaultUserAgent,
		RequestsPerSecond: 4,
		Burst:             4,
	}
}
