package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/postpress/core"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, core.DefaultEngineSettings(), s)
}

func TestLoad_OverridesAndFallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `concurrency: 8
fetch_timeout: 5s
image_timeout: -1s
language: de
requests_per_second: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, s.Concurrency)
	require.Equal(t, 5*time.Second, s.FetchTimeout)
	require.Equal(t, 20*time.Second, s.ImageTimeout)
	require.Equal(t, "de", s.Language)
	require.Equal(t, float64(4), s.RequestsPerSecond)
	require.Equal(t, core.DefaultUserAgent, s.UserAgent)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: [1"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
