package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.PageLoadTimeout)
	assert.Equal(t, "https://duckduckgo.com/", cfg.Search.BaseURL)
	assert.Equal(t, "duckduckgo.com", cfg.Search.EngineHost)
	assert.Equal(t, 8*time.Second, cfg.Search.ResultWait)
	assert.False(t, cfg.Search.Click)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.NoError(t, cfg.Validate())
}

func TestSplitDomains(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "instagram.com", []string{"instagram.com"}},
		{"multiple", "instagram.com,facebook.com", []string{"instagram.com", "facebook.com"}},
		{"whitespace", " instagram.com , facebook.com ", []string{"instagram.com", "facebook.com"}},
		{"empty entries", "instagram.com,,facebook.com,", []string{"instagram.com", "facebook.com"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitDomains(tt.input))
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
search:
  preferred_domains:
    - instagram.com
  click: true
browser:
  headless: false
rate_limit:
  requests_per_minute: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, []string{"instagram.com"}, cfg.Search.PreferredDomains)
	assert.True(t, cfg.Search.Click)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERPGRAB_HEADLESS", "false")
	t.Setenv("SERPGRAB_PREFER", "instagram.com,facebook.com")
	t.Setenv("SERPGRAB_REQUESTS_PER_MINUTE", "12")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, []string{"instagram.com", "facebook.com"}, cfg.Search.PreferredDomains)
	assert.Equal(t, 12, cfg.RateLimit.RequestsPerMinute)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"prefer":   "b.com",
		"click":    true,
		"headless": false,
		"output":   "results.tsv",
	})

	assert.Equal(t, []string{"b.com"}, cfg.Search.PreferredDomains)
	assert.True(t, cfg.Search.Click)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "results.tsv", cfg.Output.ResultsFile)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.BaseURL = ""
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search base URL is required")
	assert.Contains(t, err.Error(), "invalid log level")
}
