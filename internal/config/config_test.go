package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
inbox:
  root: /srv/fax/eingang
classifier:
  api_key: test-key
pipeline:
  own_name: "Dr. med. Florian Rasche, Huttenstr. 6"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/fax/eingang", cfg.Inbox.Root)
	assert.Equal(t, "test-key", cfg.Classifier.APIKey)
	assert.Equal(t, "Dr. med. Florian Rasche, Huttenstr. 6", cfg.Pipeline.OwnName)

	// Defaults fill in everything else.
	assert.Equal(t, 120*time.Second, cfg.Inbox.PollInterval)
	assert.Equal(t, "gpt-4o", cfg.Classifier.Model)
	assert.Equal(t, 3, cfg.Classifier.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Classifier.RetryBackoff)
	assert.Equal(t, 2, cfg.Classifier.MaxPages)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, 8750, cfg.Server.Port)
	assert.Equal(t, "data/faxsort.db", cfg.Journal.Path)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
inbox:
  root: /tmp/fax
  poll_interval: 30s
classifier:
  api_key: test-key
  model: gpt-4o-mini
  max_pages: 1
pipeline:
  own_name: Wagner
  workers: 4
server:
  port: 9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Inbox.PollInterval)
	assert.Equal(t, "gpt-4o-mini", cfg.Classifier.Model)
	assert.Equal(t, 1, cfg.Classifier.MaxPages)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Inbox:      InboxConfig{Root: "/srv/fax", PollInterval: 2 * time.Minute},
			Classifier: ClassifierConfig{APIKey: "k", Model: "gpt-4o", MaxAttempts: 3, MaxPages: 2},
			Pipeline:   PipelineConfig{OwnName: "Wagner", Workers: 2},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}, wantErr: ""},
		{
			name:    "missing inbox root",
			mutate:  func(c *Config) { c.Inbox.Root = "" },
			wantErr: "inbox.root",
		},
		{
			name:    "poll interval too short",
			mutate:  func(c *Config) { c.Inbox.PollInterval = 500 * time.Millisecond },
			wantErr: "poll_interval",
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.Classifier.APIKey = "" },
			wantErr: "api_key",
		},
		{
			name:    "missing own name",
			mutate:  func(c *Config) { c.Pipeline.OwnName = "" },
			wantErr: "own_name",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Pipeline.Workers = 0 },
			wantErr: "workers",
		},
		{
			name:    "zero max attempts",
			mutate:  func(c *Config) { c.Classifier.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
