package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/zpotify/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o600))

	return filename
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	conf, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", conf.Log.Level)
	assert.Equal(t, "pretty", conf.Log.Format)
	assert.Equal(t, "librespot-helper", conf.Spotify.HelperBin)
	assert.Equal(t, "./creds/credentials.json", conf.Spotify.CredentialsFile)
	assert.Equal(t, "./archive.db", conf.Spotify.LedgerFile)
	assert.Equal(t, "./Music", conf.Spotify.MusicDir)
	assert.Equal(t, "./Episodes", conf.Spotify.EpisodesDir)
	assert.Equal(t, "mp3", conf.Spotify.OutputFormat)
	assert.Equal(t, 10, conf.Spotify.SearchLimit)
	assert.False(t, conf.Spotify.ForcePremium)
	assert.False(t, conf.Spotify.RequireExistingDirs)
	assert.InEpsilon(t, 10.0, conf.Spotify.Downloader.RequestsPerSecond, 1e-9)
	assert.Equal(t, 5, conf.Spotify.Downloader.AntibanWaitSeconds)
	assert.Equal(t, 5, conf.Spotify.Downloader.Timeouts.Lookup)
	assert.Equal(t, 120, conf.Spotify.Downloader.Timeouts.EncodeDeadline)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	filename := writeConfigFile(t, `
log:
  level: debug
  format: json
spotify:
  output_format: ogg
  force_premium: true
  search_limit: 25
  music_dir: /srv/music
  downloader:
    requests_per_second: 2
    timeouts:
      lookup: 9
`)

	conf, err := config.Load(filename)
	require.NoError(t, err)

	assert.Equal(t, "debug", conf.Log.Level)
	assert.Equal(t, "json", conf.Log.Format)
	assert.Equal(t, "ogg", conf.Spotify.OutputFormat)
	assert.True(t, conf.Spotify.ForcePremium)
	assert.Equal(t, 25, conf.Spotify.SearchLimit)
	assert.Equal(t, "/srv/music", conf.Spotify.MusicDir)
	assert.InEpsilon(t, 2.0, conf.Spotify.Downloader.RequestsPerSecond, 1e-9)
	assert.Equal(t, 9, conf.Spotify.Downloader.Timeouts.Lookup)

	// Unset keys still get defaults.
	assert.Equal(t, "./Episodes", conf.Spotify.EpisodesDir)
	assert.Equal(t, 5, conf.Spotify.Downloader.Timeouts.GetPagedItems)
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		Name    string
		Content string
	}{
		{
			Name: "bad_log_level",
			Content: `
log:
  level: verbose
`,
		},
		{
			Name: "bad_log_format",
			Content: `
log:
  format: xml
`,
		},
		{
			Name: "bad_output_format",
			Content: `
spotify:
  output_format: wma
`,
		},
		{
			Name: "search_limit_too_large",
			Content: `
spotify:
  search_limit: 51
`,
		},
		{
			Name: "negative_requests_per_second",
			Content: `
spotify:
  downloader:
    requests_per_second: -1
`,
		},
		{
			Name: "negative_antiban_wait",
			Content: `
spotify:
  downloader:
    antiban_wait_seconds: -3
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Load(writeConfigFile(t, tt.Content))
			assert.Error(t, err)
		})
	}
}
