package fs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/zpotify/spotify/fs"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		Name     string
		In       string
		Expected string
	}{
		{Name: "clean", In: "Plain Name", Expected: "Plain Name"},
		{Name: "dropped_chars", In: `What's <Love>: "Remix"?`, Expected: "Whats Love Remix"},
		{Name: "pipe_becomes_dash", In: "Side A | Side B", Expected: "Side A - Side B"},
		{Name: "path_separators", In: `AC/DC \ Live`, Expected: "ACDC  Live"},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.Expected, fs.Sanitize(tt.In))
		})
	}
}

func TestZfill(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "01", fs.Zfill(1))
	assert.Equal(t, "12", fs.Zfill(12))
	assert.Equal(t, "123", fs.Zfill(123))
}

func TestTrackFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		Name            string
		Caller          fs.Caller
		AudioName       string
		AudioNumber     int
		ArtistName      string
		AlbumName       string
		AlbumInFilename bool
		Expected        string
	}{
		{
			Name:        "album",
			Caller:      fs.CallerAlbum,
			AudioName:   "Breathe",
			AudioNumber: 2,
			ArtistName:  "Pink Floyd",
			AlbumName:   "The Dark Side of the Moon",
			Expected:    "2. Breathe",
		},
		{
			Name:            "album_with_album_name",
			Caller:          fs.CallerAlbum,
			AudioName:       "Breathe",
			AudioNumber:     2,
			ArtistName:      "Pink Floyd",
			AlbumName:       "The Dark Side of the Moon",
			AlbumInFilename: true,
			Expected:        "The Dark Side of the Moon 2. Breathe",
		},
		{
			Name:        "playlist",
			Caller:      fs.CallerPlaylist,
			AudioName:   "Time",
			AudioNumber: 4,
			ArtistName:  "Pink Floyd",
			AlbumName:   "The Dark Side of the Moon",
			Expected:    "Pink Floyd - Time",
		},
		{
			Name:        "show",
			Caller:      fs.CallerShow,
			AudioName:   "Pilot",
			AudioNumber: 1,
			ArtistName:  "Some Publisher",
			Expected:    "1. Pilot",
		},
		{
			Name:        "episode",
			Caller:      fs.CallerEpisode,
			AudioName:   "Pilot",
			AudioNumber: 1,
			ArtistName:  "Some Publisher",
			Expected:    "Some Publisher - 1. Pilot",
		},
		{
			Name:       "default",
			Caller:     fs.CallerNone,
			AudioName:  "Time",
			ArtistName: "Pink Floyd",
			Expected:   "Pink Floyd - Time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			t.Parallel()

			got := fs.TrackFilename(tt.Caller, tt.AudioName, tt.AudioNumber, tt.ArtistName, tt.AlbumName, tt.AlbumInFilename)
			assert.Equal(t, tt.Expected, got)
		})
	}
}

func TestTrackFilenameShortening(t *testing.T) {
	t.Parallel()

	longArtist := strings.Repeat("A", 60)
	got := fs.TrackFilename(fs.CallerNone, strings.Repeat("B", 40), 0, longArtist, "", false)
	assert.Equal(t, "Various Artists - "+strings.Repeat("B", 40), got)

	longTitle := strings.Repeat("B", 120)
	got = fs.TrackFilename(fs.CallerNone, longTitle, 0, "Short", "", false)
	assert.Equal(t, "Short - "+strings.Repeat("B", 75), got)
}

func TestCredentialsFileLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	creds := fs.CredentialsFileFrom(filepath.Join(dir, "creds", "credentials.json"))

	exists, err := creds.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	artifact := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(artifact, []byte(`{"username":"u"}`), 0o600))

	require.NoError(t, creds.InstallArtifact(artifact))

	exists, err = creds.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	assert.NoFileExists(t, artifact)

	content, err := os.ReadFile(creds.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"u"}`, string(content))

	require.NoError(t, creds.Remove())
	require.NoError(t, creds.Remove())

	exists, err = creds.Exists()
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRemoveStrayArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	creds := fs.CredentialsFileFrom(filepath.Join(dir, "creds", "credentials.json"))

	stray := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(stray, []byte("{}"), 0o600))

	require.NoError(t, creds.RemoveStrayArtifact(stray))
	assert.NoFileExists(t, stray)

	// Missing artifact is not an error.
	require.NoError(t, creds.RemoveStrayArtifact(stray))

	// Never deletes the configured file itself.
	require.NoError(t, creds.EnsureParentDir())
	require.NoError(t, os.WriteFile(creds.Path(), []byte("{}"), 0o600))
	require.NoError(t, creds.RemoveStrayArtifact(creds.Path()))
	assert.FileExists(t, creds.Path())
}
