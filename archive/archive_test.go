package archive_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/zpotify/archive"
)

func openTestArchive(t *testing.T) *archive.Archive {
	t.Helper()

	a, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	return a
}

func TestHasCompletedUnknownEntity(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)

	for _, kind := range []archive.Kind{archive.KindTrack, archive.KindAlbum, archive.KindArtist} {
		ok, err := a.HasCompleted("4cOdK2wGLETKBW3PvgPWqT", kind)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestMarkThenHasCompleted(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)

	require.NoError(t, a.MarkCompleted("track-1", archive.KindTrack, "/music/a.mp3"))
	require.NoError(t, a.MarkCompleted("album-1", archive.KindAlbum, ""))

	ok, err := a.HasCompleted("track-1", archive.KindTrack)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.HasCompleted("album-1", archive.KindAlbum)
	require.NoError(t, err)
	assert.True(t, ok)

	// Kinds are isolated: a completed track does not complete the album
	// of the same id.
	ok, err = a.HasCompleted("track-1", archive.KindAlbum)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackPath(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)

	path, err := a.TrackPath("missing")
	require.NoError(t, err)
	assert.Empty(t, path)

	require.NoError(t, a.MarkCompleted("track-2", archive.KindTrack, "/music/b.ogg"))

	path, err = a.TrackPath("track-2")
	require.NoError(t, err)
	assert.Equal(t, "/music/b.ogg", path)
}

func TestUnknownKind(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)

	_, err := a.HasCompleted("x", archive.Kind("playlist"))
	assert.ErrorIs(t, err, archive.ErrUnknownKind)
}
