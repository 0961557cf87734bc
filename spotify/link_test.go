package spotify_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/zpotify/spotify"
	"github.com/xeptore/zpotify/spotify/types"
)

func TestParseLink(t *testing.T) {
	t.Parallel()

	id := "4cOdK2wGLETKBW3PvgPWqT"

	tests := []struct {
		Name     string
		In       string
		Expected types.Link
	}{
		{
			Name:     "track_url",
			In:       "https://open.spotify.com/track/" + id,
			Expected: types.Link{Kind: types.LinkKindTrack, ID: id},
		},
		{
			Name:     "track_url_no_scheme",
			In:       "open.spotify.com/track/" + id,
			Expected: types.Link{Kind: types.LinkKindTrack, ID: id},
		},
		{
			Name:     "track_url_with_si",
			In:       "https://open.spotify.com/track/" + id + "?si=abc123",
			Expected: types.Link{Kind: types.LinkKindTrack, ID: id},
		},
		{
			Name:     "track_url_with_locale",
			In:       "https://open.spotify.com/intl-fr/track/" + id,
			Expected: types.Link{Kind: types.LinkKindTrack, ID: id},
		},
		{
			Name:     "track_uri",
			In:       "spotify:track:" + id,
			Expected: types.Link{Kind: types.LinkKindTrack, ID: id},
		},
		{
			Name:     "album_url",
			In:       "https://open.spotify.com/album/" + id,
			Expected: types.Link{Kind: types.LinkKindAlbum, ID: id},
		},
		{
			Name:     "playlist_uri",
			In:       "spotify:playlist:" + id,
			Expected: types.Link{Kind: types.LinkKindPlaylist, ID: id},
		},
		{
			Name:     "artist_url",
			In:       "http://open.spotify.com/artist/" + id,
			Expected: types.Link{Kind: types.LinkKindArtist, ID: id},
		},
		{
			Name:     "episode_url",
			In:       "https://open.spotify.com/episode/" + id,
			Expected: types.Link{Kind: types.LinkKindEpisode, ID: id},
		},
		{
			Name:     "show_uri",
			In:       "spotify:show:" + id,
			Expected: types.Link{Kind: types.LinkKindShow, ID: id},
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			t.Parallel()

			link, err := spotify.ParseLink(tt.In)
			require.NoError(t, err)
			assert.Equal(t, tt.Expected, link)
		})
	}
}

func TestParseLinkRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	id := "4cOdK2wGLETKBW3PvgPWqT"

	tests := []struct {
		Name string
		In   string
	}{
		{Name: "empty", In: ""},
		{Name: "plain_text", In: "nothing else matters"},
		{Name: "wrong_host", In: "https://example.com/track/" + id},
		{Name: "short_id", In: "https://open.spotify.com/track/" + id[:10]},
		{Name: "long_id", In: "https://open.spotify.com/track/" + id + "x"},
		{Name: "invalid_id_chars", In: "spotify:track:" + strings.Repeat("_", 22)},
		{Name: "unknown_kind", In: "https://open.spotify.com/user/" + id},
		{Name: "extra_query_param", In: "https://open.spotify.com/track/" + id + "?utm_source=x"},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			t.Parallel()

			_, err := spotify.ParseLink(tt.In)
			assert.ErrorIs(t, err, spotify.ErrInvalidLink)
		})
	}
}
