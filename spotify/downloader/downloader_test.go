package downloader_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/zpotify/archive"
	"github.com/xeptore/zpotify/config"
	"github.com/xeptore/zpotify/encode"
	"github.com/xeptore/zpotify/progress"
	"github.com/xeptore/zpotify/spotify/api"
	"github.com/xeptore/zpotify/spotify/auth"
	"github.com/xeptore/zpotify/spotify/downloader"
	"github.com/xeptore/zpotify/spotify/fs"
	"github.com/xeptore/zpotify/spotify/types"
)

type fakeStream struct {
	data []byte
	off  int
}

func (s *fakeStream) TotalSize() int { return len(s.data) }

func (s *fakeStream) Read(p []byte) (int, error) {
	n := copy(p, s.data[s.off:])
	s.off += n

	return n, nil
}

func (s *fakeStream) Close() error { return nil }

type fakeSession struct {
	mu     sync.Mutex
	tracks map[string][]byte
	opens  int
}

func (s *fakeSession) MintToken(_ context.Context, scope string) (string, error) {
	return "token-" + scope, nil
}

func (s *fakeSession) UserAttribute(_ context.Context, key string) (string, error) {
	if key == "type" {
		return "premium", nil
	}

	return "", nil
}

func (s *fakeSession) OpenTrackStream(_ context.Context, id string, _ types.Quality) (auth.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opens++
	data, ok := s.tracks[id]
	if !ok {
		return nil, auth.ErrWrongContentKind
	}

	return &fakeStream{data: data}, nil //nolint:exhaustruct
}

func (s *fakeSession) OpenEpisodeStream(_ context.Context, _ string, _ types.Quality) (auth.Stream, error) {
	return nil, auth.ErrWrongContentKind
}

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.opens
}

type fakeConnector struct {
	session  *fakeSession
	artifact string
}

func (c *fakeConnector) ArtifactPath() string { return c.artifact }

func (c *fakeConnector) FromUserPass(_ context.Context, username, password string) (auth.Session, error) {
	if username == "" || password == "" {
		return nil, auth.ErrUnauthenticated
	}

	if err := os.WriteFile(c.artifact, []byte(`{"username":"`+username+`"}`), 0o600); nil != err {
		return nil, err
	}

	return c.session, nil
}

func (c *fakeConnector) FromStoredCredentials(_ context.Context, credentialsPath string) (auth.Session, error) {
	if _, err := os.Stat(credentialsPath); nil != err {
		return nil, auth.ErrUnauthenticated
	}

	return c.session, nil
}

type fakeEncoder struct {
	mu      sync.Mutex
	encodes int
}

func (e *fakeEncoder) Encode(
	_ context.Context,
	_ zerolog.Logger,
	raw []byte,
	outputPath string,
	_ encode.Params,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.encodes++

	return os.WriteFile(outputPath, raw, 0o644)
}

func (e *fakeEncoder) encodeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.encodes
}

func trackMetadataBody(id, title, artist string) string {
	return fmt.Sprintf(`{
		"tracks": [{
			"id": %[1]q,
			"name": %[2]q,
			"disc_number": 1,
			"track_number": 1,
			"is_playable": true,
			"artists": [{"id": "artist-1", "name": %[3]q}],
			"album": {
				"name": "Test Album",
				"release_date": "2001-05-01",
				"artists": [{"id": "artist-1", "name": %[3]q}],
				"images": []
			}
		}]
	}`, id, title, artist)
}

func TestDownloadTrackEndToEnd(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	rawAudio := bytes.Repeat([]byte("audio"), 25_000)

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/tracks", r.URL.Path)
		fmt.Fprint(w, trackMetadataBody("track-1", "Test Title", "Test Artist"))
	}))
	t.Cleanup(srv.Close)

	session := &fakeSession{tracks: map[string][]byte{"track-1": rawAudio}} //nolint:exhaustruct
	connector := &fakeConnector{
		session:  session,
		artifact: filepath.Join(workDir, "credentials.json"),
	}

	credsFile := fs.CredentialsFileFrom(filepath.Join(workDir, "creds", "credentials.json"))
	a := auth.New(connector, credsFile, false)

	ok, err := a.Login(t.Context(), zerolog.Nop(), "user", "pass")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.QualityVeryHigh, a.Quality())
	assert.Equal(t, "token-"+auth.ScopeGeneral, a.Tokens().General)
	assert.Equal(t, "token-"+auth.ScopeLibrary, a.Tokens().Library)

	conf := config.Spotify{ //nolint:exhaustruct
		MusicDir:     filepath.Join(workDir, "Music"),
		EpisodesDir:  filepath.Join(workDir, "Episodes"),
		OutputFormat: "mp3",
		Downloader: config.Downloader{
			RequestsPerSecond:  1000,
			AntibanWaitSeconds: 0,
			Timeouts: config.Timeouts{
				Lookup:         5,
				GetPagedItems:  5,
				DownloadCover:  5,
				OpenStream:     5,
				EncodeDeadline: 5,
			},
		},
	}

	arc, err := archive.Open(filepath.Join(workDir, "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, arc.Close()) })

	encoder := &fakeEncoder{} //nolint:exhaustruct
	client := api.NewWithBaseURL(a, conf.Downloader, srv.URL)
	dl := downloader.New(conf, a, client, arc, encoder, progress.Nop{})

	require.NoError(t, dl.DownloadTrack(t.Context(), zerolog.Nop(), "track-1", "", fs.CallerNone))

	outputPath := filepath.Join(conf.MusicDir, "Test Artist - Test Title.mp3")
	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, rawAudio, written)

	completed, err := arc.HasCompleted("track-1", archive.KindTrack)
	require.NoError(t, err)
	assert.True(t, completed)

	path, err := arc.TrackPath("track-1")
	require.NoError(t, err)
	assert.Equal(t, outputPath, path)

	requestsAfterFirst := requests
	opensAfterFirst := session.openCount()

	// Second run is served entirely from the ledger: no metadata
	// lookups, no stream opens, no re-encodes.
	require.NoError(t, dl.DownloadTrack(t.Context(), zerolog.Nop(), "track-1", "", fs.CallerNone))

	assert.Equal(t, requestsAfterFirst, requests)
	assert.Equal(t, opensAfterFirst, session.openCount())
	assert.Equal(t, 1, encoder.encodeCount())
}

func TestDownloadTrackMissingOutputDir(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, trackMetadataBody("track-3", "Orphan", "Nobody"))
	}))
	t.Cleanup(srv.Close)

	session := &fakeSession{tracks: map[string][]byte{"track-3": []byte("audio")}} //nolint:exhaustruct
	connector := &fakeConnector{
		session:  session,
		artifact: filepath.Join(workDir, "credentials.json"),
	}

	credsFile := fs.CredentialsFileFrom(filepath.Join(workDir, "creds", "credentials.json"))
	a := auth.New(connector, credsFile, false)

	ok, err := a.Login(t.Context(), zerolog.Nop(), "user", "pass")
	require.NoError(t, err)
	require.True(t, ok)

	conf := config.Spotify{ //nolint:exhaustruct
		MusicDir:            filepath.Join(workDir, "does", "not", "exist"),
		OutputFormat:        "mp3",
		RequireExistingDirs: true,
		Downloader: config.Downloader{
			RequestsPerSecond:  1000,
			AntibanWaitSeconds: 0,
			Timeouts: config.Timeouts{
				Lookup:         5,
				GetPagedItems:  5,
				DownloadCover:  5,
				OpenStream:     5,
				EncodeDeadline: 5,
			},
		},
	}

	arc, err := archive.Open(filepath.Join(workDir, "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, arc.Close()) })

	encoder := &fakeEncoder{} //nolint:exhaustruct
	client := api.NewWithBaseURL(a, conf.Downloader, srv.URL)
	dl := downloader.New(conf, a, client, arc, encoder, progress.Nop{})

	err = dl.DownloadTrack(t.Context(), zerolog.Nop(), "track-3", "", fs.CallerNone)
	require.ErrorIs(t, err, downloader.ErrMissingDir)

	// The gate trips before any stream is opened or encoded, and the
	// ledger never records the track.
	assert.Equal(t, 0, session.openCount())
	assert.Equal(t, 0, encoder.encodeCount())

	completed, err := arc.HasCompleted("track-3", archive.KindTrack)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestDownloadTrackSkipsUnplayable(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"tracks": [{
				"id": "track-2",
				"name": "Ghost Track",
				"disc_number": 1,
				"track_number": 1,
				"artists": [{"id": "artist-1", "name": "Nobody"}],
				"album": {"name": "Nothing", "release_date": "1999", "artists": [], "images": []}
			}]
		}`)
	}))
	t.Cleanup(srv.Close)

	session := &fakeSession{tracks: map[string][]byte{}} //nolint:exhaustruct
	connector := &fakeConnector{
		session:  session,
		artifact: filepath.Join(workDir, "credentials.json"),
	}

	credsFile := fs.CredentialsFileFrom(filepath.Join(workDir, "creds", "credentials.json"))
	a := auth.New(connector, credsFile, false)

	ok, err := a.Login(t.Context(), zerolog.Nop(), "user", "pass")
	require.NoError(t, err)
	require.True(t, ok)

	conf := config.Spotify{ //nolint:exhaustruct
		MusicDir:     filepath.Join(workDir, "Music"),
		OutputFormat: "mp3",
		Downloader: config.Downloader{
			RequestsPerSecond:  1000,
			AntibanWaitSeconds: 0,
			Timeouts: config.Timeouts{
				Lookup:         5,
				GetPagedItems:  5,
				DownloadCover:  5,
				OpenStream:     5,
				EncodeDeadline: 5,
			},
		},
	}

	arc, err := archive.Open(filepath.Join(workDir, "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, arc.Close()) })

	encoder := &fakeEncoder{} //nolint:exhaustruct
	client := api.NewWithBaseURL(a, conf.Downloader, srv.URL)
	dl := downloader.New(conf, a, client, arc, encoder, progress.Nop{})

	// Missing is_playable means unplayable: skipped without error and
	// never recorded as completed.
	require.NoError(t, dl.DownloadTrack(t.Context(), zerolog.Nop(), "track-2", "", fs.CallerNone))

	assert.Equal(t, 0, session.openCount())
	assert.Equal(t, 0, encoder.encodeCount())

	completed, err := arc.HasCompleted("track-2", archive.KindTrack)
	require.NoError(t, err)
	assert.False(t, completed)
}
