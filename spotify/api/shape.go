package api

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/xeptore/zpotify/iterutil"
	"github.com/xeptore/zpotify/spotify/fs"
	"github.com/xeptore/zpotify/spotify/types"
)

var yearPattern = regexp.MustCompile(`\d{4}`)

// releaseYearOf extracts the four-digit year from a release date, which
// the catalog reports with year, month or day precision. Missing dates
// shape to the unknown sentinel.
func releaseYearOf(releaseDate string) string {
	if m := yearPattern.FindString(releaseDate); m != "" {
		return m
	}
	if releaseDate == "" {
		return types.Unknown
	}

	return releaseDate
}

// yearOf is the loose variant for fields that keep whatever precision
// prefix the catalog reports.
func yearOf(releaseDate string) string {
	if releaseDate == "" {
		return types.Unknown
	}

	return strings.SplitN(releaseDate, "-", 2)[0]
}

// largestCoverURL picks the cover with the largest combined dimensions,
// or the unknown sentinel when the response carries no images.
func largestCoverURL(images gjson.Result) string {
	coverURL := types.Unknown
	bestSize := int64(-1)
	for _, img := range images.Array() {
		if size := img.Get("height").Int() + img.Get("width").Int(); size > bestSize {
			bestSize = size
			coverURL = img.Get("url").String()
		}
	}

	return coverURL
}

func requireString(root gjson.Result, path string) (string, error) {
	v := root.Get(path)
	if !v.Exists() {
		return "", fmt.Errorf("required field %q is missing from response", path)
	}

	return v.String(), nil
}

func shapeTrack(id string, body []byte) (*types.Track, error) {
	root := gjson.GetBytes(body, "tracks.0")
	if !root.Exists() || root.Type == gjson.Null {
		return nil, errors.New("track object is missing from response")
	}

	artists := root.Get("artists").Array()
	if len(artists) == 0 {
		return nil, errors.New("track has no artists")
	}
	artistNames := iterutil.Map(artists, func(_ int, a gjson.Result) string {
		return fs.Sanitize(a.Get("name").String())
	})

	title, err := requireString(root, "name")
	if nil != err {
		return nil, err
	}

	album := root.Get("album")
	albumName, err := requireString(album, "name")
	if nil != err {
		return nil, err
	}

	releaseDate := album.Get("release_date").String()
	releaseYear := yearOf(releaseDate)
	if releaseDate == "" {
		releaseDate = types.Unknown
	}

	return &types.Track{
		ID:          id,
		ArtistID:    artists[0].Get("id").String(),
		ArtistName:  types.JoinNames(artistNames),
		AlbumArtist: fs.Sanitize(album.Get("artists.0.name").String()),
		AlbumName:   fs.Sanitize(albumName),
		Title:       fs.Sanitize(title),
		CoverURL:    largestCoverURL(album.Get("images")),
		ReleaseYear: releaseYear,
		ReleaseDate: releaseDate,
		DiscNumber:  int(root.Get("disc_number").Int()),
		TrackNumber: int(root.Get("track_number").Int()),
		ScrapedID:   root.Get("id").String(),
		Playable:    root.Get("is_playable").Bool(),
	}, nil
}

func shapeEpisode(id string, body []byte) (*types.Episode, error) {
	root := gjson.ParseBytes(body)
	if !root.Exists() || root.Type == gjson.Null {
		return nil, errors.New("episode object is missing from response")
	}

	title, err := requireString(root, "name")
	if nil != err {
		return nil, err
	}

	showName, err := requireString(root, "show.name")
	if nil != err {
		return nil, err
	}

	releaseDate := root.Get("release_date").String()
	releaseYear := yearOf(releaseDate)
	if releaseDate == "" {
		releaseDate = types.Unknown
	}

	return &types.Episode{
		ID:          id,
		ShowID:      root.Get("show.id").String(),
		Publisher:   root.Get("show.publisher").String(),
		ShowName:    fs.Sanitize(showName),
		Title:       fs.Sanitize(title),
		CoverURL:    largestCoverURL(root.Get("images")),
		ReleaseYear: releaseYear,
		ReleaseDate: releaseDate,
		Playable:    root.Get("is_playable").Bool(),
	}, nil
}

func shapeAlbum(id string, body []byte) (*types.Album, error) {
	root := gjson.ParseBytes(body)

	name, err := requireString(root, "name")
	if nil != err {
		return nil, err
	}

	artistNames := iterutil.Map(root.Get("artists").Array(), func(_ int, a gjson.Result) string {
		return fs.Sanitize(a.Get("name").String())
	})

	return &types.Album{
		ID:          id,
		Artists:     types.JoinNames(artistNames),
		Name:        name,
		TotalTracks: int(root.Get("total_tracks").Int()),
		ReleaseDate: releaseYearOf(root.Get("release_date").String()),
	}, nil
}

func shapeArtist(id string, body []byte) (*types.Artist, error) {
	root := gjson.ParseBytes(body)

	name, err := requireString(root, "name")
	if nil != err {
		return nil, err
	}

	genres := iterutil.Map(root.Get("genres").Array(), func(_ int, g gjson.Result) string {
		return g.String()
	})

	return &types.Artist{
		ID:     id,
		Name:   fs.Sanitize(name),
		Genres: types.JoinNames(genres),
	}, nil
}

func shapeShow(body []byte) (*types.Show, error) {
	root := gjson.ParseBytes(body)

	name, err := requireString(root, "name")
	if nil != err {
		return nil, err
	}

	return &types.Show{
		ID:            root.Get("id").String(),
		Name:          fs.Sanitize(name),
		Publisher:     root.Get("publisher").String(),
		TotalEpisodes: int(root.Get("total_episodes").Int()),
	}, nil
}

func shapePlaylist(id string, body []byte) (*types.Playlist, error) {
	root := gjson.ParseBytes(body)

	name, err := requireString(root, "name")
	if nil != err {
		return nil, err
	}

	return &types.Playlist{
		ID:    id,
		Name:  strings.TrimSpace(name),
		Owner: strings.TrimSpace(root.Get("owner.display_name").String()),
	}, nil
}

func shapeSearchResults(body []byte) *types.SearchResults {
	root := gjson.ParseBytes(body)

	var results types.SearchResults
	for _, track := range root.Get("tracks.items").Array() {
		name := track.Get("name").String()
		if track.Get("explicit").Bool() {
			name = "[E]" + name
		}

		artists := iterutil.Map(track.Get("artists").Array(), func(_ int, a gjson.Result) string {
			return a.Get("name").String()
		})

		results.Tracks = append(results.Tracks, types.SearchTrack{
			ID:      track.Get("id").String(),
			Name:    name,
			Artists: types.JoinNames(artists),
		})
	}

	for _, album := range root.Get("albums.items").Array() {
		artists := iterutil.Map(album.Get("artists").Array(), func(_ int, a gjson.Result) string {
			return a.Get("name").String()
		})

		results.Albums = append(results.Albums, types.SearchAlbum{
			ID:          album.Get("id").String(),
			Name:        album.Get("name").String(),
			Year:        yearOf(album.Get("release_date").String()),
			Artists:     types.JoinNames(artists),
			TotalTracks: int(album.Get("total_tracks").Int()),
		})
	}

	for _, playlist := range root.Get("playlists.items").Array() {
		results.Playlists = append(results.Playlists, types.SearchPlaylist{
			ID:          playlist.Get("id").String(),
			Name:        playlist.Get("name").String(),
			Owner:       playlist.Get("owner.display_name").String(),
			TotalTracks: int(playlist.Get("tracks.total").Int()),
		})
	}

	for _, artist := range root.Get("artists.items").Array() {
		genres := iterutil.Map(artist.Get("genres").Array(), func(_ int, g gjson.Result) string {
			return g.String()
		})

		results.Artists = append(results.Artists, types.SearchArtist{
			ID:     artist.Get("id").String(),
			Name:   artist.Get("name").String(),
			Genres: types.JoinNames(genres),
		})
	}

	return &results
}
