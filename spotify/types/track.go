package types

import (
	"strings"
)

// Unknown marks optional metadata fields the catalog did not provide.
const Unknown = "UNKNOWN"

func JoinNames(names []string) string {
	return strings.Join(names, ", ")
}

// Track is the flat record shaped from a track lookup response.
type Track struct {
	ID          string
	ArtistID    string
	ArtistName  string
	AlbumArtist string
	AlbumName   string
	Title       string
	CoverURL    string
	ReleaseYear string
	ReleaseDate string
	DiscNumber  int
	TrackNumber int
	ScrapedID   string
	Playable    bool
}

// Episode is the flat record shaped from an episode lookup response.
// Publisher and ShowName stand in for artist and album when an id
// resolves to podcast content instead of a track.
type Episode struct {
	ID          string
	ShowID      string
	Publisher   string
	ShowName    string
	Title       string
	CoverURL    string
	ReleaseYear string
	ReleaseDate string
	Playable    bool
}

type Album struct {
	ID          string
	Artists     string
	Name        string
	TotalTracks int
	ReleaseDate string
}

type AlbumTrack struct {
	ID          string
	Title       string
	TrackNumber int
	DiscNumber  int
}

type Artist struct {
	ID     string
	Name   string
	Genres string
}

type ArtistAlbum struct {
	ID          string
	Name        string
	ReleaseDate string
	TotalTracks int
}

type Show struct {
	ID            string
	Name          string
	Publisher     string
	TotalEpisodes int
}

type ShowEpisode struct {
	ID          string
	Title       string
	ReleaseDate string
}

type Playlist struct {
	ID    string
	Name  string
	Owner string
}

// ListedTrack is the minimal record paged listing endpoints return for
// playlist, album and liked-tracks items.
type ListedTrack struct {
	ID         string
	Title      string
	ArtistName string
}
