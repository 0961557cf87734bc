package types

type SearchTrack struct {
	ID      string
	Name    string
	Artists string
}

type SearchAlbum struct {
	ID          string
	Name        string
	Year        string
	Artists     string
	TotalTracks int
}

type SearchPlaylist struct {
	ID          string
	Name        string
	Owner       string
	TotalTracks int
}

type SearchArtist struct {
	ID     string
	Name   string
	Genres string
}

type SearchResults struct {
	Tracks    []SearchTrack
	Albums    []SearchAlbum
	Playlists []SearchPlaylist
	Artists   []SearchArtist
}

func (r SearchResults) Empty() bool {
	return len(r.Tracks)+len(r.Albums)+len(r.Playlists)+len(r.Artists) == 0
}
