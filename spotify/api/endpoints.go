package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/xeptore/zpotify/cache"
	"github.com/xeptore/zpotify/iterutil"
	"github.com/xeptore/zpotify/spotify/fs"
	"github.com/xeptore/zpotify/spotify/types"
)

const (
	playlistsPageLimit       = 50
	playlistTracksPageLimit  = 100
	albumTracksPageLimit     = 50
	artistAlbumsPageLimit    = 50
	likedTracksPageLimit     = 50
	showEpisodesPageLimit    = 50
	followedArtistsPageLimit = 50
)

func (c *Client) lookupTimeout() time.Duration {
	return time.Duration(c.timeouts.Lookup) * time.Second
}

func (c *Client) pageTimeout() time.Duration {
	return time.Duration(c.timeouts.GetPagedItems) * time.Second
}

// TrackInfo shapes a track lookup into a flat metadata record. A
// response that cannot be shaped is treated as not found so batch
// pipelines skip the entity instead of aborting.
func (c *Client) TrackInfo(ctx context.Context, logger zerolog.Logger, id string) (*types.Track, error) {
	item, err := c.cache.TracksMeta.Fetch(id, cache.DefaultTrackTTL, func() (*types.Track, error) {
		params := url.Values{"ids": []string{id}, "market": []string{"from_token"}}
		respBody, err := c.get(ctx, logger, "/tracks", generalScope, params, c.lookupTimeout())
		if nil != err {
			return nil, fmt.Errorf("failed to get track info: %w", err)
		}

		track, err := shapeTrack(id, respBody)
		if nil != err {
			logger.Error().Err(err).Str("track_id", id).Msg("Failed to shape track metadata")

			return nil, ErrNotFound
		}

		return track, nil
	})
	if nil != err {
		return nil, err
	}

	return item.Value(), nil
}

func (c *Client) EpisodeInfo(ctx context.Context, logger zerolog.Logger, id string) (*types.Episode, error) {
	respBody, err := c.get(ctx, logger, "/episodes/"+id, generalScope, nil, c.lookupTimeout())
	if nil != err {
		return nil, fmt.Errorf("failed to get episode info: %w", err)
	}

	episode, err := shapeEpisode(id, respBody)
	if nil != err {
		logger.Error().Err(err).Str("episode_id", id).Msg("Failed to shape episode metadata")

		return nil, ErrNotFound
	}

	return episode, nil
}

func (c *Client) AlbumInfo(ctx context.Context, logger zerolog.Logger, id string) (*types.Album, error) {
	item, err := c.cache.AlbumsMeta.Fetch(id, cache.DefaultAlbumTTL, func() (*types.Album, error) {
		respBody, err := c.get(ctx, logger, "/albums/"+id, generalScope, nil, c.lookupTimeout())
		if nil != err {
			return nil, fmt.Errorf("failed to get album info: %w", err)
		}

		album, err := shapeAlbum(id, respBody)
		if nil != err {
			logger.Error().Err(err).Str("album_id", id).Msg("Failed to shape album metadata")

			return nil, ErrNotFound
		}

		return album, nil
	})
	if nil != err {
		return nil, err
	}

	return item.Value(), nil
}

func (c *Client) ArtistInfo(ctx context.Context, logger zerolog.Logger, id string) (*types.Artist, error) {
	respBody, err := c.get(ctx, logger, "/artists/"+id, generalScope, nil, c.lookupTimeout())
	if nil != err {
		return nil, fmt.Errorf("failed to get artist info: %w", err)
	}

	artist, err := shapeArtist(id, respBody)
	if nil != err {
		logger.Error().Err(err).Str("artist_id", id).Msg("Failed to shape artist metadata")

		return nil, ErrNotFound
	}

	return artist, nil
}

func (c *Client) ShowInfo(ctx context.Context, logger zerolog.Logger, id string) (*types.Show, error) {
	respBody, err := c.get(ctx, logger, "/shows/"+id, generalScope, nil, c.lookupTimeout())
	if nil != err {
		return nil, fmt.Errorf("failed to get show info: %w", err)
	}

	show, err := shapeShow(respBody)
	if nil != err {
		logger.Error().Err(err).Str("show_id", id).Msg("Failed to shape show metadata")

		return nil, ErrNotFound
	}

	return show, nil
}

func (c *Client) PlaylistInfo(ctx context.Context, logger zerolog.Logger, id string) (*types.Playlist, error) {
	params := url.Values{
		"fields": []string{"name,owner(display_name)"},
		"market": []string{"from_token"},
	}
	respBody, err := c.get(ctx, logger, "/playlists/"+id, generalScope, params, c.lookupTimeout())
	if nil != err {
		return nil, fmt.Errorf("failed to get playlist info: %w", err)
	}

	playlist, err := shapePlaylist(id, respBody)
	if nil != err {
		logger.Error().Err(err).Str("playlist_id", id).Msg("Failed to shape playlist metadata")

		return nil, ErrNotFound
	}

	return playlist, nil
}

// pagedItems walks a paged collection endpoint. A page shorter than the
// requested limit terminates the walk.
func (c *Client) pagedItems(
	ctx context.Context,
	logger zerolog.Logger,
	path string,
	scope tokenScope,
	limit int,
	extra url.Values,
	visit func(item gjson.Result),
) error {
	for offset := 0; ; offset += limit {
		params := url.Values{}
		for k, vs := range extra {
			params[k] = vs
		}
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))

		respBody, err := c.get(ctx, logger, path, scope, params, c.pageTimeout())
		if nil != err {
			return err
		}

		items := gjson.GetBytes(respBody, "items").Array()
		for _, item := range items {
			visit(item)
		}

		if len(items) < limit {
			return nil
		}
	}
}

func (c *Client) UserPlaylists(ctx context.Context, logger zerolog.Logger) ([]types.Playlist, error) {
	var playlists []types.Playlist
	err := c.pagedItems(
		ctx,
		logger,
		"/me/playlists",
		generalScope,
		playlistsPageLimit,
		nil,
		func(item gjson.Result) {
			playlists = append(playlists, types.Playlist{
				ID:    item.Get("id").String(),
				Name:  item.Get("name").String(),
				Owner: item.Get("owner.display_name").String(),
			})
		},
	)
	if nil != err {
		return nil, fmt.Errorf("failed to get user playlists: %w", err)
	}

	return playlists, nil
}

// PlaylistTracks lists a playlist's tracks. Items whose track object is
// null, which the catalog returns for removed content, are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, logger zerolog.Logger, id string) ([]types.ListedTrack, error) {
	var tracks []types.ListedTrack
	err := c.pagedItems(
		ctx,
		logger,
		"/playlists/"+id+"/tracks",
		generalScope,
		playlistTracksPageLimit,
		nil,
		func(item gjson.Result) {
			track := item.Get("track")
			if !track.Exists() || track.Type == gjson.Null {
				return
			}

			tracks = append(tracks, types.ListedTrack{
				ID:         track.Get("id").String(),
				Title:      track.Get("name").String(),
				ArtistName: track.Get("artists.0.name").String(),
			})
		},
	)
	if nil != err {
		return nil, fmt.Errorf("failed to get playlist tracks: %w", err)
	}

	return tracks, nil
}

func (c *Client) AlbumTracks(ctx context.Context, logger zerolog.Logger, id string) ([]types.AlbumTrack, error) {
	extra := url.Values{"include_groups": []string{"album,compilation"}}

	var tracks []types.AlbumTrack
	err := c.pagedItems(
		ctx,
		logger,
		"/albums/"+id+"/tracks",
		generalScope,
		albumTracksPageLimit,
		extra,
		func(item gjson.Result) {
			tracks = append(tracks, types.AlbumTrack{
				ID:          item.Get("id").String(),
				Title:       item.Get("name").String(),
				TrackNumber: int(item.Get("track_number").Int()),
				DiscNumber:  int(item.Get("disc_number").Int()),
			})
		},
	)
	if nil != err {
		return nil, fmt.Errorf("failed to get album tracks: %w", err)
	}

	return tracks, nil
}

func (c *Client) ArtistAlbums(ctx context.Context, logger zerolog.Logger, id string) ([]types.ArtistAlbum, error) {
	extra := url.Values{"include_groups": []string{"album,compilation,single"}}

	var albums []types.ArtistAlbum
	err := c.pagedItems(
		ctx,
		logger,
		"/artists/"+id+"/albums",
		generalScope,
		artistAlbumsPageLimit,
		extra,
		func(item gjson.Result) {
			albums = append(albums, types.ArtistAlbum{
				ID:          item.Get("id").String(),
				Name:        item.Get("name").String(),
				ReleaseDate: releaseYearOf(item.Get("release_date").String()),
				TotalTracks: int(item.Get("total_tracks").Int()),
			})
		},
	)
	if nil != err {
		return nil, fmt.Errorf("failed to get artist albums: %w", err)
	}

	return albums, nil
}

// LikedTracks lists the account's saved tracks. This is the only
// endpoint that requires the library-scoped token.
func (c *Client) LikedTracks(ctx context.Context, logger zerolog.Logger) ([]types.ListedTrack, error) {
	var tracks []types.ListedTrack
	err := c.pagedItems(
		ctx,
		logger,
		"/me/tracks",
		libraryScope,
		likedTracksPageLimit,
		nil,
		func(item gjson.Result) {
			track := item.Get("track")
			if !track.Exists() || track.Type == gjson.Null {
				return
			}

			tracks = append(tracks, types.ListedTrack{
				ID:         track.Get("id").String(),
				Title:      track.Get("name").String(),
				ArtistName: track.Get("artists.0.name").String(),
			})
		},
	)
	if nil != err {
		return nil, fmt.Errorf("failed to get liked tracks: %w", err)
	}

	return tracks, nil
}

// FollowedArtists lists the artists the account follows. Unlike the
// other listing endpoints this one pages with an after-cursor instead
// of an offset, and it needs the library-scoped token.
func (c *Client) FollowedArtists(ctx context.Context, logger zerolog.Logger) ([]types.Artist, error) {
	var artists []types.Artist
	after := ""
	for {
		params := url.Values{
			"type":  []string{"artist"},
			"limit": []string{strconv.Itoa(followedArtistsPageLimit)},
		}
		if after != "" {
			params.Set("after", after)
		}

		respBody, err := c.get(ctx, logger, "/me/following", libraryScope, params, c.pageTimeout())
		if nil != err {
			return nil, fmt.Errorf("failed to get followed artists: %w", err)
		}

		items := gjson.GetBytes(respBody, "artists.items").Array()
		for _, item := range items {
			genres := iterutil.Map(item.Get("genres").Array(), func(_ int, g gjson.Result) string {
				return g.String()
			})

			artists = append(artists, types.Artist{
				ID:     item.Get("id").String(),
				Name:   fs.Sanitize(item.Get("name").String()),
				Genres: types.JoinNames(genres),
			})
		}

		cursor := gjson.GetBytes(respBody, "artists.cursors.after").String()
		if len(items) < followedArtistsPageLimit || cursor == "" {
			return artists, nil
		}
		after = cursor
	}
}

func (c *Client) ShowEpisodes(ctx context.Context, logger zerolog.Logger, id string) ([]types.ShowEpisode, error) {
	var episodes []types.ShowEpisode
	err := c.pagedItems(
		ctx,
		logger,
		"/shows/"+id+"/episodes",
		generalScope,
		showEpisodesPageLimit,
		nil,
		func(item gjson.Result) {
			episodes = append(episodes, types.ShowEpisode{
				ID:          item.Get("id").String(),
				Title:       item.Get("name").String(),
				ReleaseDate: item.Get("release_date").String(),
			})
		},
	)
	if nil != err {
		return nil, fmt.Errorf("failed to get show episodes: %w", err)
	}

	return episodes, nil
}

func (c *Client) Search(ctx context.Context, logger zerolog.Logger, query string, limit int) (*types.SearchResults, error) {
	params := url.Values{
		"q":      []string{query},
		"type":   []string{"track,album,playlist,artist"},
		"limit":  []string{strconv.Itoa(limit)},
		"offset": []string{"0"},
	}
	respBody, err := c.get(ctx, logger, "/search", generalScope, params, c.lookupTimeout())
	if nil != err {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}

	return shapeSearchResults(respBody), nil
}
