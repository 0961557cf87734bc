package downloader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/xeptore/zpotify/archive"
	"github.com/xeptore/zpotify/ratelimit"
	"github.com/xeptore/zpotify/spotify/api"
	"github.com/xeptore/zpotify/spotify/fs"
	"github.com/xeptore/zpotify/spotify/types"
)

// DownloadAlbum downloads every track of an album into a directory
// labeled by artist and release year. Individual track failures are
// logged and the rest of the album proceeds. Returns whether any
// download work was performed, so callers can pace batches.
func (d *Downloader) DownloadAlbum(ctx context.Context, logger zerolog.Logger, id string) (bool, error) {
	logger = logger.With().Str("album_id", id).Logger()

	completed, err := d.archive.HasCompleted(id, archive.KindAlbum)
	if nil != err {
		return false, fmt.Errorf("failed to check album ledger entry: %v", err)
	}
	if completed {
		logger.Info().Msg("Skipping album, already fully downloaded")

		return false, nil
	}

	album, err := d.api.AlbumInfo(ctx, logger, id)
	if nil != err {
		if errors.Is(err, api.ErrNotFound) {
			logger.Warn().Msg("Album not found")

			return false, nil
		}

		return false, fmt.Errorf("failed to get album info: %w", err)
	}

	tracks, err := d.api.AlbumTracks(ctx, logger, id)
	if nil != err {
		return false, fmt.Errorf("failed to get album tracks: %w", err)
	}
	if len(tracks) == 0 {
		logger.Warn().Msg("Album is empty")

		return false, nil
	}

	multiDisc := lo.SomeBy(tracks, func(t types.AlbumTrack) bool { return t.DiscNumber > 1 })

	albumDir := filepath.Join(
		d.conf.MusicDir,
		fs.Sanitize(album.Artists),
		fs.AlbumDirName(album.ReleaseDate, album.Name),
	)
	logger.Info().Str("album", album.Name).Str("artists", album.Artists).Msg("Downloading album")

	for _, track := range tracks {
		trackDir := albumDir
		if multiDisc {
			trackDir = filepath.Join(albumDir, fs.Zfill(track.DiscNumber))
		}

		if err := d.DownloadTrack(ctx, logger, track.ID, trackDir, fs.CallerAlbum); nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return false, ctxErr
			}

			logger.Warn().Err(err).Str("track_id", track.ID).Msg("Failed to download album track, continuing")
		}
	}

	if err := d.archive.MarkCompleted(id, archive.KindAlbum, ""); nil != err {
		return false, fmt.Errorf("failed to record album in ledger: %v", err)
	}
	logger.Info().Str("album", album.Name).Msg("Finished downloading album")

	return true, nil
}

// DownloadArtist walks an artist's discography, pausing between albums
// that actually performed download work.
func (d *Downloader) DownloadArtist(ctx context.Context, logger zerolog.Logger, id string) error {
	logger = logger.With().Str("artist_id", id).Logger()

	completed, err := d.archive.HasCompleted(id, archive.KindArtist)
	if nil != err {
		return fmt.Errorf("failed to check artist ledger entry: %v", err)
	}
	if completed {
		logger.Info().Msg("Skipping artist, already fully downloaded")

		return nil
	}

	albums, err := d.api.ArtistAlbums(ctx, logger, id)
	if nil != err {
		return fmt.Errorf("failed to get artist albums: %w", err)
	}
	if len(albums) == 0 {
		logger.Warn().Msg("Artist has no albums")

		return nil
	}

	for _, album := range albums {
		downloaded, err := d.DownloadAlbum(ctx, logger, album.ID)
		if nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return ctxErr
			}

			logger.Warn().Err(err).Str("album_id", album.ID).Msg("Failed to download artist album, continuing")

			continue
		}

		if downloaded {
			if err := antibanSleep(ctx, ratelimit.AlbumSleep()); nil != err {
				return err
			}
		}
	}

	if err := d.archive.MarkCompleted(id, archive.KindArtist, ""); nil != err {
		return fmt.Errorf("failed to record artist in ledger: %v", err)
	}
	logger.Info().Msg("Finished downloading artist")

	return nil
}

// DownloadPlaylist downloads a playlist's tracks into a directory named
// after the playlist, falling back to the playlist id when the playlist
// has no name.
func (d *Downloader) DownloadPlaylist(ctx context.Context, logger zerolog.Logger, id string) error {
	logger = logger.With().Str("playlist_id", id).Logger()

	playlist, err := d.api.PlaylistInfo(ctx, logger, id)
	if nil != err {
		if errors.Is(err, api.ErrNotFound) {
			logger.Warn().Msg("Playlist not found")

			return nil
		}

		return fmt.Errorf("failed to get playlist info: %w", err)
	}

	tracks, err := d.api.PlaylistTracks(ctx, logger, id)
	if nil != err {
		return fmt.Errorf("failed to get playlist tracks: %w", err)
	}
	if len(tracks) == 0 {
		logger.Warn().Msg("Playlist is empty")

		return nil
	}

	name := playlist.Name
	if name == "" {
		name = id
	}
	baseDir := filepath.Join(d.conf.MusicDir, fs.Sanitize(name))
	logger.Info().Str("playlist", name).Msg("Downloading playlist")

	for _, track := range tracks {
		if err := d.DownloadTrack(ctx, logger, track.ID, baseDir, fs.CallerPlaylist); nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return ctxErr
			}

			logger.Warn().Err(err).Str("track_id", track.ID).Msg("Failed to download playlist track, continuing")
		}
	}
	logger.Info().Str("playlist", name).Msg("Finished downloading playlist")

	return nil
}

// DownloadAllUserPlaylists downloads every playlist of the account,
// pausing between playlists.
func (d *Downloader) DownloadAllUserPlaylists(ctx context.Context, logger zerolog.Logger) error {
	playlists, err := d.api.UserPlaylists(ctx, logger)
	if nil != err {
		return fmt.Errorf("failed to get user playlists: %w", err)
	}
	if len(playlists) == 0 {
		logger.Warn().Msg("No playlists found")

		return nil
	}

	for _, playlist := range playlists {
		if err := d.DownloadPlaylist(ctx, logger, playlist.ID); nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return ctxErr
			}

			logger.Warn().Err(err).Str("playlist_id", playlist.ID).Msg("Failed to download playlist, continuing")

			continue
		}

		if err := antibanSleep(ctx, ratelimit.AlbumSleep()); nil != err {
			return err
		}
	}
	logger.Info().Msg("Finished downloading all user playlists")

	return nil
}

// DownloadLiked downloads the account's saved tracks into a fixed
// "Liked Songs" directory.
func (d *Downloader) DownloadLiked(ctx context.Context, logger zerolog.Logger) error {
	tracks, err := d.api.LikedTracks(ctx, logger)
	if nil != err {
		return fmt.Errorf("failed to get liked tracks: %w", err)
	}
	if len(tracks) == 0 {
		logger.Warn().Msg("No liked tracks found")

		return nil
	}

	baseDir := filepath.Join(d.conf.MusicDir, "Liked Songs")
	logger.Info().Int("count", len(tracks)).Msg("Downloading liked tracks")

	for _, track := range tracks {
		if err := d.DownloadTrack(ctx, logger, track.ID, baseDir, fs.CallerNone); nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return ctxErr
			}

			logger.Warn().Err(err).Str("track_id", track.ID).Msg("Failed to download liked track, continuing")
		}
	}
	logger.Info().Msg("Finished downloading liked tracks")

	return nil
}

// DownloadLikedArtists walks the full discography of every artist the
// account follows, pausing between artists.
func (d *Downloader) DownloadLikedArtists(ctx context.Context, logger zerolog.Logger) error {
	artists, err := d.api.FollowedArtists(ctx, logger)
	if nil != err {
		return fmt.Errorf("failed to get followed artists: %w", err)
	}
	if len(artists) == 0 {
		logger.Warn().Msg("No followed artists found")

		return nil
	}

	logger.Info().Int("count", len(artists)).Msg("Downloading followed artists")

	for _, artist := range artists {
		if err := d.DownloadArtist(ctx, logger, artist.ID); nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return ctxErr
			}

			logger.Warn().Err(err).Str("artist_id", artist.ID).Msg("Failed to download followed artist, continuing")

			continue
		}

		if err := antibanSleep(ctx, ratelimit.AlbumSleep()); nil != err {
			return err
		}
	}
	logger.Info().Msg("Finished downloading followed artists")

	return nil
}

// DownloadShow downloads every episode of a show into a directory named
// after the show under the episodes directory.
func (d *Downloader) DownloadShow(ctx context.Context, logger zerolog.Logger, id string) error {
	logger = logger.With().Str("show_id", id).Logger()

	show, err := d.api.ShowInfo(ctx, logger, id)
	if nil != err {
		if errors.Is(err, api.ErrNotFound) {
			logger.Warn().Msg("Show not found")

			return nil
		}

		return fmt.Errorf("failed to get show info: %w", err)
	}

	episodes, err := d.api.ShowEpisodes(ctx, logger, id)
	if nil != err {
		return fmt.Errorf("failed to get show episodes: %w", err)
	}
	if len(episodes) == 0 {
		logger.Warn().Msg("Show has no episodes")

		return nil
	}

	baseDir := filepath.Join(d.conf.EpisodesDir, fs.Sanitize(show.Name))
	logger.Info().Str("show", show.Name).Msg("Downloading show")

	for i, episode := range episodes {
		if err := d.DownloadEpisode(ctx, logger, episode.ID, baseDir, fs.CallerShow, i+1); nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return ctxErr
			}

			logger.Warn().Err(err).Str("episode_id", episode.ID).Msg("Failed to download show episode, continuing")
		}
	}
	logger.Info().Str("show", show.Name).Msg("Finished downloading show")

	return nil
}
