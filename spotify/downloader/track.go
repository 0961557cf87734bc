package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/xeptore/zpotify/archive"
	"github.com/xeptore/zpotify/encode"
	"github.com/xeptore/zpotify/spotify/api"
	"github.com/xeptore/zpotify/spotify/fs"
	"github.com/xeptore/zpotify/spotify/types"
)

// DownloadTrack runs the full pipeline for one track: ledger gate,
// metadata lookup, stream drain, encode, tag and ledger commit. Missing
// metadata and unplayable tracks are skipped without error so batch
// callers keep going.
func (d *Downloader) DownloadTrack(
	ctx context.Context,
	logger zerolog.Logger,
	id string,
	dir string,
	caller fs.Caller,
) error {
	logger = logger.With().Str("track_id", id).Logger()

	completed, err := d.archive.HasCompleted(id, archive.KindTrack)
	if nil != err {
		return fmt.Errorf("failed to check track ledger entry: %v", err)
	}
	if completed {
		logger.Info().Msg("Skipping track, already downloaded")

		return nil
	}

	track, err := d.api.TrackInfo(ctx, logger, id)
	if nil != err {
		if errors.Is(err, api.ErrNotFound) {
			logger.Warn().Msg("Skipping track, could not get track info")

			return nil
		}

		return fmt.Errorf("failed to get track info: %w", err)
	}

	if !track.Playable {
		logger.Info().Str("title", track.Title).Msg("Skipping track, not available")

		return nil
	}

	filename := fs.TrackFilename(
		caller,
		track.Title,
		track.TrackNumber,
		track.ArtistName,
		track.AlbumName,
		d.conf.AlbumInFilename,
	)

	baseDir := dir
	if baseDir == "" {
		baseDir = d.conf.MusicDir
	}
	outputPath := filepath.Join(baseDir, filename+"."+d.conf.OutputFormat)

	if _, err := os.Stat(outputPath); nil == err {
		logger.Info().Str("path", outputPath).Msg("Skipping track, file already exists")
		if err := d.archive.MarkCompleted(id, archive.KindTrack, outputPath); nil != err {
			return fmt.Errorf("failed to record existing track in ledger: %v", err)
		}

		return nil
	}

	if err := d.ensureOutputDir(baseDir); nil != err {
		return err
	}

	raw, err := d.downloadAudio(ctx, logger, id, false)
	if nil != err {
		return fmt.Errorf("failed to download track audio: %w", err)
	}

	params := encode.Params{
		Format:  d.conf.OutputFormat,
		Bitrate: d.auth.Quality().Bitrate(),
		Cover:   d.coverOf(ctx, logger, track.CoverURL),
		Tags: encode.Tags{
			Title:       track.Title,
			Artists:     track.ArtistName,
			Album:       track.AlbumName,
			AlbumArtist: track.AlbumArtist,
			ReleaseYear: track.ReleaseYear,
			DiscNumber:  track.DiscNumber,
			TrackNumber: track.TrackNumber,
			TrackID:     track.ScrapedID,
		},
	}
	if err := d.encoder.Encode(ctx, logger, raw, outputPath, params); nil != err {
		return fmt.Errorf("failed to encode track: %w", err)
	}

	if err := d.archive.MarkCompleted(id, archive.KindTrack, outputPath); nil != err {
		return fmt.Errorf("failed to record track in ledger: %v", err)
	}
	logger.Info().Str("path", outputPath).Msg("Finished downloading track")

	return d.pause(ctx)
}

// DownloadEpisode mirrors the track pipeline for podcast episodes, with
// publisher and show name standing in for artist and album. number is
// the episode's position when downloading a whole show, zero otherwise.
func (d *Downloader) DownloadEpisode(
	ctx context.Context,
	logger zerolog.Logger,
	id string,
	dir string,
	caller fs.Caller,
	number int,
) error {
	logger = logger.With().Str("episode_id", id).Logger()

	completed, err := d.archive.HasCompleted(id, archive.KindTrack)
	if nil != err {
		return fmt.Errorf("failed to check episode ledger entry: %v", err)
	}
	if completed {
		logger.Info().Msg("Skipping episode, already downloaded")

		return nil
	}

	episode, err := d.api.EpisodeInfo(ctx, logger, id)
	if nil != err {
		if errors.Is(err, api.ErrNotFound) {
			logger.Warn().Msg("Skipping episode, could not get episode info")

			return nil
		}

		return fmt.Errorf("failed to get episode info: %w", err)
	}

	if !episode.Playable {
		logger.Info().Str("title", episode.Title).Msg("Skipping episode, not available")

		return nil
	}

	filename := fs.TrackFilename(caller, episode.Title, number, episode.Publisher, episode.ShowName, false)

	baseDir := dir
	if baseDir == "" {
		baseDir = d.conf.EpisodesDir
	}
	outputPath := filepath.Join(baseDir, filename+"."+d.conf.OutputFormat)

	if _, err := os.Stat(outputPath); nil == err {
		logger.Info().Str("path", outputPath).Msg("Skipping episode, file already exists")
		if err := d.archive.MarkCompleted(id, archive.KindTrack, outputPath); nil != err {
			return fmt.Errorf("failed to record existing episode in ledger: %v", err)
		}

		return nil
	}

	if err := d.ensureOutputDir(baseDir); nil != err {
		return err
	}

	raw, err := d.downloadAudio(ctx, logger, id, true)
	if nil != err {
		return fmt.Errorf("failed to download episode audio: %w", err)
	}

	params := encode.Params{
		Format:  d.conf.OutputFormat,
		Bitrate: d.auth.Quality().Bitrate(),
		Cover:   d.coverOf(ctx, logger, episode.CoverURL),
		Tags: encode.Tags{ //nolint:exhaustruct
			Title:       episode.Title,
			Artists:     episode.Publisher,
			Album:       episode.ShowName,
			AlbumArtist: episode.Publisher,
			ReleaseYear: episode.ReleaseYear,
			TrackNumber: number,
			TrackID:     episode.ID,
		},
	}
	if err := d.encoder.Encode(ctx, logger, raw, outputPath, params); nil != err {
		return fmt.Errorf("failed to encode episode: %w", err)
	}

	if err := d.archive.MarkCompleted(id, archive.KindTrack, outputPath); nil != err {
		return fmt.Errorf("failed to record episode in ledger: %v", err)
	}
	logger.Info().Str("path", outputPath).Msg("Finished downloading episode")

	return d.pause(ctx)
}

// coverOf fetches cover art bytes when the metadata carries a cover
// URL. Cover failures never fail the pipeline, the file is simply
// written without embedded art.
func (d *Downloader) coverOf(ctx context.Context, logger zerolog.Logger, coverURL string) []byte {
	if coverURL == "" || coverURL == types.Unknown {
		return nil
	}

	cover, err := d.api.DownloadCover(ctx, coverURL)
	if nil != err {
		logger.Warn().Err(err).Str("cover_url", coverURL).Msg("Failed to download cover art, continuing without it")

		return nil
	}

	return cover
}
