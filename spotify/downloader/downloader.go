package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/xeptore/zpotify/archive"
	"github.com/xeptore/zpotify/config"
	"github.com/xeptore/zpotify/encode"
	"github.com/xeptore/zpotify/mathutil"
	"github.com/xeptore/zpotify/progress"
	"github.com/xeptore/zpotify/ratelimit"
	"github.com/xeptore/zpotify/spotify/api"
	"github.com/xeptore/zpotify/spotify/auth"
	"github.com/xeptore/zpotify/spotify/types"
)

// ErrMissingDir is returned when directory creation is disabled and the
// output directory does not exist.
var ErrMissingDir = errors.New("output directory does not exist")

// Downloader runs the retrieval pipelines. Every pipeline is gated by
// the download ledger: entities whose retrieval already completed are
// skipped without touching the network, and an entity is only recorded
// in the ledger after its output is durably on disk.
type Downloader struct {
	conf    config.Spotify
	auth    *auth.Auth
	api     *api.Client
	archive *archive.Archive
	encoder encode.Encoder
	obs     progress.Observer
}

func New(
	conf config.Spotify,
	a *auth.Auth,
	client *api.Client,
	arc *archive.Archive,
	encoder encode.Encoder,
	obs progress.Observer,
) *Downloader {
	return &Downloader{
		conf:    conf,
		auth:    a,
		api:     client,
		archive: arc,
		encoder: encoder,
		obs:     obs,
	}
}

func (d *Downloader) openStreamTimeout() time.Duration {
	return time.Duration(d.conf.Downloader.Timeouts.OpenStream) * time.Second
}

func (d *Downloader) encodeDeadline() time.Duration {
	return time.Duration(d.conf.Downloader.Timeouts.EncodeDeadline) * time.Second
}

// ensureOutputDir creates the output directory, or, when directory
// creation is disabled, verifies it already exists.
func (d *Downloader) ensureOutputDir(dir string) error {
	if d.conf.RequireExistingDirs {
		info, err := os.Stat(dir)
		if nil != err {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrMissingDir, dir)
			}

			return fmt.Errorf("failed to stat output directory: %v", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrMissingDir, dir)
		}

		return nil
	}

	if err := os.MkdirAll(dir, 0o755); nil != err {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	return nil
}

// pause applies the configured anti-ban wait after a completed
// download.
func (d *Downloader) pause(ctx context.Context) error {
	if wait := ratelimit.TrackDownloadSleep(d.conf.Downloader.AntibanWaitSeconds); wait > 0 {
		return antibanSleep(ctx, wait)
	}

	return nil
}

// downloadAudio opens the content stream and drains it fully into
// memory. Opening is retried with a short backoff as the wire layer
// rejects open requests transiently under load. An id labeled as one
// content kind but resolving to the other falls back to the sibling
// stream kind.
func (d *Downloader) downloadAudio(
	ctx context.Context,
	logger zerolog.Logger,
	id string,
	preferEpisode bool,
) (raw []byte, err error) {
	session := d.auth.Session()
	quality := d.auth.Quality()

	var stream auth.Stream
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		openCtx, cancel := context.WithTimeout(ctx, d.openStreamTimeout())
		defer cancel()

		s, openErr := d.openStream(openCtx, logger, session, id, quality, preferEpisode)
		if nil != openErr {
			return retry.RetryableError(openErr)
		}
		stream = s

		return nil
	})
	if nil != err {
		return nil, fmt.Errorf("failed to open content stream: %w", err)
	}
	defer func() {
		if closeErr := stream.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close content stream: %v", closeErr))
		}
	}()

	logger.
		Debug().
		Int("total_bytes", stream.TotalSize()).
		Int("chunks", mathutil.DivCeil(stream.TotalSize(), chunkSize)).
		Msg("Opened content stream")

	return drainStream(stream, id, d.obs)
}

func (d *Downloader) openStream(
	ctx context.Context,
	logger zerolog.Logger,
	session auth.Session,
	id string,
	quality types.Quality,
	preferEpisode bool,
) (auth.Stream, error) {
	if preferEpisode {
		stream, err := session.OpenEpisodeStream(ctx, id, quality)
		if errors.Is(err, auth.ErrWrongContentKind) {
			logger.Debug().Str("id", id).Msg("Id does not resolve to an episode, trying track stream")

			return session.OpenTrackStream(ctx, id, quality)
		}

		return stream, err
	}

	stream, err := session.OpenTrackStream(ctx, id, quality)
	if errors.Is(err, auth.ErrWrongContentKind) {
		logger.Debug().Str("id", id).Msg("Id does not resolve to a track, trying episode stream")

		return session.OpenEpisodeStream(ctx, id, quality)
	}

	return stream, err
}

// antibanSleep pauses between consecutive downloads, honoring context
// cancellation.
func antibanSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
