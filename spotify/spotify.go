package spotify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

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

// Client bundles the authenticated retrieval stack: session and token
// management, catalog lookups, the download ledger and the download
// pipelines.
type Client struct {
	Auth       *auth.Auth
	API        *api.Client
	Downloader *downloader.Downloader
	archive    *archive.Archive
}

func NewClient(conf config.Spotify, connector auth.Connector) (*Client, error) {
	credsFile := fs.CredentialsFileFrom(conf.CredentialsFile)
	a := auth.New(connector, credsFile, conf.ForcePremium)
	client := api.New(a, conf.Downloader)

	arc, err := archive.Open(conf.LedgerFile)
	if nil != err {
		return nil, fmt.Errorf("failed to open download ledger: %v", err)
	}

	encoder := encode.NewFFmpeg(time.Duration(conf.Downloader.Timeouts.EncodeDeadline) * time.Second)
	dl := downloader.New(conf, a, client, arc, encoder, progress.NewConsole())

	return &Client{
		Auth:       a,
		API:        client,
		Downloader: dl,
		archive:    arc,
	}, nil
}

// Close tears down the wire-layer session and the download ledger.
func (c *Client) Close() error {
	var errs []error
	if err := c.Auth.Close(); nil != err {
		errs = append(errs, err)
	}

	if err := c.archive.Close(); nil != err {
		errs = append(errs, fmt.Errorf("failed to close download ledger: %v", err))
	}

	return errors.Join(errs...)
}

func (c *Client) Login(ctx context.Context, logger zerolog.Logger, username, password string) (bool, error) {
	return c.Auth.Login(ctx, logger, username, password)
}

// Download dispatches a parsed link to its pipeline.
func (c *Client) Download(ctx context.Context, logger zerolog.Logger, link types.Link) error {
	switch link.Kind {
	case types.LinkKindTrack:
		return c.Downloader.DownloadTrack(ctx, logger, link.ID, "", fs.CallerNone)
	case types.LinkKindAlbum:
		_, err := c.Downloader.DownloadAlbum(ctx, logger, link.ID)

		return err
	case types.LinkKindPlaylist:
		return c.Downloader.DownloadPlaylist(ctx, logger, link.ID)
	case types.LinkKindArtist:
		return c.Downloader.DownloadArtist(ctx, logger, link.ID)
	case types.LinkKindEpisode:
		return c.Downloader.DownloadEpisode(ctx, logger, link.ID, "", fs.CallerNone, 0)
	case types.LinkKindShow:
		return c.Downloader.DownloadShow(ctx, logger, link.ID)
	default:
		return fmt.Errorf("unsupported link kind: %s", link.Kind)
	}
}

// DownloadURL parses and downloads a single link input.
func (c *Client) DownloadURL(ctx context.Context, logger zerolog.Logger, raw string) error {
	link, err := ParseLink(raw)
	if nil != err {
		return err
	}

	logger.Info().Str("kind", link.Kind.String()).Str("id", link.ID).Msg("Downloading link")

	return c.Download(ctx, logger, link)
}
