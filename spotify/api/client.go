package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/xeptore/zpotify/cache"
	"github.com/xeptore/zpotify/config"
	"github.com/xeptore/zpotify/httputil"
	"github.com/xeptore/zpotify/spotify/auth"
)

const (
	DefaultBaseURL = "https://api.spotify.com/v1"

	// maxRetries bounds the retry budget of a single authorized request.
	// Each token refresh and each transport failure consumes one unit.
	maxRetries = 3
)

var (
	ErrTooManyRetries = errors.New("request failed after exhausting its retry budget")
	// ErrNotFound covers both a catalog 404 and a response whose metadata
	// could not be shaped into a usable record.
	ErrNotFound = errors.New("content not found")
)

// TokenSource supplies the current token pair and re-mints it when the
// catalog rejects a bearer token.
type TokenSource interface {
	Tokens() auth.Tokens
	RefreshTokens(ctx context.Context, logger zerolog.Logger) (auth.Tokens, error)
}

type tokenScope int

const (
	generalScope tokenScope = iota
	libraryScope
)

type Client struct {
	baseURL  string
	tokens   TokenSource
	limiter  *rate.Limiter
	timeouts config.Timeouts
	cache    *cache.Cache
}

func New(tokens TokenSource, conf config.Downloader) *Client {
	return NewWithBaseURL(tokens, conf, DefaultBaseURL)
}

func NewWithBaseURL(tokens TokenSource, conf config.Downloader, baseURL string) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		tokens:   tokens,
		limiter:  rate.NewLimiter(rate.Limit(conf.RequestsPerSecond), 1),
		timeouts: conf.Timeouts,
		cache:    cache.New(),
	}
}

func (c *Client) bearer(scope tokenScope) string {
	tokens := c.tokens.Tokens()
	if scope == libraryScope {
		return tokens.Library
	}

	return tokens.General
}

// get issues an authorized GET request. A rejected token triggers a
// session-wide token refresh and a retry with the fresh token; a
// transport failure retries the same request after a pause. Both paths
// draw from the same bounded retry budget.
func (c *Client) get(
	ctx context.Context,
	logger zerolog.Logger,
	path string,
	scope tokenScope,
	params url.Values,
	timeout time.Duration,
) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	pause := backoff.NewExponentialBackOff()
	pause.InitialInterval = 250 * time.Millisecond
	pause.MaxInterval = 2 * time.Second

	for retry := 0; ; retry++ {
		if retry > maxRetries {
			return nil, ErrTooManyRetries
		}

		if err := c.limiter.Wait(ctx); nil != err {
			return nil, fmt.Errorf("failed to wait for request rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if nil != err {
			return nil, fmt.Errorf("failed to create request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.bearer(scope))

		httpClient := http.Client{Timeout: timeout} //nolint:exhaustruct
		resp, err := httpClient.Do(req)
		if nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return nil, ctxErr
			}

			logger.
				Warn().
				Err(err).
				Int("retry", retry).
				Str("url", reqURL).
				Msg("Request failed with transport error, retrying")
			time.Sleep(pause.NextBackOff())

			continue
		}

		respBody, err := drainResponse(resp)
		if nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return nil, ctxErr
			}

			logger.
				Warn().
				Err(err).
				Int("retry", retry).
				Str("url", reqURL).
				Msg("Failed to read response body, retrying")
			time.Sleep(pause.NextBackOff())

			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return respBody, nil
		case http.StatusUnauthorized:
			if err := c.logTokenRejection(logger, respBody); nil != err {
				logger.Warn().Err(err).Msg("Failed to classify 401 response body")
			}

			if _, err := c.tokens.RefreshTokens(ctx, logger); nil != err {
				return nil, fmt.Errorf("failed to refresh session tokens: %w", err)
			}

			continue
		case http.StatusNotFound:
			return nil, ErrNotFound
		default:
			return nil, fmt.Errorf(
				"received unexpected response with status code %d: %s",
				resp.StatusCode,
				string(respBody),
			)
		}
	}
}

func (c *Client) logTokenRejection(logger zerolog.Logger, respBody []byte) error {
	expired, err := httputil.IsTokenExpiredResponse(respBody)
	if nil != err {
		return err
	}
	if expired {
		logger.Warn().Msg("Access token expired, refreshing session tokens")

		return nil
	}

	invalid, err := httputil.IsTokenInvalidResponse(respBody)
	if nil != err {
		return err
	}
	if invalid {
		logger.Warn().Msg("Access token was invalidated, refreshing session tokens")

		return nil
	}

	logger.Warn().Str("body", string(respBody)).Msg("Request was rejected with 401, refreshing session tokens")

	return nil
}

func drainResponse(resp *http.Response) (b []byte, err error) {
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close response body: %v", closeErr))
		}
	}()

	return httputil.ReadResponseBody(resp)
}

// DownloadCover fetches cover art bytes. Covers repeat across an album,
// so responses are cached.
func (c *Client) DownloadCover(ctx context.Context, coverURL string) ([]byte, error) {
	item, err := c.cache.Covers.Fetch(coverURL, cache.DefaultCoverTTL, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
		if nil != err {
			return nil, fmt.Errorf("failed to create cover request: %v", err)
		}

		httpClient := http.Client{Timeout: time.Duration(c.timeouts.DownloadCover) * time.Second} //nolint:exhaustruct
		resp, err := httpClient.Do(req)
		if nil != err {
			return nil, fmt.Errorf("failed to download cover: %v", err)
		}

		respBody, err := drainResponse(resp)
		if nil != err {
			return nil, fmt.Errorf("failed to read cover response body: %v", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("received unexpected cover response with status code %d", resp.StatusCode)
		}

		return respBody, nil
	})
	if nil != err {
		return nil, err
	}

	return item.Value(), nil
}
