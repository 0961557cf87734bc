package auth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/xeptore/zpotify/redact"
	"github.com/xeptore/zpotify/spotify/fs"
	"github.com/xeptore/zpotify/spotify/types"
)

const (
	ScopeGeneral = "user-read-email"
	ScopeLibrary = "user-library-read"
)

var (
	// ErrUnauthenticated means the auth layer rejected the credentials
	// or the stored session. It is never fatal: callers fall back to
	// interactive login.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrWrongContentKind is returned by a Session when an id does not
	// resolve to the requested content kind.
	ErrWrongContentKind = errors.New("id does not resolve to the requested content kind")
)

// Stream is one open binary transfer. The total size is known up front
// and chunks are read sequentially. A stalled stream yields zero-byte
// reads instead of blocking forever.
type Stream interface {
	TotalSize() int
	Read(p []byte) (int, error)
	Close() error
}

// Session is the live connection produced by the external wire layer.
// It mints scoped bearer tokens, reports account attributes and opens
// content streams.
type Session interface {
	MintToken(ctx context.Context, scope string) (string, error)
	UserAttribute(ctx context.Context, key string) (string, error)
	OpenTrackStream(ctx context.Context, id string, quality types.Quality) (Stream, error)
	OpenEpisodeStream(ctx context.Context, id string, quality types.Quality) (Stream, error)
	Close() error
}

// Connector builds Sessions, either from the persisted credentials blob
// or from interactive username/password input. A successful user/pass
// login leaves a fresh credentials artifact at ArtifactPath.
type Connector interface {
	FromStoredCredentials(ctx context.Context, credentialsPath string) (Session, error)
	FromUserPass(ctx context.Context, username, password string) (Session, error)
	ArtifactPath() string
}

// Tokens is the pair of bearer tokens tracked for a session. They are
// always replaced wholesale, never field by field.
type Tokens struct {
	General string
	Library string
}

func (t Tokens) ToDict() *zerolog.Event {
	return zerolog.
		Dict().
		Str("general", redact.String(t.General)).
		Str("library", redact.String(t.Library))
}

type Auth struct {
	connector    Connector
	credsFile    fs.CredentialsFile
	forcePremium bool
	session      Session
	tokens       atomic.Pointer[Tokens]
	quality      types.Quality
}

func New(connector Connector, credsFile fs.CredentialsFile, forcePremium bool) *Auth {
	a := &Auth{
		connector:    connector,
		credsFile:    credsFile,
		forcePremium: forcePremium,
		session:      nil,
		tokens:       atomic.Pointer[Tokens]{},
		quality:      types.QualityHigh,
	}
	a.tokens.Store(&Tokens{General: "", Library: ""})

	return a
}

func (a *Auth) Tokens() Tokens {
	return *a.tokens.Load()
}

func (a *Auth) Quality() types.Quality {
	return a.quality
}

func (a *Auth) Session() Session {
	return a.session
}

// Login authenticates against the catalog. With stored credentials it
// reauthenticates silently; otherwise it uses the supplied username and
// password and persists the resulting credentials blob. Authentication
// rejections report (false, nil) so the caller can fall back to
// interactive input; only unexpected I/O failures return an error.
func (a *Auth) Login(ctx context.Context, logger zerolog.Logger, username, password string) (bool, error) {
	if err := a.credsFile.EnsureParentDir(); nil != err {
		return false, fmt.Errorf("ensure credentials directory: %v", err)
	}

	stored, err := a.credsFile.Exists()
	if nil != err {
		return false, fmt.Errorf("check stored credentials: %v", err)
	}

	if stored {
		if _, err := a.RefreshTokens(ctx, logger); nil != err {
			if errors.Is(err, ErrUnauthenticated) {
				logger.Warn().Msg("Stored credentials were rejected, removing them")
				if removeErr := a.credsFile.Remove(); nil != removeErr {
					return false, fmt.Errorf("remove rejected credentials file: %v", removeErr)
				}

				return false, nil
			}

			return false, fmt.Errorf("reauthenticate with stored credentials: %w", err)
		}

		if err := a.checkTier(ctx, logger); nil != err {
			return false, fmt.Errorf("check account tier: %w", err)
		}

		return true, nil
	}

	if username == "" || password == "" {
		return false, nil
	}

	session, err := a.connector.FromUserPass(ctx, username, password)
	if nil != err {
		if errors.Is(err, ErrUnauthenticated) {
			return false, nil
		}

		return false, fmt.Errorf("authenticate with username and password: %w", err)
	}
	a.session = session

	if err := a.credsFile.InstallArtifact(a.connector.ArtifactPath()); nil != err {
		return false, fmt.Errorf("persist credentials file: %v", err)
	}

	tokens, err := a.mintTokens(ctx)
	if nil != err {
		return false, fmt.Errorf("mint session tokens: %w", err)
	}
	a.tokens.Store(&tokens)

	if err := a.checkTier(ctx, logger); nil != err {
		return false, fmt.Errorf("check account tier: %w", err)
	}

	return true, nil
}

// RefreshTokens rebuilds the session from the persisted credentials
// file, discards any stray credentials artifact the wire layer left
// behind, and re-derives both tokens. It is idempotent and safe to call
// repeatedly.
func (a *Auth) RefreshTokens(ctx context.Context, logger zerolog.Logger) (Tokens, error) {
	session, err := a.connector.FromStoredCredentials(ctx, a.credsFile.Path())
	if nil != err {
		if errors.Is(err, ErrUnauthenticated) {
			return Tokens{}, ErrUnauthenticated
		}

		return Tokens{}, fmt.Errorf("rebuild session from stored credentials: %w", err)
	}

	if a.session != nil && a.session != session {
		if closeErr := a.session.Close(); nil != closeErr {
			logger.Warn().Err(closeErr).Msg("Failed to close previous session")
		}
	}
	a.session = session

	if err := a.credsFile.RemoveStrayArtifact(a.connector.ArtifactPath()); nil != err {
		logger.Warn().Err(err).Msg("Failed to remove stray credentials artifact")
	}

	tokens, err := a.mintTokens(ctx)
	if nil != err {
		return Tokens{}, fmt.Errorf("mint session tokens: %w", err)
	}
	a.tokens.Store(&tokens)

	logger.Debug().Dict("tokens", tokens.ToDict()).Msg("Session tokens refreshed")

	return tokens, nil
}

// Close tears down the live session, if any. Safe to call when no
// login ever happened.
func (a *Auth) Close() error {
	if a.session == nil {
		return nil
	}

	if err := a.session.Close(); nil != err {
		return fmt.Errorf("failed to close session: %w", err)
	}
	a.session = nil

	return nil
}

func (a *Auth) mintTokens(ctx context.Context) (Tokens, error) {
	general, err := a.session.MintToken(ctx, ScopeGeneral)
	if nil != err {
		return Tokens{}, fmt.Errorf("mint general-scope token: %w", err)
	}

	library, err := a.session.MintToken(ctx, ScopeLibrary)
	if nil != err {
		return Tokens{}, fmt.Errorf("mint library-scope token: %w", err)
	}

	return Tokens{General: general, Library: library}, nil
}

func (a *Auth) checkTier(ctx context.Context, logger zerolog.Logger) error {
	accountType, err := a.session.UserAttribute(ctx, "type")
	if nil != err {
		return fmt.Errorf("query account type attribute: %w", err)
	}

	if accountType == "premium" || a.forcePremium {
		a.quality = types.QualityVeryHigh
		logger.Info().Msg("Detected premium account, using VERY_HIGH stream quality")
	} else {
		a.quality = types.QualityHigh
		logger.Info().Msg("Detected free account, using HIGH stream quality")
	}

	return nil
}
