package spotify

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/xeptore/zpotify/spotify/types"
)

var ErrInvalidLink = errors.New("input is not a recognized catalog link")

// intlSegment matches the locale path segment some shared links carry,
// e.g. open.spotify.com/intl-fr/track/…. It is stripped before parsing.
var intlSegment = regexp.MustCompile(`intl-[^/]+/`)

type linkPattern struct {
	kind types.LinkKind
	uri  *regexp.Regexp
	url  *regexp.Regexp
}

var linkPatterns = func() []linkPattern {
	kinds := []types.LinkKind{
		types.LinkKindTrack,
		types.LinkKindAlbum,
		types.LinkKindPlaylist,
		types.LinkKindArtist,
		types.LinkKindEpisode,
		types.LinkKindShow,
	}

	patterns := make([]linkPattern, 0, len(kinds))
	for _, kind := range kinds {
		patterns = append(patterns, linkPattern{
			kind: kind,
			uri:  regexp.MustCompile(fmt.Sprintf(`^spotify:%s:([0-9a-zA-Z]{22})$`, kind)),
			url: regexp.MustCompile(
				fmt.Sprintf(`^(?:https?://)?open\.spotify\.com/%s/([0-9a-zA-Z]{22})(?:\?si=.+)?$`, kind),
			),
		})
	}

	return patterns
}()

// ParseLink identifies the content kind and id of a catalog link. Both
// the https://open.spotify.com URL form and the spotify: URI form are
// accepted.
func ParseLink(raw string) (types.Link, error) {
	raw = intlSegment.ReplaceAllString(raw, "")

	for _, pattern := range linkPatterns {
		if m := pattern.uri.FindStringSubmatch(raw); m != nil {
			return types.Link{Kind: pattern.kind, ID: m[1]}, nil
		}

		if m := pattern.url.FindStringSubmatch(raw); m != nil {
			return types.Link{Kind: pattern.kind, ID: m[1]}, nil
		}
	}

	return types.Link{}, fmt.Errorf("%w: %s", ErrInvalidLink, raw) //nolint:exhaustruct
}
