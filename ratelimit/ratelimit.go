package ratelimit

import (
	"math/rand/v2"
	"time"
)

// TrackDownloadSleep returns the jittered pause applied after every
// completed download to stay under the catalog's abuse radar. seconds
// is the configured base wait; zero or negative disables the pause.
func TrackDownloadSleep(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	millis := seconds*1000 + rand.N(2000) //nolint:gosec

	return time.Duration(millis) * time.Millisecond
}

// AlbumSleep returns the longer jittered pause applied between albums
// of a batch (artist discography, all-playlists runs).
func AlbumSleep() time.Duration {
	const (
		from = 5
		to   = 10
	)
	millis := (rand.IntN(to-from)+from)*1000 + rand.N(1000) //nolint:gosec

	return time.Duration(millis) * time.Millisecond
}
