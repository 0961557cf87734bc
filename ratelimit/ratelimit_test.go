package ratelimit_test

import (
	"testing"

	"github.com/xeptore/zpotify/ratelimit"
)

func TestTrackDownloadSleep(t *testing.T) {
	t.Parallel()
	for range 100 {
		ms := ratelimit.TrackDownloadSleep(5).Milliseconds()
		if ms < 5000 || ms >= 7000 {
			t.Errorf("expected 5000 <= ms < 7000, got %d", ms)
		}
	}

	if d := ratelimit.TrackDownloadSleep(0); d != 0 {
		t.Errorf("expected zero base wait to disable the pause, got %s", d)
	}

	if d := ratelimit.TrackDownloadSleep(-1); d != 0 {
		t.Errorf("expected negative base wait to disable the pause, got %s", d)
	}
}

func TestAlbumSleep(t *testing.T) {
	t.Parallel()
	for range 100 {
		ms := ratelimit.AlbumSleep().Milliseconds()
		if ms < 5000 || ms > 10000 {
			t.Errorf("expected 5000 <= ms <= 10000, got %d", ms)
		}
	}
}
