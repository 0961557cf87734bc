package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/xeptore/zpotify/spotify/types"
)

var (
	DefaultTrackTTL = 1 * time.Hour
	DefaultAlbumTTL = 1 * time.Hour
	DefaultCoverTTL = 1 * time.Hour
)

type Cache struct {
	TracksMeta TracksMetaCache
	AlbumsMeta AlbumsMetaCache
	Covers     CoversCache
}

func New() *Cache {
	tracksMetaCache := ccache.New(
		ccache.Configure[*types.Track]().
			MaxSize(10_000).
			GetsPerPromote(3).
			PercentToPrune(1),
	)

	albumsMetaCache := ccache.New(
		ccache.Configure[*types.Album]().
			MaxSize(1000).
			GetsPerPromote(3).
			PercentToPrune(1),
	)

	coversCache := ccache.New(
		ccache.Configure[[]byte]().
			MaxSize(100).
			GetsPerPromote(3).
			PercentToPrune(1),
	)

	return &Cache{
		TracksMeta: TracksMetaCache{
			c:   tracksMetaCache,
			mux: sync.Mutex{},
		},
		AlbumsMeta: AlbumsMetaCache{
			c:   albumsMetaCache,
			mux: sync.Mutex{},
		},
		Covers: CoversCache{
			c:   coversCache,
			mux: sync.Mutex{},
		},
	}
}

type TracksMetaCache struct {
	c   *ccache.Cache[*types.Track]
	mux sync.Mutex
}

func (c *TracksMetaCache) Fetch(
	k string,
	ttl time.Duration,
	fetch func() (*types.Track, error),
) (*ccache.Item[*types.Track], error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	v, err := c.c.Fetch(k, ttl, fetch)
	if nil != err {
		return nil, fmt.Errorf("fetch track meta: %w", err)
	}

	return v, nil
}

type AlbumsMetaCache struct {
	c   *ccache.Cache[*types.Album]
	mux sync.Mutex
}

func (c *AlbumsMetaCache) Fetch(
	k string,
	ttl time.Duration,
	fetch func() (*types.Album, error),
) (*ccache.Item[*types.Album], error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	v, err := c.c.Fetch(k, ttl, fetch)
	if nil != err {
		return nil, fmt.Errorf("fetch album meta: %w", err)
	}

	return v, nil
}

type CoversCache struct {
	c   *ccache.Cache[[]byte]
	mux sync.Mutex
}

func (c *CoversCache) Fetch(
	k string,
	ttl time.Duration,
	fetch func() ([]byte, error),
) (*ccache.Item[[]byte], error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	v, err := c.c.Fetch(k, ttl, fetch)
	if nil != err {
		return nil, fmt.Errorf("fetch cover: %w", err)
	}

	return v, nil
}
