package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/fpsearch/internal/model"
)

// DefaultTrackCacheSize is the default number of tracks kept in memory.
const DefaultTrackCacheSize = 1024

// CachedTrackStore wraps a TrackStore with an LRU cache of tracks by ID.
// ModelService reads a track before every insert and delete, so repeated
// writes for the same track hit the cache. Cached tracks are copied on the
// way in and out.
type CachedTrackStore struct {
	inner TrackStore
	cache *lru.Cache[string, model.Track]
}

// NewCachedTrackStore wraps inner. A non-positive size selects DefaultTrackCacheSize.
func NewCachedTrackStore(inner TrackStore, size int) *CachedTrackStore {
	if size <= 0 {
		size = DefaultTrackCacheSize
	}
	cache, _ := lru.New[string, model.Track](size)
	return &CachedTrackStore{inner: inner, cache: cache}
}

func (c *CachedTrackStore) InsertTrack(ctx context.Context, track *model.Track) error {
	if err := c.inner.InsertTrack(ctx, track); err != nil {
		return err
	}
	c.cache.Add(track.Reference.String(), *track)
	return nil
}

func (c *CachedTrackStore) ReadTrackByID(ctx context.Context, id string) (*model.Track, error) {
	if track, ok := c.cache.Get(id); ok {
		return &track, nil
	}
	track, err := c.inner.ReadTrackByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, *track)
	return track, nil
}

// ReadTrackByISRC always goes to the inner store; the cache is keyed by ID only.
func (c *CachedTrackStore) ReadTrackByISRC(ctx context.Context, isrc string) (*model.Track, error) {
	track, err := c.inner.ReadTrackByISRC(ctx, isrc)
	if err != nil {
		return nil, err
	}
	c.cache.Add(track.Reference.String(), *track)
	return track, nil
}

func (c *CachedTrackStore) ReadAll(ctx context.Context) ([]*model.Track, error) {
	return c.inner.ReadAll(ctx)
}

func (c *CachedTrackStore) DeleteTrack(ctx context.Context, id string) error {
	c.cache.Remove(id)
	return c.inner.DeleteTrack(ctx, id)
}

// Len returns the number of cached tracks.
func (c *CachedTrackStore) Len() int {
	return c.cache.Len()
}

func (c *CachedTrackStore) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
