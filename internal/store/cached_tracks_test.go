package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
	"github.com/Aman-CERP/fpsearch/internal/model"
)

// countingTrackStore counts ReadTrackByID calls that reach the database.
type countingTrackStore struct {
	TrackStore
	reads int
}

func (c *countingTrackStore) ReadTrackByID(ctx context.Context, id string) (*model.Track, error) {
	c.reads++
	return c.TrackStore.ReadTrackByID(ctx, id)
}

func TestCachedTrackStore_ReadsHitCache(t *testing.T) {
	// Given: a cached store over SQLite with one inserted track
	inner := &countingTrackStore{TrackStore: newMemTrackStore(t)}
	cached := NewCachedTrackStore(inner, 0)
	ctx := context.Background()
	track := &model.Track{Artist: "Artist", Title: "Title"}
	require.NoError(t, cached.InsertTrack(ctx, track))

	// When: reading it twice
	first, err := cached.ReadTrackByID(ctx, track.Reference.String())
	require.NoError(t, err)
	second, err := cached.ReadTrackByID(ctx, track.Reference.String())
	require.NoError(t, err)

	// Then: the database was never queried and callers get independent copies
	assert.Equal(t, 0, inner.reads)
	assert.Equal(t, "Title", first.Title)
	first.Title = "changed"
	assert.Equal(t, "Title", second.Title)
	assert.Equal(t, 1, cached.Len())
}

func TestCachedTrackStore_DeleteInvalidates(t *testing.T) {
	// Given: a cached track
	inner := &countingTrackStore{TrackStore: newMemTrackStore(t)}
	cached := NewCachedTrackStore(inner, 0)
	ctx := context.Background()
	track := &model.Track{Title: "Title"}
	require.NoError(t, cached.InsertTrack(ctx, track))

	// When: deleting it
	require.NoError(t, cached.DeleteTrack(ctx, track.Reference.String()))

	// Then: the next read goes to the database and reports not found
	_, err := cached.ReadTrackByID(ctx, track.Reference.String())
	assert.Equal(t, fperrors.ErrCodeTrackNotFound, fperrors.GetCode(err))
	assert.Equal(t, 1, inner.reads)
	assert.Equal(t, 0, cached.Len())
}

func TestCachedTrackStore_EvictsLeastRecentlyUsed(t *testing.T) {
	// Given: a cache holding one track
	inner := &countingTrackStore{TrackStore: newMemTrackStore(t)}
	cached := NewCachedTrackStore(inner, 1)
	ctx := context.Background()
	a := &model.Track{Title: "A"}
	b := &model.Track{Title: "B"}
	require.NoError(t, cached.InsertTrack(ctx, a))
	require.NoError(t, cached.InsertTrack(ctx, b))

	// When: reading the evicted track
	got, err := cached.ReadTrackByID(ctx, a.Reference.String())

	// Then: it is loaded from the database
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, 1, inner.reads)
}
