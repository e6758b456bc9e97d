package fingerprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
	"github.com/Aman-CERP/fpsearch/internal/model"
	"github.com/Aman-CERP/fpsearch/internal/store"
)

func newTestService(t *testing.T) *ModelService {
	t.Helper()
	backend, err := store.NewBleveBackend("")
	require.NoError(t, err)
	tracks, err := store.NewSQLiteTrackStore("")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = backend.Close()
		_ = tracks.Close()
	})

	dao := NewDefaultSubFingerprintDAO(backend, Options{QueryBatchSize: 2, Hashing: smallHashing})
	return NewModelService(tracks, dao)
}

func insertTrack(t *testing.T, s *ModelService, title string, fps ...model.HashedFingerprint) model.ModelReference {
	t.Helper()
	ctx := context.Background()
	track := &model.Track{Title: title}
	require.NoError(t, s.InsertTrack(ctx, track))
	require.NoError(t, s.InsertHashDataForTrack(ctx, fps, track.Reference))
	return track.Reference
}

func fp(seq int, clusters []string, hashes ...int64) model.HashedFingerprint {
	return model.HashedFingerprint{HashBins: hashes, SequenceNumber: seq, StartsAt: float64(seq) * 0.928, Clusters: clusters}
}

func trackRefs(records []model.SubFingerprintRecord) map[model.ModelReference]int {
	out := map[model.ModelReference]int{}
	for _, r := range records {
		out[r.TrackReference]++
	}
	return out
}

// TS01: Insert then look up end to end on the embedded index
func TestModelService_InsertThenLookup(t *testing.T) {
	// Given: two tracks with partly overlapping fingerprints
	s := newTestService(t)
	ctx := context.Background()
	a := insertTrack(t, s, "A",
		fp(0, []string{"CA"}, 1, 2, 3, 4),
		fp(1, []string{"CA"}, 5, 6, 7, 8),
	)
	b := insertTrack(t, s, "B",
		fp(0, []string{"LA"}, 1, 2, 30, 40),
		fp(1, []string{"LA"}, -9, 60, 70, 80),
	)

	// When: looking up a query vector sharing 3 positions with A and 2 with B
	records, err := s.ReadSubFingerprintsByHashes(ctx, []int64{1, 2, 3, 99}, 3, nil)

	// Then: only A's first record qualifies
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, a, records[0].TrackReference)
	assert.Equal(t, []int64{1, 2, 3, 4}, records[0].HashBins)

	// And: a lower threshold also finds B
	records, err = s.ReadSubFingerprintsByHashes(ctx, []int64{1, 2, 3, 99}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, map[model.ModelReference]int{a: 1, b: 1}, trackRefs(records))

	// And: a cluster filter restricts to B
	records, err = s.ReadSubFingerprintsByHashes(ctx, []int64{1, 2, 3, 99}, 2, []string{"LA"})
	require.NoError(t, err)
	assert.Equal(t, map[model.ModelReference]int{b: 1}, trackRefs(records))

	// And: negative hash values match exactly
	records, err = s.ReadSubFingerprintsByHashes(ctx, []int64{-9, 0, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, b, records[0].TrackReference)
	assert.Equal(t, 1, records[0].SequenceNumber)
}

// TS02: Batched lookup merges results from all batches
func TestModelService_BatchedLookup(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	a := insertTrack(t, s, "A",
		fp(0, nil, 1, 2, 3, 4),
		fp(1, nil, 5, 6, 7, 8),
		fp(2, nil, 9, 10, 11, 12),
	)

	// Three vectors in batches of two; the first and last both hit record 0
	records, err := s.ReadSubFingerprints(ctx, [][]int64{
		{1, 2, 0, 0},
		{5, 6, 7, 0},
		{1, 2, 3, 4},
	}, 2, nil)

	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, map[model.ModelReference]int{a: 2}, trackRefs(records))
}

func TestModelService_ReadHashedFingerprintsByTrack(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	ref := insertTrack(t, s, "A",
		fp(2, nil, 9, 10, 11, 12),
		fp(0, []string{"CA"}, 1, 0, 3, 4),
		fp(1, nil, 5, 6, 7, 8),
	)
	other := insertTrack(t, s, "B", fp(0, nil, 1, 0, 3, 4))

	fps, err := s.ReadHashedFingerprintsByTrack(ctx, ref)
	require.NoError(t, err)
	require.Len(t, fps, 3)
	assert.Equal(t, 0, fps[0].SequenceNumber)
	assert.Equal(t, []int64{1, 0, 3, 4}, fps[0].HashBins)
	assert.Equal(t, []string{"CA"}, fps[0].Clusters)
	assert.Equal(t, []byte{1, 0, 3, 4}, fps[0].Signature)
	assert.InDelta(t, 1.856, fps[2].StartsAt, 1e-9)

	fps, err = s.ReadHashedFingerprintsByTrack(ctx, other)
	require.NoError(t, err)
	assert.Len(t, fps, 1)
}

// TS03: Deleting a track removes its sub-fingerprints
func TestModelService_DeleteTrack(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	a := insertTrack(t, s, "A", fp(0, nil, 1, 2, 3, 4))
	b := insertTrack(t, s, "B", fp(0, nil, 1, 2, 3, 5))

	require.NoError(t, s.DeleteTrack(ctx, a))

	records, err := s.ReadSubFingerprintsByHashes(ctx, []int64{1, 2, 3, 4}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, map[model.ModelReference]int{b: 1}, trackRefs(records))

	_, err = s.ReadTrackByReference(ctx, a)
	assert.Equal(t, fperrors.ErrCodeTrackNotFound, fperrors.GetCode(err))

	tracks, err := s.ReadAllTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "B", tracks[0].Title)
}

func TestModelService_RequiresExistingTrack(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	missing := model.NewStringReference("missing")

	err := s.InsertHashDataForTrack(ctx, []model.HashedFingerprint{fp(0, nil, 1, 2, 3, 4)}, missing)
	assert.Equal(t, fperrors.ErrCodeTrackNotFound, fperrors.GetCode(err))

	err = s.DeleteTrack(ctx, missing)
	assert.Equal(t, fperrors.ErrCodeTrackNotFound, fperrors.GetCode(err))
}

func TestModelService_ReadTrackByISRC(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.InsertTrack(ctx, &model.Track{Title: "x", ISRC: "USRC17607839"}))

	track, err := s.ReadTrackByISRC(ctx, "USRC17607839")
	require.NoError(t, err)
	assert.Equal(t, "x", track.Title)
}

func TestModelService_SpectralImagesUnsupported(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	assert.True(t, fperrors.IsUnsupported(s.InsertSpectralImages(ctx, [][]float32{{1}}, model.NewStringReference("t"))))
	_, err := s.ReadSpectralImagesByTrackReference(ctx, model.NewStringReference("t"))
	assert.True(t, fperrors.IsUnsupported(err))
}
