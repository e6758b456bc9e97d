package fpfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
	"github.com/Aman-CERP/fpsearch/internal/model"
)

func sampleFingerprints() []model.HashedFingerprint {
	return []model.HashedFingerprint{
		model.NewHashedFingerprint(nil, []int64{1, 2, 3, 4}, 0, 0, []string{"CA"}),
		model.NewHashedFingerprint(nil, []int64{5, -6, 7, 8}, 1, 1.48, nil),
	}
}

func TestWriteReadFingerprints_Plain(t *testing.T) {
	// Given: fingerprints written to a plain JSON file
	path := filepath.Join(t.TempDir(), "track.json")
	require.NoError(t, WriteFingerprints(path, sampleFingerprints()))

	// When: reading them back
	got, err := ReadFingerprints(path)

	// Then: hash bins, positions and clusters survive
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{5, -6, 7, 8}, got[1].HashBins)
	assert.Equal(t, 1, got[1].SequenceNumber)
	assert.InDelta(t, 1.48, got[1].StartsAt, 1e-9)
	assert.Equal(t, []string{"CA"}, got[0].Clusters)
}

func TestWriteReadFingerprints_Compressed(t *testing.T) {
	// Given: fingerprints written with a .zst suffix
	path := filepath.Join(t.TempDir(), "track.json.zst")
	require.NoError(t, WriteFingerprints(path, sampleFingerprints()))

	// Then: the file is not plain JSON
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, byte('['), data[0])

	// When: reading them back
	got, err := ReadFingerprints(path)

	// Then: the content round-trips through zstd
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{1, 2, 3, 4}, got[0].HashBins)
}

func TestReadVectors_AcceptsBothShapes(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"plain vectors", `[[1,2,3,4],[5,-6,7,8]]`},
		{"fingerprint objects", `[{"hashBins":[1,2,3,4]},{"hashBins":[5,-6,7,8],"sequenceNumber":1}]`},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "q"+string(rune('a'+i))+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			vectors, err := ReadVectors(path)

			require.NoError(t, err)
			assert.Equal(t, [][]int64{{1, 2, 3, 4}, {5, -6, 7, 8}}, vectors)
		})
	}
}

func TestReadVectors_Malformed(t *testing.T) {
	// Given: a file that is not a JSON array
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"hashBins":1}`), 0644))

	// When: reading it
	_, err := ReadVectors(path)

	// Then: it is reported as invalid input
	require.Error(t, err)
	assert.Equal(t, fperrors.ErrCodeInvalidInput, fperrors.GetCode(err))
}

func TestReadFingerprints_MissingFile(t *testing.T) {
	_, err := ReadFingerprints(filepath.Join(t.TempDir(), "missing.json"))

	require.Error(t, err)
	assert.Equal(t, fperrors.ErrCodeInvalidInput, fperrors.GetCode(err))
}
