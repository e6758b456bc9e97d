package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
)

func TestNewBackend_DefaultsToBleve(t *testing.T) {
	for _, kind := range []string{"", "bleve"} {
		b, err := NewBackend(BackendOptions{Kind: kind})
		require.NoError(t, err)
		assert.IsType(t, &BleveBackend{}, b)
		require.NoError(t, b.Close())
	}
}

func TestNewBackend_BleveOnDisk(t *testing.T) {
	path := DefaultIndexPath(t.TempDir())
	assert.False(t, IndexExists(path))

	b, err := NewBackend(BackendOptions{Kind: "bleve", IndexPath: path})
	require.NoError(t, err)
	defer b.Close()

	assert.True(t, IndexExists(path))
	assert.Equal(t, "subfingerprints.bleve", filepath.Base(path))
}

func TestNewBackend_Solr(t *testing.T) {
	b, err := NewBackend(BackendOptions{Kind: "solr", Solr: DefaultSolrOptions()})
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &SolrBackend{}, b)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend(BackendOptions{Kind: "elastic"})
	require.Error(t, err)
	assert.Equal(t, fperrors.ErrCodeConfigInvalid, fperrors.GetCode(err))
	assert.Contains(t, err.Error(), "valid options: bleve, solr")
}
