package store

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
)

// BackendKind names a Backend implementation.
type BackendKind string

const (
	// BackendBleve is the embedded bleve index (default).
	// Single process only: the index directory is guarded by a lock file.
	BackendBleve BackendKind = "bleve"

	// BackendSolr is a remote Solr core.
	BackendSolr BackendKind = "solr"
)

// BackendOptions selects and configures a Backend.
type BackendOptions struct {
	Kind string
	// IndexPath is the bleve index directory. Empty means in-memory.
	IndexPath string
	Solr      SolrOptions
	// HTTPClient overrides the Solr client, mainly for tests.
	HTTPClient *http.Client
}

// NewBackend creates the Backend named by opts.Kind.
//
// kind options:
//   - "bleve" (default): embedded index at IndexPath
//   - "solr": remote core described by opts.Solr
func NewBackend(opts BackendOptions) (Backend, error) {
	switch opts.Kind {
	case string(BackendBleve), "":
		return NewBleveBackend(opts.IndexPath)

	case string(BackendSolr):
		return NewSolrBackend(opts.Solr, opts.HTTPClient)

	default:
		return nil, fperrors.ConfigError(fmt.Sprintf("unknown backend: %s (valid options: bleve, solr)", opts.Kind), nil)
	}
}

// DefaultIndexPath returns where the bleve index lives inside dataDir.
func DefaultIndexPath(dataDir string) string {
	return filepath.Join(dataDir, "subfingerprints.bleve")
}

// IndexExists reports whether a bleve index directory exists at path.
func IndexExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
