package cmd

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/fpsearch/internal/config"
	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
	"github.com/Aman-CERP/fpsearch/internal/fingerprint"
	"github.com/Aman-CERP/fpsearch/internal/store"
)

// tracksDBName is the track database file under the data directory.
const tracksDBName = "tracks.db"

// app holds the opened stores behind a ModelService.
type app struct {
	cfg     *config.Config
	service *fingerprint.ModelService
	backend store.Backend
	tracks  store.TrackStore
}

// openApp loads configuration and opens both stores. Paths left empty in
// the configuration resolve under the data directory so that the CLI
// always persists.
func openApp() (*app, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}

	dataDir := config.DefaultDataDir()
	backendOpts := cfg.BackendOptions()
	if backendOpts.Kind == string(store.BackendBleve) && backendOpts.IndexPath == "" {
		backendOpts.IndexPath = store.DefaultIndexPath(dataDir)
	}
	tracksPath := cfg.Tracks.DatabasePath
	if tracksPath == "" {
		tracksPath = filepath.Join(dataDir, tracksDBName)
	}

	for _, path := range []string{backendOpts.IndexPath, tracksPath} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fperrors.InternalError("failed to create data directory", err).
				WithDetail("path", filepath.Dir(path))
		}
	}

	backend, err := store.NewBackend(backendOpts)
	if err != nil {
		return nil, err
	}
	sqlite, err := store.NewSQLiteTrackStore(tracksPath)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	tracks := store.NewCachedTrackStore(sqlite, store.DefaultTrackCacheSize)

	slog.Debug("stores opened",
		slog.String("backend", backendOpts.Kind),
		slog.String("index_path", backendOpts.IndexPath),
		slog.String("tracks_db", tracksPath))

	dao := fingerprint.NewDefaultSubFingerprintDAO(backend, cfg.FingerprintOptions())
	return &app{
		cfg:     cfg,
		service: fingerprint.NewModelService(tracks, dao),
		backend: backend,
		tracks:  tracks,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.tracks.Close(), a.backend.Close())
}
