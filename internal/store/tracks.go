package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
	"github.com/Aman-CERP/fpsearch/internal/model"
)

// SQLiteTrackStore keeps track metadata in SQLite.
type SQLiteTrackStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ TrackStore = (*SQLiteTrackStore)(nil)

// NewSQLiteTrackStore opens the database at path, creating it when missing.
// If path is empty, the database lives in memory.
func NewSQLiteTrackStore(path string) (*SQLiteTrackStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fperrors.New(fperrors.ErrCodeTrackStore, fmt.Sprintf("failed to create directory for %s", path), err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fperrors.New(fperrors.ErrCodeTrackStore, "failed to open track database", err)
	}

	// One connection: an in-memory database is private to its connection,
	// and a single writer avoids lock contention on disk.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fperrors.New(fperrors.ErrCodeTrackStore, "failed to set pragma", err).WithDetail("pragma", pragma)
		}
	}

	s := &SQLiteTrackStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fperrors.New(fperrors.ErrCodeTrackStore, "failed to initialize schema", err)
	}

	slog.Debug("track_store_opened", slog.String("path", dsn))
	return s, nil
}

func (s *SQLiteTrackStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS tracks (
		id             TEXT PRIMARY KEY,
		artist         TEXT NOT NULL DEFAULT '',
		title          TEXT NOT NULL DEFAULT '',
		isrc           TEXT NOT NULL DEFAULT '',
		album          TEXT NOT NULL DEFAULT '',
		release_year   INTEGER NOT NULL DEFAULT 0,
		length_seconds REAL NOT NULL DEFAULT 0,
		created_at     INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_tracks_isrc ON tracks(isrc) WHERE isrc != '';

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertTrack stores track. A zero Reference is replaced by a new UUID and
// a zero CreatedAt by the current time; both are written back to track.
func (s *SQLiteTrackStore) InsertTrack(ctx context.Context, track *model.Track) error {
	if track == nil {
		return fperrors.ValidationError("track is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errTrackStoreClosed()
	}

	if track.Reference.IsZero() {
		track.Reference = model.NewStringReference(uuid.NewString())
	}
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (id, artist, title, isrc, album, release_year, length_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		track.Reference.String(), track.Artist, track.Title, track.ISRC, track.Album,
		track.ReleaseYear, track.LengthSeconds, track.CreatedAt.UnixNano())
	if err != nil {
		return fperrors.New(fperrors.ErrCodeTrackStore, "failed to insert track", err).
			WithDetail("id", track.Reference.String())
	}
	return nil
}

// ReadTrackByID returns ERR_207_TRACK_NOT_FOUND when no track has id.
func (s *SQLiteTrackStore) ReadTrackByID(ctx context.Context, id string) (*model.Track, error) {
	return s.readOne(ctx, "id", id)
}

// ReadTrackByISRC returns ERR_207_TRACK_NOT_FOUND when no track has isrc.
func (s *SQLiteTrackStore) ReadTrackByISRC(ctx context.Context, isrc string) (*model.Track, error) {
	if isrc == "" {
		return nil, fperrors.ValidationError("isrc is required", nil)
	}
	return s.readOne(ctx, "isrc", isrc)
}

func (s *SQLiteTrackStore) readOne(ctx context.Context, column, value string) (*model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errTrackStoreClosed()
	}

	// column is one of two constants, never user input.
	row := s.db.QueryRowContext(ctx, `
		SELECT id, artist, title, isrc, album, release_year, length_seconds, created_at
		FROM tracks WHERE `+column+` = ?`, value)

	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fperrors.New(fperrors.ErrCodeTrackNotFound, "track not found", nil).WithDetail(column, value)
	}
	if err != nil {
		return nil, fperrors.New(fperrors.ErrCodeTrackStore, "failed to read track", err)
	}
	return track, nil
}

// ReadAll returns every track, oldest first.
func (s *SQLiteTrackStore) ReadAll(ctx context.Context) ([]*model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errTrackStoreClosed()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, artist, title, isrc, album, release_year, length_seconds, created_at
		FROM tracks ORDER BY created_at, id`)
	if err != nil {
		return nil, fperrors.New(fperrors.ErrCodeTrackStore, "failed to list tracks", err)
	}
	defer rows.Close()

	tracks := []*model.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fperrors.New(fperrors.ErrCodeTrackStore, "failed to scan track", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fperrors.New(fperrors.ErrCodeTrackStore, "failed to list tracks", err)
	}
	return tracks, nil
}

// DeleteTrack removes the track with id. Deleting a missing track returns
// ERR_207_TRACK_NOT_FOUND.
func (s *SQLiteTrackStore) DeleteTrack(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errTrackStoreClosed()
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return fperrors.New(fperrors.ErrCodeTrackStore, "failed to delete track", err).WithDetail("id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fperrors.New(fperrors.ErrCodeTrackStore, "failed to delete track", err).WithDetail("id", id)
	}
	if n == 0 {
		return fperrors.New(fperrors.ErrCodeTrackNotFound, "track not found", nil).WithDetail("id", id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteTrackStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*model.Track, error) {
	var (
		id        string
		track     model.Track
		createdAt int64
	)
	if err := row.Scan(&id, &track.Artist, &track.Title, &track.ISRC, &track.Album,
		&track.ReleaseYear, &track.LengthSeconds, &createdAt); err != nil {
		return nil, err
	}
	track.Reference = model.NewStringReference(id)
	track.CreatedAt = time.Unix(0, createdAt).UTC()
	return &track, nil
}

func errTrackStoreClosed() error {
	return fperrors.New(fperrors.ErrCodeTrackStore, "track store is closed", nil)
}
