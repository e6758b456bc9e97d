// Package store provides the search backends that persist sub-fingerprints
// (an embedded bleve index or a remote Solr core) and the SQLite store that
// holds track metadata.
package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/Aman-CERP/fpsearch/internal/model"
)

// Field names shared by every backend schema.
const (
	FieldID             = "id"
	FieldTrackID        = "trackId"
	FieldSequenceNumber = "sequenceNumber"
	FieldSequenceAt     = "sequenceAt"
	FieldClusters       = "clusters"

	// HashFieldPrefix prefixes the per-position hash fields: hash_0 .. hash_{L-1}.
	HashFieldPrefix = "hash_"
)

// Execution parameters understood by the backends.
const (
	// ParamDefType selects the query parser; DefTypeEDisMax enables ParamMinMatch.
	ParamDefType = "defType"
	// ParamMinMatch is the minimum number of optional clauses a document must match.
	ParamMinMatch = "mm"
	// ParamPreferLocalShards asks a sharded backend to serve from a local replica.
	ParamPreferLocalShards = "preferLocalShards"

	DefTypeEDisMax = "edismax"
)

// HashField returns the field name that stores position i of a hash vector.
func HashField(i int) string {
	return HashFieldPrefix + strconv.Itoa(i)
}

// ParseHashField returns the position encoded in a hash field name.
func ParseHashField(name string) (int, bool) {
	if !strings.HasPrefix(name, HashFieldPrefix) {
		return 0, false
	}
	i, err := strconv.Atoi(name[len(HashFieldPrefix):])
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Document is a sub-fingerprint in its persisted form. Hashes is sparse:
// positions holding zero are absent.
type Document struct {
	ID             string
	TrackID        string
	Hashes         map[int]int64
	SequenceNumber int
	SequenceAt     float64
	Clusters       []string
}

// Request is one query against a backend.
type Request struct {
	// Query is the main query string.
	Query string
	// Filters are AND-ed with Query and do not affect matching counts.
	Filters []string
	// Params are execution parameters (ParamMinMatch, ParamPreferLocalShards, ...).
	Params map[string]string
}

// Backend is the capability a search index must offer to store and look up
// sub-fingerprints. Writes become visible to Query only after Commit succeeds.
type Backend interface {
	// Query returns every document matching the request.
	Query(ctx context.Context, req Request) ([]Document, error)

	// Add stages documents for indexing.
	Add(ctx context.Context, docs []Document) error

	// DeleteByQuery stages removal of every document matching query.
	DeleteByQuery(ctx context.Context, query string) error

	// Commit makes staged writes visible.
	Commit(ctx context.Context) error

	Close() error
}

// TrackStore persists track metadata.
type TrackStore interface {
	InsertTrack(ctx context.Context, track *model.Track) error
	ReadTrackByID(ctx context.Context, id string) (*model.Track, error)
	ReadTrackByISRC(ctx context.Context, isrc string) (*model.Track, error)
	ReadAll(ctx context.Context) ([]*model.Track, error)
	DeleteTrack(ctx context.Context, id string) error
	Close() error
}
