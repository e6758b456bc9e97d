package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
)

// BleveBackend is an embedded Backend on a bleve index. Every field is
// indexed verbatim with the keyword analyzer so hash values and cluster
// labels match exactly.
//
// Add and DeleteByQuery only record pending operations; Commit applies them
// in order. Until then Query sees the last committed state.
type BleveBackend struct {
	mu      sync.RWMutex
	index   bleve.Index
	path    string
	lock    *IndexLock
	pending []pendingOp
	closed  bool
}

type pendingOp struct {
	docs        []Document
	deleteQuery string
}

var _ Backend = (*BleveBackend)(nil)

// NewBleveBackend opens the index at path, creating it when missing.
// If path is empty, the index lives in memory.
func NewBleveBackend(path string) (*BleveBackend, error) {
	indexMapping := createIndexMapping()

	if path == "" {
		idx, err := bleve.NewMemOnly(indexMapping)
		if err != nil {
			return nil, fperrors.New(fperrors.ErrCodeIndexOpen, "failed to create in-memory index", err)
		}
		return &BleveBackend{index: idx}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fperrors.New(fperrors.ErrCodeIndexOpen, fmt.Sprintf("failed to create directory for %s", path), err)
	}

	lock := NewIndexLock(path)
	if err := lock.TryLock(); err != nil {
		return nil, err
	}

	if err := validateIndexIntegrity(path); err != nil {
		_ = lock.Unlock()
		return nil, fperrors.New(fperrors.ErrCodeCorruptIndex, "sub-fingerprint index is corrupted", err).
			WithDetail("path", path).
			WithSuggestion("Remove the index directory and re-insert the tracks")
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, indexMapping)
	}
	if err != nil {
		_ = lock.Unlock()
		return nil, fperrors.New(fperrors.ErrCodeIndexOpen, "failed to open index", err).WithDetail("path", path)
	}

	slog.Debug("bleve_index_opened", slog.String("path", path))

	return &BleveBackend{
		index: idx,
		path:  path,
		lock:  lock,
	}, nil
}

// validateIndexIntegrity returns an error when an index directory exists but
// its metadata is missing or unreadable.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func createIndexMapping() *mapping.IndexMappingImpl {
	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	numericField := bleve.NewNumericFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(FieldTrackID, keywordField)
	docMapping.AddFieldMappingsAt(FieldClusters, keywordField)
	docMapping.AddFieldMappingsAt(FieldSequenceNumber, numericField)
	docMapping.AddFieldMappingsAt(FieldSequenceAt, numericField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	// hash_i fields are mapped dynamically and pick this up.
	indexMapping.DefaultAnalyzer = keyword.Name
	return indexMapping
}

// Add stages documents for the next Commit.
func (b *BleveBackend) Add(_ context.Context, docs []Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errIndexClosed()
	}
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if doc.ID == "" {
			return fperrors.New(fperrors.ErrCodeBackendWrite, "document id is required", nil)
		}
	}

	b.pending = append(b.pending, pendingOp{docs: append([]Document(nil), docs...)})
	return nil
}

// DeleteByQuery stages removal of every document matching q at Commit time.
func (b *BleveBackend) DeleteByQuery(_ context.Context, q string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errIndexClosed()
	}
	if _, err := parseQueryString(q); err != nil {
		return err
	}

	b.pending = append(b.pending, pendingOp{deleteQuery: q})
	return nil
}

// Commit applies pending operations in the order they were staged.
// On failure the remaining operations are dropped.
func (b *BleveBackend) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errIndexClosed()
	}

	pending := b.pending
	b.pending = nil

	batch := b.index.NewBatch()
	for _, op := range pending {
		if op.deleteQuery == "" {
			for _, doc := range op.docs {
				if err := batch.Index(doc.ID, encodeDocument(doc)); err != nil {
					return fperrors.New(fperrors.ErrCodeBackendCommit, "failed to index document", err).WithDetail("id", doc.ID)
				}
			}
			continue
		}

		// Deletes must see the adds staged before them.
		if err := b.flush(batch); err != nil {
			return err
		}
		batch = b.index.NewBatch()

		ids, err := b.matchingIDs(ctx, op.deleteQuery)
		if err != nil {
			return fperrors.New(fperrors.ErrCodeBackendCommit, "failed to resolve delete query", err)
		}
		for _, id := range ids {
			batch.Delete(id)
		}
	}

	return b.flush(batch)
}

func (b *BleveBackend) flush(batch *bleve.Batch) error {
	if batch.Size() == 0 {
		return nil
	}
	if err := b.index.Batch(batch); err != nil {
		return fperrors.New(fperrors.ErrCodeBackendCommit, "failed to execute batch", err)
	}
	return nil
}

func (b *BleveBackend) matchingIDs(ctx context.Context, q string) ([]string, error) {
	parsed, err := parseQueryString(q)
	if err != nil {
		return nil, err
	}
	hits, err := b.searchAll(ctx, parsed, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Query runs req against the committed index and returns every match.
//
// ParamMinMatch sets how many of the top-level optional clauses must match.
// Filters are AND-ed with the main query. ParamPreferLocalShards has no
// meaning for a single embedded index and is ignored.
func (b *BleveBackend) Query(ctx context.Context, req Request) ([]Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errIndexClosed()
	}

	main, err := parseQueryString(req.Query)
	if err != nil {
		return nil, err
	}

	if mm, ok := req.Params[ParamMinMatch]; ok {
		minShould, err := strconv.Atoi(mm)
		if err != nil {
			return nil, fperrors.New(fperrors.ErrCodeInvalidQuery, "minimum match must be an integer", err).WithDetail("mm", mm)
		}
		if boolean, ok := main.(*query.BooleanQuery); ok && minShould > 0 {
			boolean.SetMinShould(float64(minShould))
		}
	}
	if v, ok := req.Params[ParamPreferLocalShards]; ok {
		slog.Debug("bleve_param_ignored", slog.String("param", ParamPreferLocalShards), slog.String("value", v))
	}

	var filters []query.Query
	for _, f := range req.Filters {
		fq, err := parseQueryString(f)
		if err != nil {
			return nil, err
		}
		filters = append(filters, fq)
	}

	hits, err := b.searchAll(ctx, main, filters)
	if err != nil {
		return nil, fperrors.New(fperrors.ErrCodeBackendQuery, "search failed", err)
	}

	docs := make([]Document, 0, len(hits))
	for _, hit := range hits {
		docs = append(docs, decodeDocument(hit.ID, hit.Fields))
	}
	return docs, nil
}

func (b *BleveBackend) searchAll(ctx context.Context, main query.Query, filters []query.Query) (search.DocumentMatchCollection, error) {
	docCount, err := b.index.DocCount()
	if err != nil {
		return nil, err
	}
	if docCount == 0 {
		return nil, nil
	}

	q := main
	if len(filters) > 0 {
		q = bleve.NewConjunctionQuery(append([]query.Query{main}, filters...)...)
	}

	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.Size = int(docCount)
	searchRequest.Fields = []string{"*"}

	result, err := b.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, err
	}
	return result.Hits, nil
}

// DocCount returns the number of committed documents.
func (b *BleveBackend) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, errIndexClosed()
	}
	return b.index.DocCount()
}

// Close closes the index and releases its lock. Pending operations are discarded.
func (b *BleveBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.pending = nil

	err := b.index.Close()
	if b.lock != nil {
		if unlockErr := b.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

func parseQueryString(q string) (query.Query, error) {
	parsed, err := query.NewQueryStringQuery(q).Parse()
	if err != nil {
		return nil, fperrors.New(fperrors.ErrCodeInvalidQuery, "failed to parse query", err).WithDetail("query", q)
	}
	return parsed, nil
}

func errIndexClosed() error {
	return fperrors.New(fperrors.ErrCodeIndexClosed, "index is closed", nil)
}

// encodeDocument renders a Document as the field map bleve indexes.
// Hash values are stored as decimal strings so they match as exact terms.
func encodeDocument(doc Document) map[string]interface{} {
	fields := make(map[string]interface{}, len(doc.Hashes)+4)
	fields[FieldTrackID] = doc.TrackID
	fields[FieldSequenceNumber] = float64(doc.SequenceNumber)
	fields[FieldSequenceAt] = doc.SequenceAt
	if len(doc.Clusters) > 0 {
		fields[FieldClusters] = doc.Clusters
	}

	positions := make([]int, 0, len(doc.Hashes))
	for i := range doc.Hashes {
		positions = append(positions, i)
	}
	sort.Ints(positions)
	for _, i := range positions {
		if v := doc.Hashes[i]; v != 0 {
			fields[HashField(i)] = strconv.FormatInt(v, 10)
		}
	}
	return fields
}

func decodeDocument(id string, fields map[string]interface{}) Document {
	doc := Document{
		ID:     id,
		Hashes: make(map[int]int64),
	}
	for name, value := range fields {
		switch name {
		case FieldTrackID:
			doc.TrackID, _ = value.(string)
		case FieldSequenceNumber:
			if f, ok := value.(float64); ok {
				doc.SequenceNumber = int(f)
			}
		case FieldSequenceAt:
			if f, ok := value.(float64); ok {
				doc.SequenceAt = f
			}
		case FieldClusters:
			doc.Clusters = stringValues(value)
		default:
			i, ok := ParseHashField(name)
			if !ok {
				continue
			}
			if s, ok := value.(string); ok {
				if v, err := strconv.ParseInt(s, 10, 64); err == nil {
					doc.Hashes[i] = v
				}
			}
		}
	}
	return doc
}

// stringValues reads a stored text field. bleve returns a single-valued
// field as a plain string and a multi-valued one as a slice.
func stringValues(value interface{}) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
