package fingerprint

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/google/uuid"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
	"github.com/Aman-CERP/fpsearch/internal/hashing"
	"github.com/Aman-CERP/fpsearch/internal/model"
	"github.com/Aman-CERP/fpsearch/internal/query"
	"github.com/Aman-CERP/fpsearch/internal/store"
)

// DefaultQueryBatchSize is the number of hash vectors sent per backend query
// when Options leaves QueryBatchSize unset.
const DefaultQueryBatchSize = 50

// QueryBuilder renders backend query strings.
type QueryBuilder interface {
	BuildExactQuery(hashes []int64) string
	BuildThresholdQuery(vectors [][]int64, threshold int) string
	BuildClusterFilter(clusters []string) (string, bool)
	BuildTrackQuery(trackID string) string
}

// HashConverter converts hash vectors to and from the sparse stored form.
type HashConverter interface {
	ToSparseMap(hashes []int64) map[int]int64
	FromSparseMap(sparse map[int]int64, length int) []int64
}

// SignatureEncoder derives the byte signature of a hash vector.
type SignatureEncoder interface {
	ToBytes(hashes []int64, length int) ([]byte, error)
}

// Options are read once when the DAO is built.
type Options struct {
	// QueryBatchSize caps the hash vectors per query in ReadSubFingerprints.
	QueryBatchSize int
	// PreferLocalShards is passed to the backend with every batched query.
	PreferLocalShards bool
	// Hashing fixes the vector and signature lengths.
	Hashing hashing.Config
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		QueryBatchSize: DefaultQueryBatchSize,
		Hashing:        hashing.DefaultConfig(),
	}
}

// SubFingerprintDAO reads and writes sub-fingerprints through a Backend.
// It holds no mutable state and is safe for concurrent use when the backend is.
type SubFingerprintDAO struct {
	backend    store.Backend
	converter  HashConverter
	signatures SignatureEncoder
	builder    QueryBuilder
	opts       Options
	newID      func() string
}

// NewSubFingerprintDAO wires a DAO from its collaborators.
func NewSubFingerprintDAO(backend store.Backend, converter HashConverter, signatures SignatureEncoder, builder QueryBuilder, opts Options) *SubFingerprintDAO {
	if opts.QueryBatchSize <= 0 {
		opts.QueryBatchSize = DefaultQueryBatchSize
	}
	if opts.Hashing.NumberOfLSHTables <= 0 {
		opts.Hashing = hashing.DefaultConfig()
	}
	return &SubFingerprintDAO{
		backend:    backend,
		converter:  converter,
		signatures: signatures,
		builder:    builder,
		opts:       opts,
		newID:      uuid.NewString,
	}
}

// NewDefaultSubFingerprintDAO wires a DAO with the standard converters and query builder.
func NewDefaultSubFingerprintDAO(backend store.Backend, opts Options) *SubFingerprintDAO {
	return NewSubFingerprintDAO(backend,
		hashing.NewDictionaryConverter(),
		hashing.NewSignatureCodec(),
		query.NewBuilder(),
		opts)
}

// InsertHashDataForTrack stores fingerprints for a track in one add followed
// by a commit. Records are not visible to lookups until the commit succeeds;
// a commit failure is returned as is.
func (d *SubFingerprintDAO) InsertHashDataForTrack(ctx context.Context, fingerprints []model.HashedFingerprint, trackReference model.ModelReference) error {
	if trackReference.IsZero() {
		return fperrors.ValidationError("track reference is required", nil)
	}
	if len(fingerprints) == 0 {
		return nil
	}

	length := d.opts.Hashing.HashBins()
	docs := make([]store.Document, 0, len(fingerprints))
	for i, fp := range fingerprints {
		if err := hashing.ValidateVector(fp.HashBins, length, i); err != nil {
			return err
		}
		docs = append(docs, store.Document{
			ID:             d.newID(),
			TrackID:        trackReference.String(),
			Hashes:         d.converter.ToSparseMap(fp.HashBins),
			SequenceNumber: fp.SequenceNumber,
			SequenceAt:     fp.StartsAt,
			Clusters:       fp.Clusters,
		})
	}

	if err := d.backend.Add(ctx, docs); err != nil {
		return err
	}
	if err := d.backend.Commit(ctx); err != nil {
		return err
	}

	slog.Info("subfingerprints_inserted",
		slog.String("track", trackReference.String()),
		slog.Int("count", len(docs)))
	return nil
}

// ReadHashedFingerprintsByTrackReference returns every fingerprint stored for
// a track, ordered by sequence number, with signatures recomputed.
func (d *SubFingerprintDAO) ReadHashedFingerprintsByTrackReference(ctx context.Context, trackReference model.ModelReference) ([]model.HashedFingerprint, error) {
	if trackReference.IsZero() {
		return nil, fperrors.ValidationError("track reference is required", nil)
	}
	docs, err := d.backend.Query(ctx, store.Request{
		Query: d.builder.BuildTrackQuery(trackReference.String()),
	})
	if err != nil {
		return nil, err
	}

	length := d.opts.Hashing.HashBins()
	fingerprints := make([]model.HashedFingerprint, 0, len(docs))
	for _, doc := range docs {
		hashBins := d.converter.FromSparseMap(doc.Hashes, length)
		signature, err := d.signatures.ToBytes(hashBins, d.opts.Hashing.SignatureLength())
		if err != nil {
			return nil, err
		}
		fingerprints = append(fingerprints, model.HashedFingerprint{
			Signature:      signature,
			HashBins:       hashBins,
			SequenceNumber: doc.SequenceNumber,
			StartsAt:       doc.SequenceAt,
			Clusters:       doc.Clusters,
		})
	}

	sort.SliceStable(fingerprints, func(i, j int) bool {
		return fingerprints[i].SequenceNumber < fingerprints[j].SequenceNumber
	})
	return fingerprints, nil
}

// DeleteSubFingerprintsByTrackReference removes every record of a track and commits.
func (d *SubFingerprintDAO) DeleteSubFingerprintsByTrackReference(ctx context.Context, trackReference model.ModelReference) error {
	if trackReference.IsZero() {
		return fperrors.ValidationError("track reference is required", nil)
	}
	if err := d.backend.DeleteByQuery(ctx, d.builder.BuildTrackQuery(trackReference.String())); err != nil {
		return err
	}
	return d.backend.Commit(ctx)
}

// ReadSubFingerprintsByHashes returns records matching at least thresholdVotes
// positions of a single hash vector, restricted to clusters when given.
func (d *SubFingerprintDAO) ReadSubFingerprintsByHashes(ctx context.Context, hashes []int64, thresholdVotes int, clusters []string) ([]model.SubFingerprintRecord, error) {
	if err := hashing.ValidateVector(hashes, d.opts.Hashing.HashBins(), 0); err != nil {
		return nil, err
	}

	q := d.builder.BuildExactQuery(hashes)
	if q == "" {
		return []model.SubFingerprintRecord{}, nil
	}

	docs, err := d.backend.Query(ctx, store.Request{
		Query:   q,
		Filters: d.filterQueries(clusters),
		Params: map[string]string{
			store.ParamDefType:  store.DefTypeEDisMax,
			store.ParamMinMatch: strconv.Itoa(thresholdVotes),
		},
	})
	if err != nil {
		return nil, err
	}

	records := make([]model.SubFingerprintRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, d.toRecord(doc))
	}
	return records, nil
}

// ReadSubFingerprints looks up many hash vectors in consecutive batches of
// QueryBatchSize. Batches run sequentially; a record matched by several
// batches is returned once, in first-seen order. An error from any batch
// aborts the lookup and discards what earlier batches found.
func (d *SubFingerprintDAO) ReadSubFingerprints(ctx context.Context, vectors [][]int64, thresholdVotes int, clusters []string) ([]model.SubFingerprintRecord, error) {
	length := d.opts.Hashing.HashBins()
	for i, hashes := range vectors {
		if err := hashing.ValidateVector(hashes, length, i); err != nil {
			return nil, err
		}
	}

	filters := d.filterQueries(clusters)
	params := map[string]string{
		store.ParamDefType:           store.DefTypeEDisMax,
		store.ParamMinMatch:          strconv.Itoa(thresholdVotes),
		store.ParamPreferLocalShards: strconv.FormatBool(d.opts.PreferLocalShards),
	}

	seen := make(map[model.ModelReference]struct{})
	records := []model.SubFingerprintRecord{}
	for n, batch := range Batches(vectors, d.opts.QueryBatchSize) {
		q := d.builder.BuildThresholdQuery(batch, thresholdVotes)
		if q == "" {
			continue
		}

		docs, err := d.backend.Query(ctx, store.Request{
			Query:   q,
			Filters: filters,
			Params:  params,
		})
		if err != nil {
			slog.Warn("subfingerprint_batch_failed",
				append([]any{slog.Int("batch", n), slog.Int("batch_size", len(batch))}, fperrors.LogAttrs(err)...)...)
			return nil, err
		}

		added := 0
		for _, doc := range docs {
			record := d.toRecord(doc)
			if _, dup := seen[record.ID]; dup {
				continue
			}
			seen[record.ID] = struct{}{}
			records = append(records, record)
			added++
		}

		slog.Debug("subfingerprint_batch_queried",
			slog.Int("batch", n),
			slog.Int("batch_size", len(batch)),
			slog.Int("matches", len(docs)),
			slog.Int("new_records", added))
	}

	return records, nil
}

// Batches splits vectors into consecutive slices of at most size elements.
// It returns no batches for empty input.
func Batches(vectors [][]int64, size int) [][][]int64 {
	if size <= 0 {
		size = DefaultQueryBatchSize
	}
	batches := make([][][]int64, 0, (len(vectors)+size-1)/size)
	for start := 0; start < len(vectors); start += size {
		end := min(start+size, len(vectors))
		batches = append(batches, vectors[start:end])
	}
	return batches
}

func (d *SubFingerprintDAO) filterQueries(clusters []string) []string {
	filter, ok := d.builder.BuildClusterFilter(clusters)
	if !ok {
		return nil
	}
	return []string{filter}
}

func (d *SubFingerprintDAO) toRecord(doc store.Document) model.SubFingerprintRecord {
	return model.SubFingerprintRecord{
		ID:             model.NewStringReference(doc.ID),
		TrackReference: model.NewStringReference(doc.TrackID),
		HashBins:       d.converter.FromSparseMap(doc.Hashes, d.opts.Hashing.HashBins()),
		SequenceNumber: doc.SequenceNumber,
		SequenceAt:     doc.SequenceAt,
		Clusters:       doc.Clusters,
	}
}
