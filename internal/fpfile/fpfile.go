// Package fpfile reads and writes fingerprint dump files: JSON arrays of
// hashed fingerprints or of raw hash vectors, optionally zstd-compressed
// when the file name ends in ".zst".
package fpfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
	"github.com/Aman-CERP/fpsearch/internal/model"
)

// CompressedSuffix marks zstd-compressed dump files.
const CompressedSuffix = ".zst"

// Fingerprint is the on-disk form of a hashed fingerprint.
type Fingerprint struct {
	HashBins       []int64  `json:"hashBins"`
	SequenceNumber int      `json:"sequenceNumber"`
	StartsAt       float64  `json:"startsAt"`
	Clusters       []string `json:"clusters,omitempty"`
}

// IsCompressed reports whether path names a zstd dump.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

// ReadFingerprints decodes a dump of hashed fingerprints. Signatures are
// left empty; the lookup engine derives what it needs from the hash bins.
func ReadFingerprints(path string) ([]model.HashedFingerprint, error) {
	var raw []Fingerprint
	if err := decodeFile(path, &raw); err != nil {
		return nil, err
	}

	fingerprints := make([]model.HashedFingerprint, 0, len(raw))
	for _, fp := range raw {
		fingerprints = append(fingerprints,
			model.NewHashedFingerprint(nil, fp.HashBins, fp.SequenceNumber, fp.StartsAt, fp.Clusters))
	}
	return fingerprints, nil
}

// ReadVectors decodes a query file. Both a plain array of vectors and an
// array of fingerprint objects are accepted.
func ReadVectors(path string) ([][]int64, error) {
	var raw json.RawMessage
	if err := decodeFile(path, &raw); err != nil {
		return nil, err
	}

	var vectors [][]int64
	if err := json.Unmarshal(raw, &vectors); err == nil {
		return vectors, nil
	}

	var fingerprints []Fingerprint
	if err := json.Unmarshal(raw, &fingerprints); err != nil {
		return nil, malformed(path, err)
	}
	vectors = make([][]int64, 0, len(fingerprints))
	for _, fp := range fingerprints {
		vectors = append(vectors, fp.HashBins)
	}
	return vectors, nil
}

// WriteFingerprints writes fingerprints to path, compressing when the name
// ends in ".zst".
func WriteFingerprints(path string, fingerprints []model.HashedFingerprint) (err error) {
	raw := make([]Fingerprint, 0, len(fingerprints))
	for _, fp := range fingerprints {
		raw = append(raw, Fingerprint{
			HashBins:       fp.HashBins,
			SequenceNumber: fp.SequenceNumber,
			StartsAt:       fp.StartsAt,
			Clusters:       fp.Clusters,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	var w io.Writer = f
	if IsCompressed(path) {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		if err := json.NewEncoder(enc).Encode(raw); err != nil {
			_ = enc.Close()
			return fmt.Errorf("failed to encode fingerprints: %w", err)
		}
		return enc.Close()
	}

	if err := json.NewEncoder(w).Encode(raw); err != nil {
		return fmt.Errorf("failed to encode fingerprints: %w", err)
	}
	return nil
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fperrors.Wrap(fperrors.ErrCodeInvalidInput, err).
			WithDetail("path", path).
			WithSuggestion("check the file path")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if IsCompressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return malformed(path, err)
		}
		defer dec.Close()
		r = dec
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return malformed(path, err)
	}
	return nil
}

func malformed(path string, err error) error {
	return fperrors.Wrap(fperrors.ErrCodeInvalidInput, err).
		WithDetail("path", path).
		WithSuggestion("expected a JSON array of hash vectors or fingerprint objects")
}
