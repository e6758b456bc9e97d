// Package hashing converts sub-fingerprint hash vectors to and from the forms
// the search backends store: a sparse position-to-value map for the index and
// a compact byte signature for identity checks.
package hashing

import (
	"fmt"
	"strconv"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
)

// Config describes the locality-sensitive hashing layout that produced the
// vectors. Each LSH table contributes one hash bin; each bin packs
// NumberOfMinHashesPerTable min-hash bytes.
type Config struct {
	NumberOfLSHTables         int
	NumberOfMinHashesPerTable int
}

// DefaultConfig returns the layout used by the fingerprinting pipeline.
func DefaultConfig() Config {
	return Config{
		NumberOfLSHTables:         25,
		NumberOfMinHashesPerTable: 4,
	}
}

// HashBins is the length every hash vector must have.
func (c Config) HashBins() int {
	return c.NumberOfLSHTables
}

// SignatureLength is the number of bytes in an encoded signature.
func (c Config) SignatureLength() int {
	return c.NumberOfLSHTables * c.NumberOfMinHashesPerTable
}

// ValidateVector rejects a vector whose length is not expected.
// index identifies the vector within its batch for the error details.
func ValidateVector(hashes []int64, expected, index int) error {
	if len(hashes) == expected {
		return nil
	}
	return fperrors.New(fperrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("hash vector %d has length %d, expected %d", index, len(hashes), expected), nil).
		WithDetail("index", strconv.Itoa(index)).
		WithDetail("expected", strconv.Itoa(expected)).
		WithDetail("actual", strconv.Itoa(len(hashes))).
		WithSuggestion("all vectors must come from the same hashing configuration")
}
