// Package model holds the domain types shared by the storage and lookup
// layers: hashed fingerprints, persisted sub-fingerprint records, tracks and
// the opaque references that identify them.
package model

import "slices"

// HashedFingerprint is one hashed time window of a track. Values are
// read-only once built; NewHashedFingerprint copies its slices.
type HashedFingerprint struct {
	// Signature is the compact byte form of HashBins.
	Signature []byte
	// HashBins holds one value per LSH table.
	HashBins []int64
	// SequenceNumber is the position within the track's fingerprint stream.
	SequenceNumber int
	// StartsAt is the offset of the window from the start of the track, in seconds.
	StartsAt float64
	// Clusters are partition labels. Empty means global.
	Clusters []string
}

// NewHashedFingerprint builds a fingerprint that shares no memory with its arguments.
func NewHashedFingerprint(signature []byte, hashBins []int64, sequenceNumber int, startsAt float64, clusters []string) HashedFingerprint {
	return HashedFingerprint{
		Signature:      slices.Clone(signature),
		HashBins:       slices.Clone(hashBins),
		SequenceNumber: sequenceNumber,
		StartsAt:       startsAt,
		Clusters:       slices.Clone(clusters),
	}
}

// SubFingerprintRecord is a stored sub-fingerprint as returned by lookups.
type SubFingerprintRecord struct {
	ID             ModelReference
	TrackReference ModelReference
	HashBins       []int64
	SequenceNumber int
	SequenceAt     float64
	Clusters       []string
}
