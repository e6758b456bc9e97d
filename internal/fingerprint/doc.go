// Package fingerprint stores sub-fingerprints in a search backend and finds
// candidate matches for query hash vectors.
//
// SubFingerprintDAO is the lookup engine. Multi-vector lookups are split into
// fixed-size batches that run one after another; each batch becomes a single
// disjunctive query with a minimum-match threshold, optionally restricted to a
// set of clusters. Results from all batches are merged by record id.
//
// ModelService ties the engine to track metadata and exposes the spectral
// image operations, which no search backend supports.
package fingerprint
