// Package query renders sub-fingerprint lookups in the query-string syntax
// shared by bleve and Lucene/Solr.
package query

import (
	"strconv"
	"strings"

	"github.com/Aman-CERP/fpsearch/internal/store"
)

// Builder builds query strings over the hash, track and cluster fields.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() Builder {
	return Builder{}
}

// BuildExactQuery matches records holding at least one of the vector's values
// at the same position. Zero positions are skipped: they are never stored.
func (Builder) BuildExactQuery(hashes []int64) string {
	clauses := make([]string, 0, len(hashes))
	for i, v := range hashes {
		if v == 0 {
			continue
		}
		clauses = append(clauses, hashClause(i, v))
	}
	return strings.Join(clauses, " ")
}

// BuildThresholdQuery returns one disjunction over every distinct
// position/value pair of all vectors. The threshold is not part of the query
// text; the caller sends it as the minimum-match parameter.
func (Builder) BuildThresholdQuery(vectors [][]int64, _ int) string {
	seen := make(map[string]struct{})
	var clauses []string
	for _, hashes := range vectors {
		for i, v := range hashes {
			if v == 0 {
				continue
			}
			clause := hashClause(i, v)
			if _, dup := seen[clause]; dup {
				continue
			}
			seen[clause] = struct{}{}
			clauses = append(clauses, clause)
		}
	}
	return strings.Join(clauses, " ")
}

// BuildClusterFilter returns a filter matching records in any of clusters.
// ok is false when clusters is empty: the search is global.
func (Builder) BuildClusterFilter(clusters []string) (filter string, ok bool) {
	seen := make(map[string]struct{}, len(clusters))
	clauses := make([]string, 0, len(clusters))
	for _, c := range clusters {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		clauses = append(clauses, store.FieldClusters+":"+quote(c))
	}
	if len(clauses) == 0 {
		return "", false
	}
	return strings.Join(clauses, " "), true
}

// BuildTrackQuery matches every record of one track.
func (Builder) BuildTrackQuery(trackID string) string {
	return store.FieldTrackID + ":" + quote(trackID)
}

func hashClause(position int, value int64) string {
	v := strconv.FormatInt(value, 10)
	if value < 0 {
		// A leading '-' would read as a negation.
		v = quote(v)
	}
	return store.HashField(position) + ":" + v
}

func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}
