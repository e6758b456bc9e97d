package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
)

func newTestSolr(t *testing.T, handler http.HandlerFunc) *SolrBackend {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts := DefaultSolrOptions()
	opts.URL = server.URL + "/solr"
	opts.Core = "fp"
	opts.MaxRows = 500
	opts.Retry = fperrors.RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		ShouldRetry:  fperrors.IsRetryable,
	}
	opts.MaxFailures = 100

	b, err := NewSolrBackend(opts, server.Client())
	require.NoError(t, err)
	return b
}

const solrSelectResponse = `{
  "responseHeader": {"status": 0},
  "response": {"numFound": 1, "start": 0, "docs": [
    {"id": "r1", "trackId": "t1", "hash_0": 10, "hash_3": -4,
     "sequenceNumber": 7, "sequenceAt": 0.928, "clusters": ["CA", "LA"], "_version_": 1}
  ]}
}`

// TS01: Query forwards parameters and decodes docs
func TestSolrBackend_Query_SendsParamsAndDecodes(t *testing.T) {
	// Given: a Solr stub recording the select form
	var form map[string][]string
	var path string
	b := newTestSolr(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = r.ParseForm()
		form = r.PostForm
		_, _ = io.WriteString(w, solrSelectResponse)
	})

	// When: querying with filter and execution params
	docs, err := b.Query(context.Background(), Request{
		Query:   "hash_0:10 hash_3:\"-4\"",
		Filters: []string{`clusters:"CA"`},
		Params: map[string]string{
			ParamDefType:           DefTypeEDisMax,
			ParamMinMatch:          "2",
			ParamPreferLocalShards: "true",
		},
	})

	// Then: the request carries everything verbatim
	require.NoError(t, err)
	assert.Equal(t, "/solr/fp/select", path)
	assert.Equal(t, []string{"hash_0:10 hash_3:\"-4\""}, form["q"])
	assert.Equal(t, []string{`clusters:"CA"`}, form["fq"])
	assert.Equal(t, []string{"500"}, form["rows"])
	assert.Equal(t, []string{"json"}, form["wt"])
	assert.Equal(t, []string{"edismax"}, form["defType"])
	assert.Equal(t, []string{"2"}, form["mm"])
	assert.Equal(t, []string{"true"}, form["preferLocalShards"])

	// And: the doc decodes with unknown fields skipped
	require.Len(t, docs, 1)
	assert.Equal(t, Document{
		ID:             "r1",
		TrackID:        "t1",
		Hashes:         map[int]int64{0: 10, 3: -4},
		SequenceNumber: 7,
		SequenceAt:     0.928,
		Clusters:       []string{"CA", "LA"},
	}, docs[0])
}

// TS06: Results beyond one page are fetched until numFound is reached
func TestSolrBackend_Query_PagesUntilNumFound(t *testing.T) {
	// Given: a Solr stub holding 5 matches and serving 2 per page
	var starts []string
	var sorts []string
	b := newTestSolr(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		starts = append(starts, r.PostForm.Get("start"))
		sorts = append(sorts, r.PostForm.Get("sort"))
		switch r.PostForm.Get("start") {
		case "0":
			_, _ = io.WriteString(w, `{"response":{"numFound":5,"start":0,"docs":[{"id":"a","trackId":"t"},{"id":"b","trackId":"t"}]}}`)
		case "2":
			_, _ = io.WriteString(w, `{"response":{"numFound":5,"start":2,"docs":[{"id":"c","trackId":"t"},{"id":"d","trackId":"t"}]}}`)
		default:
			_, _ = io.WriteString(w, `{"response":{"numFound":5,"start":4,"docs":[{"id":"e","trackId":"t"}]}}`)
		}
	})

	// When: querying
	docs, err := b.Query(context.Background(), Request{Query: `trackId:"t"`})

	// Then: every page is read in id order and no match is dropped
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "2", "4"}, starts)
	assert.Equal(t, []string{"id asc", "id asc", "id asc"}, sorts)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestSolrBackend_Query_StopsOnEmptyPage(t *testing.T) {
	// Given: a stub that reports more matches than it ever returns
	var calls atomic.Int32
	b := newTestSolr(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if calls.Add(1) == 1 {
			_, _ = io.WriteString(w, `{"response":{"numFound":25000,"docs":[{"id":"a","trackId":"t"}]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"response":{"numFound":25000,"docs":[]}}`)
	})

	// When: querying
	docs, err := b.Query(context.Background(), Request{Query: `trackId:"t"`})

	// Then: paging ends at the first empty page
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, int32(2), calls.Load())
}

// TS02: Server errors on reads are retried
func TestSolrBackend_Query_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	b := newTestSolr(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"msg":"no servers hosting shard","code":503}}`)
	})

	_, err := b.Query(context.Background(), Request{Query: "hash_0:1"})

	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
	assert.Equal(t, fperrors.ErrCodeBackendUnavailable, fperrors.GetCode(err))
	assert.Contains(t, err.Error(), "no servers hosting shard")
}

func TestSolrBackend_Query_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	b := newTestSolr(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, solrSelectResponse)
	})

	docs, err := b.Query(context.Background(), Request{Query: "hash_0:10"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, int32(2), calls.Load())
}

// TS03: Bad requests are not retried
func TestSolrBackend_Query_BadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	b := newTestSolr(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"msg":"undefined field hash_99","code":400}}`)
	})

	_, err := b.Query(context.Background(), Request{Query: "hash_99:1"})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, fperrors.ErrCodeBackendRequest, fperrors.GetCode(err))
	assert.False(t, fperrors.IsRetryable(err))
	assert.Contains(t, err.Error(), "undefined field hash_99")
}

// TS04: Writes are sent once
func TestSolrBackend_Add_IsNotRetried(t *testing.T) {
	var calls atomic.Int32
	b := newTestSolr(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := b.Add(context.Background(), []Document{{ID: "r1", TrackID: "t1", Hashes: map[int]int64{0: 1}}})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

// TS05: Add, delete and commit payloads
func TestSolrBackend_UpdatePayloads(t *testing.T) {
	type captured struct {
		path, rawQuery, contentType string
		body                        []byte
	}
	var requests []captured
	b := newTestSolr(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type"), body})
		_, _ = io.WriteString(w, `{"responseHeader":{"status":0}}`)
	})
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, []Document{{
		ID: "r1", TrackID: "t1", Hashes: map[int]int64{0: 5, 1: 0, 2: -3},
		SequenceNumber: 2, SequenceAt: 0.5, Clusters: []string{"CA"},
	}}))
	require.NoError(t, b.DeleteByQuery(ctx, `trackId:"t1"`))
	require.NoError(t, b.Commit(ctx))

	require.Len(t, requests, 3)

	add := requests[0]
	assert.Equal(t, "/solr/fp/update", add.path)
	assert.Equal(t, "application/json", add.contentType)
	doc := gjson.GetBytes(add.body, "0")
	assert.Equal(t, "r1", doc.Get("id").String())
	assert.Equal(t, "t1", doc.Get("trackId").String())
	assert.Equal(t, int64(5), doc.Get("hash_0").Int())
	assert.False(t, doc.Get("hash_1").Exists(), "zero positions are not stored")
	assert.Equal(t, int64(-3), doc.Get("hash_2").Int())
	assert.Equal(t, int64(2), doc.Get("sequenceNumber").Int())
	assert.Equal(t, "CA", doc.Get("clusters.0").String())

	del := requests[1]
	assert.Equal(t, `trackId:"t1"`, gjson.GetBytes(del.body, "delete.query").String())

	commit := requests[2]
	assert.Equal(t, "/solr/fp/update", commit.path)
	assert.Equal(t, "commit=true", commit.rawQuery)
}

func TestSolrBackend_CircuitOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	opts := DefaultSolrOptions()
	opts.URL = server.URL
	opts.Retry = fperrors.RetryConfig{ShouldRetry: fperrors.IsRetryable}
	opts.MaxFailures = 2
	opts.ResetTimeout = time.Hour
	b, err := NewSolrBackend(opts, server.Client())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = b.Query(context.Background(), Request{Query: "hash_0:1"})
		require.Error(t, err)
	}

	_, err = b.Query(context.Background(), Request{Query: "hash_0:1"})
	assert.ErrorIs(t, err, fperrors.ErrCircuitOpen)
}

func TestSolrBackend_UnreachableIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	opts := DefaultSolrOptions()
	opts.URL = url
	opts.Retry = fperrors.RetryConfig{ShouldRetry: fperrors.IsRetryable}
	b, err := NewSolrBackend(opts, nil)
	require.NoError(t, err)

	_, err = b.Query(context.Background(), Request{Query: "hash_0:1"})
	require.Error(t, err)
	assert.True(t, fperrors.IsRetryable(err))
}

func TestNewSolrBackend_ValidatesOptions(t *testing.T) {
	opts := DefaultSolrOptions()
	opts.URL = "not a url"
	_, err := NewSolrBackend(opts, nil)
	assert.Equal(t, fperrors.ErrCodeConfigInvalid, fperrors.GetCode(err))

	opts = DefaultSolrOptions()
	opts.Core = ""
	_, err = NewSolrBackend(opts, nil)
	assert.Equal(t, fperrors.ErrCodeConfigInvalid, fperrors.GetCode(err))
}
