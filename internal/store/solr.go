package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
)

// SolrOptions configures a SolrBackend.
type SolrOptions struct {
	// URL is the Solr base URL, e.g. http://localhost:8983/solr.
	URL string
	// Core is the core or collection holding sub-fingerprints.
	Core string
	// Timeout bounds a single HTTP request.
	Timeout time.Duration
	// MaxRows is the rows parameter sent with every select.
	MaxRows int
	// RequestsPerSecond limits the request rate. Zero means unlimited.
	RequestsPerSecond float64
	// Burst is the limiter burst size.
	Burst int
	// Retry applies to reads only.
	Retry fperrors.RetryConfig
	// MaxFailures opens the circuit breaker after this many consecutive
	// retryable failures.
	MaxFailures int
	// ResetTimeout is how long the circuit stays open.
	ResetTimeout time.Duration
}

// DefaultSolrOptions returns options for a local single-node Solr.
func DefaultSolrOptions() SolrOptions {
	return SolrOptions{
		URL:          "http://localhost:8983/solr",
		Core:         "fingerprints",
		Timeout:      30 * time.Second,
		MaxRows:      10000,
		Burst:        1,
		Retry:        fperrors.DefaultRetryConfig(),
		MaxFailures:  5,
		ResetTimeout: 30 * time.Second,
	}
}

// SolrBackend is a Backend on a remote Solr core.
//
// Reads are retried on retryable failures. Writes are sent once: an add that
// timed out may still have been applied, so callers decide whether to repeat it.
type SolrBackend struct {
	client  *http.Client
	coreURL string
	opts    SolrOptions
	limiter *rate.Limiter
	breaker *fperrors.CircuitBreaker
}

var _ Backend = (*SolrBackend)(nil)

// NewSolrBackend returns a backend for opts.Core at opts.URL.
// A nil client uses a fresh http.Client with opts.Timeout.
func NewSolrBackend(opts SolrOptions, client *http.Client) (*SolrBackend, error) {
	base, err := url.Parse(opts.URL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fperrors.ConfigError(fmt.Sprintf("invalid solr url %q", opts.URL), err)
	}
	if opts.Core == "" {
		return nil, fperrors.ConfigError("solr core is required", nil)
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultSolrOptions().MaxRows
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := max(opts.Burst, 1)

	var breakerOpts []fperrors.CircuitBreakerOption
	if opts.MaxFailures > 0 {
		breakerOpts = append(breakerOpts, fperrors.WithMaxFailures(opts.MaxFailures))
	}
	if opts.ResetTimeout > 0 {
		breakerOpts = append(breakerOpts, fperrors.WithResetTimeout(opts.ResetTimeout))
	}

	return &SolrBackend{
		client:  client,
		coreURL: strings.TrimRight(opts.URL, "/") + "/" + url.PathEscape(opts.Core),
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		breaker: fperrors.NewCircuitBreaker("solr:"+opts.Core, breakerOpts...),
	}, nil
}

// Query sends req to the select handler. Params are forwarded verbatim, so
// mm and preferLocalShards take their Solr meaning. Results are paged with
// start/rows, sorted by id, until numFound documents have been read; each
// page is retried on its own.
func (s *SolrBackend) Query(ctx context.Context, req Request) ([]Document, error) {
	form := url.Values{}
	form.Set("q", req.Query)
	for _, fq := range req.Filters {
		form.Add("fq", fq)
	}
	form.Set("rows", strconv.Itoa(s.opts.MaxRows))
	form.Set("sort", FieldID+" asc")
	form.Set("wt", "json")
	for k, v := range req.Params {
		form.Set(k, v)
	}

	var docs []Document
	for {
		form.Set("start", strconv.Itoa(len(docs)))
		page, err := fperrors.RetryWithResult(ctx, s.opts.Retry, func() (solrPage, error) {
			return fperrors.CircuitExecute(s.breaker, func() (solrPage, error) {
				body, err := s.do(ctx, "/select", "application/x-www-form-urlencoded", []byte(form.Encode()), fperrors.ErrCodeBackendQuery)
				if err != nil {
					return solrPage{}, err
				}
				return solrPage{
					docs:     decodeSolrDocs(body),
					numFound: gjson.GetBytes(body, "response.numFound").Int(),
				}, nil
			})
		})
		if err != nil {
			return nil, err
		}
		if docs == nil {
			docs = make([]Document, 0, len(page.docs))
		}
		docs = append(docs, page.docs...)
		if len(page.docs) == 0 || int64(len(docs)) >= page.numFound {
			return docs, nil
		}
	}
}

// solrPage is one select response.
type solrPage struct {
	docs     []Document
	numFound int64
}

// Add posts documents to the update handler without committing.
func (s *SolrBackend) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	payload := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		payload = append(payload, encodeSolrDoc(doc))
	}
	return s.update(ctx, "/update", payload, fperrors.ErrCodeBackendWrite)
}

// DeleteByQuery posts a delete-by-query to the update handler.
func (s *SolrBackend) DeleteByQuery(ctx context.Context, q string) error {
	return s.update(ctx, "/update", map[string]interface{}{
		"delete": map[string]string{"query": q},
	}, fperrors.ErrCodeBackendWrite)
}

// Commit issues a hard commit.
func (s *SolrBackend) Commit(ctx context.Context) error {
	return s.update(ctx, "/update?commit=true", []interface{}{}, fperrors.ErrCodeBackendCommit)
}

// Close releases idle connections.
func (s *SolrBackend) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *SolrBackend) update(ctx context.Context, handler string, payload interface{}, code string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fperrors.New(code, "failed to encode update", err)
	}
	return s.breaker.Execute(func() error {
		_, err := s.do(ctx, handler, "application/json", body, code)
		return err
	})
}

// do performs one POST against the core and classifies failures:
// timeouts and 5xx responses are retryable, 4xx responses are not.
func (s *SolrBackend) do(ctx context.Context, handler, contentType string, body []byte, code string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fperrors.New(fperrors.ErrCodeBackendTimeout, "rate limiter wait aborted", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.coreURL+handler, bytes.NewReader(body))
	if err != nil {
		return nil, fperrors.New(code, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fperrors.New(fperrors.ErrCodeBackendUnavailable, "failed to read solr response", err)
	}

	slog.Debug("solr_request",
		slog.String("handler", handler),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	msg := gjson.GetBytes(respBody, "error.msg").String()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	errCode := code
	if resp.StatusCode >= 500 {
		errCode = fperrors.ErrCodeBackendUnavailable
	} else if resp.StatusCode == http.StatusBadRequest {
		errCode = fperrors.ErrCodeBackendRequest
	}
	return nil, fperrors.New(errCode, "solr: "+msg, nil).
		WithDetail("status", strconv.Itoa(resp.StatusCode)).
		WithDetail("handler", handler)
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fperrors.New(fperrors.ErrCodeBackendTimeout, "solr request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fperrors.New(fperrors.ErrCodeBackendTimeout, "solr request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return fperrors.New(fperrors.ErrCodeBackendRequest, "solr request cancelled", err)
	}
	return fperrors.New(fperrors.ErrCodeBackendUnavailable, "solr is unreachable", err)
}

func encodeSolrDoc(doc Document) map[string]interface{} {
	fields := make(map[string]interface{}, len(doc.Hashes)+5)
	fields[FieldID] = doc.ID
	fields[FieldTrackID] = doc.TrackID
	fields[FieldSequenceNumber] = doc.SequenceNumber
	fields[FieldSequenceAt] = doc.SequenceAt
	if len(doc.Clusters) > 0 {
		fields[FieldClusters] = doc.Clusters
	}
	for i, v := range doc.Hashes {
		if v != 0 {
			fields[HashField(i)] = v
		}
	}
	return fields
}

// decodeSolrDocs reads response.docs. Unknown fields such as _version_ are skipped.
func decodeSolrDocs(body []byte) []Document {
	results := gjson.GetBytes(body, "response.docs").Array()
	docs := make([]Document, 0, len(results))
	for _, result := range results {
		doc := Document{Hashes: make(map[int]int64)}
		result.ForEach(func(key, value gjson.Result) bool {
			switch name := key.String(); name {
			case FieldID:
				doc.ID = value.String()
			case FieldTrackID:
				doc.TrackID = firstString(value)
			case FieldSequenceNumber:
				doc.SequenceNumber = int(value.Int())
			case FieldSequenceAt:
				doc.SequenceAt = value.Float()
			case FieldClusters:
				for _, c := range value.Array() {
					doc.Clusters = append(doc.Clusters, c.String())
				}
			default:
				if i, ok := ParseHashField(name); ok {
					doc.Hashes[i] = value.Int()
				}
			}
			return true
		})
		docs = append(docs, doc)
	}
	return docs
}

// firstString handles schemas that declare single-valued fields as multi-valued.
func firstString(value gjson.Result) string {
	if value.IsArray() {
		values := value.Array()
		if len(values) == 0 {
			return ""
		}
		return values[0].String()
	}
	return value.String()
}
