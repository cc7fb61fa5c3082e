package httpcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/polarcache/httpcache/compress"
	"github.com/polarcache/httpcache/content"
	"github.com/polarcache/httpcache/metrics"
	"github.com/polarcache/httpcache/resilience"
	"github.com/polarcache/httpcache/security"
	"github.com/polarcache/httpcache/store"
)

// Response headers the Pipeline sets directly on a served cached response,
// distinct from the diagnostic X-Cache-* family (those are opt-in via
// Config.IncludeDiagnosticHeaders; these mirror the teacher's always-on
// markers, kept because they're cheap and informative).
const (
	headerFromCache   = "X-From-Cache"
	headerRevalidated = "X-Revalidated"
	headerStale       = "X-Stale"
)

// Transport is an http.RoundTripper that serves responses from cache where
// RFC 9111 and RFC 5861 permit it, revalidating or falling through to the
// lower transport otherwise (C7), grounded on the teacher's Transport /
// RoundTrip control flow, restructured around a metadata Record plus a
// content-addressed body instead of a whole-response dump.
type Transport struct {
	config     Config
	transport  http.RoundTripper
	tasks      TaskRunner
	clock      Clock
	metrics    metrics.Collector
	sealer     *security.Sealer
	resilience *resilience.Executor

	metadata   *MetadataStore
	content    *content.Store
	compressor *compress.Registry
	coalescer  requestCoalescer
}

// NewTransport returns a Transport whose Metadata Store and Content Store
// are both backed by backing, applying opts in order. A nil lower transport
// defaults to http.DefaultTransport; an unset TaskRunner defaults to the
// goroutine-per-task runner; an unset Clock defaults to SystemClock.
func NewTransport(backing store.Store, opts ...Option) *Transport {
	t := &Transport{
		config:  DefaultConfig(),
		clock:   SystemClock,
		tasks:   NewTaskRunner(),
		metrics: metrics.DefaultCollector,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			GetLogger().Error("failed to apply transport option", "error", err)
		}
	}

	t.metadata = NewMetadataStore(backing, t.sealer)
	t.content = content.New(backing, t.config.ContentKeyPrefix)

	gz, _ := compress.NewGzip(0)
	br, _ := compress.NewBrotli(0)
	t.compressor = compress.NewRegistry(gz, br, compress.NewSnappy())

	return t
}

// Client returns an *http.Client that caches responses through t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// Close drains outstanding background revalidation tasks (§4.7.3's
// stale-while-revalidate launches, which otherwise run on an independent
// context with no caller-visible handle), cancelling them and waiting for
// them to return or for ctx to be done, whichever happens first.
func (t *Transport) Close(ctx context.Context) error {
	return t.tasks.Shutdown(ctx)
}

func (t *Transport) lowerTransport() http.RoundTripper {
	if t.transport != nil {
		return t.transport
	}
	return http.DefaultTransport
}

func (t *Transport) now() time.Time {
	if t.clock != nil {
		return t.clock.Now()
	}
	return time.Now().UTC()
}

func (t *Transport) cacheKey(req *http.Request) string {
	if t.config.CacheKeyGenerator != nil {
		return t.config.CacheKeyGenerator(req)
	}
	return BuildKey(req, t.config.VaryHeaders)
}

// send issues req against the lower transport, wrapped in the configured
// resilience policies (retry, circuit breaker) when present.
func (t *Transport) send(req *http.Request) (*http.Response, error) {
	lower := t.lowerTransport()
	if t.resilience != nil {
		return t.resilience.Execute(func() (*http.Response, error) {
			return lower.RoundTrip(req)
		})
	}
	return lower.RoundTrip(req)
}

// RoundTrip implements http.RoundTripper, per spec.md §4.7.1's per-request
// decision procedure.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := t.now()
	cacheable := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Header.Get("Range") == ""
	key := t.cacheKey(req)

	if !cacheable {
		if isUnsafeMethod(req.Method) {
			if err := t.metadata.Remove(req.Context(), key); err != nil {
				GetLogger().Warn("failed to invalidate cache entry", "key", key, "error", err)
			}
		}
		resp, err := t.send(req)
		if err == nil && isUnsafeMethod(req.Method) {
			t.invalidateRelatedURIs(req, resp)
		}
		t.finish(req, DecisionBypassMethod, resp, start)
		return resp, err
	}

	record, ok, err := t.metadata.Get(req.Context(), key)
	if err != nil {
		GetLogger().Warn("metadata lookup failed", "key", key, "error", err)
		resp, rtErr := t.forwardAndStore(req, key)
		t.finish(req, DecisionMissCacheError, resp, start)
		return resp, rtErr
	}
	if !ok {
		record = nil
	}

	switch decision := Decide(req, record, start, t.config); decision {
	case DecisionBypassMethod, DecisionBypassNoStore, DecisionBypassPragmaNoCache:
		resp, rtErr := t.forwardAndStore(req, key)
		t.finish(req, decision, resp, start)
		return resp, rtErr

	case DecisionMissOnlyIfCached:
		resp := newGatewayTimeoutResponse(req)
		t.finish(req, decision, resp, start)
		return resp, nil

	case DecisionHitOnlyIfCached:
		resp, buildErr := t.buildResponse(req, record)
		if buildErr != nil {
			GetLogger().Warn("failed to rebuild cached response for only-if-cached hit, treating as miss", "key", key, "error", buildErr)
			resp := newGatewayTimeoutResponse(req)
			t.finish(req, DecisionMissOnlyIfCached, resp, start)
			return resp, nil
		}
		t.applyFreshnessHeaders(resp, record, decision)
		resp.Header.Set(headerFromCache, "1")
		t.finish(req, decision, resp, start)
		return resp, nil

	case DecisionMiss:
		resp, rtErr := t.forwardAndStore(req, key)
		t.finish(req, decision, resp, start)
		return resp, rtErr

	case DecisionHitFresh:
		resp, buildErr := t.buildResponse(req, record)
		if buildErr != nil {
			resp, rtErr := t.forwardAndStore(req, key)
			t.finish(req, DecisionMissCacheError, resp, start)
			return resp, rtErr
		}
		t.applyFreshnessHeaders(resp, record, decision)
		resp.Header.Set(headerFromCache, "1")
		t.finish(req, decision, resp, start)
		return resp, nil

	case DecisionHitStaleWhileRevalidate:
		resp, buildErr := t.buildResponse(req, record)
		if buildErr != nil {
			resp, rtErr := t.forwardAndStore(req, key)
			t.finish(req, DecisionMissCacheError, resp, start)
			return resp, rtErr
		}
		t.applyFreshnessHeaders(resp, record, decision)
		resp.Header.Set(headerFromCache, "1")
		resp.Header.Set(headerStale, "1")
		t.metrics.RecordStaleResponse("stale-while-revalidate")
		t.scheduleRevalidate(req, key)
		t.finish(req, decision, resp, start)
		return resp, nil

	case decisionRevalidate:
		resp, final, rtErr := t.revalidate(req, record, key)
		t.finish(req, final, resp, start)
		return resp, rtErr

	default:
		resp, rtErr := t.forwardAndStore(req, key)
		t.finish(req, DecisionMiss, resp, start)
		return resp, rtErr
	}
}

// forwardAndStore performs an uncached request, coalescing concurrent
// callers sharing key (spec.md §4.7.4) so only one of them actually reaches
// the origin, stores the response if storability permits, and returns a
// response whose body is an independent copy, never aliased across waiters.
func (t *Transport) forwardAndStore(req *http.Request, key string) (*http.Response, error) {
	resp, body, err := t.coalescer.Do(key, func() (*http.Response, []byte, error) {
		origResp, sendErr := t.send(req)
		if sendErr != nil {
			return nil, nil, sendErr
		}
		data := t.ingestAndStore(req, origResp, key)
		return origResp, data, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneResponseWithBody(resp, body, req), nil
}

// cloneResponseWithBody returns a shallow copy of resp with an independent
// body reader and header map, so concurrent waiters of a coalesced fetch
// never share mutable state.
func cloneResponseWithBody(resp *http.Response, body []byte, req *http.Request) *http.Response {
	clone := *resp
	clone.Header = resp.Header.Clone()
	clone.Body = io.NopCloser(bytes.NewReader(append([]byte(nil), body...)))
	clone.ContentLength = int64(len(body))
	clone.Request = req
	return &clone
}

// ingestAndStore fully reads and closes resp's body and, if the body fits
// MaxCacheableContentSize and the response passes IsStorable, persists a
// Record plus content entry under key. A previously cached entry is
// invalidated when IsStorable rejects the fresh response, mirroring the
// teacher's storeResponseInCache; a body over the size cap leaves the stores
// unchanged. Returns the ingested bytes so the
// caller can hand them to the response actually returned to its caller(s).
func (t *Transport) ingestAndStore(req *http.Request, resp *http.Response, key string) []byte {
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			GetLogger().Warn("failed to close origin response body", "url", req.URL.String(), "error", closeErr)
		}
	}()

	maxSize := int64(-1)
	if t.config.MaxCacheableContentSizeOK {
		maxSize = t.config.MaxCacheableContentSize
	}

	data, err := content.Ingest(resp.Body, maxSize)
	tooLarge := errors.Is(err, content.ErrTooLarge)
	if err != nil && !tooLarge {
		GetLogger().Warn("failed to read response body", "url", req.URL.String(), "error", err)
		return nil
	}
	if tooLarge {
		rest, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			GetLogger().Warn("failed to read response body", "url", req.URL.String(), "error", readErr)
		}
		return append(data, rest...)
	}

	ctx := context.Background()

	storable := IsStorable(StorabilityInput{
		Req:           req,
		RespHeader:    resp.Header,
		StatusCode:    resp.StatusCode,
		ContentLength: int64(len(data)),
		Config:        t.config,
	})
	if !storable {
		if delErr := t.metadata.Remove(ctx, key); delErr != nil {
			GetLogger().Warn("failed to invalidate cache entry", "key", key, "error", delErr)
		}
		return data
	}

	record, payload := t.buildRecord(req, resp, data)

	digest, err := t.content.Put(ctx, payload)
	if err != nil {
		GetLogger().Warn("failed to store content", "key", key, "error", err)
		return data
	}
	record.ContentDigest = digest
	record.ContentLength = int64(len(payload))

	if err := t.metadata.Set(ctx, key, record); err != nil {
		GetLogger().Warn("failed to store record", "key", key, "error", err)
	}
	return data
}

// buildRecord constructs the Record persisted for req/resp, compressing the
// body first when eligible, per spec.md §4.4/§4.5.
func (t *Transport) buildRecord(req *http.Request, resp *http.Response, data []byte) (*Record, []byte) {
	now := t.now()
	respCC := ParseCacheControl(resp.Header)

	payload := data
	compressed := false
	if t.shouldCompress(resp.Header, len(data)) {
		if encoded, err := t.compressor.Encode(compress.Gzip, data); err == nil {
			payload = encoded
			compressed = true
		} else {
			GetLogger().Warn("failed to compress response body", "url", req.URL.String(), "error", err)
		}
	}

	responseHeaders, contentHeaders := splitHeaders(resp.Header)

	record := &Record{
		Status:               resp.StatusCode,
		ResponseHeaders:      responseHeaders,
		ContentHeaders:       contentHeaders,
		IsCompressed:         compressed,
		CachedAt:             now,
		MaxAge:               SelectMaxAge(respCC, t.config.Mode),
		StaleWhileRevalidate: respCC.StaleWhileRevalidate,
		StaleIfError:         respCC.StaleIfError,
		MustRevalidate:       respCC.MustRevalidate,
		NoCacheInResponse:    respCC.NoCache,
	}

	if originDate, ok := ParseDate(resp.Header); ok {
		record.OriginDate = &originDate
	}
	if expires, ok := ParseExpires(resp.Header); ok {
		record.Expires = &expires
	}
	if age, ok := ParseAge(resp.Header); ok {
		record.AgeOnArrival = &age
	}
	if etag, ok := ParseETag(resp.Header); ok {
		record.ETag = etag
	}
	if lastModified, ok := ParseLastModified(resp.Header); ok {
		record.LastModified = &lastModified
	}
	if record.MaxAge == nil && record.Expires == nil && record.LastModified == nil && t.config.DefaultCacheDurationOK {
		d := t.config.DefaultCacheDuration
		record.MaxAge = &d
	}

	if names, wildcard := ParseVary(resp.Header); !wildcard && len(names) > 0 {
		record.VaryHeaderNames = names
		record.VaryHeaderValues = CaptureVaryValues(req, names)
	}

	return record, payload
}

func (t *Transport) shouldCompress(header http.Header, size int) bool {
	if !t.config.CompressionThresholdOK || size < t.config.CompressionThreshold {
		return false
	}
	return contentTypeAllowed(header.Get("Content-Type"), t.config.CompressibleContentTypes)
}

// splitHeaders partitions h into non-entity response headers (cache
// directives, validators, Vary, Date...) and entity headers describing the
// representation (Content-Type, Content-Encoding, Content-Length...), so a
// 304 refresh (§4.7.2) can update the former while leaving the latter, which
// describe bytes a 304 never carries, untouched.
func splitHeaders(h http.Header) (responseHeaders, contentHeaders http.Header) {
	responseHeaders = make(http.Header, len(h))
	contentHeaders = make(http.Header)
	for name, values := range h {
		copied := append([]string(nil), values...)
		if strings.HasPrefix(name, "Content-") {
			contentHeaders[name] = copied
			continue
		}
		responseHeaders[name] = copied
	}
	return responseHeaders, contentHeaders
}

// buildResponse reconstructs an *http.Response from a stored record,
// decompressing the content entry when necessary.
func (t *Transport) buildResponse(req *http.Request, record *Record) (*http.Response, error) {
	data, ok, err := t.content.Get(context.Background(), record.ContentDigest)
	if err != nil {
		return nil, fmt.Errorf("httpcache: read content: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: metadata record with no backing content entry", ErrInvariantViolation)
	}

	if record.IsCompressed {
		data, err = t.compressor.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("httpcache: decompress content: %w", err)
		}
	}

	header := record.ResponseHeaders.Clone()
	for name, values := range record.ContentHeaders {
		header[name] = append([]string(nil), values...)
	}

	return &http.Response{
		Status:        http.StatusText(record.Status),
		StatusCode:    record.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: int64(len(data)),
		Request:       req,
	}, nil
}

// applyFreshnessHeaders sets the Age header (always) and, when
// Config.IncludeDiagnosticHeaders is set, the X-Cache-* diagnostic family
// (§4.7.7), mirroring the teacher's MarkCachedResponses idiom.
func (t *Transport) applyFreshnessHeaders(resp *http.Response, record *Record, decision Decision) {
	age := CurrentAge(record, t.now())
	resp.Header.Set("Age", formatAgeHeader(age))

	if !t.config.IncludeDiagnosticHeaders {
		return
	}
	resp.Header.Set(HeaderCacheDiagnostic, string(decision))
	resp.Header.Set(HeaderCacheAge, formatAgeHeader(age))
	if record.MaxAge != nil {
		resp.Header.Set(HeaderCacheMaxAge, formatAgeHeader(*record.MaxAge))
	}
	if record.IsCompressed {
		resp.Header.Set(HeaderCacheCompressed, "1")
	}
}

// finish records metrics for a completed RoundTrip and, when diagnostics
// are enabled, stamps the diagnostic header on responses that bypassed
// applyFreshnessHeaders (bypass and miss paths).
func (t *Transport) finish(req *http.Request, decision Decision, resp *http.Response, start time.Time) {
	duration := t.now().Sub(start)

	statusCode := 0
	var size int64 = -1
	if resp != nil {
		statusCode = resp.StatusCode
		size = resp.ContentLength
		if t.config.IncludeDiagnosticHeaders && resp.Header.Get(HeaderCacheDiagnostic) == "" {
			resp.Header.Set(HeaderCacheDiagnostic, string(decision))
		}
	}

	t.metrics.RecordDecision(string(decision), decision.IsHit(), decision.IsMiss())

	cacheStatus := "bypass"
	switch {
	case decision == DecisionHitRevalidated || decision == DecisionMissRevalidated:
		cacheStatus = "revalidated"
	case decision.IsHit():
		cacheStatus = "hit"
	case decision.IsMiss():
		cacheStatus = "miss"
	}

	t.metrics.RecordHTTPRequest(req.Method, cacheStatus, statusCode, duration)
	if size >= 0 {
		t.metrics.RecordHTTPResponseSize(cacheStatus, size)
	}
}

// newGatewayTimeoutResponse is returned for an only-if-cached request with
// no usable cached entry, per RFC 9111 Section 5.2.1.7.
func newGatewayTimeoutResponse(req *http.Request) *http.Response {
	return &http.Response{
		Status:     http.StatusText(http.StatusGatewayTimeout),
		StatusCode: http.StatusGatewayTimeout,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Request:    req,
	}
}

// isUnsafeMethod reports whether method is one of the RFC 9110 unsafe
// methods that triggers cache invalidation of the affected URI(s).
func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// invalidateRelatedURIs implements RFC 9111 Section 4.4: a non-error
// response to an unsafe method invalidates the effective request URI and
// any same-origin URIs named by Location or Content-Location, grounded on
// the teacher's invalidateCache.
func (t *Transport) invalidateRelatedURIs(req *http.Request, resp *http.Response) {
	if resp.StatusCode >= 400 {
		return
	}
	ctx := req.Context()

	t.invalidateURI(ctx, req.URL)

	if location := resp.Header.Get("Location"); location != "" {
		t.invalidateHeaderURI(ctx, req.URL, location)
	}
	if contentLocation := resp.Header.Get("Content-Location"); contentLocation != "" {
		t.invalidateHeaderURI(ctx, req.URL, contentLocation)
	}
}

func (t *Transport) invalidateHeaderURI(ctx context.Context, base *url.URL, headerValue string) {
	target, err := base.Parse(headerValue)
	if err != nil {
		GetLogger().Debug("failed to parse invalidation URI", "value", headerValue, "error", err)
		return
	}
	if target.Scheme != base.Scheme || target.Host != base.Host {
		return
	}
	t.invalidateURI(ctx, target)
}

func (t *Transport) invalidateURI(ctx context.Context, target *url.URL) {
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		key := t.cacheKey(&http.Request{Method: method, URL: target, Header: make(http.Header)})
		if err := t.metadata.Remove(ctx, key); err != nil {
			GetLogger().Warn("failed to invalidate cache entry", "key", key, "error", err)
		}
	}
}
