package httpcache

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// hopByHopHeaders lists headers RFC 7230 Section 6.1 scopes to a single
// transport hop; they are never copied from a 304 response into a stored
// record, only end-to-end headers are.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// addValidators clones req and attaches If-None-Match / If-Modified-Since
// conditional headers derived from record, unless the caller already set
// them, grounded on the teacher's addValidatorsToRequest.
func addValidators(req *http.Request, record *Record) *http.Request {
	needsETag := record.ETag != "" && req.Header.Get("If-None-Match") == ""
	needsLastModified := record.LastModified != nil && req.Header.Get("If-Modified-Since") == ""

	if !needsETag && !needsLastModified {
		return req
	}

	clone := req.Clone(req.Context())
	if needsETag {
		clone.Header.Set("If-None-Match", record.ETag)
	}
	if needsLastModified {
		clone.Header.Set("If-Modified-Since", record.LastModified.Format(http.TimeFormat))
	}
	return clone
}

// mergeRevalidatedRecord applies a 304 response's end-to-end headers onto a
// clone of record, per spec.md §4.7.2: content_digest, ETag, LastModified and
// the Vary fields survive untouched (304 carries no representation), while
// freshness signals and end-to-end response headers are refreshed. Content-*
// headers the 304 carries replace those in ContentHeaders; ones it omits keep
// their stored values.
func mergeRevalidatedRecord(record *Record, freshHeaders http.Header, now time.Time, mode Mode) *Record {
	updated := record.Clone()
	updated.CachedAt = now

	for name, values := range freshHeaders {
		if hopByHopHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		copied := append([]string(nil), values...)
		if strings.HasPrefix(name, "Content-") {
			updated.ContentHeaders[name] = copied
			continue
		}
		updated.ResponseHeaders[name] = copied
	}

	respCC := ParseCacheControl(freshHeaders)
	if originDate, ok := ParseDate(freshHeaders); ok {
		updated.OriginDate = &originDate
	}
	if expires, ok := ParseExpires(freshHeaders); ok {
		updated.Expires = &expires
	} else {
		updated.Expires = nil
	}
	if age, ok := ParseAge(freshHeaders); ok {
		updated.AgeOnArrival = &age
	} else {
		updated.AgeOnArrival = nil
	}
	if maxAge := updated.maxAgeFromHeaderOrKeep(respCC, mode); maxAge != nil {
		updated.MaxAge = maxAge
	}
	updated.MustRevalidate = respCC.MustRevalidate
	updated.NoCacheInResponse = respCC.NoCache
	if respCC.StaleWhileRevalidate != nil {
		updated.StaleWhileRevalidate = respCC.StaleWhileRevalidate
	}
	if respCC.StaleIfError != nil {
		updated.StaleIfError = respCC.StaleIfError
	}

	return updated
}

// maxAgeFromHeaderOrKeep is a helper receiver so mergeRevalidatedRecord can
// fall back to the pre-existing MaxAge when the 304 carries no Cache-Control
// of its own (RFC 9111 permits a bare 304 to simply confirm freshness).
func (r *Record) maxAgeFromHeaderOrKeep(respCC CacheControl, mode Mode) *time.Duration {
	if respCC.SharedMaxAge == nil && respCC.MaxAge == nil {
		return r.MaxAge
	}
	return SelectMaxAge(respCC, mode)
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		GetLogger().Warn("failed to drain response body", "error", err)
	}
	if err := body.Close(); err != nil {
		GetLogger().Warn("failed to close response body", "error", err)
	}
}

// revalidate performs conditional validation of a cached record against the
// origin (spec.md §4.7.2), falling back to stale-if-error (§4.7.6, RFC 5861)
// when the origin errors or returns a server error and the record's window
// still permits it. Grounded on the teacher's processCachedResponse /
// handleNotModifiedResponse / shouldReturnStaleOnError control flow.
func (t *Transport) revalidate(req *http.Request, record *Record, key string) (*http.Response, Decision, error) {
	condReq := addValidators(req, record)
	resp, err := t.send(condReq)
	now := t.now()

	if err != nil || (resp != nil && resp.StatusCode >= http.StatusInternalServerError) {
		if WithinSIE(record, now, t.config.Mode) {
			if resp != nil {
				drainAndClose(resp.Body)
			}
			cached, buildErr := t.buildResponse(req, record)
			if buildErr != nil {
				return nil, DecisionMiss, buildErr
			}
			t.applyFreshnessHeaders(cached, record, DecisionHitStaleIfError)
			cached.Header.Set(headerStale, "1")
			t.metrics.RecordStaleResponse("stale-if-error")
			return cached, DecisionHitStaleIfError, nil
		}
		if err != nil {
			return nil, DecisionMiss, err
		}
		data := t.ingestAndStore(req, resp, key)
		resp.Body = io.NopCloser(bytes.NewReader(data))
		return resp, DecisionMissRevalidated, nil
	}

	if resp.StatusCode == http.StatusNotModified {
		drainAndClose(resp.Body)
		updated := mergeRevalidatedRecord(record, resp.Header, now, t.config.Mode)
		if setErr := t.metadata.Set(context.Background(), key, updated); setErr != nil {
			GetLogger().Warn("failed to store revalidated record", "key", key, "error", setErr)
		}
		cached, buildErr := t.buildResponse(req, updated)
		if buildErr != nil {
			return nil, DecisionMiss, buildErr
		}
		t.applyFreshnessHeaders(cached, updated, DecisionHitRevalidated)
		cached.Header.Set(headerRevalidated, "1")
		return cached, DecisionHitRevalidated, nil
	}

	data := t.ingestAndStore(req, resp, key)
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, DecisionMissRevalidated, nil
}

// scheduleRevalidate launches a background conditional refresh for key,
// grounded on the teacher's asyncRevalidate: an independent context rooted
// at context.Background (never the caller's, which may already be
// cancelled by the time the task runs), draining the response body so the
// refreshed entry is actually stored.
func (t *Transport) scheduleRevalidate(req *http.Request, key string) {
	noCacheReq := req.Clone(context.Background())
	noCacheReq.Header.Set("Cache-Control", "no-cache")

	t.tasks.Go(func(ctx context.Context) {
		taskReq := noCacheReq.Clone(ctx)
		GetLogger().Debug("starting background revalidation", "url", req.URL.String())

		resp, err := t.RoundTrip(taskReq)
		if err != nil {
			GetLogger().Warn("background revalidation failed", "url", req.URL.String(), "error", err)
			return
		}
		defer drainAndClose(resp.Body)
		GetLogger().Debug("background revalidation completed", "url", req.URL.String())
	})
}
