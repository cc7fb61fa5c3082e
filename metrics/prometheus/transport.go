package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/polarcache/httpcache"
	"github.com/polarcache/httpcache/metrics"
)

// InstrumentedTransport wraps a *httpcache.Transport with Prometheus
// metrics, for callers who prefer an external wrapper to the Transport's
// built-in WithMetrics option.
type InstrumentedTransport struct {
	underlying *httpcache.Transport
	collector  metrics.Collector
}

// NewInstrumentedTransport wraps transport, recording metrics for every
// request via collector (metrics.DefaultCollector if nil).
func NewInstrumentedTransport(transport *httpcache.Transport, collector metrics.Collector) *InstrumentedTransport {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedTransport{underlying: transport, collector: collector}
}

// RoundTrip executes an HTTP request with metrics recording.
func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.underlying.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		return resp, err
	}

	decision := httpcache.Decision(resp.Header.Get(httpcache.HeaderCacheDiagnostic))
	cacheStatus := "miss"
	switch {
	case decision.IsHit():
		cacheStatus = "hit"
	case decision.IsMiss():
		cacheStatus = "miss"
	}

	t.collector.RecordHTTPRequest(req.Method, cacheStatus, resp.StatusCode, duration)
	t.collector.RecordDecision(string(decision), decision.IsHit(), decision.IsMiss())

	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
			t.collector.RecordHTTPResponseSize(cacheStatus, size)
		}
	}

	return resp, nil
}

// Client returns an HTTP client using the instrumented transport.
func (t *InstrumentedTransport) Client() *http.Client {
	return &http.Client{Transport: t}
}

var _ http.RoundTripper = (*InstrumentedTransport)(nil)
