package httpcache

import (
	"net/http"
	"testing"
	"time"
)

func newGetRequest(t *testing.T, headers map[string]string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestDecideBypassMethod(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "http://example.com/", nil)
	got := Decide(req, nil, time.Now(), DefaultConfig())
	if got != DecisionBypassMethod {
		t.Fatalf("got %v, want %v", got, DecisionBypassMethod)
	}
}

func TestDecidePragmaNoCache(t *testing.T) {
	req := newGetRequest(t, map[string]string{"Pragma": "no-cache"})
	got := Decide(req, nil, time.Now(), DefaultConfig())
	if got != DecisionBypassPragmaNoCache {
		t.Fatalf("got %v, want %v", got, DecisionBypassPragmaNoCache)
	}
}

func TestDecidePragmaIgnoredWhenCacheControlPresent(t *testing.T) {
	req := newGetRequest(t, map[string]string{"Pragma": "no-cache", "Cache-Control": "max-age=60"})
	got := Decide(req, nil, time.Now(), DefaultConfig())
	if got == DecisionBypassPragmaNoCache {
		t.Fatal("Pragma must be ignored once Cache-Control is present")
	}
}

func TestDecideNoStoreBypass(t *testing.T) {
	req := newGetRequest(t, map[string]string{"Cache-Control": "no-store"})
	got := Decide(req, nil, time.Now(), DefaultConfig())
	if got != DecisionBypassNoStore {
		t.Fatalf("got %v, want %v", got, DecisionBypassNoStore)
	}
}

func TestDecideMissOnAbsentRecord(t *testing.T) {
	req := newGetRequest(t, nil)
	got := Decide(req, nil, time.Now(), DefaultConfig())
	if got != DecisionMiss {
		t.Fatalf("got %v, want %v", got, DecisionMiss)
	}
}

func TestDecideMissOnVaryMismatch(t *testing.T) {
	req := newGetRequest(t, map[string]string{"Accept-Encoding": "br"})
	now := time.Now()
	record := &Record{
		ResponseHeaders:  make(http.Header),
		ContentHeaders:   make(http.Header),
		CachedAt:         now,
		MaxAge:           durationPtr(time.Hour),
		VaryHeaderNames:  []string{"Accept-Encoding"},
		VaryHeaderValues: map[string]string{"Accept-Encoding": "gzip"},
	}
	got := Decide(req, record, now, DefaultConfig())
	if got != DecisionMiss {
		t.Fatalf("got %v, want %v", got, DecisionMiss)
	}
}

func TestDecideHitFresh(t *testing.T) {
	now := time.Now()
	req := newGetRequest(t, nil)
	record := &Record{
		ResponseHeaders: make(http.Header),
		ContentHeaders:  make(http.Header),
		CachedAt:        now,
		MaxAge:          durationPtr(time.Hour),
	}
	got := Decide(req, record, now, DefaultConfig())
	if got != DecisionHitFresh {
		t.Fatalf("got %v, want %v", got, DecisionHitFresh)
	}
}

func TestDecideStaleWhileRevalidateWindow(t *testing.T) {
	now := time.Now()
	req := newGetRequest(t, nil)
	record := &Record{
		ResponseHeaders:      make(http.Header),
		ContentHeaders:       make(http.Header),
		CachedAt:             now.Add(-2 * time.Minute),
		MaxAge:               durationPtr(time.Minute),
		StaleWhileRevalidate: durationPtr(10 * time.Minute),
	}
	got := Decide(req, record, now, DefaultConfig())
	if got != DecisionHitStaleWhileRevalidate {
		t.Fatalf("got %v, want %v", got, DecisionHitStaleWhileRevalidate)
	}
}

func TestDecideRevalidateWhenStaleBeyondSWR(t *testing.T) {
	now := time.Now()
	req := newGetRequest(t, nil)
	record := &Record{
		ResponseHeaders: make(http.Header),
		ContentHeaders:  make(http.Header),
		CachedAt:        now.Add(-time.Hour),
		MaxAge:          durationPtr(time.Minute),
	}
	got := Decide(req, record, now, DefaultConfig())
	if got != decisionRevalidate {
		t.Fatalf("got %v, want the internal revalidate signal", got)
	}
}

func TestDecideRevalidateOnRequestNoCache(t *testing.T) {
	now := time.Now()
	req := newGetRequest(t, map[string]string{"Cache-Control": "no-cache"})
	record := &Record{
		ResponseHeaders: make(http.Header),
		ContentHeaders:  make(http.Header),
		CachedAt:        now,
		MaxAge:          durationPtr(time.Hour),
	}
	got := Decide(req, record, now, DefaultConfig())
	if got != decisionRevalidate {
		t.Fatalf("got %v, want the internal revalidate signal", got)
	}
}

func TestDecideOnlyIfCachedHitAndMiss(t *testing.T) {
	now := time.Now()
	req := newGetRequest(t, map[string]string{"Cache-Control": "only-if-cached"})

	if got := Decide(req, nil, now, DefaultConfig()); got != DecisionMissOnlyIfCached {
		t.Fatalf("absent record: got %v, want %v", got, DecisionMissOnlyIfCached)
	}

	record := &Record{
		ResponseHeaders: make(http.Header),
		ContentHeaders:  make(http.Header),
		CachedAt:        now,
		MaxAge:          durationPtr(time.Hour),
	}
	if got := Decide(req, record, now, DefaultConfig()); got != DecisionHitOnlyIfCached {
		t.Fatalf("fresh record: got %v, want %v", got, DecisionHitOnlyIfCached)
	}
}

func TestSelectMaxAge(t *testing.T) {
	shared := durationPtr(time.Minute)
	private := durationPtr(2 * time.Minute)

	cc := CacheControl{MaxAge: private, SharedMaxAge: shared}
	if got := SelectMaxAge(cc, ModeShared); got != shared {
		t.Fatal("shared mode must prefer s-maxage")
	}
	if got := SelectMaxAge(cc, ModePrivate); got != private {
		t.Fatal("private mode must ignore s-maxage")
	}
}

func TestIsStorableRejectsVaryWildcard(t *testing.T) {
	req := newGetRequest(t, nil)
	header := make(http.Header)
	header.Set("Vary", "*")
	header.Set("Cache-Control", "max-age=60")

	ok := IsStorable(StorabilityInput{Req: req, RespHeader: header, StatusCode: 200, Config: DefaultConfig()})
	if ok {
		t.Fatal("Vary: * must never be storable")
	}
}

func TestIsStorableRejectsOversizedBody(t *testing.T) {
	req := newGetRequest(t, nil)
	header := make(http.Header)
	header.Set("Cache-Control", "max-age=60")

	cfg := DefaultConfig()
	cfg.MaxCacheableContentSize = 10
	cfg.MaxCacheableContentSizeOK = true

	ok := IsStorable(StorabilityInput{Req: req, RespHeader: header, StatusCode: 200, ContentLength: 11, Config: cfg})
	if ok {
		t.Fatal("oversized body must not be storable")
	}
}

func TestIsStorableRejectsNoCacheWithoutValidator(t *testing.T) {
	req := newGetRequest(t, nil)
	header := make(http.Header)
	header.Set("Cache-Control", "no-cache")

	ok := IsStorable(StorabilityInput{Req: req, RespHeader: header, StatusCode: 200, Config: DefaultConfig()})
	if ok {
		t.Fatal("no-cache without a validator must not be storable")
	}
}

func TestIsStorableAllowsNoCacheWithETag(t *testing.T) {
	req := newGetRequest(t, nil)
	header := make(http.Header)
	header.Set("Cache-Control", "no-cache")
	header.Set("ETag", `"abc"`)

	ok := IsStorable(StorabilityInput{Req: req, RespHeader: header, StatusCode: 200, Config: DefaultConfig()})
	if !ok {
		t.Fatal("no-cache with an ETag should be storable")
	}
}

func TestIsStorableRejectsNoFreshnessSignalWithoutDefault(t *testing.T) {
	req := newGetRequest(t, nil)
	header := make(http.Header)

	cfg := DefaultConfig()
	ok := IsStorable(StorabilityInput{Req: req, RespHeader: header, StatusCode: 200, Config: cfg})
	if ok {
		t.Fatal("a response with no freshness signal and no default duration must not be storable")
	}

	cfg.DefaultCacheDuration = time.Hour
	cfg.DefaultCacheDurationOK = true
	ok = IsStorable(StorabilityInput{Req: req, RespHeader: header, StatusCode: 200, Config: cfg})
	if !ok {
		t.Fatal("a configured default cache duration should make an otherwise-signal-less response storable")
	}
}

func TestIsStorableRejectsContentTypeNotAllowed(t *testing.T) {
	req := newGetRequest(t, nil)
	header := make(http.Header)
	header.Set("Cache-Control", "max-age=60")
	header.Set("Content-Type", "application/octet-stream")

	cfg := DefaultConfig()
	cfg.CacheableContentTypes = []string{"text/*", "application/json"}

	ok := IsStorable(StorabilityInput{Req: req, RespHeader: header, StatusCode: 200, Config: cfg})
	if ok {
		t.Fatal("content type outside the allowlist must not be storable")
	}
}

func durationPtr(d time.Duration) *time.Duration { return &d }
