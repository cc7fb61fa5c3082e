package httpcache

import (
	"net/http"
	"testing"
	"time"
)

func headerWithCacheControl(value string) http.Header {
	h := make(http.Header)
	h.Set("Cache-Control", value)
	return h
}

func TestParseCacheControlBasicDirectives(t *testing.T) {
	cc := ParseCacheControl(headerWithCacheControl("no-cache, must-revalidate, public"))
	if !cc.NoCache || !cc.MustRevalidate || !cc.Public {
		t.Fatalf("unexpected parse result: %+v", cc)
	}
}

func TestParseCacheControlMaxAge(t *testing.T) {
	cc := ParseCacheControl(headerWithCacheControl("max-age=120"))
	if cc.MaxAge == nil || *cc.MaxAge != 120*time.Second {
		t.Fatalf("unexpected MaxAge: %+v", cc.MaxAge)
	}
}

func TestParseCacheControlDuplicateKeepsFirst(t *testing.T) {
	cc := ParseCacheControl(headerWithCacheControl("max-age=60, max-age=999"))
	if cc.MaxAge == nil || *cc.MaxAge != 60*time.Second {
		t.Fatalf("expected first max-age value to win, got %+v", cc.MaxAge)
	}
}

func TestParseCacheControlNegativeSaturatesToZero(t *testing.T) {
	cc := ParseCacheControl(headerWithCacheControl("max-age=-5"))
	if cc.MaxAge == nil || *cc.MaxAge != 0 {
		t.Fatalf("expected negative max-age to saturate to zero, got %+v", cc.MaxAge)
	}
}

func TestParseCacheControlFloatRejected(t *testing.T) {
	cc := ParseCacheControl(headerWithCacheControl("max-age=1.5"))
	if cc.MaxAge != nil {
		t.Fatalf("expected float max-age to be dropped, got %+v", cc.MaxAge)
	}
}

func TestParseCacheControlMaxStaleUnbounded(t *testing.T) {
	cc := ParseCacheControl(headerWithCacheControl("max-stale"))
	if !cc.MaxStaleUnbounded || cc.MaxStale != nil {
		t.Fatalf("expected bare max-stale to set MaxStaleUnbounded, got %+v", cc)
	}
}

func TestParseCacheControlPragmaFallback(t *testing.T) {
	h := make(http.Header)
	h.Set("Pragma", "no-cache")
	cc := ParseCacheControl(h)
	if !cc.NoCache {
		t.Fatal("expected bare Pragma: no-cache to set NoCache when Cache-Control is absent")
	}
}

func TestParseCacheControlPragmaIgnoredWhenCacheControlPresent(t *testing.T) {
	h := make(http.Header)
	h.Set("Pragma", "no-cache")
	h.Set("Cache-Control", "max-age=60")
	cc := ParseCacheControl(h)
	if cc.NoCache {
		t.Fatal("expected Pragma to be ignored once Cache-Control's own no-cache directive is absent but the header is present")
	}
}

func TestParseCacheControlConflictPublicPrivate(t *testing.T) {
	cc := ParseCacheControl(headerWithCacheControl("public, private"))
	if cc.Public || !cc.Private {
		t.Fatalf("expected private to win over public, got %+v", cc)
	}
}

func TestCanStoreRejectsNoStore(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	respCC := ParseCacheControl(headerWithCacheControl("no-store"))
	if CanStore(req, CacheControl{}, respCC, ModePrivate, 200) {
		t.Fatal("expected no-store response to be unstorable")
	}
}

func TestCanStoreRejectsPrivateInSharedCache(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	respCC := ParseCacheControl(headerWithCacheControl("private"))
	if CanStore(req, CacheControl{}, respCC, ModeShared, 200) {
		t.Fatal("expected private response to be unstorable in a shared cache")
	}
	if !CanStore(req, CacheControl{}, respCC, ModePrivate, 200) {
		t.Fatal("expected private response to be storable in a private cache")
	}
}

func TestCanStoreRejectsAuthorizationInSharedCacheWithoutOverride(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.Header.Set("Authorization", "Bearer token")

	if CanStore(req, CacheControl{}, CacheControl{}, ModeShared, 200) {
		t.Fatal("expected authenticated request response to be unstorable in a shared cache without public/must-revalidate/s-maxage")
	}

	respCC := ParseCacheControl(headerWithCacheControl("public"))
	if !CanStore(req, CacheControl{}, respCC, ModeShared, 200) {
		t.Fatal("expected public directive to permit storing an authenticated response in a shared cache")
	}
}

func TestCanStoreRejectsAuthorizationInPrivateCacheWithoutPublicOrPrivate(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.Header.Set("Authorization", "Bearer token")

	respCC := ParseCacheControl(headerWithCacheControl("max-age=3600"))
	if CanStore(req, CacheControl{}, respCC, ModePrivate, 200) {
		t.Fatal("expected an authenticated request response without public or private to be unstorable even in a private cache")
	}

	publicCC := ParseCacheControl(headerWithCacheControl("public"))
	if !CanStore(req, CacheControl{}, publicCC, ModePrivate, 200) {
		t.Fatal("expected public directive to permit storing an authenticated response in a private cache")
	}

	privateCC := ParseCacheControl(headerWithCacheControl("private"))
	if !CanStore(req, CacheControl{}, privateCC, ModePrivate, 200) {
		t.Fatal("expected private directive to permit storing an authenticated response in a private cache")
	}
}

func TestCanStoreMustUnderstandOverridesNoStoreForUnderstoodStatus(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	respCC := ParseCacheControl(headerWithCacheControl("must-understand, no-store"))
	if !CanStore(req, CacheControl{}, respCC, ModePrivate, 200) {
		t.Fatal("expected must-understand with an understood status to permit storing despite no-store")
	}
}

func TestCanStoreMustUnderstandRejectsUnunderstoodStatus(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	respCC := ParseCacheControl(headerWithCacheControl("must-understand"))
	if CanStore(req, CacheControl{}, respCC, ModePrivate, 599) {
		t.Fatal("expected must-understand with an unrecognized status to be unstorable")
	}
}
