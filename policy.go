package httpcache

import (
	"mime"
	"net/http"
	"strings"
	"time"
)

// decisionRevalidate is an internal routing signal, not one of the twelve
// stable diagnostic tokens spec.md §6.5 names: it tells the Pipeline to run
// conditional revalidation (§4.7.2), which resolves to one of
// DecisionHitRevalidated, DecisionMissRevalidated, or DecisionHitStaleIfError
// once the origin responds. It must never reach a diagnostic header.
const decisionRevalidate Decision = "revalidate"

// Decide implements the per-request decision procedure of spec.md §4.6,
// given the request, the cached record (nil if absent), the current
// instant, and the active configuration.
func Decide(req *http.Request, cached *Record, now time.Time, cfg Config) Decision {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return DecisionBypassMethod
	}

	if pragmaOnlyNoCache(req.Header) {
		return DecisionBypassPragmaNoCache
	}

	reqCC := ParseCacheControl(req.Header)

	if reqCC.OnlyIfCached {
		if cached != nil && VaryMatches(cached, req) && canServeOnlyIfCached(cached, reqCC, now, cfg.Mode) {
			return DecisionHitOnlyIfCached
		}
		return DecisionMissOnlyIfCached
	}

	if reqCC.NoStore {
		return DecisionBypassNoStore
	}

	mustRevalidateThisRequest := reqCC.NoCache || (reqCC.MaxAge != nil && *reqCC.MaxAge == 0)

	if cached == nil || !VaryMatches(cached, req) {
		return DecisionMiss
	}

	if mustRevalidateThisRequest || cached.NoCacheInResponse {
		return decisionRevalidate
	}

	if IsFresh(cached, reqCC, now, cfg.Mode) {
		return DecisionHitFresh
	}

	if WithinSWR(cached, now, cfg.Mode) {
		return DecisionHitStaleWhileRevalidate
	}

	return decisionRevalidate
}

// canServeOnlyIfCached reports whether a cached record is fresh enough to
// satisfy an only-if-cached request without contacting the origin: either
// genuinely fresh or within its stale-while-revalidate window.
func canServeOnlyIfCached(cached *Record, reqCC CacheControl, now time.Time, mode Mode) bool {
	return IsFresh(cached, reqCC, now, mode) || WithinSWR(cached, now, mode)
}

// pragmaOnlyNoCache reports whether the legacy Pragma: no-cache directive
// applies: RFC 9111 Section 5.4 treats Pragma as relevant only when no
// Cache-Control header is present at all.
func pragmaOnlyNoCache(headers http.Header) bool {
	if headers.Get("Cache-Control") != "" {
		return false
	}
	return strings.Contains(strings.ToLower(headers.Get("Pragma")), "no-cache")
}

// SelectMaxAge implements spec.md §4.6's mode-selected max-age: Shared mode
// prefers shared_max_age (s-maxage) over max-age; Private mode uses max-age
// only, ignoring s-maxage entirely.
func SelectMaxAge(respCC CacheControl, mode Mode) *time.Duration {
	if mode == ModeShared && respCC.SharedMaxAge != nil {
		return respCC.SharedMaxAge
	}
	return respCC.MaxAge
}

// contentTypeAllowed reports whether contentType matches one of patterns,
// each either an exact media type ("application/json") or a "type/*" prefix.
func contentTypeAllowed(contentType string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)
		if strings.HasSuffix(pattern, "/*") {
			if strings.HasPrefix(mediaType, strings.TrimSuffix(pattern, "*")) {
				return true
			}
			continue
		}
		if mediaType == pattern {
			return true
		}
	}
	return false
}

// StorabilityInput carries everything IsStorable needs to evaluate spec.md
// §4.6's storability predicate for a fresh-from-origin response.
type StorabilityInput struct {
	Req           *http.Request
	RespHeader    http.Header
	StatusCode    int
	ContentLength int64
	Config        Config
}

// IsStorable implements spec.md §4.6's ten-step storability predicate. It
// does not itself perform the mode-selected max-age computation persisted
// into the record (see SelectMaxAge) or the invalidate-on-no-store side
// effect (the Pipeline's responsibility); it only answers "may this
// response be stored."
func IsStorable(in StorabilityInput) bool {
	if in.Req.Method != http.MethodGet && in.Req.Method != http.MethodHead {
		return false
	}

	reqCC := ParseCacheControl(in.Req.Header)
	respCC := ParseCacheControl(in.RespHeader)

	if _, wildcard := ParseVary(in.RespHeader); wildcard {
		return false
	}

	if in.Config.MaxCacheableContentSizeOK && in.ContentLength > in.Config.MaxCacheableContentSize {
		return false
	}

	if len(in.Config.CacheableContentTypes) > 0 && !contentTypeAllowed(in.RespHeader.Get("Content-Type"), in.Config.CacheableContentTypes) {
		return false
	}

	if !CanStore(in.Req, reqCC, respCC, in.Config.Mode, in.StatusCode) {
		return false
	}

	if respCC.NoCache {
		_, hasETag := ParseETag(in.RespHeader)
		_, hasLastModified := ParseLastModified(in.RespHeader)
		if !hasETag && !hasLastModified {
			return false
		}
	}

	maxAge := SelectMaxAge(respCC, in.Config.Mode)
	_, hasExpires := ParseExpires(in.RespHeader)
	_, hasLastModified := ParseLastModified(in.RespHeader)

	if (maxAge == nil || *maxAge <= 0) && !hasExpires && !hasLastModified && !in.Config.DefaultCacheDurationOK {
		return false
	}

	return true
}
