package httpcache

import "time"

// HeuristicPercent is the fraction of the time since Last-Modified used as a
// heuristic freshness lifetime when neither max-age nor Expires is present
// (RFC 9111 Section 4.2.2 recommends roughly 10%).
const HeuristicPercent = 0.10

// CurrentAge implements spec.md's current_age formula:
//
//	max(age_on_arrival, now_of_store − origin_date) + (now − cached_at)
//
// with both terms floored at zero. When OriginDate is absent, only the
// resident-time term applies.
func CurrentAge(r *Record, now time.Time) time.Duration {
	var initial time.Duration
	if r.AgeOnArrival != nil {
		initial = *r.AgeOnArrival
	}
	if r.OriginDate != nil {
		if sinceOrigin := maxDuration0(r.CachedAt.Sub(*r.OriginDate)); sinceOrigin > initial {
			initial = sinceOrigin
		}
	}
	resident := maxDuration0(now.Sub(r.CachedAt))
	return initial + resident
}

// FreshnessLifetime implements spec.md's freshness_lifetime selection order:
// mode-selected max-age, then Expires, then a heuristic derived from
// Last-Modified. ok is false when none of these apply, meaning the response
// is not freshness-bounded by the engine.
func FreshnessLifetime(r *Record, mode Mode) (lifetime time.Duration, ok bool) {
	if r.MaxAge != nil && *r.MaxAge > 0 {
		return *r.MaxAge, true
	}
	if r.Expires != nil {
		base := r.CachedAt
		if r.OriginDate != nil {
			base = *r.OriginDate
		}
		return maxDuration0(r.Expires.Sub(base)), true
	}
	if r.LastModified != nil && r.CachedAt.After(*r.LastModified) {
		return time.Duration(float64(r.CachedAt.Sub(*r.LastModified)) * HeuristicPercent), true
	}
	return 0, false
}

// IsFresh implements spec.md's is_fresh predicate, honoring the request's
// min-fresh directive when present.
func IsFresh(r *Record, reqCC CacheControl, now time.Time, mode Mode) bool {
	lifetime, ok := FreshnessLifetime(r, mode)
	if !ok {
		return false
	}
	age := CurrentAge(r, now)
	if age >= lifetime {
		return false
	}
	if reqCC.MinFresh != nil {
		remaining := lifetime - age
		if remaining < *reqCC.MinFresh {
			return false
		}
	}
	return true
}

// WithinSWR implements spec.md's within_swr predicate for the RFC 5861
// stale-while-revalidate extension.
func WithinSWR(r *Record, now time.Time, mode Mode) bool {
	if r.StaleWhileRevalidate == nil {
		return false
	}
	lifetime, ok := FreshnessLifetime(r, mode)
	if !ok {
		return false
	}
	overage := CurrentAge(r, now) - lifetime
	return overage <= *r.StaleWhileRevalidate
}

// WithinSIE implements spec.md's within_sie predicate for the RFC 5861
// stale-if-error extension. A record marked must-revalidate never qualifies.
func WithinSIE(r *Record, now time.Time, mode Mode) bool {
	if r.StaleIfError == nil || r.MustRevalidate {
		return false
	}
	lifetime, ok := FreshnessLifetime(r, mode)
	if !ok {
		return false
	}
	overage := CurrentAge(r, now) - lifetime
	return overage <= *r.StaleIfError
}
