package httpcache

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CacheControl is the parsed, typed form of a Cache-Control header (RFC 9111
// Section 5.2). Unlike a bag of strings, each directive has its own field so
// downstream components never re-parse or re-validate the header.
type CacheControl struct {
	NoStore              bool
	NoCache              bool
	Private              bool
	Public               bool
	MustRevalidate       bool
	MustUnderstand       bool
	OnlyIfCached         bool
	MaxAge               *time.Duration
	MinFresh             *time.Duration
	MaxStale             *time.Duration
	MaxStaleUnbounded    bool
	SharedMaxAge         *time.Duration
	StaleWhileRevalidate *time.Duration
	StaleIfError         *time.Duration
}

const (
	directiveNoStore              = "no-store"
	directiveNoCache              = "no-cache"
	directivePrivate              = "private"
	directivePublic               = "public"
	directiveMustRevalidate       = "must-revalidate"
	directiveMustUnderstand       = "must-understand"
	directiveOnlyIfCached         = "only-if-cached"
	directiveMaxAge               = "max-age"
	directiveMinFresh             = "min-fresh"
	directiveMaxStale             = "max-stale"
	directiveSharedMaxAge         = "s-maxage"
	directiveStaleWhileRevalidate = "stale-while-revalidate"
	directiveStaleIfError         = "stale-if-error"

	logDuplicateDirective   = "duplicate Cache-Control directive detected, using first value"
	logConflictingDirective = "conflicting Cache-Control directives detected"
	logInvalidDirective     = "invalid Cache-Control directive value"
)

// understoodStatusCodes lists the status codes this cache comprehends for the
// purposes of the must-understand directive (RFC 9111 Section 5.2.2.3).
var understoodStatusCodes = map[int]bool{
	200: true, 203: true, 204: true, 206: true,
	300: true, 301: true, 404: true, 405: true,
	410: true, 414: true, 501: true,
}

// ParseCacheControl parses the Cache-Control header into a typed CacheControl.
// Duplicate directives keep their first occurrence; malformed values degrade
// to absent rather than aborting the parse, matching the permissive posture
// RFC 9111 Section 4.2.1 expects from caches.
func ParseCacheControl(headers http.Header) CacheControl {
	var cc CacheControl
	seen := make(map[string]bool)
	log := GetLogger()

	for _, part := range strings.Split(headers.Get("Cache-Control"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var name, value string
		if idx := strings.IndexByte(part, '='); idx >= 0 {
			name = strings.TrimSpace(part[:idx])
			value = strings.Trim(strings.TrimSpace(part[idx+1:]), `"`)
		} else {
			name = part
		}
		name = strings.ToLower(name)

		if seen[name] {
			log.Debug(logDuplicateDirective, "directive", name, "ignored_value", value)
			continue
		}
		seen[name] = true

		switch name {
		case directiveNoStore:
			cc.NoStore = true
		case directiveNoCache:
			cc.NoCache = true
		case directivePrivate:
			cc.Private = true
		case directivePublic:
			cc.Public = true
		case directiveMustRevalidate:
			cc.MustRevalidate = true
		case directiveMustUnderstand:
			cc.MustUnderstand = true
		case directiveOnlyIfCached:
			cc.OnlyIfCached = true
		case directiveMaxAge:
			cc.MaxAge = parseDeltaSeconds(name, value, log)
		case directiveMinFresh:
			cc.MinFresh = parseDeltaSeconds(name, value, log)
		case directiveMaxStale:
			if value == "" {
				cc.MaxStaleUnbounded = true
			} else {
				cc.MaxStale = parseDeltaSeconds(name, value, log)
			}
		case directiveSharedMaxAge:
			cc.SharedMaxAge = parseDeltaSeconds(name, value, log)
		case directiveStaleWhileRevalidate:
			cc.StaleWhileRevalidate = parseDeltaSeconds(name, value, log)
		case directiveStaleIfError:
			cc.StaleIfError = parseDeltaSeconds(name, value, log)
		}
	}

	if pragma := headers.Get("Pragma"); headers.Get("Cache-Control") == "" && strings.Contains(strings.ToLower(pragma), "no-cache") {
		cc.NoCache = true
	}

	detectConflictingDirectives(&cc, log)
	return cc
}

// detectConflictingDirectives resolves directive combinations RFC 9111
// flags as conflicting by keeping the more restrictive one, logging the
// resolution (grounded on the teacher's detectConflictingDirectives).
func detectConflictingDirectives(cc *CacheControl, log *slog.Logger) {
	if cc.Private && cc.Public {
		log.Warn(logConflictingDirective, "conflict", "public + private", "resolution", "private takes precedence")
		cc.Public = false
	}
	if cc.NoStore && cc.MaxAge != nil {
		log.Warn(logConflictingDirective, "conflict", "no-store + max-age", "resolution", "no-store takes precedence")
	}
	if cc.NoStore && cc.MustRevalidate {
		log.Warn(logConflictingDirective, "conflict", "no-store + must-revalidate", "resolution", "no-store takes precedence")
	}
}

// parseDeltaSeconds parses an RFC 9111 delta-seconds value: a non-negative
// decimal integer. Negative values saturate to 0; overflow saturates to the
// largest whole number of seconds a time.Duration can hold; non-numeric or
// float-looking values are dropped.
func parseDeltaSeconds(directive, value string, log *slog.Logger) *time.Duration {
	if value == "" {
		return nil
	}
	if strings.Contains(value, ".") {
		log.Debug(logInvalidDirective, "directive", directive, "value", value, "reason", "float not allowed")
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			n = math.MaxInt64
		} else {
			log.Debug(logInvalidDirective, "directive", directive, "value", value, "reason", "non-numeric")
			return nil
		}
	}
	if n < 0 {
		log.Debug(logInvalidDirective, "directive", directive, "value", value, "reason", "negative", "resolution", "treated as 0")
		n = 0
	}
	if maxSeconds := int64(math.MaxInt64 / time.Second); n > maxSeconds {
		n = maxSeconds
	}
	d := time.Duration(n) * time.Second
	return &d
}

// CanStore determines whether a response may be stored in the cache, per
// RFC 9111 Section 3 and Section 3.5 (authenticated requests) and Section
// 5.2.2.3 (must-understand).
func CanStore(req *http.Request, reqCC, respCC CacheControl, mode Mode, statusCode int) bool {
	log := GetLogger()

	if respCC.MustUnderstand {
		if !understoodStatusCodes[statusCode] {
			return false
		}
	} else {
		if respCC.NoStore || reqCC.NoStore {
			return false
		}
	}

	if mode == ModeShared && req.Header.Get("Authorization") != "" {
		if !respCC.Public && !respCC.MustRevalidate && respCC.SharedMaxAge == nil {
			log.Debug("refusing to store Authorization request in shared cache", "url", req.URL.String())
			return false
		}
	}

	if mode == ModePrivate && req.Header.Get("Authorization") != "" {
		if !respCC.Public && !respCC.Private {
			log.Debug("refusing to store Authorization request without public or private", "url", req.URL.String())
			return false
		}
	}

	if respCC.Private && mode == ModeShared {
		return false
	}

	return true
}
