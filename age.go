package httpcache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseDate parses the Date header into an absolute instant. Absence or an
// unparseable value is reported via ok=false rather than an error, matching
// spec's "unparseable values are absent" failure mode.
func ParseDate(headers http.Header) (t time.Time, ok bool) {
	return parseHTTPDate(headers.Get("Date"))
}

// ParseExpires parses the Expires header.
func ParseExpires(headers http.Header) (t time.Time, ok bool) {
	return parseHTTPDate(headers.Get("Expires"))
}

// ParseLastModified parses the Last-Modified header.
func ParseLastModified(headers http.Header) (t time.Time, ok bool) {
	return parseHTTPDate(headers.Get("Last-Modified"))
}

func parseHTTPDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseAge parses the Age response header (RFC 9111 Section 5.1). Multiple
// occurrences use the first value. A negative or non-numeric value is
// reported as absent.
func ParseAge(headers http.Header) (age time.Duration, ok bool) {
	values := headers.Values("Age")
	if len(values) == 0 {
		return 0, false
	}
	if len(values) > 1 {
		GetLogger().Debug("multiple Age headers detected, using first value", "count", len(values))
	}
	n, err := strconv.ParseInt(strings.TrimSpace(values[0]), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// ParseETag returns the ETag header verbatim, including its weak/strong
// indicator ("W/" prefix); the token is treated as opaque everywhere else.
func ParseETag(headers http.Header) (etag string, ok bool) {
	v := headers.Get("ETag")
	return v, v != ""
}

// ParseVary returns the set of trimmed, case-folded header names named by
// the Vary response header, or wildcard=true if any listed element is "*"
// (RFC 9111 Section 4.1, a Vary: * response is never storable).
func ParseVary(headers http.Header) (names []string, wildcard bool) {
	v := headers.Get("Vary")
	if v == "" {
		return nil, false
	}
	for _, part := range strings.Split(v, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if name == "*" {
			return nil, true
		}
		names = append(names, name)
	}
	return names, false
}

// maxDuration0 floors d at zero, mirroring the "floored at zero" wording
// used throughout spec.md's freshness formulas.
func maxDuration0(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// formatAgeHeader renders a duration as the integer-seconds form the Age
// response header requires.
func formatAgeHeader(age time.Duration) string {
	seconds := int64(age.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatInt(seconds, 10)
}
