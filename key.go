package httpcache

import (
	"net/http"
	"regexp"
	"strings"
)

// KeyGenerator builds a cache key for a request. A caller-supplied
// KeyGenerator replaces BuildKey entirely and is treated as opaque.
type KeyGenerator func(req *http.Request) string

var whitespaceRun = regexp.MustCompile(`\s+`)

// BuildKey implements spec.md's Key Builder (C3): a primary key of
// "method:absolute_uri", extended with a canonical encoding of the
// configured vary-header set observed on the request.
//
// For each configured name (order-stable), emits "name:normalized_value"
// where normalization lowercases the name, trims each value, collapses
// internal whitespace, and joins multiple values with a comma. A missing
// header emits an empty value.
func BuildKey(req *http.Request, varyHeaders []string) string {
	key := req.Method + ":" + req.URL.String()
	if len(varyHeaders) == 0 {
		return key
	}

	var b strings.Builder
	b.WriteString(key)
	for _, name := range varyHeaders {
		canonical := http.CanonicalHeaderKey(name)
		values := req.Header.Values(canonical)
		b.WriteByte('|')
		b.WriteString(strings.ToLower(name))
		b.WriteByte(':')
		b.WriteString(normalizeHeaderValues(values))
	}
	return b.String()
}

// normalizeHeaderValues trims each value, collapses internal whitespace, and
// joins with a comma, per the Key Builder's normalization rule.
func normalizeHeaderValues(values []string) string {
	if len(values) == 0 {
		return ""
	}
	normalized := make([]string, len(values))
	for i, v := range values {
		normalized[i] = whitespaceRun.ReplaceAllString(strings.TrimSpace(v), " ")
	}
	return strings.Join(normalized, ",")
}
