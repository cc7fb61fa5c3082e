package httpcache

import "net/http"

// VaryMatches validates a stored record's Vary bucket against the incoming
// request, per spec.md §4.3's "stored response's own Vary set is validated
// at read time against the request's corresponding header values". The Key
// Builder only partitions the namespace into likely buckets; this function
// makes the final admit/reject call.
func VaryMatches(r *Record, req *http.Request) bool {
	for _, name := range r.VaryHeaderNames {
		canonical := http.CanonicalHeaderKey(name)
		reqValue := normalizeHeaderValues(req.Header.Values(canonical))
		storedValue := r.VaryHeaderValues[name]
		if reqValue != storedValue {
			return false
		}
	}
	return true
}

// CaptureVaryValues snapshots the request header values named by varyNames,
// normalized the same way BuildKey normalizes them, for storage alongside a
// new record so a later VaryMatches call can compare against them.
func CaptureVaryValues(req *http.Request, varyNames []string) map[string]string {
	if len(varyNames) == 0 {
		return nil
	}
	values := make(map[string]string, len(varyNames))
	for _, name := range varyNames {
		canonical := http.CanonicalHeaderKey(name)
		values[name] = normalizeHeaderValues(req.Header.Values(canonical))
	}
	return values
}
