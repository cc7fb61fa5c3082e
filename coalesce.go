package httpcache

import (
	"net/http"

	"golang.org/x/sync/singleflight"
)

// requestCoalescer deduplicates concurrent origin fetches for the same
// cache key (spec.md §4.7.4, invariant I7): at most one outstanding origin
// call per key runs at a time; waiters share its outcome, but each gets an
// independent, non-aliased copy of the response body (cloneResponseWithBody
// in transport.go), per spec.md's preference for semantically-equivalent
// rather than literally-shared responses. Grounded on the same
// golang.org/x/sync/singleflight idiom as store.Coalescing.
type requestCoalescer struct {
	group singleflight.Group
}

// fetchResult is the snapshot singleflight hands to every waiter for one
// leader invocation of fn.
type fetchResult struct {
	resp *http.Response
	body []byte
}

// Do runs fn at most once among concurrent callers sharing key, returning
// its response and ingested body to every waiter.
func (c *requestCoalescer) Do(key string, fn func() (*http.Response, []byte, error)) (*http.Response, []byte, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		resp, body, fnErr := fn()
		if fnErr != nil {
			return nil, fnErr
		}
		return &fetchResult{resp: resp, body: body}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	result := v.(*fetchResult)
	return result.resp, result.body, nil
}
