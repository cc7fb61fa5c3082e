// Package httpcache implements an RFC 9111 (obsoleting RFC 7234) compliant
// HTTP caching interceptor, with the RFC 5861 stale-while-revalidate and
// stale-if-error extensions. It sits between a caller and a lower
// http.RoundTripper, transparently storing and serving responses so that
// identical subsequent requests can be satisfied without contacting the
// origin, or satisfied cheaply after a conditional revalidation.
//
// Response bodies and metadata are stored separately: body bytes live in a
// content-addressed store keyed by their SHA-256 digest (package content),
// metadata records referencing those digests live in a Vary-aware metadata
// store, and both are backed by a pluggable, optionally multi-tiered
// key/value store (package store). This separation lets identical bodies
// returned under different URIs or vary-buckets share storage, and lets
// bodies be compressed (package compress) independently of metadata
// freshness bookkeeping.
//
// By default the cache operates in Private mode (suitable for a single
// user's client, e.g. browsers or API SDKs). ModeShared enforces stricter
// proxy/CDN storability rules, notably around the Authorization header and
// the private/s-maxage directives.
package httpcache
