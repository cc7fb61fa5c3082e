package httpcache

import (
	"bytes"
	"encoding/gob"
	"net/http"
	"time"
)

// Mode selects between private-cache and shared-cache storability rules
// (RFC 9111 Section 3, "Storing Responses in Caches").
type Mode int

const (
	// ModePrivate is suitable for a single user's cache (a browser or an
	// API client). Private caches may store responses marked "private".
	ModePrivate Mode = iota
	// ModeShared is suitable for a proxy or CDN serving multiple users.
	// Shared caches must not store "private" responses, and responses to
	// requests carrying Authorization require an explicit public,
	// must-revalidate, or s-maxage directive to be stored.
	ModeShared
)

// Record is the response metadata record persisted for a single request
// fingerprint (method + URI + vary-header values). Content bytes are never
// embedded; Record only references them by digest, so multiple records may
// share one content entry (deduplication) and content can be evicted
// independently of metadata.
type Record struct {
	Status          int
	ResponseHeaders http.Header
	ContentHeaders  http.Header

	ContentDigest [32]byte
	ContentLength int64
	IsCompressed  bool

	CachedAt     time.Time
	OriginDate   *time.Time
	Expires      *time.Time
	AgeOnArrival *time.Duration
	MaxAge       *time.Duration

	ETag         string
	LastModified *time.Time

	VaryHeaderNames  []string
	VaryHeaderValues map[string]string

	StaleWhileRevalidate *time.Duration
	StaleIfError         *time.Duration

	MustRevalidate    bool
	NoCacheInResponse bool
}

// gobRecord mirrors Record but only carries the header maps as
// map[string][]string, since http.Header already is that type and gob
// encodes it natively; kept as a distinct type in case the wire
// representation ever needs to diverge from the in-memory one.
type gobRecord Record

// Marshal serializes the record with encoding/gob. The format is stable
// within one process lifetime (the contract the Metadata Store requires)
// but is not guaranteed across binary versions.
func (r *Record) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode((*gobRecord)(r)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalRecord decodes bytes previously produced by Record.Marshal.
func UnmarshalRecord(data []byte) (*Record, error) {
	var gr gobRecord
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&gr); err != nil {
		return nil, err
	}
	r := Record(gr)
	return &r, nil
}

// Clone returns a deep-enough copy of the record suitable for mutating in
// place during a 304 refresh (§4.7.2) without aliasing the stored headers.
func (r *Record) Clone() *Record {
	c := *r
	c.ResponseHeaders = r.ResponseHeaders.Clone()
	c.ContentHeaders = r.ContentHeaders.Clone()
	if len(r.VaryHeaderNames) > 0 {
		c.VaryHeaderNames = append([]string(nil), r.VaryHeaderNames...)
	}
	if r.VaryHeaderValues != nil {
		c.VaryHeaderValues = make(map[string]string, len(r.VaryHeaderValues))
		for k, v := range r.VaryHeaderValues {
			c.VaryHeaderValues[k] = v
		}
	}
	return &c
}
