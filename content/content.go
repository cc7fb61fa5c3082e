// Package content implements a content-addressed body store keyed by the
// SHA-256 digest of the (possibly compressed) bytes, with chunked,
// size-bounded ingestion so a single request can't hold an unbounded
// transient buffer in memory.
package content

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/polarcache/httpcache/store"
)

// ChunkSize bounds the size of each read performed while ingesting a body,
// per spec.md §4.4's "recommended chunk size ≤ 80 KiB".
const ChunkSize = 80 * 1024

// ErrTooLarge is returned by Ingest when the body exceeds the configured
// maximum and the accumulated bytes have been returned to the caller
// instead of being stored.
var ErrTooLarge = errors.New("content: body exceeds maximum cacheable size")

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Store is the content-addressed body store (C4). It wraps a generic
// key/value backing store; keys are hex-encoded SHA-256 digests, optionally
// prefixed.
type Store struct {
	backing store.Store
	prefix  string
}

// New wraps backing as a content store, namespacing keys under prefix.
func New(backing store.Store, prefix string) *Store {
	return &Store{backing: backing, prefix: prefix}
}

func (s *Store) keyFor(digest [32]byte) string {
	return s.prefix + hex.EncodeToString(digest[:])
}

// Put computes the SHA-256 digest of data, writes it under the derived key
// (sharing storage with any prior entry of identical bytes), and returns the
// digest.
func (s *Store) Put(ctx context.Context, data []byte) (digest [32]byte, err error) {
	digest = sha256.Sum256(data)
	if err := s.backing.Set(ctx, s.keyFor(digest), data); err != nil {
		return digest, fmt.Errorf("content: put: %w", err)
	}
	return digest, nil
}

// Get returns the bytes stored under digest, or ok=false if absent.
func (s *Store) Get(ctx context.Context, digest [32]byte) (data []byte, ok bool, err error) {
	v, ok, err := s.backing.Get(ctx, s.keyFor(digest))
	if err != nil || !ok {
		return nil, ok, err
	}
	return v, true, nil
}

// Remove deletes the entry stored under digest.
func (s *Store) Remove(ctx context.Context, digest [32]byte) error {
	return s.backing.Remove(ctx, s.keyFor(digest))
}

// Ingest reads r in ChunkSize chunks, bounding the transient buffer, and
// returns the fully-read bytes. If maxSize >= 0 and the accumulated size
// exceeds it mid-read, Ingest stops reading, returns the bytes read so far
// alongside ErrTooLarge so the caller can still serve them to its own
// response body, and performs no Put.
func Ingest(r io.Reader, maxSize int64) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	chunk := make([]byte, ChunkSize)
	var total int64
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			buf.Write(chunk[:n])
			if maxSize >= 0 && total > maxSize {
				out := make([]byte, buf.Len())
				copy(out, buf.Bytes())
				return out, ErrTooLarge
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("content: ingest: %w", err)
		}
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
