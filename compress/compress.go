// Package compress applies gzip, brotli, or snappy compression to cached
// response bodies, adapted from a teacher cache wrapper into a pipeline
// stage that runs before bytes reach content storage: a single marker byte
// is prefixed to the compressed payload so Decompress can recognize the
// algorithm (or the absence of compression) without external metadata.
package compress

import "fmt"

// Algorithm identifies a supported compression scheme.
type Algorithm int

const (
	// None stores content uncompressed.
	None Algorithm = iota
	// Gzip uses compress/gzip (good balance of ratio and speed).
	Gzip
	// Brotli uses andybalholm/brotli (best ratio, slower).
	Brotli
	// Snappy uses golang/snappy (fastest, lower ratio).
	Snappy
)

// String returns the algorithm's name.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Compressor compresses and decompresses byte slices with one algorithm.
type Compressor interface {
	Algorithm() Algorithm
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// marker is the first byte of an encoded payload: Algorithm(marker-1)
// identifies the compressor that produced it, so marker(None) (1) means
// uncompressed.
func marker(a Algorithm) byte { return byte(a + 1) }

// Registry selects a Compressor by Algorithm and encodes/decodes the
// marker-byte envelope around compressed payloads.
type Registry struct {
	compressors map[Algorithm]Compressor
}

// NewRegistry builds a Registry from the given compressors, keyed by their
// own Algorithm().
func NewRegistry(compressors ...Compressor) *Registry {
	r := &Registry{compressors: make(map[Algorithm]Compressor, len(compressors))}
	for _, c := range compressors {
		r.compressors[c.Algorithm()] = c
	}
	return r
}

// Encode compresses data with algorithm and prefixes the marker byte. If
// algorithm is None, data is stored as-is behind the uncompressed marker.
func (r *Registry) Encode(algorithm Algorithm, data []byte) ([]byte, error) {
	if algorithm == None {
		out := make([]byte, len(data)+1)
		out[0] = marker(None)
		copy(out[1:], data)
		return out, nil
	}

	c, ok := r.compressors[algorithm]
	if !ok {
		return nil, fmt.Errorf("compress: no compressor registered for %s", algorithm)
	}

	compressed, err := c.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("compress: %s: %w", algorithm, err)
	}

	out := make([]byte, len(compressed)+1)
	out[0] = marker(algorithm)
	copy(out[1:], compressed)
	return out, nil
}

// Decode reads the marker byte from data and returns the decompressed
// payload, dispatching to the registered compressor for the algorithm the
// marker names. A payload whose compressor is not registered is an error.
func (r *Registry) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	algorithm := Algorithm(data[0] - 1)
	payload := data[1:]

	if algorithm == None {
		return payload, nil
	}

	c, ok := r.compressors[algorithm]
	if !ok {
		return nil, fmt.Errorf("compress: no compressor registered to decode %s", algorithm)
	}

	decompressed, err := c.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("decompress: %s: %w", algorithm, err)
	}
	return decompressed, nil
}
