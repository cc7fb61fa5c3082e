package compress

import (
	"fmt"

	"github.com/golang/snappy"
)

// SnappyCompressor compresses payloads with github.com/golang/snappy.
type SnappyCompressor struct{}

// NewSnappy returns a SnappyCompressor.
func NewSnappy() *SnappyCompressor { return &SnappyCompressor{} }

// Algorithm identifies this compressor.
func (c *SnappyCompressor) Algorithm() Algorithm { return Snappy }

// Compress snappy-encodes data.
func (c *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

// Decompress reverses Compress.
func (c *SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	return decompressed, nil
}
