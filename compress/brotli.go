package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// BrotliCompressor compresses payloads with andybalholm/brotli.
type BrotliCompressor struct {
	level int
}

// NewBrotli returns a BrotliCompressor at level (0-11, default 6).
func NewBrotli(level int) (*BrotliCompressor, error) {
	if level == 0 {
		level = 6
	}
	if level < 0 || level > 11 {
		return nil, fmt.Errorf("compress: invalid brotli level %d", level)
	}
	return &BrotliCompressor{level: level}, nil
}

// Algorithm identifies this compressor.
func (c *BrotliCompressor) Algorithm() Algorithm { return Brotli }

// Compress brotli-compresses data at the configured level.
func (c *BrotliCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.level)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func (c *BrotliCompressor) Decompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("brotli read: %w", err)
	}
	return decompressed, nil
}
