package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// GzipCompressor compresses payloads with compress/gzip.
type GzipCompressor struct {
	level int
}

// NewGzip returns a GzipCompressor at level (gzip.DefaultCompression if 0).
func NewGzip(level int) (*GzipCompressor, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("compress: invalid gzip level %d", level)
	}
	return &GzipCompressor{level: level}, nil
}

// Algorithm identifies this compressor.
func (c *GzipCompressor) Algorithm() Algorithm { return Gzip }

// Compress gzips data at the configured level.
func (c *GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func (c *GzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()

	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return decompressed, nil
}
