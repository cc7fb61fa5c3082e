package compress

import (
	"bytes"
	"strings"
	"testing"
)

func allCompressors(t *testing.T) []Compressor {
	t.Helper()

	gz, err := NewGzip(0)
	if err != nil {
		t.Fatalf("NewGzip: %v", err)
	}
	br, err := NewBrotli(0)
	if err != nil {
		t.Fatalf("NewBrotli: %v", err)
	}
	return []Compressor{gz, br, NewSnappy()}
}

func TestRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 200))

	for _, c := range allCompressors(t) {
		t.Run(c.Algorithm().String(), func(t *testing.T) {
			compressed, err := c.Compress(payload)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if len(compressed) >= len(payload) {
				t.Errorf("expected compression to shrink a repetitive payload, got %d >= %d", len(compressed), len(payload))
			}

			decompressed, err := c.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(decompressed, payload) {
				t.Errorf("round trip mismatch")
			}
		})
	}
}

func TestRegistryEncodeDecode(t *testing.T) {
	payload := []byte(strings.Repeat("ABCDEFG", 100))
	r := NewRegistry(allCompressors(t)...)

	for _, algo := range []Algorithm{None, Gzip, Brotli, Snappy} {
		t.Run(algo.String(), func(t *testing.T) {
			encoded, err := r.Encode(algo, payload)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if algo != None && len(encoded) >= len(payload) {
				t.Errorf("expected %s encoding to shrink payload", algo)
			}

			decoded, err := r.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(decoded, payload) {
				t.Errorf("decoded payload mismatch for %s", algo)
			}
		})
	}
}

func TestRegistryDecodeUnregisteredAlgorithm(t *testing.T) {
	gz, err := NewGzip(0)
	if err != nil {
		t.Fatalf("NewGzip: %v", err)
	}

	writer := NewRegistry(NewSnappy())
	encoded, err := writer.Encode(Snappy, []byte("hello"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	reader := NewRegistry(gz)
	if _, err := reader.Decode(encoded); err == nil {
		t.Fatal("expected error decoding an algorithm the registry has no compressor for")
	}
}

func TestAlgorithmString(t *testing.T) {
	cases := map[Algorithm]string{
		None:          "none",
		Gzip:          "gzip",
		Brotli:        "brotli",
		Snappy:        "snappy",
		Algorithm(99): "unknown",
	}
	for algo, want := range cases {
		if got := algo.String(); got != want {
			t.Errorf("Algorithm(%d).String() = %q, want %q", int(algo), got, want)
		}
	}
}
