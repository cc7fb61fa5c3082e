package httpcache

import (
	"fmt"
	"net/http"
	"time"

	"github.com/polarcache/httpcache/metrics"
	"github.com/polarcache/httpcache/resilience"
	"github.com/polarcache/httpcache/security"
)

// defaultCompressibleContentTypes is the built-in CompressibleContentTypes
// allowlist (spec.md §6.4).
var defaultCompressibleContentTypes = []string{
	"text/*", "application/json", "application/xml", "application/javascript", "application/xhtml+xml",
}

// defaultVaryHeaders is the built-in VaryHeaders set folded into the cache
// key when no CacheKeyGenerator is configured.
var defaultVaryHeaders = []string{"Accept", "Accept-Encoding", "Accept-Language", "User-Agent"}

// Config holds the Transport's recognized options (spec.md §6.4). The zero
// value selects Private mode with no content-size cap, no compression and no
// default cache duration; DefaultConfig supplies the 10 MiB cap and the other
// defaults.
type Config struct {
	Mode Mode

	MaxCacheableContentSize   int64
	MaxCacheableContentSizeOK bool

	DefaultCacheDuration   time.Duration
	DefaultCacheDurationOK bool

	HeuristicFreshnessPercent float64

	CompressionThreshold   int
	CompressionThresholdOK bool

	CompressibleContentTypes []string
	CacheableContentTypes    []string

	VaryHeaders      []string
	CacheKeyGenerator KeyGenerator

	IncludeDiagnosticHeaders bool
	ContentKeyPrefix         string
}

// DefaultConfig returns the Config reflecting spec.md §6.4's stated defaults.
func DefaultConfig() Config {
	return Config{
		Mode:                      ModePrivate,
		MaxCacheableContentSize:   10 * 1024 * 1024,
		MaxCacheableContentSizeOK: true,
		HeuristicFreshnessPercent: HeuristicPercent,
		CompressionThreshold:      1024,
		CompressionThresholdOK:    true,
		CompressibleContentTypes:  append([]string(nil), defaultCompressibleContentTypes...),
		VaryHeaders:               append([]string(nil), defaultVaryHeaders...),
	}
}

// Option configures a Transport at construction time.
type Option func(*Transport) error

// WithMode selects Private or Shared storability rules (§4.6).
func WithMode(mode Mode) Option {
	return func(t *Transport) error {
		t.config.Mode = mode
		return nil
	}
}

// WithMaxCacheableContentSize sets the upper bound on stored body size. A
// negative size disables the cap.
func WithMaxCacheableContentSize(size int64) Option {
	return func(t *Transport) error {
		if size < 0 {
			t.config.MaxCacheableContentSizeOK = false
			return nil
		}
		t.config.MaxCacheableContentSize = size
		t.config.MaxCacheableContentSizeOK = true
		return nil
	}
}

// WithDefaultCacheDuration sets the fallback freshness lifetime used when a
// response omits all freshness signals.
func WithDefaultCacheDuration(d time.Duration) Option {
	return func(t *Transport) error {
		t.config.DefaultCacheDuration = d
		t.config.DefaultCacheDurationOK = true
		return nil
	}
}

// WithHeuristicFreshnessPercent records pct in Config.HeuristicFreshnessPercent.
// The heuristic freshness lifetime (FreshnessLifetime) does not read this
// field; it always multiplies (cached_at − last_modified) by HeuristicPercent.
func WithHeuristicFreshnessPercent(pct float64) Option {
	return func(t *Transport) error {
		if pct < 0 {
			return fmt.Errorf("httpcache: heuristic freshness percent must be non-negative")
		}
		t.config.HeuristicFreshnessPercent = pct
		return nil
	}
}

// WithCompressionThreshold sets the minimum body size that triggers storage
// compression. A negative threshold disables compression.
func WithCompressionThreshold(bytes int) Option {
	return func(t *Transport) error {
		if bytes < 0 {
			t.config.CompressionThresholdOK = false
			return nil
		}
		t.config.CompressionThreshold = bytes
		t.config.CompressionThresholdOK = true
		return nil
	}
}

// WithCompressibleContentTypes overrides the media-type allowlist eligible
// for storage compression.
func WithCompressibleContentTypes(types []string) Option {
	return func(t *Transport) error {
		t.config.CompressibleContentTypes = types
		return nil
	}
}

// WithCacheableContentTypes sets a media-type allowlist for caching at all.
// Unset (the default) allows all content types.
func WithCacheableContentTypes(types []string) Option {
	return func(t *Transport) error {
		t.config.CacheableContentTypes = types
		return nil
	}
}

// WithVaryHeaders overrides the headers folded into the cache key in the
// absence of a custom CacheKeyGenerator.
func WithVaryHeaders(headers []string) Option {
	return func(t *Transport) error {
		t.config.VaryHeaders = headers
		return nil
	}
}

// WithCacheKeyGenerator installs an opaque replacement for the default Key
// Builder (§4.3).
func WithCacheKeyGenerator(gen KeyGenerator) Option {
	return func(t *Transport) error {
		t.config.CacheKeyGenerator = gen
		return nil
	}
}

// WithDiagnosticHeaders enables the X-Cache-* response headers (§4.7.7).
func WithDiagnosticHeaders(enable bool) Option {
	return func(t *Transport) error {
		t.config.IncludeDiagnosticHeaders = enable
		return nil
	}
}

// WithContentKeyPrefix sets a prefix applied to content-entry keys in the
// backing store, useful for namespacing when multiple caches share one
// backend.
func WithContentKeyPrefix(prefix string) Option {
	return func(t *Transport) error {
		t.config.ContentKeyPrefix = prefix
		return nil
	}
}

// WithTransport sets the underlying lower transport used to make requests.
// If nil, http.DefaultTransport is used.
func WithTransport(rt http.RoundTripper) Option {
	return func(t *Transport) error {
		t.transport = rt
		return nil
	}
}

// WithTaskRunner installs the background-task runner used for stale-while-
// revalidate (§4.7.3). If unset, a goroutine-per-task runner is used.
func WithTaskRunner(r TaskRunner) Option {
	return func(t *Transport) error {
		t.tasks = r
		return nil
	}
}

// WithClock overrides the Clock driving freshness calculations; intended
// for tests.
func WithClock(c Clock) Option {
	return func(t *Transport) error {
		t.clock = c
		return nil
	}
}

// WithMetrics installs a metrics collector for cache.hits / cache.misses
// (§6.6). If unset, a no-op collector is used.
func WithMetrics(c metrics.Collector) Option {
	return func(t *Transport) error {
		t.metrics = c
		return nil
	}
}

// WithEncryption enables AES-256-GCM encryption of stored metadata records,
// deriving the key from passphrase via scrypt. Content bytes are stored
// unencrypted.
func WithEncryption(passphrase string) Option {
	return func(t *Transport) error {
		sealer, err := security.NewSealer(passphrase)
		if err != nil {
			return err
		}
		t.sealer = sealer
		return nil
	}
}

// WithResilience wraps the lower transport call with retry and
// circuit-breaker policies (grounded on the teacher's resilience.go).
func WithResilience(cfg resilience.Config) Option {
	return func(t *Transport) error {
		t.resilience = resilience.New(cfg)
		return nil
	}
}
