package httpcache

import (
	"net/http"
	"testing"
	"time"
)

func TestParseDateValid(t *testing.T) {
	h := make(http.Header)
	h.Set("Date", "Mon, 01 Jan 2024 00:00:00 GMT")
	got, ok := ParseDate(h)
	if !ok {
		t.Fatal("expected valid Date header to parse")
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseDateAbsent(t *testing.T) {
	if _, ok := ParseDate(make(http.Header)); ok {
		t.Fatal("expected absent Date header to report ok=false")
	}
}

func TestParseDateUnparseable(t *testing.T) {
	h := make(http.Header)
	h.Set("Date", "not-a-date")
	if _, ok := ParseDate(h); ok {
		t.Fatal("expected an unparseable Date header to report ok=false")
	}
}

func TestParseExpires(t *testing.T) {
	h := make(http.Header)
	h.Set("Expires", "Mon, 01 Jan 2024 01:00:00 GMT")
	got, ok := ParseExpires(h)
	if !ok || got.Hour() != 1 {
		t.Fatalf("got (%v, %v)", got, ok)
	}
}

func TestParseLastModified(t *testing.T) {
	h := make(http.Header)
	h.Set("Last-Modified", "Mon, 01 Jan 2024 00:00:00 GMT")
	if _, ok := ParseLastModified(h); !ok {
		t.Fatal("expected Last-Modified to parse")
	}
}

func TestParseAgeValid(t *testing.T) {
	h := make(http.Header)
	h.Set("Age", "120")
	got, ok := ParseAge(h)
	if !ok || got != 120*time.Second {
		t.Fatalf("got (%v, %v)", got, ok)
	}
}

func TestParseAgeNegativeIsAbsent(t *testing.T) {
	h := make(http.Header)
	h.Set("Age", "-5")
	if _, ok := ParseAge(h); ok {
		t.Fatal("expected negative Age to report ok=false")
	}
}

func TestParseAgeNonNumericIsAbsent(t *testing.T) {
	h := make(http.Header)
	h.Set("Age", "forever")
	if _, ok := ParseAge(h); ok {
		t.Fatal("expected non-numeric Age to report ok=false")
	}
}

func TestParseETag(t *testing.T) {
	h := make(http.Header)
	h.Set("ETag", `W/"abc"`)
	got, ok := ParseETag(h)
	if !ok || got != `W/"abc"` {
		t.Fatalf("got (%q, %v)", got, ok)
	}
}

func TestParseETagAbsent(t *testing.T) {
	if _, ok := ParseETag(make(http.Header)); ok {
		t.Fatal("expected absent ETag to report ok=false")
	}
}

func TestParseVaryNames(t *testing.T) {
	h := make(http.Header)
	h.Set("Vary", "Accept-Encoding, Accept-Language")
	names, wildcard := ParseVary(h)
	if wildcard {
		t.Fatal("expected wildcard=false")
	}
	want := []string{"accept-encoding", "accept-language"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestParseVaryWildcard(t *testing.T) {
	h := make(http.Header)
	h.Set("Vary", "*")
	_, wildcard := ParseVary(h)
	if !wildcard {
		t.Fatal("expected Vary: * to report wildcard=true")
	}
}

func TestParseVaryAbsent(t *testing.T) {
	names, wildcard := ParseVary(make(http.Header))
	if names != nil || wildcard {
		t.Fatalf("expected absent Vary to report (nil, false), got (%v, %v)", names, wildcard)
	}
}

func TestFormatAgeHeader(t *testing.T) {
	if got := formatAgeHeader(90 * time.Second); got != "90" {
		t.Fatalf("got %q, want %q", got, "90")
	}
}

func TestFormatAgeHeaderFloorsNegative(t *testing.T) {
	if got := formatAgeHeader(-5 * time.Second); got != "0" {
		t.Fatalf("got %q, want %q", got, "0")
	}
}
