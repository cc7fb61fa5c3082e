package prewarmer

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/polarcache/httpcache"
	"github.com/polarcache/httpcache/store/memtier"
)

func newTestServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=3600")
		w.Header().Set("Content-Type", "text/plain")

		switch r.URL.Path {
		case "/error":
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "error")
		case "/slow":
			time.Sleep(50 * time.Millisecond)
			fmt.Fprint(w, "slow response")
		default:
			fmt.Fprintf(w, "response for %s", r.URL.Path)
		}
	}))
}

func newSitemapServer(urls []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sitemap.xml" {
			sitemap := Sitemap{
				XMLName: xml.Name{Local: "urlset"},
				URLs:    make([]SitemapURL, len(urls)),
			}
			for i, u := range urls {
				sitemap.URLs[i] = SitemapURL{Loc: u}
			}
			w.Header().Set("Content-Type", "application/xml")
			data, _ := xml.Marshal(sitemap)
			w.Write([]byte(xml.Header))
			w.Write(data)
			return
		}
		w.Header().Set("Cache-Control", "max-age=3600")
		fmt.Fprintf(w, "response for %s", r.URL.Path)
	}))
}

func newCachingClient() *http.Client {
	return httpcache.NewTransport(memtier.New()).Client()
}

func TestNew(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		pw, err := New(Config{Client: newCachingClient()})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if pw == nil {
			t.Fatal("expected prewarmer, got nil")
		}
	})

	t.Run("nil client", func(t *testing.T) {
		_, err := New(Config{})
		if err == nil {
			t.Fatal("expected error for nil client")
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		pw, err := New(Config{Client: newCachingClient()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pw.userAgent != "httpcache-prewarmer/1.0" {
			t.Errorf("unexpected default user agent: %q", pw.userAgent)
		}
		if pw.timeout != 30*time.Second {
			t.Errorf("unexpected default timeout: %v", pw.timeout)
		}
	})
}

func TestPrewarm(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	pw, err := New(Config{Client: newCachingClient()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	urls := []string{server.URL + "/a", server.URL + "/b", server.URL + "/error"}
	stats, err := pw.Prewarm(context.Background(), urls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("expected 3 total, got %d", stats.Total)
	}
	if stats.Successful != 2 {
		t.Errorf("expected 2 successful, got %d", stats.Successful)
	}
	if stats.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", stats.Failed)
	}
	if len(stats.Errors) != 1 {
		t.Errorf("expected 1 recorded error, got %d", len(stats.Errors))
	}
}

func TestPrewarmSecondFetchHitsCache(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	client := newCachingClient()
	pw, err := New(Config{Client: client})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url := server.URL + "/same"
	if _, err := pw.Prewarm(context.Background(), []string{url}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("X-From-Cache") != "1" {
		t.Error("expected second fetch to be served from cache")
	}
}

func TestPrewarmConcurrent(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	pw, err := New(Config{Client: newCachingClient()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/page-%d", server.URL, i)
	}

	stats, err := pw.PrewarmConcurrent(context.Background(), urls, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Successful != 10 {
		t.Errorf("expected 10 successful, got %d", stats.Successful)
	}
}

func TestPrewarmRespectsContextCancellation(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	pw, err := New(Config{Client: newCachingClient()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	urls := []string{server.URL + "/a", server.URL + "/b"}
	_, err = pw.Prewarm(ctx, urls)
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestPrewarmFromSitemap(t *testing.T) {
	target := newTestServer()
	defer target.Close()

	urls := []string{target.URL + "/a", target.URL + "/b", target.URL + "/c"}
	sitemapServer := newSitemapServer(urls)
	defer sitemapServer.Close()

	pw, err := New(Config{Client: newCachingClient()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := pw.PrewarmFromSitemap(context.Background(), sitemapServer.URL+"/sitemap.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != len(urls) {
		t.Errorf("expected %d total, got %d", len(urls), stats.Total)
	}
	if stats.Successful != len(urls) {
		t.Errorf("expected %d successful, got %d", len(urls), stats.Successful)
	}
}

func TestPrewarmForceRefresh(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Cache-Control", "max-age=3600")
		fmt.Fprint(w, "body")
	}))
	defer server.Close()

	client := newCachingClient()
	pw, err := New(Config{Client: client, ForceRefresh: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url := server.URL + "/x"
	if _, err := pw.Prewarm(context.Background(), []string{url}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := pw.Prewarm(context.Background(), []string{url}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hits != 2 {
		t.Errorf("expected ForceRefresh to bypass cache on every call, got %d origin hits", hits)
	}
}
