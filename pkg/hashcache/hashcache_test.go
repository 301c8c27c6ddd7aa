package hashcache_test

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-modelview/pkg/hashcache"
)

func TestAddDerivesHashedURL(t *testing.T) {
	m := hashcache.NewMap()
	if err := m.Add("/css/app.css", strings.NewReader("body{}"), 1700000000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, ok := m.Lookup("/css/app.css")
	if !ok {
		t.Fatal("expected a cache entry")
	}
	if !strings.HasPrefix(entry.HashedURL, "/css/app.") || !strings.HasSuffix(entry.HashedURL, ".css") {
		t.Fatalf("hash must sit before the extension, got %q", entry.HashedURL)
	}
	if entry.HashedURL == "/css/app.css" {
		t.Fatal("hashed URL must differ from the original")
	}
	if entry.LastModified != 1700000000 {
		t.Fatalf("unexpected last-modified %d", entry.LastModified)
	}

	orig, ok := m.Original(entry.HashedURL)
	if !ok || orig != "/css/app.css" {
		t.Fatalf("reverse lookup failed: %q %v", orig, ok)
	}
}

func TestAddIsContentAddressed(t *testing.T) {
	a := hashcache.NewMap()
	b := hashcache.NewMap()
	if err := a.Add("/js/app.js", strings.NewReader("alert(1)"), 0); err != nil {
		t.Fatal(err)
	}
	if err := b.Add("/js/app.js", strings.NewReader("alert(2)"), 0); err != nil {
		t.Fatal(err)
	}
	ea, _ := a.Lookup("/js/app.js")
	eb, _ := b.Lookup("/js/app.js")
	if ea.HashedURL == eb.HashedURL {
		t.Fatal("different content must produce different hashed URLs")
	}
}

func TestAddRejectsRelativeURLs(t *testing.T) {
	m := hashcache.NewMap()
	if err := m.Add("css/app.css", strings.NewReader("x"), 0); err == nil {
		t.Fatal("expected an error for a relative URL")
	}
}

func TestScanFS(t *testing.T) {
	mod := time.Unix(1700000000, 0)
	assets := fstest.MapFS{
		"css/app.css":  {Data: []byte("body{}"), ModTime: mod},
		"js/app.js":    {Data: []byte("alert(1)"), ModTime: mod},
		"img/logo.png": {Data: []byte{0x89, 0x50}, ModTime: mod},
	}

	m := hashcache.NewMap()
	if err := m.ScanFS(assets, "/static"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, url := range []string{"/static/css/app.css", "/static/js/app.js", "/static/img/logo.png"} {
		entry, ok := m.Lookup(url)
		if !ok {
			t.Fatalf("missing entry for %s", url)
		}
		if entry.LastModified != mod.Unix() {
			t.Fatalf("wrong mod time for %s: %d", url, entry.LastModified)
		}
	}
}
