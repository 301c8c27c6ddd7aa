// Package hashcache maps local resource URLs to content-hashed variants so
// rendered pages can reference indefinitely cacheable URLs. The map is
// populated synchronously at startup by scanning the static asset tree;
// after that it is read-only, so lookups from concurrent renders need no
// locking and never touch the disk.
package hashcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

// Entry is the hashed replacement for one local URL.
type Entry struct {
	HashedURL    string
	LastModified int64
}

// Lookup is the read side consumed by the renderer. Implementations must
// be non-blocking: no disk or network I/O inside a render call.
type Lookup interface {
	Lookup(localURL string) (Entry, bool)
}

// hex digits of the content hash kept in the rewritten file name.
const hashLen = 12

// Map is the in-memory Lookup built from a static asset tree. Populate it
// with ScanFS or Add before serving; it must not be mutated afterwards.
type Map struct {
	entries map[string]Entry
	// reverse maps a hashed URL back to the original, for the response
	// layer to locate the underlying resource when a hashed URL is
	// requested.
	reverse map[string]string
	log     *slog.Logger
}

// Option configures a Map.
type Option func(*Map)

// WithLogger routes scan diagnostics to the given logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Map) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMap returns an empty Map.
func NewMap(options ...Option) *Map {
	m := &Map{
		entries: make(map[string]Entry),
		reverse: make(map[string]string),
		log:     slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Lookup implements Lookup.
func (m *Map) Lookup(localURL string) (Entry, bool) {
	entry, ok := m.entries[localURL]
	return entry, ok
}

// Original reverses Lookup: given a hashed URL it returns the URL the
// content was registered under.
func (m *Map) Original(hashedURL string) (string, bool) {
	orig, ok := m.reverse[hashedURL]
	return orig, ok
}

// Add registers content for a local URL, deriving the hashed variant from
// the content itself. The hash is injected before the file extension:
// /css/app.css becomes /css/app.<hash>.css.
func (m *Map) Add(localURL string, content io.Reader, lastModified int64) error {
	if !strings.HasPrefix(localURL, "/") {
		return fmt.Errorf("hashcache: local URL must start with /: %q", localURL)
	}
	sum := sha256.New()
	if _, err := io.Copy(sum, content); err != nil {
		return fmt.Errorf("hashcache: hash %s: %w", localURL, err)
	}
	digest := hex.EncodeToString(sum.Sum(nil))[:hashLen]

	ext := path.Ext(localURL)
	hashed := strings.TrimSuffix(localURL, ext) + "." + digest + ext

	m.entries[localURL] = Entry{HashedURL: hashed, LastModified: lastModified}
	m.reverse[hashed] = localURL
	return nil
}

// ScanFS walks a static asset tree and registers every regular file under
// urlPrefix. Called once at startup, before any render runs.
func (m *Map) ScanFS(assets fs.FS, urlPrefix string) error {
	urlPrefix = strings.TrimSuffix(urlPrefix, "/")
	return fs.WalkDir(assets, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		file, err := assets.Open(p)
		if err != nil {
			return fmt.Errorf("hashcache: open %s: %w", p, err)
		}
		defer file.Close()

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("hashcache: stat %s: %w", p, err)
		}

		localURL := urlPrefix + "/" + path.Clean(p)
		if err := m.Add(localURL, file, info.ModTime().Unix()); err != nil {
			return err
		}
		m.log.Debug("hashcache: registered asset", "url", localURL, "hashed", m.entries[localURL].HashedURL)
		return nil
	})
}
