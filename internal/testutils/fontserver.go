// Package testutils provides shared test infrastructure.
package testutils

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// TestFont defines a font file served by a FontServer.
type TestFont struct {
	// Path is the URL path, e.g. "/roboto-regular.woff2".
	Path string

	// ContentType is sent as the Content-Type header. Empty sends none.
	ContentType string

	// Status overrides the response status. Zero means 200.
	Status int

	Data []byte
}

// FontServer serves test fonts and counts requests per path.
type FontServer struct {
	*httptest.Server

	mu       sync.Mutex
	fonts    map[string]TestFont
	requests map[string]int
}

// GenerateFontData returns deterministic bytes of the given size, prefixed
// with a recognizable magic.
func GenerateFontData(magic string, size int) []byte {
	data := make([]byte, size)
	copy(data, magic)
	for i := len(magic); i < size; i++ {
		data[i] = byte(i % 251)
	}
	return data
}

// StartFontServer starts an HTTP server serving fonts. Unknown paths get 404.
func StartFontServer(t *testing.T, fonts ...TestFont) *FontServer {
	t.Helper()

	fs := &FontServer{
		fonts:    make(map[string]TestFont),
		requests: make(map[string]int),
	}
	for _, f := range fonts {
		fs.fonts[f.Path] = f
	}

	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.requests[r.URL.Path]++
		f, ok := fs.fonts[r.URL.Path]
		fs.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}

		if f.ContentType == "" {
			w.Header()["Content-Type"] = nil
		} else {
			w.Header().Set("Content-Type", f.ContentType)
		}
		if f.Status != 0 {
			w.WriteHeader(f.Status)
		}
		w.Write(f.Data)
	}))
	t.Cleanup(fs.Server.Close)

	return fs
}

// URL returns the absolute URL for path.
func (fs *FontServer) URL(path string) string {
	return fs.Server.URL + path
}

// Requests returns how many requests path received.
func (fs *FontServer) Requests(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.requests[path]
}

// Font returns the data served at path.
func (fs *FontServer) Font(path string) []byte {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return bytes.Clone(fs.fonts[path].Data)
}
