package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestYouTubeVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?v=abc&t=10s", "abc"},
		{"https://youtu.be/xyz123", "xyz123"},
		{"https://www.youtube.com/", ""},
		{"https://vimeo.com/12345", ""},
		{"not a url", ""},
	}
	for _, tt := range tests {
		if got := YouTubeVideoID(tt.url); got != tt.want {
			t.Errorf("YouTubeVideoID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestCapturer(thumbs *httptest.Server, browser func(context.Context, string) ([]byte, error)) *Capturer {
	c := New(Options{Log: zerolog.Nop()})
	if thumbs != nil {
		c.thumbnailBase = thumbs.URL + "/vi"
	}
	c.browser = browser
	return c
}

func TestCapture_ThumbnailFallsBackToHQ(t *testing.T) {
	small, large := jpegBytes(t, 50, 50), jpegBytes(t, 480, 360)
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "maxresdefault.jpg") {
			w.Write(small)
			return
		}
		w.Write(large)
	}))
	defer srv.Close()

	browserCalled := false
	c := newTestCapturer(srv, func(context.Context, string) ([]byte, error) {
		browserCalled = true
		return nil, nil
	})

	dest := filepath.Join(t.TempDir(), "shot.png")
	if err := c.Capture(context.Background(), "https://youtu.be/vid1", dest); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if browserCalled {
		t.Error("browser used despite usable thumbnail")
	}
	if len(paths) != 2 || paths[1] != "/vi/vid1/hqdefault.jpg" {
		t.Errorf("requested %v, want maxres then hq", paths)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	if _, format, err := image.DecodeConfig(f); err != nil || format != "png" {
		t.Errorf("output format = %q (err %v), want png", format, err)
	}
}

func TestCapture_BrowserFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var gotURL string
	c := newTestCapturer(srv, func(_ context.Context, u string) ([]byte, error) {
		gotURL = u
		return []byte("png-bytes"), nil
	})

	dest := filepath.Join(t.TempDir(), "shot.png")
	if err := c.Capture(context.Background(), "https://www.youtube.com/watch?v=gone", dest); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if gotURL != "https://www.youtube.com/watch?v=gone" {
		t.Errorf("browser url = %q", gotURL)
	}
	if data, _ := os.ReadFile(dest); string(data) != "png-bytes" {
		t.Errorf("output = %q, want browser bytes", data)
	}
}

func TestCapture_PageFailureLeavesNoFile(t *testing.T) {
	c := newTestCapturer(nil, func(context.Context, string) ([]byte, error) { return nil, nil })
	dest := filepath.Join(t.TempDir(), "shot.png")
	if err := c.Capture(context.Background(), "https://example.com", dest); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("expected no file after failed page load")
	}
}

func TestCapture_LaunchFailure(t *testing.T) {
	c := newTestCapturer(nil, func(context.Context, string) ([]byte, error) {
		return nil, errors.New("launch browser: exec: \"chromium\": not found")
	})
	if err := c.Capture(context.Background(), "https://example.com", filepath.Join(t.TempDir(), "s.png")); err == nil {
		t.Error("expected launch error to propagate")
	}
}
