package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type fakePutter struct {
	mu   sync.Mutex
	objs map[string]string
	cts  map[string]string
}

func (f *fakePutter) Put(_ context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objs[key] = string(data)
	f.cts[key] = contentType
	return nil
}

func TestAsyncUploader(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "r1.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	dst := &fakePutter{objs: map[string]string{}, cts: map[string]string{}}
	u := NewAsyncUploader(dst, 4, zerolog.Nop())
	u.Start(2)
	u.Enqueue("audio/r1.wav", wav)
	u.Enqueue("screenshots/r1.png", filepath.Join(dir, "missing.png"))
	u.Stop()

	if dst.objs["audio/r1.wav"] != "RIFF" {
		t.Errorf("uploaded objects = %v", dst.objs)
	}
	if dst.cts["audio/r1.wav"] != "audio/wav" {
		t.Errorf("content type = %q, want audio/wav", dst.cts["audio/r1.wav"])
	}
	if _, ok := dst.objs["screenshots/r1.png"]; ok {
		t.Error("missing file should not be uploaded")
	}

	// Enqueue after Stop is a no-op rather than a panic.
	u.Enqueue("late", wav)
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.png":  "image/png",
		"a.WAV":  "audio/wav",
		"a.json": "application/json",
		"a.bin":  "application/octet-stream",
	}
	for path, want := range tests {
		if got := contentTypeFor(path); got != want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", path, got, want)
		}
	}
}
