package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ObjectPutter uploads one object.
type ObjectPutter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// AsyncUploader archives finished run artifacts in the background so
// uploads never delay a response. The local files stay the source of truth.
type AsyncUploader struct {
	dst      ObjectPutter
	ch       chan uploadJob
	wg       sync.WaitGroup
	log      zerolog.Logger
	stopped  atomic.Bool
	stopOnce sync.Once
}

type uploadJob struct {
	key  string
	path string
}

// NewAsyncUploader creates an uploader with the given buffer size.
func NewAsyncUploader(dst ObjectPutter, bufferSize int, log zerolog.Logger) *AsyncUploader {
	return &AsyncUploader{
		dst: dst,
		ch:  make(chan uploadJob, bufferSize),
		log: log.With().Str("component", "async-uploader").Logger(),
	}
}

// Enqueue schedules the file at path for upload under key. Non-blocking:
// drops with a warning if the queue is full or the uploader is stopped.
func (u *AsyncUploader) Enqueue(key, path string) {
	if u.stopped.Load() {
		return
	}
	select {
	case u.ch <- uploadJob{key: key, path: path}:
	default:
		u.log.Warn().Str("key", key).Msg("async upload queue full, skipping (file safe on disk)")
	}
}

// Start launches worker goroutines.
func (u *AsyncUploader) Start(workers int) {
	for i := 0; i < workers; i++ {
		u.wg.Add(1)
		go u.worker()
	}
	u.log.Info().Int("workers", workers).Int("buffer", cap(u.ch)).Msg("async uploader started")
}

// Stop closes the queue and waits for workers to drain it.
func (u *AsyncUploader) Stop() {
	u.stopped.Store(true)
	u.stopOnce.Do(func() { close(u.ch) })
	u.wg.Wait()
}

func (u *AsyncUploader) worker() {
	defer u.wg.Done()
	for job := range u.ch {
		data, err := os.ReadFile(job.path)
		if err != nil {
			u.log.Warn().Err(err).Str("path", job.path).Msg("artifact unreadable, skipping upload")
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := u.dst.Put(ctx, job.key, data, contentTypeFor(job.path)); err != nil {
			u.log.Error().Err(err).Str("key", job.key).Msg("artifact upload failed (file safe on disk)")
		} else {
			u.log.Debug().Str("key", job.key).Int("bytes", len(data)).Msg("artifact uploaded")
		}
		cancel()
	}
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".wav":
		return "audio/wav"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
