// Package pipeline runs the analysis workflow for a media URL: snapshot,
// audio, transcription, sentence scoring and persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/speechscope/internal/metrics"
	"github.com/snarg/speechscope/internal/notify"
	"github.com/snarg/speechscope/internal/storage"
	"github.com/snarg/speechscope/internal/transcript"
)

var (
	// ErrInvalidURL is returned by StartRun for a missing or non-HTTP URL.
	ErrInvalidURL = errors.New("invalid url")

	// ErrArtifactMissing means a stage reported success but its file is absent.
	ErrArtifactMissing = errors.New("expected artifact missing")
)

// State is a step of the run state machine.
type State string

const (
	StateCreated             State = "CREATED"
	StateCapturingScreenshot State = "CAPTURING_SCREENSHOT"
	StateAcquiringAudio      State = "ACQUIRING_AUDIO"
	StateTranscribing        State = "TRANSCRIBING"
	StateEnriching           State = "ENRICHING"
	StatePersisting          State = "PERSISTING"
	StateDone                State = "DONE"
	StateFailed              State = "FAILED"
)

func (s State) label() string { return strings.ToLower(string(s)) }

// StageError is the failure that moved a run to FAILED.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage.label(), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Capturer writes a snapshot of a page. It may leave no file behind.
type Capturer interface {
	Capture(ctx context.Context, pageURL, destPath string) error
}

// AudioAcquirer writes the mono 16 kHz audio of a URL to destPath.
type AudioAcquirer interface {
	Acquire(ctx context.Context, url, destPath string) error
}

// Transcriber turns an audio file into a raw word-level transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*transcript.RawResponse, error)
}

// Enricher scores the sentences of a transcript.
type Enricher interface {
	Enrich(ctx context.Context, t *transcript.Transcript) (*transcript.Transcript, error)
}

// Archiver copies finished artifacts somewhere durable. Best effort.
type Archiver interface {
	Enqueue(key, path string)
}

// Options wires the orchestrator's collaborators. Archive and Events are
// optional.
type Options struct {
	DataDir           string
	Capturer          Capturer
	Audio             AudioAcquirer
	Transcriber       Transcriber
	Enricher          Enricher
	Store             storage.ResultStore
	Archive           Archiver
	Events            notify.Publisher
	UsingMockAnalyzer bool
	Log               zerolog.Logger
}

// Orchestrator executes runs. Runs share no state besides the store and the
// data directory, so StartRun may be called concurrently.
type Orchestrator struct {
	opts   Options
	events notify.Publisher
	active atomic.Int64
	now    func() time.Time
	newID  func() string
	log    zerolog.Logger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	events := opts.Events
	if events == nil {
		events = notify.Nop{}
	}
	return &Orchestrator{
		opts:   opts,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		log:    opts.Log.With().Str("component", "pipeline").Logger(),
	}
}

// ActiveRuns returns the number of runs in progress.
func (o *Orchestrator) ActiveRuns() int {
	return int(o.active.Load())
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an http(s) url", ErrInvalidURL, raw)
	}
	return nil
}

// StartRun analyzes rawURL end to end and returns the new run id. Every
// call gets a fresh id. When a stage fails, a record carrying the error and
// any artifacts already on disk is persisted, and the id is returned along
// with a *StageError.
func (o *Orchestrator) StartRun(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := ValidateURL(rawURL); err != nil {
		return "", err
	}

	o.active.Add(1)
	defer o.active.Add(-1)

	id := o.newID()
	r := &run{
		id:        id,
		url:       rawURL,
		paths:     NewPaths(o.opts.DataDir, id),
		createdAt: o.now(),
		log:       o.log.With().Str("run_id", id).Logger(),
	}
	r.log.Info().Str("url", rawURL).Str("state", string(StateCreated)).Msg("run created")
	o.events.Publish(notify.Event{ID: id, URL: rawURL, Status: notify.StatusStarted})

	start := time.Now()
	t, err := o.execute(ctx, r)
	if err != nil {
		o.fail(ctx, r, err)
		return id, err
	}

	if err := o.persist(ctx, r, t); err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		r.log.Error().Err(err).Str("state", string(StateFailed)).Msg("run record not fully persisted")
		o.events.Publish(notify.Event{ID: id, URL: rawURL, Status: notify.StatusFailed, Error: err.Error()})
		return id, err
	}

	metrics.RunsTotal.WithLabelValues("done").Inc()
	o.events.Publish(notify.Event{ID: id, URL: rawURL, Status: notify.StatusDone})
	r.log.Info().
		Str("state", string(StateDone)).
		Int("sentences", len(t.Sentences)).
		Dur("elapsed", time.Since(start)).
		Msg("run complete")
	o.archive(r)
	return id, nil
}

// GetRun returns the record for id, or storage.ErrNotFound.
func (o *Orchestrator) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	// Ids double as file names; only canonical UUIDs are looked up.
	if u, err := uuid.Parse(id); err != nil || u.String() != id {
		return nil, storage.ErrNotFound
	}
	doc, err := o.opts.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	var rec RunRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("decode run record %s: %w", id, err)
	}
	return &rec, nil
}

type run struct {
	id        string
	url       string
	paths     Paths
	createdAt time.Time
	log       zerolog.Logger
}

// execute runs every stage up to writing the transcript artifact. Each
// stage is attempted once; the first failure stops the run.
func (o *Orchestrator) execute(ctx context.Context, r *run) (*transcript.Transcript, error) {
	if err := o.stage(r, StateCreated, r.paths.EnsureDirs); err != nil {
		return nil, err
	}

	err := o.stage(r, StateCapturingScreenshot, func() error {
		if err := o.opts.Capturer.Capture(ctx, r.url, r.paths.Screenshot); err != nil {
			return err
		}
		if !fileExists(r.paths.Screenshot) {
			r.log.Warn().Msg("no screenshot produced, continuing")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = o.stage(r, StateAcquiringAudio, func() error {
		if err := o.opts.Audio.Acquire(ctx, r.url, r.paths.Audio); err != nil {
			return err
		}
		if !fileExists(r.paths.Audio) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, r.paths.Audio)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var t *transcript.Transcript
	err = o.stage(r, StateTranscribing, func() error {
		raw, err := o.opts.Transcriber.Transcribe(ctx, r.paths.Audio)
		if err != nil {
			return err
		}
		t = transcript.Normalize(raw)
		r.log.Debug().Int("words", len(t.Words)).Int("sentences", len(t.Sentences)).Msg("transcript normalized")
		return nil
	})
	if err != nil {
		return nil, err
	}

	var enriched *transcript.Transcript
	err = o.stage(r, StateEnriching, func() error {
		var err error
		enriched, err = o.opts.Enricher.Enrich(ctx, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = o.stage(r, StatePersisting, func() error {
		return writeJSON(r.paths.Transcript, enriched)
	})
	if err != nil {
		return nil, err
	}
	return enriched, nil
}

// persist saves the success record. A failed save is returned without
// writing an error record over it, since the store may already hold the
// successful record in its fallback backend.
func (o *Orchestrator) persist(ctx context.Context, r *run, t *transcript.Transcript) error {
	rec := &RunRecord{
		ID:                r.id,
		URL:               r.url,
		AudioPath:         r.paths.Audio,
		TranscriptPath:    r.paths.Transcript,
		Transcript:        t,
		UsingMockAnalyzer: o.opts.UsingMockAnalyzer,
		CreatedAt:         r.createdAt,
	}
	if fileExists(r.paths.Screenshot) {
		rec.ScreenshotPath = r.paths.Screenshot
	}
	return o.stage(r, StatePersisting, func() error {
		return o.save(ctx, rec)
	})
}

// fail persists the error record for a run. Only artifacts present on disk
// are referenced. Save failures are logged; the caller returns the
// original error.
func (o *Orchestrator) fail(ctx context.Context, r *run, cause error) {
	metrics.RunsTotal.WithLabelValues("failed").Inc()
	r.log.Error().Err(cause).Str("state", string(StateFailed)).Msg("run failed")

	rec := &RunRecord{
		ID:                r.id,
		URL:               r.url,
		UsingMockAnalyzer: o.opts.UsingMockAnalyzer,
		Error:             cause.Error(),
		CreatedAt:         r.createdAt,
	}
	if fileExists(r.paths.Screenshot) {
		rec.ScreenshotPath = r.paths.Screenshot
	}
	if fileExists(r.paths.Audio) {
		rec.AudioPath = r.paths.Audio
	}

	// The run's own context may be what failed; the record still needs writing.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := o.save(saveCtx, rec); err != nil {
		r.log.Error().Err(err).Msg("failed to persist error record")
	}
	o.events.Publish(notify.Event{ID: r.id, URL: r.url, Status: notify.StatusFailed, Error: rec.Error})
}

func (o *Orchestrator) save(ctx context.Context, rec *RunRecord) error {
	doc, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}
	return o.opts.Store.Save(ctx, rec.ID, doc)
}

func (o *Orchestrator) stage(r *run, s State, fn func() error) error {
	r.log.Debug().Str("state", string(s)).Msg("stage started")
	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(s.label()).Observe(time.Since(start).Seconds())
	if err != nil {
		return &StageError{Stage: s, Err: err}
	}
	return nil
}

// archive hands the run's artifacts to the archiver, keyed by their path
// relative to the data root.
func (o *Orchestrator) archive(r *run) {
	if o.opts.Archive == nil {
		return
	}
	for _, path := range []string{r.paths.Screenshot, r.paths.Audio, r.paths.Transcript} {
		if !fileExists(path) {
			continue
		}
		key, err := filepath.Rel(o.opts.DataDir, path)
		if err != nil {
			continue
		}
		o.opts.Archive.Enqueue(filepath.ToSlash(key), path)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
