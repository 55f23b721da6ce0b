package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/snarg/speechscope/internal/notify"
	"github.com/snarg/speechscope/internal/storage"
	"github.com/snarg/speechscope/internal/transcript"
)

// ── fakes ────────────────────────────────────────────────────────────

type fakeCapturer struct {
	write bool
	err   error
}

func (f *fakeCapturer) Capture(_ context.Context, _, dest string) error {
	if f.write {
		if err := os.WriteFile(dest, []byte("png"), 0o644); err != nil {
			return err
		}
	}
	return f.err
}

type fakeAudio struct {
	called bool
	write  bool
	err    error
}

func (f *fakeAudio) Acquire(_ context.Context, _, dest string) error {
	f.called = true
	if f.write {
		if err := os.WriteFile(dest, []byte("RIFF"), 0o644); err != nil {
			return err
		}
	}
	return f.err
}

type fakeTranscriber struct {
	resp *transcript.RawResponse
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (*transcript.RawResponse, error) {
	return f.resp, f.err
}

type constAnalyzer float64

func (c constAnalyzer) Analyze(context.Context, string) (float64, error) { return float64(c), nil }

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeArchive) Enqueue(key, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []notify.Event
}

func (f *fakeEvents) Publish(evt notify.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

type failingStore struct{ storage.ResultStore }

func (failingStore) Save(context.Context, string, []byte) error {
	return &storage.PersistenceError{Backend: "postgres", Op: "save", Err: errors.New("connection refused")}
}

func rawHello() *transcript.RawResponse {
	return &transcript.RawResponse{
		Text: "Hello world. Bye.",
		Words: []transcript.RawToken{
			{Text: "Hello", Type: "word", Start: 0, End: 0.4, SpeakerID: "speaker_0"},
			{Text: " ", Type: "spacing", Start: 0.4, End: 0.5},
			{Text: "world.", Type: "word", Start: 0.5, End: 1.0, SpeakerID: "speaker_0"},
			{Text: "Bye.", Type: "word", Start: 1.2, End: 1.5, SpeakerID: "speaker_1"},
		},
	}
}

type harness struct {
	dataDir string
	cap     *fakeCapturer
	audio   *fakeAudio
	tr      *fakeTranscriber
	archive *fakeArchive
	events  *fakeEvents
	store   storage.ResultStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{
		dataDir: dir,
		cap:     &fakeCapturer{write: true},
		audio:   &fakeAudio{write: true},
		tr:      &fakeTranscriber{resp: rawHello()},
		archive: &fakeArchive{},
		events:  &fakeEvents{},
		store:   storage.NewFileStore(filepath.Join(dir, "results")),
	}
}

func (h *harness) orchestrator() *Orchestrator {
	return New(Options{
		DataDir:     h.dataDir,
		Capturer:    h.cap,
		Audio:       h.audio,
		Transcriber: h.tr,
		Enricher: transcript.NewEnricher(transcript.EnricherOptions{
			Analyzer:     constAnalyzer(0.25),
			AnalyzerName: "mock",
			Log:          zerolog.Nop(),
		}),
		Store:             h.store,
		Archive:           h.archive,
		Events:            h.events,
		UsingMockAnalyzer: true,
		Log:               zerolog.Nop(),
	})
}

func mustGet(t *testing.T, o *Orchestrator, id string) *RunRecord {
	t.Helper()
	rec, err := o.GetRun(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRun(%s): %v", id, err)
	}
	return rec
}

// ── tests ────────────────────────────────────────────────────────────

func TestStartRun_Success(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator()

	id, err := o.StartRun(context.Background(), "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	rec := mustGet(t, o, id)
	if rec.ID != id || rec.URL != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("record id/url = %s/%s", rec.ID, rec.URL)
	}
	if rec.Failed() {
		t.Errorf("unexpected error %q", rec.Error)
	}
	paths := NewPaths(h.dataDir, id)
	if rec.ScreenshotPath != paths.Screenshot || rec.AudioPath != paths.Audio || rec.TranscriptPath != paths.Transcript {
		t.Errorf("paths = %q %q %q", rec.ScreenshotPath, rec.AudioPath, rec.TranscriptPath)
	}
	if !rec.UsingMockAnalyzer {
		t.Error("UsingMockAnalyzer = false")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt missing")
	}
	if rec.Transcript == nil || len(rec.Transcript.Sentences) != 2 {
		t.Fatalf("transcript = %+v", rec.Transcript)
	}
	for i, s := range rec.Transcript.Sentences {
		if s.AIProbability == nil || *s.AIProbability != 0.25 {
			t.Errorf("sentence %d probability = %v", i, s.AIProbability)
		}
	}
	if rec.Transcript.Sentences[1].Speaker != "speaker_1" {
		t.Errorf("sentence 1 speaker = %q", rec.Transcript.Sentences[1].Speaker)
	}
	if !fileExists(paths.Transcript) {
		t.Error("transcript artifact not written")
	}

	if len(h.archive.keys) != 3 || h.archive.keys[1] != "audio/"+id+".wav" {
		t.Errorf("archived keys = %v", h.archive.keys)
	}
	if len(h.events.events) != 2 || h.events.events[0].Status != notify.StatusStarted || h.events.events[1].Status != notify.StatusDone {
		t.Errorf("events = %+v", h.events.events)
	}
	if o.ActiveRuns() != 0 {
		t.Errorf("ActiveRuns = %d after completion", o.ActiveRuns())
	}
}

func TestStartRun_NoScreenshotStillSucceeds(t *testing.T) {
	h := newHarness(t)
	h.cap.write = false
	o := h.orchestrator()

	id, err := o.StartRun(context.Background(), "https://example.com/talk")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	rec := mustGet(t, o, id)
	if rec.ScreenshotPath != "" {
		t.Errorf("ScreenshotPath = %q, want empty when no file", rec.ScreenshotPath)
	}
	if rec.Transcript == nil {
		t.Error("transcript missing")
	}
}

func TestStartRun_ScreenshotFailure(t *testing.T) {
	for _, wrote := range []bool{false, true} {
		h := newHarness(t)
		h.cap.write = wrote
		h.cap.err = errors.New("launch browser: not found")
		o := h.orchestrator()

		id, err := o.StartRun(context.Background(), "https://example.com")
		var se *StageError
		if !errors.As(err, &se) || se.Stage != StateCapturingScreenshot {
			t.Fatalf("err = %v, want StageError at CAPTURING_SCREENSHOT", err)
		}
		if h.audio.called {
			t.Error("audio acquired after screenshot failure")
		}

		rec := mustGet(t, o, id)
		if rec.Error != err.Error() {
			t.Errorf("record error = %q, want %q", rec.Error, err.Error())
		}
		if rec.AudioPath != "" || rec.TranscriptPath != "" || rec.Transcript != nil {
			t.Errorf("failure record carries later-stage fields: %+v", rec)
		}
		if got := rec.ScreenshotPath != ""; got != wrote {
			t.Errorf("screenshot_path present = %v, want %v", got, wrote)
		}
		last := h.events.events[len(h.events.events)-1]
		if last.Status != notify.StatusFailed || last.Error == "" {
			t.Errorf("final event = %+v", last)
		}
	}
}

func TestStartRun_AudioFailureKeepsPartialArtifacts(t *testing.T) {
	h := newHarness(t)
	h.audio.err = errors.New("ffmpeg convert failed")
	o := h.orchestrator()

	id, err := o.StartRun(context.Background(), "https://example.com")
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StateAcquiringAudio {
		t.Fatalf("err = %v, want StageError at ACQUIRING_AUDIO", err)
	}

	rec := mustGet(t, o, id)
	paths := NewPaths(h.dataDir, id)
	if rec.ScreenshotPath != paths.Screenshot {
		t.Errorf("ScreenshotPath = %q", rec.ScreenshotPath)
	}
	if rec.AudioPath != paths.Audio {
		t.Errorf("AudioPath = %q, want partial audio kept", rec.AudioPath)
	}
	if rec.TranscriptPath != "" || rec.Transcript != nil {
		t.Error("failure record carries transcript")
	}
}

func TestStartRun_AudioMissing(t *testing.T) {
	h := newHarness(t)
	h.audio.write = false
	o := h.orchestrator()

	_, err := o.StartRun(context.Background(), "https://example.com")
	if !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("err = %v, want ErrArtifactMissing", err)
	}
}

func TestStartRun_TranscriptionFailure(t *testing.T) {
	h := newHarness(t)
	h.tr.err = errors.New("elevenlabs: status 401")
	o := h.orchestrator()

	id, err := o.StartRun(context.Background(), "https://example.com")
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StateTranscribing {
		t.Fatalf("err = %v, want StageError at TRANSCRIBING", err)
	}
	rec := mustGet(t, o, id)
	if rec.AudioPath == "" || rec.ScreenshotPath == "" {
		t.Errorf("partial artifacts missing: %+v", rec)
	}
	if rec.Transcript != nil {
		t.Error("failure record carries transcript")
	}
}

func TestStartRun_EmptyTranscriptFailsEnrichment(t *testing.T) {
	h := newHarness(t)
	h.tr.resp = &transcript.RawResponse{}
	o := h.orchestrator()

	_, err := o.StartRun(context.Background(), "https://example.com")
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StateEnriching {
		t.Fatalf("err = %v, want StageError at ENRICHING", err)
	}
	if !errors.Is(err, transcript.ErrInvalidTranscript) {
		t.Errorf("err = %v, want ErrInvalidTranscript", err)
	}
}

func TestStartRun_InvalidURL(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator()

	for _, u := range []string{"", "   ", "ftp://example.com/a", "not a url", "https://"} {
		id, err := o.StartRun(context.Background(), u)
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("StartRun(%q) err = %v, want ErrInvalidURL", u, err)
		}
		if id != "" {
			t.Errorf("StartRun(%q) id = %q, want empty", u, id)
		}
	}
	if len(h.events.events) != 0 {
		t.Error("events published for rejected urls")
	}
}

func TestStartRun_FreshIDPerCall(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator()

	id1, err := o.StartRun(context.Background(), "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := o.StartRun(context.Background(), "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Errorf("same id %s for two runs", id1)
	}
	mustGet(t, o, id1)
	mustGet(t, o, id2)
}

func TestStartRun_RecordSaveFailure(t *testing.T) {
	h := newHarness(t)
	h.store = failingStore{}
	o := h.orchestrator()

	id, err := o.StartRun(context.Background(), "https://example.com")
	if id == "" {
		t.Error("id should be returned even when the record save fails")
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StatePersisting {
		t.Fatalf("err = %v, want StageError at PERSISTING", err)
	}
	var perr *storage.PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("err = %v, want wrapped PersistenceError", err)
	}
	if len(h.archive.keys) != 0 {
		t.Error("artifacts archived for an unpersisted run")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	o := newHarness(t).orchestrator()
	for _, id := range []string{"../../etc/passwd", "not-a-uuid", "3f1c2a8e-6d5b-4c3a-9e8f-0a1b2c3d4e5f"} {
		if _, err := o.GetRun(context.Background(), id); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetRun(%q) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestStageError(t *testing.T) {
	cause := errors.New("boom")
	err := &StageError{Stage: StateAcquiringAudio, Err: cause}
	if err.Error() != "acquiring_audio: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("StageError does not unwrap to its cause")
	}
}
