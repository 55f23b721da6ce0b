package transcript

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/snarg/speechscope/internal/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrInvalidTranscript is returned when a transcript has no usable text.
var ErrInvalidTranscript = errors.New("invalid transcript: no text")

// Analyzer scores a piece of text with the probability it was machine-generated.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (float64, error)
}

// EnricherOptions configures sentence scoring.
type EnricherOptions struct {
	Analyzer     Analyzer
	AnalyzerName string // "gptzero" or "mock", used as a metric label

	// Concurrency is the number of sentences scored at once. Values <= 1
	// score sentences one at a time, in order.
	Concurrency int
	// MaxRetries is the number of extra attempts per sentence after a failure.
	MaxRetries int
	// RatePerMinute caps analyzer calls within one Enrich call. 0 = unlimited.
	RatePerMinute int

	Log zerolog.Logger
}

// Enricher attaches AI probabilities to every sentence of a transcript.
type Enricher struct {
	opts EnricherOptions
	log  zerolog.Logger
}

// NewEnricher creates an Enricher around the given analyzer.
func NewEnricher(opts EnricherOptions) *Enricher {
	if opts.AnalyzerName == "" {
		opts.AnalyzerName = "unknown"
	}
	return &Enricher{
		opts: opts,
		log:  opts.Log.With().Str("component", "enricher").Str("analyzer", opts.AnalyzerName).Logger(),
	}
}

// Enrich scores each sentence and returns a new transcript whose sentences
// carry either an AI probability or a per-sentence error. A failing sentence
// never aborts the others. Text and words are passed through untouched.
func (e *Enricher) Enrich(ctx context.Context, t *Transcript) (*Transcript, error) {
	if t == nil || strings.TrimSpace(t.Text) == "" {
		return nil, ErrInvalidTranscript
	}
	if len(t.Sentences) == 0 {
		e.log.Warn().Msg("no sentences in transcript, skipping AI probability analysis")
		return t, nil
	}

	var limiter *rate.Limiter
	if e.opts.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(e.opts.RatePerMinute)/60.0), 1)
	}

	start := time.Now()
	out := make([]Sentence, len(t.Sentences))
	var failed atomic.Int32

	scoreAt := func(i int) {
		s := t.Sentences[i]
		s.AIProbability = nil
		s.Error = ""

		p, err := e.score(ctx, limiter, s.Text)
		if err != nil {
			failed.Add(1)
			s.Error = err.Error()
			metrics.SentenceAnalysesTotal.WithLabelValues(e.opts.AnalyzerName, "error").Inc()
			e.log.Warn().Err(err).Int("sentence", i).Str("text", s.Text).Msg("sentence analysis failed")
		} else {
			s.AIProbability = &p
			metrics.SentenceAnalysesTotal.WithLabelValues(e.opts.AnalyzerName, "ok").Inc()
		}
		out[i] = s
	}

	if e.opts.Concurrency <= 1 {
		for i := range t.Sentences {
			scoreAt(i)
		}
	} else {
		// Plain group, not WithContext: one failure must not cancel siblings.
		var g errgroup.Group
		g.SetLimit(e.opts.Concurrency)
		for i := range t.Sentences {
			i := i
			g.Go(func() error {
				scoreAt(i)
				return nil
			})
		}
		g.Wait()
	}

	e.log.Info().
		Int("sentences", len(out)).
		Int32("failed", failed.Load()).
		Dur("elapsed", time.Since(start)).
		Msg("transcript enriched")

	return &Transcript{
		Text:      t.Text,
		Words:     t.Words,
		Sentences: out,
	}, nil
}

func (e *Enricher) score(ctx context.Context, limiter *rate.Limiter, text string) (float64, error) {
	var p float64
	op := func() error {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		v, err := e.opts.Analyzer.Analyze(ctx, text)
		if err != nil {
			return err
		}
		p = v
		return nil
	}

	if e.opts.MaxRetries <= 0 {
		return p, op()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(e.opts.MaxRetries)), ctx))
	return p, err
}
