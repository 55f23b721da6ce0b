package detect

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// mockKeywords raise the estimate when present in the text.
var mockKeywords = []string{
	"algorithm", "neural", "network", "intelligence", "artificial",
	"model", "trained", "generate", "language", "processing",
	"data", "analysis", "prediction", "machine", "learning",
}

const (
	mockCeiling       = 0.95
	mockLengthCap     = 0.2
	mockKeywordWeight = 0.05
	mockKeywordCap    = 0.3
)

// MockAnalyzer estimates an AI probability locally from text length and
// keyword density plus random noise. It needs no network or credential and
// never fails. Output is intentionally not reproducible.
type MockAnalyzer struct {
	minDelay time.Duration
	maxDelay time.Duration
	float    func() float64
	log      zerolog.Logger
}

// NewMockAnalyzer creates an estimator that sleeps 300-1000ms per call to
// mimic network latency.
func NewMockAnalyzer(log zerolog.Logger) *MockAnalyzer {
	return &MockAnalyzer{
		minDelay: 300 * time.Millisecond,
		maxDelay: 1000 * time.Millisecond,
		float:    rand.Float64,
		log:      log,
	}
}

// WithDelay overrides the simulated latency range.
func (m *MockAnalyzer) WithDelay(lo, hi time.Duration) *MockAnalyzer {
	m.minDelay, m.maxDelay = lo, hi
	return m
}

// Name returns the analyzer name.
func (m *MockAnalyzer) Name() string { return "mock" }

// Analyze waits for the simulated latency and returns an estimate in [0, 0.95].
// A cancelled context cuts the wait short; the estimate is still returned.
func (m *MockAnalyzer) Analyze(ctx context.Context, text string) (float64, error) {
	if d := m.delay(); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}

	p := m.estimate(text)
	m.log.Debug().Str("analyzer", "mock").Int("chars", len(text)).Float64("ai_probability", p).Msg("mock analysis complete")
	return p, nil
}

func (m *MockAnalyzer) delay() time.Duration {
	if m.maxDelay <= m.minDelay {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.float()*float64(m.maxDelay-m.minDelay))
}

func (m *MockAnalyzer) estimate(text string) float64 {
	base := 0.05 + m.float()*0.1
	length := math.Min(float64(len(text))/1000, mockLengthCap)

	lower := strings.ToLower(text)
	matches := 0
	for _, kw := range mockKeywords {
		if strings.Contains(lower, kw) {
			matches++
		}
	}
	keywords := math.Min(float64(matches)*mockKeywordWeight, mockKeywordCap)

	p := base + length + keywords
	p += m.float()*0.1 - 0.05
	return math.Max(0, math.Min(p, mockCeiling))
}
