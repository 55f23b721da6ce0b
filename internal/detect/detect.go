// Package detect scores text for the likelihood it was machine-generated.
package detect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrAnalysis wraps every failure of a live analysis call.
	ErrAnalysis = errors.New("ai analysis failed")
	// ErrMissingCredential is returned when the live backend has no API key.
	ErrMissingCredential = errors.New("GPTZERO_API_KEY is not set")
)

// placeholderKey is the value shipped in example .env files.
const placeholderKey = "your_gptzero_api_key_here"

// Analyzer returns a probability in [0,1] that text was machine-generated.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (float64, error)
	Name() string // "gptzero" or "mock"
}

// APIError is a non-2xx response from the live backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gptzero API error (status %d): %s", e.Status, e.Body)
}

// Options selects and configures the analyzer.
type Options struct {
	APIKey  string
	URL     string
	Timeout time.Duration
	Log     zerolog.Logger
}

// HasCredential reports whether key is a usable, non-placeholder credential.
func HasCredential(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && !strings.Contains(key, placeholderKey)
}

// New picks the analyzer once at startup: the live GPTZero client when a
// real credential is configured, the local estimator otherwise. The bool
// reports whether the mock is active so callers can record it.
func New(opts Options) (Analyzer, bool) {
	log := opts.Log.With().Str("component", "analyzer").Logger()
	if HasCredential(opts.APIKey) {
		log.Info().Str("analyzer", "gptzero").Msg("using live AI-probability analyzer")
		return NewGPTZeroClient(opts.APIKey, opts.URL, opts.Timeout, log), false
	}
	log.Warn().Str("analyzer", "mock").Msg("GPTZERO_API_KEY not configured, using mock AI-probability analyzer")
	return NewMockAnalyzer(log), true
}
