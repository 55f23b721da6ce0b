// Package transcribe sends audio to a speech-to-text service.
package transcribe

import (
	"context"
	"errors"
	"fmt"

	"github.com/snarg/speechscope/internal/transcript"
)

// ErrMissingCredential is returned when no STT API key is configured.
var ErrMissingCredential = errors.New("ELEVENLABS_API_KEY is not set")

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string) (*transcript.RawResponse, error)
	Name() string  // "elevenlabs"
	Model() string // model identifier for logs
}

// APIError is a non-2xx response from an STT provider.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Body)
}
