package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/snarg/speechscope/internal/transcript"
)

const elevenLabsSTTEndpoint = "https://api.elevenlabs.io/v1/speech-to-text"

// ElevenLabsClient calls the ElevenLabs Speech-to-Text API with speaker
// diarization and word-level timestamps.
// Implements the Provider interface.
type ElevenLabsClient struct {
	apiKey      string
	model       string // "scribe_v1"
	language    string
	numSpeakers int
	endpoint    string
	client      *http.Client
}

// ElevenLabsOptions configures the ElevenLabs client.
type ElevenLabsOptions struct {
	APIKey      string
	Model       string
	Language    string
	NumSpeakers int
	Timeout     time.Duration
	Endpoint    string // defaults to the public API
}

// elevenlabsResponse is the JSON response from the ElevenLabs STT API.
type elevenlabsResponse struct {
	LanguageCode string           `json:"language_code"`
	Text         string           `json:"text"`
	Words        []elevenlabsWord `json:"words"`
}

// elevenlabsWord is a word, spacing or audio event entry from ElevenLabs.
type elevenlabsWord struct {
	Text      string  `json:"text"`
	Type      string  `json:"type"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID string  `json:"speaker_id"`
}

// NewElevenLabsClient creates a new ElevenLabs STT client.
func NewElevenLabsClient(opts ElevenLabsOptions) *ElevenLabsClient {
	if opts.Endpoint == "" {
		opts.Endpoint = elevenLabsSTTEndpoint
	}
	if opts.Model == "" {
		opts.Model = "scribe_v1"
	}
	return &ElevenLabsClient{
		apiKey:      opts.APIKey,
		model:       opts.Model,
		language:    opts.Language,
		numSpeakers: opts.NumSpeakers,
		endpoint:    opts.Endpoint,
		client:      &http.Client{Timeout: opts.Timeout},
	}
}

// Name returns the provider name.
func (el *ElevenLabsClient) Name() string { return "elevenlabs" }

// Model returns the configured model identifier.
func (el *ElevenLabsClient) Model() string { return el.model }

// Transcribe sends an audio file to the ElevenLabs STT API and returns the
// raw token stream, spacing tokens included.
func (el *ElevenLabsClient) Transcribe(ctx context.Context, audioPath string) (*transcript.RawResponse, error) {
	if el.apiKey == "" {
		return nil, ErrMissingCredential
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	w.WriteField("model_id", el.model)
	w.WriteField("diarize", "true")
	if el.numSpeakers > 0 {
		w.WriteField("num_speakers", strconv.Itoa(el.numSpeakers))
	}
	if el.language != "" {
		w.WriteField("language_code", el.language)
	}
	w.WriteField("timestamps_granularity", "word")

	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, el.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("xi-api-key", el.apiKey)

	resp, err := el.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: "elevenlabs", Status: resp.StatusCode, Body: string(body)}
	}

	var result elevenlabsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	tokens := make([]transcript.RawToken, len(result.Words))
	for i, ew := range result.Words {
		tokens[i] = transcript.RawToken{
			Text:      ew.Text,
			Type:      ew.Type,
			Start:     ew.Start,
			End:       ew.End,
			SpeakerID: ew.SpeakerID,
		}
	}

	return &transcript.RawResponse{
		Text:  result.Text,
		Words: tokens,
	}, nil
}
