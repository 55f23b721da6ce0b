package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultGPTZeroURL is the GPTZero text prediction endpoint.
const DefaultGPTZeroURL = "https://api.gptzero.me/v2/predict/text"

// GPTZeroClient calls the GPTZero text prediction API.
// Implements the Analyzer interface. One request per call, no retries.
type GPTZeroClient struct {
	apiKey string
	url    string
	client *http.Client
	log    zerolog.Logger
}

type gptzeroRequest struct {
	Document string `json:"document"`
}

type gptzeroResponse struct {
	Documents []struct {
		CompletelyGeneratedProb *float64 `json:"completely_generated_prob"`
	} `json:"documents"`
}

// NewGPTZeroClient creates a GPTZero client. An empty url uses DefaultGPTZeroURL.
func NewGPTZeroClient(apiKey, url string, timeout time.Duration, log zerolog.Logger) *GPTZeroClient {
	if url == "" {
		url = DefaultGPTZeroURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GPTZeroClient{
		apiKey: apiKey,
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Name returns the analyzer name.
func (c *GPTZeroClient) Name() string { return "gptzero" }

// Analyze sends text to GPTZero and returns the first document's
// completely_generated_prob. A response without a score yields 0.
func (c *GPTZeroClient) Analyze(ctx context.Context, text string) (float64, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("%w: %w", ErrAnalysis, ErrMissingCredential)
	}

	payload, err := json.Marshal(gptzeroRequest{Document: text})
	if err != nil {
		return 0, fmt.Errorf("%w: encode request: %w", ErrAnalysis, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %w", ErrAnalysis, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	c.log.Debug().Int("chars", len(text)).Msg("analyzing text with gptzero")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: gptzero request: %w", ErrAnalysis, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: read response: %w", ErrAnalysis, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %w", ErrAnalysis, &APIError{Status: resp.StatusCode, Body: string(body)})
	}

	var result gptzeroResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("%w: decode response: %w", ErrAnalysis, err)
	}

	if len(result.Documents) == 0 || result.Documents[0].CompletelyGeneratedProb == nil {
		c.log.Warn().Msg("gptzero response has no score, defaulting to 0")
		return 0, nil
	}
	p := *result.Documents[0].CompletelyGeneratedProb
	c.log.Debug().Float64("ai_probability", p).Msg("gptzero analysis complete")
	return p, nil
}
