// Package aiclient implements the AI inference server collaborator: a
// single POST /api/generate call that returns a best-effort parse of
// title/year/season/episode evidence for a filename.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opd-ai/cinetidy/internal/candidate"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL matches the spec's documented OLLAMA_BASE_URL default.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel matches the spec's documented OLLAMA_MODEL default.
	DefaultModel = "qwen2.5:7b"
	// DefaultTimeout is the AI-parse timeout from the concurrency model (180s).
	DefaultTimeout = 180 * time.Second
)

// Client is an Ollama-compatible AI inference client.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient constructs a Client, applying spec-documented defaults for
// any zero-value field.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// aiJSON is the shape the prompt asks the model to emit.
type aiJSON struct {
	TitleCJK   string  `json:"title_cjk"`
	TitleLatin string  `json:"title_latin"`
	Year       int     `json:"year"`
	Season     int     `json:"season"`
	Episode    int     `json:"episode"`
	Confidence float64 `json:"confidence"`
}

// Parse implements candidate.AIParser. AI failures are treated as
// non-fatal by the caller; this method only returns an error so the
// caller can log it, never to abort a plan.
func (c *Client) Parse(ctx context.Context, fileContext string) (candidate.AIResult, error) {
	prompt := fmt.Sprintf(
		"Extract media title metadata from this file path context. "+
			"Respond with a single JSON object with keys title_cjk, title_latin, "+
			"year, season, episode, confidence (0-1). Context: %s", fileContext)

	reqBody, err := json.Marshal(generateRequest{
		Model: c.model, Prompt: prompt, Stream: false, Format: "json",
	})
	if err != nil {
		return candidate.AIResult{}, fmt.Errorf("encode ai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return candidate.AIResult{}, fmt.Errorf("build ai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug().Str("model", c.model).Msg("calling ai inference server")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return candidate.AIResult{}, fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return candidate.AIResult{}, fmt.Errorf("read ai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return candidate.AIResult{}, fmt.Errorf("ai server returned status %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return candidate.AIResult{}, fmt.Errorf("decode ai envelope: %w", err)
	}

	var parsed aiJSON
	if err := json.Unmarshal([]byte(gen.Response), &parsed); err != nil {
		return candidate.AIResult{}, fmt.Errorf("decode ai json payload: %w", err)
	}

	return candidate.AIResult{
		TitleCJK:   parsed.TitleCJK,
		TitleLatin: parsed.TitleLatin,
		Year:       parsed.Year,
		Season:     parsed.Season,
		Episode:    parsed.Episode,
		Confidence: parsed.Confidence,
	}, nil
}
