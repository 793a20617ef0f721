// Package gemini is a thin client for Google's Gemini generateContent
// API, implementing ai.Provider.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pulseplatform/pulse/internal/ai"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Client calls the Gemini generateContent endpoint for a fixed model.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// New builds a Client. model is the Gemini model name, e.g.
// "gemini-1.5-flash".
func New(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the endpoint, for a tenant pointed at a
// self-hosted or regional Gemini-compatible gateway. A blank url is a
// no-op so callers can pass a tenant's possibly-empty override straight
// through.
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = url
	}
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateOptimizationInsights implements ai.Provider.
func (c *Client) GenerateOptimizationInsights(ctx context.Context, m ai.PromptMetrics) (ai.Insight, error) {
	prompt := ai.BuildPrompt(m)
	reqBody := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return ai.Insight{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return ai.Insight{}, fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ai.Insight{}, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ai.Insight{}, fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return ai.Insight{}, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, truncate(body, 300))
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ai.Insight{}, fmt.Errorf("gemini: decode response: %w", err)
	}
	if decoded.Error != nil {
		return ai.Insight{}, fmt.Errorf("gemini: api error: %s", decoded.Error.Message)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return ai.Insight{}, fmt.Errorf("gemini: empty response")
	}

	return ai.ParseFencedJSON(decoded.Candidates[0].Content.Parts[0].Text)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
