// Package kimi is a thin client for Moonshot AI's Kimi chat completions
// endpoint (OpenAI-compatible), implementing ai.Provider.
package kimi

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

const defaultBaseURL = "https://api.moonshot.ai/v1/chat/completions"

// Client calls the Kimi chat completions endpoint for a fixed model.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// New builds a Client. model is the Kimi model name, e.g. "moonshot-v1-8k".
func New(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the endpoint, for a tenant pointed at a
// self-hosted or regional Kimi-compatible gateway. A blank url is a
// no-op so callers can pass a tenant's possibly-empty override straight
// through.
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = url
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateOptimizationInsights implements ai.Provider.
func (c *Client) GenerateOptimizationInsights(ctx context.Context, m ai.PromptMetrics) (ai.Insight, error) {
	prompt := ai.BuildPrompt(m)
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a delivery metrics analyst. Reply only with the requested fenced json block."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return ai.Insight{}, fmt.Errorf("kimi: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return ai.Insight{}, fmt.Errorf("kimi: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ai.Insight{}, fmt.Errorf("kimi: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ai.Insight{}, fmt.Errorf("kimi: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return ai.Insight{}, fmt.Errorf("kimi: status %d: %s", resp.StatusCode, truncate(body, 300))
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ai.Insight{}, fmt.Errorf("kimi: decode response: %w", err)
	}
	if decoded.Error != nil {
		return ai.Insight{}, fmt.Errorf("kimi: api error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return ai.Insight{}, fmt.Errorf("kimi: empty response")
	}

	return ai.ParseFencedJSON(decoded.Choices[0].Message.Content)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
