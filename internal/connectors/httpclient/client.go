// Package httpclient is the shared HTTP wrapper every vendor connector
// builds on: a configured *http.Client with a fixed timeout and a small
// Do/decode helper that classifies vendor responses into the shared error
// taxonomy instead of just returning raw errors.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pulseerrors "github.com/pulseplatform/pulse/internal/errors"
)

// AuthStyle selects how Client attaches credentials to a request.
type AuthStyle int

const (
	// AuthBearer sets "Authorization: Bearer <token>".
	AuthBearer AuthStyle = iota
	// AuthBasic sets "Authorization: Basic base64(username:token)", used by
	// Jira (email:token) and ADO (":"+pat).
	AuthBasic
	// AuthNone attaches no auth header (e.g. a pre-signed webhook URL).
	AuthNone
)

// Client is a configured vendor HTTP client. One is constructed per
// SourceConfiguration by the owning vendor package.
type Client struct {
	BaseURL  string
	Token    string
	Username string
	Style    AuthStyle
	http     *http.Client
}

// New builds a Client with a fixed 15s timeout.
func New(baseURL, username, token string, style AuthStyle) *Client {
	return &Client{
		BaseURL:  baseURL,
		Token:    token,
		Username: username,
		Style:    style,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Get issues a GET against path (joined to BaseURL) and decodes the JSON
// body into out. Non-2xx responses are classified into the shared error
// taxonomy via classifyStatus.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON-encoded body and decodes the response.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pulseerrors.Tagf(pulseerrors.PermanentVendorError, "httpclient: encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return pulseerrors.Tagf(pulseerrors.ConfigError, "httpclient: build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return pulseerrors.Tagf(pulseerrors.TransientVendorError, "httpclient: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pulseerrors.Tagf(pulseerrors.TransientVendorError, "httpclient: read body: %v", err)
	}

	if err := classifyStatus(resp.StatusCode, raw); err != nil {
		return err
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pulseerrors.Tagf(pulseerrors.PermanentVendorError, "httpclient: decode response: %v", err)
	}
	return nil
}

func (c *Client) applyAuth(req *http.Request) {
	switch c.Style {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.Token)
	case AuthBasic:
		req.SetBasicAuth(c.Username, c.Token)
	case AuthNone:
	}
}

// classifyStatus maps an HTTP status code to the shared error taxonomy.
func classifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pulseerrors.Tagf(pulseerrors.AuthError, "httpclient: status %d: %s", status, truncate(body))
	case status >= 500:
		return pulseerrors.Tagf(pulseerrors.TransientVendorError, "httpclient: status %d: %s", status, truncate(body))
	case status >= 400:
		return pulseerrors.Tagf(pulseerrors.PermanentVendorError, "httpclient: status %d: %s", status, truncate(body))
	default:
		return fmt.Errorf("httpclient: unexpected status %d", status)
	}
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
