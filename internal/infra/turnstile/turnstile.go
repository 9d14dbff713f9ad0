// Package turnstile verifies Cloudflare Turnstile challenge tokens.
package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sifan077/spectra/config"
)

// DefaultEndpoint is Cloudflare's siteverify URL.
const DefaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// RejectedError is returned when Cloudflare answered and refused the token.
type RejectedError struct {
	Codes []string
}

func (e *RejectedError) Error() string {
	return "Turnstile error: " + strings.Join(e.Codes, ", ")
}

// Client talks to the siteverify endpoint.
type Client struct {
	enabled  bool
	secret   string
	endpoint string
	http     *http.Client
}

// New returns a client for cfg. A nil hc gets a client with a short timeout.
func New(cfg config.TurnstileConfig, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		enabled:  cfg.Enabled,
		secret:   cfg.SecretKey,
		endpoint: endpoint,
		http:     hc,
	}
}

// Enabled reports whether guest creation through Turnstile is switched on.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks token. It returns *RejectedError when Cloudflare refuses it
// and a plain error when the endpoint could not be reached or understood.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) error {
	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("turnstile: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("turnstile: siteverify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("turnstile: siteverify returned %s", resp.Status)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("turnstile: decode response: %w", err)
	}
	if !out.Success {
		return &RejectedError{Codes: out.ErrorCodes}
	}
	return nil
}
