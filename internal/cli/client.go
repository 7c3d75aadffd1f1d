package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the server's JSON API
type Client struct {
	baseURL    string
	httpClient *http.Client
	trace      io.Writer // receives one line per request when set
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is an error the server reported in its JSON error envelope
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// ErrorResponse is the server's error envelope
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// decodeError turns a failed response into an *APIError when the body
// carries one, or a plain error otherwise
func decodeError(status int, body []byte) error {
	var envelope ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		envelope.Error.Status = status
		return &envelope.Error
	}
	return fmt.Errorf("HTTP %d: %s", status, strings.TrimSpace(string(body)))
}

// raw performs a request and returns the body of a successful response
func (c *Client) raw(ctx context.Context, method, path, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if c.trace != nil {
		_, _ = fmt.Fprintf(c.trace, "%s %s -> %d (%s)\n", method, req.URL, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

// Do performs a JSON request, decoding a non-empty body into result
func (c *Client) Do(ctx context.Context, method, path string, result any) error {
	body, err := c.raw(ctx, method, path, "application/json")
	if err != nil {
		return err
	}
	if result == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.Do(ctx, http.MethodGet, path, result)
}

func (c *Client) Post(ctx context.Context, path string, result any) error {
	return c.Do(ctx, http.MethodPost, path, result)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// QR fetches the PNG QR code for a lobby's join link
func (c *Client) QR(ctx context.Context, code string) ([]byte, error) {
	return c.raw(ctx, http.MethodGet, lobbyPath(code)+"/qr", "image/png")
}
