// Package rest is the small JSON-over-HTTP client shared by the hosted index backends and the chat client.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Status string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s failed: %s", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s failed: %s: %s", e.Method, e.URL, e.Status, e.Body)
}

// Client sends JSON requests to a single base URL with a fixed set of headers.
type Client struct {
	baseURL string
	header  http.Header
	client  *http.Client
}

// NewClient creates a client. Empty header values are skipped.
func NewClient(baseURL string, timeout time.Duration, header map[string]string) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	h := make(http.Header, len(header))
	for k, v := range header {
		if v != "" {
			h.Set(k, v)
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  h,
		client:  &http.Client{Timeout: timeout},
	}
}

// Do sends body as JSON to path and decodes the response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method: method,
			URL:    url,
			Status: resp.Status,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", url, err)
	}
	return nil
}
