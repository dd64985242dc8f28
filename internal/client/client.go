// Package client calls the query endpoint on behalf of the chat UI.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"supportbot/internal/domain"
	"supportbot/internal/rest"
)

// Client posts queries to a running server.
type Client struct {
	rest *rest.Client
}

// New creates a client for the server at baseURL, e.g. http://localhost:8000.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	return &Client{rest: rest.NewClient(baseURL, timeout, nil)}
}

// Query sends one question and returns the server's answer.
// Errors carry the server's error message when one is available.
func (c *Client) Query(ctx context.Context, query string) (*domain.QueryResponse, error) {
	var resp domain.QueryResponse
	err := c.rest.Do(ctx, http.MethodPost, "/api/query", map[string]string{"query": query}, &resp)
	if err != nil {
		var se *rest.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("query rejected (%d): %s", se.Code, se.Body)
		}
		return nil, fmt.Errorf("query: %w", err)
	}
	return &resp, nil
}
