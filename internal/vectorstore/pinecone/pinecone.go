package pinecone

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"supportbot/internal/domain"
	"supportbot/internal/rest"
)

// Storage talks to a Pinecone index through its data-plane REST API.
type Storage struct {
	rest      *rest.Client
	namespace string
}

// Config holds the index host (https://<index>-<project>.svc.<env>.pinecone.io) and credentials.
type Config struct {
	Host      string
	APIKey    string
	Namespace string
	Timeout   time.Duration
}

func NewStorage(cfg Config) *Storage {
	return &Storage{
		rest:      rest.NewClient(cfg.Host, cfg.Timeout, map[string]string{"Api-Key": cfg.APIKey}),
		namespace: cfg.Namespace,
	}
}

func (s *Storage) Name() string { return "pinecone" }

type metadata struct {
	Content    string `json:"content"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Source     string `json:"source,omitempty"`
	Topic      string `json:"topic,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
}

// matchMetadata holds the fields Search reads. Other metadata keys are ignored
// whatever their stored type.
type matchMetadata struct {
	Content string `json:"content"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata *matchMetadata `json:"metadata"`
	} `json:"matches"`
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		topK = domain.TopK
	}
	req := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
		"includeValues":   false,
	}
	if s.namespace != "" {
		req["namespace"] = s.namespace
	}
	var resp queryResponse
	if err := s.rest.Do(ctx, http.MethodPost, "/query", req, &resp); err != nil {
		return nil, domain.NewDependencyError(domain.DependencyRetrieval, fmt.Errorf("pinecone query: %w", err))
	}
	matches := make([]domain.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		match := domain.Match{ID: m.ID, Score: m.Score}
		if m.Metadata != nil {
			match.Title = m.Metadata.Title
			match.URL = m.Metadata.URL
			match.Content = m.Metadata.Content
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	type vector struct {
		ID       string    `json:"id"`
		Values   []float32 `json:"values"`
		Metadata metadata  `json:"metadata"`
	}
	vectors := make([]vector, len(records))
	for i, r := range records {
		vectors[i] = vector{
			ID:     r.ID,
			Values: r.Vector,
			Metadata: metadata{
				Content:    r.Content,
				Title:      r.Title,
				URL:        r.URL,
				Source:     r.Source,
				Topic:      r.Topic,
				ChunkIndex: r.Position,
			},
		}
	}
	body := map[string]any{"vectors": vectors}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	if err := s.rest.Do(ctx, http.MethodPost, "/vectors/upsert", body, nil); err != nil {
		return fmt.Errorf("pinecone upsert: %w", err)
	}
	return nil
}

// Clear deletes every vector in the configured namespace.
func (s *Storage) Clear(ctx context.Context) error {
	body := map[string]any{"deleteAll": true}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	if err := s.rest.Do(ctx, http.MethodPost, "/vectors/delete", body, nil); err != nil {
		return fmt.Errorf("pinecone clear: %w", err)
	}
	return nil
}

// Count reports the vectors in the configured namespace, or in the whole index when none is set.
func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Namespaces map[string]struct {
			VectorCount int `json:"vectorCount"`
		} `json:"namespaces"`
		TotalVectorCount int `json:"totalVectorCount"`
	}
	if err := s.rest.Do(ctx, http.MethodPost, "/describe_index_stats", map[string]any{}, &resp); err != nil {
		return 0, fmt.Errorf("pinecone stats: %w", err)
	}
	if s.namespace != "" {
		return resp.Namespaces[s.namespace].VectorCount, nil
	}
	return resp.TotalVectorCount, nil
}
