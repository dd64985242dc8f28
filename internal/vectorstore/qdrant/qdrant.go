package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"supportbot/internal/domain"
	"supportbot/internal/rest"
)

// pointNamespace derives stable point UUIDs from record IDs; Qdrant rejects arbitrary string IDs.
var pointNamespace = uuid.MustParse("6f1c2a8e-4d1b-4b7e-9a8f-2c3d4e5f6a7b")

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection on first upsert if missing.
type Storage struct {
	rest       *rest.Client
	collection string
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	return &Storage{
		rest:       rest.NewClient(cfg.URL, cfg.Timeout, map[string]string{"api-key": cfg.APIKey}),
		collection: cfg.Collection,
	}
}

func (s *Storage) Name() string { return "qdrant" }

func (s *Storage) collectionPath() string {
	return "/collections/" + url.PathEscape(s.collection)
}

// Init creates the collection with the given vector size. Qdrant answers 409 when it already exists.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	err := s.rest.Do(ctx, http.MethodPut, s.collectionPath(), body, nil)
	var se *rest.StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		return nil
	}
	return err
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.Init(ctx, len(records[0].Vector)); err != nil {
		return fmt.Errorf("qdrant init: %w", err)
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     uuid.NewSHA1(pointNamespace, []byte(r.ID)).String(),
			"vector": r.Vector,
			"payload": map[string]any{
				"record_id":   r.ID,
				"content":     r.Content,
				"title":       r.Title,
				"url":         r.URL,
				"source":      r.Source,
				"topic":       r.Topic,
				"chunk_index": r.Position,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := s.rest.Do(ctx, http.MethodPut, s.collectionPath()+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		topK = domain.TopK
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.rest.Do(ctx, http.MethodPost, s.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, domain.NewDependencyError(domain.DependencyRetrieval, fmt.Errorf("qdrant search: %w", err))
	}
	results := make([]domain.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := domain.Match{Score: r.Score, ID: fmt.Sprint(r.ID)}
		if v, ok := r.Payload["record_id"].(string); ok {
			m.ID = v
		}
		if v, ok := r.Payload["title"].(string); ok {
			m.Title = v
		}
		if v, ok := r.Payload["url"].(string); ok {
			m.URL = v
		}
		if v, ok := r.Payload["content"].(string); ok {
			m.Content = v
		}
		results = append(results, m)
	}
	return results, nil
}

// Clear drops the collection; the next Upsert recreates it. A missing collection is already clear.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.rest.Do(ctx, http.MethodDelete, s.collectionPath(), nil, nil)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("qdrant clear: %w", err)
	}
	return nil
}

// Count reports the exact number of points; a missing collection holds none.
func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.rest.Do(ctx, http.MethodPost, s.collectionPath()+"/points/count", map[string]any{"exact": true}, &resp)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return resp.Result.Count, nil
}

func isNotFound(err error) bool {
	var se *rest.StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
