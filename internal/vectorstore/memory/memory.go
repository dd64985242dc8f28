package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"supportbot/internal/domain"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// When created with a path, records are loaded from and persisted to a JSON snapshot.
type Storage struct {
	mu      sync.RWMutex
	path    string
	index   map[string]int
	records []domain.Record
}

func NewStorage() *Storage { return &Storage{index: make(map[string]int)} }

// Open loads the snapshot at path. A missing file yields an empty store bound to path.
func Open(path string) (*Storage, error) {
	s := NewStorage()
	s.path = path
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	var records []snapshotRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	for _, r := range records {
		s.put(r.toDomain())
	}
	return s, nil
}

func (s *Storage) Name() string { return "memory" }

// Len returns the number of stored records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("record %s has no vector", r.ID)
		}
		if len(s.records) > 0 && len(r.Vector) != len(s.records[0].Vector) {
			return errors.New("vector dimension mismatch")
		}
		s.put(r)
	}
	if s.path == "" {
		return nil
	}
	return s.save()
}

// Clear removes every record and rewrites the snapshot when one is bound.
func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.index = make(map[string]int)
	if s.path == "" {
		return nil
	}
	return s.save()
}

func (s *Storage) Count(ctx context.Context) (int, error) { return s.Len(), nil }

func (s *Storage) put(r domain.Record) {
	if i, ok := s.index[r.ID]; ok {
		s.records[i] = r
		return
	}
	s.index[r.ID] = len(s.records)
	s.records = append(s.records, r)
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = domain.TopK
	}
	scores := make([]float64, len(s.records))
	for i := range s.records {
		scores[i] = cosine(s.records[i].Vector, vector)
	}
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.Match, 0, topK)
	for _, j := range idxs[:topK] {
		r := s.records[j]
		results = append(results, domain.Match{ID: r.ID, Score: scores[j], Title: r.Title, URL: r.URL, Content: r.Content})
	}
	return results, nil
}

func (s *Storage) save() error {
	out := make([]snapshotRecord, len(s.records))
	for i, r := range s.records {
		out[i] = fromDomain(r)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

type snapshotRecord struct {
	ID         string    `json:"id"`
	Values     []float32 `json:"values"`
	Content    string    `json:"content"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Source     string    `json:"source,omitempty"`
	Topic      string    `json:"topic,omitempty"`
	ChunkIndex int       `json:"chunk_index"`
}

func (r snapshotRecord) toDomain() domain.Record {
	return domain.Record{ID: r.ID, Vector: r.Values, Content: r.Content, Title: r.Title, URL: r.URL, Source: r.Source, Topic: r.Topic, Position: r.ChunkIndex}
}

func fromDomain(r domain.Record) snapshotRecord {
	return snapshotRecord{ID: r.ID, Values: r.Vector, Content: r.Content, Title: r.Title, URL: r.URL, Source: r.Source, Topic: r.Topic, ChunkIndex: r.Position}
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// argsortDesc orders indexes by descending score; equal scores keep insertion order.
func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool { return vals[idxs[i]] > vals[idxs[j]] })
	return idxs
}
