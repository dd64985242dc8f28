package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportbot/internal/chunker"
	"supportbot/internal/domain"
	"supportbot/internal/logging"
	"supportbot/internal/vectorstore/memory"
)

type fakeEmbedder struct {
	calls   int
	failOn  map[int]bool
	batches [][]string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, texts)
	if f.failOn[f.calls] {
		return nil, errors.New("rate limited")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type recordingStore struct {
	records []domain.Record
}

func (s *recordingStore) Name() string { return "recording" }

func (s *recordingStore) Search(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	return nil, nil
}

func (s *recordingStore) Upsert(ctx context.Context, records []domain.Record) error {
	s.records = append(s.records, records...)
	return nil
}

func index(v int) Index { return Index{Value: v, Valid: true} }

func TestLoadChunks_ReadsExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content_chunks.json")
	data := `[
		{"content": "Mint with the API.", "title": "Minting", "url": "https://docs.example.com/mint", "topic": "nft", "chunk_index": 7},
		{"text": "Wallets overview.", "category": "wallets"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	chunks, err := LoadChunks(path)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Mint with the API.", chunks[0].Body())
	assert.Equal(t, index(7), chunks[0].ChunkIndex)
	assert.Equal(t, "Wallets overview.", chunks[1].Body())
	assert.False(t, chunks[1].ChunkIndex.Valid)
}

func TestLoadChunks_LenientChunkIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content_chunks.json")
	data := `[
		{"content": "a", "chunk_index": 3.0},
		{"content": "b", "chunk_index": "4"},
		{"content": "c", "chunk_index": "first"},
		{"content": "d", "chunk_index": null},
		{"content": "e", "chunk_index": {"n": 1}}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	chunks, err := LoadChunks(path)
	require.NoError(t, err)
	require.Len(t, chunks, 5)
	assert.Equal(t, index(3), chunks[0].ChunkIndex)
	assert.Equal(t, index(4), chunks[1].ChunkIndex)
	for _, c := range chunks[2:] {
		assert.False(t, c.ChunkIndex.Valid, c.Content)
	}
}

func TestLoadChunks_Errors(t *testing.T) {
	_, err := LoadChunks(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o644))
	_, err = LoadChunks(path)
	assert.Error(t, err)
}

func TestRun_MapsMetadataAndDefaults(t *testing.T) {
	logging.Discard()
	store := &recordingStore{}
	in := New(&fakeEmbedder{}, store, nil, Options{DefaultTitle: "Docs", DefaultURL: "https://docs.example.com"})

	stats, err := in.Run(context.Background(), []Chunk{
		{Content: "Mint with the API.", Title: "Minting", URL: "https://docs.example.com/mint", Source: "guides", Topic: "nft", ChunkIndex: index(7)},
		{Content: "   "},
		{Text: "Wallets overview.", Category: "wallets"},
	})
	require.NoError(t, err)

	assert.Equal(t, Stats{Chunks: 3, Skipped: 1, Records: 2, Uploaded: 2}, stats)
	require.Len(t, store.records, 2)

	first := store.records[0]
	assert.Equal(t, "chunk_0", first.ID)
	assert.Equal(t, "Minting", first.Title)
	assert.Equal(t, "guides", first.Source)
	assert.Equal(t, "nft", first.Topic)
	assert.Equal(t, 7, first.Position)
	assert.Equal(t, []float32{18, 1}, first.Vector)

	second := store.records[1]
	assert.Equal(t, "chunk_2", second.ID)
	assert.Equal(t, "Docs", second.Title)
	assert.Equal(t, "https://docs.example.com", second.URL)
	assert.Equal(t, "unknown", second.Source)
	assert.Equal(t, "wallets", second.Topic)
	assert.Equal(t, 2, second.Position)
}

func TestRun_FailedBatchIsSkipped(t *testing.T) {
	logging.Discard()
	emb := &fakeEmbedder{failOn: map[int]bool{2: true}}
	store := &recordingStore{}
	in := New(emb, store, nil, Options{BatchSize: 2})

	chunks := make([]Chunk, 5)
	for i := range chunks {
		chunks[i] = Chunk{Content: strings.Repeat("x", i+1)}
	}
	stats, err := in.Run(context.Background(), chunks)
	require.NoError(t, err)

	assert.Equal(t, 3, emb.calls)
	assert.Equal(t, 3, stats.Uploaded)
	assert.Equal(t, 2, stats.Failed)
	var ids []string
	for _, r := range store.records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"chunk_0", "chunk_1", "chunk_4"}, ids)
}

func TestRun_SplitsOversizedChunks(t *testing.T) {
	logging.Discard()
	store := &recordingStore{}
	in := New(&fakeEmbedder{}, store, chunker.NewSentenceChunker(21, 0), Options{})

	_, err := in.Run(context.Background(), []Chunk{
		{Content: "Aaaa aaaa. Bbbb bbbb. Cccc cccc. Dddd dddd.", Title: "Long"},
		{Content: "Short."},
	})
	require.NoError(t, err)

	require.Len(t, store.records, 3)
	assert.Equal(t, "chunk_0_0", store.records[0].ID)
	assert.Equal(t, "Aaaa aaaa. Bbbb bbbb.", store.records[0].Content)
	assert.Equal(t, "chunk_0_1", store.records[1].ID)
	assert.Equal(t, "Long", store.records[1].Title)
	assert.Equal(t, "chunk_1", store.records[2].ID)
}

func TestRun_CancelledContext(t *testing.T) {
	logging.Discard()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emb := &fakeEmbedder{}
	_, err := New(emb, &recordingStore{}, nil, Options{}).Run(ctx, []Chunk{{Content: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, emb.calls)
}

func TestRun_IntoMemoryStoreIsSearchable(t *testing.T) {
	logging.Discard()
	store := memory.NewStorage()
	in := New(&fakeEmbedder{}, store, nil, Options{})

	_, err := in.Run(context.Background(), []Chunk{
		{Content: "tiny", Title: "A"},
		{Content: "a much longer piece of documentation", Title: "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	matches, err := store.Search(context.Background(), []float32{36, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "B", matches[0].Title)
}

func TestRun_PauseSpacesBatches(t *testing.T) {
	logging.Discard()
	emb := &fakeEmbedder{}
	in := New(emb, &recordingStore{}, nil, Options{BatchSize: 1, Pause: 20 * time.Millisecond})

	start := time.Now()
	stats, err := in.Run(context.Background(), []Chunk{{Content: "a"}, {Content: "b"}, {Content: "c"}})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Uploaded)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestRun_ResetClearsStoreFirst(t *testing.T) {
	logging.Discard()
	ctx := context.Background()
	store := memory.NewStorage()
	require.NoError(t, store.Upsert(ctx, []domain.Record{{ID: "stale", Vector: []float32{1, 1}, Content: "old"}}))

	stats, err := New(&fakeEmbedder{}, store, nil, Options{Reset: true}).Run(ctx, []Chunk{{Content: "fresh"}})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Uploaded)
	assert.Equal(t, 1, store.Len())
	matches, err := store.Search(ctx, []float32{5, 1}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "chunk_0", matches[0].ID)
}

func TestRun_WithoutResetKeepsExistingRecords(t *testing.T) {
	logging.Discard()
	ctx := context.Background()
	store := memory.NewStorage()
	require.NoError(t, store.Upsert(ctx, []domain.Record{{ID: "stale", Vector: []float32{1, 1}, Content: "old"}}))

	_, err := New(&fakeEmbedder{}, store, nil, Options{}).Run(ctx, []Chunk{{Content: "fresh"}})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}

func TestRun_ResetUnsupported(t *testing.T) {
	logging.Discard()
	emb := &fakeEmbedder{}
	_, err := New(emb, &recordingStore{}, nil, Options{Reset: true}).Run(context.Background(), []Chunk{{Content: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be reset")
	assert.Zero(t, emb.calls)
}
