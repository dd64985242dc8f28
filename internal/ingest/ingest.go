package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"supportbot/internal/domain"
)

// Chunk is one entry of a content_chunks.json export. Older exports use text and
// category instead of content and topic.
type Chunk struct {
	Content    string `json:"content"`
	Text       string `json:"text"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Source     string `json:"source"`
	Topic      string `json:"topic"`
	Category   string `json:"category"`
	ChunkIndex Index  `json:"chunk_index"`
}

// Index is a chunk_index value. Exports store it as an integer, a float or a numeric
// string; anything else leaves it unset so the chunk's position in the file is used.
type Index struct {
	Value int
	Valid bool
}

func (i *Index) UnmarshalJSON(data []byte) error {
	*i = Index{}
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*i = Index{Value: int(f), Valid: true}
	return nil
}

// Body returns the chunk text, preferring content over text.
func (c Chunk) Body() string {
	if c.Content != "" {
		return c.Content
	}
	return c.Text
}

// LoadChunks reads a JSON array of chunks from path.
func LoadChunks(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read chunks")
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return chunks, nil
}

// Splitter breaks oversized text into smaller pieces.
type Splitter interface {
	Split(text string) []string
}

// Options tunes an Ingester. Pause is the minimum spacing between embedding batches.
// Reset empties the store before the first batch is written.
type Options struct {
	BatchSize    int
	Reset        bool
	Pause        time.Duration
	DefaultTitle string
	DefaultURL   string
}

// Stats summarizes an ingestion run.
type Stats struct {
	Chunks   int
	Skipped  int
	Records  int
	Uploaded int
	Failed   int
}

// Ingester embeds documentation chunks and writes them to a vector store.
type Ingester struct {
	embedder domain.BatchEmbedder
	store    domain.VectorStore
	splitter Splitter
	limiter  *rate.Limiter
	opts     Options
}

func New(embedder domain.BatchEmbedder, store domain.VectorStore, splitter Splitter, opts Options) *Ingester {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	limit := rate.Inf
	if opts.Pause > 0 {
		limit = rate.Every(opts.Pause)
	}
	return &Ingester{
		embedder: embedder,
		store:    store,
		splitter: splitter,
		limiter:  rate.NewLimiter(limit, 1),
		opts:     opts,
	}
}

// Run uploads chunks batch by batch. A batch that fails to embed or upsert is logged
// and skipped; only context cancellation aborts the run.
func (in *Ingester) Run(ctx context.Context, chunks []Chunk) (Stats, error) {
	stats := Stats{Chunks: len(chunks)}
	records := in.records(chunks, &stats)
	stats.Records = len(records)

	if in.opts.Reset {
		if err := in.reset(ctx); err != nil {
			return stats, err
		}
	}

	for start := 0; start < len(records); start += in.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := in.limiter.Wait(ctx); err != nil {
			return stats, err
		}
		end := min(start+in.opts.BatchSize, len(records))
		batch := records[start:end]

		if err := in.upload(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.Error().Err(err).Int("batch_start", start).Int("size", len(batch)).Msg("ingest batch failed")
			stats.Failed += len(batch)
			continue
		}
		stats.Uploaded += len(batch)
		log.Info().Int("uploaded", stats.Uploaded).Int("total", stats.Records).Msg("ingest progress")
	}
	return stats, nil
}

func (in *Ingester) reset(ctx context.Context) error {
	r, ok := in.store.(domain.Resettable)
	if !ok {
		return fmt.Errorf("vector store %s cannot be reset", in.store.Name())
	}
	if err := r.Clear(ctx); err != nil {
		return errors.Wrapf(err, "reset %s", in.store.Name())
	}
	log.Info().Str("vector_store", in.store.Name()).Msg("vector store cleared")
	return nil
}

func (in *Ingester) upload(ctx context.Context, batch []domain.Record) error {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.Content
	}
	vectors, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
	}
	for i := range batch {
		batch[i].Vector = vectors[i]
	}
	return in.store.Upsert(ctx, batch)
}

// records maps chunks to index records. Chunk n gets ID chunk_n; when the splitter
// breaks it up, piece k gets chunk_n_k.
func (in *Ingester) records(chunks []Chunk, stats *Stats) []domain.Record {
	var out []domain.Record
	for n, c := range chunks {
		body := strings.TrimSpace(c.Body())
		if body == "" {
			stats.Skipped++
			continue
		}
		base := domain.Record{
			Title:    firstNonEmpty(c.Title, in.opts.DefaultTitle),
			URL:      firstNonEmpty(c.URL, in.opts.DefaultURL),
			Source:   firstNonEmpty(c.Source, "unknown"),
			Topic:    firstNonEmpty(c.Topic, c.Category, "general"),
			Position: n,
		}
		if c.ChunkIndex.Valid {
			base.Position = c.ChunkIndex.Value
		}
		pieces := []string{body}
		if in.splitter != nil {
			pieces = in.splitter.Split(body)
		}
		for k, piece := range pieces {
			r := base
			r.Content = piece
			r.ID = fmt.Sprintf("chunk_%d", n)
			if len(pieces) > 1 {
				r.ID = fmt.Sprintf("chunk_%d_%d", n, k)
			}
			out = append(out, r)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
