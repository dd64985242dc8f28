package domain

import (
	"context"
	"time"
)

// TopK is the number of nearest documents retrieved for every query.
const TopK = 5

// MethodRAG tags responses produced by the retrieval-augmented pipeline.
const MethodRAG = "RAG (Full Knowledge Base)"

// Record is a documentation chunk stored in the vector index together with its vector.
type Record struct {
	ID       string
	Vector   []float32
	Content  string
	Title    string
	URL      string
	Source   string
	Topic    string
	Position int
}

// Match is a nearest-neighbour hit returned by the vector index.
// Score is passed through unnormalized; higher means more similar.
type Match struct {
	ID      string
	Score   float64
	Title   string
	URL     string
	Content string
}

// Source is the public projection of a Match.
type Source struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	RelevanceScore float64 `json:"relevance_score"`
}

// QueryResponse is the payload returned for an answered query.
type QueryResponse struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Sources   []Source  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder embeds several texts in one remote call.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever performs top-K similarity search against a vector index.
// An empty result is valid and means no relevant documents were found.
type Retriever interface {
	Name() string
	Search(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

// VectorStore is a Retriever that can also be written to.
type VectorStore interface {
	Retriever
	Upsert(ctx context.Context, records []Record) error
}

// Resettable is a VectorStore that can drop every stored record before a rebuild.
type Resettable interface {
	Clear(ctx context.Context) error
}

// Counter is implemented by indexes that can report how many records they hold.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Generator produces an answer for a query from assembled documentation context.
type Generator interface {
	Generate(ctx context.Context, contextText, query string) (string, error)
}

// QueryService answers a single user query.
type QueryService interface {
	Answer(ctx context.Context, query string) (*QueryResponse, error)
}
