package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"

	"supportbot/internal/domain"
)

// RAGServiceImpl answers queries with embed → retrieve → assemble → generate.
// It holds only the injected stateless collaborators and is safe for concurrent use.
type RAGServiceImpl struct {
	embedder  domain.Embedder
	retriever domain.Retriever
	generator domain.Generator
	defaults  SourceDefaults
	now       func() time.Time
}

func NewRAGService(embedder domain.Embedder, retriever domain.Retriever, generator domain.Generator, defaults SourceDefaults) *RAGServiceImpl {
	return &RAGServiceImpl{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		defaults:  defaults,
		now:       time.Now,
	}
}

// Answer runs the pipeline for one query. The first failing step aborts the request.
func (s *RAGServiceImpl) Answer(ctx context.Context, query string) (*domain.QueryResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Message: domain.ErrQueryRequired}
	}
	start := time.Now()

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", domain.NewDependencyError(domain.DependencyEmbedding, err))
	}
	if len(vector) == 0 {
		return nil, domain.NewDependencyError(domain.DependencyEmbedding, errors.New("empty embedding"))
	}
	log.Debug().Int("dimension", len(vector)).Dur("elapsed", time.Since(start)).Msg("query embedded")

	matches, err := s.retriever.Search(ctx, vector, domain.TopK)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", s.retriever.Name(), domain.NewDependencyError(domain.DependencyRetrieval, err))
	}
	if len(matches) > domain.TopK {
		matches = matches[:domain.TopK]
	}
	log.Debug().Int("matches", len(matches)).Dur("elapsed", time.Since(start)).Msg("documents retrieved")

	contextText, sources := Assemble(matches, s.defaults)

	answer, err := s.generator.Generate(ctx, contextText, query)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", domain.NewDependencyError(domain.DependencyGeneration, err))
	}
	log.Debug().Int("answer_len", len(answer)).Dur("elapsed", time.Since(start)).Msg("answer generated")

	return &domain.QueryResponse{
		Query:     query,
		Response:  answer,
		Sources:   sources,
		Timestamp: s.now(),
		Method:    domain.MethodRAG,
	}, nil
}
