package vectorstore

import (
	"context"
	"fmt"
	"time"

	"supportbot/internal/config"
	"supportbot/internal/domain"
	"supportbot/internal/vectorstore/memory"
	"supportbot/internal/vectorstore/pgvector"
	"supportbot/internal/vectorstore/pinecone"
	"supportbot/internal/vectorstore/qdrant"
)

// Open builds the vector index selected by cfg. The returned close function releases
// any connections the backend holds and is never nil.
func Open(ctx context.Context, cfg config.VectorStoreConfig) (domain.VectorStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Type {
	case "pinecone", "":
		if cfg.Pinecone == nil {
			return nil, nil, fmt.Errorf("pinecone config missing")
		}
		key, err := config.APIKey(cfg.Pinecone.APIKeyEnv)
		if err != nil {
			return nil, nil, err
		}
		return pinecone.NewStorage(pinecone.Config{
			Host:      cfg.Pinecone.Host,
			APIKey:    key,
			Namespace: cfg.Pinecone.Namespace,
			Timeout:   time.Duration(cfg.Pinecone.TimeoutSecs) * time.Second,
		}), noop, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, nil, fmt.Errorf("qdrant config missing")
		}
		var key string
		if cfg.Qdrant.APIKeyEnv != "" {
			k, err := config.APIKey(cfg.Qdrant.APIKeyEnv)
			if err != nil {
				return nil, nil, err
			}
			key = k
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     key,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), noop, nil
	case "pgvector":
		if cfg.PgVector == nil {
			return nil, nil, fmt.Errorf("pgvector config missing")
		}
		dsn, err := config.APIKey(cfg.PgVector.DSNEnv)
		if err != nil {
			return nil, nil, err
		}
		st, err := pgvector.Open(ctx, dsn, cfg.PgVector.Table, cfg.PgVector.Dimension)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "memory":
		if cfg.Memory == nil || cfg.Memory.Path == "" {
			return memory.NewStorage(), noop, nil
		}
		st, err := memory.Open(cfg.Memory.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
