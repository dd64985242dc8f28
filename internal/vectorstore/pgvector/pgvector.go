// Package pgvector stores documentation chunks in PostgreSQL using the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"supportbot/internal/domain"
)

// Storage is a PostgreSQL-backed vector index. Scores are cosine similarity (1 - cosine distance).
type Storage struct {
	db        *sql.DB
	table     string
	dimension int
}

// Open connects to dsn and creates the extension, table and HNSW index when missing.
func Open(ctx context.Context, dsn, table string, dimension int) (*Storage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	s := New(db, table, dimension)
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool without running migrations.
func New(db *sql.DB, table string, dimension int) *Storage {
	return &Storage{db: db, table: pgx.Identifier{table}.Sanitize(), dimension: dimension}
}

func (s *Storage) Name() string { return "pgvector" }

func (s *Storage) migrate(ctx context.Context) error {
	for _, stmt := range s.migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate")
		}
	}
	return nil
}

func (s *Storage) migrations() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			topic TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL DEFAULT 0,
			embedding vector(%d) NOT NULL
		)`, s.table, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{"idx_" + unquote(s.table) + "_embedding"}.Sanitize(), s.table),
	}
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin upsert")
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, title, url, source, topic, chunk_index, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			source = EXCLUDED.source,
			topic = EXCLUDED.topic,
			chunk_index = EXCLUDED.chunk_index,
			embedding = EXCLUDED.embedding`, s.table)
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, stmt,
			r.ID, r.Content, r.Title, r.URL, r.Source, r.Topic, r.Position, pgvector.NewVector(r.Vector),
		); err != nil {
			return errors.Wrapf(err, "failed to upsert record %s", r.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit upsert")
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		topK = domain.TopK
	}
	query := fmt.Sprintf(`
		SELECT id, content, title, url, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, s.table)

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, domain.NewDependencyError(domain.DependencyRetrieval, errors.Wrap(err, "failed to vector search"))
	}
	defer rows.Close()

	matches := []domain.Match{}
	for rows.Next() {
		var m domain.Match
		if err := rows.Scan(&m.ID, &m.Content, &m.Title, &m.URL, &m.Score); err != nil {
			return nil, domain.NewDependencyError(domain.DependencyRetrieval, errors.Wrap(err, "failed to scan match"))
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDependencyError(domain.DependencyRetrieval, errors.Wrap(err, "failed to read matches"))
	}
	return matches, nil
}

// Clear empties the table, keeping its schema and index.
func (s *Storage) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE TABLE "+s.table)
	return errors.Wrap(err, "failed to truncate")
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count records")
	}
	return n, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.db.Close()
}

func unquote(ident string) string {
	if len(ident) >= 2 && ident[0] == '"' && ident[len(ident)-1] == '"' {
		return ident[1 : len(ident)-1]
	}
	return ident
}
