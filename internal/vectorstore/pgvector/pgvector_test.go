package pgvector

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportbot/internal/domain"
)

func TestMigrations_QuoteTableName(t *testing.T) {
	s := New(nil, "support docs", 3)

	stmts := s.migrations()
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[1], `CREATE TABLE IF NOT EXISTS "support docs"`)
	assert.Contains(t, stmts[1], "vector(3)")
	assert.Contains(t, stmts[2], `"idx_support docs_embedding" ON "support docs"`)
}

// TestStorage_Postgres runs against a real database when SUPPORTBOT_TEST_DATABASE_URL is set.
func TestStorage_Postgres(t *testing.T) {
	dsn := os.Getenv("SUPPORTBOT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SUPPORTBOT_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	table := fmt.Sprintf("supportbot_test_%d", time.Now().UnixNano())
	s, err := Open(ctx, dsn, table, 2)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.db.Exec("DROP TABLE IF EXISTS " + s.table)
		s.Close()
	})

	require.NoError(t, s.Upsert(ctx, []domain.Record{
		{ID: "a", Vector: []float32{1, 0}, Content: "alpha", Title: "A", URL: "https://a"},
		{ID: "b", Vector: []float32{0, 1}, Content: "beta", Title: "B", URL: "https://b"},
	}))

	matches, err := s.Search(ctx, []float32{1, 0.1}, domain.TopK)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "alpha", matches[0].Content)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Clear(ctx))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
