package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportbot/internal/domain"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs/points/search", r.URL.Path)
		assert.Equal(t, "qk", r.Header.Get("api-key"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 5, req["limit"])
		_, _ = w.Write([]byte(`{"result":[
			{"id":"8a3c","score":0.91,"payload":{"record_id":"chunk_1","content":"c1","title":"t1","url":"u1"}},
			{"id":42,"score":0.77,"payload":{"content":"c2"}}
		]}`))
	}))
	defer server.Close()

	s := NewStorage(Config{URL: server.URL, APIKey: "qk", Collection: "docs"})
	matches, err := s.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, domain.Match{ID: "chunk_1", Score: 0.91, Title: "t1", URL: "u1", Content: "c1"}, matches[0])
	assert.Equal(t, "42", matches[1].ID)
	assert.Equal(t, "c2", matches[1].Content)
}

func TestSearch_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewStorage(Config{URL: server.URL, Collection: "docs"}).Search(context.Background(), []float32{1}, 5)
	require.Error(t, err)
	assert.True(t, domain.IsDependency(err))
}

func TestUpsert_CreatesCollectionThenWritesPoints(t *testing.T) {
	var calls []string
	var points struct {
		Points []struct {
			ID      string         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/collections/docs":
			w.WriteHeader(http.StatusConflict)
		case "/collections/docs/points":
			assert.Equal(t, "true", r.URL.Query().Get("wait"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&points))
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}
	}))
	defer server.Close()

	s := NewStorage(Config{URL: server.URL, Collection: "docs"})
	err := s.Upsert(context.Background(), []domain.Record{{ID: "chunk_0", Vector: []float32{1, 2}, Content: "hello"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"PUT /collections/docs", "PUT /collections/docs/points"}, calls)
	require.Len(t, points.Points, 1)
	assert.Len(t, points.Points[0].ID, 36)
	assert.Equal(t, "chunk_0", points.Points[0].Payload["record_id"])
}

func TestInit_InvalidDimension(t *testing.T) {
	assert.Error(t, NewStorage(Config{URL: "http://unused"}).Init(context.Background(), 0))
}

func TestClear(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNotFound} {
		var got string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Method + " " + r.URL.Path
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"result":true}`))
		}))

		err := NewStorage(Config{URL: server.URL, Collection: "docs"}).Clear(context.Background())
		server.Close()

		require.NoError(t, err, status)
		assert.Equal(t, "DELETE /collections/docs", got)
	}
}

func TestClear_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	assert.Error(t, NewStorage(Config{URL: server.URL, Collection: "docs"}).Clear(context.Background()))
}

func TestCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/docs/points/count":
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, true, req["exact"])
			_, _ = w.Write([]byte(`{"result":{"count":12}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	n, err := NewStorage(Config{URL: server.URL, Collection: "docs"}).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = NewStorage(Config{URL: server.URL, Collection: "missing"}).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
