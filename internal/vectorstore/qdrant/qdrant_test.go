package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type fakeQdrant struct {
	mu      sync.Mutex
	exists  bool
	size    int
	created map[string]any
	points  []map[string]any
	puts    int
}

func (f *fakeQdrant) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.exists {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":` + itoa(f.size) + `}}}}}`))
	})
	mux.HandleFunc("PUT /collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&f.created)
		f.exists = true
		_, _ = w.Write([]byte(`{"result":true}`))
	})
	mux.HandleFunc("PUT /collections/{name}/points", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points = append(f.points, body.Points...)
		f.puts++
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	})
	mux.HandleFunc("POST /collections/{name}/points/search", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var result []map[string]any
		for _, p := range f.points {
			result = append(result, map[string]any{"score": 0.9, "payload": p["payload"]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	})
	return mux
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newStore(t *testing.T, f *fakeQdrant) *Storage {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewStorage(Config{URL: srv.URL, Collection: "docs", BatchSize: 2}, nil)
}

func TestInit_CreatesCollection(t *testing.T) {
	f := &fakeQdrant{}
	s := newStore(t, f)
	require.NoError(t, s.Init(context.Background(), 4))

	vectors := f.created["vectors"].(map[string]any)
	assert.Equal(t, float64(4), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestInit_ExistingCollectionDimensionMismatch(t *testing.T) {
	s := newStore(t, &fakeQdrant{exists: true, size: 8})
	assert.Error(t, s.Init(context.Background(), 4))
}

func TestUpsertSearch_RoundTrip(t *testing.T) {
	f := &fakeQdrant{exists: true, size: 2}
	s := newStore(t, f)
	ctx := context.Background()

	_, err := s.Search(ctx, []float64{1, 0}, 3)
	assert.True(t, errors.Is(err, domain.ErrNotInitialized))

	require.NoError(t, s.Init(ctx, 2))
	chunks := []domain.Chunk{{Text: "a", Index: 0}, {Text: "b", Index: 1}, {Text: "c", Index: 2}}
	require.NoError(t, s.Upsert(ctx, "doc", chunks, [][]float64{{1, 0}, {0, 1}, {1, 1}}))
	assert.Equal(t, 2, f.puts)

	id := f.points[0]["id"].(string)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, PointID("doc-chunk-0"), id)

	res, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "doc-chunk-1", res[1].Chunk.ChunkID)
	assert.Equal(t, "b", res[1].Chunk.Text)
	assert.Equal(t, 1, res[1].Chunk.Index)
}

func TestPointID_Deterministic(t *testing.T) {
	assert.Equal(t, PointID("x-chunk-1"), PointID("x-chunk-1"))
	assert.NotEqual(t, PointID("x-chunk-1"), PointID("x-chunk-2"))
}
