package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It uses cosine distance and creates the collection if missing. Qdrant
// point ids must be UUIDs, so each chunk id is mapped to a name-based UUID
// and kept verbatim in the payload.
type Storage struct {
	url        string
	apiKey     string
	collection string
	batchSize  int
	client     *http.Client
	logger     *zap.Logger

	mu        sync.RWMutex
	dimension int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	BatchSize  int
	Timeout    time.Duration
}

func NewStorage(cfg Config, logger *zap.Logger) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = vectorstore.DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// PointID maps a chunk id to the UUID used as the Qdrant point id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	collectionURL := fmt.Sprintf("%s/collections/%s", s.url, s.collection)
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	code, err := s.doJSON(ctx, http.MethodGet, collectionURL, nil, &info)
	switch {
	case code == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		if _, err := s.doJSON(ctx, http.MethodPut, collectionURL, body, nil); err != nil {
			return domain.Remote("vector store", err)
		}
		s.logger.Info("collection created", zap.String("collection", s.collection), zap.Int("dimension", dimension))
	case err != nil:
		return domain.Remote("vector store", err)
	default:
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dimension {
			return fmt.Errorf("collection %q has dimension %d, expected %d", s.collection, size, dimension)
		}
		s.logger.Info("collection already exists", zap.String("collection", s.collection))
	}
	s.mu.Lock()
	s.dimension = dimension
	s.mu.Unlock()
	return nil
}

func (s *Storage) Upsert(ctx context.Context, documentID string, chunks []domain.Chunk, vectors [][]float64) error {
	dim := s.dim()
	if dim == 0 {
		return domain.ErrNotInitialized
	}
	if err := vectorstore.ValidateUpsert(chunks, vectors, dim); err != nil {
		return err
	}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection)
	err := vectorstore.ForEachBatch(len(chunks), s.batchSize, func(from, to int) error {
		points := make([]map[string]any, 0, to-from)
		for i := from; i < to; i++ {
			id := domain.ChunkID(documentID, chunks[i].Index)
			points = append(points, map[string]any{
				"id":     PointID(id),
				"vector": vectors[i],
				"payload": map[string]any{
					"document_id": documentID,
					"chunk_id":    id,
					"index":       chunks[i].Index,
					"text":        chunks[i].Text,
				},
			})
		}
		_, err := s.doJSON(ctx, http.MethodPut, url, map[string]any{"points": points}, nil)
		return err
	})
	if err != nil {
		return domain.Remote("vector store", err)
	}
	s.logger.Info("upserted chunks", zap.String("document_id", documentID), zap.Int("count", len(chunks)))
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if s.dim() == 0 {
		return nil, domain.ErrNotInitialized
	}
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, domain.Remote("vector store", err)
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := domain.Chunk{}
		if v, ok := r.Payload["document_id"].(string); ok {
			chunk.DocumentID = v
		}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			chunk.ChunkID = v
		}
		if v, ok := r.Payload["index"].(float64); ok {
			chunk.Index = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Score: r.Score})
	}
	return results, nil
}

func (s *Storage) dim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// doJSON returns the response status code alongside any error.
func (s *Storage) doJSON(ctx context.Context, method, url string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}
