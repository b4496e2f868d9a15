package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

const (
	fieldText       = "text"
	fieldVector     = "vector"
	fieldDocumentID = "document_id"
	fieldChunkIndex = "chunk_index"
	fieldScore      = "score"
)

// Config holds Redis connection and index configuration.
type Config struct {
	Addr      string
	Password  string
	DB        int
	IndexName string
	KeyPrefix string
	BatchSize int
}

// Storage keeps chunk vectors in Redis hashes indexed by a RediSearch HNSW
// cosine index.
type Storage struct {
	client    *goredis.Client
	index     string
	prefix    string
	batchSize int
	logger    *zap.Logger

	mu        sync.RWMutex
	dimension int
}

func NewStorage(cfg Config, logger *zap.Logger) *Storage {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "chunk:"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = vectorstore.DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		client: goredis.NewClient(&goredis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			// FT.* replies are parsed in their RESP2 array form.
			Protocol: 2,
		}),
		index:     cfg.IndexName,
		prefix:    cfg.KeyPrefix,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return domain.Remote("vector store", fmt.Errorf("failed to connect to Redis: %w", err))
	}
	if _, err := s.client.Do(ctx, "FT.INFO", s.index).Result(); err == nil {
		s.logger.Info("index already exists", zap.String("index", s.index))
	} else {
		_, err := s.client.Do(ctx, "FT.CREATE", s.index,
			"ON", "HASH",
			"PREFIX", "1", s.prefix,
			"SCHEMA",
			fieldText, "TEXT",
			fieldDocumentID, "TAG",
			fieldChunkIndex, "NUMERIC",
			fieldVector, "VECTOR", "HNSW", "6",
			"TYPE", "FLOAT32",
			"DIM", strconv.Itoa(dimension),
			"DISTANCE_METRIC", "COSINE",
		).Result()
		if err != nil && !strings.Contains(err.Error(), "Index already exists") {
			return domain.Remote("vector store", fmt.Errorf("failed to create index: %w", err))
		}
		s.logger.Info("index created", zap.String("index", s.index), zap.Int("dimension", dimension))
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
	err := vectorstore.ForEachBatch(len(chunks), s.batchSize, func(from, to int) error {
		pipe := s.client.Pipeline()
		for i := from; i < to; i++ {
			pipe.HSet(ctx, s.prefix+domain.ChunkID(documentID, chunks[i].Index),
				fieldText, chunks[i].Text,
				fieldDocumentID, documentID,
				fieldChunkIndex, chunks[i].Index,
				fieldVector, EncodeVector(vectors[i]),
			)
		}
		_, err := pipe.Exec(ctx)
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
	query := fmt.Sprintf("*=>[KNN %d @%s $query_vector AS %s]", topK, fieldVector, fieldScore)
	reply, err := s.client.Do(ctx, "FT.SEARCH", s.index, query,
		"PARAMS", "2", "query_vector", EncodeVector(vector),
		"SORTBY", fieldScore,
		"RETURN", "4", fieldText, fieldDocumentID, fieldChunkIndex, fieldScore,
		"LIMIT", "0", strconv.Itoa(topK),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, domain.Remote("vector store", fmt.Errorf("vector search failed: %w", err))
	}
	return parseSearchReply(reply, s.prefix)
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error { return s.client.Close() }

func (s *Storage) dim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// EncodeVector packs a vector as little-endian float32, the layout RediSearch expects.
func EncodeVector(v []float64) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(f)))
	}
	return buf
}

// parseSearchReply reads an FT.SEARCH RESP2 reply: total, then key/fields pairs.
// The KNN score is a cosine distance and is converted to a similarity.
func parseSearchReply(reply any, prefix string) ([]domain.SearchResult, error) {
	values, ok := reply.([]any)
	if !ok || len(values) == 0 {
		return nil, fmt.Errorf("unexpected FT.SEARCH reply %T", reply)
	}
	results := make([]domain.SearchResult, 0, (len(values)-1)/2)
	for i := 1; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		fields, ok := values[i+1].([]any)
		if !ok {
			continue
		}
		r := domain.SearchResult{Chunk: domain.Chunk{ChunkID: strings.TrimPrefix(key, prefix)}}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			val, _ := fields[j+1].(string)
			switch name {
			case fieldText:
				r.Chunk.Text = val
			case fieldDocumentID:
				r.Chunk.DocumentID = val
			case fieldChunkIndex:
				r.Chunk.Index, _ = strconv.Atoi(val)
			case fieldScore:
				if d, err := strconv.ParseFloat(val, 64); err == nil {
					r.Score = 1 - d
				}
			}
		}
		results = append(results, r)
	}
	return results, nil
}
