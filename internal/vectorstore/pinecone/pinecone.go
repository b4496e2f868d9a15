package pinecone

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

const (
	DefaultCloud  = "aws"
	DefaultRegion = "us-east-1"

	metadataText = "text"
)

// controlPlane is the index management subset of *pinecone.Client.
type controlPlane interface {
	ListIndexes(ctx context.Context) ([]*pinecone.Index, error)
	DescribeIndex(ctx context.Context, idxName string) (*pinecone.Index, error)
	CreateServerlessIndex(ctx context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error)
}

// dataPlane is the record subset of *pinecone.IndexConnection.
type dataPlane interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
}

// Storage keeps chunks in a Pinecone serverless index.
// Records are stored as {id, values, metadata: {text}}.
type Storage struct {
	cfg     Config
	control controlPlane
	connect func(host string) (dataPlane, error)
	logger  *zap.Logger

	mu        sync.RWMutex
	data      dataPlane
	dimension int
}

type Config struct {
	APIKey    string
	IndexName string
	Namespace string
	Cloud     string
	Region    string
	// ControlURL overrides the control-plane API host.
	ControlURL string
	// Host overrides the data-plane host returned by the control plane.
	Host         string
	BatchSize    int
	Timeout      time.Duration
	PollInterval time.Duration
}

// NewStorage builds a Pinecone client. No network calls are made until Init.
func NewStorage(cfg Config, logger *zap.Logger) (*Storage, error) {
	params := pinecone.NewClientParams{ApiKey: cfg.APIKey, Host: cfg.ControlURL}
	if cfg.Timeout > 0 {
		params.RestClient = &http.Client{Timeout: cfg.Timeout}
	}
	pc, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}
	connect := func(host string) (dataPlane, error) {
		conn, err := pc.Index(pinecone.NewIndexConnParams{Host: host, Namespace: cfg.Namespace})
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return newStorage(cfg, pc, connect, logger), nil
}

func newStorage(cfg Config, control controlPlane, connect func(string) (dataPlane, error), logger *zap.Logger) *Storage {
	if cfg.Cloud == "" {
		cfg.Cloud = DefaultCloud
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = vectorstore.DefaultBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{cfg: cfg, control: control, connect: connect, logger: logger}
}

// Init ensures the index exists with the given dimension, creating it with the
// cosine metric when absent, and waits for it to become ready.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	idx, err := s.find(ctx)
	if err != nil {
		return domain.Remote("vector store", err)
	}
	if idx == nil {
		s.logger.Info("creating index", zap.String("index", s.cfg.IndexName), zap.Int("dimension", dimension))
		if idx, err = s.create(ctx, dimension); err != nil {
			return domain.Remote("vector store", err)
		}
		s.logger.Info("index created", zap.String("index", s.cfg.IndexName))
	} else {
		s.logger.Info("index already exists", zap.String("index", s.cfg.IndexName))
	}
	if idx.Dimension != nil && int(*idx.Dimension) != dimension {
		return fmt.Errorf("index %q has dimension %d, expected %d", s.cfg.IndexName, *idx.Dimension, dimension)
	}

	for idx.Status == nil || !idx.Status.Ready {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
		if idx, err = s.control.DescribeIndex(ctx, s.cfg.IndexName); err != nil {
			return domain.Remote("vector store", err)
		}
	}

	host := s.cfg.Host
	if host == "" {
		host = idx.Host
	}
	if host == "" {
		return fmt.Errorf("index %q has no host", s.cfg.IndexName)
	}
	data, err := s.connect(host)
	if err != nil {
		return domain.Remote("vector store", fmt.Errorf("connect to index host: %w", err))
	}
	s.mu.Lock()
	s.data = data
	s.dimension = dimension
	s.mu.Unlock()
	return nil
}

func (s *Storage) Upsert(ctx context.Context, documentID string, chunks []domain.Chunk, vectors [][]float64) error {
	data, dim := s.target()
	if data == nil {
		return domain.ErrNotInitialized
	}
	if err := vectorstore.ValidateUpsert(chunks, vectors, dim); err != nil {
		return err
	}
	err := vectorstore.ForEachBatch(len(chunks), s.cfg.BatchSize, func(from, to int) error {
		records := make([]*pinecone.Vector, 0, to-from)
		for i := from; i < to; i++ {
			md, err := structpb.NewStruct(map[string]any{metadataText: chunks[i].Text})
			if err != nil {
				return fmt.Errorf("chunk %d metadata: %w", chunks[i].Index, err)
			}
			values := toFloat32(vectors[i])
			records = append(records, &pinecone.Vector{
				Id:       domain.ChunkID(documentID, chunks[i].Index),
				Values:   &values,
				Metadata: md,
			})
		}
		if _, err := data.UpsertVectors(ctx, records); err != nil {
			return err
		}
		s.logger.Debug("upserted batch", zap.String("document_id", documentID), zap.Int("from", from), zap.Int("to", to-1))
		return nil
	})
	if err != nil {
		return domain.Remote("vector store", err)
	}
	s.logger.Info("upserted chunks", zap.String("document_id", documentID), zap.Int("count", len(chunks)))
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	data, _ := s.target()
	if data == nil {
		return nil, domain.ErrNotInitialized
	}
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	resp, err := data.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          toFloat32(vector),
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, domain.Remote("vector store", err)
	}
	results := make([]domain.SearchResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		chunk := domain.Chunk{ChunkID: m.Vector.Id}
		if m.Vector.Metadata != nil {
			chunk.Text = m.Vector.Metadata.GetFields()[metadataText].GetStringValue()
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Score: float64(m.Score)})
	}
	return results, nil
}

func (s *Storage) target() (dataPlane, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, s.dimension
}

func (s *Storage) find(ctx context.Context) (*pinecone.Index, error) {
	indexes, err := s.control.ListIndexes(ctx)
	if err != nil {
		return nil, err
	}
	for _, idx := range indexes {
		if idx != nil && idx.Name == s.cfg.IndexName {
			return idx, nil
		}
	}
	return nil, nil
}

// create makes a serverless cosine index. A concurrent creator winning the
// race is not an error.
func (s *Storage) create(ctx context.Context, dimension int) (*pinecone.Index, error) {
	dim := int32(dimension)
	metric := pinecone.Cosine
	idx, err := s.control.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      s.cfg.IndexName,
		Dimension: &dim,
		Metric:    &metric,
		Cloud:     pinecone.Cloud(s.cfg.Cloud),
		Region:    s.cfg.Region,
	})
	if err == nil && idx != nil {
		return idx, nil
	}
	if existing, findErr := s.find(ctx); findErr == nil && existing != nil {
		return existing, nil
	}
	if err == nil {
		err = fmt.Errorf("index %q was not created", s.cfg.IndexName)
	}
	return nil, err
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
