package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Records are keyed by chunk id; an upsert of an existing id replaces it.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	ids       map[string]int
	vectors   [][]float64
	chunks    []domain.Chunk
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids != nil && s.dimension != dimension {
		return errors.New("index exists with a different dimension")
	}
	s.dimension = dimension
	if s.ids == nil {
		s.ids = make(map[string]int)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, documentID string, chunks []domain.Chunk, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids == nil {
		return domain.ErrNotInitialized
	}
	if err := vectorstore.ValidateUpsert(chunks, vectors, s.dimension); err != nil {
		return err
	}
	for i, ch := range chunks {
		id := domain.ChunkID(documentID, ch.Index)
		ch.DocumentID, ch.ChunkID = documentID, id
		if j, ok := s.ids[id]; ok {
			s.chunks[j], s.vectors[j] = ch, vectors[i]
			continue
		}
		s.ids[id] = len(s.chunks)
		s.chunks = append(s.chunks, ch)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ids == nil {
		return nil, domain.ErrNotInitialized
	}
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	scores := make([]float64, len(s.vectors))
	idxs := make([]int, len(s.vectors))
	for i := range s.vectors {
		scores[i] = cosine(s.vectors[i], vector)
		idxs[i] = i
	}
	// ties keep insertion order
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Chunk: s.chunks[j], Score: scores[j]})
	}
	return results, nil
}

// Len reports the number of stored records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
