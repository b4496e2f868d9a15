package vectorstore

import (
	"errors"
	"fmt"

	"docqa/internal/domain"
)

const (
	DefaultBatchSize = 100
	DefaultTopK      = 3
)

// Storage persists vectors and supports similarity search.
type Storage = domain.VectorStore

// ValidateUpsert checks that chunks and vectors pair up and match the index dimension.
func ValidateUpsert(chunks []domain.Chunk, vectors [][]float64, dimension int) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), dimension)
		}
	}
	return nil
}

// ForEachBatch calls fn with consecutive [from, to) windows of at most size items.
// It stops at the first error, leaving earlier batches written.
func ForEachBatch(n, size int, fn func(from, to int) error) error {
	if size <= 0 {
		size = DefaultBatchSize
	}
	for from := 0; from < n; from += size {
		to := min(from+size, n)
		if err := fn(from, to); err != nil {
			return fmt.Errorf("upsert of chunks %d to %d failed: %w", from, to-1, err)
		}
	}
	return nil
}
