package domain

import (
	"context"
	"strconv"
)

// Document is a fetched and extracted source document scoped to one request.
type Document struct {
	ID        string
	Reference string
	Content   string
}

// Chunk is a contiguous slice of a document's text used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Fetcher resolves a document reference to raw bytes.
type Fetcher interface {
	Fetch(ctx context.Context, reference string) ([]byte, error)
}

// Extractor converts document bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts texts into fixed-dimension vectors, one per input, in input order.
type Embedder interface {
	Name() string
	Dimension() int
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, documentID string, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
}

// Answerer produces a natural-language answer from a question and retrieved context.
type Answerer interface {
	Answer(ctx context.Context, question, contextText string) (string, error)
}

// QAService defines the operation exposed by the application core.
type QAService interface {
	Run(ctx context.Context, documents string, questions []string) ([]string, error)
}

// ChunkID returns the vector id of the index-th chunk of a document.
func ChunkID(documentID string, index int) string {
	return documentID + "-chunk-" + strconv.Itoa(index)
}
