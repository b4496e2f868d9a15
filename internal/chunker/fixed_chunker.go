package chunker

import (
	"docqa/internal/domain"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// FixedChunker slices text into windows of size characters, each starting
// size-overlap characters after the previous one. Characters are Unicode
// code points; no word or sentence boundaries are considered.
type FixedChunker struct {
	size    int
	overlap int
}

func NewFixedChunker(size, overlap int) *FixedChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &FixedChunker{size: size, overlap: overlap}
}

func (c *FixedChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for idx, text := range Split(document.Content, c.size, c.overlap) {
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    domain.ChunkID(document.ID, idx),
			Text:       text,
			Index:      idx,
		})
	}
	return chunks, nil
}

// Split returns text[i:i+size] for i = 0, step, 2*step, ... while i < len(text),
// where step = size - overlap. The caller guarantees 0 <= overlap < size.
func Split(text string, size, overlap int) []string {
	runes := []rune(text)
	step := size - overlap
	out := make([]string, 0, (len(runes)+step-1)/step)
	for i := 0; i < len(runes); i += step {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}
