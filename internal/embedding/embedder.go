package embedding

import (
	"context"
	"fmt"

	"docqa/internal/domain"
)

// EmbedText embeds a single string as a one-element batch.
func EmbedText(ctx context.Context, e domain.Embedder, text string) ([]float64, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, domain.Remote("embedding", fmt.Errorf("expected 1 embedding, got %d", len(vectors)))
	}
	return vectors[0], nil
}
