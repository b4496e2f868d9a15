package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestEncodeVector_LittleEndianFloat32(t *testing.T) {
	buf := EncodeVector([]float64{1.5, -2})
	require.Len(t, buf, 8)
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])))
	assert.Equal(t, float32(-2), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])))
}

func TestParseSearchReply(t *testing.T) {
	reply := []any{
		int64(2),
		"chunk:doc-chunk-4", []any{"text", "first text", "document_id", "doc", "chunk_index", "4", "score", "0.25"},
		"chunk:doc-chunk-1", []any{"score", "0.5", "text", "second text"},
	}
	res, err := parseSearchReply(reply, "chunk:")
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, "doc-chunk-4", res[0].Chunk.ChunkID)
	assert.Equal(t, "first text", res[0].Chunk.Text)
	assert.Equal(t, "doc", res[0].Chunk.DocumentID)
	assert.Equal(t, 4, res[0].Chunk.Index)
	assert.InDelta(t, 0.75, res[0].Score, 1e-9)
	assert.Equal(t, "second text", res[1].Chunk.Text)
}

func TestParseSearchReply_Empty(t *testing.T) {
	res, err := parseSearchReply([]any{int64(0)}, "chunk:")
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = parseSearchReply("nope", "chunk:")
	assert.Error(t, err)
}

func TestStorage_RequiresInit(t *testing.T) {
	s := NewStorage(Config{Addr: "127.0.0.1:0", IndexName: "idx"}, nil)
	defer s.Close()

	err := s.Upsert(context.Background(), "d", []domain.Chunk{{Text: "a"}}, [][]float64{{1}})
	assert.True(t, errors.Is(err, domain.ErrNotInitialized))
	_, err = s.Search(context.Background(), []float64{1}, 3)
	assert.True(t, errors.Is(err, domain.ErrNotInitialized))
}
