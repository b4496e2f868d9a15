package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("BEARER_TOKEN", "tok")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "tok", cfg.Server.BearerToken)
	assert.Equal(t, 500, cfg.Chunker.Size)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, "BAAI/bge-multilingual-gemma2", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 3584, cfg.Embedder.OpenAI.Dimension)
	assert.Equal(t, "meta-llama/Meta-Llama-3.1-405B-Instruct", cfg.LLM.Model)
	assert.Equal(t, "pinecone", cfg.VectorStore.Type)
	assert.Equal(t, "hackrx-llm-index", cfg.VectorStore.Pinecone.IndexName)
	assert.Equal(t, 3, cfg.VectorStore.TopK)
	assert.Equal(t, 100, cfg.VectorStore.BatchSize)
	assert.Equal(t, 30, cfg.Fetcher.TimeoutSecs)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BEARER_TOKEN", "tok")
	t.Setenv("PORT", "9090")
	t.Setenv("EMBEDDING_MODEL", "other-embed")
	t.Setenv("EMBEDDING_DIMENSION", "1024")
	t.Setenv("LLM_MODEL", "other-llm")
	t.Setenv("NEBIUS_BASE_URL", "https://llm.example.com/v1/")
	t.Setenv("PINECONE_INDEX_NAME", "idx-2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "other-embed", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 1024, cfg.Embedder.OpenAI.Dimension)
	assert.Equal(t, "other-llm", cfg.LLM.Model)
	assert.Equal(t, "https://llm.example.com/v1/", cfg.LLM.BaseURL)
	assert.Equal(t, "https://llm.example.com/v1/", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "idx-2", cfg.VectorStore.Pinecone.IndexName)
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("QA_TOKEN", "from-file-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
  bearer_token_env: QA_TOKEN
chunker:
  size: 200
  overlap: 20
vector_store:
  type: qdrant
  qdrant:
    url: http://localhost:6333
    collection: docs
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "from-file-env", cfg.Server.BearerToken)
	assert.Equal(t, 200, cfg.Chunker.Size)
	assert.Equal(t, "qdrant", cfg.VectorStore.Type)
	assert.Equal(t, "docs", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, 3, cfg.VectorStore.TopK)
}

func TestLoad_RequiresBearerToken(t *testing.T) {
	t.Setenv("BEARER_TOKEN", "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BearerToken")
}

func TestLoad_RejectsOverlapNotBelowSize(t *testing.T) {
	t.Setenv("BEARER_TOKEN", "tok")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker:\n  size: 10\n  overlap: 10\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Overlap")
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("BEARER_TOKEN", "tok")
	t.Setenv("VECTOR_STORE", "faiss")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	t.Setenv("BEARER_TOKEN", "tok")
	t.Setenv("PORT", "eighty")
	_, err := Load("")
	assert.Error(t, err)
}

func TestSave_RoundTripOmitsToken(t *testing.T) {
	cfg := Default()
	cfg.Server.BearerToken = "do-not-write"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "do-not-write")
	assert.Contains(t, string(data), "hackrx-llm-index")
}

func TestLoad_RemoteTimeoutsDefaultToNone(t *testing.T) {
	t.Setenv("BEARER_TOKEN", "tok")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  timeout_secs: 90
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Embedder.OpenAI.TimeoutSecs)
	assert.Zero(t, cfg.VectorStore.Pinecone.TimeoutSecs)
	assert.Equal(t, 90, cfg.LLM.TimeoutSecs)
}

func TestLoad_RejectsNegativeTimeout(t *testing.T) {
	t.Setenv("BEARER_TOKEN", "tok")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  timeout_secs: -1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
