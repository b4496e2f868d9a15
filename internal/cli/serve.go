package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/answer"
	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/openai"
	"docqa/internal/extractor"
	"docqa/internal/fetcher"
	"docqa/internal/logging"
	"docqa/internal/server"
	"docqa/internal/service"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/pinecone"
	"docqa/internal/vectorstore/qdrant"
	"docqa/internal/vectorstore/redis"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the question answering HTTP API",
	Long: `Starts the HTTP API serving POST /api/hackrx/run.
The vector index is created or verified before the listener opens.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeStore, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := server.New(server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		BearerToken: cfg.Server.BearerToken,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
	}, svc, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSecs)*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildService assembles the pipeline and initializes the vector store.
// The returned func releases store connections.
func buildService(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*service.QAServiceImpl, func(), error) {
	o := cfg.Embedder.OpenAI
	emb, err := openai.NewClient(ctx, openai.Config{
		BaseURL:   o.BaseURL,
		APIKey:    cfg.EmbedderAPIKey(),
		Model:     o.Model,
		Dimension: o.Dimension,
		BatchSize: o.BatchSize,
		Timeout:   seconds(o.TimeoutSecs),
	}, logger.Named("embedding"))
	if err != nil {
		return nil, nil, fmt.Errorf("embedder init failed: %w", err)
	}

	llm, err := answer.NewClient(ctx, answer.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLMAPIKey(),
		Model:   cfg.LLM.Model,
		Timeout: seconds(cfg.LLM.TimeoutSecs),
	}, logger.Named("llm"))
	if err != nil {
		return nil, nil, fmt.Errorf("llm init failed: %w", err)
	}

	store, closeStore, err := buildStore(cfg, logger.Named("vectorstore"))
	if err != nil {
		return nil, nil, err
	}
	if err := store.Init(ctx, emb.Dimension()); err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("vector store init failed: %w", err)
	}
	logger.Info("vector store ready",
		zap.String("type", cfg.VectorStore.Type),
		zap.Int("dimension", emb.Dimension()))

	svc := service.NewQAService(service.Deps{
		Fetcher: fetcher.New(fetcher.Config{
			Timeout:  time.Duration(cfg.Fetcher.TimeoutSecs) * time.Second,
			MaxBytes: cfg.Fetcher.MaxBytes,
		}, logger.Named("fetcher")),
		Extractor: extractor.NewPDF(),
		Chunker:   chunker.NewFixedChunker(cfg.Chunker.Size, cfg.Chunker.Overlap),
		Embedder:  emb,
		Store:     store,
		Answerer:  llm,
	}, service.Options{TopK: cfg.VectorStore.TopK}, logger.Named("service"))
	return svc, closeStore, nil
}

func buildStore(cfg *config.AppConfig, logger *zap.Logger) (domain.VectorStore, func(), error) {
	noop := func() {}
	vs := cfg.VectorStore
	switch vs.Type {
	case "pinecone":
		key := cfg.PineconeAPIKey()
		if key == "" {
			return nil, nil, errors.New("pinecone API key is required")
		}
		s, err := pinecone.NewStorage(pinecone.Config{
			APIKey:     key,
			IndexName:  vs.Pinecone.IndexName,
			Namespace:  vs.Pinecone.Namespace,
			Cloud:      vs.Pinecone.Cloud,
			Region:     vs.Pinecone.Region,
			ControlURL: vs.Pinecone.ControlURL,
			Host:       vs.Pinecone.Host,
			BatchSize:  vs.BatchSize,
			Timeout:    seconds(vs.Pinecone.TimeoutSecs),
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:        vs.Qdrant.URL,
			APIKey:     vs.Qdrant.APIKey,
			Collection: vs.Qdrant.Collection,
			BatchSize:  vs.BatchSize,
			Timeout:    seconds(vs.Qdrant.TimeoutSecs),
		}, logger), noop, nil
	case "redis":
		s := redis.NewStorage(redis.Config{
			Addr:      vs.Redis.Addr,
			Password:  vs.Redis.Password,
			DB:        vs.Redis.DB,
			IndexName: vs.Redis.IndexName,
			KeyPrefix: vs.Redis.KeyPrefix,
			BatchSize: vs.BatchSize,
		}, logger)
		return s, func() { _ = s.Close() }, nil
	case "memory":
		return memory.NewStorage(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", vs.Type)
	}
}

// seconds converts a config value; zero means no client-side timeout.
func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
