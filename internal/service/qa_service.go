package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/vectorstore"
)

const DefaultContextSeparator = "\n---\n"

// Deps are the pipeline components. The store must already be initialized.
type Deps struct {
	Fetcher   domain.Fetcher
	Extractor domain.Extractor
	Chunker   domain.Chunker
	Embedder  domain.Embedder
	Store     domain.VectorStore
	Answerer  domain.Answerer
}

type Options struct {
	TopK             int
	ContextSeparator string
}

// QAServiceImpl runs fetch, extract, chunk, embed, upsert, then retrieve and
// answer for each question in order.
type QAServiceImpl struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
	newID  func() string
}

func NewQAService(deps Deps, opts Options, logger *zap.Logger) *QAServiceImpl {
	if opts.TopK <= 0 {
		opts.TopK = vectorstore.DefaultTopK
	}
	if opts.ContextSeparator == "" {
		opts.ContextSeparator = DefaultContextSeparator
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QAServiceImpl{
		deps:   deps,
		opts:   opts,
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}
}

// Run indexes the referenced document under a fresh id and answers every
// question. Answers are positionally aligned with questions; any failure
// aborts the request and no partial answers are returned.
func (s *QAServiceImpl) Run(ctx context.Context, documents string, questions []string) ([]string, error) {
	data, err := s.deps.Fetcher.Fetch(ctx, documents)
	if err != nil {
		return nil, err
	}
	text, err := s.deps.Extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrNoText
	}

	doc := domain.Document{ID: s.newID(), Reference: documents, Content: text}
	chunks, err := s.deps.Chunker.Chunk(doc)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := s.deps.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Store.Upsert(ctx, doc.ID, chunks, vectors); err != nil {
		return nil, err
	}
	s.logger.Info("document indexed",
		zap.String("document_id", doc.ID),
		zap.Int("chars", len(text)),
		zap.Int("chunks", len(chunks)))

	answers := make([]string, 0, len(questions))
	for i, q := range questions {
		a, err := s.answer(ctx, q)
		if err != nil {
			s.logger.Warn("question failed", zap.Int("question", i), zap.Error(err))
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, nil
}

func (s *QAServiceImpl) answer(ctx context.Context, question string) (string, error) {
	qv, err := embedding.EmbedText(ctx, s.deps.Embedder, question)
	if err != nil {
		return "", err
	}
	results, err := s.deps.Store.Search(ctx, qv, s.opts.TopK)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Chunk.Text
	}
	return s.deps.Answerer.Answer(ctx, question, strings.Join(parts, s.opts.ContextSeparator))
}
