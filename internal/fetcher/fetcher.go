package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"docqa/internal/domain"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 50 << 20

	bodyExcerptLen = 200
)

var driveFileID = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

// Config configures the document fetcher.
type Config struct {
	Timeout  time.Duration
	MaxBytes int64
}

// Fetcher resolves local paths, Google Drive share links and HTTP(S) URLs to bytes.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		maxBytes: cfg.MaxBytes,
		logger:   logger,
	}
}

// Fetch returns the document bytes. Every failure is a *domain.RetrievalError.
func (f *Fetcher) Fetch(ctx context.Context, reference string) ([]byte, error) {
	data, err := f.fetch(ctx, reference)
	if err == nil && len(data) == 0 {
		err = errors.New("document is empty")
	}
	if err != nil {
		return nil, &domain.RetrievalError{Reference: reference, Err: err}
	}
	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context, reference string) ([]byte, error) {
	if _, err := os.Stat(reference); err == nil {
		data, err := os.ReadFile(reference)
		if err != nil {
			return nil, fmt.Errorf("failed to read local file: %w", err)
		}
		f.logger.Debug("loaded local document", zap.Int("bytes", len(data)))
		return data, nil
	}

	url := DirectURL(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, bodyExcerptLen*4))
		return nil, fmt.Errorf("HTTP %d - %s", resp.StatusCode, truncate(string(excerpt), bodyExcerptLen))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", f.maxBytes)
	}
	f.logger.Debug("downloaded document", zap.Int("bytes", len(data)))
	return data, nil
}

// DirectURL rewrites a Google Drive share link to its direct-download form.
// Any other reference is returned unchanged.
func DirectURL(reference string) string {
	if !strings.Contains(reference, "drive.google.com") {
		return reference
	}
	m := driveFileID.FindStringSubmatch(reference)
	if m == nil {
		return reference
	}
	return "https://drive.google.com/uc?export=download&id=" + m[1]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
