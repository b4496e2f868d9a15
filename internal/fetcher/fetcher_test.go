package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestFetch_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o644))

	data, err := New(Config{}, nil).Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
}

func TestFetch_LocalDirectoryIsReadError(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Config{}, nil).Fetch(context.Background(), dir)
	require.Error(t, err)

	var re *domain.RetrievalError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, dir, re.Reference)
	assert.Contains(t, err.Error(), "failed to read local file")
}

func TestFetch_HTTPSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte("pdf-bytes"))
	}))
	defer srv.Close()

	data, err := New(Config{}, nil).Fetch(context.Background(), srv.URL+"/policy.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))
}

func TestFetch_NotFoundIncludesStatusAndExcerpt(t *testing.T) {
	body := "missing blob " + strings.Repeat("x", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	ref := srv.URL + "/nope.pdf"
	_, err := New(Config{}, nil).Fetch(context.Background(), ref)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "failed to load document from '"+ref+"'")
	assert.Contains(t, msg, "HTTP 404 - missing blob")
	assert.NotContains(t, msg, body[:201])
}

func TestFetch_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := New(Config{}, nil).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document is empty")
	assert.NotContains(t, err.Error(), "network error")
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Config{}, nil).Fetch(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network error")

	var re *domain.RetrievalError
	assert.True(t, errors.As(err, &re))
}

func TestFetch_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer srv.Close()

	_, err := New(Config{MaxBytes: 16}, nil).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
}

func TestDirectURL(t *testing.T) {
	assert.Equal(t,
		"https://drive.google.com/uc?export=download&id=1AbC_d-9",
		DirectURL("https://drive.google.com/file/d/1AbC_d-9/view?usp=sharing"))
	assert.Equal(t,
		"https://drive.google.com/drive/folders",
		DirectURL("https://drive.google.com/drive/folders"))
	assert.Equal(t,
		"https://example.com/d/abc",
		DirectURL("https://example.com/d/abc"))
}
