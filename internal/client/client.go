// Package client calls a running docqa server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 5 * time.Minute

// Client posts question batches to /api/hackrx/run.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

type runRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

type runResponse struct {
	Answers []string `json:"answers"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Ask returns one answer per question, in order.
func (c *Client) Ask(ctx context.Context, documents string, questions []string) ([]string, error) {
	if questions == nil {
		questions = []string{}
	}
	body, err := json.Marshal(runRequest{Documents: documents, Questions: questions})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/hackrx/run", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: detail(raw)}
	}
	var out runResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Answers) != len(questions) {
		return nil, fmt.Errorf("got %d answers for %d questions", len(out.Answers), len(questions))
	}
	return out.Answers, nil
}

// detail extracts the "detail" field, falling back to the raw body.
func detail(raw []byte) string {
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && len(er.Detail) > 0 {
		var s string
		if json.Unmarshal(er.Detail, &s) == nil {
			return s
		}
		return string(er.Detail)
	}
	return strings.TrimSpace(string(raw))
}
