package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller's bearer token does not match.
	ErrUnauthorized = errors.New("invalid or missing bearer token")
	// ErrNoText is returned when a document yields no extractable text.
	ErrNoText = errors.New("no text found in document")
	// ErrNotInitialized is returned when a vector store is used before Init.
	ErrNotInitialized = errors.New("vector store has not been initialized")
)

// RetrievalError wraps every document fetch failure with the original reference.
type RetrievalError struct {
	Reference string
	Err       error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to load document from '%s': %v", e.Reference, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// RemoteServiceError marks a failed call to the embedding endpoint, vector store or language model.
type RemoteServiceError struct {
	Service string
	Err     error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// Remote wraps err as a RemoteServiceError unless it is nil or already one.
func Remote(service string, err error) error {
	if err == nil {
		return nil
	}
	var rse *RemoteServiceError
	if errors.As(err, &rse) {
		return err
	}
	return &RemoteServiceError{Service: service, Err: err}
}
