package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"docqa/internal/domain"
)

const maxRequestBytes = 1 << 20

// RunRequest is the body of POST /api/hackrx/run. An empty documents
// reference is accepted here and fails at fetch time.
type RunRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions" validate:"required"`
}

// RunResponse carries answers aligned with RunRequest.Questions.
type RunResponse struct {
	Answers []string `json:"answers"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	answers, err := s.svc.Run(r.Context(), req.Documents, req.Questions)
	if err != nil {
		status, detail := classify(err)
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
		writeDetail(w, status, detail)
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Answers: answers})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// classify maps pipeline errors to a status code and caller-facing detail.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, "Invalid or missing Bearer token"
	case errors.Is(err, domain.ErrNoText):
		return http.StatusBadRequest, "No text found in document."
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, statusCode int, detail string) {
	writeJSON(w, statusCode, ErrorResponse{Detail: detail})
}
