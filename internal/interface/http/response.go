package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message,omitempty"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Details maps input fields to their validation messages.
	Details shared.FieldErrors `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	TotalCount *int      `json:"total_count,omitempty"`
}

// writeJSON writes a success envelope.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	writeEnvelope(w, r, status, JSONResponse{Success: true, Message: message, Data: data})
}

// writeList writes a success envelope carrying a list and its size.
func writeList[T any](w http.ResponseWriter, r *http.Request, message string, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	writeEnvelope(w, r, http.StatusOK, JSONResponse{
		Success: true,
		Message: message,
		Data:    items,
		Meta:    &ResponseMeta{TotalCount: &n},
	})
}

// writeJSONError writes a failure envelope.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string, details shared.FieldErrors) {
	writeEnvelope(w, r, status, JSONResponse{
		Error: &APIError{Code: code, Message: message, Details: details},
	})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp JSONResponse) {
	if resp.Meta == nil {
		resp.Meta = &ResponseMeta{}
	}
	resp.Meta.Timestamp = time.Now().UTC()
	resp.Meta.Version = "v1"
	resp.RequestID = requestID(r.Context())

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

type errorClass struct {
	kind     error
	status   int
	code     string
	fallback string
}

// In order of precedence: a DomainError matches the first kind it carries.
var errorClasses = []errorClass{
	{shared.ErrValidation, http.StatusUnprocessableEntity, "validation_failed", "The given data was invalid."},
	{shared.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication required"},
	{shared.ErrForbidden, http.StatusForbidden, "forbidden", "Unauthorized action"},
	{shared.ErrNotFound, http.StatusNotFound, "not_found", "Resource not found"},
	{shared.ErrConflict, http.StatusConflict, "conflict", "Conflict"},
	{shared.ErrInvalidState, http.StatusBadRequest, "invalid_state", "Invalid state"},
}

// writeError maps err to a status code. Storage failures and unknown errors
// are logged and reported with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, c := range errorClasses {
		if !errors.Is(err, c.kind) {
			continue
		}
		msg, ok := shared.UserMessage(err)
		if !ok || msg == "" {
			msg = c.fallback
		}
		var details shared.FieldErrors
		if c.kind == shared.ErrValidation {
			details, _ = shared.AsFieldErrors(err)
		}
		writeJSONError(w, r, c.status, c.code, msg, details)
		return
	}

	logger.FromContext(r.Context()).Error("request failed",
		logger.Err(err),
		logger.String("method", r.Method),
		logger.String("path", r.URL.Path),
	)
	writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", nil)
}
