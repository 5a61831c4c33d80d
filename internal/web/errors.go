package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. The HTTP status is derived from the error kind

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/core"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action)
// fields. Details carries per-row validation errors when present.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Action  string          `json:"action,omitempty"`
	Code    string          `json:"code"`
	Details []core.RowError `json:"details,omitempty"`
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and writes a JSON body with a
// status derived from the error kind.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	statusCode := statusFor(err)

	// Get request ID for correlation
	requestID := middleware.GetReqID(r.Context())

	// Log the technical error with context
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", requestID,
	)

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var rows core.RowErrors
	if errors.As(err, &rows) {
		resp.Details = rows
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// statusFor maps ingestion errors to HTTP status codes. Validation
// failures of the file itself are 400, oversized uploads 413, row-level
// data errors 422, missing datasets 404, everything else 500.
func statusFor(err error) int {
	var (
		invalid  *core.InvalidUploadError
		schema   *core.SchemaError
		rows     core.RowErrors
		notFound *core.NotFoundError
		tooBig   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &invalid):
		if strings.Contains(invalid.Reason, "exceeds") {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case errors.As(err, &schema):
		return http.StatusBadRequest
	case errors.As(err, &rows):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrEmptyDataset), errors.Is(err, core.ErrUnreadableCSV):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
