package web

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/core"
)

// multipart form encoding adds boundary and part-header bytes on top of
// the file itself.
const formOverhead = 64 * 1024

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload ingests one CSV file sent as the "file" field of a
// multipart form. The pipeline is all-or-nothing: on any validation
// error nothing is stored and the response lists every problem found.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		s.respondError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "FILE003", "no file provided", `Send the CSV as the "file" form field`)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.Upload(r.Context(), userFromContext(r.Context()), header.Filename, raw)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleHistory lists the caller's retained datasets, most-recent-first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	metas, err := s.service.History(r.Context(), userFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if metas == nil {
		metas = []core.DatasetMeta{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"datasets": metas,
		"count":    len(metas),
	})
}

// handleDataset returns the full detail payload for one dataset.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "datasetID"), 10, 64)
	if err != nil {
		badRequest(w, "DS002", "invalid dataset ID", "Dataset IDs are integers")
		return
	}

	payload, err := s.service.Dataset(r.Context(), userFromContext(r.Context()), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// badRequest writes a 400 with a fixed code and message, for request
// shape problems that never reach the ingestion pipeline.
func badRequest(w http.ResponseWriter, code, message, action string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Action:  action,
		Code:    code,
	})
}
