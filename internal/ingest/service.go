// Package ingest orchestrates the upload pipeline: validate the CSV,
// summarize it, persist the dataset through the retention manager, and
// shape the response payloads.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/core"
	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/history"
	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/logging"
)

// Service is the application service behind the upload and history
// endpoints. Parsing and aggregation are pure and synchronous; the
// retention manager is the only concurrency-sensitive collaborator.
type Service struct {
	history     *history.Manager
	maxFileSize int64
}

// NewService creates the service. maxFileSize <= 0 falls back to the
// 5 MiB default.
func NewService(manager *history.Manager, maxFileSize int64) *Service {
	if maxFileSize <= 0 {
		maxFileSize = core.MaxUploadSize
	}
	return &Service{history: manager, maxFileSize: maxFileSize}
}

// UploadResult is the response body for a successful upload.
type UploadResult struct {
	Message   string       `json:"message"`
	DatasetID int64        `json:"dataset_id"`
	Filename  string       `json:"filename"`
	Summary   core.Summary `json:"summary"`
}

// Upload runs the full ingestion pipeline for one file. Ingestion is
// all-or-nothing: any validation failure leaves no dataset behind, and
// row problems are reported all at once.
func (s *Service) Upload(ctx context.Context, userID, filename string, raw []byte) (*UploadResult, error) {
	start := time.Now()
	log := logging.FromContext(ctx).With(
		"ingest_id", uuid.NewString(),
		"filename", filename,
	)

	records, err := core.ParseCSV(raw, filename, s.maxFileSize)
	if err != nil {
		log.Warn("upload rejected", "bytes", len(raw), "error", err)
		return nil, err
	}

	summary, err := core.Summarize(records)
	if err != nil {
		log.Warn("upload rejected", "rows", len(records), "error", err)
		return nil, err
	}

	ds, err := s.history.Insert(ctx, userID, &core.Dataset{
		Filename: filename,
		Records:  records,
		Summary:  summary,
	})
	if err != nil {
		log.Error("dataset persist failed", "rows", len(records), "error", err)
		return nil, err
	}

	log.Info("dataset ingested",
		"dataset_id", ds.ID,
		"rows", summary.TotalCount,
		"types", summary.TypeDistribution.Len(),
		"duration", time.Since(start),
	)

	return &UploadResult{
		Message:   "CSV uploaded and processed successfully",
		DatasetID: ds.ID,
		Filename:  ds.Filename,
		Summary:   ds.Summary,
	}, nil
}

// History lists the user's retained datasets, most-recent-first.
func (s *Service) History(ctx context.Context, userID string) ([]core.DatasetMeta, error) {
	return s.history.List(ctx, userID)
}

// Dataset returns the assembled detail payload for one dataset.
func (s *Service) Dataset(ctx context.Context, userID string, id int64) (*core.DatasetPayload, error) {
	ds, err := s.history.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	payload := core.Assemble(ds)
	return &payload, nil
}
