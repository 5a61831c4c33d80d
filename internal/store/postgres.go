// Package store provides the storage implementations behind the
// retention manager: a PostgreSQL store for production and an
// in-memory store for tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/core"
	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/history"
)

// Postgres implements history.Store on top of a pgx connection pool.
// Summaries are persisted as serialized JSON text (the ordered maps
// round-trip losslessly; jsonb would reorder keys).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps pool. The pool stays owned by the caller.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS datasets (
	id          BIGSERIAL PRIMARY KEY,
	user_id     TEXT        NOT NULL,
	filename    TEXT        NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	summary     TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_datasets_owner
	ON datasets (user_id, uploaded_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS equipment (
	id             BIGSERIAL PRIMARY KEY,
	dataset_id     BIGINT NOT NULL REFERENCES datasets (id) ON DELETE CASCADE,
	position       INT    NOT NULL,
	name           TEXT   NOT NULL,
	equipment_type TEXT   NOT NULL,
	flowrate       DOUBLE PRECISION NOT NULL,
	pressure       DOUBLE PRECISION NOT NULL,
	temperature    DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equipment_dataset
	ON equipment (dataset_id, position);
`

// Migrate creates the schema if it does not exist. Idempotent, run at
// startup.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// CreateDataset inserts the dataset and its equipment rows in one
// transaction, assigning ds.ID and ds.UploadedAt from the database.
// An advisory lock on the owner serializes insert-and-trim across
// processes; the in-process keyed lock in the retention manager only
// covers a single replica.
func (p *Postgres) CreateDataset(ctx context.Context, ds *core.Dataset) error {
	summary, err := json.Marshal(ds.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, ds.UserID); err != nil {
		return fmt.Errorf("owner lock: %w", err)
	}

	var uploadedAt pgtype.Timestamptz
	err = tx.QueryRow(ctx,
		`INSERT INTO datasets (user_id, filename, summary)
		 VALUES ($1, $2, $3)
		 RETURNING id, uploaded_at`,
		ds.UserID, ds.Filename, string(summary),
	).Scan(&ds.ID, &uploadedAt)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	ds.UploadedAt = uploadedAt.Time

	// Equipment rows go in via the COPY protocol; an upload can carry
	// tens of thousands of rows under the 5 MiB cap.
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"equipment"},
		[]string{"dataset_id", "position", "name", "equipment_type", "flowrate", "pressure", "temperature"},
		pgx.CopyFromSlice(len(ds.Records), func(i int) ([]any, error) {
			rec := ds.Records[i]
			return []any{ds.ID, i, rec.Name, rec.EquipmentType, rec.Flowrate, rec.Pressure, rec.Temperature}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy equipment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListByOwner returns dataset metadata for userID, most-recent-first.
func (p *Postgres) ListByOwner(ctx context.Context, userID string) ([]core.DatasetMeta, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT d.id, d.filename, d.uploaded_at, d.summary, count(e.id)
		 FROM datasets d
		 LEFT JOIN equipment e ON e.dataset_id = d.id
		 WHERE d.user_id = $1
		 GROUP BY d.id
		 ORDER BY d.uploaded_at DESC, d.id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var metas []core.DatasetMeta
	for rows.Next() {
		var (
			meta       core.DatasetMeta
			uploadedAt pgtype.Timestamptz
			summary    string
			count      int64
		)
		if err := rows.Scan(&meta.ID, &meta.Filename, &uploadedAt, &summary, &count); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		if err := json.Unmarshal([]byte(summary), &meta.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary for dataset %d: %w", meta.ID, err)
		}
		meta.UploadedAt = uploadedAt.Time
		meta.EquipmentCount = int(count)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// GetDataset loads one dataset and its equipment rows in CSV order,
// scoped to userID.
func (p *Postgres) GetDataset(ctx context.Context, userID string, id int64) (*core.Dataset, error) {
	var (
		ds         core.Dataset
		uploadedAt pgtype.Timestamptz
		summary    string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, user_id, filename, uploaded_at, summary
		 FROM datasets
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&ds.ID, &ds.UserID, &ds.Filename, &uploadedAt, &summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	ds.UploadedAt = uploadedAt.Time
	if err := json.Unmarshal([]byte(summary), &ds.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary for dataset %d: %w", id, err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT name, equipment_type, flowrate, pressure, temperature
		 FROM equipment
		 WHERE dataset_id = $1
		 ORDER BY position`,
		id)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec core.EquipmentRecord
		if err := rows.Scan(&rec.Name, &rec.EquipmentType, &rec.Flowrate, &rec.Pressure, &rec.Temperature); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		ds.Records = append(ds.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// DeleteDataset removes one dataset scoped to userID. Equipment rows
// cascade.
func (p *Postgres) DeleteDataset(ctx context.Context, userID string, id int64) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM datasets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return history.ErrNotFound
	}
	return nil
}

var _ history.Store = (*Postgres)(nil)
