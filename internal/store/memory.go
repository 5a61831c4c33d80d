package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/core"
	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/history"
)

// MemStore is an in-memory implementation of history.Store. It backs
// the test suite and stands in for the storage collaborator when no
// database is available.
type MemStore struct {
	mu       sync.Mutex
	nextID   int64
	lastTime time.Time
	datasets map[int64]core.Dataset
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{datasets: make(map[int64]core.Dataset)}
}

// CreateDataset assigns the next sequential ID and a strictly
// increasing upload timestamp, then stores a copy of ds.
func (s *MemStore) CreateDataset(ctx context.Context, ds *core.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now()
	if !now.After(s.lastTime) {
		now = s.lastTime.Add(time.Nanosecond)
	}
	s.lastTime = now

	ds.ID = s.nextID
	ds.UploadedAt = now

	stored := *ds
	stored.Records = append([]core.EquipmentRecord(nil), ds.Records...)
	s.datasets[ds.ID] = stored
	return nil
}

// ListByOwner returns dataset metadata for userID, most-recent-first
// (uploaded_at descending, ties by higher ID first).
func (s *MemStore) ListByOwner(ctx context.Context, userID string) ([]core.DatasetMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var metas []core.DatasetMeta
	for _, ds := range s.datasets {
		if ds.UserID != userID {
			continue
		}
		metas = append(metas, core.DatasetMeta{
			ID:             ds.ID,
			Filename:       ds.Filename,
			UploadedAt:     ds.UploadedAt,
			EquipmentCount: len(ds.Records),
			Summary:        ds.Summary,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].UploadedAt.Equal(metas[j].UploadedAt) {
			return metas[i].UploadedAt.After(metas[j].UploadedAt)
		}
		return metas[i].ID > metas[j].ID
	})
	return metas, nil
}

// GetDataset returns a copy of one dataset scoped to userID.
func (s *MemStore) GetDataset(ctx context.Context, userID string, id int64) (*core.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.datasets[id]
	if !ok || ds.UserID != userID {
		return nil, history.ErrNotFound
	}

	out := ds
	out.Records = append([]core.EquipmentRecord(nil), ds.Records...)
	return &out, nil
}

// DeleteDataset removes one dataset scoped to userID.
func (s *MemStore) DeleteDataset(ctx context.Context, userID string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.datasets[id]
	if !ok || ds.UserID != userID {
		return history.ErrNotFound
	}
	delete(s.datasets, id)
	return nil
}

// Len reports the number of stored datasets across all users.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.datasets)
}

var _ history.Store = (*MemStore)(nil)
