// Package history enforces the per-user dataset retention policy:
// after any completed insert a user holds at most five datasets, the
// five most recently uploaded.
package history

import (
	"context"
	"errors"
	"sync"

	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/core"
)

// ErrNotFound is returned by Store implementations when a dataset does
// not exist for the given owner. Ownership mismatches look identical
// to missing rows.
var ErrNotFound = errors.New("dataset not found")

// DefaultLimit is the number of datasets retained per user.
const DefaultLimit = 5

// Store is the storage collaborator. ListByOwner returns metadata
// ordered most-recent-first (uploaded_at descending, ties broken by
// higher id first). CreateDataset assigns the ID and upload timestamp.
type Store interface {
	CreateDataset(ctx context.Context, ds *core.Dataset) error
	ListByOwner(ctx context.Context, userID string) ([]core.DatasetMeta, error)
	GetDataset(ctx context.Context, userID string, id int64) (*core.Dataset, error)
	DeleteDataset(ctx context.Context, userID string, id int64) error
}

// Manager serializes insert-and-trim per user. Two concurrent uploads
// for one user cannot both observe a stale count; uploads for
// different users proceed in parallel.
type Manager struct {
	store Store
	limit int

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewManager creates a retention manager over store. limit <= 0 falls
// back to DefaultLimit.
func NewManager(store Store, limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{
		store: store,
		limit: limit,
		users: make(map[string]*sync.Mutex),
	}
}

// Limit returns the per-user dataset cap.
func (m *Manager) Limit() int { return m.limit }

// userLock returns the serialization point for one user's history.
func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.users[userID] = lock
	}
	return lock
}

// Insert persists ds for userID and evicts the oldest datasets beyond
// the limit. On a trim failure the freshly inserted dataset is removed
// again so a failed insert leaves the store as it was.
func (m *Manager) Insert(ctx context.Context, userID string, ds *core.Dataset) (*core.Dataset, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ds.UserID = userID
	if err := m.withRetry(ctx, func() error {
		return m.store.CreateDataset(ctx, ds)
	}); err != nil {
		return nil, &core.RetentionError{Op: "insert", Err: err}
	}

	if err := m.trim(ctx, userID); err != nil {
		// Compensate: the upload either lands fully or not at all.
		if delErr := m.store.DeleteDataset(ctx, userID, ds.ID); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			return nil, &core.RetentionError{Op: "trim rollback", Err: delErr}
		}
		return nil, &core.RetentionError{Op: "trim", Err: err}
	}

	return ds, nil
}

// trim deletes the oldest datasets beyond the limit. A victim that is
// already gone counts as evicted.
func (m *Manager) trim(ctx context.Context, userID string) error {
	var metas []core.DatasetMeta
	if err := m.withRetry(ctx, func() error {
		var err error
		metas, err = m.store.ListByOwner(ctx, userID)
		return err
	}); err != nil {
		return err
	}

	if len(metas) <= m.limit {
		return nil
	}

	// ListByOwner is most-recent-first, so the tail holds the oldest
	// datasets with tie-broken lowest IDs last: exactly the victims.
	for _, victim := range metas[m.limit:] {
		id := victim.ID
		err := m.withRetry(ctx, func() error {
			if err := m.store.DeleteDataset(ctx, userID, id); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// List returns the user's history, at most limit entries,
// most-recent-first.
func (m *Manager) List(ctx context.Context, userID string) ([]core.DatasetMeta, error) {
	metas, err := m.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, &core.RetentionError{Op: "list", Err: err}
	}
	if len(metas) > m.limit {
		metas = metas[:m.limit]
	}
	return metas, nil
}

// Get returns one dataset with its records, scoped to userID. Missing
// and foreign datasets are both reported as NotFoundError.
func (m *Manager) Get(ctx context.Context, userID string, id int64) (*core.Dataset, error) {
	ds, err := m.store.GetDataset(ctx, userID, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &core.NotFoundError{DatasetID: id}
	}
	if err != nil {
		return nil, &core.RetentionError{Op: "get", Err: err}
	}
	return ds, nil
}

// withRetry runs fn, retrying once on failure. Context cancellation is
// never retried.
func (m *Manager) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || ctx.Err() != nil {
		return err
	}
	return fn()
}
