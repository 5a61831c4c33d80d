package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/PratikPrakash2004/ChemistryAnalyzer/internal/core"
)

// fakeStore is an in-memory Store with fault injection: each failN
// counter makes the next N calls of that operation fail.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	lastTime time.Time
	datasets map[int64]core.Dataset

	failCreate int
	failList   int
	failDelete int

	// beforeDelete runs once before the next DeleteDataset, outside
	// the store lock. Used to race an external eviction.
	beforeDelete func(userID string, id int64)
}

var errStorage = errors.New("storage unavailable")

func newFakeStore() *fakeStore {
	return &fakeStore{datasets: make(map[int64]core.Dataset)}
}

func (s *fakeStore) CreateDataset(_ context.Context, ds *core.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreate > 0 {
		s.failCreate--
		return errStorage
	}

	s.nextID++
	now := time.Now()
	if !now.After(s.lastTime) {
		now = s.lastTime.Add(time.Nanosecond)
	}
	s.lastTime = now

	ds.ID = s.nextID
	ds.UploadedAt = now
	s.datasets[ds.ID] = *ds
	return nil
}

func (s *fakeStore) ListByOwner(_ context.Context, userID string) ([]core.DatasetMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failList > 0 {
		s.failList--
		return nil, errStorage
	}

	var metas []core.DatasetMeta
	for _, ds := range s.datasets {
		if ds.UserID != userID {
			continue
		}
		metas = append(metas, core.DatasetMeta{
			ID:         ds.ID,
			Filename:   ds.Filename,
			UploadedAt: ds.UploadedAt,
			Summary:    ds.Summary,
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

func (s *fakeStore) GetDataset(_ context.Context, userID string, id int64) (*core.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.datasets[id]
	if !ok || ds.UserID != userID {
		return nil, ErrNotFound
	}
	return &ds, nil
}

func (s *fakeStore) DeleteDataset(_ context.Context, userID string, id int64) error {
	if hook := s.beforeDelete; hook != nil {
		s.beforeDelete = nil
		hook(userID, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDelete > 0 {
		s.failDelete--
		return errStorage
	}

	ds, ok := s.datasets[id]
	if !ok || ds.UserID != userID {
		return ErrNotFound
	}
	delete(s.datasets, id)
	return nil
}

func (s *fakeStore) count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, ds := range s.datasets {
		if ds.UserID == userID {
			n++
		}
	}
	return n
}

func dataset(filename string) *core.Dataset {
	return &core.Dataset{Filename: filename}
}

// ============================================================================
// Insert / Trim Tests
// ============================================================================

func TestInsert_UnderLimitKeepsAll(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := m.Insert(ctx, "alice", dataset(fmt.Sprintf("f%d.csv", i))); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	if got := fs.count("alice"); got != 5 {
		t.Errorf("stored datasets = %d, want 5", got)
	}
}

func TestInsert_EvictsOldestBeyondLimit(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs, 5)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 8; i++ {
		ds, err := m.Insert(ctx, "alice", dataset(fmt.Sprintf("f%d.csv", i)))
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		ids = append(ids, ds.ID)
	}

	metas, err := m.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 5 {
		t.Fatalf("List returned %d entries, want 5", len(metas))
	}

	// The survivors are the 5 most recent inserts, newest first.
	for i, meta := range metas {
		want := ids[len(ids)-1-i]
		if meta.ID != want {
			t.Errorf("List[%d].ID = %d, want %d", i, meta.ID, want)
		}
	}

	// The evicted datasets are unreachable.
	for _, id := range ids[:3] {
		if _, err := m.Get(ctx, "alice", id); err == nil {
			t.Errorf("evicted dataset %d still retrievable", id)
		}
	}
}

func TestInsert_ConcurrentSameUser(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs, 5)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := m.Insert(ctx, "alice", dataset(fmt.Sprintf("f%d.csv", i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Insert: %v", err)
	}
	if got := fs.count("alice"); got != 5 {
		t.Errorf("stored datasets after %d concurrent inserts = %d, want 5", n, got)
	}
}

func TestInsert_CrossUserIsolation(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs, 5)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, user := range []string{"alice", "bob", "carol"} {
		for i := 0; i < 7; i++ {
			wg.Add(1)
			go func(user string, i int) {
				defer wg.Done()
				if _, err := m.Insert(ctx, user, dataset(fmt.Sprintf("%s-%d.csv", user, i))); err != nil {
					t.Errorf("Insert(%s): %v", user, err)
				}
			}(user, i)
		}
	}
	wg.Wait()

	for _, user := range []string{"alice", "bob", "carol"} {
		if got := fs.count(user); got != 5 {
			t.Errorf("%s holds %d datasets, want 5", user, got)
		}
	}
}

func TestInsert_TiesBrokenByLowestID(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs, 2)
	ctx := context.Background()

	// Seed three datasets sharing one upload timestamp; only the ID
	// sequence distinguishes their age.
	tied := time.Now()
	for id := int64(1); id <= 3; id++ {
		fs.datasets[id] = core.Dataset{ID: id, UserID: "alice", Filename: fmt.Sprintf("f%d.csv", id), UploadedAt: tied}
	}
	fs.nextID = 3
	fs.lastTime = tied

	ds, err := m.Insert(ctx, "alice", dataset("f4.csv"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	metas, err := m.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(metas))
	}
	// Victims were IDs 1 and 2: oldest-by-timestamp, lowest ID first.
	if metas[0].ID != ds.ID || metas[1].ID != 3 {
		t.Errorf("survivors = [%d %d], want [%d 3]", metas[0].ID, metas[1].ID, ds.ID)
	}
}

// ============================================================================
// Failure Handling Tests
// ============================================================================

func TestInsert_RetriesTransientCreateFailure(t *testing.T) {
	fs := newFakeStore()
	fs.failCreate = 1 // first attempt fails, retry succeeds
	m := NewManager(fs, 5)

	if _, err := m.Insert(context.Background(), "alice", dataset("a.csv")); err != nil {
		t.Fatalf("Insert with one transient failure: %v", err)
	}
	if got := fs.count("alice"); got != 1 {
		t.Errorf("stored datasets = %d, want 1", got)
	}
}

func TestInsert_SurfacesPersistentCreateFailure(t *testing.T) {
	fs := newFakeStore()
	fs.failCreate = 2 // initial attempt and the single retry both fail
	m := NewManager(fs, 5)

	_, err := m.Insert(context.Background(), "alice", dataset("a.csv"))

	var retErr *core.RetentionError
	if !errors.As(err, &retErr) {
		t.Fatalf("Insert error = %v, want RetentionError", err)
	}
	if got := fs.count("alice"); got != 0 {
		t.Errorf("stored datasets = %d, want 0", got)
	}
}

func TestInsert_TrimFailureRollsBackInsert(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := m.Insert(ctx, "alice", dataset(fmt.Sprintf("f%d.csv", i))); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	fs.failDelete = 2 // eviction fails past the retry
	_, err := m.Insert(ctx, "alice", dataset("f2.csv"))

	var retErr *core.RetentionError
	if !errors.As(err, &retErr) {
		t.Fatalf("Insert error = %v, want RetentionError", err)
	}
	// All or nothing: the failed upload must not remain.
	if got := fs.count("alice"); got != 2 {
		t.Errorf("stored datasets = %d, want 2 (failed insert rolled back)", got)
	}
}

func TestTrim_MissingVictimIsANoOp(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := m.Insert(ctx, "alice", dataset(fmt.Sprintf("f%d.csv", i))); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	// The victim vanishes between the manager's list and its delete.
	fs.beforeDelete = func(userID string, id int64) {
		fs.mu.Lock()
		delete(fs.datasets, id)
		fs.mu.Unlock()
	}

	if _, err := m.Insert(ctx, "alice", dataset("f2.csv")); err != nil {
		t.Fatalf("Insert with vanished victim: %v", err)
	}
	if got := fs.count("alice"); got != 2 {
		t.Errorf("stored datasets = %d, want 2", got)
	}
}

// ============================================================================
// List / Get Tests
// ============================================================================

func TestList_NeverExceedsLimitOrCrossesOwners(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.Insert(ctx, "alice", dataset(fmt.Sprintf("a%d.csv", i))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	bobDS, err := m.Insert(ctx, "bob", dataset("b0.csv"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	metas, err := m.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 3 {
		t.Errorf("List returned %d entries, want 3", len(metas))
	}
	for _, meta := range metas {
		if meta.ID == bobDS.ID {
			t.Errorf("alice's listing contains bob's dataset %d", meta.ID)
		}
	}
}

func TestGet_OwnershipBoundary(t *testing.T) {
	fs := newFakeStore()
	m := NewManager(fs, 5)
	ctx := context.Background()

	ds, err := m.Insert(ctx, "alice", dataset("a.csv"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if _, err := m.Get(ctx, "alice", ds.ID); err != nil {
		t.Errorf("owner Get: %v", err)
	}

	_, err = m.Get(ctx, "bob", ds.ID)
	var notFound *core.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("foreign Get error = %v, want NotFoundError", err)
	}

	_, err = m.Get(ctx, "alice", 99999)
	if !errors.As(err, &notFound) {
		t.Errorf("missing Get error = %v, want NotFoundError", err)
	}
}

func TestNewManager_DefaultLimit(t *testing.T) {
	m := NewManager(newFakeStore(), 0)
	if m.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", m.Limit(), DefaultLimit)
	}
}
