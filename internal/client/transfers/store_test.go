package transfers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/khairulanwar/transferdesk/internal/client/models"
	"github.com/khairulanwar/transferdesk/internal/client/provider"
	"github.com/khairulanwar/transferdesk/internal/client/session"
	"github.com/khairulanwar/transferdesk/internal/client/storage"
	"github.com/khairulanwar/transferdesk/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ---- fake session source ----

type fakeSession struct {
	mu       sync.Mutex
	view     session.View
	watchers map[int]func(session.View)
	next     int
}

func newFakeSession(user *models.AuthenticatedUser) *fakeSession {
	return &fakeSession{
		view:     session.View{User: user},
		watchers: make(map[int]func(session.View)),
	}
}

func (f *fakeSession) View() session.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeSession) Subscribe(fn func(session.View)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.watchers[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.watchers, id)
	}
}

func (f *fakeSession) setUser(user *models.AuthenticatedUser) {
	f.mu.Lock()
	f.view = session.View{User: user}
	fns := make([]func(session.View), 0, len(f.watchers))
	for _, fn := range f.watchers {
		fns = append(fns, fn)
	}
	view := f.view
	f.mu.Unlock()
	for _, fn := range fns {
		fn(view)
	}
}

// ---- fake storage ----

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) Keys(ctx context.Context) ([]string, error) { return nil, nil }
func (m *memStore) Clear(ctx context.Context) error            { return nil }
func (m *memStore) Transact(ctx context.Context, fn func(storage.Repository) error) error {
	return fn(m)
}

// ---- fake provider (data side only) ----

type fakeData struct {
	provider.Client // panics if an auth method is hit; these tests never do

	mu sync.Mutex

	ListRet   []models.TransferRecord
	ListErr   error
	ListDelay time.Duration

	InsertErr error
	DeleteErr error

	listCalls   int
	insertCalls int
	deleteCalls int

	LastDeleteID    string
	LastDeleteOwner string
}

func (f *fakeData) ListTransfers(ctx context.Context, userID string) ([]models.TransferRecord, error) {
	f.mu.Lock()
	f.listCalls++
	delay := f.ListDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]models.TransferRecord(nil), f.ListRet...), nil
}

func (f *fakeData) InsertTransfer(ctx context.Context, rec *models.TransferRecord) (*models.TransferRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.InsertErr != nil {
		return nil, f.InsertErr
	}
	created := *rec
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()
	return &created, nil
}

func (f *fakeData) DeleteTransfer(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	f.LastDeleteID = id
	f.LastDeleteOwner = userID
	return f.DeleteErr
}

func (f *fakeData) counts() (list, insert, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.insertCalls, f.deleteCalls
}

// ---- helpers ----

var ali = &models.AuthenticatedUser{ID: "u-1", Email: "ali@example.com", DisplayName: "Ali"}

func testStore(t *testing.T, fd *fakeData, fs *fakeSession) *Store {
	t.Helper()
	s := NewStore(context.Background(), fd, fs, newMemStore(), testLogger(), Config{
		ListTimeout:  50 * time.Millisecond,
		WriteTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(s.Close)
	return s
}

func processingDraft() models.TransferDraft {
	return models.TransferDraft{
		Bank:               "Public Bank Berhad",
		PayeeName:          "LOO HUI KIEN",
		Account:            "6331069024",
		Amount:             "1.80",
		Currency:           "RM",
		Status:             "Processing",
		StartingPercentage: "64",
	}
}

// ---- load ----

func TestLoadWithoutUserIsNoop(t *testing.T) {
	fd := &fakeData{}
	s := testStore(t, fd, newFakeSession(nil))

	s.Load(context.Background())
	list, _, _ := fd.counts()
	require.Equal(t, 0, list)
	require.Empty(t, s.Records())
}

func TestLoadPopulatesCache(t *testing.T) {
	fd := &fakeData{ListRet: []models.TransferRecord{
		{ID: "t-2", OwnerID: "u-1", Bank: "Maybank Berhad"},
		{ID: "t-1", OwnerID: "u-1", Bank: "CIMB Bank"},
	}}
	s := testStore(t, fd, newFakeSession(ali))

	s.Load(context.Background())
	recs := s.Records()
	require.Len(t, recs, 2)
	require.Equal(t, "t-2", recs[0].ID)
}

func TestLoadFailureKeepsPreviousCache(t *testing.T) {
	fd := &fakeData{ListRet: []models.TransferRecord{{ID: "t-1", OwnerID: "u-1"}}}
	s := testStore(t, fd, newFakeSession(ali))

	s.Load(context.Background())
	require.Len(t, s.Records(), 1)

	fd.mu.Lock()
	fd.ListErr = errors.New("gateway timeout")
	fd.mu.Unlock()

	s.Load(context.Background())
	require.Len(t, s.Records(), 1)
}

func TestLoadTimeoutKeepsPreviousCache(t *testing.T) {
	fd := &fakeData{ListRet: []models.TransferRecord{{ID: "t-1", OwnerID: "u-1"}}}
	s := testStore(t, fd, newFakeSession(ali))

	s.Load(context.Background())
	require.Len(t, s.Records(), 1)

	fd.mu.Lock()
	fd.ListDelay = time.Second
	fd.mu.Unlock()

	s.Load(context.Background())
	require.Len(t, s.Records(), 1)
}

// ---- add ----

func TestAddWithoutUserMakesNoProviderCall(t *testing.T) {
	fd := &fakeData{}
	s := testStore(t, fd, newFakeSession(nil))

	_, err := s.Add(context.Background(), processingDraft())
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, inserts, _ := fd.counts()
	require.Equal(t, 0, inserts)
}

func TestAddInvalidDraftMakesNoProviderCall(t *testing.T) {
	fd := &fakeData{}
	s := testStore(t, fd, newFakeSession(ali))

	for _, mutate := range []func(*models.TransferDraft){
		func(d *models.TransferDraft) { d.Amount = "10.123" },
		func(d *models.TransferDraft) { d.Amount = "1000000.01" },
		func(d *models.TransferDraft) { d.Amount = "-4" },
		func(d *models.TransferDraft) { d.Bank = "" },
		func(d *models.TransferDraft) { d.PayeeName = "  " },
		func(d *models.TransferDraft) { d.Account = "" },
	} {
		draft := processingDraft()
		mutate(&draft)
		_, err := s.Add(context.Background(), draft)
		require.Error(t, err)
	}

	_, inserts, _ := fd.counts()
	require.Equal(t, 0, inserts)
}

func TestAddPrependsServerRecord(t *testing.T) {
	fd := &fakeData{ListRet: []models.TransferRecord{{ID: "t-old", OwnerID: "u-1"}}}
	s := testStore(t, fd, newFakeSession(ali))
	s.Load(context.Background())

	created, err := s.Add(context.Background(), processingDraft())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())
	require.Equal(t, "u-1", created.OwnerID)
	require.NotNil(t, created.StartingPercentage)
	require.Equal(t, 64, *created.StartingPercentage)

	recs := s.Records()
	require.Len(t, recs, 2)
	require.Equal(t, created.ID, recs[0].ID)
	require.Equal(t, "t-old", recs[1].ID)
}

func TestAddFailureLeavesCacheUnchanged(t *testing.T) {
	fd := &fakeData{InsertErr: errors.New("row level security violation")}
	s := testStore(t, fd, newFakeSession(ali))

	_, err := s.Add(context.Background(), processingDraft())
	require.Error(t, err)
	require.Empty(t, s.Records())
}

// ---- remove ----

func TestRemoveFiltersByOwner(t *testing.T) {
	fd := &fakeData{ListRet: []models.TransferRecord{{ID: "t-1", OwnerID: "u-1"}}}
	s := testStore(t, fd, newFakeSession(ali))
	s.Load(context.Background())

	s.Remove(context.Background(), "t-1")
	require.Equal(t, "t-1", fd.LastDeleteID)
	require.Equal(t, "u-1", fd.LastDeleteOwner)
	require.Empty(t, s.Records())
}

func TestRemoveFailureKeepsCache(t *testing.T) {
	fd := &fakeData{
		ListRet:   []models.TransferRecord{{ID: "t-1", OwnerID: "u-1"}},
		DeleteErr: errors.New("network"),
	}
	s := testStore(t, fd, newFakeSession(ali))
	s.Load(context.Background())

	s.Remove(context.Background(), "t-1")
	require.Len(t, s.Records(), 1)
}

func TestRemoveWithoutUserIsNoop(t *testing.T) {
	fd := &fakeData{}
	s := testStore(t, fd, newFakeSession(nil))

	s.Remove(context.Background(), "t-1")
	_, _, deletes := fd.counts()
	require.Equal(t, 0, deletes)
}

// ---- find ----

func TestFindByID(t *testing.T) {
	fd := &fakeData{ListRet: []models.TransferRecord{{ID: "t-1", OwnerID: "u-1", Bank: "CIMB Bank"}}}
	s := testStore(t, fd, newFakeSession(ali))
	s.Load(context.Background())
	listBefore, _, _ := fd.counts()

	rec := s.FindByID("t-1")
	require.NotNil(t, rec)
	require.Equal(t, "CIMB Bank", rec.Bank)
	require.Nil(t, s.FindByID("t-404"))

	// Pure cache lookups: no further provider traffic.
	listAfter, _, _ := fd.counts()
	require.Equal(t, listBefore, listAfter)
}

// ---- owner changes ----

func TestOwnerChangeReloadsCache(t *testing.T) {
	fd := &fakeData{ListRet: []models.TransferRecord{{ID: "t-1", OwnerID: "u-1"}}}
	fs := newFakeSession(nil)
	s := testStore(t, fd, fs)

	fs.setUser(ali)
	require.Eventually(t, func() bool { return len(s.Records()) == 1 }, time.Second, 2*time.Millisecond)
}

func TestSignOutClearsCache(t *testing.T) {
	fd := &fakeData{ListRet: []models.TransferRecord{{ID: "t-1", OwnerID: "u-1"}}}
	fs := newFakeSession(ali)
	s := testStore(t, fd, fs)
	s.Load(context.Background())
	require.Len(t, s.Records(), 1)

	fs.setUser(nil)
	require.Empty(t, s.Records())
}

func TestInFlightLoadDiscardedAfterSignOut(t *testing.T) {
	fd := &fakeData{
		ListRet:   []models.TransferRecord{{ID: "t-1", OwnerID: "u-1"}},
		ListDelay: 20 * time.Millisecond,
	}
	fs := newFakeSession(ali)
	s := testStore(t, fd, fs)

	// Start a load, then sign out while it is in flight.
	done := make(chan struct{})
	go func() {
		s.Load(context.Background())
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	fs.setUser(nil)

	<-done
	require.Empty(t, s.Records())
}

// ---- drafts ----

func TestDraftRoundTrip(t *testing.T) {
	fd := &fakeData{}
	fs := newFakeSession(ali)
	local := newMemStore()
	s := NewStore(context.Background(), fd, fs, local, testLogger(), Config{})
	t.Cleanup(s.Close)
	ctx := context.Background()

	got, err := s.LoadDraft(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	draft := processingDraft()
	require.NoError(t, s.SaveDraft(ctx, draft))

	got, err = s.LoadDraft(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, draft, *got)

	require.NoError(t, s.ClearDraft(ctx))
	got, err = s.LoadDraft(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestUnreadableDraftDropped(t *testing.T) {
	fd := &fakeData{}
	local := newMemStore()
	require.NoError(t, local.Set(context.Background(), storage.KeyEditTransferDraft, []byte("{not json")))

	s := NewStore(context.Background(), fd, newFakeSession(ali), local, testLogger(), Config{})
	t.Cleanup(s.Close)

	got, err := s.LoadEditDraft(context.Background())
	require.NoError(t, err)
	require.Nil(t, got)

	raw, err := local.Get(context.Background(), storage.KeyEditTransferDraft)
	require.NoError(t, err)
	require.Nil(t, raw)
}
