package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/service"
)

const (
	productA = "507f1f77bcf86cd799439011"
	productB = "507f1f77bcf86cd799439012"
)

// --- Mock service ---

type mockWishlists struct {
	mock.Mock
	mu   sync.Mutex
	mode domain.Mode
}

func newMockWishlists(mode domain.Mode) *mockWishlists {
	return &mockWishlists{mode: mode}
}

func (m *mockWishlists) Mode() domain.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *mockWishlists) setMode(mode domain.Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

func (m *mockWishlists) Get(ctx context.Context) (domain.Wishlist, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Wishlist), args.Error(1)
}

func (m *mockWishlists) Add(ctx context.Context, in domain.AddItemInput) (domain.Wishlist, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Wishlist), args.Error(1)
}

func (m *mockWishlists) Remove(ctx context.Context, productID string) (domain.Wishlist, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.Wishlist), args.Error(1)
}

func (m *mockWishlists) Clear(ctx context.Context) (domain.Wishlist, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Wishlist), args.Error(1)
}

func (m *mockWishlists) Check(ctx context.Context, productID string) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockWishlists) MoveToCart(ctx context.Context, productIDs []string) (domain.MoveResult, error) {
	args := m.Called(ctx, productIDs)
	return args.Get(0).(domain.MoveResult), args.Error(1)
}

func (m *mockWishlists) PriceChanges(ctx context.Context) ([]domain.RawItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.RawItem), args.Error(1)
}

func (m *mockWishlists) SwitchToAuthenticated(ctx context.Context, userID string) (service.TransitionResult, error) {
	args := m.Called(ctx, userID)
	m.setMode(domain.ModeAuthenticated)
	return args.Get(0).(service.TransitionResult), args.Error(1)
}

func (m *mockWishlists) SwitchToGuest(ctx context.Context) (domain.Wishlist, error) {
	args := m.Called(ctx)
	m.setMode(domain.ModeGuest)
	return args.Get(0).(domain.Wishlist), args.Error(1)
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wishlistOf(items ...string) domain.Wishlist {
	raw := make([]domain.RawItem, 0, len(items))
	for _, id := range items {
		raw = append(raw, domain.RawItem(`{"productId":"`+id+`"}`))
	}
	return domain.NewWishlist(context.Background(), raw, nil)
}

func lookup(m *Manager, id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// --- Store ---

func TestStore_FetchCachesWishlist(t *testing.T) {
	svc := newMockWishlists(domain.ModeGuest)
	svc.On("Get", mock.Anything).Return(wishlistOf(productA), nil)
	s := NewStore(svc)

	assert.Nil(t, s.Snapshot().Wishlist)

	_, err := s.FetchWishlist(context.Background())
	require.NoError(t, err)

	snap := s.Snapshot()
	require.NotNil(t, snap.Wishlist)
	assert.Equal(t, 1, snap.Wishlist.ItemCount)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, domain.SyncIdle, snap.SyncStatus)
	assert.Equal(t, domain.ModeGuest, snap.Mode)
}

func TestStore_AddItemRejectsCachedDuplicateWithoutIO(t *testing.T) {
	svc := newMockWishlists(domain.ModeGuest)
	svc.On("Get", mock.Anything).Return(wishlistOf(productA), nil)
	s := NewStore(svc)
	_, err := s.FetchWishlist(context.Background())
	require.NoError(t, err)

	_, err = s.AddItem(context.Background(), domain.AddItemInput{ProductID: productA})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NotEmpty(t, s.Snapshot().Error)
	svc.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestStore_AddItemUpdatesCache(t *testing.T) {
	svc := newMockWishlists(domain.ModeGuest)
	in := domain.AddItemInput{ProductID: productB}
	svc.On("Add", mock.Anything, in).Return(wishlistOf(productB), nil)
	s := NewStore(svc)

	w, err := s.AddItem(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, w.Contains(productB))
	assert.Equal(t, 1, s.Snapshot().Wishlist.ItemCount)
}

func TestStore_ErrorKeepsLastWishlist(t *testing.T) {
	svc := newMockWishlists(domain.ModeGuest)
	svc.On("Get", mock.Anything).Return(wishlistOf(productA), nil)
	svc.On("Remove", mock.Anything, productA).Return(domain.Wishlist{}, domain.NewNetworkError("redis down", nil))
	s := NewStore(svc)
	_, err := s.FetchWishlist(context.Background())
	require.NoError(t, err)

	_, err = s.RemoveItem(context.Background(), productA)
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "redis down", snap.Error)
	assert.Equal(t, 1, snap.Wishlist.ItemCount)
}

func TestStore_MoveToCartChecksCachedItems(t *testing.T) {
	svc := newMockWishlists(domain.ModeAuthenticated)
	cached := domain.NewWishlist(context.Background(), []domain.RawItem{
		domain.RawItem(`{"product":{"_id":"` + productA + `","name":"Lamp","stock":0}}`),
	}, nil)
	svc.On("Get", mock.Anything).Return(cached, nil)
	s := NewStore(svc)
	_, err := s.FetchWishlist(context.Background())
	require.NoError(t, err)

	_, err = s.MoveToCart(context.Background(), []string{productA})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors[0], productA)
	svc.AssertNotCalled(t, "MoveToCart", mock.Anything, mock.Anything)
}

func TestStore_MoveToCartReloads(t *testing.T) {
	svc := newMockWishlists(domain.ModeAuthenticated)
	svc.On("MoveToCart", mock.Anything, []string{productA}).
		Return(domain.MoveResult{MovedItems: []domain.RawItem{}, MovedCount: 1}, nil)
	svc.On("Get", mock.Anything).Return(wishlistOf(), nil)
	s := NewStore(svc)

	res, err := s.MoveToCart(context.Background(), []string{productA})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MovedCount)
	assert.Equal(t, 0, s.Snapshot().Wishlist.ItemCount)
	svc.AssertExpectations(t)
}

func TestStore_HandleLoginStatus(t *testing.T) {
	tests := []struct {
		name   string
		result service.TransitionResult
		err    error
		want   domain.SyncStatus
	}{
		{"completed", service.TransitionResult{Wishlist: wishlistOf(productA), MigratedCount: 1, HadGuestItems: true}, nil, domain.SyncCompleted},
		{"degraded", service.TransitionResult{Wishlist: wishlistOf(), FailedCount: 2, HadGuestItems: true, Degraded: true}, nil, domain.SyncFailed},
		{"fetch failed", service.TransitionResult{}, domain.NewSyncError("could not load", 0, nil), domain.SyncFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockWishlists(domain.ModeGuest)
			svc.On("SwitchToAuthenticated", mock.Anything, "user-1").Return(tt.result, tt.err)
			s := NewStore(svc)

			_, err := s.HandleLogin(context.Background(), "user-1")
			assert.Equal(t, tt.err, err)

			snap := s.Snapshot()
			assert.Equal(t, tt.want, snap.SyncStatus)
			assert.NotNil(t, snap.LastSync)
			assert.False(t, snap.Loading)

			s.ResetSyncStatus()
			assert.Equal(t, domain.SyncIdle, s.Snapshot().SyncStatus)
		})
	}
}

func TestStore_FailedLoginDropsGuestCache(t *testing.T) {
	svc := newMockWishlists(domain.ModeGuest)
	svc.On("Get", mock.Anything).Return(wishlistOf(productA), nil)
	svc.On("SwitchToAuthenticated", mock.Anything, "user-1").
		Return(service.TransitionResult{}, domain.NewSyncError("load failed", 0, errors.New("boom")))
	s := NewStore(svc)

	_, err := s.FetchWishlist(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.Snapshot().Wishlist)

	_, err = s.HandleLogin(context.Background(), "user-1")
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, domain.ModeAuthenticated, snap.Mode)
	assert.Nil(t, snap.Wishlist, "guest items must not be shown as the account wishlist")
	assert.Equal(t, domain.SyncFailed, snap.SyncStatus)
	assert.NotEmpty(t, snap.Error)
}

func TestStore_HandleLogout(t *testing.T) {
	svc := newMockWishlists(domain.ModeAuthenticated)
	svc.On("SwitchToGuest", mock.Anything).Return(wishlistOf(productB), nil)
	s := NewStore(svc)

	w, err := s.HandleLogout(context.Background())
	require.NoError(t, err)
	assert.True(t, w.Contains(productB))
	assert.Equal(t, domain.ModeGuest, s.Snapshot().Mode)
	assert.Equal(t, domain.SyncIdle, s.Snapshot().SyncStatus)
}

// --- Watcher ---

func TestWatcher_FirstObservationOnlyFetches(t *testing.T) {
	for _, authenticated := range []bool{false, true} {
		svc := newMockWishlists(domain.ModeGuest)
		svc.On("Get", mock.Anything).Return(wishlistOf(), nil)
		w := NewWatcher(NewStore(svc), time.Hour, Callbacks{}, discardLogger())

		tr, err := w.Observe(context.Background(), authenticated, "user-1")
		require.NoError(t, err)
		assert.Equal(t, TransitionInitial, tr)
		svc.AssertNotCalled(t, "SwitchToAuthenticated", mock.Anything, mock.Anything)

		tr, err = w.Observe(context.Background(), authenticated, "user-1")
		require.NoError(t, err)
		assert.Equal(t, TransitionNone, tr)
		svc.AssertNumberOfCalls(t, "Get", 1)
	}
}

func TestWatcher_LoginAndLogout(t *testing.T) {
	svc := newMockWishlists(domain.ModeGuest)
	svc.On("Get", mock.Anything).Return(wishlistOf(), nil)
	svc.On("SwitchToAuthenticated", mock.Anything, "user-1").
		Return(service.TransitionResult{Wishlist: wishlistOf(productA), MigratedCount: 1, HadGuestItems: true}, nil)
	svc.On("SwitchToGuest", mock.Anything).Return(wishlistOf(), nil)

	var successes, failures int
	store := NewStore(svc)
	w := NewWatcher(store, time.Hour, Callbacks{
		OnSyncSuccess: func(_ context.Context, res service.TransitionResult) {
			successes++
			assert.Equal(t, 1, res.MigratedCount)
		},
		OnSyncError: func(context.Context, error) { failures++ },
	}, discardLogger())
	defer w.Stop()

	ctx := context.Background()
	_, err := w.Observe(ctx, false, "")
	require.NoError(t, err)

	tr, err := w.Observe(ctx, true, "user-1")
	require.NoError(t, err)
	assert.Equal(t, TransitionLogin, tr)
	assert.Equal(t, domain.SyncCompleted, store.Snapshot().SyncStatus)

	tr, err = w.Observe(ctx, true, "user-1")
	require.NoError(t, err)
	assert.Equal(t, TransitionNone, tr)

	tr, err = w.Observe(ctx, false, "")
	require.NoError(t, err)
	assert.Equal(t, TransitionLogout, tr)
	assert.Equal(t, domain.ModeGuest, store.Mode())

	assert.Equal(t, 1, successes)
	assert.Zero(t, failures)
	svc.AssertNumberOfCalls(t, "SwitchToAuthenticated", 1)
	svc.AssertNumberOfCalls(t, "SwitchToGuest", 1)
}

func TestWatcher_DegradedLoginReportsError(t *testing.T) {
	svc := newMockWishlists(domain.ModeGuest)
	svc.On("Get", mock.Anything).Return(wishlistOf(), nil)
	svc.On("SwitchToAuthenticated", mock.Anything, "user-1").
		Return(service.TransitionResult{Wishlist: wishlistOf(), FailedCount: 2, HadGuestItems: true, Degraded: true}, nil)

	var got error
	w := NewWatcher(NewStore(svc), time.Hour, Callbacks{
		OnSyncError: func(_ context.Context, err error) { got = err },
	}, discardLogger())
	defer w.Stop()

	_, err := w.Observe(context.Background(), false, "")
	require.NoError(t, err)
	_, err = w.Observe(context.Background(), true, "user-1")
	require.NoError(t, err)

	require.Error(t, got)
	assert.ErrorIs(t, got, domain.ErrSync)
}

func TestWatcher_LoginErrorIsReturnedAndReported(t *testing.T) {
	svc := newMockWishlists(domain.ModeGuest)
	svc.On("Get", mock.Anything).Return(wishlistOf(), nil)
	loginErr := domain.NewSyncError("could not load your wishlist", 0, errors.New("503"))
	svc.On("SwitchToAuthenticated", mock.Anything, "user-1").Return(service.TransitionResult{}, loginErr)

	var reported error
	w := NewWatcher(NewStore(svc), time.Hour, Callbacks{
		OnSyncError: func(_ context.Context, err error) { reported = err },
	}, discardLogger())
	defer w.Stop()

	_, _ = w.Observe(context.Background(), false, "")
	tr, err := w.Observe(context.Background(), true, "user-1")
	assert.Equal(t, TransitionLogin, tr)
	assert.ErrorIs(t, err, domain.ErrSync)
	assert.Equal(t, loginErr, reported)
}

func TestWatcher_ResetsSyncStatusAfterDelay(t *testing.T) {
	svc := newMockWishlists(domain.ModeGuest)
	svc.On("Get", mock.Anything).Return(wishlistOf(), nil)
	svc.On("SwitchToAuthenticated", mock.Anything, "user-1").
		Return(service.TransitionResult{Wishlist: wishlistOf()}, nil)

	store := NewStore(svc)
	w := NewWatcher(store, 10*time.Millisecond, Callbacks{}, discardLogger())
	defer w.Stop()

	_, _ = w.Observe(context.Background(), false, "")
	_, err := w.Observe(context.Background(), true, "user-1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return store.Snapshot().SyncStatus == domain.SyncIdle
	}, time.Second, 5*time.Millisecond)
}

func TestWatcher_ConcurrentObservationsFireOnce(t *testing.T) {
	svc := newMockWishlists(domain.ModeGuest)
	svc.On("Get", mock.Anything).Return(wishlistOf(), nil)
	svc.On("SwitchToAuthenticated", mock.Anything, "user-1").
		Return(service.TransitionResult{Wishlist: wishlistOf()}, nil)

	w := NewWatcher(NewStore(svc), time.Hour, Callbacks{}, discardLogger())
	defer w.Stop()
	_, _ = w.Observe(context.Background(), false, "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = w.Observe(context.Background(), true, "user-1")
		}()
	}
	wg.Wait()

	svc.AssertNumberOfCalls(t, "SwitchToAuthenticated", 1)
}

// --- Manager ---

func TestManager_AcquireUsesFirstRequestMode(t *testing.T) {
	var created []domain.Mode
	factory := func(_ string, mode domain.Mode, _ string) Wishlists {
		created = append(created, mode)
		return newMockWishlists(mode)
	}
	m := NewManager(ManagerConfig{ResetDelay: time.Hour}, factory, discardLogger())
	defer m.Stop()

	guest := m.Acquire("s1", false, "")
	auth := m.Acquire("s2", true, "user-1")
	again := m.Acquire("s1", true, "user-1")

	assert.Same(t, guest, again)
	assert.NotSame(t, guest, auth)
	assert.Equal(t, []domain.Mode{domain.ModeGuest, domain.ModeAuthenticated}, created)
	assert.Equal(t, domain.ModeGuest, guest.Store.Mode())
	assert.Equal(t, 2, m.Len())

	got, ok := lookup(m, "s2")
	require.True(t, ok)
	assert.Same(t, auth, got)
}

func TestManager_EvictsIdleSessions(t *testing.T) {
	factory := func(_ string, mode domain.Mode, _ string) Wishlists { return newMockWishlists(mode) }
	m := NewManager(ManagerConfig{}, factory, discardLogger())
	defer m.Stop()
	m.cfg.IdleTTL = time.Minute

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.nowFunc = func() time.Time { return base }
	m.Acquire("old", false, "")
	m.nowFunc = func() time.Time { return base.Add(50 * time.Second) }
	m.Acquire("fresh", false, "")

	m.nowFunc = func() time.Time { return base.Add(90 * time.Second) }
	m.cleanup()

	_, ok := lookup(m, "old")
	assert.False(t, ok)
	_, ok = lookup(m, "fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, m.Len())
}
