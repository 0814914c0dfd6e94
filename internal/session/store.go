package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/service"
)

// Wishlists is the wishlist service a Store drives.
type Wishlists interface {
	Mode() domain.Mode
	Get(ctx context.Context) (domain.Wishlist, error)
	Add(ctx context.Context, in domain.AddItemInput) (domain.Wishlist, error)
	Remove(ctx context.Context, productID string) (domain.Wishlist, error)
	Clear(ctx context.Context) (domain.Wishlist, error)
	Check(ctx context.Context, productID string) (bool, error)
	MoveToCart(ctx context.Context, productIDs []string) (domain.MoveResult, error)
	PriceChanges(ctx context.Context) ([]domain.RawItem, error)
	SwitchToAuthenticated(ctx context.Context, userID string) (service.TransitionResult, error)
	SwitchToGuest(ctx context.Context) (domain.Wishlist, error)
}

var _ Wishlists = (*service.WishlistService)(nil)

// Migration summarizes the last login transition.
type Migration struct {
	MigratedCount int  `json:"migratedCount"`
	FailedCount   int  `json:"failedCount"`
	HadGuestItems bool `json:"hadGuestItems"`
	Degraded      bool `json:"degraded"`
}

// Snapshot is a copy of a session's wishlist state.
type Snapshot struct {
	Mode          domain.Mode       `json:"mode"`
	Wishlist      *domain.Wishlist  `json:"wishlist"`
	Loading       bool              `json:"loading"`
	Error         string            `json:"error,omitempty"`
	SyncStatus    domain.SyncStatus `json:"syncStatus"`
	LastSync      *time.Time        `json:"lastSync,omitempty"`
	LastMigration *Migration        `json:"lastMigration,omitempty"`
}

// Store caches one session's wishlist next to the service that owns it. Every
// mutation replaces the cached wishlist with the one the service returned.
type Store struct {
	svc Wishlists

	mu            sync.Mutex
	wishlist      *domain.Wishlist
	loading       int
	err           error
	syncStatus    domain.SyncStatus
	lastSync      *time.Time
	lastMigration *Migration

	nowFunc func() time.Time
}

// NewStore creates a store over svc. Nothing is fetched until FetchWishlist.
func NewStore(svc Wishlists) *Store {
	return &Store{
		svc:        svc,
		syncStatus: domain.SyncIdle,
		nowFunc:    time.Now,
	}
}

// Mode returns the service's current mode.
func (s *Store) Mode() domain.Mode {
	return s.svc.Mode()
}

// FetchWishlist loads the wishlist from the active adapter.
func (s *Store) FetchWishlist(ctx context.Context) (domain.Wishlist, error) {
	return s.mutate(func() (domain.Wishlist, error) { return s.svc.Get(ctx) })
}

// AddItem adds productID. A product already in the cached wishlist is
// rejected without calling the service.
func (s *Store) AddItem(ctx context.Context, in domain.AddItemInput) (domain.Wishlist, error) {
	s.mu.Lock()
	decision := domain.CanAddToWishlist(s.wishlist, in.ProductID)
	s.mu.Unlock()
	if decision.Reason == domain.ReasonAlreadyInWishlist {
		err := domain.NewDuplicateError(in.ProductID)
		s.setErr(err)
		return domain.Wishlist{}, err
	}

	return s.mutate(func() (domain.Wishlist, error) { return s.svc.Add(ctx, in) })
}

// RemoveItem removes productID.
func (s *Store) RemoveItem(ctx context.Context, productID string) (domain.Wishlist, error) {
	return s.mutate(func() (domain.Wishlist, error) { return s.svc.Remove(ctx, productID) })
}

// ClearWishlist removes every item.
func (s *Store) ClearWishlist(ctx context.Context) (domain.Wishlist, error) {
	return s.mutate(func() (domain.Wishlist, error) { return s.svc.Clear(ctx) })
}

// Check reports whether productID is in the wishlist. It does not touch the
// cached state.
func (s *Store) Check(ctx context.Context, productID string) (bool, error) {
	return s.svc.Check(ctx, productID)
}

// PriceChanges returns the price change records of the active adapter.
func (s *Store) PriceChanges(ctx context.Context) ([]domain.RawItem, error) {
	return s.svc.PriceChanges(ctx)
}

// MoveToCart moves productIDs into the cart and reloads the wishlist. Items
// present in the cached wishlist are checked first; an item that cannot be
// bought fails the whole request before any I/O.
func (s *Store) MoveToCart(ctx context.Context, productIDs []string) (domain.MoveResult, error) {
	if s.svc.Mode() == domain.ModeAuthenticated {
		if err := s.checkMovable(productIDs); err != nil {
			s.setErr(err)
			return domain.MoveResult{}, err
		}
	}

	s.begin()
	res, err := s.svc.MoveToCart(ctx, productIDs)
	if err != nil {
		s.end(nil, err)
		return domain.MoveResult{}, err
	}
	w, err := s.svc.Get(ctx)
	if err != nil {
		// The move happened; only the reload failed.
		s.end(nil, err)
		return res, nil
	}
	s.end(&w, nil)
	return res, nil
}

func (s *Store) checkMovable(productIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wishlist == nil {
		return nil
	}

	var problems []string
	for _, id := range productIDs {
		item, ok := s.wishlist.Find(id)
		if !ok {
			continue
		}
		if d := domain.CanMoveItemToCart(item); !d.Allowed {
			problems = append(problems, fmt.Sprintf("%s: %s", id, d.Reason))
		}
	}
	if len(problems) > 0 {
		return domain.NewValidationError(problems...)
	}
	return nil
}

// HandleLogin switches the service to authenticated mode and records the
// migration outcome. The sync status ends as failed when the transition
// errored or the migration was degraded.
func (s *Store) HandleLogin(ctx context.Context, userID string) (service.TransitionResult, error) {
	s.mu.Lock()
	s.syncStatus = domain.SyncInProgress
	s.loading++
	s.err = nil
	s.mu.Unlock()

	res, err := s.svc.SwitchToAuthenticated(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	now := s.nowFunc().UTC()
	s.lastSync = &now
	if err != nil {
		// The mode already switched; the cached guest items no longer apply.
		s.wishlist = nil
		s.err = err
		s.syncStatus = domain.SyncFailed
		return res, err
	}

	w := res.Wishlist
	s.wishlist = &w
	s.lastMigration = &Migration{
		MigratedCount: res.MigratedCount,
		FailedCount:   res.FailedCount,
		HadGuestItems: res.HadGuestItems,
		Degraded:      res.Degraded,
	}
	if res.Degraded {
		s.syncStatus = domain.SyncFailed
	} else {
		s.syncStatus = domain.SyncCompleted
	}
	return res, nil
}

// HandleLogout switches the service back to guest mode.
func (s *Store) HandleLogout(ctx context.Context) (domain.Wishlist, error) {
	s.mu.Lock()
	s.syncStatus = domain.SyncIdle
	s.lastMigration = nil
	s.mu.Unlock()

	return s.mutate(func() (domain.Wishlist, error) { return s.svc.SwitchToGuest(ctx) })
}

// ResetSyncStatus returns the sync status to idle unless a sync is running.
func (s *Store) ResetSyncStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncStatus != domain.SyncInProgress {
		s.syncStatus = domain.SyncIdle
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Mode:       s.svc.Mode(),
		Loading:    s.loading > 0,
		SyncStatus: s.syncStatus,
	}
	if s.wishlist != nil {
		w := *s.wishlist
		snap.Wishlist = &w
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	if s.lastSync != nil {
		t := *s.lastSync
		snap.LastSync = &t
	}
	if s.lastMigration != nil {
		m := *s.lastMigration
		snap.LastMigration = &m
	}
	return snap
}

func (s *Store) mutate(fn func() (domain.Wishlist, error)) (domain.Wishlist, error) {
	s.begin()
	w, err := fn()
	if err != nil {
		s.end(nil, err)
		return domain.Wishlist{}, err
	}
	s.end(&w, nil)
	return w, nil
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading++
	s.err = nil
	s.mu.Unlock()
}

func (s *Store) end(w *domain.Wishlist, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if w != nil {
		s.wishlist = w
	}
	s.err = err
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
