package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
)

const tracerName = "storefront/service"

// MigrationPublisher is notified about finished guest migrations.
type MigrationPublisher interface {
	PublishGuestMigrated(ctx context.Context, report domain.MigrationReport) error
	PublishGuestMigrationFailed(ctx context.Context, report domain.MigrationReport) error
}

// TransitionResult is returned by SwitchToAuthenticated. Degraded is set when
// guest items existed but could not be migrated; the guest data is then kept
// for the next login.
type TransitionResult struct {
	Wishlist      domain.Wishlist `json:"wishlist"`
	MigratedCount int             `json:"migratedCount"`
	FailedCount   int             `json:"failedCount"`
	HadGuestItems bool            `json:"hadGuestItems"`
	Degraded      bool            `json:"degraded"`
}

// adapterState pairs the mode with its adapter. It is replaced as a whole,
// never mutated, so the two cannot disagree.
type adapterState struct {
	mode    domain.Mode
	adapter repository.StorageAdapter
	userID  string
}

// WishlistService exposes one wishlist over whichever adapter is active and
// runs the guest/authenticated transitions.
type WishlistService struct {
	mu            sync.RWMutex
	state         adapterState
	guest         repository.StorageAdapter
	authenticated repository.StorageAdapter
	publisher     MigrationPublisher
	logger        *slog.Logger
}

// NewWishlistService creates a service starting in the given mode. userID is
// only meaningful when initial is ModeAuthenticated. publisher may be nil.
func NewWishlistService(
	guest, authenticated repository.StorageAdapter,
	initial domain.Mode,
	userID string,
	publisher MigrationPublisher,
	logger *slog.Logger,
) *WishlistService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &WishlistService{
		guest:         guest,
		authenticated: authenticated,
		publisher:     publisher,
		logger:        logger,
	}
	if initial == domain.ModeAuthenticated {
		s.state = adapterState{mode: domain.ModeAuthenticated, adapter: authenticated, userID: userID}
	} else {
		s.state = adapterState{mode: domain.ModeGuest, adapter: guest}
	}
	return s
}

func (s *WishlistService) current() adapterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Mode returns the active mode.
func (s *WishlistService) Mode() domain.Mode {
	return s.current().mode
}

// Get returns the wishlist from the active adapter.
func (s *WishlistService) Get(ctx context.Context) (domain.Wishlist, error) {
	st := s.current()
	items, err := st.adapter.Get(ctx)
	if err != nil {
		return domain.Wishlist{}, err
	}
	return st.wishlist(ctx, items), nil
}

// Add validates in before any I/O, then stores it.
func (s *WishlistService) Add(ctx context.Context, in domain.AddItemInput) (domain.Wishlist, error) {
	if res := domain.ValidateAddItem(in); !res.Valid {
		return domain.Wishlist{}, domain.NewValidationError(res.Errors...)
	}

	st := s.current()
	items, err := st.adapter.Add(ctx, in)
	if err != nil {
		return domain.Wishlist{}, err
	}
	return st.wishlist(ctx, items), nil
}

// Remove deletes productID. Removing an absent product is not an error in
// either mode: an upstream not-found answers with the current wishlist.
// Malformed ids never reach the API.
func (s *WishlistService) Remove(ctx context.Context, productID string) (domain.Wishlist, error) {
	st := s.current()
	if st.mode == domain.ModeAuthenticated && !domain.IsValidObjectID(productID) {
		return domain.Wishlist{}, domain.NewValidationError(fmt.Sprintf("invalid product id %q", productID))
	}

	items, err := st.adapter.Remove(ctx, productID)
	if errors.Is(err, domain.ErrNotFound) {
		items, err = st.adapter.Get(ctx)
	}
	if err != nil {
		return domain.Wishlist{}, err
	}
	return st.wishlist(ctx, items), nil
}

// Clear deletes every item and returns the empty wishlist.
func (s *WishlistService) Clear(ctx context.Context) (domain.Wishlist, error) {
	st := s.current()
	if err := st.adapter.Clear(ctx); err != nil {
		return domain.Wishlist{}, err
	}
	return st.wishlist(ctx, nil), nil
}

// Check reports whether productID is in the wishlist.
func (s *WishlistService) Check(ctx context.Context, productID string) (bool, error) {
	return s.current().adapter.Check(ctx, productID)
}

// MoveToCart is refused in guest mode without touching any adapter.
func (s *WishlistService) MoveToCart(ctx context.Context, productIDs []string) (domain.MoveResult, error) {
	st := s.current()
	if st.mode != domain.ModeAuthenticated {
		return domain.MoveResult{}, domain.NewModeError("moveToCart", st.mode)
	}
	if res := domain.ValidateMoveToCart(productIDs); !res.Valid {
		return domain.MoveResult{}, domain.NewValidationError(res.Errors...)
	}
	return st.adapter.MoveToCart(ctx, productIDs)
}

// PriceChanges delegates in both modes; guests get an empty list.
func (s *WishlistService) PriceChanges(ctx context.Context) ([]domain.RawItem, error) {
	return s.current().adapter.PriceChanges(ctx)
}

// SwitchToAuthenticated moves the service to the authenticated adapter and
// migrates guest items into it.
//
// Guest items are captured before the swap. The swap is never rolled back.
// Only a failure to fetch the authenticated wishlist is returned as an error;
// a failed migration yields a Degraded result and leaves guest storage intact.
func (s *WishlistService) SwitchToAuthenticated(ctx context.Context, userID string) (result TransitionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "wishlist.switch_to_authenticated",
		attribute.String("user.id", userID),
	)
	defer func() {
		span.SetAttributes(
			attribute.Int("wishlist.migrated", result.MigratedCount),
			attribute.Int("wishlist.failed", result.FailedCount),
			attribute.Bool("wishlist.degraded", result.Degraded),
		)
		tracing.EndSpan(span, err)
	}()

	return s.switchToAuthenticated(ctx, userID)
}

func (s *WishlistService) switchToAuthenticated(ctx context.Context, userID string) (TransitionResult, error) {
	s.mu.Lock()
	guestItems, err := s.guest.GuestItems(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "could not capture guest wishlist, continuing without migration",
			slog.String("error", err.Error()),
		)
		guestItems = nil
	}
	s.state = adapterState{mode: domain.ModeAuthenticated, adapter: s.authenticated, userID: userID}
	st := s.state
	s.mu.Unlock()
	modeTransitionsTotal.WithLabelValues(string(domain.ModeAuthenticated)).Inc()

	items, err := s.authenticated.Get(ctx)
	if err != nil {
		guestMigrationsTotal.WithLabelValues(outcomeFetchFailed).Inc()
		return TransitionResult{}, domain.NewSyncError(
			fmt.Sprintf("could not load your wishlist after sign-in: %v", err), 0, err)
	}

	result := TransitionResult{HadGuestItems: len(guestItems) > 0}
	if !result.HadGuestItems {
		guestMigrationsTotal.WithLabelValues(outcomeNoGuestItems).Inc()
		result.Wishlist = st.wishlist(ctx, items)
		return result, nil
	}

	synced, err := s.authenticated.Sync(ctx, guestItems)
	if err != nil {
		result.Degraded = true
		result.FailedCount = len(guestItems)
		s.logger.WarnContext(ctx, "guest wishlist migration failed, guest data kept for retry",
			slog.Int("guest_items", len(guestItems)),
			slog.String("error", err.Error()),
		)
		guestMigrationsTotal.WithLabelValues(outcomeDegraded).Inc()
		guestMigratedItemsTotal.WithLabelValues("failed").Add(float64(result.FailedCount))
		s.publish(ctx, true, domain.MigrationReport{
			UserID:      userID,
			FailedCount: result.FailedCount,
			Degraded:    true,
			Reason:      err.Error(),
		})
		result.Wishlist = st.wishlist(ctx, items)
		return result, nil
	}

	result.MigratedCount = synced.MigratedCount
	result.FailedCount = synced.FailedCount

	// Cleared through the guest adapter itself; the active adapter is no
	// longer the guest one.
	if err := s.guest.ClearStorage(ctx); err != nil {
		s.logger.WarnContext(ctx, "could not clear guest wishlist after migration",
			slog.String("error", err.Error()),
		)
	}

	if refreshed, err := s.authenticated.Get(ctx); err != nil {
		s.logger.WarnContext(ctx, "could not refresh wishlist after migration",
			slog.String("error", err.Error()),
		)
	} else {
		items = refreshed
	}

	guestMigrationsTotal.WithLabelValues(outcomeMigrated).Inc()
	guestMigratedItemsTotal.WithLabelValues("migrated").Add(float64(result.MigratedCount))
	guestMigratedItemsTotal.WithLabelValues("failed").Add(float64(result.FailedCount))
	s.logger.InfoContext(ctx, "guest wishlist migrated",
		slog.Int("migrated", result.MigratedCount),
		slog.Int("failed", result.FailedCount),
	)
	s.publish(ctx, false, domain.MigrationReport{
		UserID:        userID,
		MigratedCount: result.MigratedCount,
		FailedCount:   result.FailedCount,
	})

	result.Wishlist = st.wishlist(ctx, items)
	return result, nil
}

// SwitchToGuest swaps back to the guest adapter and returns the guest
// wishlist. Authenticated data stays on the server.
func (s *WishlistService) SwitchToGuest(ctx context.Context) (domain.Wishlist, error) {
	s.mu.Lock()
	s.state = adapterState{mode: domain.ModeGuest, adapter: s.guest}
	s.mu.Unlock()
	modeTransitionsTotal.WithLabelValues(string(domain.ModeGuest)).Inc()

	return s.Get(ctx)
}

func (s *WishlistService) publish(ctx context.Context, failed bool, report domain.MigrationReport) {
	if s.publisher == nil {
		return
	}
	var err error
	if failed {
		err = s.publisher.PublishGuestMigrationFailed(ctx, report)
	} else {
		err = s.publisher.PublishGuestMigrated(ctx, report)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish migration event",
			slog.String("error", err.Error()),
		)
	}
}

func (st adapterState) wishlist(ctx context.Context, items []domain.RawItem) domain.Wishlist {
	var userID *string
	if st.mode == domain.ModeAuthenticated && st.userID != "" {
		id := st.userID
		userID = &id
	}
	return domain.NewWishlist(ctx, items, userID)
}
