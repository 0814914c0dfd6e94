package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/service"
)

// Transition is what an observation of the auth state caused.
type Transition string

const (
	TransitionNone    Transition = "none"
	TransitionInitial Transition = "initial"
	TransitionLogin   Transition = "login"
	TransitionLogout  Transition = "logout"
)

// Callbacks are invoked after a login transition. Either may be nil.
type Callbacks struct {
	OnSyncSuccess func(ctx context.Context, res service.TransitionResult)
	OnSyncError   func(ctx context.Context, err error)
}

// Watcher turns a stream of authentication booleans into exactly one store
// transition per change. The first observation only loads the wishlist.
type Watcher struct {
	store      *Store
	callbacks  Callbacks
	resetDelay time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	observed bool
	prev     bool
	timer    *time.Timer
}

// NewWatcher creates a watcher over store. After a login the sync status is
// reset to idle once resetDelay has passed.
func NewWatcher(store *Store, resetDelay time.Duration, callbacks Callbacks, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:      store,
		callbacks:  callbacks,
		resetDelay: resetDelay,
		logger:     logger,
	}
}

// Observe records the current auth state and runs the transition it implies.
// Observations are serialized, so concurrent requests of one session cannot
// fire the same transition twice.
func (w *Watcher) Observe(ctx context.Context, authenticated bool, userID string) (Transition, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.observed {
		w.observed = true
		w.prev = authenticated
		_, err := w.store.FetchWishlist(ctx)
		return TransitionInitial, err
	}

	if authenticated == w.prev {
		return TransitionNone, nil
	}
	w.prev = authenticated

	if !authenticated {
		w.stopTimer()
		_, err := w.store.HandleLogout(ctx)
		return TransitionLogout, err
	}

	res, err := w.store.HandleLogin(ctx, userID)
	switch {
	case err != nil:
		w.logger.WarnContext(ctx, "wishlist sync after login failed",
			slog.String("error", err.Error()),
		)
		if w.callbacks.OnSyncError != nil {
			w.callbacks.OnSyncError(ctx, err)
		}
	case res.Degraded:
		degraded := domain.NewSyncError(
			fmt.Sprintf("%d saved items could not be moved to your account", res.FailedCount),
			res.MigratedCount, nil)
		if w.callbacks.OnSyncError != nil {
			w.callbacks.OnSyncError(ctx, degraded)
		}
	default:
		if w.callbacks.OnSyncSuccess != nil {
			w.callbacks.OnSyncSuccess(ctx, res)
		}
	}
	w.scheduleReset()

	return TransitionLogin, err
}

// Stop cancels a pending sync status reset.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopTimer()
}

func (w *Watcher) scheduleReset() {
	w.stopTimer()
	if w.resetDelay <= 0 {
		w.store.ResetSyncStatus()
		return
	}
	w.timer = time.AfterFunc(w.resetDelay, w.store.ResetSyncStatus)
}

func (w *Watcher) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
