package repository

import (
	"context"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
)

// LocalStore is a per-session string key/value store, the server-side
// equivalent of a browser's localStorage.
type LocalStore interface {
	// GetItem returns the value stored under key. found is false when the
	// key does not exist.
	GetItem(ctx context.Context, key string) (value []byte, found bool, err error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key string, value []byte) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
}

// StorageAdapter is implemented by both the guest and the authenticated
// wishlist backends. Adapters return raw item arrays; building the Wishlist
// aggregate is left to the caller. Every error is a domain error.
type StorageAdapter interface {
	// Get returns the current items.
	Get(ctx context.Context) ([]domain.RawItem, error)

	// Add stores one product and returns the updated items.
	Add(ctx context.Context, in domain.AddItemInput) ([]domain.RawItem, error)

	// Remove deletes one product and returns the updated items. Removing a
	// product that is not present is not an error.
	Remove(ctx context.Context, productID string) ([]domain.RawItem, error)

	// Clear deletes every item.
	Clear(ctx context.Context) error

	// Check reports whether productID is in the wishlist.
	Check(ctx context.Context, productID string) (bool, error)

	// MoveToCart moves the given products into the shopper's cart.
	MoveToCart(ctx context.Context, productIDs []string) (domain.MoveResult, error)

	// PriceChanges lists price change records for wishlist items.
	PriceChanges(ctx context.Context) ([]domain.RawItem, error)

	// Sync bulk-uploads guest items into this backend.
	Sync(ctx context.Context, guestItems []domain.RawItem) (domain.SyncResult, error)

	// GuestItems returns the raw, unnormalized guest items for capture
	// before a mode switch. Backends without guest data return nil.
	GuestItems(ctx context.Context) ([]domain.RawItem, error)

	// ClearStorage deletes guest data after a successful migration.
	// Backends without guest data do nothing.
	ClearStorage(ctx context.Context) error
}
