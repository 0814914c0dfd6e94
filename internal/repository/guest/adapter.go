package guest

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
)

// GuestStorageKey is the local store key holding the guest wishlist.
const GuestStorageKey = "wishlist_guest"

var _ repository.StorageAdapter = (*Adapter)(nil)

// Adapter implements repository.StorageAdapter on top of a LocalStore. The
// stored value is a JSON array of flat guest items.
type Adapter struct {
	store  repository.LocalStore
	logger *slog.Logger
}

// NewAdapter creates a guest adapter over store.
func NewAdapter(store repository.LocalStore, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{store: store, logger: logger}
}

// Get returns the stored items that pass guest validation. Invalid entries
// are skipped with a warning and left in storage.
func (a *Adapter) Get(ctx context.Context) ([]domain.RawItem, error) {
	items, err := a.read(ctx)
	if err != nil {
		return nil, err
	}

	valid := make([]domain.RawItem, 0, len(items))
	for i, item := range items {
		if !domain.ValidateGuestItem(item) {
			a.logger.WarnContext(ctx, "skipping invalid guest wishlist item",
				slog.Int("index", i),
				slog.String("item", string(item)),
			)
			continue
		}
		valid = append(valid, item)
	}
	return valid, nil
}

// Add appends a guest item unless the product is already stored.
func (a *Adapter) Add(ctx context.Context, in domain.AddItemInput) ([]domain.RawItem, error) {
	items, err := a.read(ctx)
	if err != nil {
		return nil, err
	}
	if indexOf(items, in.ProductID) >= 0 {
		return nil, domain.NewDuplicateError(in.ProductID)
	}

	item, err := json.Marshal(domain.NewGuestItem(in.ProductID, in.Options()))
	if err != nil {
		return nil, domain.NewNetworkError("could not encode wishlist item", err)
	}
	if err := a.write(ctx, append(items, item)); err != nil {
		return nil, err
	}
	return a.Get(ctx)
}

// Remove deletes productID. A missing product leaves storage untouched.
func (a *Adapter) Remove(ctx context.Context, productID string) ([]domain.RawItem, error) {
	items, err := a.read(ctx)
	if err != nil {
		return nil, err
	}

	kept := items[:0:0]
	for _, item := range items {
		if id, ok := domain.ResolveProductID(item); ok && id == productID {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) != len(items) {
		if err := a.write(ctx, kept); err != nil {
			return nil, err
		}
	}
	return a.Get(ctx)
}

// Clear deletes the stored wishlist.
func (a *Adapter) Clear(ctx context.Context) error {
	return a.ClearStorage(ctx)
}

// Check reports whether productID is stored.
func (a *Adapter) Check(ctx context.Context, productID string) (bool, error) {
	items, err := a.Get(ctx)
	if err != nil {
		return false, err
	}
	return indexOf(items, productID) >= 0, nil
}

// MoveToCart is not available to guests.
func (a *Adapter) MoveToCart(context.Context, []string) (domain.MoveResult, error) {
	return domain.MoveResult{}, domain.NewModeError("moveToCart", domain.ModeGuest)
}

// PriceChanges returns an empty list; guests have no price tracking.
func (a *Adapter) PriceChanges(context.Context) ([]domain.RawItem, error) {
	return []domain.RawItem{}, nil
}

// Sync is not available to guests.
func (a *Adapter) Sync(context.Context, []domain.RawItem) (domain.SyncResult, error) {
	return domain.SyncResult{}, domain.NewModeError("sync", domain.ModeGuest)
}

// GuestItems returns every stored item exactly as stored.
func (a *Adapter) GuestItems(ctx context.Context) ([]domain.RawItem, error) {
	return a.read(ctx)
}

// ClearStorage deletes the guest storage key.
func (a *Adapter) ClearStorage(ctx context.Context) error {
	if err := a.store.RemoveItem(ctx, GuestStorageKey); err != nil {
		return domain.NewNetworkError("could not clear guest wishlist", err)
	}
	return nil
}

// read decodes the stored array. Missing, corrupt or non-array content reads
// as empty.
func (a *Adapter) read(ctx context.Context) ([]domain.RawItem, error) {
	data, found, err := a.store.GetItem(ctx, GuestStorageKey)
	if err != nil {
		return nil, domain.NewNetworkError("could not read guest wishlist", err)
	}
	if !found || len(data) == 0 {
		return nil, nil
	}

	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsArray() {
		a.logger.WarnContext(ctx, "guest wishlist storage is corrupt, treating as empty",
			slog.Int("bytes", len(data)),
		)
		return nil, nil
	}

	var items []domain.RawItem
	if err := json.Unmarshal(data, &items); err != nil {
		a.logger.WarnContext(ctx, "guest wishlist storage is corrupt, treating as empty",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return items, nil
}

func (a *Adapter) write(ctx context.Context, items []domain.RawItem) error {
	if items == nil {
		items = []domain.RawItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return domain.NewNetworkError("could not encode guest wishlist", err)
	}
	if err := a.store.SetItem(ctx, GuestStorageKey, data); err != nil {
		return domain.NewNetworkError("could not save guest wishlist", err)
	}
	return nil
}

func indexOf(items []domain.RawItem, productID string) int {
	for i, item := range items {
		if id, ok := domain.ResolveProductID(item); ok && id == productID {
			return i
		}
	}
	return -1
}
