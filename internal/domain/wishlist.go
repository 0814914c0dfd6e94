package domain

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

// Mode selects which storage adapter backs a wishlist.
type Mode string

const (
	ModeGuest         Mode = "guest"
	ModeAuthenticated Mode = "authenticated"
)

// SyncStatus reports the progress of a guest-to-authenticated migration.
type SyncStatus string

const (
	SyncIdle       SyncStatus = "idle"
	SyncInProgress SyncStatus = "in_progress"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)

// TimeLayout is the ISO-8601 layout used for addedAt timestamps.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// now is replaced in tests.
var now = time.Now

// ErrUnresolvableID is returned when none of the known id fields of a raw
// item holds a usable value.
var ErrUnresolvableID = errors.New("wishlist item has no resolvable product id")

// RawItem is an item exactly as an adapter read it from storage or the API.
type RawItem = json.RawMessage

// idPaths are probed in order by ResolveProductID.
var idPaths = []string{"product._id", "product.id", "productId", "_id", "id"}

// WishlistItem is the canonical wishlist entry. Product is nil in guest mode;
// the availability and price fields are only populated by the remote API.
type WishlistItem struct {
	ProductID          string          `json:"productId"`
	Product            json.RawMessage `json:"product"`
	NotifyPriceChange  bool            `json:"notifyPriceChange"`
	NotifyAvailability bool            `json:"notifyAvailability"`
	AddedAt            string          `json:"addedAt"`
	IsAvailable        *bool           `json:"isAvailable"`
	PriceChanged       bool            `json:"priceChanged"`
	PriceDropped       bool            `json:"priceDropped"`
	PriceWhenAdded     *float64        `json:"priceWhenAdded"`
	PriceDifference    *float64        `json:"priceDifference"`
}

// Wishlist is the aggregate returned to callers. ItemCount always equals
// len(Items).
type Wishlist struct {
	Items     []WishlistItem `json:"items"`
	ItemCount int            `json:"itemCount"`
	UserID    *string        `json:"userId"`
}

// Contains reports whether productID is already in the wishlist.
func (w *Wishlist) Contains(productID string) bool {
	_, ok := w.Find(productID)
	return ok
}

// Find returns the item with the given product id.
func (w *Wishlist) Find(productID string) (WishlistItem, bool) {
	for _, item := range w.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return WishlistItem{}, false
}

// GuestItemOptions are the caller-supplied fields of a guest item.
type GuestItemOptions struct {
	NotifyPriceChange  bool
	NotifyAvailability bool
	AddedAt            string
}

// GuestItem is the flat record persisted in guest storage.
type GuestItem struct {
	ProductID          string `json:"productId"`
	NotifyPriceChange  bool   `json:"notifyPriceChange"`
	NotifyAvailability bool   `json:"notifyAvailability"`
	AddedAt            string `json:"addedAt"`
}

// SyncItem is one entry of the bulk sync request.
type SyncItem struct {
	ProductID          string `json:"productId"`
	NotifyPriceChange  bool   `json:"notifyPriceChange"`
	NotifyAvailability bool   `json:"notifyAvailability"`
	AddedAt            string `json:"addedAt"`
}

// SyncResult is the outcome reported by a bulk sync.
type SyncResult struct {
	MigratedCount int `json:"migratedCount"`
	FailedCount   int `json:"failedCount"`
}

// MoveResult is the outcome of moving wishlist items into the cart.
type MoveResult struct {
	MovedItems []RawItem `json:"movedItems"`
	MovedCount int       `json:"movedCount"`
}

// MigrationReport describes a finished guest migration for event consumers.
type MigrationReport struct {
	UserID        string
	MigratedCount int
	FailedCount   int
	Degraded      bool
	Reason        string
}

// ResolveProductID returns the first truthy value among product._id,
// product.id, productId, _id and id, converted to a string.
func ResolveProductID(raw RawItem) (string, bool) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return "", false
	}
	for _, path := range idPaths {
		if id, ok := truthyString(gjson.GetBytes(raw, path)); ok {
			return id, true
		}
	}
	return "", false
}

func truthyString(r gjson.Result) (string, bool) {
	switch r.Type {
	case gjson.String:
		return r.Str, r.Str != ""
	case gjson.Number:
		return r.Raw, r.Num != 0
	case gjson.True:
		return "true", true
	default:
		return "", false
	}
}

// NewWishlistItem builds the canonical item from a raw adapter item. It
// fails only when no product id can be resolved.
func NewWishlistItem(raw RawItem) (WishlistItem, error) {
	id, ok := ResolveProductID(raw)
	if !ok {
		return WishlistItem{}, ErrUnresolvableID
	}

	parsed := gjson.ParseBytes(raw)
	item := WishlistItem{
		ProductID:          id,
		NotifyPriceChange:  parsed.Get("notifyPriceChange").Bool(),
		NotifyAvailability: parsed.Get("notifyAvailability").Bool(),
		AddedAt:            firstString(parsed, "addedAt", "createdAt"),
		PriceChanged:       parsed.Get("priceChanged").Bool(),
		PriceDropped:       parsed.Get("priceDropped").Bool(),
		IsAvailable:        optionalBool(parsed.Get("isAvailable")),
		PriceWhenAdded:     optionalNumber(parsed.Get("priceWhenAdded")),
		PriceDifference:    optionalNumber(parsed.Get("priceDifference")),
	}
	if product := parsed.Get("product"); product.IsObject() {
		item.Product = json.RawMessage(product.Raw)
	}
	if item.AddedAt == "" {
		item.AddedAt = Timestamp()
	}
	return item, nil
}

// NewWishlist normalizes raw items into a Wishlist. Items that cannot be
// normalized are dropped with a warning; it never fails.
func NewWishlist(ctx context.Context, items []RawItem, userID *string) Wishlist {
	w := Wishlist{Items: make([]WishlistItem, 0, len(items)), UserID: userID}
	for i, raw := range items {
		item, err := NewWishlistItem(raw)
		if err != nil {
			logger.FromContext(ctx).WarnContext(ctx, "dropping malformed wishlist item",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		w.Items = append(w.Items, item)
	}
	w.ItemCount = len(w.Items)
	return w
}

// ItemsFromEnvelope extracts the item list from {data:{items}}, {items},
// {data:[...]} or a bare array. Anything else yields an empty list. Count
// fields in the envelope are never read.
func ItemsFromEnvelope(res gjson.Result) []RawItem {
	for _, candidate := range []gjson.Result{
		res.Get("data.items"),
		res.Get("items"),
		res.Get("data"),
		res,
	} {
		if candidate.IsArray() {
			return RawItems(candidate)
		}
	}
	return []RawItem{}
}

// RawItems copies every element of a JSON array.
func RawItems(list gjson.Result) []RawItem {
	entries := list.Array()
	out := make([]RawItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RawItem(e.Raw))
	}
	return out
}

// NewGuestItem builds the minimal record stored for a guest.
func NewGuestItem(productID string, opts GuestItemOptions) GuestItem {
	addedAt := opts.AddedAt
	if addedAt == "" {
		addedAt = Timestamp()
	}
	return GuestItem{
		ProductID:          productID,
		NotifyPriceChange:  opts.NotifyPriceChange,
		NotifyAvailability: opts.NotifyAvailability,
		AddedAt:            addedAt,
	}
}

// ToSyncPayload keeps only the fields the sync endpoint accepts.
func ToSyncPayload(items []WishlistItem) []SyncItem {
	out := make([]SyncItem, 0, len(items))
	for _, item := range items {
		out = append(out, SyncItem{
			ProductID:          item.ProductID,
			NotifyPriceChange:  item.NotifyPriceChange,
			NotifyAvailability: item.NotifyAvailability,
			AddedAt:            item.AddedAt,
		})
	}
	return out
}

// Timestamp returns the current time in TimeLayout, in UTC.
func Timestamp() string {
	return now().UTC().Format(TimeLayout)
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

func optionalBool(r gjson.Result) *bool {
	if r.Type != gjson.True && r.Type != gjson.False {
		return nil
	}
	b := r.Bool()
	return &b
}

func optionalNumber(r gjson.Result) *float64 {
	if r.Type != gjson.Number {
		return nil
	}
	n := r.Num
	return &n
}
