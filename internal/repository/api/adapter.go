package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httpclient"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

// ServiceName identifies the remote wishlist API in errors and logs.
const ServiceName = "wishlist-api"

const maxResponseBody = 4 << 20

var _ repository.StorageAdapter = (*Adapter)(nil)

// TokenFunc returns the bearer token to forward for the request in ctx.
type TokenFunc func(ctx context.Context) string

// Adapter implements repository.StorageAdapter against the remote wishlist
// REST API. Every failure is translated with domain.FromHTTPError.
type Adapter struct {
	client  httpclient.Doer
	baseURL string
	token   TokenFunc
	logger  *slog.Logger
}

// NewAdapter creates an adapter for the API rooted at baseURL.
func NewAdapter(client httpclient.Doer, baseURL string, token TokenFunc, logger *slog.Logger) *Adapter {
	if token == nil {
		token = func(context.Context) string { return "" }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logger,
	}
}

type addItemRequest struct {
	ProductID          string `json:"productId"`
	NotifyPriceChange  bool   `json:"notifyPriceChange"`
	NotifyAvailability bool   `json:"notifyAvailability"`
}

type moveToCartRequest struct {
	ProductIDs []string `json:"productIds"`
}

type syncRequest struct {
	Items []domain.SyncItem `json:"items"`
}

// Get handles GET /wishlist.
func (a *Adapter) Get(ctx context.Context) ([]domain.RawItem, error) {
	res, err := a.do(ctx, http.MethodGet, "/wishlist", nil)
	if err != nil {
		return nil, domain.FromHTTPError(err, "")
	}
	return domain.ItemsFromEnvelope(res), nil
}

// Add handles POST /wishlist/items.
func (a *Adapter) Add(ctx context.Context, in domain.AddItemInput) ([]domain.RawItem, error) {
	opts := in.Options()
	res, err := a.do(ctx, http.MethodPost, "/wishlist/items", addItemRequest{
		ProductID:          in.ProductID,
		NotifyPriceChange:  opts.NotifyPriceChange,
		NotifyAvailability: opts.NotifyAvailability,
	})
	if err != nil {
		return nil, domain.FromHTTPError(err, in.ProductID)
	}
	return domain.ItemsFromEnvelope(res), nil
}

// Remove handles DELETE /wishlist/items/{productId}.
func (a *Adapter) Remove(ctx context.Context, productID string) ([]domain.RawItem, error) {
	res, err := a.do(ctx, http.MethodDelete, "/wishlist/items/"+url.PathEscape(productID), nil)
	if err != nil {
		return nil, domain.FromHTTPError(err, productID)
	}
	return domain.ItemsFromEnvelope(res), nil
}

// Clear handles DELETE /wishlist.
func (a *Adapter) Clear(ctx context.Context) error {
	if _, err := a.do(ctx, http.MethodDelete, "/wishlist", nil); err != nil {
		return domain.FromHTTPError(err, "")
	}
	return nil
}

// Check handles GET /wishlist/check/{productId}.
func (a *Adapter) Check(ctx context.Context, productID string) (bool, error) {
	res, err := a.do(ctx, http.MethodGet, "/wishlist/check/"+url.PathEscape(productID), nil)
	if err != nil {
		return false, domain.FromHTTPError(err, productID)
	}
	return field(res, "inWishlist").Bool(), nil
}

// MoveToCart handles POST /wishlist/move-to-cart.
func (a *Adapter) MoveToCart(ctx context.Context, productIDs []string) (domain.MoveResult, error) {
	res, err := a.do(ctx, http.MethodPost, "/wishlist/move-to-cart", moveToCartRequest{ProductIDs: productIDs})
	if err != nil {
		return domain.MoveResult{}, domain.FromHTTPError(err, "")
	}

	out := domain.MoveResult{MovedItems: []domain.RawItem{}}
	if moved := field(res, "movedItems"); moved.IsArray() {
		out.MovedItems = domain.RawItems(moved)
	}
	out.MovedCount = len(out.MovedItems)
	if count := field(res, "movedCount"); count.Type == gjson.Number {
		out.MovedCount = int(count.Int())
	}
	return out, nil
}

// PriceChanges handles GET /wishlist/price-changes.
func (a *Adapter) PriceChanges(ctx context.Context) ([]domain.RawItem, error) {
	res, err := a.do(ctx, http.MethodGet, "/wishlist/price-changes", nil)
	if err != nil {
		return nil, domain.FromHTTPError(err, "")
	}
	return domain.ItemsFromEnvelope(res), nil
}

// Sync uploads guest items through POST /wishlist/sync. Items failing guest
// validation are never sent and are counted as failed. A transport or HTTP
// failure is returned as a SyncError; per-item failures are only counted.
func (a *Adapter) Sync(ctx context.Context, guestItems []domain.RawItem) (domain.SyncResult, error) {
	if len(guestItems) == 0 {
		return domain.SyncResult{}, nil
	}

	valid := make([]domain.WishlistItem, 0, len(guestItems))
	invalid := 0
	for _, raw := range guestItems {
		if !domain.ValidateGuestItem(raw) {
			invalid++
			continue
		}
		item, err := domain.NewWishlistItem(raw)
		if err != nil {
			invalid++
			continue
		}
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		return domain.SyncResult{FailedCount: invalid}, nil
	}

	res, err := a.do(ctx, http.MethodPost, "/wishlist/sync", syncRequest{Items: domain.ToSyncPayload(valid)})
	if err != nil {
		return domain.SyncResult{}, domain.NewSyncError(
			fmt.Sprintf("could not migrate guest wishlist: %v", err), 0, err)
	}

	out := domain.SyncResult{MigratedCount: len(valid), FailedCount: invalid}
	if migrated := field(res, "migratedCount"); migrated.Type == gjson.Number {
		out.MigratedCount = int(migrated.Int())
	}
	if failed := field(res, "failedCount"); failed.Type == gjson.Number {
		out.FailedCount += int(failed.Int())
	}

	a.logger.InfoContext(ctx, "guest wishlist synced",
		slog.Int("sent", len(valid)),
		slog.Int("migrated", out.MigratedCount),
		slog.Int("failed", out.FailedCount),
	)
	return out, nil
}

// GuestItems returns nil; the API holds no guest data.
func (a *Adapter) GuestItems(context.Context) ([]domain.RawItem, error) {
	return nil, nil
}

// ClearStorage does nothing; the API holds no guest data.
func (a *Adapter) ClearStorage(context.Context) error {
	return nil
}

// do sends one request and returns the parsed body. Non-2xx responses come
// back as *apperrors.AppError values carrying the downstream status.
func (a *Adapter) do(ctx context.Context, method, path string, payload any) (gjson.Result, error) {
	req, err := httpclient.NewJSONRequest(ctx, method, a.baseURL+path, payload)
	if err != nil {
		return gjson.Result{}, err
	}
	if token := a.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		req.Header.Set("X-Correlation-ID", cid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return gjson.Result{}, httpclient.ParseResponseError(resp, ServiceName)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	if len(body) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s %s: response is not valid JSON", method, path)
	}
	return gjson.ParseBytes(body), nil
}

// field looks name up under data first, then at the root.
func field(res gjson.Result, name string) gjson.Result {
	if v := res.Get("data." + name); v.Exists() {
		return v
	}
	return res.Get(name)
}
