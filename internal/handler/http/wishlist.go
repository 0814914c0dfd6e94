package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/session"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httputil"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

const maxBodyBytes = 1 << 20

// WishlistHandler serves the wishlist of the session attached by SessionSync.
type WishlistHandler struct {
	logger *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{logger: logger}
}

// --- Request / response DTOs ---

// MoveToCartRequest is the JSON body of POST /wishlist/move-to-cart.
type MoveToCartRequest struct {
	ProductIDs []string `json:"productIds" validate:"required"`
}

// CheckResponse is returned by GET /wishlist/check/{productId}.
type CheckResponse struct {
	ProductID  string `json:"productId"`
	InWishlist bool   `json:"inWishlist"`
}

// SessionResponse is returned by GET /session.
type SessionResponse struct {
	SessionID string `json:"sessionId"`
	session.Snapshot
}

// --- Handlers ---

// GetSession handles GET /api/v1/session
func (h *WishlistHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, SessionResponse{
		SessionID: sess.ID,
		Snapshot:  sess.Store.Snapshot(),
	})
}

// GetWishlist handles GET /api/v1/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	wl, err := sess.Store.FetchWishlist(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, wl)
}

// ClearWishlist handles DELETE /api/v1/wishlist
func (h *WishlistHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	wl, err := sess.Store.ClearWishlist(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, wl)
}

// AddItem handles POST /api/v1/wishlist/items
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteValidationError(w, errors.New("could not read request body"))
		return
	}
	in, res := domain.DecodeAddItem(body)
	if !res.Valid {
		writeError(w, r, domain.NewValidationError(res.Errors...), h.logger)
		return
	}

	wl, err := sess.Store.AddItem(r.Context(), in)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, wl)
}

// RemoveItem handles DELETE /api/v1/wishlist/items/{productId}. Removing a
// well-formed id that is not in the wishlist succeeds.
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	productID, ok := httputil.ParseObjectID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	wl, err := sess.Store.RemoveItem(r.Context(), productID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, wl)
}

// CheckItem handles GET /api/v1/wishlist/check/{productId}
func (h *WishlistHandler) CheckItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	productID, ok := httputil.ParseObjectID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	in, err := sess.Store.Check(r.Context(), productID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, CheckResponse{ProductID: productID, InWishlist: in})
}

// MoveToCart handles POST /api/v1/wishlist/move-to-cart
func (h *WishlistHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req MoveToCartRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	res, err := sess.Store.MoveToCart(r.Context(), req.ProductIDs)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

// PriceChanges handles GET /api/v1/wishlist/price-changes
func (h *WishlistHandler) PriceChanges(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	changes, err := sess.Store.PriceChanges(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, changes)
}

func (h *WishlistHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "wishlist route mounted without SessionSync",
			slog.String("path", r.URL.Path),
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"},
		})
		return nil, false
	}
	return sess, true
}
