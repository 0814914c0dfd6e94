package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httputil"
)

// toAppError maps wishlist domain errors onto the shared HTTP error type.
// Anything else is returned unchanged for httputil.WriteError to classify.
func toAppError(err error) error {
	var base *domain.WishlistError
	if !errors.As(err, &base) {
		return err
	}

	appErr := &apperrors.AppError{Code: base.Code, Message: base.Message}

	var (
		verr *domain.ValidationError
		merr *domain.ModeError
	)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		appErr.Status, appErr.Err = http.StatusConflict, apperrors.ErrConflict
	case errors.Is(err, domain.ErrNotFound):
		appErr.Status, appErr.Err = http.StatusNotFound, apperrors.ErrNotFound
	case errors.As(err, &verr):
		appErr.Status, appErr.Err = http.StatusBadRequest, apperrors.ErrInvalidInput
		appErr.Details = verr.Errors
	case errors.As(err, &merr):
		appErr.Status, appErr.Err = http.StatusForbidden, apperrors.ErrForbidden
	case errors.Is(err, domain.ErrSync):
		appErr.Status, appErr.Err = http.StatusBadGateway, err
	case errors.Is(err, domain.ErrNetwork):
		appErr.Status, appErr.Err = http.StatusServiceUnavailable, err
	default:
		appErr.Status, appErr.Err = http.StatusInternalServerError, err
	}
	return appErr
}

func writeError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	httputil.WriteError(w, r, toAppError(err), logger)
}
