package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// Sentinels for errors.Is checks.
var (
	ErrDuplicate  = errors.New("wishlist: duplicate item")
	ErrNotFound   = errors.New("wishlist: item not found")
	ErrValidation = errors.New("wishlist: validation failed")
	ErrSync       = errors.New("wishlist: sync failed")
	ErrMode       = errors.New("wishlist: operation not available in current mode")
	ErrNetwork    = errors.New("wishlist: network error")
)

// Machine-readable error codes.
const (
	CodeDuplicate  = "WISHLIST_DUPLICATE"
	CodeNotFound   = "WISHLIST_NOT_FOUND"
	CodeValidation = "WISHLIST_VALIDATION"
	CodeSync       = "WISHLIST_SYNC_FAILED"
	CodeMode       = "WISHLIST_MODE"
	CodeNetwork    = "WISHLIST_NETWORK"
)

// WishlistError is the common base of every wishlist error. Message is
// suitable for display.
type WishlistError struct {
	Code    string
	Message string
	Err     error
}

func (e *WishlistError) Error() string { return e.Message }

func (e *WishlistError) Unwrap() error { return e.Err }

// DuplicateError reports a product that is already in the wishlist.
type DuplicateError struct {
	WishlistError
	ProductID string
}

func (e *DuplicateError) Unwrap() error { return &e.WishlistError }

// NotFoundError reports a product that is not in the wishlist.
type NotFoundError struct {
	WishlistError
	ProductID string
}

func (e *NotFoundError) Unwrap() error { return &e.WishlistError }

// ValidationError carries every validation message.
type ValidationError struct {
	WishlistError
	Errors []string
}

func (e *ValidationError) Unwrap() error { return &e.WishlistError }

// SyncError is an unrecoverable failure of a sync or of the fetch that
// precedes it. MigratedCount items were committed before it happened.
type SyncError struct {
	WishlistError
	MigratedCount int
	Cause         error
}

func (e *SyncError) Unwrap() []error { return unwrapWithCause(&e.WishlistError, e.Cause) }

// ModeError reports an operation invoked in a mode that does not support it.
type ModeError struct {
	WishlistError
	Operation string
	Mode      Mode
}

func (e *ModeError) Unwrap() error { return &e.WishlistError }

// NetworkError covers timeouts, 5xx responses and anything unclassified.
type NetworkError struct {
	WishlistError
	Cause error
}

func (e *NetworkError) Unwrap() []error { return unwrapWithCause(&e.WishlistError, e.Cause) }

func unwrapWithCause(base *WishlistError, cause error) []error {
	if cause == nil {
		return []error{base}
	}
	return []error{base, cause}
}

// NewDuplicateError creates a DuplicateError.
func NewDuplicateError(productID string) *DuplicateError {
	msg := "this product is already in your wishlist"
	if productID != "" {
		msg = fmt.Sprintf("product %s is already in your wishlist", productID)
	}
	return &DuplicateError{
		WishlistError: WishlistError{Code: CodeDuplicate, Message: msg, Err: ErrDuplicate},
		ProductID:     productID,
	}
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(productID string) *NotFoundError {
	msg := "wishlist item not found"
	if productID != "" {
		msg = fmt.Sprintf("product %s is not in your wishlist", productID)
	}
	return &NotFoundError{
		WishlistError: WishlistError{Code: CodeNotFound, Message: msg, Err: ErrNotFound},
		ProductID:     productID,
	}
}

// NewValidationError creates a ValidationError from one or more messages.
func NewValidationError(errs ...string) *ValidationError {
	msg := "invalid wishlist request"
	if len(errs) > 0 {
		msg += ": " + strings.Join(errs, "; ")
	}
	return &ValidationError{
		WishlistError: WishlistError{Code: CodeValidation, Message: msg, Err: ErrValidation},
		Errors:        errs,
	}
}

// NewSyncError creates a SyncError.
func NewSyncError(message string, migratedCount int, cause error) *SyncError {
	return &SyncError{
		WishlistError: WishlistError{Code: CodeSync, Message: message, Err: ErrSync},
		MigratedCount: migratedCount,
		Cause:         cause,
	}
}

// NewModeError creates a ModeError for operation attempted in mode.
func NewModeError(operation string, mode Mode) *ModeError {
	return &ModeError{
		WishlistError: WishlistError{
			Code:    CodeMode,
			Message: fmt.Sprintf("%s is not available in %s mode", operation, mode),
			Err:     ErrMode,
		},
		Operation: operation,
		Mode:      mode,
	}
}

// NewNetworkError creates a NetworkError.
func NewNetworkError(message string, cause error) *NetworkError {
	return &NetworkError{
		WishlistError: WishlistError{Code: CodeNetwork, Message: message, Err: ErrNetwork},
		Cause:         cause,
	}
}

// FromHTTPError translates a transport error into a wishlist error. It is the
// only place that looks at downstream status codes. Wishlist errors pass
// through unchanged.
func FromHTTPError(err error, productID string) error {
	if err == nil {
		return nil
	}

	var werr *WishlistError
	if errors.As(err, &werr) {
		return err
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return NewNetworkError("wishlist service is unreachable, please try again", err)
	}

	switch appErr.Status {
	case http.StatusConflict:
		return NewDuplicateError(productID)
	case http.StatusNotFound:
		return NewNotFoundError(productID)
	case http.StatusBadRequest:
		if len(appErr.Details) > 0 {
			return NewValidationError(appErr.Details...)
		}
		return NewValidationError(appErr.Message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewModeError("authenticated wishlist access", ModeGuest)
	default:
		return NewNetworkError("wishlist service failed, please try again", err)
	}
}
