package domain

import (
	"errors"

	"github.com/tidwall/gjson"

	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// Reasons reported by the Can* checks.
const (
	ReasonInvalidProductID   = "invalid product id"
	ReasonAlreadyInWishlist  = "product is already in the wishlist"
	ReasonMissingProduct     = "product details are not available"
	ReasonMissingProductName = "product has no display name"
	ReasonUnavailable        = "product is not available"
	ReasonOutOfStock         = "product is out of stock"
)

// AddItemInput is a request to add one product. The notification flags are
// optional.
type AddItemInput struct {
	ProductID          string `json:"productId" validate:"required,objectid"`
	NotifyPriceChange  *bool  `json:"notifyPriceChange,omitempty"`
	NotifyAvailability *bool  `json:"notifyAvailability,omitempty"`
}

// Options returns the guest item options implied by the input.
func (in AddItemInput) Options() GuestItemOptions {
	return GuestItemOptions{
		NotifyPriceChange:  deref(in.NotifyPriceChange),
		NotifyAvailability: deref(in.NotifyAvailability),
	}
}

type moveToCartInput struct {
	ProductIDs []string `json:"productIds" validate:"min=1,dive,objectid"`
}

// ValidationResult carries every problem found, not only the first.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Decision is the answer of a business-rule check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// IsValidObjectID reports whether id is a 24-character hex string.
func IsValidObjectID(id string) bool {
	return validator.IsObjectID(id)
}

// ValidateAddItem checks an add request before any I/O.
func ValidateAddItem(in AddItemInput) ValidationResult {
	return resultOf(validator.Validate(in))
}

// DecodeAddItem parses a JSON add request, reporting wrongly typed fields
// together with the rule violations of ValidateAddItem.
func DecodeAddItem(body []byte) (AddItemInput, ValidationResult) {
	if !gjson.ValidBytes(body) {
		return AddItemInput{}, ValidationResult{Errors: []string{"request body must be valid JSON"}}
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return AddItemInput{}, ValidationResult{Errors: []string{"request body must be a JSON object"}}
	}

	var (
		in       AddItemInput
		typeErrs []string
	)

	switch id := parsed.Get("productId"); id.Type {
	case gjson.String:
		in.ProductID = id.Str
	case gjson.Null:
	default:
		typeErrs = append(typeErrs, "productId must be a string")
	}

	for _, f := range []struct {
		name string
		dst  **bool
	}{
		{"notifyPriceChange", &in.NotifyPriceChange},
		{"notifyAvailability", &in.NotifyAvailability},
	} {
		v := parsed.Get(f.name)
		switch v.Type {
		case gjson.True, gjson.False:
			b := v.Bool()
			*f.dst = &b
		case gjson.Null:
		default:
			typeErrs = append(typeErrs, f.name+" must be a boolean")
		}
	}

	res := ValidateAddItem(in)
	if len(typeErrs) > 0 {
		res.Valid = false
		res.Errors = append(typeErrs, res.Errors...)
	}
	return in, res
}

// ValidateMoveToCart requires a non-empty list of well-formed ids.
func ValidateMoveToCart(productIDs []string) ValidationResult {
	return resultOf(validator.Validate(moveToCartInput{ProductIDs: productIDs}))
}

// ValidateGuestItem is a loose check for items read from guest storage: any
// legacy shape is accepted as long as a well-formed id resolves.
func ValidateGuestItem(raw RawItem) bool {
	id, ok := ResolveProductID(raw)
	return ok && IsValidObjectID(id)
}

// CanAddToWishlist checks the id format and duplicates. A wishlist that has
// not been loaded yet allows the add; the adapter makes the final call.
func CanAddToWishlist(w *Wishlist, productID string) Decision {
	if !IsValidObjectID(productID) {
		return Decision{Reason: ReasonInvalidProductID}
	}
	if w == nil {
		return Decision{Allowed: true}
	}
	if w.Contains(productID) {
		return Decision{Reason: ReasonAlreadyInWishlist}
	}
	return Decision{Allowed: true}
}

// CanMoveItemToCart requires a product snapshot with a name that is
// available and in stock. Availability is taken from the item, then the
// product, then derived from stock.
func CanMoveItemToCart(item WishlistItem) Decision {
	if len(item.Product) == 0 || !gjson.ValidBytes(item.Product) {
		return Decision{Reason: ReasonMissingProduct}
	}
	product := gjson.ParseBytes(item.Product)
	if !product.IsObject() {
		return Decision{Reason: ReasonMissingProduct}
	}
	if name := product.Get("name"); name.Type != gjson.String || name.Str == "" {
		return Decision{Reason: ReasonMissingProductName}
	}

	stock := product.Get("stock")
	var available bool
	switch {
	case item.IsAvailable != nil:
		available = *item.IsAvailable
	case product.Get("isAvailable").Type == gjson.True || product.Get("isAvailable").Type == gjson.False:
		available = product.Get("isAvailable").Bool()
	default:
		available = stock.Type == gjson.Number && stock.Num > 0
	}
	if !available {
		return Decision{Reason: ReasonUnavailable}
	}

	if stock.Type == gjson.Number && stock.Num <= 0 {
		return Decision{Reason: ReasonOutOfStock}
	}
	return Decision{Allowed: true}
}

func resultOf(err error) ValidationResult {
	if err == nil {
		return ValidationResult{Valid: true}
	}
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		return ValidationResult{Errors: verr.Messages()}
	}
	return ValidationResult{Errors: []string{err.Error()}}
}

func deref(b *bool) bool {
	return b != nil && *b
}
