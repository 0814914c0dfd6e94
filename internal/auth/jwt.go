package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/EcommerceGo/storefront/pkg/middleware"
)

// tokenClaims mirrors the access token issued by the user service.
type tokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Validator verifies HS256 access tokens. The storefront never issues
// tokens; it only needs to know who the caller is.
type Validator struct {
	secret []byte
}

// NewValidator creates a validator for tokens signed with secret.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Validate parses tokenString and returns the caller's claims. It satisfies
// middleware.TokenValidator.
func (v *Validator) Validate(tokenString string) (*middleware.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid access token claims")
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, errors.New("access token carries no user id")
	}

	return &middleware.Claims{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
