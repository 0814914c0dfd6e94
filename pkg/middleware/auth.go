package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/EcommerceGo/storefront/pkg/httputil"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

type claimsKeyType struct{}

var claimsKey claimsKeyType

// Claims represents the verified identity of an authenticated caller. Token
// is the raw bearer credential so it can be forwarded to downstream APIs.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Token  string `json:"-"`
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// OptionalAuth authenticates requests that carry a bearer token and lets
// anonymous requests through untouched. A present but invalid token is
// rejected with 401 so the client can refresh it rather than silently
// falling back to guest mode.
func OptionalAuth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				writeAuthError(w, r, "invalid authorization header format")
				return
			}
			token = strings.TrimSpace(token)

			claims, err := validate(token)
			if err != nil {
				logger.FromContext(r.Context()).WarnContext(r.Context(), "rejected bearer token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeAuthError(w, r, "invalid or expired token")
				return
			}
			claims.Token = token

			ctx := WithClaims(r.Context(), claims)
			ctx = logger.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the caller's claims, or nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}

// IsAuthenticated reports whether the request carried a valid bearer token.
func IsAuthenticated(ctx context.Context) bool {
	return ClaimsFromContext(ctx) != nil
}

func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      "UNAUTHORIZED",
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
