package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

// RequestLogger builds a request-scoped logger carrying correlation_id,
// session_id, user_id, trace_id and span_id, and stores it in the context
// for logger.FromContext.
//
// Mount it after RequestLogging, Tracing, Session and OptionalAuth so every
// field is available.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
