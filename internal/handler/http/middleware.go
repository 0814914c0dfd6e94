package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/EcommerceGo/storefront/internal/session"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httputil"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
	"github.com/utafrali/EcommerceGo/storefront/pkg/middleware"
)

type sessionKeyType struct{}

var sessionKey sessionKeyType

// SessionSync attaches the caller's wishlist session to the request and
// reports the request's auth state to the session watcher, which performs
// any login or logout transition before the handler runs. A failed
// transition is logged; the request still proceeds with the new mode.
//
// It must be mounted after middleware.Session and middleware.OptionalAuth.
func SessionSync(manager *session.Manager, fallback *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sid := middleware.SessionIDFromContext(ctx)
			authenticated := middleware.IsAuthenticated(ctx)
			userID := middleware.UserIDFromContext(ctx)

			sess := manager.Acquire(sid, authenticated, userID)
			transition, err := sess.Watcher.Observe(ctx, authenticated, userID)

			l := logger.FromContext(ctx)
			if l == slog.Default() && fallback != nil {
				l = fallback
			}
			switch {
			case err != nil:
				l.WarnContext(ctx, "wishlist session transition failed",
					slog.String("transition", string(transition)),
					slog.String("error", err.Error()),
				)
			case transition == session.TransitionLogin || transition == session.TransitionLogout:
				l.InfoContext(ctx, "wishlist session transition",
					slog.String("transition", string(transition)),
					slog.String("mode", string(sess.Store.Mode())),
				)
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionKey, sess)))
		})
	}
}

func sessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok && s != nil
}

// ContentTypeJSON rejects request bodies that are not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
