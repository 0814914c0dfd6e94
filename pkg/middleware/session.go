package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

// SessionHeader carries the browser session identifier.
const SessionHeader = "X-Session-ID"

// SessionCookie is consulted when the header is absent.
const SessionCookie = "sid"

type sessionKeyType struct{}

var sessionKey sessionKeyType

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// Session resolves the caller's session id from the X-Session-ID header or
// the sid cookie, minting a new UUID when neither holds a well-formed id.
// The id is echoed on the response and stored in the request context.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}
		}
		if !sessionIDPattern.MatchString(id) {
			id = uuid.NewString()
		}

		w.Header().Set(SessionHeader, id)

		ctx := context.WithValue(r.Context(), sessionKey, id)
		ctx = logger.WithSessionID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionIDFromContext returns the session id set by the Session middleware.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionKey).(string); ok {
		return id
	}
	return ""
}
