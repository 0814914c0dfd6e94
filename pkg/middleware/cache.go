package middleware

import "net/http"

// NoStore marks every response as private and uncacheable. Wishlist payloads
// are per-session and must never be served from a shared cache.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, private")
		w.Header().Add("Vary", "Authorization")
		w.Header().Add("Vary", SessionHeader)
		next.ServeHTTP(w, r)
	})
}
