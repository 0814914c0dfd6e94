package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPAllowlist(t *testing.T) {
	tests := []struct {
		name       string
		cidrs      []string
		remoteAddr string
		want       int
	}{
		{"loopback allowed", []string{"127.0.0.0/8"}, "127.0.0.1:12345", http.StatusOK},
		{"outside range denied", []string{"10.0.0.0/8"}, "192.168.1.1:12345", http.StatusForbidden},
		{"second range allowed", []string{"10.0.0.0/8", "172.16.0.0/12"}, "172.16.5.5:1234", http.StatusOK},
		{"public ip denied", []string{"10.0.0.0/8", "192.168.0.0/16"}, "8.8.8.8:1234", http.StatusForbidden},
		{"invalid cidr skipped", []string{"not-a-cidr", "127.0.0.0/8"}, "127.0.0.1:1234", http.StatusOK},
		{"ipv6 loopback", []string{"::1/128"}, "[::1]:1234", http.StatusOK},
		{"addr without port", []string{"127.0.0.0/8"}, "127.0.0.1", http.StatusOK},
		{"unparseable addr denied", []string{"127.0.0.0/8"}, "storefront", http.StatusForbidden},
		{"no cidrs denies all", nil, "127.0.0.1:1234", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := IPAllowlist(tt.cidrs, discardLogger())(okHandler())

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
			req.RemoteAddr = tt.remoteAddr
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestIPAllowlist_DeniedUsesErrorEnvelope(t *testing.T) {
	handler := IPAllowlist([]string{"10.0.0.0/8"}, discardLogger())(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
}

func TestRegisterPprof(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"127.0.0.0/8"}, discardLogger())

	for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline", "/debug/pprof/symbol", "/debug/pprof/heap"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "127.0.0.1:1234"
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	t.Run("denied outside allowlist", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
