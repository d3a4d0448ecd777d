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

func allowlistedHandler(cidrs []string) http.Handler {
	mw := IPAllowlist(cidrs, discardLogger())
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func requestFrom(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIPAllowlist_AllowedIP(t *testing.T) {
	rec := requestFrom(allowlistedHandler([]string{"127.0.0.0/8"}), "127.0.0.1:12345")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_DeniedIP(t *testing.T) {
	rec := requestFrom(allowlistedHandler([]string{"10.0.0.0/8"}), "192.168.1.1:12345")

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body, "error")
}

func TestIPAllowlist_MultipleCIDRs(t *testing.T) {
	handler := allowlistedHandler([]string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	tests := []struct {
		name   string
		addr   string
		status int
	}{
		{"10.x allowed", "10.1.2.3:1234", http.StatusOK},
		{"172.16.x allowed", "172.16.5.5:1234", http.StatusOK},
		{"192.168.x allowed", "192.168.1.1:1234", http.StatusOK},
		{"public address denied", "8.8.8.8:1234", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, requestFrom(handler, tt.addr).Code)
		})
	}
}

func TestIPAllowlist_InvalidCIDR_Skipped(t *testing.T) {
	// The bad CIDR is dropped at construction; the valid one still applies.
	handler := allowlistedHandler([]string{"not-a-cidr", "127.0.0.0/8"})
	assert.Equal(t, http.StatusOK, requestFrom(handler, "127.0.0.1:1234").Code)
}

func TestIPAllowlist_IPv6(t *testing.T) {
	handler := allowlistedHandler([]string{"::1/128"})
	assert.Equal(t, http.StatusOK, requestFrom(handler, "[::1]:1234").Code)
}

func TestIPAllowlist_RemoteAddrWithoutPort(t *testing.T) {
	handler := allowlistedHandler([]string{"127.0.0.0/8"})
	assert.Equal(t, http.StatusOK, requestFrom(handler, "127.0.0.1").Code)
}

func TestIPAllowlist_EmptyCIDRs_DeniesAll(t *testing.T) {
	handler := allowlistedHandler(nil)
	assert.Equal(t, http.StatusForbidden, requestFrom(handler, "127.0.0.1:1234").Code)
}

func pprofRequest(t *testing.T, cidrs []string, path, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	RegisterPprof(r, cidrs, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterPprof_IndexServed(t *testing.T) {
	rec := pprofRequest(t, []string{"127.0.0.0/8"}, "/debug/pprof/", "127.0.0.1:1234")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pprof")
}

func TestRegisterPprof_DeniedIP(t *testing.T) {
	rec := pprofRequest(t, []string{"10.0.0.0/8"}, "/debug/pprof/", "192.168.1.1:1234")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterPprof_CmdlineRoute(t *testing.T) {
	rec := pprofRequest(t, []string{"127.0.0.0/8"}, "/debug/pprof/cmdline", "127.0.0.1:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterPprof_SymbolRoute(t *testing.T) {
	rec := pprofRequest(t, []string{"127.0.0.0/8"}, "/debug/pprof/symbol", "127.0.0.1:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterPprof_HeapProfileViaCatchAll(t *testing.T) {
	rec := pprofRequest(t, []string{"127.0.0.0/8"}, "/debug/pprof/heap", "127.0.0.1:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}
