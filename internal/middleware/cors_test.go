package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(t *testing.T, origins []string, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	handler := CORS(origins, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/tickets", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	rec := corsRequest(t, []string{"https://app.example.com"}, http.MethodGet, "https://App.Example.com")
	assert.Equal(t, "https://App.Example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Last-Event-ID")
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	rec := corsRequest(t, []string{"https://app.example.com"}, http.MethodGet, "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	rec := corsRequest(t, []string{"*"}, http.MethodGet, "https://anywhere.example.com")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rec := corsRequest(t, []string{"*"}, http.MethodOptions, "https://anywhere.example.com")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
