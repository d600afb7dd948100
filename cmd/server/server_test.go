package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dkeye/watchparty/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestWithCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"wildcard", []string{"*"}, "https://watch.example", "*"},
		{"listed", []string{"https://watch.example"}, "https://watch.example", "https://watch.example"},
		{"unlisted", []string{"https://watch.example"}, "https://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := withCORS(&config.Config{AllowedOrigins: tt.allowed}, ok)
			req := httptest.NewRequest(http.MethodGet, "/api/sessions/x", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestSetupLogger(t *testing.T) {
	assert.NoError(t, setupLogger("debug"))
	assert.Error(t, setupLogger("loud"))
	assert.NoError(t, setupLogger("info"))
}
