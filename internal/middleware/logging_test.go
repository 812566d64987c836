package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func TestLoggingMiddlewareRedactsCredentialBodies(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"email":"owner@test.com","password":"hunter2-secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	logged := buf.String()
	if strings.Contains(logged, "hunter2-secret") {
		t.Error("Expected credential body to be kept out of the logs")
	}
	if !strings.Contains(logged, "/api/v1/auth/login") {
		t.Error("Expected the request path to still be logged")
	}
}

func TestLoggingMiddlewareCapturesBodiesAtDebug(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	body := `{"name":"Q3 Security Audit","template_id":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/audits", strings.NewReader(body))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "Q3 Security Audit") {
		t.Error("Expected non-sensitive request body in DEBUG logs")
	}
}

func TestLoggingMiddlewareDemotesHealthProbes(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(buf.String(), "/health") {
		t.Errorf("Expected successful health probes below INFO, got logs: %s", buf.String())
	}
}

func TestSensitivePath(t *testing.T) {
	tests := []struct {
		path      string
		sensitive bool
	}{
		{"/api/v1/auth/login", true},
		{"/api/v1/auth/register", true},
		{"/api/v1/users/me/password", true},
		{"/api/v1/audits", false},
		{"/api/v1/templates", false},
	}

	for _, tt := range tests {
		if got := sensitivePath(tt.path); got != tt.sensitive {
			t.Errorf("sensitivePath(%q) = %v, want %v", tt.path, got, tt.sensitive)
		}
	}
}
