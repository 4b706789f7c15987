package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// Request Logging Middleware Tests
// =============================================================================

func TestRequestLoggingMiddleware_LogsBasicInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := mw.Handler(handler)

	req := httptest.NewRequest("POST", "/api/ai/analyze", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", "moodmate-app/2.1")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	logOutput := buf.String()

	// Should log method
	if !strings.Contains(logOutput, "POST") {
		t.Errorf("log should contain method, got: %s", logOutput)
	}

	// Should log path
	if !strings.Contains(logOutput, "/api/ai/analyze") {
		t.Errorf("log should contain path, got: %s", logOutput)
	}

	// Should log status
	if !strings.Contains(logOutput, "200") {
		t.Errorf("log should contain status code, got: %s", logOutput)
	}

	// Should log duration
	if !strings.Contains(logOutput, "duration") {
		t.Errorf("log should contain duration, got: %s", logOutput)
	}

	// Should log user agent
	if !strings.Contains(logOutput, "moodmate-app") {
		t.Errorf("log should contain user agent, got: %s", logOutput)
	}
}

func TestRequestLoggingMiddleware_LogsClientIP(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := mw.Handler(handler)

	req := httptest.NewRequest("GET", "/api/me/quota", nil)
	req.RemoteAddr = "10.0.0.1:8080"
	req.Header.Set("X-Forwarded-For", "203.0.113.195")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	logOutput := buf.String()

	// Should log the real client IP from X-Forwarded-For
	if !strings.Contains(logOutput, "203.0.113.195") {
		t.Errorf("log should contain client IP from X-Forwarded-For, got: %s", logOutput)
	}
}

func TestRequestLoggingMiddleware_LogsErrorStatusAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	wrapped := mw.Handler(handler)

	req := httptest.NewRequest("POST", "/api/ai/analyze", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	logOutput := buf.String()

	// Should log 503 status
	if !strings.Contains(logOutput, "503") {
		t.Errorf("log should contain 503 status, got: %s", logOutput)
	}

	// Should use WARN level for 5xx
	if !strings.Contains(logOutput, "level=WARN") {
		t.Errorf("5xx should log at WARN level, got: %s", logOutput)
	}
}

func TestRequestLoggingMiddleware_RedactsSensitiveQueryParams(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := mw.Handler(handler)

	tests := []struct {
		name   string
		target string
		secret string
	}{
		{"bearer token", "/api/moods/recent?token=secrettoken123", "secrettoken123"},
		{"webhook signature", "/webhooks/payments?signature=deadbeef99", "deadbeef99"},
		{"api key", "/api/billing/plans?api_key=sk_live_abc", "sk_live_abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			req := httptest.NewRequest("GET", tt.target, nil)
			req.RemoteAddr = "192.168.1.1:12345"
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			logOutput := buf.String()

			// Should NOT log the secret value
			if strings.Contains(logOutput, tt.secret) {
				t.Errorf("log should NOT contain secret value, got: %s", logOutput)
			}

			// Should still log the path with the param redacted
			if !strings.Contains(logOutput, "REDACTED") {
				t.Errorf("log should mark the param as redacted, got: %s", logOutput)
			}
		})
	}
}

func TestRequestLoggingMiddleware_PassesRequestThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.Header().Set("X-Custom", "value")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("response body"))
	})

	wrapped := mw.Handler(handler)

	req := httptest.NewRequest("POST", "/api/billing/checkout", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if !handlerCalled {
		t.Error("handler should have been called")
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}

	if rec.Header().Get("X-Custom") != "value" {
		t.Error("custom header should be preserved")
	}

	if rec.Body.String() != "response body" {
		t.Errorf("response body should be preserved, got: %s", rec.Body.String())
	}
}

func TestRequestLoggingMiddleware_CapturesWrittenStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	wrapped := mw.Handler(handler)

	req := httptest.NewRequest("POST", "/api/ai/analyze", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	logOutput := buf.String()

	// Should log the handler's status, not the default 200
	if !strings.Contains(logOutput, "429") {
		t.Errorf("log should contain 429 status, got: %s", logOutput)
	}
}

func TestRequestLoggingMiddleware_ExcludesNoisyEndpoints(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := mw.Handler(handler)

	for _, path := range []string{"/health", "/metrics"} {
		buf.Reset()

		req := httptest.NewRequest("GET", path, nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()

		wrapped.ServeHTTP(rec, req)

		if buf.Len() != 0 {
			t.Errorf("%s should not be logged, got: %s", path, buf.String())
		}
	}
}
