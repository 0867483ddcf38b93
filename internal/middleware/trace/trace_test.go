package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finset/internal/log"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf})
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, log.NewStructuredLogger(logger))

	var seenID string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte("ok"))
		}
	}))

	tests := []struct {
		path   string
		header string
		status int
	}{
		{"/", "", http.StatusOK},
		{"/missing", "", http.StatusNotFound},
		{"/boom", "abc-123", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			got := rec.Header().Get(RequestIDHeader)
			if got == "" || got != seenID {
				t.Errorf("response id %q, handler saw %q", got, seenID)
			}
			if tt.header != "" && got != tt.header {
				t.Errorf("incoming request id should be kept, got %q", got)
			}
		})
	}

	metrics := m.GetMetrics()
	if metrics.TotalRequests != 3 || metrics.ClientErrors != 1 || metrics.ServerErrors != 1 {
		t.Errorf("unexpected metrics %+v", metrics)
	}
	if !strings.Contains(buf.String(), "Request completed") {
		t.Errorf("expected completion log, got %s", buf.String())
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b || !strings.HasPrefix(a, "req_") || len(a) != 20 {
		t.Errorf("unexpected ids %q %q", a, b)
	}
}
