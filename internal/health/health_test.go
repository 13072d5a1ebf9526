package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandler_AllHealthy(t *testing.T) {
	handler := NewHandler("1.2.3")
	handler.RegisterChecker("storage", NewSimpleChecker("storage", func() error { return nil }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s", resp.Status)
	}
	if resp.Version != "1.2.3" {
		t.Fatalf("expected version in response, got %q", resp.Version)
	}
}

func TestHandler_UnhealthyComponent(t *testing.T) {
	handler := NewHandler("dev")
	handler.RegisterChecker("storage", NewSimpleChecker("storage", func() error {
		return errors.New("connection refused")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", resp.Status)
	}
	if resp.Checks["storage"].Message != "connection refused" {
		t.Fatalf("expected check message, got %q", resp.Checks["storage"].Message)
	}
}

func TestHandler_Readiness(t *testing.T) {
	handler := NewHandler("dev")
	handler.RegisterChecker("storage", NewSimpleChecker("storage", func() error { return nil }))

	rec := httptest.NewRecorder()
	handler.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	handler.RegisterChecker("broken", NewSimpleChecker("broken", func() error {
		return errors.New("down")
	}))

	rec = httptest.NewRecorder()
	handler.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

type stubBacklog struct {
	pending int
	oldest  time.Time
	err     error
}

func (s stubBacklog) Stats() (int, time.Time, error) {
	return s.pending, s.oldest, s.err
}

func TestBacklogChecker(t *testing.T) {
	tests := []struct {
		name    string
		backlog stubBacklog
		want    Status
	}{
		{
			name:    "empty backlog is healthy",
			backlog: stubBacklog{},
			want:    StatusHealthy,
		},
		{
			name:    "fresh backlog is healthy",
			backlog: stubBacklog{pending: 3, oldest: time.Now().Add(-time.Second)},
			want:    StatusHealthy,
		},
		{
			name:    "stale backlog degrades",
			backlog: stubBacklog{pending: 3, oldest: time.Now().Add(-time.Hour)},
			want:    StatusDegraded,
		},
		{
			name:    "stats error is unhealthy",
			backlog: stubBacklog{err: errors.New("storage down")},
			want:    StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewBacklogChecker("audit-backlog", tt.backlog, time.Minute)
			check := checker.Check()
			if check.Status != tt.want {
				t.Errorf("Check().Status = %s, want %s", check.Status, tt.want)
			}
		})
	}
}
