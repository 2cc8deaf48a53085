package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServer_HandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no_checks_healthy",
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
		{
			name: "passing_check",
			checks: map[string]CheckFunc{
				"redis": func(context.Context) (bool, string) { return true, "" },
			},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
		{
			name: "failing_check",
			checks: map[string]CheckFunc{
				"redis": func(context.Context) (bool, string) { return false, "connection refused" },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(0, "test")
			for name, check := range tt.checks {
				s.RegisterCheck(name, check)
			}

			rec := httptest.NewRecorder()
			s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var status Status
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if status.Status != tt.wantBody {
				t.Errorf("body status = %q, want %q", status.Status, tt.wantBody)
			}
		})
	}
}

func TestServer_FailingCheckMessageSurfaces(t *testing.T) {
	s := NewServer(0, "test")
	s.RegisterCheck("redis", func(context.Context) (bool, string) {
		return false, "connection refused"
	})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	check, ok := status.Checks["redis"]
	if !ok {
		t.Fatal("redis check missing from response")
	}
	if check.Healthy || check.Message != "connection refused" {
		t.Errorf("check = %+v, want unhealthy with the failure message", check)
	}
}

func TestServer_HandleReady(t *testing.T) {
	s := NewServer(0, "test")
	s.RegisterCheck("redis", func(context.Context) (bool, string) { return false, "down" })

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", rec.Code)
	}
}

func TestServer_HandleLive(t *testing.T) {
	s := NewServer(0, "test")
	rec := httptest.NewRecorder()
	s.handleLive(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live status = %d, want 200", rec.Code)
	}
}
