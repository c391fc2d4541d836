package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brandonviaje/echo/internal/health"
)

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{
		Name:  "gateway",
		Check: func(ctx context.Context) error { return errors.New("down") },
	})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checkers   []health.Checker
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no checkers",
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "all passing",
			checkers: []health.Checker{
				{Name: "gateway", Check: func(ctx context.Context) error { return nil }},
				{Name: "whisper", Check: func(ctx context.Context) error { return nil }},
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "one failing",
			checkers: []health.Checker{
				{Name: "gateway", Check: func(ctx context.Context) error { return nil }},
				{Name: "whisper", Check: func(ctx context.Context) error { return errors.New("model not loaded") }},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "fail",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := health.New(tc.checkers...)
			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Status != tc.wantBody {
				t.Errorf("body status = %q, want %q", body.Status, tc.wantBody)
			}
			if len(body.Checks) != len(tc.checkers) {
				t.Errorf("checks = %v, want %d entries", body.Checks, len(tc.checkers))
			}
		})
	}
}

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
