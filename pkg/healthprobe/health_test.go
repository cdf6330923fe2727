package healthprobe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	if err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestNew(t *testing.T) {
	hc := New()
	if hc == nil {
		t.Fatal("New() returned nil")
	}
	if hc.ready.Load() {
		t.Error("HealthChecker should not be ready by default")
	}
}

func TestHealth_AlwaysReturnsOK(t *testing.T) {
	hc := New()

	for _, ready := range []bool{false, true} {
		hc.SetReady(ready)

		w := httptest.NewRecorder()
		hc.Health()(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Health status = %d, want %d (ready=%v)", w.Code, http.StatusOK, ready)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		resp := decode(t, w)
		if resp.Status != "healthy" || resp.Uptime == "" {
			t.Errorf("unexpected health response: %+v", resp)
		}
	}
}

func TestReady(t *testing.T) {
	failing := func(context.Context) error { return errors.New("rpc unreachable") }
	passing := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		ready      bool
		checks     map[string]CheckFunc
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name:       "not_ready_initially",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "not_ready",
		},
		{
			name:       "ready_without_checks",
			ready:      true,
			wantStatus: http.StatusOK,
			wantBody:   "ready",
		},
		{
			name:       "ready_with_passing_checks",
			ready:      true,
			checks:     map[string]CheckFunc{"chain": passing, "history": passing},
			wantStatus: http.StatusOK,
			wantBody:   "ready",
			wantChecks: map[string]string{"chain": "ok", "history": "ok"},
		},
		{
			name:       "failing_dependency",
			ready:      true,
			checks:     map[string]CheckFunc{"chain": failing, "history": passing},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "not_ready",
			wantChecks: map[string]string{"chain": "rpc unreachable", "history": "ok"},
		},
		{
			name:       "checks_skipped_when_not_ready",
			checks:     map[string]CheckFunc{"chain": failing},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New()
			hc.SetReady(tt.ready)
			for name, check := range tt.checks {
				hc.AddCheck(name, check)
			}

			w := httptest.NewRecorder()
			hc.Ready()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Ready status = %d, want %d", w.Code, tt.wantStatus)
			}
			resp := decode(t, w)
			if resp.Status != tt.wantBody {
				t.Errorf("Status = %s, want %s", resp.Status, tt.wantBody)
			}
			for name, want := range tt.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("check %s = %q, want %q", name, resp.Checks[name], want)
				}
			}
		})
	}
}

func TestAddCheck_IgnoresNil(t *testing.T) {
	hc := New()
	hc.AddCheck("nothing", nil)
	hc.SetReady(true)

	w := httptest.NewRecorder()
	hc.Ready()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Ready status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHealthChecker_ConcurrentAccess(t *testing.T) {
	hc := New()
	handler := hc.Ready()

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			hc.SetReady(i%2 == 0)
			hc.AddCheck("chain", func(context.Context) error { return nil })
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		}
		done <- true
	}()

	<-done
	<-done
}
