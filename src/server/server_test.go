package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeSource struct{ snap Snapshot }

func (f fakeSource) Snapshot() Snapshot { return f.snap }

func TestHealthzOKThenFail(t *testing.T) {
	s := New(":0", nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	s.HealthCheckFail()
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after HealthCheckFail, got %d", rec.Code)
	}

	s.HealthCheckOK()
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after HealthCheckOK, got %d", rec.Code)
	}
}

func TestStatsReflectsSource(t *testing.T) {
	s := New(":0", nil)
	s.SetSource(fakeSource{snap: Snapshot{EpochIndex: 3, TotalPackets: 10}})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"epoch_index":3`) || !strings.Contains(body, `"total_packets":10`) {
		t.Fatalf("unexpected stats body: %s", body)
	}
}
