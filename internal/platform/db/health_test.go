package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func runHealth(t *testing.T, p Pinger) (*httptest.ResponseRecorder, HealthReport) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := HealthHandler("memory", p)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var report HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, report
}

func TestHealthHandler_Healthy(t *testing.T) {
	rec, report := runHealth(t, stubPinger{})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if report.Status != "healthy" {
		t.Errorf("expected healthy, got %q", report.Status)
	}
	if report.Driver != "memory" {
		t.Errorf("expected driver memory, got %q", report.Driver)
	}
	if report.Pool != nil {
		t.Error("expected no pool stats for a non-pool pinger")
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	rec, report := runHealth(t, stubPinger{err: errors.New("connection refused")})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if report.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %q", report.Status)
	}
	if report.Error != "connection refused" {
		t.Errorf("unexpected error text %q", report.Error)
	}
}
