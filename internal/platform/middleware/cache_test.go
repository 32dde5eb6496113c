package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func newCachedServer(hits *int) *echo.Echo {
	e := echo.New()
	e.Use(SecurityHeaders())
	g := e.Group("/api/v1", ETag(DefaultCacheConfig()))
	g.GET("/conditions", func(c echo.Context) error {
		*hits++
		return c.JSON(http.StatusOK, []map[string]interface{}{{"id": 1, "code": "CARIES"}})
	})
	g.GET("/conditions/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "condition not found")
	})
	g.POST("/conditions", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})
	return e
}

func TestETag_SetsCacheHeaders(t *testing.T) {
	var hits int
	e := newCachedServer(&hits)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conditions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if etag := rec.Header().Get("ETag"); len(etag) < 4 || etag[:3] != `W/"` {
		t.Errorf("expected weak ETag, got %q", etag)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=300" {
		t.Errorf("expected public, max-age=300, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Accept" {
		t.Errorf("expected Vary Accept, got %q", got)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected body to be flushed")
	}
}

func TestETag_NotModifiedRoundTrip(t *testing.T) {
	var hits int
	e := newCachedServer(&hits)

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/conditions", nil))
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag on first response")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conditions", nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	e.ServeHTTP(second, req)

	if second.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", second.Code)
	}
	if second.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", second.Body.String())
	}
	if got := second.Header().Get("ETag"); got != etag {
		t.Errorf("expected ETag %q on 304, got %q", etag, got)
	}
	if hits != 2 {
		t.Errorf("expected handler to run twice, ran %d times", hits)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/conditions", nil)
	req.Header.Set("If-None-Match", `W/"stale"`)
	third := httptest.NewRecorder()
	e.ServeHTTP(third, req)
	if third.Code != http.StatusOK {
		t.Errorf("expected 200 for stale ETag, got %d", third.Code)
	}
}

func TestETag_SkipsErrorsAndWrites(t *testing.T) {
	var hits int
	e := newCachedServer(&hits)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conditions/99", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec.Header().Get("ETag") != "" {
		t.Error("expected no ETag on error response")
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("expected no-store on error response, got %q", got)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/conditions", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec.Header().Get("ETag") != "" {
		t.Error("expected no ETag on POST")
	}
}

func TestEtagMatch(t *testing.T) {
	tests := []struct {
		header string
		etag   string
		want   bool
	}{
		{`W/"abc"`, `W/"abc"`, true},
		{`"abc"`, `W/"abc"`, true},
		{`"x", W/"abc"`, `W/"abc"`, true},
		{"*", `W/"abc"`, true},
		{`W/"abd"`, `W/"abc"`, false},
	}
	for _, tt := range tests {
		if got := etagMatch(tt.header, tt.etag); got != tt.want {
			t.Errorf("etagMatch(%q, %q) = %v, want %v", tt.header, tt.etag, got, tt.want)
		}
	}
}

func TestBuildCacheControl(t *testing.T) {
	got := buildCacheControl(CacheConfig{MaxAge: 90 * time.Second, Private: true})
	if got != "private, max-age=90" {
		t.Errorf("expected private, max-age=90, got %q", got)
	}
}
