package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dental/dental/internal/config"
	"github.com/dental/dental/internal/domain/chart"
	"github.com/dental/dental/internal/domain/patient"
	"github.com/dental/dental/internal/platform/db"
	"github.com/dental/dental/pkg/notation"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:               "test",
		StoreDriver:       config.DriverMemory,
		ReferenceDataFile: "../../seed/reference.yaml",
		DefaultActor:      "Front Desk",
		HistoryLimit:      20,
		CORSOrigins:       []string{"*"},
		BodyLimit:         "1M",
		RequestTimeout:    5 * time.Second,
		CacheMaxAge:       time.Minute,
	}
}

type testApp struct {
	cfg  *config.Config
	st   *stores
	svcs *services
	srv  http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := testConfig()
	st, err := openStores(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(st.close)
	svcs := newServices(cfg, st)
	return &testApp{cfg: cfg, st: st, svcs: svcs, srv: newServer(cfg, zerolog.Nop(), st, svcs)}
}

func (a *testApp) do(t *testing.T, method, path, body string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.srv.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
	}
	return rec.Code
}

func TestServer_ChartingFlow(t *testing.T) {
	app := newTestApp(t)

	var p patient.Patient
	code := app.do(t, http.MethodPost, "/api/v1/patients", `{"first_name":"Ada","last_name":"Moss"}`, &p)
	require.Equal(t, http.StatusCreated, code)

	base := "/api/v1/patients/" + p.ID.String()
	var rec map[string]interface{}
	code = app.do(t, http.MethodPut, base+"/teeth/14", `{"condition_id":2,"surfaces":"DOM"}`, &rec)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "MOD", rec["surfaces"])
	assert.Equal(t, "Front Desk", rec["recorded_by"])

	code = app.do(t, http.MethodPut, base+"/teeth/14", `{"condition_id":3,"surfaces":""}`, nil)
	require.Equal(t, http.StatusOK, code)

	var records []map[string]interface{}
	app.do(t, http.MethodGet, base+"/teeth", "", &records)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0]["surfaces"])

	var hist []map[string]interface{}
	app.do(t, http.MethodGet, base+"/teeth/14/history", "", &hist)
	assert.Len(t, hist, 2)

	var body map[string]interface{}
	code = app.do(t, http.MethodPut, base+"/teeth/33", `{}`, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", body["kind"])
}

func TestServer_TreatmentPlanFlow(t *testing.T) {
	app := newTestApp(t)

	var p patient.Patient
	app.do(t, http.MethodPost, "/api/v1/patients", `{"first_name":"Ada","last_name":"Moss"}`, &p)

	var plan map[string]interface{}
	code := app.do(t, http.MethodPost, "/api/v1/patients/"+p.ID.String()+"/treatment-plans", `{"name":"Phase 1"}`, &plan)
	require.Equal(t, http.StatusCreated, code)
	planPath := "/api/v1/treatment-plans/" + plan["id"].(string)

	for _, body := range []string{`{"procedure_id":4,"cost":"110.00"}`, `{"procedure_id":5,"tooth_number":30,"surface":"O","cost":"55.25"}`} {
		require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, planPath+"/items", body, nil))
	}

	app.do(t, http.MethodGet, planPath, "", &plan)
	assert.Equal(t, "165.25", plan["total_cost"])
	assert.EqualValues(t, 2, plan["item_count"])
}

func TestServer_ReferenceAndHealth(t *testing.T) {
	app := newTestApp(t)

	var conds []map[string]interface{}
	require.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/conditions", "", &conds))
	assert.Len(t, conds, 10)

	var teeth []notation.Tooth
	app.do(t, http.MethodGet, "/api/v1/teeth?notation=palmer", "", &teeth)
	require.Len(t, teeth, 32)
	assert.Equal(t, "8", teeth[0].Label)

	var report db.HealthReport
	require.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/health/db", "", &report))
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, config.DriverMemory, report.Driver)
	assert.Nil(t, report.Pool)
}

func TestServer_CatalogueCaching(t *testing.T) {
	app := newTestApp(t)

	get := func(path, etag string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		rec := httptest.NewRecorder()
		app.srv.ServeHTTP(rec, req)
		return rec
	}

	for _, path := range []string{"/api/v1/conditions", "/api/v1/procedures/1", "/api/v1/teeth"} {
		first := get(path, "")
		require.Equal(t, http.StatusOK, first.Code, path)
		etag := first.Header().Get("ETag")
		require.NotEmpty(t, etag, path)
		assert.Equal(t, "public, max-age=60", first.Header().Get("Cache-Control"), path)

		again := get(path, etag)
		assert.Equal(t, http.StatusNotModified, again.Code, path)
		assert.Zero(t, again.Body.Len(), path)
	}

	var p patient.Patient
	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/v1/patients", `{"first_name":"Ada","last_name":"Moss"}`, &p))
	rec := get("/api/v1/patients/"+p.ID.String()+"/teeth", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestChartEdit_ApplyAndRender(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	p := &patient.Patient{FirstName: "Ada", LastName: "Moss"}
	require.NoError(t, app.svcs.patients.Save(ctx, p))

	backend := app.svcs.chartBackend()
	s, err := chart.New().LoadPatient(ctx, backend, p.ID)
	require.NoError(t, err)

	edit := chartEdit{setCondition: true, condition: 2, setSurfaces: true, surfaces: "BO", setNotes: true, notes: "deep"}
	s, err = edit.apply(s, 19)
	require.NoError(t, err)
	assert.Equal(t, "OB", s.Pending().Surfaces.String())

	s, err = s.Commit(ctx, backend, "")
	require.NoError(t, err)
	require.NotNil(t, s.Record(19))
	assert.Equal(t, "Front Desk", s.Record(19).RecordedBy)

	out := renderChart(s, notation.Palmer, time.Now())
	assert.Contains(t, out, "Ada Moss")
	assert.Contains(t, out, "Caries")
	assert.Contains(t, out, notation.Name(19))

	_, err = chartEdit{setSurfaces: true, surfaces: "X"}.apply(s, 3)
	assert.Error(t, err)
}

func TestFormatMigrationStatus(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := formatMigrationStatus([]db.MigrationStatus{
		{Version: 1, Name: "001_dental_core.sql", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "002_next.sql"},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "applied")
	assert.Contains(t, lines[2], "2024-03-01 12:00:00")
	assert.Contains(t, lines[3], "pending")
}
