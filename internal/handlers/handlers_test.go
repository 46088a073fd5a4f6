package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"deskbridge/internal/batch"
	"deskbridge/internal/directory"
	"deskbridge/internal/kvstore"
	"deskbridge/internal/reconcile"
	"deskbridge/internal/topdesk"
)

type stubFetcher struct {
	locations []topdesk.Location
	templates []topdesk.Template
}

func (s *stubFetcher) ListLocations(context.Context) ([]topdesk.Location, error) {
	return s.locations, nil
}

func (s *stubFetcher) ListMakes(context.Context) ([]topdesk.DropdownEntry, error) {
	return []topdesk.DropdownEntry{{ID: "make-1", Name: "Dell"}}, nil
}

func (s *stubFetcher) ListModels(context.Context) ([]topdesk.DropdownEntry, error) {
	return []topdesk.DropdownEntry{{ID: "model-1", Name: "Latitude"}}, nil
}

func (s *stubFetcher) ListDeviceTypes(context.Context) ([]topdesk.DropdownEntry, error) {
	return []topdesk.DropdownEntry{{ID: "dt-1", Name: "Laptop"}}, nil
}

func (s *stubFetcher) ListTemplates(context.Context) ([]topdesk.Template, error) {
	return s.templates, nil
}

func (s *stubFetcher) ListStockRooms(context.Context) ([]topdesk.AssetRef, error) {
	return []topdesk.AssetRef{{ID: "stock-1", Text: "Depot"}}, nil
}

type stubReconciler struct {
	match      *topdesk.AssetMatch
	outcome    reconcile.Outcome
	reconciled []string
}

func (s *stubReconciler) Lookup(context.Context, string) (*topdesk.AssetMatch, error) {
	return s.match, nil
}

func (s *stubReconciler) TemplateAllowed(name string) bool { return name == "Computer" }

func (s *stubReconciler) Reconcile(_ context.Context, rec reconcile.AssetRecord) (reconcile.Outcome, error) {
	s.reconciled = append(s.reconciled, rec.Tag)
	return s.outcome, nil
}

func newTestAPI(t *testing.T, rec *stubReconciler) (*API, *batch.Queue) {
	t.Helper()

	fetcher := &stubFetcher{
		locations: []topdesk.Location{
			{ID: "loc-1", Name: "Science Hall", Branch: &topdesk.Branch{ID: "branch-1", Name: "North Campus"}},
			{ID: "loc-2", Name: "Library", Branch: &topdesk.Branch{ID: "branch-1", Name: "North Campus"}},
			{ID: "loc-3", Name: "Annex", Branch: &topdesk.Branch{ID: "branch-2", Name: "South Campus"}},
		},
		templates: []topdesk.Template{
			{ID: "tmpl-1", Text: "Computer"},
			{ID: "tmpl-2", Text: "Printer"},
		},
	}
	dir := directory.New(fetcher, 0, zerolog.Nop())

	queue, err := batch.NewQueue(kvstore.NewMemory(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}

	api, err := New(dir, &stubSearcher{}, rec, queue, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return api, queue
}

type stubSearcher struct {
	matches []topdesk.AssetMatch
}

func (s *stubSearcher) SearchAssetsByName(context.Context, string, []string) ([]topdesk.AssetMatch, error) {
	return s.matches, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, env
}

func validRecord(tag string) map[string]any {
	return map[string]any{
		"tag":           tag,
		"campus":        "branch-1",
		"building":      "loc-1",
		"room":          "101",
		"make":          "make-1",
		"model":         "Latitude",
		"device_type":   "dt-1",
		"serial_number": "SN-" + tag,
	}
}

func TestCampusesAndBuildings(t *testing.T) {
	api, _ := newTestAPI(t, &stubReconciler{})
	router := api.Routes(RouterOptions{})

	rr, env := doRequest(t, router, http.MethodGet, "/api/campuses", nil)
	if rr.Code != http.StatusOK || !env.Success {
		t.Fatalf("campuses status=%d env=%+v", rr.Code, env)
	}
	var campuses []directory.Choice
	if err := json.Unmarshal(env.Data, &campuses); err != nil {
		t.Fatal(err)
	}
	if len(campuses) != 2 || campuses[0].Name != "North Campus" {
		t.Errorf("campuses = %+v", campuses)
	}

	rr, env = doRequest(t, router, http.MethodGet, "/api/buildings?campus_id=branch-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("buildings status = %d", rr.Code)
	}
	var buildings []directory.Choice
	if err := json.Unmarshal(env.Data, &buildings); err != nil {
		t.Fatal(err)
	}
	if len(buildings) != 2 {
		t.Errorf("buildings = %+v", buildings)
	}
}

func TestBuildingsRequireCampusID(t *testing.T) {
	api, _ := newTestAPI(t, &stubReconciler{})
	router := api.Routes(RouterOptions{})

	rr, env := doRequest(t, router, http.MethodGet, "/api/buildings", nil)
	if rr.Code != http.StatusBadRequest || env.Success {
		t.Errorf("status=%d env=%+v, want 400 failure", rr.Code, env)
	}
}

func TestTemplatesFilterToAllowlist(t *testing.T) {
	api, _ := newTestAPI(t, &stubReconciler{})
	router := api.Routes(RouterOptions{})

	_, env := doRequest(t, router, http.MethodGet, "/api/templates", nil)
	var templates []topdesk.Template
	if err := json.Unmarshal(env.Data, &templates); err != nil {
		t.Fatal(err)
	}
	if len(templates) != 1 || templates[0].Text != "Computer" {
		t.Errorf("filtered templates = %+v", templates)
	}

	_, env = doRequest(t, router, http.MethodGet, "/api/templates?all=1", nil)
	if err := json.Unmarshal(env.Data, &templates); err != nil {
		t.Fatal(err)
	}
	if len(templates) != 2 {
		t.Errorf("unfiltered templates = %+v", templates)
	}
}

func TestAssetSearchRequiresName(t *testing.T) {
	api, _ := newTestAPI(t, &stubReconciler{})
	router := api.Routes(RouterOptions{})

	rr, _ := doRequest(t, router, http.MethodGet, "/api/assets/search", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestQueueLifecycle(t *testing.T) {
	rec := &stubReconciler{outcome: reconcile.Outcome{AssetID: "unid-1", Operation: reconcile.OperationCreated}}
	api, _ := newTestAPI(t, rec)
	router := api.Routes(RouterOptions{})

	rr, env := doRequest(t, router, http.MethodPost, "/api/queue/", validRecord("A100"))
	if rr.Code != http.StatusCreated || !env.Success {
		t.Fatalf("add status=%d env=%+v", rr.Code, env)
	}

	// Duplicate tag conflicts.
	rr, _ = doRequest(t, router, http.MethodPost, "/api/queue/", validRecord("A100"))
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate add status = %d, want 409", rr.Code)
	}

	// Missing fields are a 400.
	rr, _ = doRequest(t, router, http.MethodPost, "/api/queue/", map[string]any{"tag": "A200"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid add status = %d, want 400", rr.Code)
	}

	rr, env = doRequest(t, router, http.MethodPost, "/api/queue/submit", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit status = %d", rr.Code)
	}
	var summary batch.Summary
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Succeeded != 1 || len(rec.reconciled) != 1 {
		t.Errorf("summary = %+v, reconciled = %v", summary, rec.reconciled)
	}

	// Queue drains after a fully successful submit.
	_, env = doRequest(t, router, http.MethodGet, "/api/queue/", nil)
	var items []batch.Item
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("queue after submit = %+v, want empty", items)
	}
}

func TestQueueDefaultsEndpoint(t *testing.T) {
	api, _ := newTestAPI(t, &stubReconciler{})
	router := api.Routes(RouterOptions{})

	if _, env := doRequest(t, router, http.MethodPost, "/api/queue/", validRecord("A100")); !env.Success {
		t.Fatalf("add failed: %+v", env)
	}

	_, env := doRequest(t, router, http.MethodGet, "/api/queue/defaults", nil)
	var defaults batch.Defaults
	if err := json.Unmarshal(env.Data, &defaults); err != nil {
		t.Fatal(err)
	}
	if defaults.Room != "101" || defaults.Model != "Latitude" {
		t.Errorf("defaults = %+v", defaults)
	}
}

func TestBulkAssetsValidatesBeforeReconciling(t *testing.T) {
	rec := &stubReconciler{outcome: reconcile.Outcome{AssetID: "unid-1", Operation: reconcile.OperationCreated}}
	api, _ := newTestAPI(t, rec)
	router := api.Routes(RouterOptions{})

	rr, _ := doRequest(t, router, http.MethodPost, "/api/assets", []map[string]any{
		validRecord("A100"),
		{"tag": "A200"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if len(rec.reconciled) != 0 {
		t.Errorf("reconciled %v before validation completed", rec.reconciled)
	}

	rr, env := doRequest(t, router, http.MethodPost, "/api/assets", []map[string]any{validRecord("A100")})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var summary batch.Summary
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Succeeded != 1 || summary.Results[0].AssetID != "unid-1" {
		t.Errorf("summary = %+v", summary)
	}
}

func TestCacheClear(t *testing.T) {
	api, _ := newTestAPI(t, &stubReconciler{})
	router := api.Routes(RouterOptions{})

	rr, env := doRequest(t, router, http.MethodPost, "/api/cache/clear", nil)
	if rr.Code != http.StatusOK || !env.Success {
		t.Errorf("status=%d env=%+v", rr.Code, env)
	}
}

func TestHealthEndpoints(t *testing.T) {
	api, _ := newTestAPI(t, &stubReconciler{})
	router := api.Routes(RouterOptions{})

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
}
