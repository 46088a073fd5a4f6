package topdesk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL:               srv.URL,
		Username:              "operator",
		Password:              "secret",
		TemplateID:            "tmpl-1",
		StockRoomCapabilityID: "cap-1",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing base url", cfg: Config{Username: "u", Password: "p", TemplateID: "t"}},
		{name: "missing credentials", cfg: Config{BaseURL: "http://x", TemplateID: "t"}},
		{name: "missing template id", cfg: Config{BaseURL: "http://x", Username: "u", Password: "p"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, zerolog.Nop()); err == nil {
				t.Fatal("New() expected error")
			}
		})
	}
}

func TestListLocationsSendsBasicAuth(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "operator" || pass != "secret" {
			t.Errorf("basic auth = %q/%q, ok=%v", user, pass, ok)
		}
		if r.URL.Path != "/tas/api/locations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]Location{
			{ID: "loc-1", Name: "Science Hall", Branch: &Branch{ID: "br-1", Name: "Main"}},
		})
	}))

	locations, err := client.ListLocations(context.Background())
	if err != nil {
		t.Fatalf("ListLocations() error = %v", err)
	}
	if len(locations) != 1 || locations[0].Branch.ID != "br-1" {
		t.Fatalf("ListLocations() = %+v", locations)
	}
}

func TestRemoteErrorOnNon2xx(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.ListMakes(context.Background())
	re, ok := AsRemoteError(err)
	if !ok {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Status != http.StatusBadGateway || re.Op != "list makes" {
		t.Errorf("RemoteError = %+v", re)
	}
}

func TestSearchAssetsByNameAnnotatesTemplate(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tas/api/assetmgmt/assets/filter" {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		var req assetFilterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Filter != "name eq 'A100'" {
			t.Errorf("filter = %q", req.Filter)
		}
		if len(req.TemplateID) != 2 {
			t.Errorf("templateId = %v", req.TemplateID)
		}
		_ = json.NewEncoder(w).Encode(assetFilterResponse{
			DataSet:   []AssetMatch{{ID: "unid-1", Name: "A100", Notes: "old notes"}},
			Templates: []Template{{ID: "tmpl-1", Text: "Computer"}},
		})
	}))

	matches, err := client.SearchAssetsByName(context.Background(), "A100", []string{"tmpl-1", "tmpl-2"})
	if err != nil {
		t.Fatalf("SearchAssetsByName() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].TemplateName != "Computer" || matches[0].TemplateID != "tmpl-1" {
		t.Errorf("template annotation = %+v", matches[0])
	}
}

func TestCreateAssetReturnsID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req["type_id"] != "tmpl-1" || req["name"] != "A100" {
			t.Errorf("create payload = %v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"unid": "unid-9"}})
	}))

	id, err := client.CreateAsset(context.Background(), "A100", AssetFields{Room: "101"})
	if err != nil {
		t.Fatalf("CreateAsset() error = %v", err)
	}
	if id != "unid-9" {
		t.Errorf("id = %q, want unid-9", id)
	}
}

func TestStockLinkIDEmptyWhenUnlinked(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("capabilityId"); got != "cap-1" {
			t.Errorf("capabilityId = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]assetLink{})
	}))

	linkID, err := client.StockLinkID(context.Background(), "unid-1")
	if err != nil {
		t.Fatalf("StockLinkID() error = %v", err)
	}
	if linkID != "" {
		t.Errorf("linkID = %q, want empty", linkID)
	}
}
