package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	cf "github.com/cloudflare/cloudflare-go"

	"github.com/evanofslack/ddns-sync/metrics"
	"github.com/evanofslack/ddns-sync/provider"
)

const listResponse = `{
  "success": true,
  "errors": [],
  "messages": [],
  "result": [
    {"id": "rec1", "type": "A", "name": "me.example.com", "content": "203.0.113.5", "ttl": 120, "proxied": false}
  ],
  "result_info": {"page": 1, "per_page": 100, "count": 1, "total_count": 1, "total_pages": 1}
}`

const emptyListResponse = `{
  "success": true,
  "errors": [],
  "messages": [],
  "result": [],
  "result_info": {"page": 1, "per_page": 100, "count": 0, "total_count": 0, "total_pages": 1}
}`

const authErrorResponse = `{
  "success": false,
  "errors": [{"code": 10000, "message": "Authentication error"}],
  "messages": [],
  "result": null
}`

func newTestProvider(t *testing.T, handler http.Handler) *CloudflareProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := New("test-token", metrics.New(), cf.BaseURL(server.URL))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return p
}

func TestFindRecordFound(t *testing.T) {
	var gotName, gotType string
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zones/zone123/dns_records" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotName = r.URL.Query().Get("name")
		gotType = r.URL.Query().Get("type")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, listResponse)
	}))

	record, err := p.FindRecord(context.Background(), "zone123", "me.example.com", "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil {
		t.Fatal("expected a record, got nil")
	}
	if record.ID != "rec1" || record.Content != "203.0.113.5" || record.TTL != 120 {
		t.Errorf("unexpected record: %+v", record)
	}
	if gotName != "me.example.com" || gotType != "A" {
		t.Errorf("lookup not filtered by name and type: name=%q type=%q", gotName, gotType)
	}
}

func TestFindRecordAbsent(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, emptyListResponse)
	}))

	record, err := p.FindRecord(context.Background(), "zone123", "missing.example.com", "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record != nil {
		t.Errorf("expected nil for absent record, got %+v", record)
	}
}

func TestFindRecordAuthenticationError(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, authErrorResponse)
	}))

	_, err := p.FindRecord(context.Background(), "zone123", "me.example.com", "A")
	if !errors.Is(err, provider.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestCreateRecord(t *testing.T) {
	var body struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Content string `json:"content"`
		TTL     int    `json:"ttl"`
		Proxied *bool  `json:"proxied"`
	}
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success": true, "errors": [], "messages": [], "result": {"id": "rec9"}}`)
	}))

	record := provider.Record{
		Name: "hn.example.com", Type: "A", Content: "203.0.113.9", TTL: 120, Proxied: true,
	}
	if err := p.CreateRecord(context.Background(), "zone123", record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if body.Name != "hn.example.com" || body.Content != "203.0.113.9" || body.TTL != 120 {
		t.Errorf("unexpected request body: %+v", body)
	}
	if body.Proxied == nil || !*body.Proxied {
		t.Error("proxied flag not carried on create")
	}
}

func TestUpdateRecordScopedToID(t *testing.T) {
	var gotPath string
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success": true, "errors": [], "messages": [], "result": {"id": "rec1", "content": "203.0.113.9"}}`)
	}))

	record := provider.Record{
		ID: "rec1", Name: "me.example.com", Type: "A", Content: "203.0.113.9", TTL: 120,
	}
	if err := p.UpdateRecord(context.Background(), "zone123", record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/zones/zone123/dns_records/rec1" {
		t.Errorf("update not scoped to record id: %s", gotPath)
	}
}
