package har

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/pkg/types"
)

func testFilter() FilterConfig {
	cfg := &config.Config{}
	cfg.SetDefaults()
	return cfg.HAR
}

func TestParseSampleHAR(t *testing.T) {
	doc, err := ParseFile(filepath.Join("testdata", "sample.har"), testFilter())
	if err != nil {
		t.Fatal(err)
	}
	if doc.Type != types.DocREST {
		t.Fatalf("expected rest type, got %s", doc.Type)
	}
	s := doc.Schema
	if s.BaseURL != "https://api.shop.io" {
		t.Fatalf("unexpected base url %s", s.BaseURL)
	}
	want := []string{"GET /v1/orders", "GET /v1/orders/{id}", "POST /v1/orders", "PUT /v1/orders/{id}/lines/{id2}"}
	if len(s.Endpoints) != len(want) {
		t.Fatalf("expected %d endpoints, got %+v", len(want), s.Endpoints)
	}
	for i, ep := range s.Endpoints {
		if got := ep.Method + " " + ep.Path; got != want[i] {
			t.Fatalf("endpoint %d: want %s, got %s", i, want[i], got)
		}
	}
	item := s.Endpoints[1]
	if _, ok := item.Responses["404"]; !ok {
		t.Fatalf("expected merged 404 response, got %v", item.Responses)
	}
	if !hasParam(item.Parameters, "id", types.InPath) || !hasParam(item.Parameters, "expand", types.InQuery) {
		t.Fatalf("unexpected parameters %+v", item.Parameters)
	}
	if s.Endpoints[2].RequestBody == nil {
		t.Fatalf("expected request body on POST")
	}
	if s.Endpoints[3].RequestBody != nil {
		t.Fatalf("binary body should not declare a request body")
	}
}

func TestParseEmptyHAR(t *testing.T) {
	doc, err := ParseFile(filepath.Join("testdata", "empty.har"), testFilter())
	if err != nil {
		t.Fatal(err)
	}
	if doc.Schema.Endpoints == nil || len(doc.Schema.Endpoints) != 0 {
		t.Fatalf("expected empty non-nil endpoints")
	}
}

func TestParseMissingFile(t *testing.T) {
	if _, err := ParseFile(filepath.Join("testdata", "not-exist.har"), testFilter()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse(strings.NewReader("{"), testFilter()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestTemplatePath(t *testing.T) {
	got, names := templatePath("/users/12/posts/abc")
	if got != "/users/{id}/posts/abc" || len(names) != 1 {
		t.Fatalf("unexpected template %s %v", got, names)
	}
}

func TestFilterSkipsStaticTraffic(t *testing.T) {
	capture := `{"log":{"entries":[
{"startedDateTime":"2025-01-01T00:00:00Z","request":{"method":"GET","url":"https://app.io/static/app.js"},"response":{"status":200}},
{"startedDateTime":"2025-01-01T00:00:01Z","request":{"method":"GET","url":"https://app.io/logo.png"},"response":{"status":200}},
{"startedDateTime":"2025-01-01T00:00:02Z","request":{"method":"GET","url":"https://app.io/home"},"response":{"status":200,"content":{"mimeType":"text/html; charset=utf-8"}}},
{"startedDateTime":"2025-01-01T00:00:03Z","request":{"method":"GET","url":"https://app.io/api/me"},"response":{"status":200,"content":{"mimeType":"application/json"}}}
]}}`
	doc, err := Parse(strings.NewReader(capture), testFilter())
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Schema.Endpoints) != 1 || doc.Schema.Endpoints[0].Path != "/api/me" {
		t.Fatalf("expected only the api request, got %+v", doc.Schema.Endpoints)
	}
	if doc.Schema.BaseURL != "https://app.io" {
		t.Fatalf("unexpected base url %s", doc.Schema.BaseURL)
	}
}

func TestMatchesContentType(t *testing.T) {
	if !matchesContentType("image/png", []string{"image/*"}) {
		t.Fatalf("expected wildcard match")
	}
	if matchesContentType("application/json", []string{"text/html"}) {
		t.Fatalf("unexpected match")
	}
}
