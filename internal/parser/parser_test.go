package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/net/html"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/pkg/types"
)

func mustParseHTML(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := ParseHTML(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func newTestParser(opts ...Option) *Parser {
	return New(config.ParserConfig{}, append([]Option{WithGlobals(NoGlobals{})}, opts...)...)
}

const endpointTable = `<table>
<thead><tr><th>Endpoint</th><th>Method</th><th>Description</th></tr></thead>
<tbody>
<tr><td>/orders</td><td>post</td><td>Create an order</td></tr>
<tr><td>/orders/{id}</td><td>fetch</td></tr>
<tr><td>/lonely</td></tr>
</tbody>
</table>`

func TestParseEmbeddedBeatsTable(t *testing.T) {
	page := `<html><head><title>Shop</title></head><body>
<script type="application/json">{"openapi":"3.0.0","info":{"title":"Shop API","version":"2.1.0"},"paths":{"/items":{"get":{"summary":"List items"}}}}</script>
` + endpointTable + `</body></html>`
	got := newTestParser().Parse(context.Background(), mustParseHTML(t, page), "https://shop.example.com/docs")
	if got == nil {
		t.Fatalf("expected documentation")
	}
	if got.Type != types.DocOpenAPI {
		t.Fatalf("expected openapi, got %s", got.Type)
	}
	if got.Schema.Title != "Shop API" || got.Schema.Version != "2.1.0" {
		t.Fatalf("unexpected metadata %+v", got.Schema)
	}
	if len(got.Schema.Endpoints) != 1 || got.Schema.Endpoints[0].Path != "/items" {
		t.Fatalf("expected spec endpoints, got %+v", got.Schema.Endpoints)
	}
}

func TestParseYAMLInPre(t *testing.T) {
	page := "<html><body><pre>\nswagger: \"2.0\"\ninfo:\n  title: Pets\nhost: pets.example.com\nbasePath: /v1\nschemes: [https]\npaths:\n  /pets:\n    get:\n      summary: List pets\n      responses:\n        200:\n          description: ok\n</pre></body></html>"
	got := newTestParser().Parse(context.Background(), mustParseHTML(t, page), "https://docs.example.com/")
	if got == nil {
		t.Fatalf("expected documentation")
	}
	if got.Type != types.DocSwagger {
		t.Fatalf("expected swagger, got %s", got.Type)
	}
	if got.Schema.BaseURL != "https://pets.example.com/v1" {
		t.Fatalf("unexpected base url %q", got.Schema.BaseURL)
	}
	ep := got.Schema.Endpoints[0]
	if ep.Method != "GET" || ep.Description != "List pets" {
		t.Fatalf("unexpected endpoint %+v", ep)
	}
	if _, ok := ep.Responses["200"]; !ok {
		t.Fatalf("expected integer response key normalized, got %v", ep.Responses)
	}
}

func TestParseSkipsBrokenElements(t *testing.T) {
	page := `<html><body>
<pre>{ not json: [ and: not yaml</pre>
<pre>{"hello": "world"}</pre>
<pre>{"openapi": "3.1.0", "paths": {}}</pre>
</body></html>`
	got := newTestParser().Parse(context.Background(), mustParseHTML(t, page), "")
	if got == nil || got.Type != types.DocOpenAPI {
		t.Fatalf("expected the third element to parse, got %+v", got)
	}
	if got.Schema.Endpoints == nil || len(got.Schema.Endpoints) != 0 {
		t.Fatalf("expected empty non-nil endpoints, got %#v", got.Schema.Endpoints)
	}
}

func TestParseNothingFound(t *testing.T) {
	page := `<html><head><title>Blog</title></head><body><p>Hello</p><table><tr><th>Name</th></tr></table></body></html>`
	if got := newTestParser().Parse(context.Background(), mustParseHTML(t, page), "https://blog.example.com"); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
	if got := newTestParser().Parse(context.Background(), nil, ""); got != nil {
		t.Fatalf("expected nil for nil document")
	}
}

func TestParseTable(t *testing.T) {
	page := `<html><head><title>Orders API</title></head><body>` + endpointTable + `</body></html>`
	got := newTestParser().Parse(context.Background(), mustParseHTML(t, page), "https://orders.example.com")
	if got == nil || got.Type != types.DocREST {
		t.Fatalf("expected rest documentation, got %+v", got)
	}
	s := got.Schema
	if s.Title != "Orders API" || s.BaseURL != "" {
		t.Fatalf("unexpected schema metadata %+v", s)
	}
	if len(s.Endpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %+v", s.Endpoints)
	}
	if s.Endpoints[0].Method != "POST" || s.Endpoints[0].Description != "Create an order" {
		t.Fatalf("unexpected first endpoint %+v", s.Endpoints[0])
	}
	if s.Endpoints[1].Method != "GET" || s.Endpoints[1].Path != "/orders/{id}" {
		t.Fatalf("unexpected second endpoint %+v", s.Endpoints[1])
	}
}

func TestParseGraphQLFromMeta(t *testing.T) {
	page := `<html><head><meta name="graphql-endpoint" content="https://api.example.com/v2/graphql"></head>
<body><div class="graphiql-container"></div></body></html>`
	got := newTestParser().Parse(context.Background(), mustParseHTML(t, page), "https://docs.example.com/explorer")
	if got == nil || got.Type != types.DocGraphQL {
		t.Fatalf("expected graphql documentation, got %+v", got)
	}
	s := got.Schema
	if s.BaseURL != "https://api.example.com" {
		t.Fatalf("unexpected base url %q", s.BaseURL)
	}
	if len(s.Endpoints) != 1 || s.Endpoints[0].Method != "POST" || s.Endpoints[0].Path != "/v2/graphql" {
		t.Fatalf("unexpected endpoints %+v", s.Endpoints)
	}
	if s.Endpoints[0].RequestBody == nil {
		t.Fatalf("expected request body")
	}
}

func TestParseGraphQLFromHeadingAndScript(t *testing.T) {
	page := `<html><body><h2>Our GraphQL API</h2>
<script>const client = new Client({ url: '/api/graphql' });</script></body></html>`
	got := newTestParser().Parse(context.Background(), mustParseHTML(t, page), "https://shop.example.com/docs/graphql-intro")
	if got == nil || got.Type != types.DocGraphQL {
		t.Fatalf("expected graphql documentation, got %+v", got)
	}
	if got.Schema.BaseURL != "https://shop.example.com" || got.Schema.Endpoints[0].Path != "/api/graphql" {
		t.Fatalf("unexpected endpoint %q %+v", got.Schema.BaseURL, got.Schema.Endpoints)
	}
}

func TestDiscoverGraphQLCascade(t *testing.T) {
	p := newTestParser()
	cases := []struct {
		name string
		page string
		want string
	}{
		{"link", `<link rel="graphql" href="/gql">`, "/gql"},
		{"graphql link href", `<link rel="alternate" href="/api/graphql">`, "/api/graphql"},
		{"stylesheet from graphql package", `<link rel="stylesheet" href="//cdn.jsdelivr.net/npm/graphql-playground-react/build/static/css/index.css"><script>init({ endpoint: '/v1/graphql' })</script>`, "/v1/graphql"},
		{"favicon from graphql package", `<link rel="shortcut icon" href="//cdn.jsdelivr.net/npm/graphql-playground-react/build/favicon.png">`, "/graphql"},
		{"asset without rel", `<link href="/graphql-console/app.js?v=2">`, "/graphql"},
		{"data attribute", `<div data-endpoint="/query"></div>`, "/query"},
		{"form", `<form action="/api/graphql/run"></form>`, "/api/graphql/run"},
		{"default", `<div></div>`, "/graphql"},
	}
	for _, tc := range cases {
		got := p.discoverGraphQLEndpoint(mustParseHTML(t, "<html><body>"+tc.page+"</body></html>"))
		if got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

const playgroundPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset=utf-8/>
  <meta name="viewport" content="user-scalable=no, initial-scale=1.0, minimum-scale=1.0, maximum-scale=1.0, minimal-ui">
  <title>GraphQL Playground</title>
  <link rel="stylesheet" href="//cdn.jsdelivr.net/npm/graphql-playground-react/build/static/css/index.css" />
  <link rel="shortcut icon" href="//cdn.jsdelivr.net/npm/graphql-playground-react/build/favicon.png" />
  <script src="//cdn.jsdelivr.net/npm/graphql-playground-react/build/static/js/middleware.js"></script>
</head>
<body>
  <div id="root"></div>
  <script>window.addEventListener('load', function (event) {
    GraphQLPlayground.init(document.getElementById('root'), { endpoint: '/graphql' })
  })</script>
</body>
</html>`

func TestGraphQLPlaygroundIgnoresAssetLinks(t *testing.T) {
	got := newTestParser().Parse(context.Background(), mustParseHTML(t, playgroundPage), "https://api.example.com/playground")
	if got == nil || got.Type != types.DocGraphQL {
		t.Fatalf("expected graphql documentation, got %+v", got)
	}
	if got.Schema.BaseURL != "https://api.example.com" {
		t.Fatalf("unexpected base url %q", got.Schema.BaseURL)
	}
	if len(got.Schema.Endpoints) != 1 || got.Schema.Endpoints[0].Path != "/graphql" || got.Schema.Endpoints[0].Method != "POST" {
		t.Fatalf("unexpected endpoints %+v", got.Schema.Endpoints)
	}
}

func TestSwaggerUIProbesConventionalPaths(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/swagger.yaml", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("swagger: '2.0'\ninfo:\n  title: Probed\npaths:\n  /things:\n    get: {}\n    post: {}\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page := `<html><body><div id="swagger-ui" class="swagger-ui"></div></body></html>`
	got := newTestParser(WithHTTPClient(srv.Client())).Parse(context.Background(), mustParseHTML(t, page), srv.URL+"/docs/index.html")
	if got == nil || got.Type != types.DocSwagger {
		t.Fatalf("expected swagger documentation, got %+v", got)
	}
	if got.Schema.Title != "Probed" || len(got.Schema.Endpoints) != 2 {
		t.Fatalf("unexpected schema %+v", got.Schema)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected probing to stop at the first hit, got %d requests", hits.Load())
	}
}

func TestSwaggerUIProbeCap(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/openapi.json" {
			_, _ = w.Write([]byte(`{"openapi":"3.0.0","paths":{}}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := New(config.ParserConfig{ProbePaths: []string{"/a.json", "/b.json", "/openapi.json"}, MaxProbes: 2},
		WithGlobals(NoGlobals{}), WithHTTPClient(srv.Client()))
	page := `<html><body><div class="swagger-ui"></div></body></html>`
	if got := p.Parse(context.Background(), mustParseHTML(t, page), srv.URL+"/"); got != nil {
		t.Fatalf("expected nil with capped probes, got %+v", got)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 probes, got %d", hits.Load())
	}
}

func TestSwaggerUISpecURLAttribute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/specs/api.json" {
			http.NotFound(w, r)
			return
		}
		if len(r.Header.Get("Authorization")) > 0 {
			t.Errorf("spec fetch must not send credentials")
		}
		_, _ = w.Write([]byte(`{"openapi":"3.0.3","info":{"title":"Attr"},"servers":[{"url":"/api"}],"paths":{"/ping":{"get":{"description":"Ping"}}}}`))
	}))
	defer srv.Close()

	page := `<html><body><div class="swagger-ui" data-spec-url="/specs/api.json"></div></body></html>`
	got := newTestParser(WithHTTPClient(srv.Client())).Parse(context.Background(), mustParseHTML(t, page), srv.URL+"/docs")
	if got == nil || got.Schema.Title != "Attr" {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Schema.BaseURL != srv.URL+"/api" {
		t.Fatalf("expected relative server resolved against page, got %q", got.Schema.BaseURL)
	}
	if got.Schema.Endpoints[0].Description != "Ping" {
		t.Fatalf("expected description fallback, got %+v", got.Schema.Endpoints[0])
	}
}

func TestSwaggerUIStaticGlobals(t *testing.T) {
	g := StaticGlobals{Vars: map[string]json.RawMessage{
		"swaggerSpec": json.RawMessage(`{"swagger":"2.0","paths":{"/z":{"delete":{}},"/a":{"get":{}}}}`),
	}}
	page := `<html><body><div class="swagger-ui"></div></body></html>`
	got := New(config.ParserConfig{}, WithGlobals(g)).Parse(context.Background(), mustParseHTML(t, page), "")
	if got == nil || got.Type != types.DocSwagger {
		t.Fatalf("expected swagger documentation, got %+v", got)
	}
	if got.Schema.Endpoints[0].Path != "/z" || got.Schema.Endpoints[1].Path != "/a" {
		t.Fatalf("expected source order, got %+v", got.Schema.Endpoints)
	}
}

func TestRedoc(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"openapi":"3.0.0","info":{"title":"Redoc API","version":"9"},"paths":{"/r":{"put":{"summary":"Replace"}}}}`))
	}))
	defer srv.Close()

	page := `<html><body><redoc spec-url="/openapi.json"></redoc></body></html>`
	got := newTestParser(WithHTTPClient(srv.Client())).Parse(context.Background(), mustParseHTML(t, page), srv.URL+"/reference")
	if got == nil || got.Type != types.DocOpenAPI || got.Schema.Title != "Redoc API" {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Schema.Endpoints[0].Method != "PUT" {
		t.Fatalf("unexpected endpoint %+v", got.Schema.Endpoints[0])
	}
}
