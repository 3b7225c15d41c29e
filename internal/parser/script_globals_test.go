package parser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/pkg/types"
)

const swaggerBootstrap = `<html><body><div id="swagger-ui" class="swagger-ui"></div>
<script src="./swagger-ui-bundle.js"></script>
<script>
window.onload = function() {
  const ui = SwaggerUIBundle({
    spec: {"openapi": "3.0.1", "info": {"title": "Inline"}, "paths": {"/b": {"get": {"summary": "B"}}, "/a": {"post": {}}}},
    dom_id: '#swagger-ui',
    presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
    layout: "StandaloneLayout"
  });
  window.ui = ui;
};
</script></body></html>`

func TestScriptGlobalsLiveSpec(t *testing.T) {
	doc := mustParseHTML(t, swaggerBootstrap)
	got := New(config.ParserConfig{}).Parse(context.Background(), doc, "")
	if got == nil || got.Type != types.DocOpenAPI {
		t.Fatalf("expected openapi from live state, got %+v", got)
	}
	if got.Schema.Title != "Inline" {
		t.Fatalf("unexpected title %q", got.Schema.Title)
	}
	if len(got.Schema.Endpoints) != 2 || got.Schema.Endpoints[0].Path != "/b" || got.Schema.Endpoints[1].Method != "POST" {
		t.Fatalf("unexpected endpoints %+v", got.Schema.Endpoints)
	}
}

func TestScriptGlobalsWindowVariable(t *testing.T) {
	doc := mustParseHTML(t, `<html><body><script>
var swaggerSpec = {swagger: "2.0", info: {title: "Global"}, paths: {"/g": {get: {}}}};
</script></body></html>`)
	g := NewScriptGlobals(doc, time.Second, nil)
	if _, ok := g.LiveSpec(); ok {
		t.Fatalf("expected no live spec")
	}
	raw, ok := g.Global("swaggerSpec")
	if !ok || !strings.Contains(string(raw), `"Global"`) {
		t.Fatalf("expected swaggerSpec global, got %s", raw)
	}
	if _, ok := g.Global("spec"); ok {
		t.Fatalf("expected missing global")
	}
}

func TestScriptGlobalsSpecURL(t *testing.T) {
	doc := mustParseHTML(t, `<html><body><script>
window.addEventListener("load", function() {
  window.ui = SwaggerUIBundle({ url: "/v2/api-docs", dom_id: "#swagger-ui" });
});
</script></body></html>`)
	g := NewScriptGlobals(doc, time.Second, nil)
	u, ok := g.SpecURL()
	if !ok || u != "/v2/api-docs" {
		t.Fatalf("expected configured url, got %q %v", u, ok)
	}
	if _, ok := g.LiveSpec(); ok {
		t.Fatalf("url-only config has no live spec")
	}
}

func TestScriptGlobalsTimeout(t *testing.T) {
	doc := mustParseHTML(t, `<html><body><script>while (true) {}</script>
<script>var spec = {openapi: "3.0.0", paths: {}};</script></body></html>`)
	g := NewScriptGlobals(doc, 50*time.Millisecond, nil)
	start := time.Now()
	_, _ = g.Global("spec")
	if time.Since(start) > 5*time.Second {
		t.Fatalf("evaluation was not interrupted")
	}
}
