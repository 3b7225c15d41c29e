package parser

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// pagePrelude stubs the browser objects Swagger UI bootstrap scripts touch.
// SwaggerUIBundle records its config and returns an object whose spec
// selectors hand back the inline spec.
const pagePrelude = `
var __onload = [];
var __noop = function() {};
var __element = function() {
  return { style: {}, setAttribute: __noop, appendChild: __noop, addEventListener: __noop, innerHTML: "" };
};
var console = { log: __noop, info: __noop, warn: __noop, error: __noop, debug: __noop };
var document = {
  readyState: "complete",
  body: __element(),
  head: __element(),
  getElementById: function() { return __element(); },
  querySelector: function() { return null; },
  querySelectorAll: function() { return []; },
  createElement: function() { return __element(); },
  addEventListener: function(type, fn) { if (typeof fn === "function") __onload.push(fn); }
};
var location = { href: "", origin: "", pathname: "/", search: "", hash: "" };
var navigator = { userAgent: "docpilot" };
window.addEventListener = function(type, fn) {
  if ((type === "load" || type === "DOMContentLoaded") && typeof fn === "function") __onload.push(fn);
};
var setTimeout = function(fn) { if (typeof fn === "function") __onload.push(fn); return 0; };
var setInterval = function() { return 0; };
var clearTimeout = __noop;
var fetch = function() { return { then: function() { return this; }, catch: function() { return this; } }; };
function SwaggerUIBundle(config) {
  window.__swaggerConfig = config || {};
  var spec = window.__swaggerConfig.spec;
  return {
    specSelectors: { specJson: function() { return { toJS: function() { return spec; } }; } },
    initOAuth: __noop,
    preauthorizeApiKey: __noop
  };
}
SwaggerUIBundle.presets = { apis: {} };
SwaggerUIBundle.plugins = { DownloadUrl: {} };
var SwaggerUI = SwaggerUIBundle;
var SwaggerUIStandalonePreset = {};
`

const (
	runLoadHandlers = `(function() {
  if (typeof window.onload === "function") { try { window.onload(); } catch (e) {} }
  for (var i = 0; i < __onload.length; i++) { try { __onload[i](); } catch (e) {} }
})()`
	liveSpecExpr = `(function() {
  try {
    var ui = window.ui;
    if (!ui || !ui.specSelectors) return undefined;
    return JSON.stringify(ui.specSelectors.specJson().toJS());
  } catch (e) { return undefined; }
})()`
	specURLExpr = `(function() {
  var c = window.__swaggerConfig;
  if (!c) return undefined;
  if (typeof c.url === "string" && c.url) return c.url;
  if (c.urls && c.urls.length && typeof c.urls[0].url === "string") return c.urls[0].url;
  return undefined;
})()`
)

// ScriptGlobals evaluates a page's inline scripts in a sandboxed goja VM with
// stub browser objects. Scripts run once, on first access. It is not safe for
// concurrent use.
type ScriptGlobals struct {
	scripts []string
	timeout time.Duration
	logger  *slog.Logger

	once sync.Once
	vm   *goja.Runtime
}

// NewScriptGlobals collects the inline JavaScript of doc. The whole
// evaluation is bounded by timeout.
func NewScriptGlobals(doc *html.Node, timeout time.Duration, logger *slog.Logger) *ScriptGlobals {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ScriptGlobals{scripts: inlineScripts(doc), timeout: timeout, logger: logger}
}

func inlineScripts(doc *html.Node) []string {
	var out []string
	for _, n := range findAll(doc, byTag("script")) {
		if _, hasSrc := attr(n, "src"); hasSrc {
			continue
		}
		typ := strings.ToLower(strings.TrimSpace(attrValue(n, "type")))
		if typ != "" && !strings.Contains(typ, "javascript") && !strings.Contains(typ, "ecmascript") {
			continue
		}
		if body := strings.TrimSpace(textContent(n)); body != "" {
			out = append(out, body)
		}
	}
	return out
}

func (g *ScriptGlobals) load() {
	g.once.Do(func() {
		if len(g.scripts) == 0 {
			return
		}
		vm := goja.New()
		if err := vm.Set("window", vm.GlobalObject()); err != nil {
			return
		}
		_ = vm.Set("self", vm.GlobalObject())
		if _, err := vm.RunString(pagePrelude); err != nil {
			g.logger.Debug("script prelude failed", "error", err)
			return
		}
		deadline := time.Now().Add(g.timeout)
		for i, src := range g.scripts {
			if _, err := g.run(vm, src, deadline); err != nil {
				g.logger.Debug("inline script failed", "index", i, "error", err)
			}
		}
		if _, err := g.run(vm, runLoadHandlers, deadline); err != nil {
			g.logger.Debug("load handlers failed", "error", err)
		}
		g.vm = vm
	})
}

// run evaluates src, interrupting it once deadline passes.
func (g *ScriptGlobals) run(vm *goja.Runtime, src string, deadline time.Time) (goja.Value, error) {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	timer := time.AfterFunc(remaining, func() { vm.Interrupt("script timeout") })
	defer func() {
		timer.Stop()
		vm.ClearInterrupt()
	}()
	return vm.RunString(src)
}

func (g *ScriptGlobals) eval(expr string) (string, bool) {
	g.load()
	if g.vm == nil {
		return "", false
	}
	v, err := g.run(g.vm, expr, time.Now().Add(g.timeout))
	if err != nil || v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", false
	}
	return v.String(), true
}

func (g *ScriptGlobals) LiveSpec() (json.RawMessage, bool) {
	s, ok := g.eval(liveSpecExpr)
	if !ok || isEmptyJSON(json.RawMessage(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}

func (g *ScriptGlobals) Global(name string) (json.RawMessage, bool) {
	b, err := json.Marshal(name)
	if err != nil {
		return nil, false
	}
	s, ok := g.eval(`(function() { try { return JSON.stringify(window[` + string(b) + `]); } catch (e) { return undefined; } })()`)
	if !ok || isEmptyJSON(json.RawMessage(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}

// SpecURL returns the url a SwaggerUIBundle call was configured with.
func (g *ScriptGlobals) SpecURL() (string, bool) {
	return g.eval(specURLExpr)
}
