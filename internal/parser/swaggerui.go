package parser

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/yourorg/docpilot/pkg/types"
)

var specGlobalNames = []string{"swaggerSpec", "spec"}

// swaggerUI extracts the spec behind a Swagger UI page: live UI state, then
// spec globals, then an explicit spec URL, then conventional paths.
func (p *Parser) swaggerUI(ctx context.Context, pg *page) *types.ParsedDocumentation {
	if findFirst(pg.doc, byClass("swagger-ui")) == nil {
		return nil
	}

	if raw, ok := pg.globals.LiveSpec(); ok {
		if doc := specFromGlobal(raw, pg.url); doc != nil {
			p.logger.Debug("swagger ui spec from live state")
			return doc
		}
	}
	for _, name := range specGlobalNames {
		if raw, ok := pg.globals.Global(name); ok {
			if doc := specFromGlobal(raw, pg.url); doc != nil {
				p.logger.Debug("swagger ui spec from global", "name", name)
				return doc
			}
		}
	}
	if doc := p.specFromURL(ctx, pg); doc != nil {
		return doc
	}
	return p.probeSpecPaths(ctx, pg)
}

func specFromGlobal(raw json.RawMessage, pageURL string) *types.ParsedDocumentation {
	spec, order, err := decodeJSON(raw)
	if err != nil {
		return nil
	}
	if !isSpecRoot(spec) {
		if _, hasPaths := spec["paths"]; !hasPaths {
			return nil
		}
	}
	return specDocument(spec, order, pageURL)
}

// pageSpecURL finds a spec URL declared in markup, or failing that in the
// page's Swagger UI config.
func pageSpecURL(pg *page) string {
	if n := findFirst(pg.doc, byAttr("data-spec-url")); n != nil {
		if v := strings.TrimSpace(attrValue(n, "data-spec-url")); v != "" {
			return v
		}
	}
	if n := findFirst(pg.doc, byAttr("spec-url")); n != nil {
		if v := strings.TrimSpace(attrValue(n, "spec-url")); v != "" {
			return v
		}
	}
	link := findFirst(pg.doc, func(n *html.Node) bool {
		return n.Data == "link" && strings.EqualFold(attrValue(n, "rel"), "api-spec")
	})
	if v := strings.TrimSpace(attrValue(link, "href")); v != "" {
		return v
	}
	if src, ok := pg.globals.(specURLSource); ok {
		if v, ok := src.SpecURL(); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (p *Parser) specFromURL(ctx context.Context, pg *page) *types.ParsedDocumentation {
	ref := pageSpecURL(pg)
	if ref == "" {
		return nil
	}
	target := resolveURL(pg.url, ref)
	resp, err := p.get(ctx, target)
	if err != nil {
		p.logger.Debug("spec url fetch failed", "url", target, "error", err)
		return nil
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil
	}
	spec, order, err := decodeSpec(resp.Body)
	if err != nil || !isSpecRoot(spec) {
		return nil
	}
	p.logger.Debug("swagger ui spec from url", "url", target)
	return specDocument(spec, order, pg.url)
}

// probeSpecPaths tries the configured conventional spec locations relative to
// the page origin and accepts the first 200 that decodes as a spec.
func (p *Parser) probeSpecPaths(ctx context.Context, pg *page) *types.ParsedDocumentation {
	base, err := url.Parse(pg.url)
	if err != nil || !base.IsAbs() {
		return nil
	}
	for _, path := range p.probePaths[:p.maxProbes] {
		if ctx.Err() != nil {
			return nil
		}
		target := resolveURL(pg.url, path)
		resp, err := p.get(ctx, target)
		if err != nil || resp.Status != 200 {
			continue
		}
		var spec map[string]any
		var order *KeyOrder
		if isYAMLHint(resp.ContentType, path) {
			spec, order, err = decodeYAML(resp.Body)
		} else {
			spec, order, err = decodeJSON(resp.Body)
		}
		if err != nil || !isSpecRoot(spec) {
			continue
		}
		p.logger.Debug("swagger ui spec from probe", "url", target)
		return specDocument(spec, order, pg.url)
	}
	return nil
}
