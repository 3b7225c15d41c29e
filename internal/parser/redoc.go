package parser

import (
	"context"
	"strings"

	"github.com/yourorg/docpilot/pkg/types"
)

// redoc fetches the spec a <redoc spec-url> element points at.
func (p *Parser) redoc(ctx context.Context, pg *page) *types.ParsedDocumentation {
	el := findFirst(pg.doc, byTag("redoc"))
	if el == nil {
		return nil
	}
	ref := strings.TrimSpace(attrValue(el, "spec-url"))
	if ref == "" {
		return nil
	}
	target := resolveURL(pg.url, ref)
	resp, err := p.get(ctx, target)
	if err != nil {
		p.logger.Debug("redoc spec fetch failed", "url", target, "error", err)
		return nil
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil
	}
	spec, order, err := decodeJSON(resp.Body)
	if err != nil {
		return nil
	}
	return &types.ParsedDocumentation{
		Type:   types.DocOpenAPI,
		Schema: ConvertOpenAPI(spec, pg.url, order),
	}
}
