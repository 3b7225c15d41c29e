package parser

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/yourorg/docpilot/pkg/types"
)

// embeddedSpec looks for a spec inlined in JSON script blocks, then in <pre>.
func (p *Parser) embeddedSpec(_ context.Context, pg *page) *types.ParsedDocumentation {
	candidates := findAll(pg.doc, func(n *html.Node) bool {
		return n.Data == "script" && strings.EqualFold(strings.TrimSpace(attrValue(n, "type")), "application/json")
	})
	candidates = append(candidates, findAll(pg.doc, byTag("pre"))...)

	for _, n := range candidates {
		if doc := p.specFromElement(n, pg.url); doc != nil {
			return doc
		}
	}
	return nil
}

// specFromElement decodes one candidate. A failure only skips this element.
func (p *Parser) specFromElement(n *html.Node, pageURL string) (doc *types.ParsedDocumentation) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
		}
	}()
	spec, order, err := decodeSpec([]byte(textContent(n)))
	if err != nil || !isSpecRoot(spec) {
		return nil
	}
	return specDocument(spec, order, pageURL)
}
