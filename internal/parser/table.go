package parser

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/yourorg/docpilot/pkg/types"
)

// restTable reads endpoints out of tables whose header names an endpoint or
// path column and a method column.
func (p *Parser) restTable(_ context.Context, pg *page) *types.ParsedDocumentation {
	endpoints := []types.ApiEndpoint{}
	for _, table := range findAll(pg.doc, byTag("table")) {
		if !isEndpointTable(table) {
			continue
		}
		for _, tbody := range findAll(table, byTag("tbody")) {
			for _, row := range findAll(tbody, byTag("tr")) {
				if ep, ok := rowEndpoint(row); ok {
					endpoints = append(endpoints, ep)
				}
			}
		}
	}
	if len(endpoints) == 0 {
		return nil
	}

	title := documentTitle(pg.doc)
	if title == "" {
		title = "REST API"
	}
	return &types.ParsedDocumentation{
		Type: types.DocREST,
		Schema: types.ApiSchema{
			ID:        uuid.NewString(),
			URL:       pg.url,
			Title:     title,
			Endpoints: endpoints,
			ParsedAt:  time.Now().UTC(),
		},
	}
}

func isEndpointTable(table *html.Node) bool {
	var hasPath, hasMethod bool
	for _, th := range findAll(table, byTag("th")) {
		h := strings.ToLower(textContent(th))
		if strings.Contains(h, "endpoint") || strings.Contains(h, "path") {
			hasPath = true
		}
		if strings.Contains(h, "method") {
			hasMethod = true
		}
	}
	return hasPath && hasMethod
}

func rowEndpoint(row *html.Node) (types.ApiEndpoint, bool) {
	cells := childrenOf(row, "td")
	if len(cells) < 2 {
		return types.ApiEndpoint{}, false
	}
	method := strings.ToUpper(strings.TrimSpace(textContent(cells[1])))
	if !types.IsMethod(method) {
		method = types.MethodGet
	}
	ep := types.ApiEndpoint{
		Path:   strings.TrimSpace(textContent(cells[0])),
		Method: method,
	}
	if len(cells) > 2 {
		ep.Description = strings.TrimSpace(textContent(cells[2]))
	}
	return ep, true
}
