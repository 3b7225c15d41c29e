package parser

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/yourorg/docpilot/pkg/types"
)

var (
	graphQLMetaNames = []string{"graphql-endpoint", "graphql:endpoint"}
	graphQLDataAttrs = []string{"data-graphql-endpoint", "data-endpoint", "data-graphql-url"}
)

// graphQLRequestBody describes the JSON body every GraphQL POST accepts.
func graphQLRequestBody() map[string]any {
	return map[string]any{
		"required": true,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{
					"type":     "object",
					"required": []any{"query"},
					"properties": map[string]any{
						"query":         map[string]any{"type": "string"},
						"variables":     map[string]any{"type": "object"},
						"operationName": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

// graphQL recognizes GraphiQL/Playground consoles and guesses the endpoint
// they talk to. No request is made to confirm the guess.
func (p *Parser) graphQL(_ context.Context, pg *page) *types.ParsedDocumentation {
	if !isGraphQLPage(pg.doc) {
		return nil
	}
	ref := p.discoverGraphQLEndpoint(pg.doc)
	baseURL, path := splitEndpoint(resolveURL(pg.url, ref))

	title := documentTitle(pg.doc)
	if title == "" {
		title = "GraphQL API"
	}
	return &types.ParsedDocumentation{
		Type: types.DocGraphQL,
		Schema: types.ApiSchema{
			ID:      uuid.NewString(),
			URL:     pg.url,
			Title:   title,
			BaseURL: baseURL,
			Endpoints: []types.ApiEndpoint{{
				Path:        path,
				Method:      types.MethodPost,
				Description: "GraphQL endpoint. Accepts a JSON body with a query and optional variables.",
				Parameters:  []types.Parameter{},
				RequestBody: graphQLRequestBody(),
			}},
			ParsedAt: time.Now().UTC(),
		},
	}
}

func isGraphQLPage(doc *html.Node) bool {
	for _, sub := range []string{"graphiql", "graphql"} {
		if findFirst(doc, byClassContaining(sub)) != nil {
			return true
		}
	}
	if findFirst(doc, func(n *html.Node) bool { return strings.EqualFold(attrValue(n, "id"), "graphql-playground") }) != nil {
		return true
	}
	if strings.Contains(strings.ToLower(documentTitle(doc)), "graphql") {
		return true
	}
	heading := findFirst(doc, func(n *html.Node) bool {
		switch n.Data {
		case "h1", "h2", "h3":
			return strings.Contains(strings.ToLower(textContent(n)), "graphql")
		}
		return false
	})
	return heading != nil
}

// discoverGraphQLEndpoint walks meta tags, link tags, data attributes, forms
// and finally the conventional paths. The first hit wins.
func (p *Parser) discoverGraphQLEndpoint(doc *html.Node) string {
	for _, meta := range findAll(doc, byTag("meta")) {
		name := strings.ToLower(firstNonEmpty(attrValue(meta, "name"), attrValue(meta, "property")))
		for _, want := range graphQLMetaNames {
			if name == want {
				if v := strings.TrimSpace(attrValue(meta, "content")); v != "" {
					return v
				}
			}
		}
	}

	for _, link := range findAll(doc, byTag("link")) {
		if href := graphQLLink(link); href != "" {
			return href
		}
	}

	for _, key := range graphQLDataAttrs {
		if n := findFirst(doc, byAttr(key)); n != nil {
			if v := strings.TrimSpace(attrValue(n, key)); v != "" {
				return v
			}
		}
	}

	for _, form := range findAll(doc, byTag("form")) {
		action := strings.TrimSpace(attrValue(form, "action"))
		if strings.Contains(strings.ToLower(action), "graphql") {
			return action
		}
	}

	var scripts strings.Builder
	for _, s := range findAll(doc, byTag("script")) {
		scripts.WriteString(textContent(s))
		scripts.WriteByte('\n')
	}
	src := scripts.String()
	for _, path := range p.graphQLPaths {
		for _, quote := range []string{`"`, `'`, "`"} {
			if strings.Contains(src, quote+path) {
				return path
			}
		}
	}
	return p.graphQLPaths[0]
}

// graphQLLink returns the href of a link that names a GraphQL endpoint.
// Asset links such as stylesheets and icons never qualify, even when they
// are served from a graphql-named package.
func graphQLLink(link *html.Node) string {
	href := strings.TrimSpace(attrValue(link, "href"))
	if href == "" {
		return ""
	}
	for _, rel := range strings.Fields(strings.ToLower(attrValue(link, "rel"))) {
		switch rel {
		case "graphql", "graphql-endpoint":
			return href
		case "stylesheet", "icon", "shortcut", "preload", "modulepreload", "prefetch", "manifest", "apple-touch-icon":
			return ""
		}
	}
	lower := strings.ToLower(href)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch strings.ToLower(filepath.Ext(lower)) {
	case ".css", ".js", ".mjs", ".png", ".ico", ".svg", ".jpg", ".gif", ".woff", ".woff2", ".map":
		return ""
	}
	if strings.Contains(lower, "graphql") {
		return href
	}
	return ""
}

// splitEndpoint separates an absolute URL into origin and path. Relative input
// has no origin.
func splitEndpoint(raw string) (string, string) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", raw
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return u.Scheme + "://" + u.Host, path
}
