package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/net/html"

	"github.com/yourorg/docpilot/internal/generator"
	"github.com/yourorg/docpilot/internal/parser"
	"github.com/yourorg/docpilot/pkg/types"
)

type parsePageInput struct {
	URL  string `json:"url"            jsonschema:"URL of the documentation page; also used to resolve relative spec links"`
	HTML string `json:"html,omitempty" jsonschema:"Rendered page HTML; when empty the page is fetched from url"`
}

type parsePageOutput struct {
	Found     bool              `json:"found"`
	Schema    *schemaSummary    `json:"schema,omitempty"`
	Endpoints []endpointSummary `json:"endpoints"`
}

func (s *Server) handleParsePage(ctx context.Context, _ *mcp.CallToolRequest, input parsePageInput) (*mcp.CallToolResult, parsePageOutput, error) {
	out := parsePageOutput{Endpoints: []endpointSummary{}}
	if strings.TrimSpace(input.URL) == "" && strings.TrimSpace(input.HTML) == "" {
		return errResult(errors.New("url or html is required")), out, nil
	}
	var (
		root *html.Node
		err  error
	)
	if strings.TrimSpace(input.HTML) != "" {
		root, err = parser.ParseHTML(strings.NewReader(input.HTML))
	} else {
		root, err = s.parser.FetchPage(ctx, input.URL)
	}
	if err != nil {
		return errResult(err), out, nil
	}
	doc := s.parser.Parse(ctx, root, input.URL)
	if doc == nil {
		return nil, out, nil
	}
	if err := s.store.SaveSchema(doc); err != nil {
		return errResult(err), out, nil
	}
	sum := summarize(doc)
	out.Found = true
	out.Schema = &sum
	for _, ep := range doc.Schema.Endpoints {
		out.Endpoints = append(out.Endpoints, endpointSummary{Method: ep.Method, Path: ep.Path, Description: ep.Description})
	}
	s.logger.Info("mcp parse_page", "url", input.URL, "schema", sum.SchemaID, "endpoints", sum.EndpointCount)
	return nil, out, nil
}

type listSchemasInput struct{}

type listSchemasOutput struct {
	Schemas []schemaSummary `json:"schemas"`
}

func (s *Server) handleListSchemas(_ context.Context, _ *mcp.CallToolRequest, _ listSchemasInput) (*mcp.CallToolResult, listSchemasOutput, error) {
	out := listSchemasOutput{Schemas: []schemaSummary{}}
	docs, err := s.store.ListSchemas()
	if err != nil {
		return errResult(err), out, nil
	}
	for i := range docs {
		out.Schemas = append(out.Schemas, summarize(&docs[i]))
	}
	return nil, out, nil
}

type generateCallInput struct {
	SchemaID string `json:"schema_id" jsonschema:"Schema returned by parse_page or list_schemas"`
	Query    string `json:"query"     jsonschema:"Natural-language request, e.g. 'Create a new user named alice'"`
}

type generateCallOutput struct {
	Call   *types.GeneratedApiCall `json:"call"`
	Valid  bool                    `json:"valid"`
	Source string                  `json:"source"`
}

func (s *Server) handleGenerateCall(ctx context.Context, _ *mcp.CallToolRequest, input generateCallInput) (*mcp.CallToolResult, generateCallOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return errResult(errors.New("query is required")), generateCallOutput{}, nil
	}
	doc, err := s.loadSchema(input.SchemaID)
	if err != nil {
		return errResult(err), generateCallOutput{}, nil
	}
	call, source := s.generator.GenerateWithSource(ctx, input.Query, &doc.Schema)
	return nil, generateCallOutput{
		Call:   call,
		Valid:  generator.Validate(call, &doc.Schema),
		Source: string(source),
	}, nil
}

type validateCallInput struct {
	SchemaID string `json:"schema_id" jsonschema:"Schema to validate against"`
	Method   string `json:"method"    jsonschema:"HTTP method of the call"`
	Endpoint string `json:"endpoint"  jsonschema:"Full endpoint URL of the call"`
}

type validateCallOutput struct {
	Valid bool `json:"valid"`
}

func (s *Server) handleValidateCall(_ context.Context, _ *mcp.CallToolRequest, input validateCallInput) (*mcp.CallToolResult, validateCallOutput, error) {
	doc, err := s.loadSchema(input.SchemaID)
	if err != nil {
		return errResult(err), validateCallOutput{}, nil
	}
	call := &types.GeneratedApiCall{Method: strings.ToUpper(strings.TrimSpace(input.Method)), Endpoint: strings.TrimSpace(input.Endpoint)}
	return nil, validateCallOutput{Valid: generator.Validate(call, &doc.Schema)}, nil
}

type suggestQueriesInput struct {
	SchemaID string `json:"schema_id" jsonschema:"Schema to suggest requests for"`
}

type suggestQueriesOutput struct {
	Suggestions []string `json:"suggestions"`
}

func (s *Server) handleSuggestQueries(_ context.Context, _ *mcp.CallToolRequest, input suggestQueriesInput) (*mcp.CallToolResult, suggestQueriesOutput, error) {
	doc, err := s.loadSchema(input.SchemaID)
	if err != nil {
		return errResult(err), suggestQueriesOutput{Suggestions: []string{}}, nil
	}
	return nil, suggestQueriesOutput{Suggestions: generator.SuggestQueries(&doc.Schema)}, nil
}
