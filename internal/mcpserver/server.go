// Package mcpserver exposes schema parsing and call generation as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yourorg/docpilot/internal/generator"
	"github.com/yourorg/docpilot/internal/parser"
	"github.com/yourorg/docpilot/internal/store"
	"github.com/yourorg/docpilot/pkg/types"
)

const serverInstructions = `docpilot MCP server: turns API documentation pages into schemas and natural-language requests into API calls.

Typical flow: parse_page with a documentation URL (or its HTML), then suggest_queries or generate_call with the returned schema_id. validate_call checks a call against the stored schema. list_schemas shows everything parsed so far.`

// Server holds the components the tools run against.
type Server struct {
	store     store.Store
	parser    *parser.Parser
	generator *generator.Generator
	logger    *slog.Logger
	version   string
}

func New(st store.Store, p *parser.Parser, g *generator.Generator, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{store: st, parser: p, generator: g, logger: logger, version: version}
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.newMCPServer().Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) newMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "docpilot", Version: s.version},
		&mcp.ServerOptions{Instructions: serverInstructions},
	)
	s.registerTools(server)
	return server
}

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_page",
		Description: "Detect API documentation on a page (embedded OpenAPI/Swagger, Swagger UI, Redoc, GraphQL, or endpoint tables) and store the normalized schema. Pass html when the page is already loaded, otherwise it is fetched from url. Returns the schema_id used by the other tools.",
	}, s.handleParsePage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_schemas",
		Description: "List stored schemas, newest first, with their endpoint counts.",
	}, s.handleListSchemas)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_call",
		Description: "Turn a natural-language request into a concrete API call against a stored schema. Uses the configured remote model first and a local keyword matcher when it is unavailable. Reports whether the call matches a documented endpoint.",
	}, s.handleGenerateCall)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_call",
		Description: "Check whether a call's method and endpoint URL match an endpoint of a stored schema. Query strings on the endpoint are ignored.",
	}, s.handleValidateCall)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "suggest_queries",
		Description: "Suggest up to 10 natural-language requests that map onto the endpoints of a stored schema.",
	}, s.handleSuggestQueries)
}

type endpointSummary struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

type schemaSummary struct {
	SchemaID      string `json:"schema_id"`
	Type          string `json:"type"`
	Title         string `json:"title"`
	URL           string `json:"url,omitempty"`
	BaseURL       string `json:"base_url"`
	EndpointCount int    `json:"endpoint_count"`
	ParsedAt      string `json:"parsed_at"`
}

func summarize(doc *types.ParsedDocumentation) schemaSummary {
	return schemaSummary{
		SchemaID:      doc.Schema.ID,
		Type:          string(doc.Type),
		Title:         doc.Schema.Title,
		URL:           doc.Schema.URL,
		BaseURL:       doc.Schema.BaseURL,
		EndpointCount: len(doc.Schema.Endpoints),
		ParsedAt:      doc.Schema.ParsedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) loadSchema(id string) (*types.ParsedDocumentation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("schema_id is required")
	}
	doc, err := s.store.GetSchema(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.New("schema " + id + " not found; call parse_page or list_schemas first")
	}
	return doc, err
}

func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
