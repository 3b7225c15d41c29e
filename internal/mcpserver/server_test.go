package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/internal/generator"
	"github.com/yourorg/docpilot/internal/parser"
	"github.com/yourorg/docpilot/internal/store"
)

const usersPage = `<html><body>
<pre>openapi: 3.0.0
info:
  title: Users API
  version: 1.2.0
servers:
  - url: https://api.x.com
paths:
  /users:
    get:
      summary: List users
    post:
      summary: Create user
  /users/{id}:
    get:
      summary: Get user
</pre></body></html>`

func startTestSession(t *testing.T) *mcp.ClientSession {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "docpilot.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	f := false
	p := parser.New(config.ParserConfig{EvaluateScripts: &f})
	srv := New(st, p, generator.New(nil), nil, "test")

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() {
		done <- srv.newMCPServer().Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-done
	})
	return session
}

func callTool[T any](t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (T, *mcp.CallToolResult) {
	t.Helper()
	var out T
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if result.IsError || result.StructuredContent == nil {
		return out, result
	}
	data, err := json.Marshal(result.StructuredContent)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %s output: %v", name, err)
	}
	return out, result
}

func TestListTools(t *testing.T) {
	session := startTestSession(t)
	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		if tool.Description == "" {
			t.Fatalf("tool %s has no description", tool.Name)
		}
	}
	sort.Strings(names)
	want := []string{"generate_call", "list_schemas", "parse_page", "suggest_queries", "validate_call"}
	if len(names) != len(want) {
		t.Fatalf("unexpected tools %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected tools %v", names)
		}
	}
}

func TestParseGenerateValidateSuggest(t *testing.T) {
	session := startTestSession(t)

	parsed, res := callTool[parsePageOutput](t, session, "parse_page", map[string]any{"url": "https://docs.x.com/", "html": usersPage})
	if res.IsError || !parsed.Found || parsed.Schema == nil {
		t.Fatalf("parse failed: %+v", res.Content)
	}
	if parsed.Schema.Title != "Users API" || len(parsed.Endpoints) != 3 {
		t.Fatalf("unexpected parse output %+v", parsed)
	}
	id := parsed.Schema.SchemaID

	listed, _ := callTool[listSchemasOutput](t, session, "list_schemas", map[string]any{})
	if len(listed.Schemas) != 1 || listed.Schemas[0].SchemaID != id {
		t.Fatalf("unexpected list %+v", listed)
	}

	gen, res := callTool[generateCallOutput](t, session, "generate_call", map[string]any{"schema_id": id, "query": "Create a new user"})
	if res.IsError || gen.Call == nil {
		t.Fatalf("generate failed: %+v", res.Content)
	}
	if gen.Call.Method != "POST" || gen.Call.Endpoint != "https://api.x.com/users" || !gen.Valid || gen.Source != "local" {
		t.Fatalf("unexpected call %+v", gen)
	}

	val, _ := callTool[validateCallOutput](t, session, "validate_call", map[string]any{"schema_id": id, "method": "get", "endpoint": "https://api.x.com/users/{id}?x=1"})
	if !val.Valid {
		t.Fatalf("expected valid call")
	}

	sugg, _ := callTool[suggestQueriesOutput](t, session, "suggest_queries", map[string]any{"schema_id": id})
	if len(sugg.Suggestions) == 0 {
		t.Fatalf("expected suggestions")
	}
}

func TestUnknownSchemaIsToolError(t *testing.T) {
	session := startTestSession(t)
	_, res := callTool[suggestQueriesOutput](t, session, "suggest_queries", map[string]any{"schema_id": "missing"})
	if !res.IsError {
		t.Fatalf("expected tool error for unknown schema")
	}
}

func TestParsePageNothingFound(t *testing.T) {
	session := startTestSession(t)
	out, res := callTool[parsePageOutput](t, session, "parse_page", map[string]any{"url": "https://x.com", "html": "<p>hi</p>"})
	if res.IsError || out.Found {
		t.Fatalf("expected not found without error: %+v", out)
	}
}
