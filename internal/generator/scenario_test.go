package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/internal/parser"
	"github.com/yourorg/docpilot/pkg/types"
)

const swaggerPage = `<html><head><title>Users</title></head><body>
<script type="application/json">{
  "swagger": "2.0",
  "info": {"title": "Users API", "version": "1.2.0"},
  "host": "api.users.example.com",
  "schemes": ["https"],
  "paths": {
    "/users": {
      "get": {"summary": "List users"},
      "post": {"summary": "Create user", "parameters": [{"in": "body", "name": "user", "schema": {"type": "object"}}]}
    },
    "/users/{id}": {
      "get": {"summary": "Get user"},
      "put": {"summary": "Replace user", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}]},
      "delete": {"summary": "Delete user"}
    }
  }
}</script></body></html>`

func TestParseThenGenerateWithRemoteDown(t *testing.T) {
	recordSleeps(t)
	doc, err := parser.ParseHTML(strings.NewReader(swaggerPage))
	if err != nil {
		t.Fatal(err)
	}
	p := parser.New(config.ParserConfig{}, parser.WithGlobals(parser.NoGlobals{}))
	parsed := p.Parse(context.Background(), doc, "https://docs.users.example.com/")
	if parsed == nil || parsed.Type != types.DocSwagger {
		t.Fatalf("expected swagger documentation, got %+v", parsed)
	}
	if n := len(parsed.Schema.Endpoints); n != 5 {
		t.Fatalf("expected 5 endpoints, got %d", n)
	}

	down := remoteFunc(func(ctx context.Context, q string, s *types.ApiSchema) (*types.GeneratedApiCall, error) {
		return nil, errors.New("service unavailable")
	})
	call := New(down).Generate(context.Background(), "Get all users", &parsed.Schema)
	if call.Method != "GET" {
		t.Fatalf("expected GET, got %s", call.Method)
	}
	if !strings.HasSuffix(call.Endpoint, "/users") {
		t.Fatalf("expected collection endpoint, got %s", call.Endpoint)
	}
	if call.Body != nil {
		t.Fatalf("expected nil body, got %#v", call.Body)
	}
	if !Validate(call, &parsed.Schema) {
		t.Fatalf("expected generated call to validate against its schema")
	}

	create := New(nil).Generate(context.Background(), "Create a new user", &parsed.Schema)
	if create.Method != "POST" || create.Endpoint != "https://api.users.example.com/users" {
		t.Fatalf("unexpected create call %+v", create)
	}
	if _, ok := create.Body.(map[string]any); !ok {
		t.Fatalf("expected object body from swagger body parameter, got %#v", create.Body)
	}
}
