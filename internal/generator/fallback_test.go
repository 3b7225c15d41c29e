package generator

import (
	"testing"

	"github.com/yourorg/docpilot/pkg/types"
)

func TestInferMethod(t *testing.T) {
	cases := map[string]string{
		"Get all users":        "GET",
		"Create a new product": "POST",
		"Update order 55":      "PUT",
		"Delete user":          "DELETE",
		"patch the invoice":    "PATCH",
		"remove and add tags":  "POST",
		"show me orders":       "GET",
	}
	for q, want := range cases {
		if got := InferMethod(q); got != want {
			t.Fatalf("InferMethod(%q)=%s want %s", q, got, want)
		}
	}
}

func TestScore(t *testing.T) {
	words := QueryWords("Get all users")
	if got := Score("/users", words); got != SubstringMatchWeight+ExactSegmentBonus {
		t.Fatalf("expected %d, got %d", SubstringMatchWeight+ExactSegmentBonus, got)
	}
	if got := Score("/api/user", words); got != SubstringMatchWeight {
		t.Fatalf("expected substring only score, got %d", got)
	}
	if got := Score("/{users}", words); got != 0 {
		t.Fatalf("parameter segments must not score, got %d", got)
	}
	if got := Score("/orders", words); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func sampleSchema() *types.ApiSchema {
	return &types.ApiSchema{
		BaseURL: "https://api.x.com",
		Endpoints: []types.ApiEndpoint{
			{Path: "/users", Method: "GET"},
			{Path: "/users", Method: "POST", RequestBody: map[string]any{"content": map[string]any{}}},
			{Path: "/users/{id}", Method: "GET"},
			{Path: "/users/{id}", Method: "PUT", RequestBody: map[string]any{}},
			{Path: "/users/{id}", Method: "DELETE"},
			{Path: "/orders", Method: "GET"},
		},
	}
}

func TestFallbackPicksBestEndpoint(t *testing.T) {
	call := Fallback("Get all users", sampleSchema())
	if call.Method != "GET" || call.Endpoint != "https://api.x.com/users" {
		t.Fatalf("unexpected call %+v", call)
	}
	if call.Body != nil {
		t.Fatalf("GET must have nil body")
	}
	if call.Headers["Content-Type"] != "application/json" || call.Headers["Accept"] != "application/json" {
		t.Fatalf("unexpected headers %v", call.Headers)
	}
	if call.Description != `Generated from: "Get all users"` {
		t.Fatalf("unexpected description %q", call.Description)
	}

	call = Fallback("show orders", sampleSchema())
	if call.Endpoint != "https://api.x.com/orders" {
		t.Fatalf("unexpected endpoint %s", call.Endpoint)
	}
}

func TestFallbackWithoutMatch(t *testing.T) {
	call := Fallback("Delete invoices", sampleSchema())
	if call.Method != "DELETE" || call.Endpoint != "https://api.x.com" {
		t.Fatalf("expected base url fallback, got %+v", call)
	}
	call = Fallback("anything", &types.ApiSchema{})
	if call.Endpoint != "https://api.example.com" || call.Method != "GET" {
		t.Fatalf("expected placeholder endpoint, got %+v", call)
	}
	if call := Fallback("anything", nil); call == nil || call.Headers == nil {
		t.Fatalf("expected usable call for nil schema")
	}
}

func TestFallbackBodySynthesis(t *testing.T) {
	call := Fallback("create user with email and password", sampleSchema())
	body, ok := call.Body.(map[string]any)
	if !ok {
		t.Fatalf("expected object body, got %#v", call.Body)
	}
	if body["name"] != "user" || body["email"] != "example@email.com" || body["password"] != "password123" {
		t.Fatalf("unexpected body %v", body)
	}

	call = Fallback("add new users", sampleSchema())
	body, ok = call.Body.(map[string]any)
	if !ok || body["name"] != "users" {
		t.Fatalf("unexpected body %#v", call.Body)
	}

	call = Fallback("add", &types.ApiSchema{Endpoints: []types.ApiEndpoint{{Path: "/add", Method: "POST", RequestBody: true}}})
	body, ok = call.Body.(map[string]any)
	if !ok || len(body) != 0 {
		t.Fatalf("POST without fields must carry an empty object, got %#v", call.Body)
	}

	call = Fallback("update users", sampleSchema())
	if call.Method != "PUT" || call.Endpoint != "https://api.x.com/users/{id}" {
		t.Fatalf("unexpected call %+v", call)
	}
	body, ok = call.Body.(map[string]any)
	if !ok || body["name"] != "users" {
		t.Fatalf("unexpected PUT body %#v", call.Body)
	}

	call = Fallback("update", &types.ApiSchema{Endpoints: []types.ApiEndpoint{{Path: "/update", Method: "PUT", RequestBody: true}}})
	body, ok = call.Body.(map[string]any)
	if !ok || len(body) != 0 {
		t.Fatalf("PUT without fields must carry an empty object, got %#v", call.Body)
	}
}
