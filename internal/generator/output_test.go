package generator

import (
	"strings"
	"testing"
)

func TestParseModelOutputNormalizes(t *testing.T) {
	text := "```json\n" + `{"endpoint":" https://api.x.com/users ","method":"get","headers":{"content-type":"text/plain","X-Trace":1},"queryParams":{"limit":10,"active":true},"body":{"ignored":true}}` + "\n```"
	call, err := ParseModelOutput(text, "list users")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if call.Endpoint != "https://api.x.com/users" || call.Method != "GET" {
		t.Fatalf("unexpected call %+v", call)
	}
	if call.Headers["content-type"] != "text/plain" {
		t.Fatalf("caller header overwritten: %v", call.Headers)
	}
	if _, dup := call.Headers["Content-Type"]; dup {
		t.Fatalf("content type added twice: %v", call.Headers)
	}
	if call.Headers["Accept"] != "application/json" || call.Headers["X-Trace"] != "1" {
		t.Fatalf("unexpected headers %v", call.Headers)
	}
	if call.QueryParams["limit"] != "10" || call.QueryParams["active"] != "true" {
		t.Fatalf("unexpected query params %v", call.QueryParams)
	}
	if call.Body != nil {
		t.Fatalf("GET must not carry a body")
	}
	if call.Description != `Generated from query: "list users"` {
		t.Fatalf("unexpected description %q", call.Description)
	}
}

func TestParseModelOutputRejects(t *testing.T) {
	cases := []string{
		"",
		"Sure! Here is the call you asked for.",
		`{"endpoint":"https://x","method":"GET"}`,
		`{"method":"GET","headers":{}}`,
		`{"endpoint":"https://x","headers":{}}`,
		`{"endpoint":"https://x","method":"GET","headers":null}`,
	}
	for _, text := range cases {
		if _, err := ParseModelOutput(text, "q"); err == nil {
			t.Fatalf("expected error for %q", text)
		}
	}
}

func TestParseModelOutputKeepsDescriptionAndBody(t *testing.T) {
	call, err := ParseModelOutput(`{"endpoint":"https://x/users","method":"post","headers":{},"body":{"name":"john"},"description":"Create John"}`, "q")
	if err != nil {
		t.Fatal(err)
	}
	if call.Description != "Create John" || call.Method != "POST" {
		t.Fatalf("unexpected call %+v", call)
	}
	body, _ := call.Body.(map[string]any)
	if body["name"] != "john" {
		t.Fatalf("unexpected body %v", call.Body)
	}
	if !strings.Contains(call.Headers["Content-Type"], "json") {
		t.Fatalf("expected default content type, got %v", call.Headers)
	}
}
