package generator

import (
	"testing"

	"github.com/yourorg/docpilot/pkg/types"
)

func TestValidate(t *testing.T) {
	schema := &types.ApiSchema{
		BaseURL:   "https://api.x.com",
		Endpoints: []types.ApiEndpoint{{Path: "/users", Method: "GET"}},
	}
	ok := &types.GeneratedApiCall{Endpoint: "https://api.x.com/users", Method: "GET"}
	if !Validate(ok, schema) {
		t.Fatalf("expected call to validate")
	}
	withQuery := &types.GeneratedApiCall{Endpoint: "https://api.x.com/users?limit=5", Method: "GET"}
	if !Validate(withQuery, schema) {
		t.Fatalf("query string should be ignored")
	}
	for _, bad := range []*types.GeneratedApiCall{
		{Endpoint: "https://api.x.com/orders", Method: "GET"},
		{Endpoint: "https://api.x.com/users", Method: "POST"},
		{Endpoint: "", Method: "GET"},
		nil,
	} {
		if Validate(bad, schema) {
			t.Fatalf("expected %+v to fail validation", bad)
		}
	}
	if Validate(ok, nil) {
		t.Fatalf("nil schema cannot validate")
	}
}
