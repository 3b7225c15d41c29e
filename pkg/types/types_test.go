package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDescriptionAlwaysSerialized(t *testing.T) {
	data, err := json.Marshal(GeneratedApiCall{Endpoint: "https://api.x.com/users", Method: MethodGet, Headers: map[string]string{}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"description":""`) || !strings.Contains(string(data), `"body":null`) {
		t.Fatalf("unexpected call json %s", data)
	}

	data, err = json.Marshal(ApiEndpoint{Path: "/users", Method: MethodGet})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"description":""`) {
		t.Fatalf("unexpected endpoint json %s", data)
	}
}
