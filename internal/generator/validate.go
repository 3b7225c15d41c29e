package generator

import (
	"strings"

	"github.com/yourorg/docpilot/pkg/types"
)

// Validate reports whether call targets an endpoint the schema declares.
// The check is advisory. A query string on the call endpoint is ignored.
func Validate(call *types.GeneratedApiCall, schema *types.ApiSchema) bool {
	if call == nil || schema == nil || call.Endpoint == "" || call.Method == "" {
		return false
	}
	endpoint := call.Endpoint
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	for _, ep := range schema.Endpoints {
		if ep.Method == call.Method && schema.BaseURL+ep.Path == endpoint {
			return true
		}
	}
	return false
}
