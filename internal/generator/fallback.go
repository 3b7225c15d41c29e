package generator

import (
	"fmt"
	"strings"

	"github.com/yourorg/docpilot/pkg/types"
)

// Scoring weights for the local matcher.
const (
	SubstringMatchWeight = 2
	ExactSegmentBonus    = 5
)

const placeholderBaseURL = "https://api.example.com"

var methodKeywords = []struct {
	method   string
	keywords []string
}{
	{types.MethodPost, []string{"create", "add", "new"}},
	{types.MethodPut, []string{"update", "modify", "change"}},
	{types.MethodDelete, []string{"delete", "remove"}},
	{types.MethodPatch, []string{"patch"}},
}

var bodyStopwords = map[string]bool{
	"get": true, "create": true, "new": true, "add": true,
	"post": true, "put": true, "update": true, "delete": true,
}

// InferMethod picks a verb from keyword families, checked in priority order.
func InferMethod(query string) string {
	q := strings.ToLower(query)
	for _, family := range methodKeywords {
		for _, kw := range family.keywords {
			if strings.Contains(q, kw) {
				return family.method
			}
		}
	}
	return types.MethodGet
}

// QueryWords lower-cases the query and keeps words longer than two characters.
func QueryWords(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

// Score rates how well path matches the query words. Every segment/word pair
// where one contains the other earns SubstringMatchWeight, and any exact
// segment match adds ExactSegmentBonus once. {param} segments are ignored.
func Score(path string, queryWords []string) int {
	score := 0
	exact := false
	for _, seg := range pathSegments(path) {
		for _, w := range queryWords {
			if strings.Contains(seg, w) || strings.Contains(w, seg) {
				score += SubstringMatchWeight
			}
			if seg == w {
				exact = true
			}
		}
	}
	if exact {
		score += ExactSegmentBonus
	}
	return score
}

func pathSegments(path string) []string {
	var out []string
	for _, seg := range strings.Split(strings.ToLower(path), "/") {
		if seg == "" || isParamSegment(seg) {
			continue
		}
		out = append(out, seg)
	}
	return out
}

func isParamSegment(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// Fallback is the offline matcher. It is deterministic and never fails.
func Fallback(query string, schema *types.ApiSchema) *types.GeneratedApiCall {
	if schema == nil {
		schema = &types.ApiSchema{}
	}
	method := InferMethod(query)
	words := QueryWords(query)

	var best *types.ApiEndpoint
	bestScore := 0
	for i := range schema.Endpoints {
		ep := &schema.Endpoints[i]
		if !strings.EqualFold(ep.Method, method) {
			continue
		}
		if s := Score(ep.Path, words); s > bestScore {
			best, bestScore = ep, s
		}
	}

	call := &types.GeneratedApiCall{
		Endpoint:    fallbackEndpoint(schema),
		Method:      method,
		Headers:     defaultHeaders(),
		Description: fmt.Sprintf("Generated from: %q", query),
	}
	if best != nil {
		call.Endpoint = schema.BaseURL + best.Path
		if (method == types.MethodPost || method == types.MethodPut) && best.RequestBody != nil {
			call.Body = synthesizeBody(query)
		}
	}
	return call
}

func fallbackEndpoint(schema *types.ApiSchema) string {
	if schema.BaseURL != "" {
		return schema.BaseURL
	}
	return placeholderBaseURL
}

// synthesizeBody guesses body fields from the query. The result is an
// empty object when nothing could be inferred.
func synthesizeBody(query string) map[string]any {
	lower := strings.ToLower(query)
	var candidates []string
	for _, w := range strings.Fields(lower) {
		if len(w) > 3 && !bodyStopwords[w] {
			candidates = append(candidates, w)
		}
	}

	body := map[string]any{}
	if len(candidates) > 0 {
		body["name"] = candidates[0]
	}
	if strings.Contains(lower, "email") {
		body["email"] = "example@email.com"
	}
	if strings.Contains(lower, "password") {
		body["password"] = "password123"
	}
	if strings.Contains(lower, "title") {
		if len(candidates) > 0 {
			body["title"] = candidates[0]
		} else {
			body["title"] = "Example title"
		}
	}
	return body
}
