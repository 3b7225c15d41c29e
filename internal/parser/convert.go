package parser

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/docpilot/pkg/types"
)

const (
	defaultTitle   = "API Documentation"
	defaultVersion = "1.0.0"
)

// ConvertOpenAPI turns a decoded OpenAPI 3 or Swagger 2 document into an
// ApiSchema. Paths follow order when given. A failure while walking paths
// keeps the metadata and returns no endpoints.
func ConvertOpenAPI(spec map[string]any, pageURL string, order *KeyOrder) (schema types.ApiSchema) {
	schema = types.ApiSchema{
		ID:        uuid.NewString(),
		URL:       pageURL,
		Title:     defaultTitle,
		Version:   defaultVersion,
		Endpoints: []types.ApiEndpoint{},
		ParsedAt:  time.Now().UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			schema.Endpoints = []types.ApiEndpoint{}
		}
	}()

	if info, ok := spec["info"].(map[string]any); ok {
		if t := stringOf(info["title"]); t != "" {
			schema.Title = t
		}
		if v := stringOf(info["version"]); v != "" {
			schema.Version = v
		}
	}
	schema.BaseURL = baseURLOf(spec, pageURL)
	schema.Endpoints = convertPaths(spec["paths"], order)
	return schema
}

func convertPaths(raw any, order *KeyOrder) []types.ApiEndpoint {
	endpoints := []types.ApiEndpoint{}
	paths, ok := raw.(map[string]any)
	if !ok {
		return endpoints
	}
	for _, path := range order.pathKeys(paths) {
		item, ok := paths[path].(map[string]any)
		if !ok {
			continue
		}
		for _, method := range order.methodKeys(path, item) {
			op, ok := item[method].(map[string]any)
			if !ok {
				continue
			}
			endpoints = append(endpoints, convertOperation(path, method, op))
		}
	}
	return endpoints
}

func convertOperation(path, method string, op map[string]any) types.ApiEndpoint {
	ep := types.ApiEndpoint{
		Path:        path,
		Method:      strings.ToUpper(method),
		Description: firstNonEmpty(stringOf(op["summary"]), stringOf(op["description"])),
	}
	params, body := convertParameters(op["parameters"])
	ep.Parameters = params
	if rb, ok := op["requestBody"]; ok && rb != nil {
		ep.RequestBody = rb
	} else if body != nil {
		ep.RequestBody = body
	}
	if responses, ok := op["responses"].(map[string]any); ok {
		ep.Responses = responses
	}
	return ep
}

// convertParameters decodes an operation's parameter list. A Swagger 2 body
// parameter is returned separately as an OpenAPI 3 style request body.
func convertParameters(raw any) ([]types.Parameter, map[string]any) {
	params := []types.Parameter{}
	list, ok := raw.([]any)
	if !ok {
		return params, nil
	}
	var body map[string]any
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		in := strings.ToLower(stringOf(m["in"]))
		if in == "body" {
			body = map[string]any{
				"content": map[string]any{
					"application/json": map[string]any{"schema": m["schema"]},
				},
			}
			if d := stringOf(m["description"]); d != "" {
				body["description"] = d
			}
			if req, _ := m["required"].(bool); req {
				body["required"] = true
			}
			continue
		}
		switch in {
		case types.InQuery, types.InPath, types.InHeader, types.InCookie:
		default:
			continue
		}
		p := types.Parameter{
			Name:        stringOf(m["name"]),
			In:          in,
			Description: stringOf(m["description"]),
			Schema:      parameterSchema(m),
		}
		p.Required, _ = m["required"].(bool)
		params = append(params, p)
	}
	return params, body
}

// parameterSchema returns the OpenAPI 3 schema, or assembles one from the
// inline Swagger 2 type keywords.
func parameterSchema(m map[string]any) any {
	if s, ok := m["schema"]; ok {
		return s
	}
	schema := map[string]any{}
	for _, key := range []string{"type", "format", "enum", "items", "default"} {
		if v, ok := m[key]; ok {
			schema[key] = v
		}
	}
	if len(schema) == 0 {
		return nil
	}
	return schema
}

// baseURLOf prefers servers[0].url and falls back to the Swagger 2 host fields.
func baseURLOf(spec map[string]any, pageURL string) string {
	if servers, ok := spec["servers"].([]any); ok && len(servers) > 0 {
		if s, ok := servers[0].(map[string]any); ok {
			if u := stringOf(s["url"]); u != "" {
				return strings.TrimRight(resolveURL(pageURL, u), "/")
			}
		}
	}
	host := stringOf(spec["host"])
	if host == "" {
		return ""
	}
	scheme := ""
	if schemes, ok := spec["schemes"].([]any); ok && len(schemes) > 0 {
		scheme = stringOf(schemes[0])
	}
	if scheme == "" {
		if u, err := url.Parse(pageURL); err == nil && u.Scheme != "" {
			scheme = u.Scheme
		} else {
			scheme = "https"
		}
	}
	basePath := strings.TrimRight(stringOf(spec["basePath"]), "/")
	return scheme + "://" + host + basePath
}

// resolveURL resolves ref against base. Unresolvable input is returned as is.
func resolveURL(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ref
	}
	return b.ResolveReference(r).String()
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
