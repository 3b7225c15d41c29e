// Package export renders a stored schema as an OpenAPI 3 document or as
// Markdown reference docs.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/docpilot/pkg/types"
)

// Output formats.
const (
	FormatOpenAPI     = "openapi"
	FormatOpenAPIJSON = "openapi-json"
	FormatMarkdown    = "markdown"
)

var pathParamPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Write renders schema to w in the given format.
func Write(w io.Writer, schema *types.ApiSchema, format string) error {
	if schema == nil {
		return fmt.Errorf("schema is nil")
	}
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case FormatOpenAPI, "yaml", "openapi-yaml":
		data, err = OpenAPIYAML(schema)
	case FormatOpenAPIJSON, "json":
		data, err = OpenAPIJSON(schema)
	case FormatMarkdown, "md":
		return Markdown(w, schema)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Extension returns the file extension used for a format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatOpenAPIJSON, "json":
		return ".json"
	case FormatMarkdown, "md":
		return ".md"
	default:
		return ".yaml"
	}
}

// OpenAPI builds an OpenAPI 3 document from schema.
func OpenAPI(schema *types.ApiSchema) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   orDefault(schema.Title, "API Documentation"),
			Version: orDefault(schema.Version, "1.0.0"),
		},
		Paths: openapi3.NewPaths(),
	}
	if schema.BaseURL != "" {
		doc.Servers = openapi3.Servers{&openapi3.Server{URL: schema.BaseURL}}
	}
	for _, ep := range schema.Endpoints {
		op, err := operation(ep)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", ep.Method, ep.Path, err)
		}
		doc.AddOperation(ep.Path, strings.ToUpper(ep.Method), op)
	}
	return doc, nil
}

func OpenAPIJSON(schema *types.ApiSchema) ([]byte, error) {
	doc, err := OpenAPI(schema)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal openapi: %w", err)
	}
	return append(data, '\n'), nil
}

// OpenAPIYAML re-encodes the JSON form through a yaml.Node so key order is kept.
func OpenAPIYAML(schema *types.ApiSchema) ([]byte, error) {
	data, err := OpenAPIJSON(schema)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("convert openapi to yaml: %w", err)
	}
	blockStyle(&node)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("convert openapi to yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// blockStyle drops the flow and quoting styles inherited from the JSON source.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func operation(ep types.ApiEndpoint) (*openapi3.Operation, error) {
	op := openapi3.NewOperation()
	op.Summary = ep.Description

	declared := map[string]bool{}
	for _, p := range ep.Parameters {
		param := &openapi3.Parameter{
			Name:        p.Name,
			In:          p.In,
			Required:    p.Required || p.In == types.InPath,
			Description: p.Description,
		}
		s, err := schemaOf(p.Schema)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		param.Schema = s
		op.AddParameter(param)
		if p.In == types.InPath {
			declared[p.Name] = true
		}
	}
	for _, m := range pathParamPattern.FindAllStringSubmatch(ep.Path, -1) {
		if declared[m[1]] {
			continue
		}
		declared[m[1]] = true
		op.AddParameter(openapi3.NewPathParameter(m[1]).WithSchema(openapi3.NewStringSchema()))
	}

	if ep.RequestBody != nil {
		body := &openapi3.RequestBody{}
		if err := convertVia(ep.RequestBody, body); err != nil {
			return nil, fmt.Errorf("request body: %w", err)
		}
		if body.Content == nil {
			body.Content = openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema())
		}
		op.RequestBody = &openapi3.RequestBodyRef{Value: body}
	}

	op.Responses = &openapi3.Responses{}
	for _, code := range sortedKeys(ep.Responses) {
		resp, err := response(ep.Responses[code])
		if err != nil {
			return nil, fmt.Errorf("response %s: %w", code, err)
		}
		op.Responses.Set(code, &openapi3.ResponseRef{Value: resp})
	}
	if op.Responses.Len() == 0 {
		op.Responses.Set("default", &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Default response")})
	}
	return op, nil
}

// response accepts both OpenAPI 3 responses and Swagger 2 ones that carry a
// bare schema.
func response(v any) (*openapi3.Response, error) {
	resp := openapi3.NewResponse()
	m, ok := v.(map[string]any)
	if !ok {
		return resp.WithDescription(""), nil
	}
	raw := make(map[string]any, len(m))
	for k, val := range m {
		raw[k] = val
	}
	if s, ok := raw["schema"]; ok {
		if _, has := raw["content"]; !has {
			raw["content"] = map[string]any{"application/json": map[string]any{"schema": s}}
		}
		delete(raw, "schema")
	}
	delete(raw, "examples")
	delete(raw, "headers")
	if err := convertVia(raw, resp); err != nil {
		return nil, err
	}
	if resp.Description == nil {
		resp.WithDescription("")
	}
	return resp, nil
}

func schemaOf(v any) (*openapi3.SchemaRef, error) {
	if v == nil {
		return openapi3.NewStringSchema().NewRef(), nil
	}
	s := &openapi3.Schema{}
	if err := convertVia(v, s); err != nil {
		return nil, err
	}
	return s.NewRef(), nil
}

func convertVia(in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// sortedKeys orders numeric status codes first, then "default" and ranges like 2XX.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, ei := strconv.Atoi(keys[i])
		nj, ej := strconv.Atoi(keys[j])
		switch {
		case ei == nil && ej == nil:
			return ni < nj
		case ei == nil:
			return true
		case ej == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
