package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/docpilot/pkg/types"
)

var errNotSpec = errors.New("document has no openapi or swagger key")

// KeyOrder records the source order of path keys and of the keys under each
// path item. Decoding into maps loses it.
type KeyOrder struct {
	Paths   []string
	Methods map[string][]string
}

// decodeJSON decodes a spec body as JSON.
func decodeJSON(data []byte) (map[string]any, *KeyOrder, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, nil, fmt.Errorf("decode json: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, nil, errors.New("decode json: top level is not an object")
	}
	return m, keyOrderOf(data), nil
}

// decodeYAML decodes a spec body as YAML, normalizing non-string keys.
func decodeYAML(data []byte) (map[string]any, *KeyOrder, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, nil, fmt.Errorf("decode yaml: %w", err)
	}
	m, ok := normalize(v).(map[string]any)
	if !ok {
		return nil, nil, errors.New("decode yaml: top level is not a mapping")
	}
	return m, keyOrderOf(data), nil
}

// decodeSpec tries JSON first and YAML second.
func decodeSpec(data []byte) (map[string]any, *KeyOrder, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, errors.New("empty document")
	}
	if m, order, err := decodeJSON(data); err == nil {
		return m, order, nil
	}
	return decodeYAML(data)
}

// normalize rewrites map[any]any produced by yaml.v3 into map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	default:
		return v
	}
}

func isSpecRoot(m map[string]any) bool {
	return truthy(m["openapi"]) || truthy(m["swagger"])
}

func docTypeOf(m map[string]any) types.DocType {
	if truthy(m["openapi"]) {
		return types.DocOpenAPI
	}
	return types.DocSwagger
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

// keyOrderOf reads the document as a yaml.Node tree, which keeps mapping order.
// JSON is valid YAML for the documents seen here; nil means unknown order.
func keyOrderOf(data []byte) *KeyOrder {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	paths := mappingValue(root.Content[0], "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return nil
	}
	order := &KeyOrder{Methods: make(map[string][]string)}
	for i := 0; i+1 < len(paths.Content); i += 2 {
		key := paths.Content[i].Value
		order.Paths = append(order.Paths, key)
		item := paths.Content[i+1]
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			order.Methods[key] = append(order.Methods[key], item.Content[j].Value)
		}
	}
	return order
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// pathKeys lists the keys of paths in source order. Keys the order does not
// know about follow, sorted.
func (o *KeyOrder) pathKeys(paths map[string]any) []string {
	var known []string
	if o != nil {
		known = o.Paths
	}
	return orderedKeys(paths, known, sort.Strings)
}

var methodKeyOrder = []string{"get", "post", "put", "patch", "delete"}

// methodKeys lists the operation keys of a path item, in source order when known
// and in get, post, put, patch, delete order otherwise.
func (o *KeyOrder) methodKeys(path string, item map[string]any) []string {
	var known []string
	if o != nil {
		known = o.Methods[path]
	}
	keys := orderedKeys(item, known, func(rest []string) {
		sort.SliceStable(rest, func(i, j int) bool { return methodRank(rest[i]) < methodRank(rest[j]) })
	})
	out := keys[:0]
	for _, k := range keys {
		if methodRank(k) < len(methodKeyOrder) {
			out = append(out, k)
		}
	}
	return out
}

func methodRank(key string) int {
	for i, m := range methodKeyOrder {
		if key == m {
			return i
		}
	}
	return len(methodKeyOrder)
}

func orderedKeys(m map[string]any, known []string, sortRest func([]string)) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range known {
		if _, ok := m[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sortRest(rest)
	return append(out, rest...)
}

// isYAMLHint reports whether a content type or path points at a YAML document.
func isYAMLHint(contentType, path string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") || strings.Contains(ct, "yml") {
		return true
	}
	p := strings.ToLower(path)
	return strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml")
}
