// Package sanitize redacts credentials from generated calls before they are
// written to the query history.
package sanitize

import (
	"encoding/json"
	"strings"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/pkg/types"
)

// Redactor replaces sensitive header, query and body values.
type Redactor struct {
	headers     map[string]struct{}
	fields      map[string]struct{}
	replacement string
}

func New(cfg config.SanitizeConfig) *Redactor {
	r := cfg.Replacement
	if r == "" {
		r = "***REDACTED***"
	}
	return &Redactor{
		headers:     toLowerSet(cfg.Headers),
		fields:      toLowerSet(cfg.BodyFields),
		replacement: r,
	}
}

// Call returns a redacted copy of call. The input is not modified.
func (r *Redactor) Call(call types.GeneratedApiCall) types.GeneratedApiCall {
	out := call
	out.Headers = r.headerMap(call.Headers)
	out.QueryParams = r.fieldMap(call.QueryParams)
	out.Body = r.body(call.Body)
	return out
}

func toLowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func (r *Redactor) headerMap(in map[string]string) map[string]string {
	return redactMap(in, r.headers, r.replacement)
}

func (r *Redactor) fieldMap(in map[string]string) map[string]string {
	return redactMap(in, r.fields, r.replacement)
}

func redactMap(in map[string]string, set map[string]struct{}, replacement string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if _, ok := set[strings.ToLower(k)]; ok {
			out[k] = replacement
			continue
		}
		out[k] = v
	}
	return out
}

// body works on a JSON copy so caller-owned maps stay untouched.
func (r *Redactor) body(body any) any {
	if body == nil {
		return nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return body
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return body
	}
	return r.value(v)
}

func (r *Redactor) value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, v2 := range val {
			if _, ok := r.fields[strings.ToLower(k)]; ok {
				val[k] = r.replacement
				continue
			}
			val[k] = r.value(v2)
		}
		return val
	case []any:
		for i := range val {
			val[i] = r.value(val[i])
		}
		return val
	default:
		return val
	}
}
