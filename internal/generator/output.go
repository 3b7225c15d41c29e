package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yourorg/docpilot/pkg/types"
)

var errIncompleteCall = errors.New("call is missing endpoint, method or headers")

// wireCall is the loosely typed call shape a model or service may answer with.
type wireCall struct {
	Endpoint    string         `json:"endpoint"`
	Method      string         `json:"method"`
	Headers     map[string]any `json:"headers"`
	QueryParams map[string]any `json:"queryParams"`
	Body        any            `json:"body"`
	Description string         `json:"description"`
}

// ParseModelOutput decodes a model reply into a normalized call. A reply
// wrapped in a code fence is accepted.
func ParseModelOutput(text, query string) (*types.GeneratedApiCall, error) {
	cleaned := stripMarkdownCodeBlock(text)
	if cleaned == "" {
		return nil, errors.New("empty model output")
	}
	call, err := decodeCall([]byte(cleaned))
	if err != nil {
		return nil, err
	}
	return normalizeCall(call, query), nil
}

func decodeCall(data []byte) (*types.GeneratedApiCall, error) {
	var w wireCall
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode call: %w", err)
	}
	if strings.TrimSpace(w.Endpoint) == "" || strings.TrimSpace(w.Method) == "" || w.Headers == nil {
		return nil, errIncompleteCall
	}
	call := &types.GeneratedApiCall{
		Endpoint:    w.Endpoint,
		Method:      w.Method,
		Headers:     make(map[string]string, len(w.Headers)),
		Body:        w.Body,
		Description: w.Description,
	}
	for k, v := range w.Headers {
		call.Headers[k] = stringify(v)
	}
	if len(w.QueryParams) > 0 {
		call.QueryParams = make(map[string]string, len(w.QueryParams))
		for k, v := range w.QueryParams {
			call.QueryParams[k] = stringify(v)
		}
	}
	return call, nil
}

// normalizeCall upper-cases the method, adds the JSON headers the caller did
// not set, fills a missing description and drops bodies on GET and DELETE.
func normalizeCall(call *types.GeneratedApiCall, query string) *types.GeneratedApiCall {
	call.Endpoint = strings.TrimSpace(call.Endpoint)
	call.Method = strings.ToUpper(strings.TrimSpace(call.Method))
	if call.Headers == nil {
		call.Headers = map[string]string{}
	}
	for k, v := range defaultHeaders() {
		if !hasHeader(call.Headers, k) {
			call.Headers[k] = v
		}
	}
	if strings.TrimSpace(call.Description) == "" {
		call.Description = fmt.Sprintf("Generated from query: %q", query)
	}
	if call.Method == types.MethodGet || call.Method == types.MethodDelete {
		call.Body = nil
	}
	return call
}

func defaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}

func hasHeader(h map[string]string, name string) bool {
	for k := range h {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
