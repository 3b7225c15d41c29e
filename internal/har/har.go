// Package har turns a browser HAR capture into a rest ApiSchema.
package har

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/docpilot/pkg/types"
)

type HARFile struct {
	Log struct {
		Entries []Entry `json:"entries"`
	} `json:"log"`
}

type Entry struct {
	StartedDateTime string `json:"startedDateTime"`
	Request         struct {
		Method   string `json:"method"`
		URL      string `json:"url"`
		PostData struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
			Encoding string `json:"encoding"`
		} `json:"postData"`
	} `json:"request"`
	Response struct {
		Status  int `json:"status"`
		Content struct {
			MimeType string `json:"mimeType"`
		} `json:"content"`
	} `json:"response"`
}

var numericSegment = regexp.MustCompile(`^\d+$`)

// ParseFile reads a HAR file from disk.
func ParseFile(filePath string, filter FilterConfig) (*types.ParsedDocumentation, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, filter)
}

// Parse builds a rest schema from the requests in a HAR capture. Identical
// method and templated path pairs collapse into one endpoint, in first-seen order.
// Requests rejected by filter are skipped.
func Parse(r io.Reader, filter FilterConfig) (*types.ParsedDocumentation, error) {
	var hf HARFile
	if err := json.NewDecoder(r).Decode(&hf); err != nil {
		return nil, fmt.Errorf("decode har: %w", err)
	}
	type capture struct {
		at    time.Time
		entry Entry
		url   *url.URL
	}
	captures := make([]capture, 0, len(hf.Log.Entries))
	for _, e := range hf.Log.Entries {
		ts, err := time.Parse(time.RFC3339Nano, e.StartedDateTime)
		if err != nil {
			return nil, fmt.Errorf("parse startedDateTime: %w", err)
		}
		u, err := url.Parse(e.Request.URL)
		if err != nil {
			return nil, fmt.Errorf("parse request url: %w", err)
		}
		method := strings.ToUpper(e.Request.Method)
		if !types.IsMethod(method) || !keep(method, u.Path, e.Response.Content.MimeType, filter) {
			continue
		}
		e.Request.Method = method
		captures = append(captures, capture{at: ts, entry: e, url: u})
	}
	sort.SliceStable(captures, func(i, j int) bool {
		return captures[i].at.Before(captures[j].at)
	})

	schema := types.ApiSchema{
		ID:        uuid.NewString(),
		Title:     "Captured API",
		Version:   "1.0.0",
		Endpoints: []types.ApiEndpoint{},
		ParsedAt:  time.Now().UTC(),
	}
	if len(captures) > 0 {
		first := captures[0].url
		schema.BaseURL = first.Scheme + "://" + first.Host
		schema.URL = schema.BaseURL
		schema.Title = "Captured API (" + first.Host + ")"
	}

	index := map[string]int{}
	for _, c := range captures {
		path, pathParams := templatePath(c.url.Path)
		key := c.entry.Request.Method + " " + path
		i, ok := index[key]
		if !ok {
			i = len(schema.Endpoints)
			index[key] = i
			ep := types.ApiEndpoint{
				Path:        path,
				Method:      c.entry.Request.Method,
				Description: "Captured " + c.entry.Request.Method + " " + path,
			}
			for _, name := range pathParams {
				ep.Parameters = append(ep.Parameters, types.Parameter{Name: name, In: types.InPath, Required: true, Schema: map[string]any{"type": "string"}})
			}
			schema.Endpoints = append(schema.Endpoints, ep)
		}
		merge(&schema.Endpoints[i], c.entry, c.url)
	}
	return &types.ParsedDocumentation{Type: types.DocREST, Schema: schema}, nil
}

func merge(ep *types.ApiEndpoint, e Entry, u *url.URL) {
	names := make([]string, 0, len(u.Query()))
	for name := range u.Query() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if hasParam(ep.Parameters, name, types.InQuery) {
			continue
		}
		ep.Parameters = append(ep.Parameters, types.Parameter{Name: name, In: types.InQuery, Schema: map[string]any{"type": "string"}})
	}
	if ep.RequestBody == nil {
		if body, mime := decodeBody(e.Request.PostData.Text, e.Request.PostData.Encoding, e.Request.PostData.MimeType); body != "" {
			ep.RequestBody = requestBody(body, mime)
		}
	}
	if e.Response.Status > 0 {
		if ep.Responses == nil {
			ep.Responses = map[string]any{}
		}
		code := strconv.Itoa(e.Response.Status)
		if _, ok := ep.Responses[code]; !ok {
			ep.Responses[code] = map[string]any{"description": "Observed response"}
		}
	}
}

func hasParam(params []types.Parameter, name, in string) bool {
	for _, p := range params {
		if p.Name == name && p.In == in {
			return true
		}
	}
	return false
}

// templatePath replaces numeric and UUID segments with {id}, {id2}, ...
func templatePath(p string) (string, []string) {
	if p == "" {
		return "/", nil
	}
	segs := strings.Split(p, "/")
	var names []string
	for i, s := range segs {
		if s == "" {
			continue
		}
		if !numericSegment.MatchString(s) && uuid.Validate(s) != nil {
			continue
		}
		name := "id"
		if len(names) > 0 {
			name = "id" + strconv.Itoa(len(names)+1)
		}
		names = append(names, name)
		segs[i] = "{" + name + "}"
	}
	return strings.Join(segs, "/"), names
}

func requestBody(body, mimeType string) map[string]any {
	mt := strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if mt == "" {
		mt = "application/json"
	}
	media := map[string]any{}
	var example any
	if json.Unmarshal([]byte(body), &example) == nil {
		media["example"] = example
	}
	return map[string]any{"content": map[string]any{mt: media}}
}

func decodeBody(text, encoding, mimeType string) (string, string) {
	if text == "" || isBinaryContentType(mimeType) {
		return "", mimeType
	}
	if strings.EqualFold(encoding, "base64") {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return "", mimeType
		}
		return string(decoded), mimeType
	}
	return text, mimeType
}

func isBinaryContentType(mimeType string) bool {
	mt := strings.ToLower(mimeType)
	return strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/") || mt == "application/octet-stream"
}
