package export

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/yourorg/docpilot/pkg/types"
)

const markdownTemplate = `# {{ .Title | default "API Documentation" }}
{{ if .Version }}
Version: {{ .Version }}
{{ end }}{{ if .BaseURL }}
Base URL: ` + "`{{ .BaseURL }}`" + `
{{ end }}
## Endpoints
{{ range .Endpoints }}
- [{{ .Method | upper }} {{ .Path }}](#{{ anchor . }})
{{- end }}
{{ range .Endpoints }}
## {{ .Method | upper }} {{ .Path }}
{{ if .Description }}
{{ .Description }}
{{ end }}
{{- if .Parameters }}
### Parameters

| Name | In | Required | Description |
|---|---|---|---|
{{- range .Parameters }}
| {{ .Name }} | {{ .In }} | {{ ternary "yes" "no" .Required }} | {{ .Description | replace "\n" " " }} |
{{- end }}
{{ end }}
{{- if .RequestBody }}
### Request body

` + "```json" + `
{{ json .RequestBody }}
` + "```" + `
{{ end }}
{{- with $responses := .Responses }}
### Responses
{{ range $code := keys $responses | sortAlpha }}
- ` + "`{{ $code }}`" + `{{ with responseDescription (index $responses $code) }} {{ . }}{{ end }}
{{- end }}
{{ end }}
{{- end }}`

var markdownTmpl = template.Must(template.New("markdown").
	Funcs(sprig.TxtFuncMap()).
	Funcs(template.FuncMap{
		"anchor":              anchor,
		"json":                prettyJSON,
		"responseDescription": responseDescription,
	}).
	Parse(markdownTemplate))

// Markdown renders a reference page for schema.
func Markdown(w io.Writer, schema *types.ApiSchema) error {
	if schema == nil {
		return fmt.Errorf("schema is nil")
	}
	if err := markdownTmpl.Execute(w, schema); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

func anchor(ep types.ApiEndpoint) string {
	out := make([]rune, 0, len(ep.Method)+len(ep.Path)+1)
	for _, r := range ep.Method + " " + ep.Path {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ' || r == '/':
			out = append(out, '-')
		}
	}
	return string(out)
}

func prettyJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func responseDescription(v any) string {
	if m, ok := v.(map[string]any); ok {
		if d, ok := m["description"].(string); ok {
			return d
		}
	}
	return ""
}
