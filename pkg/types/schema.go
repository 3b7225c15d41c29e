package types

import "time"

// HTTP methods an ApiEndpoint may carry.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// Methods lists the supported verbs in canonical order.
var Methods = []string{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// IsMethod reports whether m is one of the supported verbs (upper case).
func IsMethod(m string) bool {
	for _, v := range Methods {
		if v == m {
			return true
		}
	}
	return false
}

// DocType names the kind of documentation a schema was extracted from.
type DocType string

const (
	DocOpenAPI DocType = "openapi"
	DocSwagger DocType = "swagger"
	DocGraphQL DocType = "graphql"
	DocREST    DocType = "rest"
)

// ApiSchema is the normalized description of one documentation source.
type ApiSchema struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	Version   string        `json:"version,omitempty"`
	BaseURL   string        `json:"baseUrl"`
	Endpoints []ApiEndpoint `json:"endpoints"`
	ParsedAt  time.Time     `json:"parsedAt"`
}

// ApiEndpoint describes one operation.
type ApiEndpoint struct {
	Path        string         `json:"path"`
	Method      string         `json:"method"`
	Description string         `json:"description"`
	Parameters  []Parameter    `json:"parameters,omitempty"`
	RequestBody any            `json:"requestBody,omitempty"`
	Responses   map[string]any `json:"responses,omitempty"`
}

// Parameter locations.
const (
	InQuery  = "query"
	InPath   = "path"
	InHeader = "header"
	InCookie = "cookie"
)

// Parameter is one declared operation parameter.
type Parameter struct {
	Name        string `json:"name"`
	In          string `json:"in"`
	Required    bool   `json:"required,omitempty"`
	Schema      any    `json:"schema,omitempty"`
	Description string `json:"description"`
}

// ParsedDocumentation pairs a schema with the kind of page it came from.
type ParsedDocumentation struct {
	Type   DocType   `json:"type"`
	Schema ApiSchema `json:"schema"`
}
