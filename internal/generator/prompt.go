package generator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/MakeNowJust/heredoc"

	"github.com/yourorg/docpilot/pkg/types"
)

var callInstructions = heredoc.Doc(`
	Instructions:
	1. Analyze the user's natural language query
	2. Match it to the most appropriate endpoint from the schema
	3. Extract relevant parameters from the query
	4. Generate a valid API call in the specified JSON format
	5. Include only necessary parameters and do not make up values
	6. For missing required parameters, use placeholder values like "example_value"

	Response Format (JSON only):
	{
	  "endpoint": "full URL endpoint",
	  "method": "GET|POST|PUT|PATCH|DELETE",
	  "headers": { "Content-Type": "application/json", "Accept": "application/json" },
	  "queryParams": { "param1": "value1" },
	  "body": { "field1": "value1" },
	  "description": "Brief description of what this call does"
	}
	queryParams is optional. body is only for POST, PUT and PATCH; use null otherwise.

	Examples:
	Query: "Get all users" -> {"endpoint": "https://api.example.com/users", "method": "GET", ...}
	Query: "Create a new user with name John" -> {"endpoint": "https://api.example.com/users", "method": "POST", "body": {"name": "John"}, ...}

	IMPORTANT: Respond with ONLY the JSON object. No additional text, explanations, or markdown formatting.
`)

// BuildSystemPrompt describes the schema and the expected answer shape.
func BuildSystemPrompt(schema *types.ApiSchema) string {
	var b strings.Builder
	b.WriteString("You are an expert API query generator. Convert natural language queries into structured API calls.\n\n")
	b.WriteString("API Schema Information:\n")
	fmt.Fprintf(&b, "- Base URL: %s\n", orDefault(schema.BaseURL, "Not specified"))
	fmt.Fprintf(&b, "- Title: %s\n", orDefault(schema.Title, "API Documentation"))
	fmt.Fprintf(&b, "- Version: %s\n\n", orDefault(schema.Version, "Not specified"))
	b.WriteString("Available Endpoints:\n")
	for i, ep := range schema.Endpoints {
		fmt.Fprintf(&b, "\n%d. %s %s\n", i+1, ep.Method, ep.Path)
		fmt.Fprintf(&b, "   Description: %s\n", orDefault(ep.Description, "No description"))
		fmt.Fprintf(&b, "   Parameters: %s\n", describeParameters(ep.Parameters))
		fmt.Fprintf(&b, "   Responses: %s\n", describeResponses(ep.Responses))
	}
	b.WriteString("\n")
	b.WriteString(callInstructions)
	return b.String()
}

// BuildUserPrompt carries the literal query text.
func BuildUserPrompt(query string) string {
	return fmt.Sprintf("User query: %q", query)
}

func describeParameters(params []types.Parameter) string {
	if len(params) == 0 {
		return "None"
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		s := fmt.Sprintf("%s (%s): %s", p.Name, p.In, orDefault(p.Description, "No description"))
		if p.Required {
			s += " [required]"
		}
		parts = append(parts, s)
	}
	data, err := json.Marshal(parts)
	if err != nil {
		return strings.Join(parts, "; ")
	}
	return string(data)
}

func describeResponses(responses map[string]any) string {
	if len(responses) == 0 {
		return "None"
	}
	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return strings.Join(codes, ", ")
}

const explainSystemPrompt = "You explain HTTP API endpoints to developers. Be concise and concrete."

// BuildExplainPrompt asks for a short explanation of one endpoint.
func BuildExplainPrompt(ep types.ApiEndpoint) string {
	var b strings.Builder
	b.WriteString("Explain this API endpoint in simple terms for a developer:\n\n")
	fmt.Fprintf(&b, "Endpoint: %s %s\n", ep.Method, ep.Path)
	fmt.Fprintf(&b, "Description: %s\n", orDefault(ep.Description, "No description"))
	writeJSONSection(&b, "Parameters", ep.Parameters, len(ep.Parameters) > 0)
	writeJSONSection(&b, "Request Body", ep.RequestBody, ep.RequestBody != nil)
	writeJSONSection(&b, "Responses", ep.Responses, len(ep.Responses) > 0)
	b.WriteString(heredoc.Doc(`

		Provide a clear explanation of:
		1. What this endpoint does
		2. When to use it
		3. What parameters are required
		4. What to expect in the response

		Keep it concise and developer-friendly.
	`))
	return b.String()
}

func writeJSONSection(b *strings.Builder, label string, v any, present bool) {
	if !present {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, data)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
