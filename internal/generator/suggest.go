package generator

import (
	"fmt"
	"strings"

	"github.com/yourorg/docpilot/pkg/types"
)

const maxSuggestions = 10

// SuggestQueries phrases example requests from each endpoint's method and
// resource name. At most ten, without duplicates, in endpoint order.
func SuggestQueries(schema *types.ApiSchema) []string {
	out := []string{}
	if schema == nil {
		return out
	}
	seen := make(map[string]bool)
	add := func(s string) {
		if len(out) < maxSuggestions && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, ep := range schema.Endpoints {
		if len(out) >= maxSuggestions {
			break
		}
		for _, s := range phrasings(ep) {
			add(s)
		}
	}
	return out
}

func phrasings(ep types.ApiEndpoint) []string {
	resource, item := resourceOf(ep.Path)
	switch strings.ToUpper(ep.Method) {
	case types.MethodGet:
		if item {
			return []string{fmt.Sprintf("Get %s details", resource), fmt.Sprintf("Find %s by ID", resource)}
		}
		return []string{fmt.Sprintf("Get all %s", resource), fmt.Sprintf("List %s", resource)}
	case types.MethodPost:
		return []string{fmt.Sprintf("Create new %s", resource), fmt.Sprintf("Add %s", resource)}
	case types.MethodPut:
		return []string{fmt.Sprintf("Update %s", resource), fmt.Sprintf("Modify %s", resource)}
	case types.MethodPatch:
		return []string{fmt.Sprintf("Patch %s", resource)}
	case types.MethodDelete:
		return []string{fmt.Sprintf("Delete %s", resource), fmt.Sprintf("Remove %s", resource)}
	}
	return nil
}

// resourceOf returns the last non-parameter segment of path (default "data")
// and whether the path addresses a single item, i.e. ends in a parameter.
func resourceOf(path string) (string, bool) {
	var raw []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			raw = append(raw, seg)
		}
	}
	resource := "data"
	for i := len(raw) - 1; i >= 0; i-- {
		if !isParamSegment(raw[i]) {
			resource = raw[i]
			break
		}
	}
	item := len(raw) > 0 && isParamSegment(raw[len(raw)-1])
	return resource, item
}
