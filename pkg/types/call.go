package types

import "time"

// GeneratedApiCall is an executable request description.
// Body is serialized as null when absent; it is always nil for GET and DELETE.
type GeneratedApiCall struct {
	Endpoint    string            `json:"endpoint"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"queryParams,omitempty"`
	Body        any               `json:"body"`
	Description string            `json:"description"`
}

// CallSource records which generation path produced a call.
type CallSource string

const (
	SourceRemote CallSource = "remote"
	SourceLocal  CallSource = "local"
)

// QueryRecord is one entry of the query history.
type QueryRecord struct {
	ID        string           `json:"id"`
	SchemaID  string           `json:"schemaId"`
	Text      string           `json:"text"`
	Call      GeneratedApiCall `json:"call"`
	Source    CallSource       `json:"source"`
	Valid     bool             `json:"valid"`
	CreatedAt time.Time        `json:"createdAt"`
}
