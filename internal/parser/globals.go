package parser

import (
	"bytes"
	"encoding/json"
)

// Globals exposes the JavaScript state of a loaded page. Values are returned
// as JSON so that object key order survives.
type Globals interface {
	// LiveSpec returns the spec held by a running Swagger UI instance.
	LiveSpec() (json.RawMessage, bool)
	// Global returns the named window property.
	Global(name string) (json.RawMessage, bool)
}

// specURLSource is implemented by globals that can report the spec URL a
// Swagger UI instance was configured with.
type specURLSource interface {
	SpecURL() (string, bool)
}

// NoGlobals is used when nothing about the page's scripts is known.
type NoGlobals struct{}

func (NoGlobals) LiveSpec() (json.RawMessage, bool)     { return nil, false }
func (NoGlobals) Global(string) (json.RawMessage, bool) { return nil, false }

// StaticGlobals is a snapshot of page globals captured in the browser by the
// extension's content script and sent along with the page HTML.
type StaticGlobals struct {
	Live json.RawMessage            `json:"liveSpec,omitempty"`
	Vars map[string]json.RawMessage `json:"globals,omitempty"`
}

func (s StaticGlobals) LiveSpec() (json.RawMessage, bool) {
	if isEmptyJSON(s.Live) {
		return nil, false
	}
	return s.Live, true
}

func (s StaticGlobals) Global(name string) (json.RawMessage, bool) {
	v, ok := s.Vars[name]
	if !ok || isEmptyJSON(v) {
		return nil, false
	}
	return v, true
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
