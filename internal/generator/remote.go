package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yourorg/docpilot/pkg/types"
)

// ErrRemoteUnavailable reports that no remote call produced a usable result.
var ErrRemoteUnavailable = errors.New("remote generation unavailable")

// Remote turns a query into a call using some external completion service.
type Remote interface {
	Complete(ctx context.Context, query string, schema *types.ApiSchema) (*types.GeneratedApiCall, error)
}

// CompletionRequest is the body POSTed to a completion service.
type CompletionRequest struct {
	Query  string           `json:"query"`
	Schema *types.ApiSchema `json:"schema"`
}

// CompletionResponse is the envelope a completion service answers with.
type CompletionResponse struct {
	Success bool                    `json:"success"`
	Data    *types.GeneratedApiCall `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// ServiceRemote calls an HTTP completion service speaking the
// {query, schema} -> {success, data, error} contract.
type ServiceRemote struct {
	URL        string
	HTTPClient *http.Client
}

func (s *ServiceRemote) Complete(ctx context.Context, query string, schema *types.ApiSchema) (*types.GeneratedApiCall, error) {
	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	body, err := json.Marshal(CompletionRequest{Query: query, Schema: schema})
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("completion service status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("completion service: %s", msg)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, errors.New("completion service returned no data")
	}
	return decodeCall(envelope.Data)
}

// LLMRemote prompts a chat model directly.
type LLMRemote struct {
	Chat Chatter
}

func (l *LLMRemote) Complete(ctx context.Context, query string, schema *types.ApiSchema) (*types.GeneratedApiCall, error) {
	text, err := l.Chat.Chat(ctx, BuildSystemPrompt(schema), BuildUserPrompt(query))
	if err != nil {
		return nil, err
	}
	return ParseModelOutput(text, query)
}
