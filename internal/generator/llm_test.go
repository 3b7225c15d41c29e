package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func chatServer(t *testing.T, hits *int32, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestChatReturnsContent(t *testing.T) {
	var hit int32
	srv := chatServer(t, &hit, "hello")
	defer srv.Close()

	client := &Client{BaseURL: srv.URL + "/", APIKey: "sk-test", Model: "gpt-4o"}
	got, err := client.Chat(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
	if atomic.LoadInt32(&hit) != 1 {
		t.Fatalf("expected 1 request, got %d", hit)
	}
}

func TestChatDoesNotRetry(t *testing.T) {
	var hit int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hit, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, Model: "gpt-4o"}
	_, err := client.Chat(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected status error, got %v", err)
	}
	if atomic.LoadInt32(&hit) != 1 {
		t.Fatalf("expected a single request, got %d", hit)
	}
}

func TestStripMarkdownCodeBlock(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```":                     "",
	}
	for in, want := range cases {
		if got := stripMarkdownCodeBlock(in); got != want {
			t.Fatalf("strip(%q)=%q want %q", in, got, want)
		}
	}
}
