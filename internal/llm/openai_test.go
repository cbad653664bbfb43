package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// capturedRequest is the part of a chat completions body the tests inspect.
type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content"`
		ToolCallID string          `json:"tool_call_id"`
		ToolCalls  []struct {
			ID       string `json:"id"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"messages"`
	Tools []struct {
		Type     string `json:"type"`
		Function struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"function"`
	} `json:"tools"`
}

func newOpenAIServer(t *testing.T, status int, body string, captured chan<- capturedRequest, auth chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var req capturedRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		if captured != nil {
			captured <- req
		}
		if auth != nil {
			auth <- r.Header.Get("Authorization")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClientComplete(t *testing.T) {
	t.Parallel()

	t.Run("sends system, text and image parts and returns content", func(t *testing.T) {
		t.Parallel()

		captured := make(chan capturedRequest, 1)
		auth := make(chan string, 1)
		srv := newOpenAIServer(t, http.StatusOK,
			`{"choices":[{"message":{"content":"**Common Name**: Red Flour Beetle"}}],"usage":{"prompt_tokens":900,"completion_tokens":80}}`,
			captured, auth)

		client := NewOpenAIClient("sk-test", srv.URL+"/", srv.Client())
		resp, err := client.Complete(t.Context(), &Request{
			Model:  "gpt-4o",
			System: "You are an entomologist.",
			Messages: []Message{
				UserMessage("Identify this insect and assess its traits.", Image{MIMEType: "image/jpeg", Data: []byte{0xFF, 0xD8, 0xFF}}),
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Text != "**Common Name**: Red Flour Beetle" {
			t.Errorf("unexpected text %q", resp.Text)
		}
		if resp.Usage.PromptTokens != 900 || resp.Usage.CompletionTokens != 80 {
			t.Errorf("unexpected usage %+v", resp.Usage)
		}

		if got := <-auth; got != "Bearer sk-test" {
			t.Errorf("unexpected Authorization header %q", got)
		}

		req := <-captured
		if req.Model != "gpt-4o" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("unexpected messages %+v", req.Messages)
		}
		var parts []openAIContentPart
		if err := json.Unmarshal(req.Messages[1].Content, &parts); err != nil {
			t.Fatalf("user content is not a part list: %v", err)
		}
		if len(parts) != 2 || parts[0].Type != "text" || parts[1].Type != "image_url" {
			t.Fatalf("unexpected parts %+v", parts)
		}
		if parts[1].ImageURL.URL != "data:image/jpeg;base64,/9j/" {
			t.Errorf("unexpected data URI %q", parts[1].ImageURL.URL)
		}
		if len(req.Tools) != 0 {
			t.Errorf("expected no tools, got %d", len(req.Tools))
		}
	})

	t.Run("sends tools and parses tool calls", func(t *testing.T) {
		t.Parallel()

		captured := make(chan capturedRequest, 1)
		srv := newOpenAIServer(t, http.StatusOK,
			`{"choices":[{"message":{"content":null,"tool_calls":[{"id":"call_1","type":"function","function":{"name":"search_google","arguments":"{\"query\":\"red flour beetle natural control India\"}"}}]},"finish_reason":"tool_calls"}]}`,
			captured, nil)

		client := NewOpenAIClient("sk-test", srv.URL, srv.Client())
		resp, err := client.Complete(t.Context(), &Request{
			Model:    "gpt-4o",
			Messages: []Message{UserMessage("Insect identified in: Pune")},
			Tools: []ToolDefinition{{
				Name:        "search_google",
				Description: "Search Google.",
				Parameters:  []ToolParameter{{Name: "query", Type: "string", Required: true}},
			}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Text != "" {
			t.Errorf("expected empty text, got %q", resp.Text)
		}
		if len(resp.ToolCalls) != 1 {
			t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
		}
		call := resp.ToolCalls[0]
		if call.ID != "call_1" || call.Name != "search_google" {
			t.Errorf("unexpected call %+v", call)
		}
		var args struct{ Query string }
		if err := json.Unmarshal(call.Arguments, &args); err != nil || args.Query != "red flour beetle natural control India" {
			t.Errorf("unexpected arguments %s (%v)", call.Arguments, err)
		}

		req := <-captured
		if len(req.Tools) != 1 || req.Tools[0].Type != "function" || req.Tools[0].Function.Name != "search_google" {
			t.Fatalf("unexpected tools %+v", req.Tools)
		}
		required, _ := req.Tools[0].Function.Parameters["required"].([]any)
		if len(required) != 1 || required[0] != "query" {
			t.Errorf("expected query to be required, got %v", req.Tools[0].Function.Parameters["required"])
		}
	})

	t.Run("encodes tool turns", func(t *testing.T) {
		t.Parallel()

		captured := make(chan capturedRequest, 1)
		srv := newOpenAIServer(t, http.StatusOK, `{"choices":[{"message":{"content":"- [a](https://a.test)"}}]}`, captured, nil)

		call := ToolCall{ID: "call_9", Name: "search_google", Arguments: json.RawMessage(`{"query":"q"}`)}
		client := NewOpenAIClient("sk-test", srv.URL, srv.Client())
		_, err := client.Complete(t.Context(), &Request{
			Model: "gpt-4o",
			Messages: []Message{
				UserMessage("find links"),
				{Role: RoleAssistant, ToolCalls: []ToolCall{call}},
				ToolResultMessage(call, "1. Title\n   https://a.test"),
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req := <-captured
		if len(req.Messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(req.Messages))
		}
		assistant := req.Messages[1]
		if assistant.Role != "assistant" || len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].Function.Arguments != `{"query":"q"}` {
			t.Errorf("unexpected assistant turn %+v", assistant)
		}
		tool := req.Messages[2]
		if tool.Role != "tool" || tool.ToolCallID != "call_9" {
			t.Errorf("unexpected tool turn %+v", tool)
		}
	})

	t.Run("non-200 returns APIError without retry", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
		}))
		defer srv.Close()

		client := NewOpenAIClient("sk-bad", srv.URL, srv.Client())
		_, err := client.Complete(t.Context(), &Request{Model: "gpt-4o", Messages: []Message{UserMessage("hi")}})

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "Incorrect API key provided" {
			t.Errorf("unexpected APIError %+v", apiErr)
		}
		if calls.Load() != 1 {
			t.Errorf("expected exactly one request, got %d", calls.Load())
		}
	})

	t.Run("server error body that is not JSON is kept as text", func(t *testing.T) {
		t.Parallel()

		srv := newOpenAIServer(t, http.StatusBadGateway, "upstream unavailable\n", nil, nil)
		client := NewOpenAIClient("sk-test", srv.URL, srv.Client())
		_, err := client.Complete(t.Context(), &Request{Model: "gpt-4o"})

		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "upstream unavailable" {
			t.Errorf("unexpected error %v", err)
		}
		if !strings.Contains(err.Error(), "502") {
			t.Errorf("expected status in message, got %q", err.Error())
		}
	})

	t.Run("no choices returns ErrEmptyResponse", func(t *testing.T) {
		t.Parallel()

		srv := newOpenAIServer(t, http.StatusOK, `{"choices":[]}`, nil, nil)
		client := NewOpenAIClient("sk-test", srv.URL, srv.Client())
		_, err := client.Complete(t.Context(), &Request{Model: "gpt-4o"})
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("expected ErrEmptyResponse, got %v", err)
		}
	})

	t.Run("malformed body is an error", func(t *testing.T) {
		t.Parallel()

		srv := newOpenAIServer(t, http.StatusOK, `{"choices":`, nil, nil)
		client := NewOpenAIClient("sk-test", srv.URL, srv.Client())
		if _, err := client.Complete(t.Context(), &Request{Model: "gpt-4o"}); err == nil {
			t.Error("expected error for malformed body")
		}
	})

	t.Run("cancelled context fails fast", func(t *testing.T) {
		t.Parallel()

		srv := newOpenAIServer(t, http.StatusOK, `{"choices":[{"message":{"content":"x"}}]}`, nil, nil)
		client := NewOpenAIClient("sk-test", srv.URL, srv.Client())

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := client.Complete(ctx, &Request{Model: "gpt-4o"}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()
		if _, err := New(t.Context(), Options{Provider: ProviderOpenAI, APIKey: " "}); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("expected ErrMissingAPIKey, got %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		if _, err := New(t.Context(), Options{Provider: "llama", APIKey: "k"}); !errors.Is(err, ErrUnknownProvider) {
			t.Errorf("expected ErrUnknownProvider, got %v", err)
		}
	})

	t.Run("openai is the default", func(t *testing.T) {
		t.Parallel()
		c, err := New(t.Context(), Options{APIKey: "k", BaseURL: "https://example.test/v1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := c.(*OpenAIClient); !ok {
			t.Errorf("expected *OpenAIClient, got %T", c)
		}
	})
}
