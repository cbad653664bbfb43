package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// scriptedClient returns canned responses in order and records requests.
type scriptedClient struct {
	responses []*Response
	errs      []error
	requests  []*Request
}

func (c *scriptedClient) Complete(_ context.Context, req *Request) (*Response, error) {
	cp := *req
	cp.Messages = append([]Message(nil), req.Messages...)
	c.requests = append(c.requests, &cp)

	i := len(c.requests) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i >= len(c.responses) {
		return nil, errors.New("no scripted response")
	}
	return c.responses[i], nil
}

type executorFunc func(ctx context.Context, call ToolCall) (ToolResult, error)

func (f executorFunc) Execute(ctx context.Context, call ToolCall) (ToolResult, error) {
	return f(ctx, call)
}

func searchCall(id, query string) ToolCall {
	args, _ := json.Marshal(map[string]string{"query": query})
	return ToolCall{ID: id, Name: "search_google", Arguments: args}
}

func TestRunTools(t *testing.T) {
	t.Parallel()

	t.Run("executes tool and returns final text", func(t *testing.T) {
		t.Parallel()

		client := &scriptedClient{responses: []*Response{
			{ToolCalls: []ToolCall{searchCall("c1", "flour beetle")}, Usage: Usage{PromptTokens: 10}},
			{Text: "- https://a.test", Usage: Usage{PromptTokens: 20, CompletionTokens: 3}},
		}}
		var executed []string
		exec := executorFunc(func(_ context.Context, call ToolCall) (ToolResult, error) {
			executed = append(executed, call.ID)
			return ToolResult{Content: "1. A\n   https://a.test"}, nil
		})

		req := &Request{Model: "gpt-4o", Messages: []Message{UserMessage("research")}}
		run, err := RunTools(t.Context(), client, req, exec, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Response.Text != "- https://a.test" || run.Rounds != 2 {
			t.Errorf("unexpected run %+v", run)
		}
		if run.Usage.PromptTokens != 30 || run.Usage.CompletionTokens != 3 {
			t.Errorf("unexpected usage %+v", run.Usage)
		}
		if len(executed) != 1 || executed[0] != "c1" {
			t.Errorf("unexpected executions %v", executed)
		}

		second := client.requests[1]
		if len(second.Messages) != 3 {
			t.Fatalf("expected user, assistant, tool messages; got %d", len(second.Messages))
		}
		if second.Messages[2].Role != RoleTool || second.Messages[2].ToolCallID != "c1" {
			t.Errorf("unexpected tool message %+v", second.Messages[2])
		}
		if len(req.Messages) != 1 {
			t.Error("caller request was modified")
		}
	})

	t.Run("tool error result is prefixed and loop continues", func(t *testing.T) {
		t.Parallel()

		client := &scriptedClient{responses: []*Response{
			{ToolCalls: []ToolCall{searchCall("c1", "x")}},
			{Text: "done"},
		}}
		exec := executorFunc(func(context.Context, ToolCall) (ToolResult, error) {
			return ToolResult{Content: "search already performed", IsError: true}, nil
		})

		if _, err := RunTools(t.Context(), client, &Request{}, exec, 4); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := client.requests[1].Messages[1].Text; !strings.HasPrefix(got, "Error: ") {
			t.Errorf("expected error prefix, got %q", got)
		}
	})

	t.Run("fatal executor error aborts", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("search API down")
		client := &scriptedClient{responses: []*Response{{ToolCalls: []ToolCall{searchCall("c1", "x")}}}}
		exec := executorFunc(func(context.Context, ToolCall) (ToolResult, error) { return ToolResult{}, boom })

		_, err := RunTools(t.Context(), client, &Request{}, exec, 4)
		if !errors.Is(err, boom) {
			t.Errorf("expected executor error, got %v", err)
		}
		if len(client.requests) != 1 {
			t.Errorf("expected no further model calls, got %d", len(client.requests))
		}
	})

	t.Run("model error aborts", func(t *testing.T) {
		t.Parallel()

		apiErr := &APIError{Provider: "openai", StatusCode: 429, Message: "quota"}
		client := &scriptedClient{errs: []error{apiErr}}
		_, err := RunTools(t.Context(), client, &Request{}, executorFunc(nil), 4)

		var got *APIError
		if !errors.As(err, &got) || got.StatusCode != 429 {
			t.Errorf("expected APIError, got %v", err)
		}
	})

	t.Run("round limit", func(t *testing.T) {
		t.Parallel()

		looping := &Response{ToolCalls: []ToolCall{searchCall("c", "x")}}
		client := &scriptedClient{responses: []*Response{looping, looping, looping}}
		exec := executorFunc(func(context.Context, ToolCall) (ToolResult, error) { return ToolResult{Content: "ok"}, nil })

		_, err := RunTools(t.Context(), client, &Request{}, exec, 2)
		if !errors.Is(err, ErrToolLoopExceeded) {
			t.Errorf("expected ErrToolLoopExceeded, got %v", err)
		}
		if len(client.requests) != 2 {
			t.Errorf("expected 2 model calls, got %d", len(client.requests))
		}
	})
}
