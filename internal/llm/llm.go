package llm

import (
	"context"
	"encoding/json"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Image is an inline image attachment.
type Image struct {
	MIMEType string
	Data     []byte
}

// Message is one conversation turn.
type Message struct {
	Role Role
	Text string

	// Images are attached to user messages.
	Images []Image

	// ToolCalls are set on assistant messages that request tool execution.
	ToolCalls []ToolCall

	// ToolCallID and ToolName identify the call a RoleTool message answers.
	ToolCallID string
	ToolName   string
}

// UserMessage builds a user turn with optional images.
func UserMessage(text string, images ...Image) Message {
	return Message{Role: RoleUser, Text: text, Images: images}
}

// ToolResultMessage builds the answer to a tool call.
func ToolResultMessage(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Text: content, ToolCallID: call.ID, ToolName: call.Name}
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolParameter is one string or number argument of a tool.
type ToolParameter struct {
	Name        string
	Type        string // "string", "integer", "number" or "boolean"
	Description string
	Required    bool
}

// ToolDefinition describes a function the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  []ToolParameter
}

// jsonSchema renders the parameters as a JSON Schema object.
func (d ToolDefinition) jsonSchema() map[string]any {
	props := make(map[string]any, len(d.Parameters))
	required := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		props[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Request is a single model invocation.
type Request struct {
	Model    string
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Add accumulates u2 into u.
func (u *Usage) Add(u2 Usage) {
	u.PromptTokens += u2.PromptTokens
	u.CompletionTokens += u2.CompletionTokens
}

// Response is the model's reply.
type Response struct {
	// Text is the assistant's text content, possibly empty when ToolCalls is set.
	Text string

	// ToolCalls requested by the model.
	ToolCalls []ToolCall

	Usage Usage
}

// Message returns the response as an assistant turn for follow-up requests.
func (r *Response) Message() Message {
	return Message{Role: RoleAssistant, Text: r.Text, ToolCalls: r.ToolCalls}
}

// Client sends requests to a language model.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}
