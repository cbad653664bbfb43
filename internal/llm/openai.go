package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error response is read into APIError.
const maxErrorBody = 4096

// OpenAIClient implements Client for the OpenAI chat completions API and
// compatible servers.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient creates a client. baseURL is the API root, for example
// "https://api.openai.com/v1". A nil httpClient means http.DefaultClient.
func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client) *OpenAIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// openAIRequest is the chat completions request body.
type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Tools    []openAITool    `json:"tools,omitempty"`
}

// openAIMessage content is a string or a list of parts.
type openAIMessage struct {
	Role       string           `json:"role"`
	Content    any              `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAITool struct {
	Type     string             `json:"type"`
	Function openAIToolFunction `json:"function"`
}

type openAIToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIToolCall struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Function openAIToolCallFunction `json:"function"`
}

type openAIToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   *string          `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends one chat completions request. It never retries.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(toOpenAIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort error body
		return nil, &APIError{Provider: "openai", StatusCode: resp.StatusCode, Message: openAIErrorMessage(raw)}
	}

	var decoded openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if decoded.Error != nil {
		return nil, &APIError{Provider: "openai", StatusCode: resp.StatusCode, Message: decoded.Error.Message}
	}
	if len(decoded.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	msg := decoded.Choices[0].Message
	out := &Response{
		Usage: Usage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
		},
	}
	if msg.Content != nil {
		out.Text = *msg.Content
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func toOpenAIRequest(req *Request) openAIRequest {
	out := openAIRequest{
		Model:    req.Model,
		Messages: make([]openAIMessage, 0, len(req.Messages)+1),
	}
	if req.System != "" {
		out.Messages = append(out.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, toOpenAIMessage(m))
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openAITool{
			Type: "function",
			Function: openAIToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.jsonSchema(),
			},
		})
	}
	return out
}

func toOpenAIMessage(m Message) openAIMessage {
	switch m.Role {
	case RoleTool:
		return openAIMessage{Role: "tool", Content: m.Text, ToolCallID: m.ToolCallID}
	case RoleAssistant:
		out := openAIMessage{Role: "assistant"}
		if m.Text != "" {
			out.Content = m.Text
		}
		for _, tc := range m.ToolCalls {
			args := string(tc.Arguments)
			if args == "" {
				args = "{}"
			}
			out.ToolCalls = append(out.ToolCalls, openAIToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: openAIToolCallFunction{Name: tc.Name, Arguments: args},
			})
		}
		return out
	default:
		if len(m.Images) == 0 {
			return openAIMessage{Role: "user", Content: m.Text}
		}
		parts := make([]openAIContentPart, 0, len(m.Images)+1)
		if m.Text != "" {
			parts = append(parts, openAIContentPart{Type: "text", Text: m.Text})
		}
		for _, img := range m.Images {
			parts = append(parts, openAIContentPart{
				Type:     "image_url",
				ImageURL: &openAIImageURL{URL: dataURI(img)},
			})
		}
		return openAIMessage{Role: "user", Content: parts}
	}
}

// dataURI encodes an image as a base64 data URI.
func dataURI(img Image) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// openAIErrorMessage extracts error.message from an error body, falling
// back to the raw text.
func openAIErrorMessage(raw []byte) string {
	var wrapper struct {
		Error *openAIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Error != nil && wrapper.Error.Message != "" {
		return wrapper.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
