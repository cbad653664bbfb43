package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient implements Client with the Gemini API.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini client. A nil httpClient lets genai use its default.
func NewGeminiClient(ctx context.Context, apiKey string, httpClient *http.Client) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Complete sends one GenerateContent request. It never retries.
func (c *GeminiClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	contents, err := toGeminiContents(req.Messages)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, toGeminiConfig(req))
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{Provider: "gemini", StatusCode: apiErr.Code, Message: apiErr.Message}
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			return nil, &APIError{Provider: "gemini", StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return fromGeminiResponse(resp)
}

func toGeminiConfig(req *Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGeminiSchema(t.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return cfg
}

func toGeminiSchema(params []ToolParameter) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(params)),
	}
	for _, p := range params {
		schema.Properties[p.Name] = &genai.Schema{
			Type:        geminiType(p.Type),
			Description: p.Description,
		}
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

func geminiType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func toGeminiContents(messages []Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			parts := make([]*genai.Part, 0, len(m.ToolCalls)+1)
			if m.Text != "" {
				parts = append(parts, genai.NewPartFromText(m.Text))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &args); err != nil {
						return nil, fmt.Errorf("invalid arguments for tool call %s: %w", tc.Name, err)
					}
				}
				part := genai.NewPartFromFunctionCall(tc.Name, args)
				part.FunctionCall.ID = tc.ID
				parts = append(parts, part)
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			part := genai.NewPartFromFunctionResponse(m.ToolName, map[string]any{"output": m.Text})
			part.FunctionResponse.ID = m.ToolCallID
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			parts := make([]*genai.Part, 0, len(m.Images)+1)
			for _, img := range m.Images {
				parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
			}
			if m.Text != "" {
				parts = append(parts, genai.NewPartFromText(m.Text))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}
	return contents, nil
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	out := &Response{}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	var text strings.Builder
	for i, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to encode tool arguments: %w", err)
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", i)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: part.FunctionCall.Name, Arguments: args})
			continue
		}
		if part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}
	out.Text = text.String()
	return out, nil
}
