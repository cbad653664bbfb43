package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nao1215/pestadvisor/internal/llm"
)

// ToolName is the function name the research model calls.
const ToolName = "search_google"

// NoResults is the tool output for a query with no organic results.
const NoResults = "No results found."

// Tool-level refusals. These are sent back to the model, not returned as errors.
const (
	msgAlreadySearched = "search already performed: only one query is allowed, answer with the results you have"
	msgBadArguments    = "invalid arguments: expected {\"query\": \"...\"}"
	msgUnknownTool     = "unknown tool"
	msgSearchFailed    = "search failed: "
)

// Tool adapts a Searcher to the model's tool calling interface and allows
// exactly one search. A Tool is scoped to a single research stage.
type Tool struct {
	searcher Searcher

	mu      sync.Mutex
	queries []string
	results *Results
	refused int
	failure error
}

// NewTool returns a one-shot search tool.
func NewTool(searcher Searcher) *Tool {
	return &Tool{searcher: searcher}
}

// Definition describes search_google to the model.
func (t *Tool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        ToolName,
		Description: "Search Google for the given query and return the top organic results as JSON (title, link, domain, snippet).",
		Parameters: []llm.ToolParameter{{
			Name:        "query",
			Type:        "string",
			Description: "The single, focused search query.",
			Required:    true,
		}},
	}
}

// Execute implements llm.ToolExecutor. A failed search is reported to the
// model as a tool error so the stage can still answer; only cancellation of
// ctx is returned as an error.
func (t *Tool) Execute(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error) {
	if call.Name != ToolName {
		return llm.ToolResult{Content: fmt.Sprintf("%s %q", msgUnknownTool, call.Name), IsError: true}, nil
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(call.Arguments, &args); err != nil || strings.TrimSpace(args.Query) == "" {
		return llm.ToolResult{Content: msgBadArguments, IsError: true}, nil
	}

	t.mu.Lock()
	if len(t.queries) > 0 {
		t.refused++
		t.mu.Unlock()
		return llm.ToolResult{Content: msgAlreadySearched, IsError: true}, nil
	}
	query := strings.TrimSpace(args.Query)
	t.queries = append(t.queries, query)
	t.mu.Unlock()

	results, err := t.searcher.Search(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return llm.ToolResult{}, ctxErr
		}
		t.mu.Lock()
		t.failure = err
		t.mu.Unlock()
		return llm.ToolResult{Content: msgSearchFailed + err.Error(), IsError: true}, nil
	}

	t.mu.Lock()
	t.results = results
	t.mu.Unlock()

	content, err := Format(results)
	if err != nil {
		return llm.ToolResult{}, err
	}
	return llm.ToolResult{Content: content}, nil
}

// Queries returns the queries that were sent to the search engine.
func (t *Tool) Queries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.queries...)
}

// Results returns the results of the executed search, or nil.
func (t *Tool) Results() *Results {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.results
}

// Failure returns the error of the executed search, or nil.
func (t *Tool) Failure() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failure
}

// Refused returns how many extra search calls were rejected.
func (t *Tool) Refused() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refused
}

// Format renders results as the tool output text.
func Format(r *Results) (string, error) {
	if r == nil || len(r.Organic) == 0 {
		return NoResults, nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode search results: %w", err)
	}
	return string(data), nil
}
