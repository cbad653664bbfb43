package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nao1215/pestadvisor/internal/llm"
	"github.com/nao1215/pestadvisor/internal/model"
	"github.com/nao1215/pestadvisor/internal/search"
)

const (
	testIdentifierModel  = "id-model"
	testResearcherModel  = "research-model"
	testSynthesizerModel = "synth-model"

	testIdentification = "**Common Name**: Red Flour Beetle\n" +
		"**Scientific Name**: *Tribolium castaneum*\n" +
		"**Confidence**: 91%\n" +
		"**Visual Traits**:\n- reddish brown\n" +
		"**Potential Risk**: Infests stored flour."

	testResources = "- https://ext.example.edu/flour-beetles\n- https://garden.example.org/pantry-pests"

	testReport = "## 🐞 Insect Identification\n- **Common Name**: Red Flour Beetle\n\n" +
		"## 🧪 Safe Pest Control Guide\n" +
		"### 🌱 Natural Remedies\nFreeze flour ([guide](https://ext.example.edu/flour-beetles)).\n" +
		"### 🏡 Indoor/Outdoor Safety Tips\nKeep it dry.\n" +
		"### 🚫 What to Avoid\nFoggers.\n" +
		"### 🔗 Trusted Resources\n- [Extension guide](https://ext.example.edu/flour-beetles)\n"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestBundle(t *testing.T, location, context string) *model.RequestBundle {
	t.Helper()

	img, err := model.NewImage("beetle.png", pngHeader)
	if err != nil {
		t.Fatalf("NewImage() error = %v", err)
	}
	bundle, err := model.NewRequestBundle(img, location, context)
	if err != nil {
		t.Fatalf("NewRequestBundle() error = %v", err)
	}
	return bundle
}

// fakeLLM records every request and answers through respond.
type fakeLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	respond  func(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	f.requests = append(f.requests, cp)
	f.mu.Unlock()
	return f.respond(ctx, req)
}

func (f *fakeLLM) models() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.requests))
	for i, r := range f.requests {
		names[i] = r.Model
	}
	return names
}

func (f *fakeLLM) requestsFor(modelName string) []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llm.Request
	for _, r := range f.requests {
		if r.Model == modelName {
			out = append(out, r)
		}
	}
	return out
}

// searchCall asks for one search_google call.
func searchCall(id, query string) *llm.Response {
	return &llm.Response{ToolCalls: []llm.ToolCall{{
		ID:        id,
		Name:      search.ToolName,
		Arguments: []byte(`{"query":"` + query + `"}`),
	}}}
}

// lastIsToolResult reports whether the conversation ends with a tool answer.
func lastIsToolResult(req *llm.Request) bool {
	n := len(req.Messages)
	return n > 0 && req.Messages[n-1].Role == llm.RoleTool
}

// happyLLM answers each stage the way a compliant model would.
func happyLLM() *fakeLLM {
	return &fakeLLM{respond: func(_ context.Context, req *llm.Request) (*llm.Response, error) {
		switch req.Model {
		case testIdentifierModel:
			return &llm.Response{Text: testIdentification}, nil
		case testResearcherModel:
			if !lastIsToolResult(req) {
				return searchCall("call_1", "natural control red flour beetle Delhi"), nil
			}
			return &llm.Response{Text: testResources}, nil
		case testSynthesizerModel:
			return &llm.Response{Text: testReport}, nil
		}
		return nil, errors.New("unexpected model " + req.Model)
	}}
}

// fakeSearcher counts searches.
type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string) (*search.Results, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &search.Results{
		Query: query,
		Organic: []search.Result{
			{Position: 1, Title: "Flour beetles", Link: "https://ext.example.edu/flour-beetles", Domain: "example.edu"},
		},
	}, nil
}

func (f *fakeSearcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}
