package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultEndpoint is the SerpAPI JSON search endpoint.
	DefaultEndpoint = "https://serpapi.com/search.json"

	// DefaultNumResults matches the ten links the research stage returns.
	DefaultNumResults = 10

	maxErrorBody = 4096
)

// Result is one organic search result.
type Result struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Domain   string `json:"domain,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

// Results is the answer to one query.
type Results struct {
	Query            string   `json:"query"`
	Organic          []Result `json:"search_results"`
	RelatedQuestions []string `json:"related_questions,omitempty"`
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string) (*Results, error)
}

// Client queries Google through SerpAPI.
type Client struct {
	apiKey     string
	endpoint   string
	numResults int
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the SerpAPI endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithNumResults sets how many results are requested.
func WithNumResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.numResults = n
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a SerpAPI client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		numResults: DefaultNumResults,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
	RelatedQuestions []struct {
		Question string `json:"question"`
	} `json:"related_questions"`
}

// Search runs one Google query. It never retries.
func (c *Client) Search(ctx context.Context, query string) (*Results, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("num", strconv.Itoa(c.numResults))
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error carries the request URL, which includes the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort error body
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	var decoded serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	// SerpAPI reports "no results" as an error string with status 200.
	if decoded.Error != "" && !isNoResults(decoded.Error) {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: decoded.Error}
	}

	out := &Results{Query: query, Organic: make([]Result, 0, len(decoded.OrganicResults))}
	for _, r := range decoded.OrganicResults {
		if r.Link == "" {
			continue
		}
		out.Organic = append(out.Organic, Result{
			Position: r.Position,
			Title:    r.Title,
			Link:     r.Link,
			Domain:   registrableDomain(r.Link),
			Snippet:  r.Snippet,
		})
		if len(out.Organic) == c.numResults {
			break
		}
	}
	for _, q := range decoded.RelatedQuestions {
		if q.Question != "" {
			out.RelatedQuestions = append(out.RelatedQuestions, q.Question)
		}
	}
	return out, nil
}

func isNoResults(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "hasn't returned any results")
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}

// registrableDomain returns the eTLD+1 of a result link, e.g.
// "extension.umn.edu" becomes "umn.edu". Empty when the link has no host.
func registrableDomain(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		return u.Hostname()
	}
	return domain
}
