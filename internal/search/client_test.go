package search

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newSerpServer(t *testing.T, status int, body string, queries chan<- url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if queries != nil {
			queries <- r.URL.Query()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const serpBody = `{
  "search_metadata": {"status": "Success"},
  "organic_results": [
    {"position": 1, "title": "Red Flour Beetle | UMN Extension", "link": "https://extension.umn.edu/beetles/red-flour-beetle", "snippet": "Stored product pest."},
    {"position": 2, "title": "No link entry"},
    {"position": 3, "title": "Stored grain pests", "link": "https://www.agri.example.co.in/pests", "snippet": "Neem and heat treatment."}
  ],
  "related_questions": [{"question": "How do I get rid of flour beetles naturally?"}]
}`

func TestClientSearch(t *testing.T) {
	t.Parallel()

	t.Run("builds the SerpAPI query and parses organic results", func(t *testing.T) {
		t.Parallel()

		queries := make(chan url.Values, 1)
		srv := newSerpServer(t, http.StatusOK, serpBody, queries)

		c, err := NewClient("serp-key", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()), WithNumResults(5))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := c.Search(t.Context(), "  natural control red flour beetle India ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		q := <-queries
		for key, want := range map[string]string{
			"engine":  "google",
			"q":       "natural control red flour beetle India",
			"num":     "5",
			"api_key": "serp-key",
		} {
			if q.Get(key) != want {
				t.Errorf("query param %s = %q, want %q", key, q.Get(key), want)
			}
		}

		want := &Results{
			Query: "natural control red flour beetle India",
			Organic: []Result{
				{Position: 1, Title: "Red Flour Beetle | UMN Extension", Link: "https://extension.umn.edu/beetles/red-flour-beetle", Domain: "umn.edu", Snippet: "Stored product pest."},
				{Position: 3, Title: "Stored grain pests", Link: "https://www.agri.example.co.in/pests", Domain: "example.co.in", Snippet: "Neem and heat treatment."},
			},
			RelatedQuestions: []string{"How do I get rid of flour beetles naturally?"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Search() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("num limits the returned results", func(t *testing.T) {
		t.Parallel()

		srv := newSerpServer(t, http.StatusOK, serpBody, nil)
		c, _ := NewClient("k", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()), WithNumResults(1))
		got, err := c.Search(t.Context(), "beetle")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.Organic) != 1 {
			t.Errorf("expected 1 result, got %d", len(got.Organic))
		}
	})

	t.Run("no results is not an error", func(t *testing.T) {
		t.Parallel()

		srv := newSerpServer(t, http.StatusOK, `{"error":"Google hasn't returned any results for this query."}`, nil)
		c, _ := NewClient("k", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
		got, err := c.Search(t.Context(), "zzzz")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.Organic) != 0 {
			t.Errorf("expected no results, got %d", len(got.Organic))
		}
	})

	t.Run("invalid key returns APIError", func(t *testing.T) {
		t.Parallel()

		srv := newSerpServer(t, http.StatusUnauthorized, `{"error":"Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key"}`, nil)
		c, _ := NewClient("bad", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
		_, err := c.Search(t.Context(), "beetle")

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("unexpected status %d", apiErr.StatusCode)
		}
	})

	t.Run("error field with 200 returns APIError", func(t *testing.T) {
		t.Parallel()

		srv := newSerpServer(t, http.StatusOK, `{"error":"Your account has run out of searches."}`, nil)
		c, _ := NewClient("k", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
		_, err := c.Search(t.Context(), "beetle")

		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "Your account has run out of searches." {
			t.Errorf("expected APIError, got %v", err)
		}
	})

	t.Run("transport error does not expose the key", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		endpoint := srv.URL
		srv.Close()

		c, _ := NewClient("serp-secret-key", WithEndpoint(endpoint))
		_, err := c.Search(t.Context(), "beetle")
		if err == nil {
			t.Fatal("expected an error from a closed server")
		}
		if strings.Contains(err.Error(), "serp-secret-key") {
			t.Errorf("error leaks the API key: %v", err)
		}
	})

	t.Run("blank query is rejected without a request", func(t *testing.T) {
		t.Parallel()

		c, _ := NewClient("k", WithEndpoint("http://127.0.0.1:1"))
		if _, err := c.Search(t.Context(), "   "); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("expected ErrEmptyQuery, got %v", err)
		}
	})
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(""); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestRegistrableDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		link string
		want string
	}{
		{"https://extension.umn.edu/a", "umn.edu"},
		{"https://www.bbc.co.uk/news", "bbc.co.uk"},
		{"http://localhost:8080/x", "localhost"},
		{"not a url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			t.Parallel()
			if got := registrableDomain(tt.link); got != tt.want {
				t.Errorf("registrableDomain(%q) = %q, want %q", tt.link, got, tt.want)
			}
		})
	}
}
