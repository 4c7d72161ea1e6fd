// Package serp provides a SerpAPI web search client.
package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://serpapi.com"

// Client performs web searches.
type Client interface {
	// Search returns the snippets of the organic results for query, in rank
	// order. Results without a snippet are skipped.
	Search(ctx context.Context, query string) ([]string, error)
}

// Params are passed to the API unmodified. Empty fields are omitted.
type Params struct {
	Num          int
	Engine       string
	GoogleDomain string
	HL           string
	GL           string
	Device       string
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{
		Num:          15,
		Engine:       "google",
		GoogleDomain: "google.com",
		HL:           "en",
		GL:           "us",
		Device:       "desktop",
	}
}

// SearchResponse is the subset of the search.json response the client reads.
type SearchResponse struct {
	Error          string          `json:"error,omitempty"`
	OrganicResults []OrganicResult `json:"organic_results"`
}

// OrganicResult is one ranked web result.
type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

// StatusError reports a non-200 response without an API error message.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("serp: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithParams overrides the default search parameters.
func WithParams(p Params) Option {
	return func(c *httpClient) {
		c.params = p
	}
}

// WithRateLimit caps requests per second. A non-positive rate disables the
// limit.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	params  Params
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a SerpAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		params:  DefaultParams(),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) query(q string) url.Values {
	v := url.Values{}
	v.Set("api_key", c.apiKey)
	v.Set("q", q)
	if c.params.Num > 0 {
		v.Set("num", strconv.Itoa(c.params.Num))
	}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("engine", c.params.Engine)
	set("google_domain", c.params.GoogleDomain)
	set("hl", c.params.HL)
	set("gl", c.params.GL)
	set("device", c.params.Device)
	return v
}

func (c *httpClient) Search(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return nil, eris.New("serp: empty query")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "serp: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+c.query(query).Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serp: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serp: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serp: read response")
	}

	var result SearchResponse
	jsonErr := json.Unmarshal(body, &result)
	if jsonErr == nil && result.Error != "" {
		return nil, eris.Errorf("serp: api error: %s", result.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if jsonErr != nil {
		return nil, eris.Wrap(jsonErr, "serp: unmarshal response")
	}

	snippets := make([]string, 0, len(result.OrganicResults))
	for _, r := range result.OrganicResults {
		if r.Snippet != "" {
			snippets = append(snippets, r.Snippet)
		}
	}
	return snippets, nil
}
