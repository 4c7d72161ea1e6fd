// Package tools provides the web search tool and the collaborators it is
// built from.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/resilience"
)

// Completer turns a prompt into a text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Searcher returns result snippets for a query, best first.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// SearchTool answers a query from web search snippets. With a Completer the
// snippets are summarized; without one they are returned joined by newlines.
// Transient search failures are retried according to Retry.
type SearchTool struct {
	Searcher  Searcher
	Completer Completer
	Retry     resilience.RetryConfig
}

// NoResults is returned by Run when the search yields no snippets.
const NoResults = "No good search result found"

// Name identifies the tool to callers that dispatch by name.
func (t *SearchTool) Name() string { return "search" }

// Description tells callers when to use the tool.
func (t *SearchTool) Description() string {
	return "Searches the web for current information about products and answers with a short summary."
}

// Run searches for query and returns the answer text.
func (t *SearchTool) Run(ctx context.Context, query string) (string, error) {
	log := zap.L().With(zap.String("component", "tools.search"), zap.String("query", query))

	query = strings.TrimSpace(query)
	if query == "" {
		return "", eris.New("tools: empty query")
	}
	if t.Searcher == nil {
		return "", eris.New("tools: no searcher configured")
	}

	retry := t.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("serp", "search")
	}
	snippets, err := resilience.Do(ctx, retry, func(ctx context.Context) ([]string, error) {
		return t.Searcher.Search(ctx, query)
	})
	if err != nil {
		return "", eris.Wrap(err, "tools: search")
	}
	log.Debug("search results", zap.Int("snippets", len(snippets)))
	if len(snippets) == 0 {
		return NoResults, nil
	}

	joined := strings.Join(snippets, "\n")
	if t.Completer == nil {
		return joined, nil
	}

	summary, err := t.Completer.Complete(ctx, SummaryPrompt(query, snippets))
	if err != nil {
		return "", eris.Wrap(err, "tools: summarize")
	}
	return strings.TrimSpace(summary), nil
}

// SummaryPrompt builds the prompt asking for a summary of snippets that
// answers query.
func SummaryPrompt(query string, snippets []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Answer the question %q using only the search results below.\n", query)
	b.WriteString("Reply in at most three sentences. Say so if the results do not answer it.\n\n")
	for i, s := range snippets {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, s)
	}
	return b.String()
}
