package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/corpus-cli/internal/config"
	"github.com/sells-group/corpus-cli/internal/resilience"
	"github.com/sells-group/corpus-cli/internal/tools"
	"github.com/sells-group/corpus-cli/pkg/anthropic"
	"github.com/sells-group/corpus-cli/pkg/serp"
)

const summarySystemPrompt = "You summarize web search results about consumer products. Be factual and brief."

var (
	_ tools.Searcher  = (serp.Client)(nil)
	_ tools.Completer = (*anthropic.Completer)(nil)
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the web and summarize the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("search"); err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetBool("raw")

		tool := newSearchTool(cfg, !raw)
		answer, err := tool.Run(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

// newSearchTool wires the SerpAPI client and, when summarize is set and an
// Anthropic key is configured, the completion model.
func newSearchTool(c *config.Config, summarize bool) *tools.SearchTool {
	opts := []serp.Option{
		serp.WithParams(serp.Params{
			Num:          c.Serp.ResultCount,
			Engine:       c.Serp.Engine,
			GoogleDomain: c.Serp.GoogleDomain,
			HL:           c.Serp.HL,
			GL:           c.Serp.GL,
			Device:       c.Serp.Device,
		}),
		serp.WithRateLimit(c.Serp.RatePerSec),
	}
	if c.Serp.BaseURL != "" {
		opts = append(opts, serp.WithBaseURL(c.Serp.BaseURL))
	}

	tool := &tools.SearchTool{
		Searcher: serp.NewClient(c.Serp.Key, opts...),
		Retry:    resilience.DefaultRetryConfig(),
	}
	if summarize && c.Anthropic.Key != "" {
		client := anthropic.NewClient(c.Anthropic.Key)
		tool.Completer = anthropic.NewCompleter(client, c.Anthropic.Model, c.Anthropic.MaxTokens, summarySystemPrompt)
	}
	return tool
}

func init() {
	searchCmd.Flags().Bool("raw", false, "print the result snippets without summarizing")
	rootCmd.AddCommand(searchCmd)
}
