package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
)

// Completer turns a single prompt into a text completion.
type Completer struct {
	client    Client
	model     string
	maxTokens int64
	system    string
}

// NewCompleter returns a Completer sending prompts to model.
func NewCompleter(client Client, model string, maxTokens int64, system string) *Completer {
	return &Completer{client: client, model: model, maxTokens: maxTokens, system: system}
}

// Complete sends prompt as one user message and returns the text of the
// reply. An empty reply is an error.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateMessage(ctx, MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    c.system,
		Messages:  []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic: complete")
	}
	resp.Usage.LogCost(c.model, "complete")

	text := resp.Text()
	if text == "" {
		return "", eris.Errorf("anthropic: empty completion (stop reason %q)", resp.StopReason)
	}
	return text, nil
}
