// Package summarize invokes the language-model collaborator that turns a
// window of chat messages into a summary.
package summarize

import (
	"context"

	"github.com/chatlens/chatlens/internal/store"
)

// Usage reports provider token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Summarizer produces a summary of messages guided by a prompt. A transport
// or provider error is returned as-is; the caller treats it as a run failure.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string, msgs []store.Message) (string, Usage, error)
}
