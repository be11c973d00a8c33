// Package llm defines the completion interface shared by the loopback HTTP
// client and the optional in-process runtime.
package llm

import (
	"context"
	"strings"

	"inferd/pkg/types"
)

// Options carries sampling parameters for one completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Completer produces one plain-text completion for a chat message sequence.
type Completer interface {
	Complete(ctx context.Context, messages []types.ChatMessage, opts Options) (string, error)
	Close() error
}

// EmbeddedAvailable reports whether this binary carries the in-process runtime.
func EmbeddedAvailable() bool { return llamaBuilt }

// FlattenMessages renders a chat sequence as a plain prompt for runtimes
// that only accept raw text. The final assistant turn is left open.
func FlattenMessages(messages []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("assistant: ")
	return b.String()
}
