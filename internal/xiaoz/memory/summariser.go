package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/mzwei/xiaoz/internal/xiaoz/llm"
)

// summariserInstruction prefixes the rendered transcript sent to the model.
const summariserInstruction = "这是我们之前的对话记录，请总结我们的对话历史（字数不要太多）：\n"

const (
	summariserTemperature = 0.5
	summariserMaxTokens   = 200
)

// LLMSummariser implements Summariser on top of a chat-completion provider.
// It renders the older messages as a role-prefixed transcript and asks the
// model for a brief summary with a tight output budget.
type LLMSummariser struct {
	Provider llm.Provider
	// Model overrides the provider's default model when non-empty.
	Model string
}

// Summarise produces a short summary of the given messages. Returns an empty
// string (and no error) for an empty input.
func (s *LLMSummariser) Summarise(ctx context.Context, messages []llm.Message) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}

	resp, err := s.Provider.Complete(ctx, llm.CompletionRequest{
		Model: s.Model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: summariserInstruction + formatTranscript(messages)},
		},
		Temperature: summariserTemperature,
		MaxTokens:   summariserMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarise history: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// formatTranscript renders messages as "role：content" lines, one per message.
func formatTranscript(messages []llm.Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s：%s", m.Role, m.Content)
	}
	return b.String()
}

// Compile-time interface satisfaction check.
var _ Summariser = (*LLMSummariser)(nil)
