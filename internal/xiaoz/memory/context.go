package memory

import (
	"context"
	"log/slog"

	"github.com/mzwei/xiaoz/internal/xiaoz/llm"
)

const (
	// DefaultRoundThreshold is the number of rounds above which older history
	// is compressed into a summary.
	DefaultRoundThreshold = 5
	// DefaultRecentRounds is the number of rounds always kept verbatim.
	DefaultRecentRounds = 2

	// summaryPrefix marks the synthetic system message carrying the summary.
	summaryPrefix = "对话摘要："
	// replyLengthConstraint is appended to every assembled context to bound
	// the model's reply length.
	replyLengthConstraint = "回复消息字数小于250字"
)

// Summariser compresses a conversation slice into a short text. A failed or
// empty summarisation is a degraded-but-acceptable outcome for the builder,
// never a user-visible error.
type Summariser interface {
	Summarise(ctx context.Context, messages []llm.Message) (string, error)
}

// ContextBuilder assembles the bounded message sequence sent to the LLM on
// each turn. It is stateless: it never mutates the conversation store, and
// the caller appends the eventual reply back into the store separately.
//
// The two-tier scheme — a verbatim recent window plus a compressed tail —
// bounds the token cost of long conversations while keeping recent turns at
// full fidelity.
type ContextBuilder struct {
	Summariser Summariser
	// RoundThreshold is the summarisation trigger in rounds. <= 0 selects
	// DefaultRoundThreshold.
	RoundThreshold int
	// RecentRounds is the verbatim window size in rounds. <= 0 selects
	// DefaultRecentRounds.
	RecentRounds int
}

// Build assembles the context for one turn from the thread snapshot:
//
//  1. Non-system messages beyond the threshold are summarised (all but the
//     last RecentRounds*2), and a non-empty summary is injected as a system
//     message right after the system prompt.
//  2. The most recent RecentRounds*2 non-system messages follow verbatim.
//  3. A fixed reply-length constraint closes the sequence.
//
// The first element is always the supplied system prompt. Stored system
// messages other than the prompt are not forwarded; they shape the store's
// persistent record, not the per-turn context.
func (b *ContextBuilder) Build(ctx context.Context, snapshot []llm.Message, systemPrompt string) []llm.Message {
	threshold := b.RoundThreshold
	if threshold <= 0 {
		threshold = DefaultRoundThreshold
	}
	recent := b.RecentRounds
	if recent <= 0 {
		recent = DefaultRecentRounds
	}

	nonSystem := make([]llm.Message, 0, len(snapshot))
	for _, m := range snapshot {
		if m.Role != llm.RoleSystem {
			nonSystem = append(nonSystem, m)
		}
	}

	// The verbatim window may be configured wider than the threshold; there
	// is nothing older to compress then, so summarisation is skipped rather
	// than slicing past the front.
	var summaryMessage *llm.Message
	if cut := len(nonSystem) - recent*2; len(nonSystem) > threshold*2 && cut > 0 {
		if summary := b.summarise(ctx, nonSystem[:cut]); summary != "" {
			summaryMessage = &llm.Message{
				Role:    llm.RoleSystem,
				Content: summaryPrefix + summary,
			}
		}
	}

	recentMessages := nonSystem
	if len(nonSystem) > recent*2 {
		recentMessages = nonSystem[len(nonSystem)-recent*2:]
	}

	out := make([]llm.Message, 0, len(recentMessages)+3)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	if summaryMessage != nil {
		out = append(out, *summaryMessage)
	}
	out = append(out, recentMessages...)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: replyLengthConstraint})
	return out
}

// summarise runs the summariser over the older messages. Any failure is
// logged and swallowed — dialogue must not block on the secondary feature.
func (b *ContextBuilder) summarise(ctx context.Context, older []llm.Message) string {
	if b.Summariser == nil {
		return ""
	}
	summary, err := b.Summariser.Summarise(ctx, older)
	if err != nil {
		slog.Error("memory: summarisation failed, continuing without summary",
			"err", err, "older_messages", len(older))
		return ""
	}
	if summary == "" {
		slog.Info("memory: summarisation produced no text", "older_messages", len(older))
	}
	return summary
}
