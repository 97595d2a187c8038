package app

import (
	"context"
	"log/slog"

	"github.com/mzwei/xiaoz/internal/xiaoz/llm"
	"github.com/mzwei/xiaoz/internal/xiaoz/memory"
)

// apologyReply is sent when the LLM call fails. Dialogue degrades rather
// than surfacing the error to the chat.
const apologyReply = "Sorry, I encountered an error processing your request."

// dialogue runs one ordinary conversation turn: record the user message,
// assemble the bounded context, call the model, and record the (possibly
// truncated) reply.
func (a *App) dialogue(ctx context.Context, chat, sender, query string) string {
	key := memory.ThreadKey(chat, sender, a.isolation)

	slog.Info("app: dialogue turn", "chat", chat, "sender", sender, "chars", len(query))
	a.conversations.Append(key, llm.RoleUser, query)

	msgs := a.builder.Build(ctx, a.conversations.Snapshot(key), a.cfg.Bot.SystemPrompt)

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model:       a.cfg.LLM.Model,
		Messages:    msgs,
		Temperature: *a.cfg.LLM.Temperature,
		MaxTokens:   a.cfg.LLM.MaxTokens,
	})
	if err != nil {
		slog.Error("app: llm call failed", "err", err, "chat", chat, "sender", sender)
		return apologyReply
	}

	reply := truncateReply(resp.Content, a.cfg.LLM.MaxReplyChars)
	a.conversations.Append(key, llm.RoleAssistant, reply)

	a.dumpConversations()
	return reply
}

// truncateReply hard-cuts a reply to at most max characters, appending an
// ellipsis when anything was dropped. Counts runes so CJK text is never cut
// mid-character.
func truncateReply(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// dumpConversations overwrites the inspection dump after each turn. Failures
// are logged only; the dump is not part of the dialogue contract.
func (a *App) dumpConversations() {
	if a.cfg.Conversation.DumpPath == "" {
		return
	}
	if err := a.conversations.Dump(a.cfg.Conversation.DumpPath); err != nil {
		slog.Error("app: conversation dump failed", "err", err, "path", a.cfg.Conversation.DumpPath)
	}
}
