// Package app wires the assistant together and runs the message intake loop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mzwei/xiaoz/internal/xiaoz/commands"
	"github.com/mzwei/xiaoz/internal/xiaoz/config"
	"github.com/mzwei/xiaoz/internal/xiaoz/llm"
	"github.com/mzwei/xiaoz/internal/xiaoz/memory"
	"github.com/mzwei/xiaoz/internal/xiaoz/reminder"
	"github.com/mzwei/xiaoz/internal/xiaoz/wechat"
)

// Messenger is the messaging collaborator: the WeChat automation bridge.
type Messenger interface {
	PollNewMessages(ctx context.Context) (map[string][]wechat.InboundMessage, error)
	SendMessage(ctx context.Context, who, text string) error
}

// Options carries the collaborators the App is built from. Store and
// Confirmer are created internally; everything injected here can be faked in
// tests.
type Options struct {
	Config    *config.Config
	Messenger Messenger
	Provider  llm.Provider
	// Persistence is the optional write-through mirror for reminders.
	Persistence reminder.Persistence
	// Now supplies the current time; nil means time.Now. Injected for tests.
	Now func() time.Time
}

// App is the dialogue orchestrator. It owns the conversation store and the
// reminder store exclusively; other components see them only through App's
// routing.
type App struct {
	cfg       *config.Config
	messenger Messenger
	provider  llm.Provider
	now       func() time.Time

	mention   string
	isolation memory.Isolation

	conversations *memory.Store
	builder       *memory.ContextBuilder
	reminders     *reminder.Store
	confirmer     *reminder.Confirmer
	scheduler     *reminder.Scheduler
	parser        *commands.Parser
}

// New assembles the application from its collaborators.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	if opts.Messenger == nil {
		return nil, fmt.Errorf("app: messenger is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("app: llm provider is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	loc := cfg.Location()
	resolver := &reminder.Resolver{Location: loc}

	reminders := reminder.NewStore(reminder.StoreConfig{
		HandshakeTimeout: cfg.Reminder.HandshakeTimeout.Std(),
		Now:              now,
		Persistence:      opts.Persistence,
	})

	conversations := memory.NewStore(cfg.Conversation.MaxRounds)
	builder := &memory.ContextBuilder{
		Summariser:     &memory.LLMSummariser{Provider: opts.Provider, Model: cfg.LLM.Model},
		RoundThreshold: cfg.Conversation.RoundThreshold,
		RecentRounds:   cfg.Conversation.RecentRounds,
	}

	return &App{
		cfg:           cfg,
		messenger:     opts.Messenger,
		provider:      opts.Provider,
		now:           now,
		mention:       cfg.Mention(),
		isolation:     memory.Isolation(cfg.Conversation.Isolation),
		conversations: conversations,
		builder:       builder,
		reminders:     reminders,
		confirmer:     reminder.NewConfirmer(resolver, reminders, now),
		scheduler:     reminder.NewScheduler(reminders, opts.Messenger, cfg.Reminder.DeliveryInterval.Std()),
		parser:        &commands.Parser{Mention: cfg.Mention(), Location: loc},
	}, nil
}

// RestoreReminders preloads persisted reminders into the live store. Called
// once before Run.
func (a *App) RestoreReminders(reminders []reminder.Reminder) {
	a.reminders.Restore(reminders)
	if len(reminders) > 0 {
		slog.Info("app: restored persisted reminders", "count", len(reminders))
	}
}

// Run starts the reminder delivery loop and then drives the intake loop
// until ctx is cancelled. Intake polls the bridge on a fixed interval and
// processes messages in bridge order: chat by chat, message by message.
func (a *App) Run(ctx context.Context) error {
	go a.scheduler.Run(ctx)

	slog.Info("app: intake loop started",
		"poll_interval", a.cfg.Bridge.PollInterval.Std(),
		"reminder_mode", a.cfg.Reminder.Mode,
	)

	ticker := time.NewTicker(a.cfg.Bridge.PollInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("app: intake loop stopped")
			return nil
		case <-ticker.C:
			a.pollOnce(ctx)
		}
	}
}

// pollOnce drains one batch of new messages. A poll failure is logged and
// retried on the next tick.
func (a *App) pollOnce(ctx context.Context) {
	batch, err := a.messenger.PollNewMessages(ctx)
	if err != nil {
		slog.Error("app: polling failed", "err", err)
		return
	}
	// Map iteration makes the cross-chat order arbitrary per cycle, which is
	// acceptable: ordering matters within a chat and the bridge delivers each
	// chat's messages as an ordered slice. Stable ordering across chats would
	// need a sequenced poll response from the bridge.
	for chat, msgs := range batch {
		for _, msg := range msgs {
			a.handleMessage(ctx, chat, msg.Sender, msg.Text)
		}
	}
}

// handleMessage routes one inbound message. Only messages that mention the
// assistant are processed; the mention prefix is stripped before routing.
func (a *App) handleMessage(ctx context.Context, chat, sender, text string) {
	query, ok := stripMention(text, a.mention)
	if !ok {
		return
	}

	chat = wechat.CleanSender(chat)
	sender = wechat.CleanSender(sender)

	var reply string
	switch a.cfg.Reminder.Mode {
	case config.ModeSuggest:
		reply = a.routeSuggest(ctx, chat, sender, query)
	default:
		reply = a.routeStructured(ctx, chat, sender, query)
	}

	if reply != "" {
		a.send(ctx, chat, reply)
	}
}

// routeSuggest handles the suggest-then-confirm deployment: in-flight
// confirmation state first, then keyword-triggered seeding, then dialogue.
func (a *App) routeSuggest(ctx context.Context, chat, sender, query string) string {
	if a.confirmer.HasPending(sender) {
		return a.confirmer.HandleReply(ctx, sender, query)
	}
	if strings.Contains(query, reminder.Keyword) {
		return a.confirmer.Seed(sender, query)
	}
	return a.dialogue(ctx, chat, sender, query)
}

// routeStructured handles the handshake-then-command deployment.
func (a *App) routeStructured(ctx context.Context, chat, sender, query string) string {
	// Handshakes expire opportunistically on every inbound message.
	a.reminders.SweepExpired()

	cmd, err := a.parser.Parse(query)
	if err != nil {
		if usage, ok := err.(*commands.UsageError); ok {
			return usage.Guidance
		}
		// commands.ErrNotACommand: ordinary dialogue.
		return a.dialogue(ctx, chat, sender, query)
	}
	return a.execute(ctx, sender, cmd)
}

// send delivers a reply to the chat, logging (not escalating) failures.
func (a *App) send(ctx context.Context, chat, text string) {
	if err := a.messenger.SendMessage(ctx, chat, text); err != nil {
		slog.Error("app: send failed", "err", err, "chat", chat)
	}
}

// stripMention reports whether text is directed at the assistant and returns
// the text with the mention prefix removed.
func stripMention(text, mention string) (string, bool) {
	if !strings.HasPrefix(text, mention) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(text, mention)), true
}
