package reminder

import (
	"context"
	"log/slog"
	"time"
)

// DefaultDeliveryInterval is how often the delivery loop scans for due
// reminders.
const DefaultDeliveryInterval = 10 * time.Second

// Sender delivers a text message to a named chat or user. Satisfied by the
// wechat bridge client.
type Sender interface {
	SendMessage(ctx context.Context, who, text string) error
}

// clock abstracts the tick source so tests can drive the loop without
// sleeping. Due-time comparison lives in the store, which has its own
// injected time source.
type clock interface {
	After(d time.Duration) <-chan time.Time
}

// realClock delegates to the standard library.
type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler is the background delivery loop: on a fixed interval it drains
// due reminders from the store and sends each one to its owner. Delivery is
// best-effort — a send failure is logged and the reminder is not re-queued.
type Scheduler struct {
	store    *Store
	sender   Sender
	interval time.Duration
	clk      clock
}

// NewScheduler creates a delivery loop over store and sender.
// interval <= 0 selects DefaultDeliveryInterval.
func NewScheduler(store *Store, sender Sender, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultDeliveryInterval
	}
	return &Scheduler{
		store:    store,
		sender:   sender,
		interval: interval,
		clk:      realClock{},
	}
}

// Run drives the loop until ctx is cancelled. It never returns an error for
// a failed delivery; only cancellation stops it.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("reminder: delivery loop started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("reminder: delivery loop stopped")
			return
		case <-s.clk.After(s.interval):
			s.tick(ctx)
		}
	}
}

// tick drains and delivers everything currently due.
func (s *Scheduler) tick(ctx context.Context) {
	for _, r := range s.store.CollectDue() {
		if err := s.sender.SendMessage(ctx, r.Owner, "Reminder: "+r.Content); err != nil {
			slog.Error("reminder: delivery failed", "err", err, "owner", r.Owner, "content", r.Content)
			continue
		}
		slog.Info("reminder: delivered", "owner", r.Owner, "content", r.Content, "due_at", r.DueAt)
	}
}
