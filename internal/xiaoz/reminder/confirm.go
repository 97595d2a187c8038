package reminder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Keyword triggers the suggest-then-confirm flow when it appears anywhere in
// a free-text message.
const Keyword = "提醒"

// suggestTimeLayout is how suggested times are echoed to the user.
const suggestTimeLayout = "2006-01-02 15:04"

// pendingSuggestion is the per-user state of an unconfirmed reminder.
type pendingSuggestion struct {
	reminderText  string
	suggestedTime time.Time
}

// Confirmer implements the suggest-then-confirm reminder flow: a detected
// reminder keyword seeds a suggested time via the Resolver, and the user's
// next message either corrects the time, confirms it, or asks for a new one.
// Exactly one suggestion is pending per user; a new request overwrites it.
type Confirmer struct {
	mu       sync.Mutex
	resolver *Resolver
	store    *Store
	now      func() time.Time
	pending  map[string]*pendingSuggestion
}

// NewConfirmer creates a Confirmer committing confirmed reminders into store.
// now supplies the current time; nil means time.Now.
func NewConfirmer(resolver *Resolver, store *Store, now func() time.Time) *Confirmer {
	if now == nil {
		now = time.Now
	}
	return &Confirmer{
		resolver: resolver,
		store:    store,
		now:      now,
		pending:  make(map[string]*pendingSuggestion),
	}
}

// HasPending reports whether the user has an unconfirmed suggestion, meaning
// their next message belongs to this flow.
func (c *Confirmer) HasPending(user string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[user]
	return ok
}

// Seed starts the flow from a message containing the reminder keyword: the
// text after the keyword becomes the reminder subject (the whole message when
// nothing follows), the resolver suggests a time, and the returned prompt
// asks the user to confirm.
func (c *Confirmer) Seed(user, text string) string {
	subject := text
	if idx := strings.Index(text, Keyword); idx >= 0 {
		if rest := strings.TrimSpace(text[idx+len(Keyword):]); rest != "" {
			subject = rest
		}
	}

	suggested := c.resolver.ResolveDefault(text, c.now())

	c.mu.Lock()
	c.pending[user] = &pendingSuggestion{reminderText: subject, suggestedTime: suggested}
	c.mu.Unlock()

	return confirmPrompt(suggested, subject)
}

// HandleReply interprets the user's next message while a suggestion is
// pending. Interpretation order: a parseable time correction updates the
// suggestion and re-prompts; "yes" commits; "no" asks for a replacement
// time; anything else asks for clarification.
func (c *Confirmer) HandleReply(ctx context.Context, user, text string) string {
	c.mu.Lock()
	pending, ok := c.pending[user]
	c.mu.Unlock()
	if !ok {
		return ""
	}

	corrected, err := c.resolver.ResolveCorrection(text, pending.suggestedTime, c.now())
	if err == nil {
		c.mu.Lock()
		pending.suggestedTime = corrected
		c.mu.Unlock()
		return confirmPrompt(corrected, pending.reminderText)
	}
	// errors.Is(err, ErrNoCorrection): fall through to yes/no interpretation.

	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes":
		scheduled := pending.suggestedTime
		display := scheduled.Format(suggestTimeLayout)
		if _, err := c.store.AddDirect(ctx, user, pending.reminderText, scheduled, display); err != nil {
			// The suggested time slipped into the past while the user
			// deliberated. Ask for a fresh one instead of committing.
			return "好的，请告诉我您希望的提醒时间（例如：15:30）"
		}
		c.mu.Lock()
		delete(c.pending, user)
		c.mu.Unlock()
		return fmt.Sprintf("好的，我会在 %s 中国时间提醒你%s.", display, pending.reminderText)
	case "no":
		return "好的，请告诉我您希望的提醒时间（例如：15:30）"
	default:
		return "请确认提醒时间或提供新的时间，例如：15:30"
	}
}

// confirmPrompt renders the yes/no confirmation question.
func confirmPrompt(t time.Time, subject string) string {
	return fmt.Sprintf("你希望我在%s中国时间提醒你%s吗？ (yes/no)", t.Format(suggestTimeLayout), subject)
}
