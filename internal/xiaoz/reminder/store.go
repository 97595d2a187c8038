package reminder

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHandshakeTimeout is how long a begun handshake stays valid.
const DefaultHandshakeTimeout = 120 * time.Second

// Expected rejection outcomes. These are normal user-input cases; callers
// translate them into fixed guidance messages rather than logging them as
// failures.
var (
	// ErrNoHandshake means a structured add arrived without a prior
	// unexpired handshake for that user.
	ErrNoHandshake = errors.New("no active handshake")
	// ErrPastDue means the requested reminder time is not strictly future.
	ErrPastDue = errors.New("reminder time is not in the future")
	// ErrNotFound means no stored reminder matched the given keyword.
	ErrNotFound = errors.New("no matching reminder")
)

// Reminder is one scheduled reminder. DisplayText preserves the user-entered
// time string for echo-back; DueAt is the parsed timestamp used for
// comparison.
type Reminder struct {
	ID          string
	Owner       string
	Content     string
	DueAt       time.Time
	DisplayText string
	CreatedAt   time.Time
}

// Persistence mirrors reminder mutations into durable storage. The in-memory
// store remains the source of truth; persistence failures are logged and
// never fail the user-facing operation.
type Persistence interface {
	SaveReminder(ctx context.Context, r Reminder) error
	UpdateReminder(ctx context.Context, r Reminder) error
	DeleteReminder(ctx context.Context, id string) error
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// HandshakeTimeout bounds how long a begun handshake stays usable.
	// <= 0 selects DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration
	// Now supplies the current time; nil means time.Now. Injected for tests.
	Now func() time.Time
	// Persistence, when non-nil, receives a write-through copy of every
	// mutation.
	Persistence Persistence
}

// Store holds per-user reminders and the short-lived handshake state for the
// structured add flow. One mutex covers both maps so that check-then-act
// sequences (consume handshake, then insert) stay atomic against the
// delivery loop and the expiry sweep.
type Store struct {
	mu        sync.Mutex
	timeout   time.Duration
	now       func() time.Time
	persist   Persistence
	pending   map[string]time.Time   // user -> handshake start
	reminders map[string][]*Reminder // user -> reminders in insertion order
}

// NewStore creates a Store.
func NewStore(cfg StoreConfig) *Store {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		timeout:   cfg.HandshakeTimeout,
		now:       cfg.Now,
		persist:   cfg.Persistence,
		pending:   make(map[string]time.Time),
		reminders: make(map[string][]*Reminder),
	}
}

// BeginHandshake records that user is about to send a structured reminder.
// A new handshake overwrites any prior one for the same user.
func (s *Store) BeginHandshake(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[user] = s.now()
}

// SweepExpired drops handshakes older than the timeout. The orchestrator
// calls it on every incoming message before evaluating the message; there is
// no dedicated timer.
func (s *Store) SweepExpired() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for user, started := range s.pending {
		if now.Sub(started) > s.timeout {
			delete(s.pending, user)
		}
	}
}

// AddReminder stores a reminder for user. It requires an unexpired handshake,
// which is consumed whether or not the rest of the input validates — the
// handshake is one-shot. Rejects a dueAt that is not strictly future.
func (s *Store) AddReminder(ctx context.Context, user, content string, dueAt time.Time, displayText string) (*Reminder, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	started, ok := s.pending[user]
	if !ok || now.Sub(started) > s.timeout {
		delete(s.pending, user)
		return nil, ErrNoHandshake
	}
	delete(s.pending, user)

	if !dueAt.After(now) {
		return nil, ErrPastDue
	}

	r := &Reminder{
		ID:          uuid.New().String(),
		Owner:       user,
		Content:     content,
		DueAt:       dueAt,
		DisplayText: displayText,
		CreatedAt:   now,
	}
	s.reminders[user] = append(s.reminders[user], r)
	s.persistSave(ctx, *r)
	return r, nil
}

// AddDirect stores a reminder without requiring a handshake. Used by the
// suggest-then-confirm flow, where the confirmation dialogue replaces the
// handshake. Still rejects non-future times.
func (s *Store) AddDirect(ctx context.Context, user, content string, dueAt time.Time, displayText string) (*Reminder, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !dueAt.After(now) {
		return nil, ErrPastDue
	}

	r := &Reminder{
		ID:          uuid.New().String(),
		Owner:       user,
		Content:     content,
		DueAt:       dueAt,
		DisplayText: displayText,
		CreatedAt:   now,
	}
	s.reminders[user] = append(s.reminders[user], r)
	s.persistSave(ctx, *r)
	return r, nil
}

// ListReminders returns the user's reminders in insertion order, as copies.
func (s *Store) ListReminders(user string) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.reminders[user]
	out := make([]Reminder, 0, len(list))
	for _, r := range list {
		out = append(out, *r)
	}
	return out
}

// DeleteReminder removes the first reminder (in storage order) whose content
// contains keyword as a substring. Returns the removed reminder, or
// ErrNotFound when nothing matches.
func (s *Store) DeleteReminder(ctx context.Context, user, keyword string) (*Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.reminders[user]
	for i, r := range list {
		if strings.Contains(r.Content, keyword) {
			removed := *r
			s.reminders[user] = append(list[:i:i], list[i+1:]...)
			s.persistDelete(ctx, removed.ID)
			return &removed, nil
		}
	}
	return nil, ErrNotFound
}

// ModifyReminder replaces content, due time and display text of the first
// reminder containing keyword. Rejects a newDueAt that is not strictly
// future; returns the previous state on success.
func (s *Store) ModifyReminder(ctx context.Context, user, keyword, newContent string, newDueAt time.Time, newDisplayText string) (*Reminder, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !newDueAt.After(now) {
		return nil, ErrPastDue
	}

	for _, r := range s.reminders[user] {
		if strings.Contains(r.Content, keyword) {
			old := *r
			r.Content = newContent
			r.DueAt = newDueAt
			r.DisplayText = newDisplayText
			s.persistUpdate(ctx, *r)
			return &old, nil
		}
	}
	return nil, ErrNotFound
}

// CollectDue removes and returns every reminder whose due time has passed.
// Removal happens under the store mutex; the caller performs the actual
// delivery afterwards, so a slow send never blocks other mutations.
func (s *Store) CollectDue() []Reminder {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Reminder
	for user, list := range s.reminders {
		kept := list[:0]
		for _, r := range list {
			if !r.DueAt.After(now) {
				due = append(due, *r)
				s.persistDelete(context.Background(), r.ID)
			} else {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			delete(s.reminders, user)
		} else {
			s.reminders[user] = kept
		}
	}
	return due
}

// Restore loads reminders into the store without echoing them back to
// persistence. Called once at startup with the persisted set.
func (s *Store) Restore(reminders []Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reminders {
		cp := r
		s.reminders[r.Owner] = append(s.reminders[r.Owner], &cp)
	}
}

func (s *Store) persistSave(ctx context.Context, r Reminder) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveReminder(ctx, r); err != nil {
		slog.Error("reminder: persist save failed", "err", err, "id", r.ID, "owner", r.Owner)
	}
}

func (s *Store) persistUpdate(ctx context.Context, r Reminder) {
	if s.persist == nil {
		return
	}
	if err := s.persist.UpdateReminder(ctx, r); err != nil {
		slog.Error("reminder: persist update failed", "err", err, "id", r.ID, "owner", r.Owner)
	}
}

func (s *Store) persistDelete(ctx context.Context, id string) {
	if s.persist == nil {
		return
	}
	if err := s.persist.DeleteReminder(ctx, id); err != nil {
		slog.Error("reminder: persist delete failed", "err", err, "id", id)
	}
}
