// Package memory implements per-conversation message history and the
// context-window assembly used on every dialogue turn. History keeps system
// messages intact forever and rolls user/assistant turns through a bounded
// window; the context builder compresses everything older than the recent
// window into an LLM-produced summary.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mzwei/xiaoz/internal/xiaoz/llm"
)

// DefaultMaxRounds is the default retention window for a thread, in rounds
// (one round = one user message plus one assistant reply).
const DefaultMaxRounds = 15

// Isolation selects how thread keys are derived from a message's origin.
type Isolation string

const (
	// IsolateChat keeps one shared thread per chat group.
	IsolateChat Isolation = "chat"
	// IsolateSender keeps one thread per (chat, sender) pair.
	IsolateSender Isolation = "sender"
)

// ThreadKey derives the conversation key for a message according to the
// isolation mode. Unknown modes fall back to per-sender isolation.
func ThreadKey(chat, sender string, mode Isolation) string {
	if mode == IsolateChat {
		return chat
	}
	return chat + ":" + sender
}

// thread holds one conversation's history. System messages are append-only
// and never trimmed; turns roll through a bounded window.
type thread struct {
	id             string
	systemMessages []llm.Message
	turns          []llm.Message
}

// Store keeps conversation history per thread key. Threads are created lazily
// on first append and live for the process lifetime. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	maxTurns int
	threads  map[string]*thread
}

// NewStore creates a Store retaining at most maxRounds rounds of non-system
// history per thread. maxRounds <= 0 selects DefaultMaxRounds.
func NewStore(maxRounds int) *Store {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Store{
		maxTurns: maxRounds * 2,
		threads:  make(map[string]*thread),
	}
}

// Append records a message on the thread. System messages accumulate without
// bound; other roles are appended to the rolling turn window, which is
// trimmed to the most recent maxRounds*2 entries, oldest first.
func (s *Store) Append(key string, role llm.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	th := s.threads[key]
	if th == nil {
		th = &thread{id: uuid.New().String()}
		s.threads[key] = th
	}

	msg := llm.Message{Role: role, Content: content}
	if role == llm.RoleSystem {
		th.systemMessages = append(th.systemMessages, msg)
		return
	}

	th.turns = append(th.turns, msg)
	if len(th.turns) > s.maxTurns {
		excess := len(th.turns) - s.maxTurns
		th.turns = th.turns[excess:]
	}
}

// Snapshot returns a copy of the thread's history: system messages first,
// then the rolling turns in order. Returns nil for an unknown key.
// Mutating the returned slice does not affect the store.
func (s *Store) Snapshot(key string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	th := s.threads[key]
	if th == nil {
		return nil
	}

	out := make([]llm.Message, 0, len(th.systemMessages)+len(th.turns))
	out = append(out, th.systemMessages...)
	out = append(out, th.turns...)
	return out
}
