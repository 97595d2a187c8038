package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mzwei/xiaoz/internal/xiaoz/llm"
)

func TestThreadKey(t *testing.T) {
	tests := []struct {
		name   string
		chat   string
		sender string
		mode   Isolation
		want   string
	}{
		{"sender isolation", "群聊", "小明", IsolateSender, "群聊:小明"},
		{"chat isolation", "群聊", "小明", IsolateChat, "群聊"},
		{"unknown mode falls back to sender", "群聊", "小明", Isolation("bogus"), "群聊:小明"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ThreadKey(tt.chat, tt.sender, tt.mode); got != tt.want {
				t.Errorf("ThreadKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStore_TrimsTurnsToWindow(t *testing.T) {
	s := NewStore(2) // window of 4 turn messages
	key := "chat:user"

	for i := 0; i < 10; i++ {
		s.Append(key, llm.RoleUser, fmt.Sprintf("q%d", i))
		s.Append(key, llm.RoleAssistant, fmt.Sprintf("a%d", i))
	}

	snap := s.Snapshot(key)
	if len(snap) != 4 {
		t.Fatalf("snapshot has %d messages, want 4", len(snap))
	}
	// Oldest-first eviction: the window holds the last two rounds.
	want := []string{"q8", "a8", "q9", "a9"}
	for i, m := range snap {
		if m.Content != want[i] {
			t.Errorf("snapshot[%d] = %q, want %q", i, m.Content, want[i])
		}
	}
}

func TestStore_SystemMessagesPersist(t *testing.T) {
	s := NewStore(1) // aggressive trimming: 2 turn messages
	key := "k"

	s.Append(key, llm.RoleSystem, "persona")
	s.Append(key, llm.RoleSystem, "rules")
	for i := 0; i < 20; i++ {
		s.Append(key, llm.RoleUser, fmt.Sprintf("q%d", i))
		s.Append(key, llm.RoleAssistant, fmt.Sprintf("a%d", i))
	}

	snap := s.Snapshot(key)
	if len(snap) != 4 {
		t.Fatalf("snapshot has %d messages, want 4 (2 system + 2 turns)", len(snap))
	}
	if snap[0].Content != "persona" || snap[1].Content != "rules" {
		t.Errorf("system messages reordered or lost: %+v", snap[:2])
	}
	if snap[0].Role != llm.RoleSystem || snap[1].Role != llm.RoleSystem {
		t.Errorf("leading messages are not system role")
	}
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore(5)
	s.Append("k", llm.RoleUser, "hello")

	snap := s.Snapshot("k")
	snap[0].Content = "mutated"

	if got := s.Snapshot("k")[0].Content; got != "hello" {
		t.Errorf("store content changed through snapshot: %q", got)
	}
}

func TestStore_UnknownKey(t *testing.T) {
	s := NewStore(5)
	if snap := s.Snapshot("nope"); snap != nil {
		t.Errorf("Snapshot(unknown) = %v, want nil", snap)
	}
}

func TestStore_Dump(t *testing.T) {
	s := NewStore(5)
	s.Append("k", llm.RoleSystem, "persona")
	s.Append("k", llm.RoleUser, "你好")
	s.Append("k", llm.RoleAssistant, "你好！")

	path := filepath.Join(t.TempDir(), "dump.json")
	if err := s.Dump(path); err != nil {
		t.Fatalf("Dump() error: %v", err)
	}

	// Dump again after another turn: full overwrite, still valid JSON.
	s.Append("k", llm.RoleUser, "再见")
	if err := s.Dump(path); err != nil {
		t.Fatalf("second Dump() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	var decoded map[string]struct {
		ID             string        `json:"id"`
		SystemMessages []llm.Message `json:"system_messages"`
		Turns          []llm.Message `json:"turns"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("dump is not valid JSON: %v", err)
	}
	th, ok := decoded["k"]
	if !ok {
		t.Fatalf("dump missing thread key, got %v", decoded)
	}
	if len(th.SystemMessages) != 1 || len(th.Turns) != 3 {
		t.Errorf("dump thread has %d system / %d turns, want 1 / 3",
			len(th.SystemMessages), len(th.Turns))
	}
}
