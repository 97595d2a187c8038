package memory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mzwei/xiaoz/internal/xiaoz/llm"
)

// dumpThread is the on-disk shape of one thread in the inspection dump.
type dumpThread struct {
	ID             string        `json:"id"`
	SystemMessages []llm.Message `json:"system_messages"`
	Turns          []llm.Message `json:"turns"`
}

// Dump writes the full conversation history to path as indented JSON, keyed
// by thread key. The file is overwritten in place on every call; it exists
// for operator inspection only and is never read back into the store.
func (s *Store) Dump(path string) error {
	s.mu.Lock()
	out := make(map[string]dumpThread, len(s.threads))
	for key, th := range s.threads {
		out[key] = dumpThread{
			ID:             th.id,
			SystemMessages: append([]llm.Message(nil), th.systemMessages...),
			Turns:          append([]llm.Message(nil), th.turns...),
		}
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: encode dump: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("memory: write dump: %w", err)
	}
	return nil
}
