package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mzwei/xiaoz/internal/xiaoz/llm"
)

// fakeSummariser records its input and returns a canned result.
type fakeSummariser struct {
	summary string
	err     error
	calls   int
	gotMsgs []llm.Message
}

func (f *fakeSummariser) Summarise(_ context.Context, messages []llm.Message) (string, error) {
	f.calls++
	f.gotMsgs = messages
	return f.summary, f.err
}

// turns builds n alternating user/assistant messages.
func turns(n int) []llm.Message {
	msgs := make([]llm.Message, 0, n)
	for i := 0; i < n; i++ {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: fmt.Sprintf("m%d", i)})
	}
	return msgs
}

func TestBuild_FirstAndLastElements(t *testing.T) {
	b := &ContextBuilder{}
	out := b.Build(context.Background(), turns(3), "persona")

	if out[0].Role != llm.RoleSystem || out[0].Content != "persona" {
		t.Errorf("first element = %+v, want the system prompt", out[0])
	}
	last := out[len(out)-1]
	if last.Role != llm.RoleSystem || last.Content != replyLengthConstraint {
		t.Errorf("last element = %+v, want the reply-length constraint", last)
	}
}

func TestBuild_BelowThresholdNoSummary(t *testing.T) {
	sum := &fakeSummariser{summary: "should not appear"}
	b := &ContextBuilder{Summariser: sum, RoundThreshold: 5, RecentRounds: 2}

	// Exactly at the boundary: 10 non-system messages is not "greater than".
	out := b.Build(context.Background(), turns(10), "prompt")

	if sum.calls != 0 {
		t.Errorf("summariser called %d times, want 0", sum.calls)
	}
	for _, m := range out {
		if strings.HasPrefix(m.Content, summaryPrefix) {
			t.Errorf("unexpected summary message: %q", m.Content)
		}
	}
	// prompt + 4 recent + constraint
	if len(out) != 6 {
		t.Errorf("context has %d messages, want 6", len(out))
	}
}

func TestBuild_AboveThresholdSummarises(t *testing.T) {
	sum := &fakeSummariser{summary: "他们聊了天气"}
	b := &ContextBuilder{Summariser: sum, RoundThreshold: 5, RecentRounds: 2}

	out := b.Build(context.Background(), turns(11), "prompt")

	if sum.calls != 1 {
		t.Fatalf("summariser called %d times, want 1", sum.calls)
	}
	// All but the last recent_rounds*2 = 4 messages are summarised.
	if len(sum.gotMsgs) != 7 {
		t.Errorf("summariser got %d messages, want 7", len(sum.gotMsgs))
	}

	if out[1].Role != llm.RoleSystem || out[1].Content != summaryPrefix+"他们聊了天气" {
		t.Errorf("out[1] = %+v, want summary immediately after the prompt", out[1])
	}

	// prompt + summary + 4 recent + constraint
	if len(out) != 7 {
		t.Fatalf("context has %d messages, want 7", len(out))
	}
	if out[2].Content != "m7" || out[5].Content != "m10" {
		t.Errorf("recent window wrong: %v ... %v", out[2], out[5])
	}
}

func TestBuild_WindowWiderThanThreshold(t *testing.T) {
	// recent_rounds may exceed round_threshold in the config; the history is
	// then over the trigger while everything still fits the verbatim window.
	sum := &fakeSummariser{summary: "should not appear"}
	b := &ContextBuilder{Summariser: sum, RoundThreshold: 2, RecentRounds: 5}

	out := b.Build(context.Background(), turns(5), "prompt")

	if sum.calls != 0 {
		t.Errorf("summariser called %d times, want 0", sum.calls)
	}
	// prompt + all 5 messages verbatim + constraint
	if len(out) != 7 {
		t.Fatalf("context has %d messages, want 7", len(out))
	}
	if out[1].Content != "m0" || out[5].Content != "m4" {
		t.Errorf("history not kept verbatim: %v", out)
	}
}

func TestBuild_SummariserFailureIsSilent(t *testing.T) {
	tests := []struct {
		name string
		sum  Summariser
	}{
		{"error", &fakeSummariser{err: errors.New("boom")}},
		{"empty result", &fakeSummariser{summary: ""}},
		{"nil summariser", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &ContextBuilder{Summariser: tt.sum, RoundThreshold: 5, RecentRounds: 2}
			out := b.Build(context.Background(), turns(12), "prompt")

			for _, m := range out {
				if strings.HasPrefix(m.Content, summaryPrefix) {
					t.Errorf("summary present despite %s", tt.name)
				}
			}
			// prompt + 4 recent + constraint, no summary slot
			if len(out) != 6 {
				t.Errorf("context has %d messages, want 6", len(out))
			}
		})
	}
}

func TestBuild_IgnoresStoredSystemMessages(t *testing.T) {
	b := &ContextBuilder{}
	snapshot := append([]llm.Message{
		{Role: llm.RoleSystem, Content: "stored persona"},
		{Role: llm.RoleSystem, Content: "stored rule"},
	}, turns(2)...)

	out := b.Build(context.Background(), snapshot, "prompt")

	for _, m := range out {
		if m.Content == "stored persona" || m.Content == "stored rule" {
			t.Errorf("stored system message leaked into context: %q", m.Content)
		}
	}
}

func TestBuild_ShortHistoryKeptVerbatim(t *testing.T) {
	b := &ContextBuilder{RoundThreshold: 5, RecentRounds: 2}
	out := b.Build(context.Background(), turns(2), "prompt")

	// prompt + both messages + constraint
	if len(out) != 4 {
		t.Fatalf("context has %d messages, want 4", len(out))
	}
	if out[1].Content != "m0" || out[2].Content != "m1" {
		t.Errorf("short history reordered: %v", out)
	}
}

func TestFormatTranscript(t *testing.T) {
	got := formatTranscript([]llm.Message{
		{Role: llm.RoleUser, Content: "你好"},
		{Role: llm.RoleAssistant, Content: "你好！"},
	})
	want := "user：你好\nassistant：你好！"
	if got != want {
		t.Errorf("formatTranscript() = %q, want %q", got, want)
	}
}
