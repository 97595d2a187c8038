package config

import (
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
bot:
  name: 小z
llm:
  api_key: sk-test
`

func TestParseMinimalAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse err = %v", err)
	}
	if cfg.Bridge.BaseURL != "http://127.0.0.1:7900" {
		t.Errorf("bridge base_url = %q", cfg.Bridge.BaseURL)
	}
	if cfg.Bridge.PollInterval.Std() != time.Second {
		t.Errorf("poll_interval = %v", cfg.Bridge.PollInterval.Std())
	}
	if *cfg.LLM.Temperature != 0.7 || cfg.LLM.MaxTokens != 200 || cfg.LLM.MaxReplyChars != 300 {
		t.Errorf("llm defaults = %+v", cfg.LLM)
	}
	if cfg.Conversation.MaxRounds != 15 || cfg.Conversation.RoundThreshold != 5 || cfg.Conversation.RecentRounds != 2 {
		t.Errorf("conversation defaults = %+v", cfg.Conversation)
	}
	if cfg.Conversation.Isolation != "sender" {
		t.Errorf("isolation = %q", cfg.Conversation.Isolation)
	}
	if cfg.Reminder.Mode != ModeStructured {
		t.Errorf("reminder mode = %q", cfg.Reminder.Mode)
	}
	if cfg.Reminder.DeliveryInterval.Std() != 10*time.Second {
		t.Errorf("delivery_interval = %v", cfg.Reminder.DeliveryInterval.Std())
	}
	if cfg.Reminder.HandshakeTimeout.Std() != 120*time.Second {
		t.Errorf("handshake_timeout = %v", cfg.Reminder.HandshakeTimeout.Std())
	}
	if cfg.Timezone != "Asia/Shanghai" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
	if cfg.Mention() != "@小z" {
		t.Errorf("Mention() = %q", cfg.Mention())
	}
}

func TestParseFullDocument(t *testing.T) {
	doc := `
bot:
  name: 小z
  system_prompt: 你是一个友好的助手
bridge:
  base_url: http://10.0.0.5:7900
  poll_interval: 2s
llm:
  base_url: http://localhost:8080/v1
  api_key: sk-test
  model: qwen-plus
  temperature: 0.3
  max_tokens: 150
  max_reply_chars: 200
conversation:
  max_rounds: 10
  round_threshold: 4
  recent_rounds: 3
  isolation: chat
  dump_path: /tmp/dump.log
reminder:
  mode: suggest
  delivery_interval: 5s
  handshake_timeout: 60s
storage:
  database_path: /tmp/xiaoz.db
log:
  level: debug
  format: json
timezone: UTC
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse err = %v", err)
	}
	if cfg.Bridge.PollInterval.Std() != 2*time.Second {
		t.Errorf("poll_interval = %v", cfg.Bridge.PollInterval.Std())
	}
	if cfg.LLM.Model != "qwen-plus" || *cfg.LLM.Temperature != 0.3 {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Conversation.Isolation != "chat" {
		t.Errorf("isolation = %q", cfg.Conversation.Isolation)
	}
	if cfg.Reminder.Mode != ModeSuggest {
		t.Errorf("mode = %q", cfg.Reminder.Mode)
	}
	if cfg.Location().String() != "UTC" {
		t.Errorf("location = %v", cfg.Location())
	}
}

func TestParseSchemaRejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown top-level key", minimalYAML + "\nbogus: true\n"},
		{"bad isolation enum", minimalYAML + "\nconversation:\n  isolation: global\n"},
		{"bad reminder mode", minimalYAML + "\nreminder:\n  mode: merged\n"},
		{"bad duration format", minimalYAML + "\nreminder:\n  delivery_interval: soon\n"},
		{"bad log level", minimalYAML + "\nlog:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("XIAOZ_BOT_NAME", "阿宝")
	t.Setenv("XIAOZ_LLM_API_KEY", "sk-env")
	t.Setenv("XIAOZ_LLM_MODEL", "gpt-4o-mini")

	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse err = %v", err)
	}
	if cfg.Bot.Name != "阿宝" {
		t.Errorf("bot.name = %q, want env override", cfg.Bot.Name)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("api_key = %q, want env override", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
}

func TestParseExplicitZeroTemperature(t *testing.T) {
	doc := "bot:\n  name: 小z\nllm:\n  api_key: sk-test\n  temperature: 0\n"
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse err = %v", err)
	}
	if cfg.LLM.Temperature == nil || *cfg.LLM.Temperature != 0 {
		t.Errorf("temperature = %v, want explicit 0 preserved", cfg.LLM.Temperature)
	}
}

func TestParseRequiredFields(t *testing.T) {
	if _, err := Parse([]byte("llm:\n  api_key: sk-test\n")); err == nil ||
		!strings.Contains(err.Error(), "bot.name") {
		t.Errorf("missing bot.name err = %v", err)
	}
	if _, err := Parse([]byte("bot:\n  name: 小z\n")); err == nil ||
		!strings.Contains(err.Error(), "llm.api_key") {
		t.Errorf("missing api_key err = %v", err)
	}
}

func TestParseBadTimezone(t *testing.T) {
	doc := minimalYAML + "\ntimezone: Mars/Olympus\n"
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected timezone error")
	}
}
