// Package config loads the assistant's configuration: a YAML file validated
// against an embedded JSON schema, overridden from XIAOZ_* environment
// variables, with defaults filled in last.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

// Duration is a time.Duration that unmarshals from YAML strings like "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete assistant configuration.
type Config struct {
	Bot struct {
		Name         string `yaml:"name"`
		SystemPrompt string `yaml:"system_prompt"`
	} `yaml:"bot"`

	Bridge struct {
		BaseURL      string   `yaml:"base_url"`
		PollInterval Duration `yaml:"poll_interval"`
	} `yaml:"bridge"`

	LLM struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		// Temperature is a pointer so an explicit 0 (deterministic sampling)
		// is distinguishable from "not set".
		Temperature   *float64 `yaml:"temperature"`
		MaxTokens     int      `yaml:"max_tokens"`
		MaxReplyChars int      `yaml:"max_reply_chars"`
	} `yaml:"llm"`

	Conversation struct {
		MaxRounds      int    `yaml:"max_rounds"`
		RoundThreshold int    `yaml:"round_threshold"`
		RecentRounds   int    `yaml:"recent_rounds"`
		Isolation      string `yaml:"isolation"`
		DumpPath       string `yaml:"dump_path"`
	} `yaml:"conversation"`

	Reminder struct {
		Mode             string   `yaml:"mode"`
		DeliveryInterval Duration `yaml:"delivery_interval"`
		HandshakeTimeout Duration `yaml:"handshake_timeout"`
	} `yaml:"reminder"`

	Storage struct {
		DatabasePath string `yaml:"database_path"`
	} `yaml:"storage"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`

	Timezone string `yaml:"timezone"`
}

// Reminder delivery modes.
const (
	ModeStructured = "structured"
	ModeSuggest    = "suggest"
)

// Load reads, validates and finalizes the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration document, validates it against the
// embedded schema, applies environment overrides and fills defaults.
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateSchema checks the raw document against the embedded JSON schema.
func validateSchema(data []byte) error {
	schema, err := jsonschema.CompileString("config.schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("config schema compile: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config parse: %w", err)
	}
	if doc == nil {
		return nil
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("config validate: %w", err)
	}
	return nil
}

// applyEnv overrides fields from XIAOZ_* environment variables. Secrets like
// the LLM API key normally arrive this way rather than through the file.
func (c *Config) applyEnv() {
	envOr(&c.Bot.Name, "XIAOZ_BOT_NAME")
	envOr(&c.Bot.SystemPrompt, "XIAOZ_SYSTEM_PROMPT")
	envOr(&c.Bridge.BaseURL, "XIAOZ_BRIDGE_URL")
	envOr(&c.LLM.BaseURL, "XIAOZ_LLM_BASE_URL")
	envOr(&c.LLM.APIKey, "XIAOZ_LLM_API_KEY")
	envOr(&c.LLM.Model, "XIAOZ_LLM_MODEL")
	envOr(&c.Storage.DatabasePath, "XIAOZ_DATABASE_PATH")
	envOr(&c.Log.Level, "XIAOZ_LOG_LEVEL")
	envOr(&c.Log.Format, "XIAOZ_LOG_FORMAT")
	envOr(&c.Log.File, "XIAOZ_LOG_FILE")
}

// envOr sets *dst from the named environment variable when it is non-empty.
func envOr(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Bridge.BaseURL == "" {
		c.Bridge.BaseURL = "http://127.0.0.1:7900"
	}
	if c.Bridge.PollInterval <= 0 {
		c.Bridge.PollInterval = Duration(time.Second)
	}
	if c.LLM.Temperature == nil {
		temp := 0.7
		c.LLM.Temperature = &temp
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 200
	}
	if c.LLM.MaxReplyChars <= 0 {
		c.LLM.MaxReplyChars = 300
	}
	if c.Conversation.MaxRounds <= 0 {
		c.Conversation.MaxRounds = 15
	}
	if c.Conversation.RoundThreshold <= 0 {
		c.Conversation.RoundThreshold = 5
	}
	if c.Conversation.RecentRounds <= 0 {
		c.Conversation.RecentRounds = 2
	}
	if c.Conversation.Isolation == "" {
		c.Conversation.Isolation = "sender"
	}
	if c.Conversation.DumpPath == "" {
		c.Conversation.DumpPath = "conversation_history.log"
	}
	if c.Reminder.Mode == "" {
		c.Reminder.Mode = ModeStructured
	}
	if c.Reminder.DeliveryInterval <= 0 {
		c.Reminder.DeliveryInterval = Duration(10 * time.Second)
	}
	if c.Reminder.HandshakeTimeout <= 0 {
		c.Reminder.HandshakeTimeout = Duration(120 * time.Second)
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "./xiaoz.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Shanghai"
	}
}

// validate checks cross-field requirements the schema cannot express.
func (c *Config) validate() error {
	if strings.TrimSpace(c.Bot.Name) == "" {
		return fmt.Errorf("bot.name must not be empty (set XIAOZ_BOT_NAME)")
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("llm.api_key must not be empty (set XIAOZ_LLM_API_KEY)")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone. validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Mention returns the assistant's mention prefix, e.g. "@小z".
func (c *Config) Mention() string {
	return "@" + c.Bot.Name
}
