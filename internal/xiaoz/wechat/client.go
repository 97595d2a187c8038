// Package wechat provides the client for the WeChat automation bridge.
//
// The bridge is an external collaborator that exposes the desktop WeChat
// session over a small HTTP API: one endpoint drains new messages grouped by
// chat, the other sends a text message to a named chat. The assistant never
// talks to WeChat servers directly.
package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Config holds bridge client configuration.
type Config struct {
	// BaseURL is the HTTP address of the automation bridge,
	// e.g. "http://127.0.0.1:7900".
	BaseURL string
	// Timeout is the per-request HTTP timeout. Defaults to 30s.
	Timeout time.Duration
}

// InboundMessage is one message drained from a chat.
type InboundMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Client wraps the automation bridge HTTP API.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a bridge client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type pollResponse struct {
	Messages map[string][]InboundMessage `json:"messages"`
	Error    string                      `json:"error,omitempty"`
}

// PollNewMessages drains all new messages from the bridge, grouped by chat
// identity. Chats with no new messages are absent from the map. The bridge
// removes drained messages from its queue, so each message is delivered once.
func (c *Client) PollNewMessages(ctx context.Context) (map[string][]InboundMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/messages/new", nil)
	if err != nil {
		return nil, fmt.Errorf("wechat: create poll request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wechat: poll request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wechat: read poll response: %w", err)
	}

	var pr pollResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("wechat: decode poll response: %w", err)
	}
	if pr.Error != "" {
		return nil, fmt.Errorf("wechat: bridge error: %s", pr.Error)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("wechat: unexpected HTTP status %d", resp.StatusCode)
	}
	return pr.Messages, nil
}

type sendRequest struct {
	Who  string `json:"who"`
	Text string `json:"text"`
}

type sendResponse struct {
	Error string `json:"error,omitempty"`
}

// SendMessage asks the bridge to send text to the named chat or user.
func (c *Client) SendMessage(ctx context.Context, who, text string) error {
	data, err := json.Marshal(sendRequest{Who: who, Text: text})
	if err != nil {
		return fmt.Errorf("wechat: marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/messages/send", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("wechat: create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("wechat: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("wechat: read send response: %w", err)
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return fmt.Errorf("wechat: decode send response: %w", err)
	}
	if sr.Error != "" {
		return fmt.Errorf("wechat: bridge error: %s", sr.Error)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("wechat: unexpected HTTP status %d", resp.StatusCode)
	}
	return nil
}

// memberCountSuffix matches a trailing participant-count annotation such as
// "(3)" or "（12）" that WeChat appends to group chat names.
var memberCountSuffix = regexp.MustCompile(`[\(（]\s*\d+\s*[\)）]`)

// CleanSender normalizes a chat or sender identity: surrounding whitespace is
// stripped and a trailing parenthesized member count (ASCII or full-width
// parentheses) is removed.
func CleanSender(sender string) string {
	cleaned := strings.TrimSpace(sender)
	cleaned = memberCountSuffix.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
