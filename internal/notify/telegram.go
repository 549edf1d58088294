// Package notify pushes operator notifications about reward deliveries.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Telegram sends messages to a chat through the Telegram bot API.
type Telegram struct {
	apiURL     string
	chatID     string
	httpClient *http.Client
}

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Timeout  time.Duration

	// BaseURL overrides the bot API host, for tests.
	BaseURL string
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram bot token and chat id required")
	}

	base := cfg.BaseURL
	if base == "" {
		base = "https://api.telegram.org"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Telegram{
		apiURL:     strings.TrimRight(base, "/") + "/bot" + cfg.BotToken + "/sendMessage",
		chatID:     cfg.ChatID,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Notify sends one message to the configured chat.
func (t *Telegram) Notify(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     message,
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("telegram responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
