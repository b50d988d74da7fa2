package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// DefaultTelegramURL is the Bot API root.
const DefaultTelegramURL = "https://api.telegram.org"

// TelegramConfig configures a TelegramNotifier.
type TelegramConfig struct {
	BotToken string
	ChatIDs  []string
	BaseURL  string
	Proxy    string
	Retries  int           // extra attempts per chat
	Backoff  time.Duration // first retry delay, doubled per attempt
}

// TelegramNotifier sends Markdown messages via the Telegram Bot API to every configured chat.
type TelegramNotifier struct {
	BotToken string
	ChatIDs  []string
	BaseURL  string
	Client   *http.Client

	retries int
	backoff time.Duration
	logger  zerolog.Logger
}

var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(cfg TelegramConfig, logger zerolog.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return &TelegramNotifier{
		BotToken: cfg.BotToken,
		ChatIDs:  cfg.ChatIDs,
		BaseURL:  baseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		retries: cfg.Retries,
		backoff: backoff,
		logger:  logger.With().Str("component", "telegram").Logger(),
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.BaseURL, t.BotToken, method)
}

// Send delivers text to every chat, retrying each one independently. Chats that still
// fail are reported together in a NotifyError.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	failed := make(map[string]error)
	for _, chatID := range t.ChatIDs {
		if err := t.SendWithRetry(ctx, chatID, text, t.retries); err != nil {
			failed[chatID] = err
		}
	}
	if len(failed) > 0 {
		return &NotifyError{Failed: failed, Total: len(t.ChatIDs)}
	}
	return nil
}

// SendTo sends one message to one chat.
func (t *TelegramNotifier) SendTo(ctx context.Context, chatID, text string) error {
	payload := map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	if res := gjson.GetBytes(respBody, "ok"); res.Exists() && !res.Bool() {
		return fmt.Errorf("telegram API error: %s", gjson.GetBytes(respBody, "description").String())
	}
	return nil
}

// SendWithRetry sends a message to one chat with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, chatID, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.SendTo(ctx, chatID, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.backoff * time.Duration(1<<uint(i))
		t.logger.Warn().
			Err(err).
			Str("chat_id", chatID).
			Int("attempt", i+1).
			Int("attempts", maxRetries+1).
			Dur("backoff", backoff).
			Msg("telegram send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxRetries+1, lastErr)
}
