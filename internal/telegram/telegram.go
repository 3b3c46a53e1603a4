// Package telegram implements a minimal Telegram Bot API client: long-poll
// update fetching, message sending, and inline keyboards for page buttons.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/clivihealth/careflow/internal/models"
)

const (
	// DefaultAPIBaseURL is the Telegram Bot API endpoint.
	DefaultAPIBaseURL = "https://api.telegram.org"
	// DefaultPollTimeout is the long-poll timeout passed to getUpdates.
	DefaultPollTimeout = 30 * time.Second
)

// Opts holds bot configuration.
type Opts struct {
	Token       string
	APIBaseURL  string
	PollTimeout time.Duration
	HTTPClient  *http.Client
}

// Option configures the bot via functional options.
type Option func(*Opts)

// WithToken sets the bot token explicitly.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithAPIBaseURL overrides the API endpoint, used in tests.
func WithAPIBaseURL(u string) Option {
	return func(o *Opts) { o.APIBaseURL = u }
}

// WithPollTimeout overrides the long-poll timeout.
func WithPollTimeout(d time.Duration) Option {
	return func(o *Opts) { o.PollTimeout = d }
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Bot is a Telegram Bot API client.
type Bot struct {
	token       string
	baseURL     string
	pollTimeout time.Duration
	http        *http.Client
	offset      int64
}

// NewBot creates a bot client. The token falls back to the TELEGRAM_BOT_TOKEN
// environment variable when not set via options.
func NewBot(opts ...Option) (*Bot, error) {
	cfg := Opts{APIBaseURL: DefaultAPIBaseURL, PollTimeout: DefaultPollTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.PollTimeout + 10*time.Second}
	}
	slog.Debug("Telegram bot initialized", "poll_timeout", cfg.PollTimeout)
	return &Bot{
		token:       cfg.Token,
		baseURL:     cfg.APIBaseURL,
		pollTimeout: cfg.PollTimeout,
		http:        cfg.HTTPClient,
	}, nil
}

// update mirrors the subset of the Bot API Update object the engine needs.
type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
		Date int64  `json:"date"`
	} `json:"message"`
	CallbackQuery *struct {
		ID      string `json:"id"`
		Data    string `json:"data"`
		Message *struct {
			Chat struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Poll fetches the next batch of updates, converted to inbound messages.
// It blocks for up to the configured long-poll timeout.
func (b *Bot) Poll(ctx context.Context) ([]models.InboundMessage, error) {
	body := map[string]interface{}{
		"offset":          b.offset,
		"timeout":         int(b.pollTimeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	raw, err := b.call(ctx, "getUpdates", body)
	if err != nil {
		return nil, err
	}

	var updates []update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}

	var out []models.InboundMessage
	for _, u := range updates {
		if u.UpdateID >= b.offset {
			b.offset = u.UpdateID + 1
		}
		msg, ok := b.normalize(ctx, u)
		if !ok {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// normalize converts one update into an inbound message. Callback queries are
// acknowledged so the client stops showing a spinner.
func (b *Bot) normalize(ctx context.Context, u update) (models.InboundMessage, bool) {
	switch {
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		if _, err := b.call(ctx, "answerCallbackQuery", map[string]interface{}{"callback_query_id": u.CallbackQuery.ID}); err != nil {
			slog.Warn("Telegram answerCallbackQuery failed", "error", err)
		}
		return models.InboundMessage{
			Channel:        models.ChannelTelegram,
			ExternalUserID: strconv.FormatInt(u.CallbackQuery.Message.Chat.ID, 10),
			ButtonID:       u.CallbackQuery.Data,
			ReceivedAt:     time.Now().UTC(),
		}, true

	case u.Message != nil && u.Message.Text != "":
		return models.InboundMessage{
			Channel:        models.ChannelTelegram,
			ExternalUserID: strconv.FormatInt(u.Message.Chat.ID, 10),
			Text:           u.Message.Text,
			ReceivedAt:     time.Unix(u.Message.Date, 0).UTC(),
		}, true
	}
	return models.InboundMessage{}, false
}

// SendRender sends a render contract to a chat, mapping page buttons onto an
// inline keyboard whose callback data is the button id.
func (b *Bot) SendRender(ctx context.Context, chatID string, render models.RenderContract) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	body := map[string]interface{}{
		"chat_id": id,
		"text":    render.Text,
	}
	if len(render.Buttons) > 0 {
		rows := make([][]map[string]string, 0, len(render.Buttons))
		for _, btn := range render.Buttons {
			rows = append(rows, []map[string]string{{"text": btn.Label, "callback_data": btn.ID}})
		}
		body["reply_markup"] = map[string]interface{}{"inline_keyboard": rows}
	}
	if _, err := b.call(ctx, "sendMessage", body); err != nil {
		slog.Error("Telegram sendMessage failed", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to send telegram message to %s: %w", chatID, err)
	}
	slog.Debug("Telegram message sent", "chat_id", chatID, "buttons", len(render.Buttons))
	return nil
}

// SendMessage sends a plain text message.
func (b *Bot) SendMessage(ctx context.Context, chatID string, text string) error {
	return b.SendRender(ctx, chatID, models.RenderContract{Text: text})
}

// call performs one Bot API method call and unwraps the response envelope.
func (b *Bot) call(ctx context.Context, method string, body map[string]interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}
	var env apiEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if !env.OK {
		return nil, fmt.Errorf("telegram %s returned error: %s", method, env.Description)
	}
	return env.Result, nil
}
