package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/clivihealth/careflow/internal/models"
	"github.com/clivihealth/careflow/internal/telegram"
)

// TelegramService implements Service on top of the long-polling Telegram bot.
type TelegramService struct {
	bot      *telegram.Bot
	messages chan models.InboundMessage
	done     chan struct{}
}

// NewTelegramService wraps a Telegram bot.
func NewTelegramService(bot *telegram.Bot) *TelegramService {
	return &TelegramService{
		bot:      bot,
		messages: make(chan models.InboundMessage, DefaultChannelBufferSize),
		done:     make(chan struct{}),
	}
}

func (s *TelegramService) Channel() models.Channel {
	return models.ChannelTelegram
}

// ValidateAndCanonicalizeRecipient expects a numeric Telegram chat id.
func (s *TelegramService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	id, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return "", fmt.Errorf("recipient %q is not a telegram chat id", recipient)
	}
	return strconv.FormatInt(id, 10), nil
}

// Start launches the long-poll loop.
func (s *TelegramService) Start(ctx context.Context) error {
	slog.Debug("TelegramService Start invoked")
	go s.pollLoop(ctx)
	return nil
}

func (s *TelegramService) Stop() error {
	slog.Info("TelegramService Stop invoked")
	close(s.done)
	close(s.messages)
	return nil
}

// SendRender sends the render contract with native inline-keyboard buttons.
func (s *TelegramService) SendRender(ctx context.Context, to string, render models.RenderContract) error {
	return s.bot.SendRender(ctx, to, render)
}

func (s *TelegramService) Messages() <-chan models.InboundMessage {
	return s.messages
}

func (s *TelegramService) pollLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		batch, err := s.bot.Poll(ctx)
		if err != nil {
			slog.Error("TelegramService poll failed", "error", err)
			select {
			case <-time.After(5 * time.Second):
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
			continue
		}
		for _, msg := range batch {
			select {
			case s.messages <- msg:
			case <-s.done:
				return
			case <-time.After(DefaultChannelTimeout):
				slog.Warn("TelegramService inbound channel full, dropping message", "from", msg.ExternalUserID)
			}
		}
	}
}
