package messaging

import (
	"context"
	"log/slog"
	"time"

	"go.mau.fi/whatsmeow/types/events"

	"github.com/clivihealth/careflow/internal/models"
	"github.com/clivihealth/careflow/internal/whatsapp"
)

const (
	// DefaultChannelBufferSize bounds the inbound message channel.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout bounds the non-blocking channel push.
	DefaultChannelTimeout = 1 * time.Second
)

// WhatsAppService implements Service on top of the Whatsmeow client.
type WhatsAppService struct {
	sender   whatsapp.Sender
	waClient *whatsapp.Client // full client for event handling, nil with mocks
	messages chan models.InboundMessage
	done     chan struct{}
	mem      buttonMemory
}

// NewWhatsAppService wraps the given sender. When the sender is a full
// client, incoming WhatsApp events are normalized into inbound messages.
func NewWhatsAppService(sender whatsapp.Sender) *WhatsAppService {
	s := &WhatsAppService{
		sender:   sender,
		messages: make(chan models.InboundMessage, DefaultChannelBufferSize),
		done:     make(chan struct{}),
	}
	if waClient, ok := sender.(*whatsapp.Client); ok {
		s.waClient = waClient
		slog.Debug("WhatsAppService created with full client for event handling")
	} else {
		slog.Debug("WhatsAppService created with interface sender (likely mock)")
	}
	return s
}

func (s *WhatsAppService) Channel() models.Channel {
	return models.ChannelWhatsApp
}

func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start registers the event handler that feeds inbound messages.
func (s *WhatsAppService) Start(ctx context.Context) error {
	slog.Debug("WhatsAppService Start invoked")
	if s.waClient == nil || s.waClient.GetClient() == nil {
		slog.Debug("WhatsAppService no full client available, skipping event handling")
		return nil
	}
	s.waClient.GetClient().AddEventHandler(func(evt interface{}) {
		if msg, ok := evt.(*events.Message); ok {
			s.handleIncomingMessage(msg)
		}
	})
	slog.Debug("WhatsAppService event handler registered")
	return nil
}

// Stop closes the channels.
func (s *WhatsAppService) Stop() error {
	slog.Info("WhatsAppService Stop invoked")
	close(s.done)
	close(s.messages)
	return nil
}

// SendRender delivers a render contract as plain text. WhatsApp buttons are
// flattened into a numbered option list.
func (s *WhatsAppService) SendRender(ctx context.Context, to string, render models.RenderContract) error {
	body := formatRender(render)
	if err := s.sender.SendMessage(ctx, to, body); err != nil {
		slog.Error("WhatsAppService SendRender error", "error", err, "to", to)
		return err
	}
	s.mem.remember(to, render.Buttons)
	slog.Info("WhatsAppService message sent", "to", to)
	return nil
}

func (s *WhatsAppService) Messages() <-chan models.InboundMessage {
	return s.messages
}

// handleIncomingMessage normalizes a WhatsApp message event. Only text
// content is routed; other media is recorded as a reference.
func (s *WhatsAppService) handleIncomingMessage(evt *events.Message) {
	if evt.Info.IsFromMe || evt.Info.IsGroup {
		return
	}
	text := evt.Message.GetConversation()
	if text == "" && evt.Message.GetExtendedTextMessage() != nil {
		text = evt.Message.GetExtendedTextMessage().GetText()
	}
	mediaRef := ""
	if evt.Message.GetImageMessage() != nil {
		mediaRef = evt.Message.GetImageMessage().GetURL()
	}
	if text == "" && mediaRef == "" {
		slog.Debug("WhatsAppService ignoring non-text message", "from", evt.Info.Sender.User)
		return
	}

	msg := models.InboundMessage{
		Channel:        models.ChannelWhatsApp,
		ExternalUserID: evt.Info.Sender.User,
		Text:           text,
		MediaRef:       mediaRef,
		ReceivedAt:     evt.Info.Timestamp,
	}
	if id, ok := s.mem.resolve(msg.ExternalUserID, text); ok {
		msg.ButtonID = id
		msg.Text = ""
	}

	select {
	case s.messages <- msg:
		slog.Debug("WhatsAppService inbound message queued", "from", msg.ExternalUserID)
	case <-s.done:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService inbound channel full, dropping message", "from", msg.ExternalUserID)
	}
}
