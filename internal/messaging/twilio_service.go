package messaging

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/clivihealth/careflow/internal/models"
	"github.com/clivihealth/careflow/internal/twiliowhatsapp"
)

// TwilioService implements Service using the Twilio WhatsApp API. Inbound
// messages arrive through the Twilio webhook, fed in via IngestWebhook.
type TwilioService struct {
	client    twiliowhatsapp.Sender
	templates map[string]string // template name -> Twilio content SID
	messages  chan models.InboundMessage
	done      chan struct{}
	mem       buttonMemory
}

// NewTwilioService wraps a Twilio sender. templates maps page template names
// to approved Twilio content SIDs; pages with an unmapped template fall back
// to plain text.
func NewTwilioService(client twiliowhatsapp.Sender, templates map[string]string) *TwilioService {
	return &TwilioService{
		client:    client,
		templates: templates,
		messages:  make(chan models.InboundMessage, DefaultChannelBufferSize),
		done:      make(chan struct{}),
	}
}

func (s *TwilioService) Channel() models.Channel {
	return models.ChannelWhatsApp
}

func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

func (s *TwilioService) Start(ctx context.Context) error {
	slog.Debug("TwilioService Start invoked")
	return nil
}

func (s *TwilioService) Stop() error {
	slog.Info("TwilioService Stop invoked")
	close(s.done)
	close(s.messages)
	return nil
}

// SendRender delivers a render contract, preferring an approved content
// template when the page names one that is mapped.
func (s *TwilioService) SendRender(ctx context.Context, to string, render models.RenderContract) error {
	s.mem.remember(to, render.Buttons)
	if render.TemplateName != "" {
		if sid, ok := s.templates[render.TemplateName]; ok {
			return s.client.SendTemplate(ctx, "+"+to, sid, map[string]string{"1": render.Text})
		}
		slog.Debug("TwilioService template not mapped, sending plain text", "template", render.TemplateName)
	}
	return s.client.SendMessage(ctx, "+"+to, formatRender(render))
}

func (s *TwilioService) Messages() <-chan models.InboundMessage {
	return s.messages
}

// IngestWebhook normalizes a Twilio inbound-message webhook form. The From
// field carries "whatsapp:+5215512345678"; ButtonPayload is set when the
// patient tapped a template quick-reply.
func (s *TwilioService) IngestWebhook(form url.Values) {
	from := strings.TrimPrefix(form.Get("From"), "whatsapp:")
	from = strings.TrimPrefix(from, "+")
	if from == "" {
		slog.Warn("TwilioService webhook missing From field")
		return
	}

	msg := models.InboundMessage{
		Channel:        models.ChannelWhatsApp,
		ExternalUserID: from,
		Text:           form.Get("Body"),
		ButtonID:       form.Get("ButtonPayload"),
		MediaRef:       form.Get("MediaUrl0"),
		ReceivedAt:     time.Now().UTC(),
	}
	if msg.ButtonID == "" {
		if id, ok := s.mem.resolve(from, msg.Text); ok {
			msg.ButtonID = id
			msg.Text = ""
		}
	}
	if msg.Text == "" && msg.ButtonID == "" && msg.MediaRef == "" {
		slog.Debug("TwilioService ignoring empty webhook", "from", from)
		return
	}

	select {
	case s.messages <- msg:
		slog.Debug("TwilioService inbound message queued", "from", from)
	case <-s.done:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService inbound channel full, dropping message", "from", from)
	}
}
