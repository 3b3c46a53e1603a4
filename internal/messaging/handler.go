package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/clivihealth/careflow/internal/models"
	"github.com/clivihealth/careflow/internal/session"
)

// queuedMessage pairs an inbound message with the transport it arrived on,
// so the reply goes back the same way.
type queuedMessage struct {
	svc Service
	msg models.InboundMessage
}

// Handler consumes inbound messages from every registered transport, routes
// them through the session manager, and sends the resulting render back on
// the transport the message arrived on.
//
// Messages for the same conversation are queued per session key and drained
// by a single worker, so they are processed strictly in arrival order.
// Different conversations proceed concurrently.
type Handler struct {
	manager  *session.Manager
	services []Service

	consumers sync.WaitGroup
	workers   sync.WaitGroup

	mu     sync.Mutex
	queues map[models.SessionKey]chan queuedMessage
}

// NewHandler wires the session manager to one or more transports.
func NewHandler(manager *session.Manager, services ...Service) *Handler {
	return &Handler{
		manager:  manager,
		services: services,
		queues:   make(map[models.SessionKey]chan queuedMessage),
	}
}

// Start launches every transport and one consumer goroutine per transport.
func (h *Handler) Start(ctx context.Context) error {
	for _, svc := range h.services {
		if err := svc.Start(ctx); err != nil {
			return err
		}
		h.consumers.Add(1)
		go h.consume(ctx, svc)
		slog.Info("Handler transport started", "channel", svc.Channel())
	}
	return nil
}

// Stop stops every transport, waits for the consumers to drain, then closes
// the per-conversation queues and waits for their workers.
func (h *Handler) Stop() {
	for _, svc := range h.services {
		if err := svc.Stop(); err != nil {
			slog.Error("Handler transport stop failed", "channel", svc.Channel(), "error", err)
		}
	}
	h.consumers.Wait()

	h.mu.Lock()
	for _, q := range h.queues {
		close(q)
	}
	h.queues = make(map[models.SessionKey]chan queuedMessage)
	h.mu.Unlock()
	h.workers.Wait()
	h.manager.Stop()
}

func (h *Handler) consume(ctx context.Context, svc Service) {
	defer h.consumers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-svc.Messages():
			if !ok {
				return
			}
			h.dispatch(ctx, svc, msg)
		}
	}
}

// dispatch enqueues the message on its conversation's queue, creating the
// queue and its worker on first use. Enqueueing never blocks the consumer: a
// full queue drops the message.
func (h *Handler) dispatch(ctx context.Context, svc Service, msg models.InboundMessage) {
	key := msg.Key()
	h.mu.Lock()
	q, ok := h.queues[key]
	if !ok {
		q = make(chan queuedMessage, DefaultChannelBufferSize)
		h.queues[key] = q
		h.workers.Add(1)
		go h.drain(ctx, q)
	}
	h.mu.Unlock()

	select {
	case q <- queuedMessage{svc: svc, msg: msg}:
	default:
		slog.Warn("Handler conversation queue full, dropping message", "channel", msg.Channel, "from", msg.ExternalUserID)
	}
}

// drain processes one conversation's messages in arrival order.
func (h *Handler) drain(ctx context.Context, q chan queuedMessage) {
	defer h.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case qm, ok := <-q:
			if !ok {
				return
			}
			h.process(ctx, qm.svc, qm.msg)
		}
	}
}

func (h *Handler) process(ctx context.Context, svc Service, msg models.InboundMessage) {
	render, err := h.manager.Process(ctx, msg)
	if err != nil {
		slog.Error("Handler message processing failed", "channel", msg.Channel, "from", msg.ExternalUserID, "error", err)
		if render.Text == "" {
			return
		}
		// A degraded result still carries a patient-facing message.
	}
	if err := svc.SendRender(ctx, msg.ExternalUserID, render); err != nil {
		slog.Error("Handler reply delivery failed", "channel", msg.Channel, "to", msg.ExternalUserID, "error", err)
	}
}
