package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clivihealth/careflow/internal/engine"
	"github.com/clivihealth/careflow/internal/models"
	"github.com/clivihealth/careflow/internal/store"
)

// DefaultIdleTimeout ends a session after this long without patient activity.
const DefaultIdleTimeout = 30 * time.Minute

// Opts holds manager configuration.
type Opts struct {
	IdleTimeout time.Duration
}

// Option configures the manager via functional options.
type Option func(*Opts)

// WithIdleTimeout overrides the idle expiry window.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *Opts) { o.IdleTimeout = d }
}

// convState is the per-conversation lock plus the pending expiry timer id.
type convState struct {
	mu      sync.Mutex
	timerID string
}

// Manager owns session lifecycle and guarantees that messages for the same
// conversation are processed strictly in arrival order. Messages for
// different conversations proceed concurrently.
type Manager struct {
	store       store.Store
	router      *engine.Router
	idleTimeout time.Duration
	timer       *IdleTimer

	mu    sync.Mutex
	convs map[models.SessionKey]*convState
}

// NewManager wires the store and router.
func NewManager(st store.Store, router *engine.Router, opts ...Option) *Manager {
	cfg := Opts{IdleTimeout: DefaultIdleTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{
		store:       st,
		router:      router,
		idleTimeout: cfg.IdleTimeout,
		timer:       NewIdleTimer(),
		convs:       make(map[models.SessionKey]*convState),
	}
}

// Process routes one inbound message. It loads or creates the session,
// invokes the router under the conversation lock, persists the mutated
// session, and then records the emitted events. Event recording failures are
// logged and never fail the routing.
func (m *Manager) Process(ctx context.Context, msg models.InboundMessage) (models.RenderContract, error) {
	if err := msg.Validate(); err != nil {
		return models.RenderContract{}, err
	}
	key := msg.Key()
	conv := m.conv(key)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	sess, err := m.loadOrCreate(key, msg.ReceivedAt)
	if err != nil {
		return models.RenderContract{}, err
	}

	result, routeErr := m.router.Route(ctx, sess, msg)
	if routeErr != nil && result.Render.Text == "" {
		return models.RenderContract{}, routeErr
	}

	if err := m.store.SaveSession(*sess); err != nil {
		slog.Error("Manager session save failed", "error", err, "key", key)
		return models.RenderContract{}, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	for _, ev := range result.Events {
		if err := m.store.AddEvent(ev); err != nil {
			slog.Error("Manager event record failed", "error", err, "type", ev.Type, "key", key)
		}
	}

	m.resetExpiry(conv, key)
	if routeErr != nil {
		slog.Error("Manager routing degraded", "error", routeErr, "key", key, "page", sess.CurrentPage)
	}
	return result.Render, routeErr
}

// conv returns the serialization state for a key, creating it on first use.
func (m *Manager) conv(key models.SessionKey) *convState {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[key]
	if !ok {
		c = &convState{}
		m.convs[key] = c
	}
	return c
}

// loadOrCreate fetches the stored session, expiring it first if the idle
// window elapsed while no timer was armed (e.g. across restarts).
func (m *Manager) loadOrCreate(key models.SessionKey, now time.Time) (*models.Session, error) {
	stored, err := m.store.GetSession(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	if stored != nil && !stored.Ended() && now.Sub(stored.LastActivityAt) > m.idleTimeout {
		m.endSession(stored, "idle_timeout")
		stored = nil
	}
	if stored != nil {
		return stored, nil
	}

	sess := models.NewSession(key, now)
	patient, err := m.store.GetPatientByIdentity(key.Channel, key.ExternalUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	if patient != nil {
		sess.Patient = patient.Context()
	} else {
		sess.Patient = models.UnknownPatient()
	}
	slog.Info("Manager session created", "key", key, "plan", sess.Patient.Plan, "status", sess.Patient.PlanStatus)
	return &sess, nil
}

// resetExpiry re-arms the idle timer for a conversation. Caller holds the
// conversation lock.
func (m *Manager) resetExpiry(conv *convState, key models.SessionKey) {
	m.timer.Cancel(conv.timerID)
	conv.timerID = m.timer.ScheduleAfter(m.idleTimeout, func() {
		m.expire(key)
	})
}

// expire ends an idle session and records the summary event.
func (m *Manager) expire(key models.SessionKey) {
	conv := m.conv(key)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	sess, err := m.store.GetSession(key)
	if err != nil {
		slog.Error("Manager expiry load failed", "error", err, "key", key)
		return
	}
	if sess == nil || sess.Ended() {
		return
	}
	if time.Since(sess.LastActivityAt) < m.idleTimeout {
		// A message slipped in between the timer firing and this lock.
		return
	}
	m.endSession(sess, "idle_timeout")
}

// endSession transitions the session to its terminal state, persists it, and
// then records the SESSION_ENDED summary. The event is only emitted once the
// terminal state is durable; a failed save skips the event entirely.
func (m *Manager) endSession(sess *models.Session, reason string) {
	lastPage := sess.CurrentPage
	sess.VisitPage(models.PageEndSession)
	if err := m.store.SaveSession(*sess); err != nil {
		slog.Error("Manager session end save failed", "error", err, "key", sess.Key)
		return
	}
	ev := models.NewActivityEvent(sess.Key, models.EventSessionEnded, lastPage, models.SeverityInfo, map[string]string{
		"reason":        reason,
		"pages_visited": fmt.Sprintf("%d", len(sess.History)),
		"duration":      time.Since(sess.CreatedAt).Truncate(time.Second).String(),
	})
	if err := m.store.AddEvent(ev); err != nil {
		slog.Error("Manager session end event failed", "error", err, "key", sess.Key)
	}
	slog.Info("Manager session ended", "key", sess.Key, "reason", reason, "last_page", lastPage)
}

// Stop cancels all pending expiry timers.
func (m *Manager) Stop() {
	m.timer.Stop()
}
