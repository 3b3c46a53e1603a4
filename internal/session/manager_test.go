package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clivihealth/careflow/internal/engine"
	"github.com/clivihealth/careflow/internal/models"
	"github.com/clivihealth/careflow/internal/store"
)

func newTestManager(t *testing.T, st store.Store, opts ...Option) *Manager {
	t.Helper()
	pages, err := engine.BuildPageSet()
	if err != nil {
		t.Fatalf("BuildPageSet failed: %v", err)
	}
	router := engine.NewRouter(pages, engine.NewEmergencyDetector(), engine.NewAgentDispatcher(nil, time.Second))
	m := NewManager(st, router, opts...)
	t.Cleanup(m.Stop)
	return m
}

func inbound(text string) models.InboundMessage {
	return models.InboundMessage{
		Channel:        models.ChannelWhatsApp,
		ExternalUserID: "5215598765432",
		Text:           text,
		ReceivedAt:     time.Now(),
	}
}

func seedPatient(t *testing.T, st store.Store) {
	t.Helper()
	err := st.SavePatient(models.PatientRecord{
		ID:             "pat-1",
		Channel:        models.ChannelWhatsApp,
		ExternalUserID: "5215598765432",
		NameDisplay:    "Luis",
		Plan:           models.PlanPro,
		PlanStatus:     models.PlanStatusActive,
		Specialty:      models.DomainDiabetes,
	})
	if err != nil {
		t.Fatalf("SavePatient failed: %v", err)
	}
}

func TestProcessCreatesSessionFromPatientRecord(t *testing.T) {
	st := store.NewInMemoryStore()
	seedPatient(t, st)
	m := newTestManager(t, st)

	render, err := m.Process(context.Background(), inbound("hola"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !strings.Contains(render.Text, "Luis") {
		t.Errorf("render %q does not greet the patient", render.Text)
	}

	key := models.SessionKey{Channel: models.ChannelWhatsApp, ExternalUserID: "5215598765432"}
	sess, err := st.GetSession(key)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess == nil {
		t.Fatal("session was not persisted")
	}
	if sess.CurrentPage != engine.PageDiabetesMainMenu {
		t.Errorf("persisted page = %s, want %s", sess.CurrentPage, engine.PageDiabetesMainMenu)
	}

	events, err := st.GetEvents(key, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	var found bool
	for _, ev := range events {
		if ev.Type == models.EventStartedSession {
			found = true
		}
	}
	if !found {
		t.Errorf("events %+v missing session start", events)
	}
}

func TestProcessUnknownPatientGetsOnboarding(t *testing.T) {
	st := store.NewInMemoryStore()
	m := newTestManager(t, st)

	render, err := m.Process(context.Background(), inbound("hola"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !strings.Contains(render.Text, "nombre") {
		t.Errorf("render %q does not ask for a name", render.Text)
	}
}

func TestProcessRejectsInvalidMessage(t *testing.T) {
	st := store.NewInMemoryStore()
	m := newTestManager(t, st)

	_, err := m.Process(context.Background(), models.InboundMessage{Channel: models.ChannelWhatsApp})
	if err == nil {
		t.Fatal("expected validation error for message without a user id")
	}
}

func TestProcessSerializesConversationState(t *testing.T) {
	st := store.NewInMemoryStore()
	seedPatient(t, st)
	m := newTestManager(t, st)

	if _, err := m.Process(context.Background(), inbound("hola")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// A second message continues the same session instead of re-entering
	// the plan gate.
	msg := inbound("")
	msg.ButtonID = "MEASUREMENTS"
	render, err := m.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(render.Buttons) == 0 {
		t.Errorf("measurements menu render has no buttons: %q", render.Text)
	}

	key := models.SessionKey{Channel: models.ChannelWhatsApp, ExternalUserID: "5215598765432"}
	sess, _ := st.GetSession(key)
	if sess.CurrentPage != engine.PageDiabetesMeasurementsMenu {
		t.Errorf("persisted page = %s, want %s", sess.CurrentPage, engine.PageDiabetesMeasurementsMenu)
	}
}

func TestIdleTimerEndsSession(t *testing.T) {
	st := store.NewInMemoryStore()
	seedPatient(t, st)
	m := newTestManager(t, st, WithIdleTimeout(30*time.Millisecond))

	if _, err := m.Process(context.Background(), inbound("hola")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	key := models.SessionKey{Channel: models.ChannelWhatsApp, ExternalUserID: "5215598765432"}
	deadline := time.Now().Add(2 * time.Second)
	for {
		sess, err := st.GetSession(key)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if sess != nil && sess.Ended() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session did not expire within the idle window")
		}
		time.Sleep(10 * time.Millisecond)
	}

	events, err := st.GetEvents(key, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	var ended bool
	for _, ev := range events {
		if ev.Type == models.EventSessionEnded && ev.Payload["reason"] == "idle_timeout" {
			ended = true
		}
	}
	if !ended {
		t.Errorf("events %+v missing idle timeout summary", events)
	}
}

// journalStore records the order of session saves and event appends so tests
// can assert durability ordering.
type journalStore struct {
	store.Store
	mu  sync.Mutex
	ops []string
}

func (j *journalStore) SaveSession(sess models.Session) error {
	j.mu.Lock()
	j.ops = append(j.ops, "save:"+string(sess.CurrentPage))
	j.mu.Unlock()
	return j.Store.SaveSession(sess)
}

func (j *journalStore) AddEvent(ev models.ActivityEvent) error {
	j.mu.Lock()
	j.ops = append(j.ops, "event:"+string(ev.Type))
	j.mu.Unlock()
	return j.Store.AddEvent(ev)
}

func TestSessionEndPersistsBeforeSummaryEvent(t *testing.T) {
	js := &journalStore{Store: store.NewInMemoryStore()}
	seedPatient(t, js)
	m := newTestManager(t, js, WithIdleTimeout(time.Hour))

	if _, err := m.Process(context.Background(), inbound("hola")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// Age the stored session past the idle window so the next message takes
	// the lazy expiry path.
	key := models.SessionKey{Channel: models.ChannelWhatsApp, ExternalUserID: "5215598765432"}
	sess, _ := js.GetSession(key)
	sess.LastActivityAt = time.Now().Add(-2 * time.Hour)
	if err := js.SaveSession(*sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if _, err := m.Process(context.Background(), inbound("hola")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	js.mu.Lock()
	ops := append([]string(nil), js.ops...)
	js.mu.Unlock()

	saveIdx, eventIdx := -1, -1
	for i, op := range ops {
		if op == "save:"+string(models.PageEndSession) && saveIdx == -1 {
			saveIdx = i
		}
		if op == "event:"+string(models.EventSessionEnded) && eventIdx == -1 {
			eventIdx = i
		}
	}
	if saveIdx == -1 || eventIdx == -1 {
		t.Fatalf("ops %v missing terminal save or summary event", ops)
	}
	if saveIdx > eventIdx {
		t.Errorf("terminal session save at %d came after SESSION_ENDED event at %d: %v", saveIdx, eventIdx, ops)
	}
}

func TestMessageAfterExpiryStartsFresh(t *testing.T) {
	st := store.NewInMemoryStore()
	seedPatient(t, st)
	m := newTestManager(t, st, WithIdleTimeout(time.Hour))

	if _, err := m.Process(context.Background(), inbound("hola")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// Age the stored session past the idle window to mimic a restart with
	// no armed timer.
	key := models.SessionKey{Channel: models.ChannelWhatsApp, ExternalUserID: "5215598765432"}
	sess, _ := st.GetSession(key)
	sess.LastActivityAt = time.Now().Add(-2 * time.Hour)
	if err := st.SaveSession(*sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	render, err := m.Process(context.Background(), inbound("hola"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !strings.Contains(render.Text, "Luis") {
		t.Errorf("render %q is not a fresh greeting", render.Text)
	}

	fresh, _ := st.GetSession(key)
	if fresh.CurrentPage != engine.PageDiabetesMainMenu {
		t.Errorf("page after expiry = %s, want a fresh main menu", fresh.CurrentPage)
	}
	if len(fresh.History) != 1 {
		t.Errorf("history = %v, want only the fresh entry", fresh.History)
	}
}
