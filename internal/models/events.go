// Package models defines activity event structures emitted by the engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an activity event.
type EventType string

const (
	// EventStartedSession is emitted when a session passes the plan gate.
	EventStartedSession EventType = "STARTED_SESSION_DATE"
	// EventClickedButtonMainMenu is emitted on main-menu button selections.
	EventClickedButtonMainMenu EventType = "CLICKED_BUTTON_MAIN_MENU"
	// EventPageTransition is emitted on every deterministic page transition.
	EventPageTransition EventType = "PAGE_TRANSITION"
	// EventMeasurementLogged is emitted when a numeric measurement is captured.
	EventMeasurementLogged EventType = "MEASUREMENT_LOGGED"
	// EventEmergencyEscalation is emitted when an emergency rule matches.
	EventEmergencyEscalation EventType = "EMERGENCY_ESCALATION"
	// EventFallbackInvoked is emitted when the generative fallback runs.
	EventFallbackInvoked EventType = "FALLBACK_INVOKED"
	// EventComplaintEscalated is emitted when a complaint reaches the helpdesk.
	EventComplaintEscalated EventType = "COMPLAINT_ESCALATED"
	// EventSessionEnded is emitted on explicit end or inactivity expiry.
	EventSessionEnded EventType = "SESSION_ENDED"
)

// Severity grades an activity event.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityCritical Severity = "CRITICAL"
)

// ActivityEvent is an immutable record emitted as a side effect of routing.
// Delivery is fire-and-forget; failure must never block routing.
type ActivityEvent struct {
	ID         string            `json:"id"`
	SessionKey SessionKey        `json:"session_key"`
	Type       EventType         `json:"type"`
	PageID     PageID            `json:"page_id,omitempty"`
	Severity   Severity          `json:"severity"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    map[string]string `json:"payload,omitempty"`
}

// NewActivityEvent builds an event with a fresh id and the current time.
func NewActivityEvent(key SessionKey, t EventType, page PageID, severity Severity, payload map[string]string) ActivityEvent {
	return ActivityEvent{
		ID:         uuid.NewString(),
		SessionKey: key,
		Type:       t,
		PageID:     page,
		Severity:   severity,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}
