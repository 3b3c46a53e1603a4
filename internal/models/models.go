// Package models defines the core data structures for careflow.
//
// It includes the session value object, patient context, inbound/outbound
// message contracts, and activity events shared across modules.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Channel identifies the messaging channel a conversation runs on.
type Channel string

const (
	// ChannelTelegram is the Telegram Bot API channel.
	ChannelTelegram Channel = "telegram"
	// ChannelWhatsApp is the WhatsApp channel (whatsmeow or Twilio transport).
	ChannelWhatsApp Channel = "whatsapp"
)

// IsValidChannel checks if the given channel is supported.
func IsValidChannel(c Channel) bool {
	switch c {
	case ChannelTelegram, ChannelWhatsApp:
		return true
	default:
		return false
	}
}

// Plan is the patient's subscription tier.
type Plan string

const (
	PlanPro     Plan = "PRO"
	PlanPlus    Plan = "PLUS"
	PlanBasic   Plan = "BASIC"
	PlanClub    Plan = "CLUB"
	PlanUnknown Plan = "UNKNOWN"
)

// PlanStatus is the lifecycle status of a patient's plan.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusSuspended PlanStatus = "SUSPENDED"
	PlanStatusCanceled  PlanStatus = "CANCELED"
)

// Domain identifies which specialty page set a conversation uses.
type Domain string

const (
	DomainDiabetes Domain = "diabetes"
	DomainObesity  Domain = "obesity"
	DomainShared   Domain = "shared"
	DomainClub     Domain = "club"
)

// PageID identifies one state in the conversation state machine.
// Domain-qualified, e.g. "diabetes.mainMenu".
type PageID string

const (
	// PageStart is the initial pseudo-state of every new session.
	PageStart PageID = "START"
	// PageEndSession is the terminal, absorbing state.
	PageEndSession PageID = "END_SESSION"
)

// Error variables for the engine's failure taxonomy.
var (
	ErrEmptyExternalUserID = errors.New("external user id cannot be empty")
	ErrUnknownChannel      = errors.New("unknown channel")
	ErrUndefinedPlanRoute  = errors.New("plan/status combination has no defined route")
	ErrUnknownTargetPage   = errors.New("transition references unknown target page")
	ErrInvalidMeasurement  = errors.New("measurement value is not valid for this page")
	ErrFallbackTimeout     = errors.New("generative fallback exceeded its deadline")
	ErrFallbackUnavailable = errors.New("generative fallback is not configured")
	ErrSessionNotFound     = errors.New("session not found")
	ErrStoreUnavailable    = errors.New("session store unavailable")
)

// SessionKey uniquely identifies a session by channel and external user id.
type SessionKey struct {
	Channel        Channel `json:"channel"`
	ExternalUserID string  `json:"external_user_id"`
}

// Validate checks that a session key is well formed.
func (k SessionKey) Validate() error {
	if !IsValidChannel(k.Channel) {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, k.Channel)
	}
	if strings.TrimSpace(k.ExternalUserID) == "" {
		return ErrEmptyExternalUserID
	}
	return nil
}

// String returns the canonical "channel:externalUserId" form used as a map key.
func (k SessionKey) String() string {
	return string(k.Channel) + ":" + k.ExternalUserID
}

// PatientContext is the plan-eligibility context loaded for a patient.
type PatientContext struct {
	PatientID   string     `json:"patient_id"`
	NameDisplay string     `json:"name_display"`
	Plan        Plan       `json:"plan"`
	PlanStatus  PlanStatus `json:"plan_status"`
	Specialty   Domain     `json:"specialty"` // assigned specialty: diabetes or obesity
}

// UnknownPatient returns the context used when no patient record exists.
func UnknownPatient() PatientContext {
	return PatientContext{Plan: PlanUnknown}
}

// MaxHistoryLength bounds the visited-page history kept per session.
const MaxHistoryLength = 50

// Session is the per-conversation state owned by the per-key serialized path.
type Session struct {
	Key            SessionKey        `json:"key"`
	Patient        PatientContext    `json:"patient"`
	Domain         Domain            `json:"domain,omitempty"`
	CurrentPage    PageID            `json:"current_page"`
	PendingParams  map[string]string `json:"pending_params,omitempty"`
	History        []PageID          `json:"history,omitempty"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewSession creates a fresh session at the START page.
func NewSession(key SessionKey, now time.Time) Session {
	return Session{
		Key:            key,
		CurrentPage:    PageStart,
		PendingParams:  make(map[string]string),
		LastActivityAt: now,
		CreatedAt:      now,
	}
}

// SetParam records a collected form parameter.
func (s *Session) SetParam(name, value string) {
	if s.PendingParams == nil {
		s.PendingParams = make(map[string]string)
	}
	s.PendingParams[name] = value
}

// ClearParams drops all collected parameters after a page's required set has
// been satisfied and consumed.
func (s *Session) ClearParams() {
	s.PendingParams = make(map[string]string)
}

// VisitPage moves the session to a page and appends it to the bounded history.
func (s *Session) VisitPage(page PageID) {
	s.CurrentPage = page
	s.History = append(s.History, page)
	if len(s.History) > MaxHistoryLength {
		s.History = s.History[len(s.History)-MaxHistoryLength:]
	}
}

// Ended reports whether the session reached the terminal state.
func (s *Session) Ended() bool {
	return s.CurrentPage == PageEndSession
}

// InboundMessage is a normalized message produced by a channel adapter.
type InboundMessage struct {
	Channel        Channel   `json:"channel"`
	ExternalUserID string    `json:"external_user_id"`
	Text           string    `json:"text,omitempty"`
	ButtonID       string    `json:"button_id,omitempty"`
	MediaRef       string    `json:"media_ref,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
}

// Validate performs basic validation on an inbound message.
func (m *InboundMessage) Validate() error {
	return m.Key().Validate()
}

// Key returns the session key the message belongs to.
func (m *InboundMessage) Key() SessionKey {
	return SessionKey{Channel: m.Channel, ExternalUserID: m.ExternalUserID}
}

// Input returns the raw input for classification. A pressed button id takes
// precedence over free text.
func (m *InboundMessage) Input() string {
	if m.ButtonID != "" {
		return m.ButtonID
	}
	return m.Text
}

// Button is a selectable option in the render contract.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// RenderContract is the channel-agnostic outbound message produced by the
// engine and rendered by a channel adapter.
type RenderContract struct {
	Text         string   `json:"text"`
	Buttons      []Button `json:"buttons,omitempty"`
	TemplateName string   `json:"template_name,omitempty"`
}
