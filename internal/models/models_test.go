package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestSessionKeyValidate(t *testing.T) {
	cases := []struct {
		key     SessionKey
		wantErr error
	}{
		{SessionKey{Channel: ChannelWhatsApp, ExternalUserID: "5215512345678"}, nil},
		{SessionKey{Channel: ChannelTelegram, ExternalUserID: "42"}, nil},
		{SessionKey{Channel: "sms", ExternalUserID: "42"}, ErrUnknownChannel},
		{SessionKey{Channel: ChannelWhatsApp, ExternalUserID: ""}, ErrEmptyExternalUserID},
		{SessionKey{Channel: ChannelWhatsApp, ExternalUserID: "   "}, ErrEmptyExternalUserID},
	}
	for _, tc := range cases {
		err := tc.key.Validate()
		if tc.wantErr == nil {
			if err != nil {
				t.Errorf("Validate(%+v) = %v, want nil", tc.key, err)
			}
			continue
		}
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("Validate(%+v) = %v, want %v", tc.key, err, tc.wantErr)
		}
	}
}

func TestInboundMessageInputPrefersButton(t *testing.T) {
	msg := InboundMessage{Text: "hola", ButtonID: "MEASUREMENTS"}
	if got := msg.Input(); got != "MEASUREMENTS" {
		t.Errorf("Input() = %q, want the button id", got)
	}
	msg.ButtonID = ""
	if got := msg.Input(); got != "hola" {
		t.Errorf("Input() = %q, want the text", got)
	}
}

func TestVisitPageBoundsHistory(t *testing.T) {
	sess := NewSession(SessionKey{Channel: ChannelWhatsApp, ExternalUserID: "1234567890"}, time.Now())
	for i := 0; i < MaxHistoryLength+20; i++ {
		sess.VisitPage("diabetes.mainMenu")
	}
	if len(sess.History) != MaxHistoryLength {
		t.Errorf("history length = %d, want %d", len(sess.History), MaxHistoryLength)
	}
	if sess.CurrentPage != PageID("diabetes.mainMenu") {
		t.Errorf("current page = %s", sess.CurrentPage)
	}
}

func TestSessionEnded(t *testing.T) {
	sess := NewSession(SessionKey{Channel: ChannelWhatsApp, ExternalUserID: "1234567890"}, time.Now())
	if sess.Ended() {
		t.Error("fresh session reports ended")
	}
	sess.VisitPage(PageEndSession)
	if !sess.Ended() {
		t.Error("terminal session reports active")
	}
}

func TestSessionRoundTripsThroughJSON(t *testing.T) {
	sess := NewSession(SessionKey{Channel: ChannelTelegram, ExternalUserID: "42"}, time.Now().UTC().Truncate(time.Second))
	sess.Patient = PatientContext{PatientID: "pat-1", NameDisplay: "Ana", Plan: PlanPlus, PlanStatus: PlanStatusSuspended, Specialty: DomainObesity}
	sess.Domain = DomainObesity
	sess.VisitPage("obesity.mainMenu")
	sess.SetParam("weight", "82.5")

	data, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got Session
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.CurrentPage != sess.CurrentPage || got.Patient != sess.Patient {
		t.Errorf("round trip = %+v, want %+v", got, sess)
	}
	if got.PendingParams["weight"] != "82.5" {
		t.Errorf("params = %v", got.PendingParams)
	}
}

func TestPatientRecordContext(t *testing.T) {
	p := PatientRecord{
		ID:             "pat-9",
		Channel:        ChannelWhatsApp,
		ExternalUserID: "5215512345678",
		NameDisplay:    "Luis",
		Plan:           PlanClub,
		PlanStatus:     PlanStatusActive,
		Specialty:      DomainDiabetes,
	}
	ctx := p.Context()
	if ctx.PatientID != "pat-9" || ctx.NameDisplay != "Luis" || ctx.Plan != PlanClub {
		t.Errorf("Context() = %+v", ctx)
	}
	if ctx.PlanStatus != PlanStatusActive || ctx.Specialty != DomainDiabetes {
		t.Errorf("Context() = %+v", ctx)
	}
}

func TestUnknownPatient(t *testing.T) {
	p := UnknownPatient()
	if p.Plan != PlanUnknown {
		t.Errorf("plan = %s, want UNKNOWN", p.Plan)
	}
	if p.NameDisplay != "" {
		t.Errorf("name = %q, want empty", p.NameDisplay)
	}
}
