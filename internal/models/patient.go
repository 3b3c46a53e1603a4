package models

// PatientRecord is the stored patient profile, keyed by the messaging
// identity the patient writes from. It is the source the per-session
// PatientContext snapshot is taken from.
type PatientRecord struct {
	ID             string     `json:"id"`
	Channel        Channel    `json:"channel"`
	ExternalUserID string     `json:"external_user_id"`
	NameDisplay    string     `json:"name_display,omitempty"`
	Plan           Plan       `json:"plan"`
	PlanStatus     PlanStatus `json:"plan_status"`
	Specialty      Domain     `json:"specialty,omitempty"`
}

// Context converts the stored record into the routing snapshot carried by a
// session.
func (p PatientRecord) Context() PatientContext {
	return PatientContext{
		PatientID:   p.ID,
		NameDisplay: p.NameDisplay,
		Plan:        p.Plan,
		PlanStatus:  p.PlanStatus,
		Specialty:   p.Specialty,
	}
}
