package engine

import "github.com/clivihealth/careflow/internal/models"

// Shared and club page ids.
const (
	PageSharedUserProblems     models.PageID = "shared.userProblems"
	PageSharedReactivation     models.PageID = "shared.reactivation"
	PageSharedEmergency        models.PageID = "shared.emergencyEscalation"
	PageSharedPresentComplaint models.PageID = "shared.presentComplaint"
	PageClubMainMenu           models.PageID = "club.mainMenu"
	PageClubReactivation       models.PageID = "club.reactivation"
)

func sharedPages() []*Page {
	return []*Page{
		{
			ID:             PageSharedUserProblems,
			Domain:         models.DomainShared,
			EntryText:      "¡Bienvenido a Dr. Clivi! 👋 Para ofrecerte el mejor servicio personalizado, necesitamos conocerte un poco. ¿Cuál es tu nombre?",
			CaptureText:    "name_display",
			RequiredParams: []string{"name_display"},
			ConditionalRules: []ConditionalRule{
				{Param: "name_display", MatchAny: true, Respond: "Gracias. Un agente de nuestro equipo te contactará para completar tu registro y asignarte un plan. 🙌", Target: models.PageEndSession},
			},
		},
		{
			ID:           PageSharedReactivation,
			Domain:       models.DomainShared,
			EntryText:    "Tu plan se encuentra cancelado. Si quieres reactivarlo, nuestro equipo de soporte te puede ayudar. 💳",
			TemplateName: "payment_ai_catcher",
			Buttons: []models.Button{
				{ID: "CALL_SUPPORT", Label: "Hablar con soporte"},
				{ID: "NO_NEEDED_QUESTION_PATIENT", Label: "No es necesario 👍"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "CALL_SUPPORT"}, Target: models.PageEndSession},
				{Trigger: Trigger{ButtonID: "NO_NEEDED_QUESTION_PATIENT"}, Target: models.PageEndSession},
			},
		},
		{
			ID:           PageSharedEmergency,
			Domain:       models.DomainShared,
			EntryText:    "🚨 Comprendo tu situación y es importante actuar ahora. Te estamos conectando con nuestro equipo de especialistas. Si presentas síntomas graves, llama al 911 de inmediato.",
			TemplateName: "call_specialists_ai",
			Buttons: []models.Button{
				{ID: "BACK_TO_MENU", Label: "Volver al menú"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "BACK_TO_MENU"}, Target: models.PageStart},
			},
		},
		{
			ID:             PageSharedPresentComplaint,
			Domain:         models.DomainShared,
			EntryText:      "Lamento mucho tu mala experiencia. Cuéntame qué pasó y escalaré tu caso con un agente de soporte. 📣",
			CaptureText:    "complaint_text",
			RequiredParams: []string{"complaint_text"},
			ConditionalRules: []ConditionalRule{
				{Param: "complaint_text", MatchAny: true, Respond: "Estoy escalando tu caso con un agente de soporte. Dame unos momentos, por favor.", Target: models.PageEndSession, Event: models.EventComplaintEscalated},
			},
		},
	}
}

func clubPages() []*Page {
	return []*Page{
		{
			ID:        PageClubMainMenu,
			Domain:    models.DomainClub,
			EntryText: "Hola %s 👋 Bienvenido a Clivi Club. ¿En qué te puedo apoyar hoy?",
			Buttons: []models.Button{
				{ID: "MEASUREMENTS", Label: "Mediciones 📏"},
				{ID: "QUESTION_TYPE", Label: "Enviar pregunta ❔"},
				{ID: "NO_NEEDED_QUESTION_PATIENT", Label: "No es necesario 👍"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "MEASUREMENTS"}, Target: PageObesityMeasurementsMenu, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "QUESTION_TYPE"}, Target: PageObesityQuestionsTags, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "NO_NEEDED_QUESTION_PATIENT"}, Target: models.PageEndSession, Event: models.EventClickedButtonMainMenu},
			},
		},
		{
			ID:           PageClubReactivation,
			Domain:       models.DomainClub,
			EntryText:    "Tu membresía Clivi Club está cancelada. ¿Quieres reactivarla? Nuestro equipo te puede apoyar con el proceso. 💳",
			TemplateName: "payment_ai_catcher",
			Buttons: []models.Button{
				{ID: "CALL_SUPPORT", Label: "Hablar con soporte"},
				{ID: "NO_NEEDED_QUESTION_PATIENT", Label: "No es necesario 👍"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "CALL_SUPPORT"}, Target: models.PageEndSession},
				{Trigger: Trigger{ButtonID: "NO_NEEDED_QUESTION_PATIENT"}, Target: models.PageEndSession},
			},
		},
	}
}
