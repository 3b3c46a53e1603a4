package engine

import "github.com/clivihealth/careflow/internal/models"

// Obesity domain page ids.
const (
	PageObesityMainMenu         models.PageID = "obesity.mainMenu"
	PageObesityApptsMenu        models.PageID = "obesity.apptsMenu"
	PageObesityMeasurementsMenu models.PageID = "obesity.measurementsMenu"
	PageObesityLogWeight        models.PageID = "obesity.logWeight"
	PageObesityLogHip           models.PageID = "obesity.logHip"
	PageObesityLogWaist         models.PageID = "obesity.logWaist"
	PageObesityLogNeck          models.PageID = "obesity.logNeck"
	PageObesityReports          models.PageID = "obesity.measurementsReports"
	PageObesityQuestionsTags    models.PageID = "obesity.questionsTags"
	PageObesitySendQuestion     models.PageID = "obesity.sendQuestion"
)

const bodyMeasurementLoggedText = "¡Registrado! Tu medición quedó guardada en tu expediente. 📏"

func obesityPages() []*Page {
	return []*Page{
		{
			ID:        PageObesityMainMenu,
			Domain:    models.DomainObesity,
			EntryText: "Hola %s 👋 Soy Dr. Clivi, tu asistente de manejo de peso. ¿En qué te puedo apoyar hoy?",
			Buttons: []models.Button{
				{ID: "APPOINTMENTS", Label: "Citas 🗓️"},
				{ID: "MEASUREMENTS", Label: "Mediciones 📏"},
				{ID: "MEASUREMENTS_REPORT", Label: "Reporte mediciones 📈"},
				{ID: "QUESTION_TYPE", Label: "Enviar pregunta ❔"},
				{ID: "NO_NEEDED_QUESTION_PATIENT", Label: "No es necesario 👍"},
				{ID: "PATIENT_COMPLAINT", Label: "Presentar queja 📣"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "APPOINTMENTS"}, Target: PageObesityApptsMenu, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "MEASUREMENTS"}, Target: PageObesityMeasurementsMenu, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "MEASUREMENTS_REPORT"}, Target: PageObesityReports, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "QUESTION_TYPE"}, Target: PageObesityQuestionsTags, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "NO_NEEDED_QUESTION_PATIENT"}, Target: models.PageEndSession, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "PATIENT_COMPLAINT"}, Target: PageSharedPresentComplaint, Event: models.EventClickedButtonMainMenu},
			},
		},
		{
			ID:        PageObesityApptsMenu,
			Domain:    models.DomainObesity,
			EntryText: "Citas 🗓️ ¿Qué necesitas hacer?",
			Buttons: []models.Button{
				{ID: "APPOINTMENTS_LIST_SEND", Label: "Ver mis citas"},
				{ID: "APPOINTMENT_RESCHEDULER", Label: "Re-agendar cita"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "APPOINTMENTS_LIST_SEND"}, Target: models.PageEndSession},
				{Trigger: Trigger{ButtonID: "APPOINTMENT_RESCHEDULER"}, Target: models.PageEndSession},
			},
		},
		{
			ID:        PageObesityMeasurementsMenu,
			Domain:    models.DomainObesity,
			EntryText: "Mediciones 📏 ¿Qué medición quieres registrar?",
			Buttons: []models.Button{
				{ID: "LOG_WEIGHT", Label: "Peso"},
				{ID: "LOG_HIP", Label: "Cadera"},
				{ID: "LOG_WAIST", Label: "Cintura"},
				{ID: "LOG_NECK", Label: "Cuello"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "LOG_WEIGHT"}, Target: PageObesityLogWeight},
				{Trigger: Trigger{ButtonID: "LOG_HIP"}, Target: PageObesityLogHip},
				{Trigger: Trigger{ButtonID: "LOG_WAIST"}, Target: PageObesityLogWaist},
				{Trigger: Trigger{ButtonID: "LOG_NECK"}, Target: PageObesityLogNeck},
			},
		},
		numericLogPage(PageObesityLogWeight, FieldWeight,
			"Por favor, envía tu peso actual en kilogramos. Ejemplo: 70.5"),
		numericLogPage(PageObesityLogHip, FieldHip,
			"Por favor, envía tu medida de cadera en centímetros. Ejemplo: 95"),
		numericLogPage(PageObesityLogWaist, FieldWaist,
			"Por favor, envía tu medida de cintura en centímetros. Ejemplo: 80"),
		numericLogPage(PageObesityLogNeck, FieldNeck,
			"Por favor, envía tu medida de cuello en centímetros. Ejemplo: 35"),
		{
			ID:        PageObesityReports,
			Domain:    models.DomainObesity,
			EntryText: "Reporte de mediciones 📈 ¿Cuál necesitas?",
			Buttons: []models.Button{
				{ID: "FULL_REPORT", Label: "Reporte completo"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "FULL_REPORT"}, Target: models.PageEndSession},
			},
		},
		{
			ID:        PageObesityQuestionsTags,
			Domain:    models.DomainObesity,
			EntryText: "Enviar pregunta a agente/especialista ❔ ¿Sobre qué tema es tu pregunta?",
			Buttons: []models.Button{
				{ID: "NUTRITION_QUESTION", Label: "Nutrición"},
				{ID: "PSYCHOLOGY_QUESTION", Label: "Psicología"},
				{ID: "HIGH_SPECIALIZATION_QUESTION", Label: "Alta especialidad"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "NUTRITION_QUESTION"}, Target: PageObesitySendQuestion, SetParams: map[string]string{"question_tag": "NUTRITION_QUESTION"}},
				{Trigger: Trigger{ButtonID: "PSYCHOLOGY_QUESTION"}, Target: PageObesitySendQuestion, SetParams: map[string]string{"question_tag": "PSYCHOLOGY_QUESTION"}},
				{Trigger: Trigger{ButtonID: "HIGH_SPECIALIZATION_QUESTION"}, Target: PageObesitySendQuestion, SetParams: map[string]string{"question_tag": "HIGH_SPECIALIZATION_QUESTION"}},
			},
		},
		{
			ID:             PageObesitySendQuestion,
			Domain:         models.DomainObesity,
			EntryText:      "Escribe tu pregunta y la enviaremos a nuestro equipo de especialistas. ✍️",
			CaptureText:    "question_text",
			RequiredParams: []string{"question_tag", "question_text"},
			ConditionalRules: []ConditionalRule{
				{Param: "question_text", MatchAny: true, Respond: "Tu pregunta fue enviada a nuestro equipo. Te responderemos muy pronto. Gracias. 🙌", Target: models.PageEndSession},
			},
		},
	}
}

// numericLogPage builds a single-measurement capture page with a
// catch-all confirmation rule returning to the obesity main menu.
func numericLogPage(id models.PageID, field, prompt string) *Page {
	return &Page{
		ID:             id,
		Domain:         models.DomainObesity,
		EntryText:      prompt,
		ExpectedField:  field,
		RequiredParams: []string{field},
		ConditionalRules: []ConditionalRule{
			{Param: field, Range: Between(0, Unbounded), Respond: bodyMeasurementLoggedText, Target: PageObesityMainMenu},
		},
	}
}
