package engine

import "github.com/clivihealth/careflow/internal/models"

// Diabetes domain page ids.
const (
	PageDiabetesMainMenu         models.PageID = "diabetes.mainMenu"
	PageDiabetesApptsMenu        models.PageID = "diabetes.apptsMenu"
	PageDiabetesMeasurementsMenu models.PageID = "diabetes.measurementsMenu"
	PageDiabetesGlucoseFasting   models.PageID = "diabetes.glucoseValueLogFasting"
	PageDiabetesGlucosePostMeal  models.PageID = "diabetes.glucoseValueLogPostMeal"
	PageDiabetesLogWeight        models.PageID = "diabetes.logWeight"
	PageDiabetesReports          models.PageID = "diabetes.measurementsReports"
	PageDiabetesInvoiceLabs      models.PageID = "diabetes.invoiceLabsMenu"
	PageDiabetesMedsSupplies     models.PageID = "diabetes.medsSuppliesStatus"
	PageDiabetesQuestionsTags    models.PageID = "diabetes.questionsTags"
	PageDiabetesSendQuestion     models.PageID = "diabetes.sendQuestion"
)

// Measurement field names shared by classifier, router and emergency rules.
const (
	FieldGlucoseFasting  = "glucose_fasting"
	FieldGlucosePostMeal = "glucose_post_meal"
	FieldWeight          = "weight"
	FieldHip             = "hip"
	FieldWaist           = "waist"
	FieldNeck            = "neck"
)

// Conditional-response copy for glucose buckets. The sub-70 rule is a
// second-chance net for values entered as stored history; live emergencies
// are caught earlier by the detector.
const (
	glucoseHypoText   = "Tu glucosa está por debajo de 70 mg/dl. Si te sientes mal, consume 15g de azúcar de acción rápida y vuelve a medir en 15 minutos. Nuestro equipo médico revisará tu registro."
	glucoseNormalText = "¡Muy bien! Tu glucosa está en rango normal (70-180 mg/dl). Sigue así con tu plan de cuidado. 💪"
	glucoseHighText   = "Tu glucosa está elevada (más de 180 mg/dl). Revisa tu alimentación de hoy y mantente hidratado. Si se repite, coméntalo con tu especialista en tu próxima consulta."
)

func diabetesPages() []*Page {
	return []*Page{
		{
			ID:        PageDiabetesMainMenu,
			Domain:    models.DomainDiabetes,
			EntryText: "Hola %s 👋 Soy Dr. Clivi, tu asistente de diabetes. ¿En qué te puedo apoyar hoy?",
			Buttons: []models.Button{
				{ID: "APPOINTMENTS", Label: "Citas 🗓️"},
				{ID: "MEASUREMENTS", Label: "Mediciones 📏"},
				{ID: "MEASUREMENTS_REPORT", Label: "Reporte mediciones 📈"},
				{ID: "INVOICE_LABS", Label: "Facturas y estudios 📂"},
				{ID: "MEDS_GLP", Label: "Estatus de envíos 📦"},
				{ID: "QUESTION_TYPE", Label: "Enviar pregunta ❔"},
				{ID: "NO_NEEDED_QUESTION_PATIENT", Label: "No es necesario 👍"},
				{ID: "PATIENT_COMPLAINT", Label: "Presentar queja 📣"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "APPOINTMENTS"}, Target: PageDiabetesApptsMenu, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "MEASUREMENTS"}, Target: PageDiabetesMeasurementsMenu, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "MEASUREMENTS_REPORT"}, Target: PageDiabetesReports, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "INVOICE_LABS"}, Target: PageDiabetesInvoiceLabs, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "MEDS_GLP"}, Target: PageDiabetesMedsSupplies, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "QUESTION_TYPE"}, Target: PageDiabetesQuestionsTags, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "NO_NEEDED_QUESTION_PATIENT"}, Target: models.PageEndSession, Event: models.EventClickedButtonMainMenu},
				{Trigger: Trigger{ButtonID: "PATIENT_COMPLAINT"}, Target: PageSharedPresentComplaint, Event: models.EventClickedButtonMainMenu},
			},
		},
		{
			ID:        PageDiabetesApptsMenu,
			Domain:    models.DomainDiabetes,
			EntryText: "Citas 🗓️ ¿Qué necesitas hacer?",
			Buttons: []models.Button{
				{ID: "APPOINTMENTS_LIST_SEND", Label: "Ver mis citas"},
				{ID: "APPOINTMENT_RESCHEDULER", Label: "Re-agendar cita"},
				{ID: "SEND_QUESTION", Label: "Enviar pregunta"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "APPOINTMENTS_LIST_SEND"}, Target: models.PageEndSession},
				{Trigger: Trigger{ButtonID: "APPOINTMENT_RESCHEDULER"}, Target: models.PageEndSession},
				{Trigger: Trigger{ButtonID: "SEND_QUESTION"}, Target: PageDiabetesSendQuestion, SetParams: map[string]string{"question_tag": "APPOINTMENTS"}},
			},
		},
		{
			ID:        PageDiabetesMeasurementsMenu,
			Domain:    models.DomainDiabetes,
			EntryText: "Mediciones 📏 ¿Qué medición quieres registrar?",
			Buttons: []models.Button{
				{ID: "LOG_WEIGHT", Label: "Peso"},
				{ID: "LOG_GLUCOSE_FASTING", Label: "Glucosa en ayunas"},
				{ID: "LOG_GLUCOSE_POST_MEAL", Label: "Glucosa post comida"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "LOG_WEIGHT"}, Target: PageDiabetesLogWeight},
				{Trigger: Trigger{ButtonID: "LOG_GLUCOSE_FASTING"}, Target: PageDiabetesGlucoseFasting},
				{Trigger: Trigger{ButtonID: "LOG_GLUCOSE_POST_MEAL"}, Target: PageDiabetesGlucosePostMeal},
			},
		},
		{
			ID:             PageDiabetesGlucoseFasting,
			Domain:         models.DomainDiabetes,
			EntryText:      "Por favor, envía tu glucosa en ayunas en mg/dl. Ejemplo: 95",
			ExpectedField:  FieldGlucoseFasting,
			RequiredParams: []string{FieldGlucoseFasting},
			ConditionalRules: []ConditionalRule{
				{Param: FieldGlucoseFasting, Range: Below(70), Respond: glucoseHypoText, Target: PageDiabetesMainMenu},
				{Param: FieldGlucoseFasting, Range: Between(70, 180), Respond: glucoseNormalText, Target: PageDiabetesMainMenu},
				{Param: FieldGlucoseFasting, Range: AboveUpTo(180, 300), Respond: glucoseHighText, Target: PageDiabetesMainMenu},
			},
		},
		{
			ID:             PageDiabetesGlucosePostMeal,
			Domain:         models.DomainDiabetes,
			EntryText:      "Por favor, envía tu glucosa post comida en mg/dl. Ejemplo: 140",
			ExpectedField:  FieldGlucosePostMeal,
			RequiredParams: []string{FieldGlucosePostMeal},
			ConditionalRules: []ConditionalRule{
				{Param: FieldGlucosePostMeal, Range: Below(70), Respond: glucoseHypoText, Target: PageDiabetesMainMenu},
				{Param: FieldGlucosePostMeal, Range: Between(70, 180), Respond: glucoseNormalText, Target: PageDiabetesMainMenu},
				{Param: FieldGlucosePostMeal, Range: AboveUpTo(180, 300), Respond: glucoseHighText, Target: PageDiabetesMainMenu},
			},
		},
		{
			ID:             PageDiabetesLogWeight,
			Domain:         models.DomainDiabetes,
			EntryText:      "Por favor, envía tu peso actual en kilogramos. Ejemplo: 70.5",
			ExpectedField:  FieldWeight,
			RequiredParams: []string{FieldWeight},
			ConditionalRules: []ConditionalRule{
				{Param: FieldWeight, Range: Between(0, Unbounded), Respond: "¡Registrado! Tu peso quedó guardado en tu expediente. 📏", Target: PageDiabetesMainMenu},
			},
		},
		{
			ID:        PageDiabetesReports,
			Domain:    models.DomainDiabetes,
			EntryText: "Reporte de mediciones 📈 ¿Cuál necesitas?",
			Buttons: []models.Button{
				{ID: "FULL_REPORT", Label: "Reporte completo"},
				{ID: "GLUCOSE_REPORT", Label: "Reporte de glucosa"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "FULL_REPORT"}, Target: models.PageEndSession},
				{Trigger: Trigger{ButtonID: "GLUCOSE_REPORT"}, Target: models.PageEndSession},
			},
		},
		{
			ID:        PageDiabetesInvoiceLabs,
			Domain:    models.DomainDiabetes,
			EntryText: "Facturación, estudios y órdenes 📂 ¿Qué necesitas?",
			Buttons: []models.Button{
				{ID: "INVOICE", Label: "Factura"},
				{ID: "UPLOAD_LABS", Label: "Subir estudios"},
				{ID: "CALL_SUPPORT", Label: "Hablar con soporte"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "INVOICE"}, Target: models.PageEndSession},
				{Trigger: Trigger{ButtonID: "UPLOAD_LABS"}, Target: models.PageEndSession},
				{Trigger: Trigger{ButtonID: "CALL_SUPPORT"}, Target: models.PageEndSession},
			},
		},
		{
			ID:           PageDiabetesMedsSupplies,
			Domain:       models.DomainDiabetes,
			EntryText:    "Me parece que quieres apoyo con tus envíos. Yo te puedo ayudar 📦",
			TemplateName: "supplies_ai_catcher",
			Buttons: []models.Button{
				{ID: "SEND_QUESTION", Label: "Enviar pregunta"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "SEND_QUESTION"}, Target: PageDiabetesSendQuestion, SetParams: map[string]string{"question_tag": "SUPPLIES_QUESTION"}},
			},
		},
		{
			ID:        PageDiabetesQuestionsTags,
			Domain:    models.DomainDiabetes,
			EntryText: "Enviar pregunta a agente/especialista ❔ ¿Sobre qué tema es tu pregunta?",
			Buttons: []models.Button{
				{ID: "DIABETES_QUESTION", Label: "Diabetes"},
				{ID: "NUTRITION_QUESTION", Label: "Nutrición"},
				{ID: "PSYCHOLOGY_QUESTION", Label: "Psicología"},
				{ID: "SUPPLIES_QUESTION", Label: "Insumos"},
				{ID: "HIGH_SPECIALIZATION_QUESTION", Label: "Alta especialidad"},
			},
			Transitions: []Transition{
				{Trigger: Trigger{ButtonID: "DIABETES_QUESTION"}, Target: PageDiabetesSendQuestion, SetParams: map[string]string{"question_tag": "DIABETES_QUESTION"}},
				{Trigger: Trigger{ButtonID: "NUTRITION_QUESTION"}, Target: PageDiabetesSendQuestion, SetParams: map[string]string{"question_tag": "NUTRITION_QUESTION"}},
				{Trigger: Trigger{ButtonID: "PSYCHOLOGY_QUESTION"}, Target: PageDiabetesSendQuestion, SetParams: map[string]string{"question_tag": "PSYCHOLOGY_QUESTION"}},
				{Trigger: Trigger{ButtonID: "SUPPLIES_QUESTION"}, Target: PageDiabetesSendQuestion, SetParams: map[string]string{"question_tag": "SUPPLIES_QUESTION"}},
				{Trigger: Trigger{ButtonID: "HIGH_SPECIALIZATION_QUESTION"}, Target: PageDiabetesSendQuestion, SetParams: map[string]string{"question_tag": "HIGH_SPECIALIZATION_QUESTION"}},
			},
		},
		{
			ID:             PageDiabetesSendQuestion,
			Domain:         models.DomainDiabetes,
			EntryText:      "Escribe tu pregunta y la enviaremos a nuestro equipo de especialistas. ✍️",
			CaptureText:    "question_text",
			RequiredParams: []string{"question_tag", "question_text"},
			ConditionalRules: []ConditionalRule{
				{Param: "question_text", MatchAny: true, Respond: "Tu pregunta fue enviada a nuestro equipo. Te responderemos muy pronto. Gracias. 🙌", Target: models.PageEndSession},
			},
		},
	}
}
