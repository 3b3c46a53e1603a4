package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/clivihealth/careflow/internal/models"
)

// EndSessionText closes a conversation after a terminal transition.
const EndSessionText = "¡Gracias a ti! Que tengas un excelente día. 👋 Escríbeme cuando me necesites."

// ValidationRetryText prefixes the page prompt when a measurement page
// receives input that does not parse as a number.
const ValidationRetryText = "No pude leer ese valor. Envía solo el número, por ejemplo \"95\". 🙏"

// Result is the outcome of routing one inbound message. Events are handed to
// the caller so they can be persisted after the session mutation is durable.
type Result struct {
	Render models.RenderContract
	Events []models.ActivityEvent
}

// Router drives the conversation state machine: one inbound message in, one
// render contract out, with the session mutated in place. Callers serialize
// invocations per session key and persist the session afterwards.
type Router struct {
	pages      *PageSet
	detector   *EmergencyDetector
	dispatcher *AgentDispatcher
}

// NewRouter wires the static page set, the emergency detector, and the
// generative fallback dispatcher.
func NewRouter(pages *PageSet, detector *EmergencyDetector, dispatcher *AgentDispatcher) *Router {
	return &Router{pages: pages, detector: detector, dispatcher: dispatcher}
}

// Route processes one inbound message against the session.
//
// Evaluation order: emergency scan, plan gate (START or main-menu keyword),
// deterministic transitions on the current page, numeric capture with
// conditional rules, free-text capture, and finally the generative fallback.
// The first stage that resolves the message wins.
func (r *Router) Route(ctx context.Context, sess *models.Session, msg models.InboundMessage) (Result, error) {
	// A terminal session absorbs nothing: the next message starts over.
	if sess.Ended() {
		fresh := models.NewSession(sess.Key, msg.ReceivedAt)
		fresh.Patient = sess.Patient
		*sess = fresh
	}
	if sess.LastActivityAt.Before(msg.ReceivedAt) {
		sess.LastActivityAt = msg.ReceivedAt
	}

	raw := msg.Input()
	page, _ := r.pages.Get(sess.CurrentPage)
	input := Classify(page, raw)

	if rule := r.detector.Scan(input, raw); rule != nil {
		return r.escalate(sess, rule, input)
	}

	if sess.CurrentPage == models.PageStart {
		return r.enterPlanGate(sess, models.EventStartedSession)
	}
	if input.Kind == KindExactTrigger && input.Value == MainMenuTrigger {
		return r.enterPlanGate(sess, models.EventClickedButtonMainMenu)
	}

	if page == nil {
		// The stored page no longer exists in the page tables. Reset
		// through the plan gate rather than leaving the session stuck.
		slog.Error("Router session on unknown page, resetting", "key", sess.Key, "page", sess.CurrentPage)
		return r.enterPlanGate(sess, models.EventStartedSession)
	}

	switch input.Kind {
	case KindExactTrigger:
		if res, ok := r.applyTransition(sess, page, input.Value); ok {
			return res, nil
		}
		// An id valid elsewhere but not on this page falls through to
		// the fallback like any other unmatched input.
		return r.fallback(ctx, sess, page, raw)

	case KindNumeric:
		if page.ExpectedField != "" {
			return r.captureMeasurement(sess, page, input)
		}
		if res, ok := r.applyRangeTransition(sess, page, input); ok {
			return res, nil
		}
		return r.fallback(ctx, sess, page, raw)

	default: // KindFreeText
		if page.CaptureText != "" {
			return r.captureText(sess, page, input.Value)
		}
		if page.ExpectedField != "" {
			// Non-numeric input on a measurement page: re-prompt in
			// place, collected params untouched.
			slog.Debug("Router measurement validation failed", "key", sess.Key, "page", page.ID, "input", raw)
			render := page.Render(sess.Patient)
			render.Text = ValidationRetryText + "\n\n" + render.Text
			return Result{Render: render}, nil
		}
		return r.fallback(ctx, sess, page, raw)
	}
}

// escalate moves the session to the emergency page and emits a CRITICAL
// event. Emergencies preempt everything, including the plan gate.
func (r *Router) escalate(sess *models.Session, rule *EmergencyRule, input ClassifiedInput) (Result, error) {
	payload := map[string]string{"rule": rule.Label}
	if input.Kind == KindNumeric {
		payload["value"] = strconv.FormatFloat(input.Num, 'f', -1, 64)
		payload["field"] = input.Field
	}
	sess.VisitPage(rule.Target)
	slog.Warn("Router emergency escalation", "key", sess.Key, "rule", rule.Label, "target", rule.Target)

	target, ok := r.pages.Get(rule.Target)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", models.ErrUnknownTargetPage, rule.Target)
	}
	return Result{
		Render: target.Render(sess.Patient),
		Events: []models.ActivityEvent{
			models.NewActivityEvent(sess.Key, models.EventEmergencyEscalation, rule.Target, rule.Severity, payload),
		},
	}, nil
}

// enterPlanGate resolves the patient's plan and status into an entry page.
// The triggering message is consumed by the gate itself.
func (r *Router) enterPlanGate(sess *models.Session, event models.EventType) (Result, error) {
	target, err := RoutePlan(sess.Patient)
	if err != nil {
		// Undefined plan/status combination: park the session on the
		// onboarding page and surface the error to the caller.
		sess.Domain = models.DomainShared
		sess.VisitPage(PageSharedUserProblems)
		fallbackPage, _ := r.pages.Get(PageSharedUserProblems)
		return Result{
			Render: fallbackPage.Render(sess.Patient),
			Events: []models.ActivityEvent{
				models.NewActivityEvent(sess.Key, event, PageSharedUserProblems, models.SeverityInfo, map[string]string{"error": err.Error()}),
			},
		}, err
	}

	targetPage, ok := r.pages.Get(target)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", models.ErrUnknownTargetPage, target)
	}
	sess.Domain = targetPage.Domain
	sess.ClearParams()
	sess.VisitPage(target)
	slog.Info("Router plan gate entered", "key", sess.Key, "plan", sess.Patient.Plan, "status", sess.Patient.PlanStatus, "target", target)
	return Result{
		Render: targetPage.Render(sess.Patient),
		Events: []models.ActivityEvent{
			models.NewActivityEvent(sess.Key, event, target, models.SeverityInfo, nil),
		},
	}, nil
}

// applyTransition matches a button id against the page's transitions in
// declaration order. Re-pressing the button of the page already entered is a
// no-op at the state level; the target is simply re-rendered.
func (r *Router) applyTransition(sess *models.Session, page *Page, buttonID string) (Result, bool) {
	for i := range page.Transitions {
		t := &page.Transitions[i]
		if t.Trigger.ButtonID == "" || t.Trigger.ButtonID != buttonID {
			continue
		}
		for k, v := range t.SetParams {
			sess.SetParam(k, v)
		}
		res, err := r.enterPage(sess, page, t.Target, t.Event, nil)
		if err != nil {
			slog.Error("Router transition failed", "key", sess.Key, "from", page.ID, "button", buttonID, "error", err)
			return Result{}, false
		}
		return res, true
	}
	return Result{}, false
}

// applyRangeTransition matches numeric input against range-triggered
// transitions, used by pages that branch on a value instead of capturing it.
func (r *Router) applyRangeTransition(sess *models.Session, page *Page, input ClassifiedInput) (Result, bool) {
	for i := range page.Transitions {
		t := &page.Transitions[i]
		if t.Trigger.Range == nil || !t.Trigger.Range.Contains(input.Num) {
			continue
		}
		res, err := r.enterPage(sess, page, t.Target, t.Event, nil)
		if err != nil {
			return Result{}, false
		}
		return res, true
	}
	return Result{}, false
}

// captureMeasurement stores the numeric value under the page's field and
// evaluates the page's conditional rules once the required params are in.
func (r *Router) captureMeasurement(sess *models.Session, page *Page, input ClassifiedInput) (Result, error) {
	value := strconv.FormatFloat(input.Num, 'f', -1, 64)
	sess.SetParam(page.ExpectedField, value)
	events := []models.ActivityEvent{
		models.NewActivityEvent(sess.Key, models.EventMeasurementLogged, page.ID, models.SeverityInfo, map[string]string{
			"field": page.ExpectedField,
			"value": value,
		}),
	}
	slog.Info("Router measurement captured", "key", sess.Key, "field", page.ExpectedField, "value", input.Num)
	return r.resolveRules(sess, page, events)
}

// captureText stores free text under the page's capture param and evaluates
// the conditional rules.
func (r *Router) captureText(sess *models.Session, page *Page, text string) (Result, error) {
	sess.SetParam(page.CaptureText, text)
	if page.CaptureText == "name_display" && sess.Patient.NameDisplay == "" {
		sess.Patient.NameDisplay = text
	}
	return r.resolveRules(sess, page, nil)
}

// resolveRules evaluates the page's conditional rules in order once every
// required parameter is present. The first matching rule responds and moves
// the session; collected params are consumed.
func (r *Router) resolveRules(sess *models.Session, page *Page, events []models.ActivityEvent) (Result, error) {
	for _, name := range page.RequiredParams {
		if _, ok := sess.PendingParams[name]; !ok {
			// Still collecting: keep the session on this page and
			// re-prompt for what is missing.
			return Result{Render: page.Render(sess.Patient), Events: events}, nil
		}
	}

	for i := range page.ConditionalRules {
		rule := &page.ConditionalRules[i]
		val, present := sess.PendingParams[rule.Param]
		if !present {
			continue
		}
		if !rule.MatchAny {
			v, err := strconv.ParseFloat(val, 64)
			if err != nil || !rule.Range.Contains(v) {
				continue
			}
		}
		if rule.Event != "" {
			events = append(events, models.NewActivityEvent(sess.Key, rule.Event, page.ID, models.SeverityInfo, map[string]string{rule.Param: val}))
		}
		sess.ClearParams()

		target := rule.Target
		if target == "" {
			target = page.ID
		}
		res, err := r.enterPage(sess, page, target, models.EventPageTransition, events)
		if err != nil {
			return Result{}, err
		}
		if rule.Respond != "" {
			res.Render.Text = rule.Respond
			if target != models.PageEndSession && target != page.ID {
				if tp, ok := r.pages.Get(target); ok {
					res.Render.Buttons = tp.Buttons
				}
			}
		}
		if rule.Template != "" {
			res.Render.TemplateName = rule.Template
		}
		return res, nil
	}

	// Required params satisfied but no rule fired: stay put and re-prompt.
	slog.Debug("Router no conditional rule matched", "key", sess.Key, "page", page.ID)
	return Result{Render: page.Render(sess.Patient), Events: events}, nil
}

// enterPage moves the session to target and renders its entry. END_SESSION
// and START are virtual pages handled here rather than in the page tables.
func (r *Router) enterPage(sess *models.Session, from *Page, target models.PageID, event models.EventType, events []models.ActivityEvent) (Result, error) {
	switch target {
	case models.PageEndSession:
		sess.VisitPage(models.PageEndSession)
		events = append(events, models.NewActivityEvent(sess.Key, models.EventSessionEnded, from.ID, models.SeverityInfo, map[string]string{
			"pages_visited": strconv.Itoa(len(sess.History)),
			"duration":      time.Since(sess.CreatedAt).Truncate(time.Second).String(),
		}))
		return Result{Render: models.RenderContract{Text: EndSessionText}, Events: events}, nil

	case models.PageStart:
		sess.CurrentPage = models.PageStart
		res, err := r.enterPlanGate(sess, models.EventPageTransition)
		res.Events = append(events, res.Events...)
		return res, err

	default:
		targetPage, ok := r.pages.Get(target)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", models.ErrUnknownTargetPage, target)
		}
		sess.VisitPage(target)
		if event != "" {
			events = append(events, models.NewActivityEvent(sess.Key, event, target, models.SeverityInfo, nil))
		}
		return Result{Render: targetPage.Render(sess.Patient), Events: events}, nil
	}
}

// fallback hands unmatched free text to the generative dispatcher and maps
// the closed outcome set back onto the state machine. Transport failures are
// absorbed: the user gets a static apology and the session does not move.
func (r *Router) fallback(ctx context.Context, sess *models.Session, page *Page, raw string) (Result, error) {
	events := []models.ActivityEvent{
		models.NewActivityEvent(sess.Key, models.EventFallbackInvoked, page.ID, models.SeverityInfo, map[string]string{"input": raw}),
	}

	result, err := r.dispatcher.Fallback(ctx, r.fallbackDomain(sess), sess, raw)
	if err != nil {
		if errors.Is(err, models.ErrFallbackTimeout) || errors.Is(err, models.ErrFallbackUnavailable) {
			return Result{Render: models.RenderContract{Text: FallbackApologyText}, Events: events}, nil
		}
		slog.Error("Router fallback errored", "key", sess.Key, "error", err)
		return Result{Render: models.RenderContract{Text: FallbackApologyText}, Events: events}, nil
	}

	switch result.Outcome {
	case OutcomeEscalate:
		target := r.questionPage(sess)
		res, rerr := r.enterPage(sess, page, target, models.EventComplaintEscalated, events)
		if rerr != nil {
			return Result{}, rerr
		}
		if result.Reply != "" {
			res.Render.Text = result.Reply + "\n\n" + res.Render.Text
		}
		return res, nil

	case OutcomeReturnToMenu:
		res, rerr := r.enterPage(sess, page, MainMenu(r.fallbackDomain(sess)), models.EventPageTransition, events)
		if rerr != nil {
			return Result{}, rerr
		}
		if result.Reply != "" {
			res.Render.Text = result.Reply + "\n\n" + res.Render.Text
		}
		return res, nil

	default: // OutcomeAnswered
		if result.Reply == "" {
			return Result{Render: models.RenderContract{Text: ClarifyText}, Events: events}, nil
		}
		return Result{Render: models.RenderContract{Text: result.Reply}, Events: events}, nil
	}
}

// fallbackDomain picks the domain context for the generative fallback.
func (r *Router) fallbackDomain(sess *models.Session) models.Domain {
	if sess.Domain != "" {
		return sess.Domain
	}
	return models.DomainDiabetes
}

// questionPage is where a human-escalation outcome lands: the specialist
// question flow of the session's domain.
func (r *Router) questionPage(sess *models.Session) models.PageID {
	switch r.fallbackDomain(sess) {
	case models.DomainObesity, models.DomainClub:
		return PageObesityQuestionsTags
	default:
		return PageDiabetesQuestionsTags
	}
}
