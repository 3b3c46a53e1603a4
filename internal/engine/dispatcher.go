package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clivihealth/careflow/internal/models"
)

// FallbackOutcome is the closed set of results the generative fallback may
// produce. The fallback may never invent arbitrary new states.
type FallbackOutcome string

const (
	// OutcomeAnswered means the question was answered in place; the session
	// stays on its current page.
	OutcomeAnswered FallbackOutcome = "answered_in_place"
	// OutcomeEscalate means the conversation must reach a human specialist.
	OutcomeEscalate FallbackOutcome = "escalate_to_human"
	// OutcomeReturnToMenu sends the user back to their main menu.
	OutcomeReturnToMenu FallbackOutcome = "return_to_menu"
)

// FallbackResult carries the fallback's reply and its classified outcome.
type FallbackResult struct {
	Outcome FallbackOutcome
	Reply   string
}

// GenAIClient is the generative collaborator consumed by the dispatcher.
type GenAIClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// DefaultFallbackTimeout bounds the generative call; on expiry the session
// stays put and a static apology is rendered instead.
const DefaultFallbackTimeout = 20 * time.Second

// FallbackApologyText is the static response substituted on fallback failure.
const FallbackApologyText = "Lo siento, en este momento no puedo responder tu pregunta. Escribe \"menú\" para ver las opciones disponibles, o intenta de nuevo en unos minutos. 🙏"

// ClarifyText is the prompt surfaced when the fallback is inconclusive.
const ClarifyText = "Soy Dr. Clivi, solo para estar seguro: ¿me puedes contar un poco más sobre lo que necesitas? También puedes escribir \"menú\" para ver las opciones."

// domainContexts are the system context strings packaged with every fallback
// call, keyed by specialty. Responses are constrained to Spanish.
var domainContexts = map[models.Domain]string{
	models.DomainDiabetes: "Eres Dr. Clivi, asistente de un programa de cuidado de diabetes tipo 2. " +
		"Responde SIEMPRE en español, con tono profesional y empático. " +
		"No des diagnósticos; ante síntomas graves indica contactar a los especialistas del programa. " +
		"Si la pregunta requiere atención humana, inicia tu respuesta con [ESCALAR]. " +
		"Si el usuario busca las opciones del servicio, inicia tu respuesta con [MENU].",
	models.DomainObesity: "Eres Dr. Clivi, asistente de un programa de manejo de peso y obesidad. " +
		"Responde SIEMPRE en español, con tono profesional y empático. " +
		"No des diagnósticos; ante síntomas graves indica contactar a los especialistas del programa. " +
		"Si la pregunta requiere atención humana, inicia tu respuesta con [ESCALAR]. " +
		"Si el usuario busca las opciones del servicio, inicia tu respuesta con [MENU].",
}

// AgentDispatcher selects the domain page set at plan-gate time and exposes
// escalation to the generative fallback.
type AgentDispatcher struct {
	genai   GenAIClient
	timeout time.Duration
}

// NewAgentDispatcher creates a dispatcher. A nil client disables the
// generative path; fallback then degrades to the static apology.
func NewAgentDispatcher(client GenAIClient, timeout time.Duration) *AgentDispatcher {
	if timeout <= 0 {
		timeout = DefaultFallbackTimeout
	}
	return &AgentDispatcher{genai: client, timeout: timeout}
}

// Fallback packages the domain context and the user's text for the
// generative collaborator and classifies the returned outcome. Timeouts are
// reported as models.ErrFallbackTimeout so the router can keep the session on
// its current page.
func (d *AgentDispatcher) Fallback(ctx context.Context, domain models.Domain, sess *models.Session, userText string) (FallbackResult, error) {
	if d.genai == nil {
		slog.Warn("AgentDispatcher fallback invoked without genai client")
		return FallbackResult{}, models.ErrFallbackUnavailable
	}

	system, ok := domainContexts[domain]
	if !ok {
		system = domainContexts[models.DomainDiabetes]
	}
	if sess.Patient.NameDisplay != "" {
		system += fmt.Sprintf(" El paciente se llama %s.", sess.Patient.NameDisplay)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	slog.Debug("AgentDispatcher invoking generative fallback", "domain", domain, "page", sess.CurrentPage)
	reply, err := d.genai.Generate(callCtx, system, userText)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			slog.Error("AgentDispatcher fallback timed out", "domain", domain, "timeout", d.timeout)
			return FallbackResult{}, fmt.Errorf("%w: %v", models.ErrFallbackTimeout, err)
		}
		slog.Error("AgentDispatcher fallback failed", "error", err, "domain", domain)
		return FallbackResult{}, fmt.Errorf("generative fallback failed: %w", err)
	}

	result := classifyOutcome(reply)
	slog.Info("AgentDispatcher fallback completed", "domain", domain, "outcome", result.Outcome)
	return result, nil
}

// classifyOutcome maps the model's reply into the closed outcome set using
// the tag convention from the system context.
func classifyOutcome(reply string) FallbackResult {
	trimmed := strings.TrimSpace(reply)
	switch {
	case strings.HasPrefix(trimmed, "[ESCALAR]"):
		return FallbackResult{
			Outcome: OutcomeEscalate,
			Reply:   strings.TrimSpace(strings.TrimPrefix(trimmed, "[ESCALAR]")),
		}
	case strings.HasPrefix(trimmed, "[MENU]"):
		return FallbackResult{
			Outcome: OutcomeReturnToMenu,
			Reply:   strings.TrimSpace(strings.TrimPrefix(trimmed, "[MENU]")),
		}
	case trimmed == "":
		return FallbackResult{Outcome: OutcomeAnswered, Reply: ""}
	default:
		return FallbackResult{Outcome: OutcomeAnswered, Reply: trimmed}
	}
}
