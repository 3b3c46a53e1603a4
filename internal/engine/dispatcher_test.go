package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clivihealth/careflow/internal/models"
)

// fakeGenAI is a scripted GenAIClient for tests.
type fakeGenAI struct {
	reply string
	err   error
	block bool
}

func (f *fakeGenAI) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func testSession() *models.Session {
	key := models.SessionKey{Channel: models.ChannelWhatsApp, ExternalUserID: "5215512345678"}
	sess := models.NewSession(key, time.Now())
	sess.Patient = models.PatientContext{NameDisplay: "Ana", Plan: models.PlanPro, PlanStatus: models.PlanStatusActive, Specialty: models.DomainDiabetes}
	return &sess
}

func TestFallbackOutcomes(t *testing.T) {
	cases := []struct {
		name        string
		reply       string
		wantOutcome FallbackOutcome
		wantReply   string
	}{
		{"answered", "La metformina se toma con alimentos.", OutcomeAnswered, "La metformina se toma con alimentos."},
		{"escalate", "[ESCALAR] Esto necesita revisión de tu médico.", OutcomeEscalate, "Esto necesita revisión de tu médico."},
		{"menu", "[MENU] Te muestro las opciones.", OutcomeReturnToMenu, "Te muestro las opciones."},
		{"empty", "", OutcomeAnswered, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewAgentDispatcher(&fakeGenAI{reply: tc.reply}, time.Second)
			got, err := d.Fallback(context.Background(), models.DomainDiabetes, testSession(), "pregunta")
			if err != nil {
				t.Fatalf("Fallback returned error: %v", err)
			}
			if got.Outcome != tc.wantOutcome {
				t.Errorf("outcome = %s, want %s", got.Outcome, tc.wantOutcome)
			}
			if got.Reply != tc.wantReply {
				t.Errorf("reply = %q, want %q", got.Reply, tc.wantReply)
			}
		})
	}
}

func TestFallbackTimeout(t *testing.T) {
	d := NewAgentDispatcher(&fakeGenAI{block: true}, 10*time.Millisecond)
	_, err := d.Fallback(context.Background(), models.DomainDiabetes, testSession(), "pregunta")
	if !errors.Is(err, models.ErrFallbackTimeout) {
		t.Fatalf("error = %v, want ErrFallbackTimeout", err)
	}
}

func TestFallbackWithoutClient(t *testing.T) {
	d := NewAgentDispatcher(nil, time.Second)
	_, err := d.Fallback(context.Background(), models.DomainDiabetes, testSession(), "pregunta")
	if !errors.Is(err, models.ErrFallbackUnavailable) {
		t.Fatalf("error = %v, want ErrFallbackUnavailable", err)
	}
}
