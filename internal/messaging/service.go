// Package messaging defines the pluggable channel transport abstraction and
// the handler that connects transports to the conversation engine.
package messaging

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/clivihealth/careflow/internal/models"
)

// Service is a channel transport: it emits normalized inbound messages and
// renders engine output back to the patient.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a
	// recipient identifier for this transport.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendRender delivers a render contract to a recipient.
	SendRender(ctx context.Context, to string, render models.RenderContract) error

	// Start begins background processing (event handling or polling).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Messages returns the channel of normalized inbound messages.
	Messages() <-chan models.InboundMessage

	// Channel identifies which messaging channel this service serves.
	Channel() models.Channel
}

// formatRender flattens a render contract into plain text for transports
// without native button support. Options are listed under the body.
func formatRender(render models.RenderContract) string {
	if len(render.Buttons) == 0 {
		return render.Text
	}
	var b strings.Builder
	b.WriteString(render.Text)
	for i, btn := range render.Buttons {
		fmt.Fprintf(&b, "\n%d. %s", i+1, btn.Label)
	}
	return b.String()
}

// buttonMemory tracks the last option list sent to each recipient so that a
// numbered reply ("1") on a transport without native buttons can be resolved
// back to the button id it was rendered as. A render without buttons clears
// the entry, so numbers typed at a measurement prompt stay plain text.
type buttonMemory struct {
	mu   sync.Mutex
	last map[string][]models.Button
}

func (m *buttonMemory) remember(to string, buttons []models.Button) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(buttons) == 0 {
		delete(m.last, to)
		return
	}
	if m.last == nil {
		m.last = make(map[string][]models.Button)
	}
	m.last[to] = buttons
}

// resolve maps an ordinal reply to the id of the matching remembered button.
func (m *buttonMemory) resolve(to, text string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	buttons := m.last[to]
	if n < 1 || n > len(buttons) {
		return "", false
	}
	return buttons[n-1].ID, true
}

// canonicalizePhone validates a phone-number recipient and strips formatting.
func canonicalizePhone(recipient string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '+':
			return -1
		}
		return r
	}, recipient)
	if cleaned == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("recipient %q is not a valid phone number", recipient)
		}
	}
	if len(cleaned) < 10 {
		return "", fmt.Errorf("recipient %q is too short to be a phone number", recipient)
	}
	return cleaned, nil
}
