// Package engine implements the conversation flow engine: the page state
// machine, the plan/status routing gate, the deterministic-vs-AI input
// classifier, and the emergency-escalation override.
package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/clivihealth/careflow/internal/models"
)

// ValueRange is a numeric bucket used by transitions, conditional rules and
// emergency rules. Bounds are inclusive unless the exclusive flag is set.
type ValueRange struct {
	Min          float64
	Max          float64
	MinExclusive bool
	MaxExclusive bool
}

// Unbounded marks an open-ended upper limit.
const Unbounded = math.MaxFloat64

// Below matches values strictly less than x.
func Below(x float64) ValueRange {
	return ValueRange{Min: 0, Max: x, MaxExclusive: true}
}

// Between matches lo <= v <= hi.
func Between(lo, hi float64) ValueRange {
	return ValueRange{Min: lo, Max: hi}
}

// Above matches values strictly greater than x.
func Above(x float64) ValueRange {
	return ValueRange{Min: x, MinExclusive: true, Max: Unbounded}
}

// AboveUpTo matches lo < v <= hi.
func AboveUpTo(lo, hi float64) ValueRange {
	return ValueRange{Min: lo, MinExclusive: true, Max: hi}
}

// Contains reports whether v falls inside the range.
func (r ValueRange) Contains(v float64) bool {
	if r.MinExclusive {
		if v <= r.Min {
			return false
		}
	} else if v < r.Min {
		return false
	}
	if r.MaxExclusive {
		return v < r.Max
	}
	return v <= r.Max
}

// Trigger matches a classified input against a transition. Exactly one of
// ButtonID or Range should be set; they are checked in that order.
type Trigger struct {
	ButtonID string      // exact menu/button id match
	Range    *ValueRange // numeric bucket match against the page's field
}

// Transition maps a trigger to a target page. Transitions are evaluated in
// declaration order; the first match wins.
type Transition struct {
	Trigger   Trigger
	Target    models.PageID
	Event     models.EventType  // optional event emitted on this transition
	SetParams map[string]string // parameters stored on the session before entering the target
}

// ConditionalRule selects a response and target once a page's required params
// are populated. Rules are evaluated in order; the first match wins.
// MatchAny rules fire whenever the parameter is present, regardless of value;
// otherwise the parameter must parse as a number inside Range.
type ConditionalRule struct {
	Param    string
	Range    ValueRange
	MatchAny bool
	Respond  string
	Target   models.PageID
	Template string
	Event    models.EventType // optional event emitted when the rule fires
}

// Page is a static state definition in the conversation state machine.
type Page struct {
	ID               models.PageID
	Domain           models.Domain
	EntryText        string
	Buttons          []models.Button
	TemplateName     string
	ExpectedField    string // measurement field captured by NUMERIC input
	CaptureText      string // parameter name free text is captured into, if any
	RequiredParams   []string
	OptionalParams   []string
	Transitions      []Transition
	ConditionalRules []ConditionalRule
}

// Render produces the entry render contract for the page, substituting the
// patient's display name where the copy uses it.
func (p *Page) Render(patient models.PatientContext) models.RenderContract {
	text := p.EntryText
	if hasNamePlaceholder(text) {
		name := patient.NameDisplay
		if name == "" {
			name = "paciente"
		}
		text = fmt.Sprintf(text, name)
	}
	return models.RenderContract{
		Text:         text,
		Buttons:      p.Buttons,
		TemplateName: p.TemplateName,
	}
}

// hasNamePlaceholder reports whether the entry text expects a name substitution.
func hasNamePlaceholder(text string) bool {
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '%' && text[i+1] == 's' {
			return true
		}
	}
	return false
}

// PageSet holds every page across all domains, validated at load time.
type PageSet struct {
	pages map[models.PageID]*Page
}

// BuildPageSet assembles the full page table (diabetes, obesity, shared and
// club domains) and validates every transition target. A dangling reference
// is a configuration error detected here, never at request time.
func BuildPageSet() (*PageSet, error) {
	var all []*Page
	all = append(all, diabetesPages()...)
	all = append(all, obesityPages()...)
	all = append(all, sharedPages()...)
	all = append(all, clubPages()...)

	set := &PageSet{pages: make(map[models.PageID]*Page, len(all))}
	for _, p := range all {
		if _, dup := set.pages[p.ID]; dup {
			return nil, fmt.Errorf("duplicate page id %q", p.ID)
		}
		set.pages[p.ID] = p
	}

	// Fail fast on dangling targets.
	for _, p := range set.pages {
		for _, t := range p.Transitions {
			if err := set.checkTarget(p.ID, t.Target); err != nil {
				return nil, err
			}
		}
		for _, r := range p.ConditionalRules {
			if r.Target == "" {
				continue
			}
			if err := set.checkTarget(p.ID, r.Target); err != nil {
				return nil, err
			}
		}
	}

	slog.Debug("PageSet built", "pages", len(set.pages))
	return set, nil
}

func (s *PageSet) checkTarget(from, target models.PageID) error {
	if target == models.PageEndSession || target == models.PageStart {
		return nil
	}
	if _, ok := s.pages[target]; !ok {
		return fmt.Errorf("%w: %q -> %q", models.ErrUnknownTargetPage, from, target)
	}
	return nil
}

// Get returns the page definition for an id.
func (s *PageSet) Get(id models.PageID) (*Page, bool) {
	p, ok := s.pages[id]
	return p, ok
}

// Len returns the number of registered pages.
func (s *PageSet) Len() int {
	return len(s.pages)
}

// MainMenu returns the main menu page id for a specialty domain.
func MainMenu(domain models.Domain) models.PageID {
	switch domain {
	case models.DomainObesity:
		return PageObesityMainMenu
	case models.DomainClub:
		return PageClubMainMenu
	default:
		return PageDiabetesMainMenu
	}
}
