package engine

import (
	"strings"
	"testing"

	"github.com/clivihealth/careflow/internal/models"
)

func TestBuildPageSet(t *testing.T) {
	pages, err := BuildPageSet()
	if err != nil {
		t.Fatalf("BuildPageSet failed: %v", err)
	}
	if pages.Len() == 0 {
		t.Fatal("page set is empty")
	}

	// Every domain main menu must exist.
	for _, id := range []models.PageID{PageDiabetesMainMenu, PageObesityMainMenu, PageClubMainMenu, PageSharedUserProblems, PageSharedEmergency} {
		if _, ok := pages.Get(id); !ok {
			t.Errorf("page %s missing from set", id)
		}
	}
}

func TestPageSetTargetsResolve(t *testing.T) {
	pages, err := BuildPageSet()
	if err != nil {
		t.Fatalf("BuildPageSet failed: %v", err)
	}
	for _, id := range []models.PageID{PageDiabetesMainMenu, PageObesityMainMenu, PageClubMainMenu} {
		page, ok := pages.Get(id)
		if !ok {
			t.Fatalf("page %s missing", id)
		}
		for _, tr := range page.Transitions {
			if tr.Target == models.PageEndSession || tr.Target == models.PageStart {
				continue
			}
			if _, ok := pages.Get(tr.Target); !ok {
				t.Errorf("%s transition %q targets unknown page %s", id, tr.Trigger.ButtonID, tr.Target)
			}
		}
	}
}

func TestMainMenuByDomain(t *testing.T) {
	cases := map[models.Domain]models.PageID{
		models.DomainDiabetes: PageDiabetesMainMenu,
		models.DomainObesity:  PageObesityMainMenu,
		models.DomainClub:     PageClubMainMenu,
		models.DomainShared:   PageDiabetesMainMenu, // default
	}
	for domain, want := range cases {
		if got := MainMenu(domain); got != want {
			t.Errorf("MainMenu(%s) = %s, want %s", domain, got, want)
		}
	}
}

func TestRenderNameSubstitution(t *testing.T) {
	pages, err := BuildPageSet()
	if err != nil {
		t.Fatalf("BuildPageSet failed: %v", err)
	}
	menu, _ := pages.Get(PageDiabetesMainMenu)

	render := menu.Render(models.PatientContext{NameDisplay: "Ana"})
	if !strings.Contains(render.Text, "Ana") {
		t.Errorf("render text %q does not contain patient name", render.Text)
	}
	if len(render.Buttons) != len(menu.Buttons) {
		t.Errorf("render has %d buttons, want %d", len(render.Buttons), len(menu.Buttons))
	}

	// Empty name falls back to a generic salutation, never a format artifact.
	render = menu.Render(models.PatientContext{})
	if strings.Contains(render.Text, "%!") || strings.Contains(render.Text, "%s") {
		t.Errorf("render text %q contains formatting artifact", render.Text)
	}
}

func TestValueRangeBuckets(t *testing.T) {
	hypo := Below(70)
	normal := Between(70, 180)
	high := AboveUpTo(180, 300)
	critical := Above(300)

	cases := []struct {
		value float64
		want  *ValueRange
	}{
		{55, &hypo},
		{69.9, &hypo},
		{70, &normal},
		{180, &normal},
		{180.1, &high},
		{300, &high},
		{300.1, &critical},
		{650, &critical},
	}
	all := map[string]*ValueRange{"hypo": &hypo, "normal": &normal, "high": &high, "critical": &critical}
	for _, tc := range cases {
		for name, r := range all {
			got := r.Contains(tc.value)
			want := r == tc.want
			if got != want {
				t.Errorf("bucket %s Contains(%v) = %v, want %v", name, tc.value, got, want)
			}
		}
	}
}
