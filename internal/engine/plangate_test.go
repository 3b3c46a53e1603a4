package engine

import (
	"errors"
	"testing"

	"github.com/clivihealth/careflow/internal/models"
)

func TestRoutePlanDecisionTable(t *testing.T) {
	cases := []struct {
		name      string
		plan      models.Plan
		status    models.PlanStatus
		specialty models.Domain
		want      models.PageID
	}{
		{"pro active diabetes", models.PlanPro, models.PlanStatusActive, models.DomainDiabetes, PageDiabetesMainMenu},
		{"pro suspended diabetes", models.PlanPro, models.PlanStatusSuspended, models.DomainDiabetes, PageDiabetesMainMenu},
		{"plus active obesity", models.PlanPlus, models.PlanStatusActive, models.DomainObesity, PageObesityMainMenu},
		{"basic active no specialty", models.PlanBasic, models.PlanStatusActive, "", PageDiabetesMainMenu},
		{"pro canceled", models.PlanPro, models.PlanStatusCanceled, models.DomainDiabetes, PageSharedReactivation},
		{"plus canceled", models.PlanPlus, models.PlanStatusCanceled, models.DomainObesity, PageSharedReactivation},
		{"basic canceled", models.PlanBasic, models.PlanStatusCanceled, "", PageSharedReactivation},
		{"club active", models.PlanClub, models.PlanStatusActive, "", PageClubMainMenu},
		{"club suspended", models.PlanClub, models.PlanStatusSuspended, "", PageClubMainMenu},
		{"club canceled", models.PlanClub, models.PlanStatusCanceled, "", PageClubReactivation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patient := models.PatientContext{Plan: tc.plan, PlanStatus: tc.status, Specialty: tc.specialty}
			got, err := RoutePlan(patient)
			if err != nil {
				t.Fatalf("RoutePlan returned error: %v", err)
			}
			if got != tc.want {
				t.Errorf("RoutePlan = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRoutePlanUnknownPatient(t *testing.T) {
	got, err := RoutePlan(models.UnknownPatient())
	if err != nil {
		t.Fatalf("RoutePlan returned error: %v", err)
	}
	if got != PageSharedUserProblems {
		t.Errorf("RoutePlan = %s, want %s", got, PageSharedUserProblems)
	}

	// An empty plan is treated the same as an unknown one.
	got, err = RoutePlan(models.PatientContext{})
	if err != nil {
		t.Fatalf("RoutePlan returned error: %v", err)
	}
	if got != PageSharedUserProblems {
		t.Errorf("RoutePlan = %s, want %s", got, PageSharedUserProblems)
	}
}

func TestRoutePlanUndefinedCombination(t *testing.T) {
	cases := []models.PatientContext{
		{Plan: models.PlanPro, PlanStatus: ""},
		{Plan: models.PlanClub, PlanStatus: "PAUSED"},
		{Plan: models.PlanBasic, PlanStatus: "EXPIRED"},
	}
	for _, patient := range cases {
		if _, err := RoutePlan(patient); !errors.Is(err, models.ErrUndefinedPlanRoute) {
			t.Errorf("RoutePlan(%s/%s) error = %v, want ErrUndefinedPlanRoute", patient.Plan, patient.PlanStatus, err)
		}
	}
}
