package engine

import (
	"fmt"
	"log/slog"

	"github.com/clivihealth/careflow/internal/models"
)

// RoutePlan is the plan/status routing gate evaluated when a session is at
// START or on an explicit main-menu keyword. The decision table is exact;
// a combination outside it is a routing error, never a silent default.
//
//	PRO/PLUS/BASIC + ACTIVE/SUSPENDED -> specialty main menu
//	CLUB          + ACTIVE/SUSPENDED -> club.mainMenu
//	CLUB          + CANCELED         -> club.reactivation
//	PRO/PLUS/BASIC + CANCELED        -> shared.reactivation
//	UNKNOWN (no patient record)      -> shared.userProblems
func RoutePlan(patient models.PatientContext) (models.PageID, error) {
	plan := patient.Plan
	status := patient.PlanStatus

	if plan == models.PlanUnknown || plan == "" {
		slog.Debug("PlanGate routing unknown patient to onboarding")
		return PageSharedUserProblems, nil
	}

	switch plan {
	case models.PlanPro, models.PlanPlus, models.PlanBasic:
		switch status {
		case models.PlanStatusActive, models.PlanStatusSuspended:
			target := MainMenu(specialtyOf(patient))
			slog.Debug("PlanGate routed to specialty menu", "plan", plan, "status", status, "target", target)
			return target, nil
		case models.PlanStatusCanceled:
			return PageSharedReactivation, nil
		}
	case models.PlanClub:
		switch status {
		case models.PlanStatusActive, models.PlanStatusSuspended:
			return PageClubMainMenu, nil
		case models.PlanStatusCanceled:
			return PageClubReactivation, nil
		}
	}

	slog.Error("PlanGate undefined plan/status combination", "plan", plan, "status", status)
	return "", fmt.Errorf("%w: plan=%s status=%s", models.ErrUndefinedPlanRoute, plan, status)
}

// specialtyOf resolves the patient's assigned specialty domain. Patients
// without an assignment land in the diabetes program.
func specialtyOf(patient models.PatientContext) models.Domain {
	switch patient.Specialty {
	case models.DomainDiabetes, models.DomainObesity:
		return patient.Specialty
	default:
		return models.DomainDiabetes
	}
}
