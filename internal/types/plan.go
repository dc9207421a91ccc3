// README: Plan types shared by pricing, calendar and booking.
package types

type PlanType string

const (
	PlanWeekly       PlanType = "weekly"
	PlanMonthly      PlanType = "monthly"
	PlanAcademicTerm PlanType = "academic_term"
	PlanAnnual       PlanType = "annual"
)

func (p PlanType) Valid() bool {
	switch p {
	case PlanWeekly, PlanMonthly, PlanAcademicTerm, PlanAnnual:
		return true
	}
	return false
}
