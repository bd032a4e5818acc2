package model

import (
	"time"

	"store-billing/internal/domain"
)

type PlanID string

const (
	Plan1Month  PlanID = "1month"
	Plan6Months PlanID = "6months"
	Plan1Year   PlanID = "1year"
	PlanTrial   PlanID = "trial"
)

// RenewalWindowDays is how close to expiry an active subscription must be
// before another plan can be bought.
const RenewalWindowDays = 30

// Plan is a fixed subscription tier. The catalog lives in code, not in the database.
type Plan struct {
	ID     PlanID `json:"id"`
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
	Months int    `json:"months"`
}

var planCatalog = []Plan{
	{ID: Plan1Month, Name: "اشتراک یک ماهه", Amount: 1_000_000, Months: 1},
	{ID: Plan6Months, Name: "اشتراک شش ماهه", Amount: 6_000_000, Months: 6},
	{ID: Plan1Year, Name: "اشتراک یک ساله", Amount: 10_000_000, Months: 12},
}

// Plans returns a copy of the purchasable catalog.
func Plans() []Plan {
	out := make([]Plan, len(planCatalog))
	copy(out, planCatalog)
	return out
}

// LookupPlan resolves a purchasable plan. Trial is not purchasable.
func LookupPlan(id string) (Plan, error) {
	for _, p := range planCatalog {
		if string(p.ID) == id {
			return p, nil
		}
	}
	return Plan{}, domain.ErrInvalidPlan
}

// EndDate uses calendar-month arithmetic.
func (p Plan) EndDate(start time.Time) time.Time {
	return start.AddDate(0, p.Months, 0)
}
