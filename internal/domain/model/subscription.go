package model

import (
	"math"
	"time"

	"store-billing/internal/domain"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription is one purchased plan period for a store. Stored status is never
// moved to expired; callers use IsActiveAt.
type Subscription struct {
	ID        string
	UserID    string
	StoreID   string
	Plan      PlanID
	Amount    int64
	StartDate time.Time
	EndDate   time.Time
	Status    SubscriptionStatus
	PaymentID *string
	CreatedAt time.Time
}

// NewSubscription starts a plan period at now, ending plan.Months calendar months later.
func NewSubscription(userID, storeID string, plan Plan, paymentID *string, now time.Time) (*Subscription, error) {
	if userID == "" || storeID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		StoreID:   storeID,
		Plan:      plan.ID,
		Amount:    plan.Amount,
		StartDate: now,
		EndDate:   plan.EndDate(now),
		Status:    SubscriptionStatusActive,
		PaymentID: paymentID,
		CreatedAt: now,
	}, nil
}

func (s *Subscription) IsActiveAt(now time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && s.EndDate.After(now)
}

// DaysRemaining rounds partial days up; it is 0 once EndDate has passed.
func (s *Subscription) DaysRemaining(now time.Time) int {
	return DaysUntil(s.EndDate, now)
}

func DaysUntil(end, now time.Time) int {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}
