package api

import (
	"time"

	"store-billing/internal/domain/model"
)

type chargeRequest struct {
	Amount int64  `json:"amount"`
	Mobile string `json:"mobile" validate:"omitempty,numeric,min=10,max=13"`
	Email  string `json:"email" validate:"omitempty,email,max=254"`
}

type purchaseRequest struct {
	Plan    string `json:"plan" validate:"required,max=32"`
	StoreID string `json:"storeId" validate:"required,max=128"`
}

type tokenPurchaseRequest struct {
	StoreID string `json:"storeId" validate:"required,max=128"`
	Tokens  int64  `json:"tokens" validate:"gt=0"`
	Amount  int64  `json:"amount" validate:"gt=0"`
}

type balanceResponse struct {
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

type chargeResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"paymentUrl"`
	PaymentID  string `json:"paymentId"`
	Authority  string `json:"authority"`
}

type transactionDTO struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	PaymentID   *string   `json:"paymentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type subscriptionDTO struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	Plan      string    `json:"plan"`
	Amount    int64     `json:"amount"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    string    `json:"status"`
}

type statusResponse struct {
	HasActive     bool             `json:"hasActiveSubscription"`
	Subscription  *subscriptionDTO `json:"subscription,omitempty"`
	DaysRemaining int              `json:"daysRemaining,omitempty"`
}

type tokenPurchaseResponse struct {
	Success    bool  `json:"success"`
	Tokens     int64 `json:"tokens"`
	Amount     int64 `json:"amount"`
	NewBalance int64 `json:"newBalance"`
}

func toTransactionDTOs(in []*model.WalletTransaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(in))
	for _, t := range in {
		out = append(out, transactionDTO{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      t.Amount,
			Description: t.Description,
			Status:      string(t.Status),
			PaymentID:   t.PaymentID,
			CreatedAt:   t.CreatedAt,
		})
	}
	return out
}

func toSubscriptionDTO(s *model.Subscription) *subscriptionDTO {
	if s == nil {
		return nil
	}
	return &subscriptionDTO{
		ID:        s.ID,
		StoreID:   s.StoreID,
		Plan:      string(s.Plan),
		Amount:    s.Amount,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		Status:    string(s.Status),
	}
}

func toSubscriptionDTOs(in []*model.Subscription) []*subscriptionDTO {
	out := make([]*subscriptionDTO, 0, len(in))
	for _, s := range in {
		out = append(out, toSubscriptionDTO(s))
	}
	return out
}
