package model

import (
	"time"

	"store-billing/internal/domain"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // created; waiting on the gateway round-trip
	PaymentStatusPaid      PaymentStatus = "paid"      // reserved for gateways that settle before verify
	PaymentStatusFailed    PaymentStatus = "failed"    // verify rejected or never reached the gateway
	PaymentStatusCancelled PaymentStatus = "cancelled" // user aborted at the gateway
	PaymentStatusVerified  PaymentStatus = "verified"  // verified at provider or direct wallet debit
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// IsTerminal reports whether the payment can no longer transition.
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending && s != PaymentStatusPaid
}

// PaymentMetadata is the optional contact info forwarded to the gateway.
type PaymentMetadata struct {
	Mobile string `json:"mobile,omitempty"`
	Email  string `json:"email,omitempty"`
}

func (m *PaymentMetadata) IsZero() bool { return m == nil || (m.Mobile == "" && m.Email == "") }

// Payment records one gateway attempt (top-up) or one direct wallet charge.
type Payment struct {
	ID          string
	UserID      string
	Amount      int64
	Description string
	Status      PaymentStatus
	Authority   string // set once, join key for the gateway callback
	RefID       *string
	CardPan     *string
	CardHash    *string
	Metadata    *PaymentMetadata
	PaidAt      *time.Time
	VerifiedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewPayment(userID string, amount int64, description string, meta *PaymentMetadata) (*Payment, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	now := time.Now()
	return &Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Description: description,
		Status:      PaymentStatusPending,
		Metadata:    meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// PaymentVerification is what a successful gateway verify contributes to a payment.
type PaymentVerification struct {
	RefID      string
	CardPan    string
	CardHash   string
	VerifiedAt time.Time
}
