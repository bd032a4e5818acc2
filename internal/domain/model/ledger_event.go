package model

import "time"

type LedgerEventType string

const (
	EventWalletCredited        LedgerEventType = "wallet.credited"
	EventWalletDebited         LedgerEventType = "wallet.debited"
	EventSubscriptionActivated LedgerEventType = "subscription.activated"
	EventTokensPurchased       LedgerEventType = "tokens.purchased"
)

// LedgerEvent is published after a balance-affecting commit.
type LedgerEvent struct {
	Type          LedgerEventType `json:"type"`
	UserID        string          `json:"user_id"`
	WalletID      string          `json:"wallet_id,omitempty"`
	PaymentID     string          `json:"payment_id,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	StoreID       string          `json:"store_id,omitempty"`
	Amount        int64           `json:"amount"`
	Balance       int64           `json:"balance"`
	At            time.Time       `json:"at"`
}
