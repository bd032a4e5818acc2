package model

import "store-billing/internal/domain"

// TokenPackage is a fixed bundle of AI content-generation tokens.
type TokenPackage struct {
	Tokens int64 `json:"tokens"`
	Amount int64 `json:"amount"`
}

var tokenPackages = []TokenPackage{
	{Tokens: 100_000, Amount: 500_000},
	{Tokens: 300_000, Amount: 1_350_000},
	{Tokens: 1_000_000, Amount: 4_000_000},
}

func TokenPackages() []TokenPackage {
	out := make([]TokenPackage, len(tokenPackages))
	copy(out, tokenPackages)
	return out
}

// MatchTokenPackage accepts only an exact (tokens, amount) pair from the catalog,
// so clients cannot choose their own price.
func MatchTokenPackage(tokens, amount int64) (TokenPackage, error) {
	for _, p := range tokenPackages {
		if p.Tokens == tokens && p.Amount == amount {
			return p, nil
		}
	}
	return TokenPackage{}, domain.ErrInvalidPackage
}

// StoreTokens is the AI token balance of one store.
type StoreTokens struct {
	StoreID string
	UserID  string
	Tokens  int64
}
