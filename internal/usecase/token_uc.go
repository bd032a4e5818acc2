package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/adapter"
	"store-billing/internal/domain/ports/repository"
	"store-billing/internal/infra/metrics"
)

type TokenPurchaseResult struct {
	Tokens      int64
	Amount      int64
	NewBalance  int64
	StoreTokens int64
}

type TokenUseCase struct {
	ledger
	tokens    repository.StoreTokenRepository
	tm        repository.TransactionManager
	publisher adapter.LedgerPublisher
	log       *zerolog.Logger
}

func NewTokenUseCase(
	tokens repository.StoreTokenRepository,
	wallets repository.WalletRepository,
	entries repository.WalletTransactionRepository,
	payments repository.PaymentRepository,
	tm repository.TransactionManager,
	publisher adapter.LedgerPublisher,
	logger *zerolog.Logger,
) *TokenUseCase {
	return &TokenUseCase{
		ledger:    ledger{wallets: wallets, entries: entries, payments: payments},
		tokens:    tokens,
		tm:        tm,
		publisher: publisher,
		log:       logger,
	}
}

func (uc *TokenUseCase) Packages() []model.TokenPackage { return model.TokenPackages() }

// Purchase accepts only an exact catalog (tokens, amount) pair.
func (uc *TokenUseCase) Purchase(ctx context.Context, userID, storeID string, tokens, amount int64) (*TokenPurchaseResult, error) {
	if userID == "" || storeID == "" {
		return nil, domain.ErrInvalidArgument
	}
	pkg, err := model.MatchTokenPackage(tokens, amount)
	if err != nil {
		return nil, err
	}

	var debit *DebitResult
	var total int64
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		desc := fmt.Sprintf("خرید %d توکن", pkg.Tokens)
		debit, err = uc.debit(ctx, tx, userID, pkg.Amount, desc, model.TransactionTypePayment)
		if err != nil {
			return err
		}
		total, err = uc.tokens.AddTokens(ctx, tx, storeID, userID, pkg.Tokens)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.AddTokensPurchased(pkg.Tokens)
	metrics.AddWalletDebited("tokens", pkg.Amount)
	uc.log.Info().Str("user_id", userID).Str("store_id", storeID).Int64("tokens", pkg.Tokens).Msg("tokens purchased")

	uc.publisher.Publish(ctx, debitedEvent(debit))
	uc.publisher.Publish(ctx, model.LedgerEvent{
		Type:      model.EventTokensPurchased,
		UserID:    userID,
		WalletID:  debit.Wallet.ID,
		PaymentID: debit.Payment.ID,
		StoreID:   storeID,
		Amount:    pkg.Amount,
		Balance:   debit.Balance,
		At:        debit.Transaction.CreatedAt,
	})
	return &TokenPurchaseResult{Tokens: pkg.Tokens, Amount: pkg.Amount, NewBalance: debit.Balance, StoreTokens: total}, nil
}
