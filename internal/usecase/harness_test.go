//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"store-billing/internal/domain/ports/adapter"
	"store-billing/internal/infra/adapters/payment"
	"store-billing/internal/usecase"
)

const (
	testUser  = "user-1"
	testStore = "store-1"
)

type harness struct {
	store     *memStore
	noop      *payment.NoopPaymentGateway
	gateway   *countingGateway
	locker    *MockLocker
	publisher *MockPublisher

	wallet usecase.WalletUseCase
	verify *usecase.VerifyUseCase
	subs   usecase.SubscriptionUseCase
	tokens *usecase.TokenUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	noop := payment.NewNoopPaymentGateway()
	return newHarnessWithGateway(t, noop, noop)
}

func newHarnessWithGateway(t *testing.T, gw adapter.PaymentGateway, noop *payment.NoopPaymentGateway) *harness {
	t.Helper()
	s := newMemStore()
	h := &harness{
		store:     s,
		noop:      noop,
		gateway:   &countingGateway{PaymentGateway: gw},
		locker:    NewMockLocker(),
		publisher: &MockPublisher{},
	}
	wallets, entries, payments := memWallets{s}, memEntries{s}, memPayments{s}
	tm := s.TxManager()
	log := newTestLogger()

	h.wallet = usecase.NewWalletUseCase(wallets, entries, payments, tm, h.gateway, h.publisher,
		usecase.ChargeLimits{Min: 10_000, Max: 500_000_000},
		func(id string) string { return "https://api.test/wallet/verify?paymentId=" + id }, log)
	h.verify = usecase.NewVerifyUseCase(wallets, entries, payments, tm, h.gateway, h.locker, nil, h.publisher, log)
	h.subs = usecase.NewSubscriptionUseCase(memSubs{s}, wallets, entries, payments, tm, h.publisher, log)
	h.tokens = usecase.NewTokenUseCase(memTokens{s}, wallets, entries, payments, tm, h.publisher, log)
	return h
}

// assertLedgerConsistent checks balance == sum of completed entries for every wallet.
func assertLedgerConsistent(t *testing.T, s *memStore) {
	t.Helper()
	mm, err := memWallets{s}.FindLedgerMismatches(context.Background(), nil, 100)
	if err != nil {
		t.Fatalf("FindLedgerMismatches: %v", err)
	}
	for _, m := range mm {
		t.Errorf("ledger mismatch for %s: balance=%d ledger=%d", m.UserID, m.Balance, m.LedgerBalance)
	}
}
