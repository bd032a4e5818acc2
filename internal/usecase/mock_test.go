//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/adapter"
	"store-billing/internal/domain/ports/repository"
)

// =============================
// In-memory ledger store
// =============================

// memStore backs every repository port with maps. WithTx serialises callers
// and restores a snapshot when fn fails, so rollbacks are observable.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	wallets  map[string]*model.Wallet // by user id
	payments map[string]*model.Payment
	entries  map[string]*model.WalletTransaction
	subs     map[string]*model.Subscription
	tokens   map[string]*model.StoreTokens

	// FailOn makes the named operation return domain.ErrOperationFailed.
	FailOn map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		wallets:  map[string]*model.Wallet{},
		payments: map[string]*model.Payment{},
		entries:  map[string]*model.WalletTransaction{},
		subs:     map[string]*model.Subscription{},
		tokens:   map[string]*model.StoreTokens{},
		FailOn:   map[string]bool{},
	}
}

func (s *memStore) fail(op string) error {
	if s.FailOn[op] {
		return domain.ErrOperationFailed
	}
	return nil
}

type memSnapshot struct {
	wallets  map[string]model.Wallet
	payments map[string]model.Payment
	entries  map[string]model.WalletTransaction
	subs     map[string]model.Subscription
	tokens   map[string]model.StoreTokens
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		wallets:  map[string]model.Wallet{},
		payments: map[string]model.Payment{},
		entries:  map[string]model.WalletTransaction{},
		subs:     map[string]model.Subscription{},
		tokens:   map[string]model.StoreTokens{},
	}
	for k, v := range s.wallets {
		snap.wallets[k] = *v
	}
	for k, v := range s.payments {
		snap.payments[k] = *v
	}
	for k, v := range s.entries {
		snap.entries[k] = *v
	}
	for k, v := range s.subs {
		snap.subs[k] = *v
	}
	for k, v := range s.tokens {
		snap.tokens[k] = *v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets = map[string]*model.Wallet{}
	for k, v := range snap.wallets {
		v := v
		s.wallets[k] = &v
	}
	s.payments = map[string]*model.Payment{}
	for k, v := range snap.payments {
		v := v
		s.payments[k] = &v
	}
	s.entries = map[string]*model.WalletTransaction{}
	for k, v := range snap.entries {
		v := v
		s.entries[k] = &v
	}
	s.subs = map[string]*model.Subscription{}
	for k, v := range snap.subs {
		v := v
		s.subs[k] = &v
	}
	s.tokens = map[string]*model.StoreTokens{}
	for k, v := range snap.tokens {
		v := v
		s.tokens[k] = &v
	}
}

type memTx struct{}

func (s *memStore) TxManager() *MockTxManager {
	return &MockTxManager{WithTxFunc: func(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
		s.txMu.Lock()
		defer s.txMu.Unlock()
		snap := s.snapshot()
		if err := fn(ctx, memTx{}); err != nil {
			s.restore(snap)
			return err
		}
		return nil
	}}
}

// Helpers used by assertions.

func (s *memStore) Balance(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[userID]; ok {
		return w.Balance
	}
	return 0
}

func (s *memStore) Entries(userID string) []*model.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.WalletTransaction
	for _, e := range s.entries {
		if e.UserID == userID {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) Payment(id string) *model.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

func (s *memStore) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *memStore) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// SetBalance seeds a wallet with a matching completed charge so the ledger invariant holds.
func (s *memStore) SetBalance(userID string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		w, _ = model.NewWallet(userID)
		s.wallets[userID] = w
	}
	w.Balance += amount
	e, _ := model.NewWalletTransaction(w, nil, model.TransactionTypeCharge, amount, "seed", model.TransactionStatusCompleted)
	s.entries[e.ID] = e
}

func (s *memStore) AddSubscription(sub *model.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *sub
	s.subs[sub.ID] = &c
}

// AgePayment moves CreatedAt back so the sweeper picks the payment up.
func (s *memStore) AgePayment(id string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[id]; ok {
		p.CreatedAt = p.CreatedAt.Add(-d)
	}
}

// ---- WalletRepository ----

type memWallets struct{ s *memStore }

var _ repository.WalletRepository = memWallets{}

func (r memWallets) GetOrCreate(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	if err := r.s.fail("wallets.GetOrCreate"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		var err error
		if w, err = model.NewWallet(userID); err != nil {
			return nil, err
		}
		r.s.wallets[userID] = w
	}
	c := *w
	return &c, nil
}

func (r memWallets) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *w
	return &c, nil
}

func (r memWallets) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.wallets {
		if w.ID == id {
			c := *w
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memWallets) DebitIfSufficient(ctx context.Context, tx repository.Tx, userID string, amount int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok || w.Balance < amount {
		return 0, domain.ErrInsufficientBalance
	}
	w.Balance -= amount
	return w.Balance, nil
}

func (r memWallets) Credit(ctx context.Context, tx repository.Tx, walletID string, amount int64) (int64, error) {
	if err := r.s.fail("wallets.Credit"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.wallets {
		if w.ID == walletID {
			w.Balance += amount
			return w.Balance, nil
		}
	}
	return 0, domain.ErrNotFound
}

func (r memWallets) FindLedgerMismatches(ctx context.Context, tx repository.Tx, limit int) ([]repository.LedgerMismatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sums := map[string]int64{}
	for _, e := range r.s.entries {
		if e.Status == model.TransactionStatusCompleted {
			sums[e.WalletID] += e.SignedAmount()
		}
	}
	var out []repository.LedgerMismatch
	for _, w := range r.s.wallets {
		if w.Balance != sums[w.ID] {
			out = append(out, repository.LedgerMismatch{WalletID: w.ID, UserID: w.UserID, Balance: w.Balance, LedgerBalance: sums[w.ID]})
		}
	}
	return out, nil
}

// ---- WalletTransactionRepository ----

type memEntries struct{ s *memStore }

var _ repository.WalletTransactionRepository = memEntries{}

func (r memEntries) Save(ctx context.Context, tx repository.Tx, t *model.WalletTransaction) error {
	if err := r.s.fail("entries.Save"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.PaymentID != nil {
		for _, e := range r.s.entries {
			if e.PaymentID != nil && *e.PaymentID == *t.PaymentID {
				return domain.ErrAlreadyExists
			}
		}
	}
	c := *t
	r.s.entries[t.ID] = &c
	return nil
}

func (r memEntries) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.WalletTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.PaymentID != nil && *e.PaymentID == paymentID {
			c := *e
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memEntries) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || e.Status != model.TransactionStatusPending {
		return false, nil
	}
	e.Status = status
	e.UpdatedAt = time.Now()
	return true, nil
}

func (r memEntries) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.WalletTransaction, error) {
	all := r.s.Entries(userID)
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ---- PaymentRepository ----

type memPayments struct{ s *memStore }

var _ repository.PaymentRepository = memPayments{}

func (r memPayments) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if err := r.s.fail("payments.Save"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *p
	r.s.payments[p.ID] = &c
	return nil
}

func (r memPayments) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if p := r.s.Payment(id); p != nil {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (r memPayments) SetAuthority(ctx context.Context, tx repository.Tx, id, authority string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok || p.Authority != "" {
		return false, nil
	}
	p.Authority = authority
	return true, nil
}

func (r memPayments) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, v *model.PaymentVerification) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	if v != nil && status == model.PaymentStatusVerified {
		ref, pan, hash, at := v.RefID, v.CardPan, v.CardHash, v.VerifiedAt
		p.RefID, p.CardPan, p.CardHash, p.VerifiedAt, p.PaidAt = &ref, &pan, &hash, &at, &at
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r memPayments) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.s.payments {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- SubscriptionRepository ----

type memSubs struct{ s *memStore }

var _ repository.SubscriptionRepository = memSubs{}

func (r memSubs) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if err := r.s.fail("subs.Save"); err != nil {
		return err
	}
	r.s.AddSubscription(sub)
	return nil
}

func (r memSubs) latest(match func(*model.Subscription) bool, now time.Time) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *model.Subscription
	for _, sub := range r.s.subs {
		if !match(sub) || !sub.IsActiveAt(now) {
			continue
		}
		if best == nil || sub.EndDate.After(best.EndDate) {
			best = sub
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	c := *best
	return &c, nil
}

func (r memSubs) FindLatestActiveByUser(ctx context.Context, tx repository.Tx, userID string, now time.Time) (*model.Subscription, error) {
	return r.latest(func(s *model.Subscription) bool { return s.UserID == userID }, now)
}

func (r memSubs) FindLatestActiveByStore(ctx context.Context, tx repository.Tx, userID, storeID string, now time.Time) (*model.Subscription, error) {
	return r.latest(func(s *model.Subscription) bool { return s.UserID == userID && s.StoreID == storeID }, now)
}

func (r memSubs) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range r.s.subs {
		if sub.UserID == userID {
			c := *sub
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memSubs) LockUser(ctx context.Context, tx repository.Tx, userID string) error { return nil }

// ---- StoreTokenRepository ----

type memTokens struct{ s *memStore }

var _ repository.StoreTokenRepository = memTokens{}

func (r memTokens) AddTokens(ctx context.Context, tx repository.Tx, storeID, userID string, tokens int64) (int64, error) {
	if err := r.s.fail("tokens.AddTokens"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.tokens[storeID]
	if !ok {
		st = &model.StoreTokens{StoreID: storeID, UserID: userID}
		r.s.tokens[storeID] = st
	}
	st.Tokens += tokens
	return st.Tokens, nil
}

func (r memTokens) FindByStoreID(ctx context.Context, tx repository.Tx, storeID string) (*model.StoreTokens, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.tokens[storeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *st
	return &c, nil
}

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn directly unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// =============================
// Adapters
// =============================

// countingGateway wraps a gateway and counts verify calls.
type countingGateway struct {
	adapter.PaymentGateway
	mu       sync.Mutex
	verifies int
	requests int
}

func (g *countingGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL string, meta *adapter.PaymentMeta) (adapter.RequestResult, error) {
	g.mu.Lock()
	g.requests++
	g.mu.Unlock()
	return g.PaymentGateway.RequestPayment(ctx, amount, description, callbackURL, meta)
}

func (g *countingGateway) VerifyPayment(ctx context.Context, amount int64, authority string) (adapter.VerifyResult, error) {
	g.mu.Lock()
	g.verifies++
	g.mu.Unlock()
	return g.PaymentGateway.VerifyPayment(ctx, amount, authority)
}

func (g *countingGateway) Verifies() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifies
}

// MockLocker is an in-process adapter.Locker.
type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
	Err  error
}

func NewMockLocker() *MockLocker { return &MockLocker{held: map[string]string{}} }

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.Err != nil {
		return "", l.Err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockBusy
	}
	l.held[key] = key + "-token"
	return l.held[key], nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// Hold marks key as taken by someone else.
func (l *MockLocker) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "other"
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []model.LedgerEvent
}

func (p *MockPublisher) Publish(ctx context.Context, ev model.LedgerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, ev)
}

func (p *MockPublisher) Types() []model.LedgerEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.LedgerEventType, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Type
	}
	return out
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// MockGateway is a scripted adapter.PaymentGateway.
type MockGateway struct {
	RequestPaymentFunc func(ctx context.Context, amount int64, description, callbackURL string, meta *adapter.PaymentMeta) (adapter.RequestResult, error)
	VerifyPaymentFunc  func(ctx context.Context, amount int64, authority string) (adapter.VerifyResult, error)

	mu           sync.Mutex
	CallbackURLs []string
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL string, meta *adapter.PaymentMeta) (adapter.RequestResult, error) {
	g.mu.Lock()
	g.CallbackURLs = append(g.CallbackURLs, callbackURL)
	g.mu.Unlock()
	return g.RequestPaymentFunc(ctx, amount, description, callbackURL, meta)
}

func (g *MockGateway) VerifyPayment(ctx context.Context, amount int64, authority string) (adapter.VerifyResult, error) {
	return g.VerifyPaymentFunc(ctx, amount, authority)
}

func (g *MockGateway) PaymentURL(authority string) string { return "https://pay.test/" + authority }

func (g *MockGateway) StatusMessage(code int) string { return "mock status" }
