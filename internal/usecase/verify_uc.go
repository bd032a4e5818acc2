package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/adapter"
	"store-billing/internal/domain/ports/repository"
	"store-billing/internal/infra/metrics"
)

const (
	verifyLockTTL   = time.Minute
	gatewayStatusOK = "OK"
)

type VerifyResult string

const (
	VerifySuccess VerifyResult = "success"
	VerifyFailed  VerifyResult = "failed"
	// VerifyPending means the payment is still open and will be settled by
	// a concurrent delivery or the stale sweep.
	VerifyPending VerifyResult = "pending"
)

// CallbackParams are the untrusted query values of the gateway redirect.
type CallbackParams struct {
	PaymentID string
	Authority string
	Status    string
}

type VerifyOutcome struct {
	Result  VerifyResult
	Reason  string // bounded label for logs and metrics
	Payment *model.Payment
}

// SweepReport counts what one stale-payment pass resolved.
type SweepReport struct {
	Verified int
	Failed   int
	Skipped  int
}

// LockKeyFunc maps a payment id to its distributed lock key.
type LockKeyFunc func(paymentID string) string

type VerifyUseCase struct {
	ledger
	tm        repository.TransactionManager
	gateway   adapter.PaymentGateway
	locker    adapter.Locker
	lockKey   LockKeyFunc
	publisher adapter.LedgerPublisher
	log       *zerolog.Logger
}

// NewVerifyUseCase builds the reconciler. locker may be nil; guarded updates
// alone still prevent double credit.
func NewVerifyUseCase(
	wallets repository.WalletRepository,
	entries repository.WalletTransactionRepository,
	payments repository.PaymentRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	locker adapter.Locker,
	lockKey LockKeyFunc,
	publisher adapter.LedgerPublisher,
	logger *zerolog.Logger,
) *VerifyUseCase {
	if lockKey == nil {
		lockKey = func(id string) string { return "lock:payment:verify:" + id }
	}
	return &VerifyUseCase{
		ledger:    ledger{wallets: wallets, entries: entries, payments: payments},
		tm:        tm,
		gateway:   gateway,
		locker:    locker,
		lockKey:   lockKey,
		publisher: publisher,
		log:       logger,
	}
}

// Verify settles one gateway callback. The returned error is only set for
// infrastructure failures; the outcome is always usable.
func (u *VerifyUseCase) Verify(ctx context.Context, in CallbackParams) (out VerifyOutcome, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveVerify(string(out.Result), out.Reason, time.Since(start))
	}()

	if in.PaymentID == "" || in.Authority == "" {
		return failed("missing_params", nil), nil
	}
	if _, perr := uuid.Parse(in.PaymentID); perr != nil {
		return failed("not_found", nil), nil
	}
	p, err := u.payments.FindByID(ctx, repository.NoTX, in.PaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return failed("not_found", nil), nil
		}
		return failed("internal", nil), err
	}
	if p.Authority == "" || p.Authority != in.Authority {
		u.log.Warn().Str("payment_id", p.ID).Msg("callback authority does not match stored authority")
		return failed("authority_mismatch", p), nil
	}

	if u.locker != nil {
		key := u.lockKey(p.ID)
		token, lerr := u.locker.TryLock(ctx, key, verifyLockTTL)
		switch {
		case errors.Is(lerr, domain.ErrLockBusy):
			cur, rerr := u.payments.FindByID(ctx, repository.NoTX, p.ID)
			if rerr != nil {
				return failed("internal", p), rerr
			}
			return stateOutcome(cur, "lock_busy"), nil
		case lerr != nil:
			u.log.Warn().Err(lerr).Str("payment_id", p.ID).Msg("verify lock unavailable, relying on guarded updates")
		default:
			defer func() {
				uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if uerr := u.locker.Unlock(uctx, key, token); uerr != nil {
					u.log.Warn().Err(uerr).Str("payment_id", p.ID).Msg("verify unlock failed")
				}
			}()
			// another instance may have finished while we waited
			if p, err = u.payments.FindByID(ctx, repository.NoTX, p.ID); err != nil {
				return failed("internal", nil), err
			}
		}
	}

	if p.Status != model.PaymentStatusPending {
		return stateOutcome(p, "already_processed"), nil
	}

	if in.Status != gatewayStatusOK {
		if err := u.close(ctx, p, model.PaymentStatusCancelled); err != nil {
			return failed("internal", p), err
		}
		metrics.IncPayment("cancelled")
		return failed("not_ok_status", p), nil
	}

	return u.settle(ctx, p)
}

// settle calls the gateway with the stored amount and credits the wallet exactly once.
func (u *VerifyUseCase) settle(ctx context.Context, p *model.Payment) (VerifyOutcome, error) {
	res, err := u.gateway.VerifyPayment(ctx, p.Amount, p.Authority)
	if err != nil {
		ev := u.log.Error().Err(err).Str("payment_id", p.ID).Str("user_id", p.UserID).Int64("amount", p.Amount)
		var ge *domain.GatewayError
		if errors.As(err, &ge) {
			ev = ev.Int("gateway_code", ge.Code).Str("gateway_message", u.gateway.StatusMessage(ge.Code))
		}
		ev.Msg("gateway verify failed")
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			// left pending for the stale sweep
			return pending("gateway_unreachable", p), nil
		}
		if cerr := u.close(ctx, p, model.PaymentStatusFailed); cerr != nil {
			return failed("internal", p), cerr
		}
		metrics.IncPayment("failed")
		return failed("gateway_error", p), nil
	}

	v := &model.PaymentVerification{
		RefID:      res.RefID,
		CardPan:    res.CardPan,
		CardHash:   res.CardHash,
		VerifiedAt: time.Now(),
	}
	var credited *model.LedgerEvent
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.payments.UpdateStatusIfPending(ctx, tx, p.ID, model.PaymentStatusVerified, v)
		if err != nil || !ok {
			return err
		}
		ev, err := u.credit(ctx, tx, p)
		if err != nil {
			return err
		}
		credited = ev
		return nil
	})
	if err != nil {
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("credit after verify failed")
		return failed("internal", p), err
	}

	cur, err := u.payments.FindByID(ctx, repository.NoTX, p.ID)
	if err != nil {
		return failed("internal", p), err
	}
	if credited == nil {
		// lost the guard to a concurrent delivery
		return stateOutcome(cur, "already_processed"), nil
	}

	metrics.IncPayment("verified")
	metrics.AddPaymentRevenue(model.CurrencyIRT, p.Amount)
	metrics.IncWalletOp("credit", "ok")
	u.log.Info().Str("payment_id", p.ID).Str("user_id", p.UserID).Int64("amount", p.Amount).
		Str("ref_id", res.RefID).Bool("already_verified", res.AlreadyVerified()).Msg("payment verified")
	u.publisher.Publish(ctx, *credited)
	return VerifyOutcome{Result: VerifySuccess, Reason: "verified", Payment: cur}, nil
}

// credit completes the pending charge entry and adds the amount to the wallet.
func (u *VerifyUseCase) credit(ctx context.Context, tx repository.Tx, p *model.Payment) (*model.LedgerEvent, error) {
	entry, err := u.entries.FindByPaymentID(ctx, tx, p.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		w, err := u.wallets.GetOrCreate(ctx, tx, p.UserID)
		if err != nil {
			return nil, err
		}
		entry, err = model.NewWalletTransaction(w, &p.ID, model.TransactionTypeCharge, p.Amount, chargeDescription, model.TransactionStatusCompleted)
		if err != nil {
			return nil, err
		}
		if err := u.entries.Save(ctx, tx, entry); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		ok, err := u.entries.UpdateStatusIfPending(ctx, tx, entry.ID, model.TransactionStatusCompleted)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrPaymentNotPending
		}
	}

	bal, err := u.wallets.Credit(ctx, tx, entry.WalletID, p.Amount)
	if err != nil {
		return nil, err
	}
	return &model.LedgerEvent{
		Type:          model.EventWalletCredited,
		UserID:        p.UserID,
		WalletID:      entry.WalletID,
		PaymentID:     p.ID,
		TransactionID: entry.ID,
		Amount:        p.Amount,
		Balance:       bal,
		At:            time.Now().UTC(),
	}, nil
}

// close moves a pending payment to status and fails its pending ledger entry.
func (u *VerifyUseCase) close(ctx context.Context, p *model.Payment, status model.PaymentStatus) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.payments.UpdateStatusIfPending(ctx, tx, p.ID, status, nil)
		if err != nil || !ok {
			return err
		}
		p.Status = status
		entry, err := u.entries.FindByPaymentID(ctx, tx, p.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = u.entries.UpdateStatusIfPending(ctx, tx, entry.ID, model.TransactionStatusFailed)
		return err
	})
}

// SweepStale resolves payments left pending since before olderThan. Payments
// that reached the gateway are verified as if an OK callback arrived; the rest fail.
func (u *VerifyUseCase) SweepStale(ctx context.Context, olderThan time.Time, limit int) (SweepReport, error) {
	var rep SweepReport
	items, err := u.payments.ListPendingOlderThan(ctx, repository.NoTX, olderThan, limit)
	if err != nil {
		return rep, err
	}
	for _, p := range items {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if p.Authority == "" {
			if err := u.close(ctx, p, model.PaymentStatusFailed); err != nil {
				u.log.Error().Err(err).Str("payment_id", p.ID).Msg("sweep: close failed")
				rep.Skipped++
				metrics.IncStaleSwept("skipped")
				continue
			}
			rep.Failed++
			metrics.IncStaleSwept("failed")
			continue
		}
		out, err := u.Verify(ctx, CallbackParams{PaymentID: p.ID, Authority: p.Authority, Status: gatewayStatusOK})
		switch {
		case err != nil || out.Result == VerifyPending:
			rep.Skipped++
			metrics.IncStaleSwept("skipped")
		case out.Result == VerifySuccess:
			rep.Verified++
			metrics.IncStaleSwept("verified")
		default:
			rep.Failed++
			metrics.IncStaleSwept("failed")
		}
	}
	return rep, nil
}

func failed(reason string, p *model.Payment) VerifyOutcome {
	return VerifyOutcome{Result: VerifyFailed, Reason: reason, Payment: p}
}

func pending(reason string, p *model.Payment) VerifyOutcome {
	return VerifyOutcome{Result: VerifyPending, Reason: reason, Payment: p}
}

// stateOutcome reports an already settled payment without touching it.
func stateOutcome(p *model.Payment, reason string) VerifyOutcome {
	switch p.Status {
	case model.PaymentStatusVerified:
		return VerifyOutcome{Result: VerifySuccess, Reason: reason, Payment: p}
	case model.PaymentStatusPending:
		return pending(reason, p)
	}
	return VerifyOutcome{Result: VerifyFailed, Reason: reason, Payment: p}
}
