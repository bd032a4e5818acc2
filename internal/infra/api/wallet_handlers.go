package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"store-billing/internal/domain/model"
	"store-billing/internal/infra/logging"
	"store-billing/internal/usecase"
)

const maxBodyBytes = 1 << 16

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request")
		return false
	}
	return true
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.wallet.GetOrCreateWallet(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: wallet.Balance, Currency: wallet.Currency})
}

func (s *Server) handleCharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFrom(ctx)

	var req chargeRequest
	if !s.decode(w, r, &req) {
		return
	}

	if s.chargeLim != nil && s.chargeRate > 0 {
		ok, err := s.chargeLim.Allow(ctx, s.chargeKey(userID), s.chargeRate, s.chargeWin)
		if err != nil {
			// fail open: the limiter protects the gateway, not the ledger
			l := logging.With(ctx, s.log)
			l.Warn().Err(err).Msg("charge rate limiter unavailable")
		} else if !ok {
			s.writeError(w, r, http.StatusTooManyRequests, "rate_limited")
			return
		}
	}

	meta := &model.PaymentMetadata{Mobile: req.Mobile, Email: req.Email}
	res, err := s.wallet.InitiateCharge(ctx, userID, req.Amount, meta)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chargeResponse{
		Success:    true,
		PaymentURL: res.PaymentURL,
		PaymentID:  res.Payment.ID,
		Authority:  res.Payment.Authority,
	})
}

// handleVerify is the browser return from the gateway. It always redirects,
// even when the payment's callback bucket is spent.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := usecase.CallbackParams{
		PaymentID: q.Get("paymentId"),
		Authority: q.Get("Authority"),
		Status:    q.Get("Status"),
	}
	if s.cbLimit != nil && in.PaymentID != "" && !s.cbLimit.Allow(in.PaymentID) {
		s.log.Warn().Str("payment_id", in.PaymentID).Msg("callback limited, leaving payment to the sweep")
		s.redirectResult(w, r, usecase.VerifyPending)
		return
	}
	out, err := s.verifier.Verify(r.Context(), in)
	result := out.Result
	if err != nil || result == "" {
		result = usecase.VerifyFailed
	}
	s.redirectResult(w, r, result)
}

func (s *Server) redirectResult(w http.ResponseWriter, r *http.Request, result usecase.VerifyResult) {
	target := s.frontend + "/wallet?status=" + url.QueryEscape(string(result))
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := s.wallet.ListTransactions(r.Context(), userFrom(r.Context()), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionDTOs(txs)})
}
