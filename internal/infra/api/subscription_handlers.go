package api

import (
	"net/http"
	"strings"
)

func (s *Server) handlePlans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plans": s.subs.Plans()})
}

func (s *Server) handlePackages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"packages": s.tokens.Packages()})
}

func (s *Server) handleSubscriptionList(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subs.List(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": toSubscriptionDTOs(subs)})
}

func (s *Server) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	storeID := strings.TrimSpace(r.URL.Query().Get("storeId"))
	if storeID == "" {
		s.writeError(w, r, http.StatusBadRequest, "store_required")
		return
	}
	st, err := s.subs.Status(r.Context(), userFrom(r.Context()), storeID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		HasActive:     st.HasActive,
		Subscription:  toSubscriptionDTO(st.Subscription),
		DaysRemaining: st.DaysRemaining,
	})
}

func (s *Server) handleSubscriptionPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.subs.Purchase(r.Context(), userFrom(r.Context()), req.StoreID, req.Plan)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"subscription": toSubscriptionDTO(res.Subscription),
		"balance":      res.Balance,
	})
}

func (s *Server) handleTokenPurchase(w http.ResponseWriter, r *http.Request) {
	var req tokenPurchaseRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.tokens.Purchase(r.Context(), userFrom(r.Context()), req.StoreID, req.Tokens, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPurchaseResponse{
		Success:    true,
		Tokens:     res.Tokens,
		Amount:     res.Amount,
		NewBalance: res.NewBalance,
	})
}
