package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"store-billing/internal/domain"
	"store-billing/internal/infra/logging"
)

type errorBody struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	Code          string `json:"code"`
	DaysRemaining *int   `json:"daysRemaining,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders a localized message for code, which doubles as the locale key.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code string, args ...any) {
	msg := s.i18n.For(r.Header.Get("Accept-Language")).T(code, args...)
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// fail maps a use case error onto the HTTP surface. Matching is by identity only.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ase *domain.ActiveSubscriptionError
		gwe *domain.GatewayError
	)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		s.writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrInvalidAmount):
		s.writeError(w, r, http.StatusBadRequest, "invalid_amount", s.limits.Min, s.limits.Max)
	case errors.Is(err, domain.ErrInvalidPlan):
		s.writeError(w, r, http.StatusBadRequest, "invalid_plan")
	case errors.Is(err, domain.ErrInvalidPackage):
		s.writeError(w, r, http.StatusBadRequest, "invalid_package")
	case errors.Is(err, domain.ErrInsufficientBalance):
		s.writeError(w, r, http.StatusBadRequest, "insufficient_balance")
	case errors.As(err, &ase):
		days := ase.DaysRemaining
		msg := s.i18n.For(r.Header.Get("Accept-Language")).T("active_subscription", days)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Code: "active_subscription", DaysRemaining: &days})
	case errors.Is(err, domain.ErrInvalidArgument):
		s.writeError(w, r, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "not_found")
	case errors.As(err, &gwe), errors.Is(err, domain.ErrGatewayUnavailable):
		l := logging.With(r.Context(), s.log)
		ev := l.Error().Err(err)
		if gwe != nil {
			ev = ev.Int("gateway_code", gwe.Code).Str("gateway_message", gwe.Message)
		}
		ev.Msg("gateway call failed")
		s.writeError(w, r, http.StatusInternalServerError, "gateway_error")
	default:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal_error")
	}
}
