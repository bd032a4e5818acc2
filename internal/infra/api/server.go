package api

import (
	"context"
	"net/http"
	"time"

	"store-billing/internal/domain/model"
	"store-billing/internal/infra/i18n"
	"store-billing/internal/infra/logging"
	"store-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Verifier settles a gateway callback.
type Verifier interface {
	Verify(ctx context.Context, in usecase.CallbackParams) (usecase.VerifyOutcome, error)
}

// TokenPurchaser buys AI token packages for a store.
type TokenPurchaser interface {
	Purchase(ctx context.Context, userID, storeID string, tokens, amount int64) (*usecase.TokenPurchaseResult, error)
	Packages() []model.TokenPackage
}

type Deps struct {
	Wallet        usecase.WalletUseCase
	Verifier      Verifier
	Subscriptions usecase.SubscriptionUseCase
	Tokens        TokenPurchaser

	Auth          *Authenticator
	I18n          *i18n.Bundle
	ChargeLimiter ChargeLimiter // nil disables the charge limit
	CallbackLimit *KeyLimiter   // nil disables the per-payment callback limit
	Logger        *zerolog.Logger

	ChargeLimits     usecase.ChargeLimits
	ChargeRateLimit  int
	ChargeRateWindow time.Duration
	ChargeRateKey    func(userID string) string
	FrontendURL      string
	AllowedOrigins   []string
	RequestTimeout   time.Duration
}

type Server struct {
	wallet   usecase.WalletUseCase
	verifier Verifier
	subs     usecase.SubscriptionUseCase
	tokens   TokenPurchaser

	auth      *Authenticator
	i18n      *i18n.Bundle
	validate  *validator.Validate
	chargeLim ChargeLimiter
	cbLimit   *KeyLimiter
	log       *zerolog.Logger

	limits     usecase.ChargeLimits
	chargeRate int
	chargeWin  time.Duration
	chargeKey  func(string) string
	frontend   string
	origins    []string
	reqTimeout time.Duration
}

func NewServer(d Deps) *Server {
	if d.ChargeRateKey == nil {
		d.ChargeRateKey = func(id string) string { return "rate_limit:wallet:charge:" + id }
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	return &Server{
		wallet:     d.Wallet,
		verifier:   d.Verifier,
		subs:       d.Subscriptions,
		tokens:     d.Tokens,
		auth:       d.Auth,
		i18n:       d.I18n,
		validate:   validator.New(),
		chargeLim:  d.ChargeLimiter,
		cbLimit:    d.CallbackLimit,
		log:        d.Logger,
		limits:     d.ChargeLimits,
		chargeRate: d.ChargeRateLimit,
		chargeWin:  d.ChargeRateWindow,
		chargeKey:  d.ChargeRateKey,
		frontend:   d.FrontendURL,
		origins:    d.AllowedOrigins,
		reqTimeout: d.RequestTimeout,
	}
}

// Handler returns the full HTTP surface with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/subscription/plans", s.handlePlans)
	r.Get("/tokens/packages", s.handlePackages)

	r.Get("/wallet/verify", s.handleVerify)

	r.Group(func(r chi.Router) {
		r.Use(s.RequireUser)

		r.Get("/wallet/balance", s.handleBalance)
		r.Post("/wallet/charge", s.handleCharge)
		r.Get("/wallet/transactions", s.handleTransactions)

		r.Get("/subscription/list", s.handleSubscriptionList)
		r.Get("/subscription/status", s.handleSubscriptionStatus)
		r.Post("/subscription/purchase", s.handleSubscriptionPurchase)

		r.Post("/tokens/purchase", s.handleTokenPurchase)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, req, http.StatusNotFound, "not_found")
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept-Language", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	})

	return Chain(c.Handler(r),
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.reqTimeout),
	)
}
