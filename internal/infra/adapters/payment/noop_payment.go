package payment

import (
	"context"
	"fmt"
	"sync"

	"store-billing/internal/domain"
	"store-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for dev mode and tests. It
// enforces the same amount round-trip rule as the real provider (-50).
type NoopPaymentGateway struct {
	mu       sync.Mutex
	seq      int64
	intents  map[string]int64 // authority -> requested amount
	verified map[string]bool
	failures map[string]int // authority -> forced provider code
	down     bool
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{
		intents:  make(map[string]int64),
		verified: make(map[string]bool),
		failures: make(map[string]int),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) PaymentURL(authority string) string {
	return "https://example.test/pay/" + authority
}

func (g *NoopPaymentGateway) StatusMessage(code int) string { return StatusMessage(code) }

// FailVerify forces the next verify of authority to return the given provider code.
func (g *NoopPaymentGateway) FailVerify(authority string, code int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[authority] = code
}

// SetDown makes every call fail as unreachable.
func (g *NoopPaymentGateway) SetDown(down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.down = down
}

func (g *NoopPaymentGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL string, meta *adapter.PaymentMeta) (adapter.RequestResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return adapter.RequestResult{}, &domain.GatewayError{Op: "request", Unreachable: true, Err: fmt.Errorf("noop: down")}
	}
	if amount <= 0 {
		return adapter.RequestResult{}, domain.ErrInvalidAmount
	}
	g.seq++
	authority := fmt.Sprintf("A%035d", g.seq)
	g.intents[authority] = amount
	return adapter.RequestResult{Authority: authority, Code: adapter.GatewayCodeSuccess, Message: StatusMessage(100)}, nil
}

func (g *NoopPaymentGateway) VerifyPayment(ctx context.Context, amount int64, authority string) (adapter.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return adapter.VerifyResult{}, &domain.GatewayError{Op: "verify", Unreachable: true, Err: fmt.Errorf("noop: down")}
	}
	if code, ok := g.failures[authority]; ok {
		delete(g.failures, authority)
		return adapter.VerifyResult{}, &domain.GatewayError{Op: "verify", Code: code, Message: StatusMessage(code)}
	}
	exp, ok := g.intents[authority]
	if !ok {
		return adapter.VerifyResult{}, &domain.GatewayError{Op: "verify", Code: -54, Message: StatusMessage(-54)}
	}
	if exp != amount {
		return adapter.VerifyResult{}, &domain.GatewayError{Op: "verify", Code: -50, Message: StatusMessage(-50)}
	}
	code := adapter.GatewayCodeSuccess
	if g.verified[authority] {
		code = adapter.GatewayCodeAlreadyVerified
	}
	g.verified[authority] = true
	return adapter.VerifyResult{
		Code:     code,
		RefID:    "ref-" + authority[len(authority)-6:],
		CardPan:  "502229******5995",
		CardHash: "noop-" + authority,
		Message:  StatusMessage(code),
	}, nil
}
