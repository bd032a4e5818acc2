package adapter

import "context"

const (
	// GatewayCodeSuccess is the provider code for an accepted request or a fresh verification.
	GatewayCodeSuccess = 100
	// GatewayCodeAlreadyVerified means the authority was verified by an earlier call.
	GatewayCodeAlreadyVerified = 101
)

// PaymentMeta is the optional contact info sent along with a payment request.
type PaymentMeta struct {
	Mobile string `json:"mobile,omitempty"`
	Email  string `json:"email,omitempty"`
}

type RequestResult struct {
	Authority string
	Code      int
	Message   string
}

type VerifyResult struct {
	Code     int
	RefID    string
	CardPan  string
	CardHash string
	Message  string
}

func (r VerifyResult) AlreadyVerified() bool { return r.Code == GatewayCodeAlreadyVerified }

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// RequestPayment opens a payment on the provider. A non-success provider code
	// is returned as *domain.GatewayError.
	RequestPayment(ctx context.Context, amount int64, description, callbackURL string, meta *PaymentMeta) (RequestResult, error)
	// VerifyPayment must receive the exact amount used in RequestPayment for authority.
	// Codes 100 and 101 are both success.
	VerifyPayment(ctx context.Context, amount int64, authority string) (VerifyResult, error)
	// PaymentURL builds the redirect URL for an authority; no I/O.
	PaymentURL(authority string) string
	// StatusMessage describes a provider code for logs and operators.
	StatusMessage(code int) string
}
