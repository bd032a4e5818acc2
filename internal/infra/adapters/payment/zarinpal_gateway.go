package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"store-billing/internal/domain"
	"store-billing/internal/domain/ports/adapter"
	"store-billing/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*ZarinPalGateway)(nil)

const (
	zarinpalAPI        = "https://api.zarinpal.com/pg/v4"
	zarinpalSandboxAPI = "https://sandbox.zarinpal.com/pg/v4"
	zarinpalPay        = "https://www.zarinpal.com/pg/StartPay/"
	zarinpalSandboxPay = "https://sandbox.zarinpal.com/pg/StartPay/"
)

// ZarinPalGateway implements adapter.PaymentGateway using the REST v4 API.
// Amounts are sent in Toman (currency IRT).
type ZarinPalGateway struct {
	merchantID string
	apiBase    string
	payBase    string
	client     *http.Client
}

type ZarinPalOption func(*ZarinPalGateway)

// WithEndpoints overrides the API and StartPay bases (tests, proxies).
func WithEndpoints(apiBase, payBase string) ZarinPalOption {
	return func(z *ZarinPalGateway) {
		z.apiBase = apiBase
		z.payBase = payBase
	}
}

func WithHTTPClient(c *http.Client) ZarinPalOption {
	return func(z *ZarinPalGateway) { z.client = c }
}

func NewZarinPalGateway(merchantID string, sandbox bool, timeout time.Duration, opts ...ZarinPalOption) (*ZarinPalGateway, error) {
	if merchantID == "" {
		return nil, errors.New("merchant id empty")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	z := &ZarinPalGateway{
		merchantID: merchantID,
		apiBase:    zarinpalAPI,
		payBase:    zarinpalPay,
		client:     &http.Client{Timeout: timeout},
	}
	if sandbox {
		z.apiBase = zarinpalSandboxAPI
		z.payBase = zarinpalSandboxPay
	}
	for _, o := range opts {
		o(z)
	}
	return z, nil
}

func (z *ZarinPalGateway) Name() string { return "zarinpal" }

func (z *ZarinPalGateway) PaymentURL(authority string) string {
	return z.payBase + url.PathEscape(authority)
}

func (z *ZarinPalGateway) StatusMessage(code int) string { return StatusMessage(code) }

// envelope is the v4 response shape. On failure "data" is an empty array and
// "errors" carries the code, so both are decoded lazily.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type providerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RequestPayment calls /payment/request.json.
func (z *ZarinPalGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL string, meta *adapter.PaymentMeta) (adapter.RequestResult, error) {
	if amount <= 0 {
		return adapter.RequestResult{}, domain.ErrInvalidAmount
	}
	if u, err := url.Parse(callbackURL); err != nil || !u.IsAbs() {
		return adapter.RequestResult{}, fmt.Errorf("callback url must be absolute: %w", domain.ErrInvalidArgument)
	}
	payload := map[string]any{
		"merchant_id":  z.merchantID,
		"amount":       amount,
		"currency":     "IRT",
		"description":  description,
		"callback_url": callbackURL,
	}
	if meta != nil && (meta.Mobile != "" || meta.Email != "") {
		payload["metadata"] = meta
	}

	var data struct {
		Code      int    `json:"code"`
		Message   string `json:"message"`
		Authority string `json:"authority"`
	}
	code, msg, err := z.call(ctx, "request", "/payment/request.json", payload, &data)
	if err != nil {
		return adapter.RequestResult{}, err
	}
	if code != adapter.GatewayCodeSuccess || data.Authority == "" {
		return adapter.RequestResult{}, &domain.GatewayError{Op: "request", Code: code, Message: msg}
	}
	return adapter.RequestResult{Authority: data.Authority, Code: code, Message: msg}, nil
}

// VerifyPayment calls /payment/verify.json. 100 and 101 are both success.
func (z *ZarinPalGateway) VerifyPayment(ctx context.Context, amount int64, authority string) (adapter.VerifyResult, error) {
	if amount <= 0 || authority == "" {
		return adapter.VerifyResult{}, domain.ErrInvalidArgument
	}
	payload := map[string]any{
		"merchant_id": z.merchantID,
		"amount":      amount,
		"authority":   authority,
	}

	var data struct {
		Code     int    `json:"code"`
		Message  string `json:"message"`
		RefID    int64  `json:"ref_id"`
		CardPan  string `json:"card_pan"`
		CardHash string `json:"card_hash"`
	}
	code, msg, err := z.call(ctx, "verify", "/payment/verify.json", payload, &data)
	if err != nil {
		return adapter.VerifyResult{}, err
	}
	if code != adapter.GatewayCodeSuccess && code != adapter.GatewayCodeAlreadyVerified {
		return adapter.VerifyResult{}, &domain.GatewayError{Op: "verify", Code: code, Message: msg}
	}
	res := adapter.VerifyResult{
		Code:     code,
		CardPan:  data.CardPan,
		CardHash: data.CardHash,
		Message:  msg,
	}
	if data.RefID != 0 {
		res.RefID = strconv.FormatInt(data.RefID, 10)
	}
	return res, nil
}

// call posts payload and decodes the data object into out. It returns the
// provider code and message from whichever of data/errors carried them.
func (z *ZarinPalGateway) call(ctx context.Context, op, path string, payload any, out any) (int, string, error) {
	start := time.Now()
	code, msg, err := z.do(ctx, op, path, payload, out)
	label := strconv.Itoa(code)
	if err != nil && code == 0 {
		label = "unreachable"
	}
	metrics.ObserveGatewayCall(op, label, time.Since(start))
	return code, msg, err
}

func (z *ZarinPalGateway) do(ctx context.Context, op, path string, payload any, out any) (int, string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.apiBase+path, bytes.NewReader(b))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := z.client.Do(req)
	if err != nil {
		return 0, "", &domain.GatewayError{Op: op, Unreachable: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, "", &domain.GatewayError{Op: op, Unreachable: true, Err: err}
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, "", &domain.GatewayError{Op: op, Unreachable: true, Err: fmt.Errorf("http %d: decode: %w", resp.StatusCode, err)}
	}

	if isObject(env.Errors) {
		var pe providerError
		if err := json.Unmarshal(env.Errors, &pe); err == nil && pe.Code != 0 {
			if pe.Message == "" {
				pe.Message = StatusMessage(pe.Code)
			}
			return pe.Code, pe.Message, nil
		}
	}
	if !isObject(env.Data) {
		return 0, "", &domain.GatewayError{Op: op, Unreachable: true, Err: fmt.Errorf("http %d: empty data", resp.StatusCode)}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return 0, "", &domain.GatewayError{Op: op, Unreachable: true, Err: fmt.Errorf("decode data: %w", err)}
	}
	var pe providerError
	_ = json.Unmarshal(env.Data, &pe)
	if pe.Message == "" {
		pe.Message = StatusMessage(pe.Code)
	}
	return pe.Code, pe.Message, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
