package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/telemetry"
)

// Paystack implements Provider against the Paystack REST API.
type Paystack struct {
	config Config
	client *http.Client
}

// NewPaystack creates a Paystack provider with the given configuration.
func NewPaystack(config Config) (*Paystack, error) {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Paystack{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

// envelope is Paystack's uniform response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type planData struct {
	PlanCode  string    `json:"plan_code"`
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Interval  string    `json:"interval"`
	CreatedAt time.Time `json:"createdAt"`
}

type checkoutData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type transactionData struct {
	Reference       string         `json:"reference"`
	Status          string         `json:"status"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	Channel         string         `json:"channel"`
	GatewayResponse string         `json:"gateway_response"`
	PaidAt          string         `json:"paid_at"`
	Metadata        map[string]any `json:"metadata"`
	Customer        struct {
		CustomerCode string `json:"customer_code"`
		Email        string `json:"email"`
	} `json:"customer"`
	Authorization struct {
		AuthorizationCode string `json:"authorization_code"`
	} `json:"authorization"`
}

type subscriptionData struct {
	SubscriptionCode string `json:"subscription_code"`
	EmailToken       string `json:"email_token"`
	Status           string `json:"status"`
	NextPaymentDate  string `json:"next_payment_date"`
}

// CreatePlan registers a recurring billing plan.
func (p *Paystack) CreatePlan(ctx context.Context, params CreatePlanParams) (*Plan, error) {
	body := map[string]any{
		"name":     params.Name,
		"amount":   toMinorUnits(params.Amount),
		"interval": params.Interval,
		"currency": params.Currency,
	}

	var data planData
	if err := p.do(ctx, "plan.create", http.MethodPost, "/plan", body, &data); err != nil {
		return nil, err
	}

	return &Plan{
		PlanCode:  data.PlanCode,
		Name:      data.Name,
		Amount:    fromMinorUnits(data.Amount),
		Currency:  data.Currency,
		Interval:  data.Interval,
		CreatedAt: data.CreatedAt,
	}, nil
}

// InitializeTransaction starts a hosted checkout session.
func (p *Paystack) InitializeTransaction(ctx context.Context, params InitializeTransactionParams) (*Checkout, error) {
	body := map[string]any{
		"email":     params.Email,
		"amount":    toMinorUnits(params.Amount),
		"currency":  params.Currency,
		"reference": params.Reference,
	}
	if params.PlanCode != "" {
		body["plan"] = params.PlanCode
	}
	if cb := params.CallbackURL; cb != "" {
		body["callback_url"] = cb
	} else if p.config.CallbackURL != "" {
		body["callback_url"] = p.config.CallbackURL
	}
	if params.Metadata != nil {
		body["metadata"] = params.Metadata
	}

	var data checkoutData
	if err := p.do(ctx, "transaction.initialize", http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}

	return &Checkout{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// VerifyTransaction fetches the settled state of a charge.
func (p *Paystack) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	var data transactionData
	if err := p.do(ctx, "transaction.verify", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, err
	}
	return data.toTransaction(), nil
}

// CreateSubscription binds a customer's authorization to a plan.
func (p *Paystack) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*GatewaySubscription, error) {
	body := map[string]any{
		"customer": params.CustomerCode,
		"plan":     params.PlanCode,
	}
	if params.AuthorizationCode != "" {
		body["authorization"] = params.AuthorizationCode
	}
	if params.StartDate != nil {
		body["start_date"] = params.StartDate.Format(time.RFC3339)
	}

	var data subscriptionData
	if err := p.do(ctx, "subscription.create", http.MethodPost, "/subscription", body, &data); err != nil {
		return nil, err
	}

	sub := &GatewaySubscription{
		SubscriptionCode: data.SubscriptionCode,
		EmailToken:       data.EmailToken,
		Status:           data.Status,
	}
	if t, ok := parseGatewayTime(data.NextPaymentDate); ok {
		sub.NextPaymentAt = &t
	}
	return sub, nil
}

// EnableSubscription re-activates a disabled billing mandate.
func (p *Paystack) EnableSubscription(ctx context.Context, code, emailToken string) error {
	body := map[string]any{"code": code, "token": emailToken}
	return p.do(ctx, "subscription.enable", http.MethodPost, "/subscription/enable", body, nil)
}

// DisableSubscription stops further gateway-raised charges.
func (p *Paystack) DisableSubscription(ctx context.Context, code, emailToken string) error {
	body := map[string]any{"code": code, "token": emailToken}
	return p.do(ctx, "subscription.disable", http.MethodPost, "/subscription/disable", body, nil)
}

// ChargeAuthorization charges a saved card directly.
func (p *Paystack) ChargeAuthorization(ctx context.Context, params ChargeAuthorizationParams) (*Transaction, error) {
	body := map[string]any{
		"email":              params.Email,
		"amount":             toMinorUnits(params.Amount),
		"currency":           params.Currency,
		"authorization_code": params.AuthorizationCode,
		"reference":          params.Reference,
	}
	if params.Metadata != nil {
		body["metadata"] = params.Metadata
	}

	var data transactionData
	if err := p.do(ctx, "transaction.charge", http.MethodPost, "/transaction/charge_authorization", body, &data); err != nil {
		return nil, err
	}
	return data.toTransaction(), nil
}

// do issues one API call and decodes the data portion of the envelope into out.
// There is no retry here: callers that can retry (sweeps) run again later,
// callers that cannot (request paths) surface the error. The op label keeps
// latency metrics bounded; paths can carry per-charge references.
func (p *Paystack) do(ctx context.Context, op, method, path string, body any, out any) error {
	if telemetry.Business != nil {
		start := time.Now()
		defer func() {
			telemetry.Business.GatewayAPILatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		}()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("paystack: encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("paystack: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &APIError{Message: err.Error(), Endpoint: path, Err: ErrUnavailable}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &APIError{Message: err.Error(), Endpoint: path, Err: ErrUnavailable}
	}

	if resp.StatusCode >= 500 {
		return &APIError{Message: string(raw), StatusCode: resp.StatusCode, Endpoint: path, Err: ErrUnavailable}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Message: "malformed response body", StatusCode: resp.StatusCode, Endpoint: path, Err: ErrUnavailable}
	}

	if resp.StatusCode == http.StatusNotFound {
		return &APIError{Message: env.Message, StatusCode: resp.StatusCode, Endpoint: path, Err: ErrTransactionNotFound}
	}
	if resp.StatusCode >= 400 || !env.Status {
		return &APIError{Message: env.Message, StatusCode: resp.StatusCode, Endpoint: path, Err: ErrRejected}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &APIError{Message: "malformed response data", StatusCode: resp.StatusCode, Endpoint: path, Err: ErrUnavailable}
		}
	}
	return nil
}

func (d *transactionData) toTransaction() *Transaction {
	tx := &Transaction{
		Reference:         d.Reference,
		Status:            d.Status,
		Amount:            fromMinorUnits(d.Amount),
		Currency:          d.Currency,
		Channel:           d.Channel,
		GatewayResponse:   d.GatewayResponse,
		CustomerCode:      d.Customer.CustomerCode,
		CustomerEmail:     d.Customer.Email,
		AuthorizationCode: d.Authorization.AuthorizationCode,
		Metadata:          d.Metadata,
	}
	if t, ok := parseGatewayTime(d.PaidAt); ok {
		tx.PaidAt = &t
	}
	return tx
}

// toMinorUnits converts a major-unit amount to the gateway's integer
// subunits (kobo for NGN), rounding half away from zero.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}

// parseGatewayTime handles the couple of timestamp layouts Paystack emits.
func parseGatewayTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
