package gateway

import (
	"context"
	"fmt"
)

// MockProvider is a mock payment gateway for testing.
// Simulates successful flows without calling the Paystack API.
type MockProvider struct {
	// CreatePlanFunc allows customizing plan creation behavior
	CreatePlanFunc func(ctx context.Context, params CreatePlanParams) (*Plan, error)

	// InitializeTransactionFunc allows customizing checkout behavior
	InitializeTransactionFunc func(ctx context.Context, params InitializeTransactionParams) (*Checkout, error)

	// VerifyTransactionFunc allows customizing verification behavior
	VerifyTransactionFunc func(ctx context.Context, reference string) (*Transaction, error)

	// CreateSubscriptionFunc allows customizing mandate creation behavior
	CreateSubscriptionFunc func(ctx context.Context, params CreateSubscriptionParams) (*GatewaySubscription, error)

	// EnableSubscriptionFunc allows customizing mandate enable behavior
	EnableSubscriptionFunc func(ctx context.Context, code, emailToken string) error

	// DisableSubscriptionFunc allows customizing mandate disable behavior
	DisableSubscriptionFunc func(ctx context.Context, code, emailToken string) error

	// ChargeAuthorizationFunc allows customizing direct charge behavior
	ChargeAuthorizationFunc func(ctx context.Context, params ChargeAuthorizationParams) (*Transaction, error)

	// Transactions stores transactions for retrieval by reference
	Transactions map[string]*Transaction

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock gateway provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Transactions: make(map[string]*Transaction),
		CallLog:      []string{},
	}
}

// CreatePlan creates a mock plan.
func (m *MockProvider) CreatePlan(ctx context.Context, params CreatePlanParams) (*Plan, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreatePlan(%s, %s)", params.Name, params.Interval))

	if m.CreatePlanFunc != nil {
		return m.CreatePlanFunc(ctx, params)
	}

	return &Plan{
		PlanCode: "PLN_" + params.Interval,
		Name:     params.Name,
		Amount:   params.Amount,
		Currency: params.Currency,
		Interval: params.Interval,
	}, nil
}

// InitializeTransaction creates a mock checkout session.
func (m *MockProvider) InitializeTransaction(ctx context.Context, params InitializeTransactionParams) (*Checkout, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("InitializeTransaction(%s, %s)", params.Email, params.Reference))

	if m.InitializeTransactionFunc != nil {
		return m.InitializeTransactionFunc(ctx, params)
	}

	m.Transactions[params.Reference] = &Transaction{
		Reference: params.Reference,
		Status:    "pending",
		Amount:    params.Amount,
		Currency:  params.Currency,
		Metadata:  params.Metadata,
	}

	return &Checkout{
		AuthorizationURL: "https://checkout.test/" + params.Reference,
		AccessCode:       "ACC_" + params.Reference,
		Reference:        params.Reference,
	}, nil
}

// VerifyTransaction returns a stored mock transaction.
func (m *MockProvider) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("VerifyTransaction(%s)", reference))

	if m.VerifyTransactionFunc != nil {
		return m.VerifyTransactionFunc(ctx, reference)
	}

	tx, exists := m.Transactions[reference]
	if !exists {
		return nil, &APIError{Message: "transaction not found", StatusCode: 404, Endpoint: "/transaction/verify/" + reference, Err: ErrTransactionNotFound}
	}
	return tx, nil
}

// CreateSubscription creates a mock mandate.
func (m *MockProvider) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*GatewaySubscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateSubscription(%s, %s)", params.CustomerCode, params.PlanCode))

	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, params)
	}

	return &GatewaySubscription{
		SubscriptionCode: "SUB_" + params.PlanCode,
		EmailToken:       "tok_" + params.CustomerCode,
		Status:           "active",
	}, nil
}

// EnableSubscription records a mock enable call.
func (m *MockProvider) EnableSubscription(ctx context.Context, code, emailToken string) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("EnableSubscription(%s)", code))

	if m.EnableSubscriptionFunc != nil {
		return m.EnableSubscriptionFunc(ctx, code, emailToken)
	}
	return nil
}

// DisableSubscription records a mock disable call.
func (m *MockProvider) DisableSubscription(ctx context.Context, code, emailToken string) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("DisableSubscription(%s)", code))

	if m.DisableSubscriptionFunc != nil {
		return m.DisableSubscriptionFunc(ctx, code, emailToken)
	}
	return nil
}

// ChargeAuthorization records a mock direct charge and marks it successful.
func (m *MockProvider) ChargeAuthorization(ctx context.Context, params ChargeAuthorizationParams) (*Transaction, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("ChargeAuthorization(%s, %s)", params.Email, params.Reference))

	if m.ChargeAuthorizationFunc != nil {
		return m.ChargeAuthorizationFunc(ctx, params)
	}

	tx := &Transaction{
		Reference:         params.Reference,
		Status:            "success",
		Amount:            params.Amount,
		Currency:          params.Currency,
		Channel:           "card",
		AuthorizationCode: params.AuthorizationCode,
		CustomerEmail:     params.Email,
		Metadata:          params.Metadata,
	}
	m.Transactions[params.Reference] = tx
	return tx, nil
}

// compile-time interface checks
var (
	_ Provider = (*Paystack)(nil)
	_ Provider = (*MockProvider)(nil)
)
