package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds Paddle credentials.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider for Paddle Billing.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var (
		sdk *paddle.SDK
		err error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		sdk, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		sdk, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   sdk,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

func (p *PaddleProvider) Name() string { return "paddle" }

func (p *PaddleProvider) SignatureHeader() string { return "Paddle-Signature" }

// CreateCheckoutSession opens a transaction for the price. Paddle creates
// the customer during checkout, so CustomerID is only known once the
// subscription webhook arrives.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if params.PriceID == "" {
		return nil, ErrMissingPriceID
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  params.PriceID,
		Quantity: 1,
	})

	req := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			UserMetadataKey: params.UserID,
			"email":         params.Email,
		},
	}
	if params.SuccessURL != "" {
		req.Checkout = &paddle.TransactionCheckout{URL: paddle.PtrTo(params.SuccessURL)}
	}

	txn, err := p.client.TransactionsClient.CreateTransaction(ctx, req)
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("create transaction: %w", err))
	}
	if txn.Checkout == nil || txn.Checkout.URL == nil || *txn.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{ID: txn.ID, URL: *txn.Checkout.URL}, nil
}

// CreatePortalSession ignores returnURL; Paddle portals link back on their own.
func (p *PaddleProvider) CreatePortalSession(ctx context.Context, customerID, _ string) (*PortalSession, error) {
	if customerID == "" {
		return nil, ErrMissingCustomerID
	}

	session, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, &paddle.CreateCustomerPortalSessionRequest{
		CustomerID: customerID,
	})
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("create portal session: %w", err))
	}
	if session.URLs.General.Overview == "" {
		return nil, ErrNoPortalURL
	}
	return &PortalSession{URL: session.URLs.General.Overview}, nil
}

func (p *PaddleProvider) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: subscriptionID,
	})
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("get subscription %s: %w", subscriptionID, err))
	}

	// The SDK entity serializes to the same shape as webhook data.
	raw, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encode subscription: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return paddleSubscription(data), nil
}

func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	if signature == "" {
		return nil, ErrMissingSignature
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set(p.SignatureHeader(), signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var body struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	event := &Event{
		ID:            body.EventID,
		ProviderEvent: body.EventType,
		Type:          mapPaddleEventType(body.EventType),
	}

	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		if body.Data == nil {
			return nil, ErrInvalidPayload
		}
		event.Subscription = paddleSubscription(body.Data)
	case EventPaymentSucceeded, EventPaymentFailed:
		event.SubscriptionID = str(body.Data, "subscription_id")
	}
	return event, nil
}

func mapPaddleEventType(t string) EventType {
	switch t {
	case "subscription.created", "subscription.activated":
		return EventSubscriptionCreated
	case "subscription.updated", "subscription.paused", "subscription.resumed", "subscription.past_due":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionDeleted
	case "transaction.completed":
		return EventPaymentSucceeded
	case "transaction.payment_failed":
		return EventPaymentFailed
	default:
		return EventUnhandled
	}
}

func paddleSubscription(data map[string]any) *ProviderSubscription {
	sub := &ProviderSubscription{
		ID:         str(data, "id"),
		CustomerID: str(data, "customer_id"),
		Status:     ParseStatus(str(data, "status")),
	}
	if custom, ok := data["custom_data"].(map[string]any); ok {
		sub.UserID = str(custom, UserMetadataKey)
	}
	if period, ok := data["current_billing_period"].(map[string]any); ok {
		sub.CurrentPeriodStart = rfc3339(str(period, "starts_at"))
		sub.CurrentPeriodEnd = rfc3339(str(period, "ends_at"))
	}
	if change, ok := data["scheduled_change"].(map[string]any); ok {
		sub.CancelAtPeriodEnd = str(change, "action") == "cancel"
	}
	if sub.Status == StatusTrialing {
		sub.TrialEnd = sub.CurrentPeriodEnd
	}
	if items, ok := data["items"].([]any); ok && len(items) > 0 {
		if item, ok := items[0].(map[string]any); ok {
			if price, ok := item["price"].(map[string]any); ok {
				sub.PriceID = str(price, "id")
				if unit, ok := price["unit_price"].(map[string]any); ok {
					sub.Amount, _ = strconv.ParseInt(str(unit, "amount"), 10, 64)
					sub.Currency = strings.ToLower(str(unit, "currency_code"))
				}
			}
		}
	}
	return sub
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func rfc3339(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return ptrTime(t)
}
