package subscription

import (
	"context"
	"time"
)

// Provider is the billing-provider adapter: hosted checkout, self-service
// portal, webhook verification and subscription lookups.
type Provider interface {
	// Name identifies the provider in logs ("stripe", "paddle").
	Name() string

	// SignatureHeader is the HTTP header carrying the webhook signature.
	SignatureHeader() string

	// CreateCheckoutSession finds or creates the customer for params.Email
	// and opens a subscription-mode checkout.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)

	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*PortalSession, error)

	// ParseWebhook verifies the signature and normalizes the payload. A
	// verification failure must wrap ErrInvalidSignature.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)

	// GetSubscription fetches the provider's current view of a subscription.
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}

type CheckoutParams struct {
	UserID     string
	Email      string
	Name       string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID         string `json:"sessionId"`
	URL        string `json:"url"`
	CustomerID string `json:"customerId"`
}

type PortalSession struct {
	URL string `json:"url"`
}

// ProviderSubscription is a provider subscription normalized to our enum.
type ProviderSubscription struct {
	ID                 string
	CustomerID         string
	UserID             string // from the metadata set at checkout
	PriceID            string
	Status             Status
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	TrialEnd           *time.Time
	Amount             int64
	Currency           string
}

// Record converts the provider view into the stored subscription record.
func (p *ProviderSubscription) Record() Subscription {
	return Subscription{
		ProviderSubscriptionID: p.ID,
		PriceID:                p.PriceID,
		Status:                 p.Status,
		CurrentPeriodStart:     p.CurrentPeriodStart,
		CurrentPeriodEnd:       p.CurrentPeriodEnd,
		CancelAtPeriodEnd:      p.CancelAtPeriodEnd,
		TrialEnd:               p.TrialEnd,
		Amount:                 p.Amount,
		Currency:               p.Currency,
	}
}

// EventType is a provider-independent webhook event kind.
type EventType string

const (
	EventSubscriptionCreated EventType = "subscription_created"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventPaymentSucceeded    EventType = "payment_succeeded"
	EventPaymentFailed       EventType = "payment_failed"
	EventUnhandled           EventType = "unhandled"
)

// Event is a verified webhook delivery.
type Event struct {
	ID            string
	Type          EventType
	ProviderEvent string
	// Subscription is set for subscription events.
	Subscription *ProviderSubscription
	// SubscriptionID is set for invoice events that belong to a subscription.
	SubscriptionID string
}

func ptrTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	return ptrTime(time.Unix(sec, 0))
}
