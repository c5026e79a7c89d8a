package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// UserMetadataKey is the metadata key that links provider objects back to
// the authenticated user.
const UserMetadataKey = "firebaseUserId"

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// StripeProvider implements Provider for Stripe.
type StripeProvider struct {
	api    *client.API
	secret string
}

// StripeOption configures a StripeProvider.
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	backends *stripe.Backends
}

// WithStripeBackends points the client at custom API backends.
func WithStripeBackends(b *stripe.Backends) StripeOption {
	return func(o *stripeOptions) { o.backends = b }
}

func NewStripeProvider(cfg StripeConfig, opts ...StripeOption) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var o stripeOptions
	for _, opt := range opts {
		opt(&o)
	}

	return &StripeProvider{
		api:    client.New(cfg.SecretKey, o.backends),
		secret: cfg.WebhookSecret,
	}, nil
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) SignatureHeader() string { return "Stripe-Signature" }

// CreateCheckoutSession reuses the first customer with the same email and
// creates one otherwise.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if params.PriceID == "" {
		return nil, ErrMissingPriceID
	}

	customerID, err := p.findOrCreateCustomer(ctx, params)
	if err != nil {
		return nil, err
	}

	sp := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{UserMetadataKey: params.UserID},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	sp.Context = ctx
	sp.AddMetadata(UserMetadataKey, params.UserID)

	session, err := p.api.CheckoutSessions.New(sp)
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("create checkout session: %w", err))
	}
	if session.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{
		ID:         session.ID,
		URL:        session.URL,
		CustomerID: customerID,
	}, nil
}

func (p *StripeProvider) findOrCreateCustomer(ctx context.Context, params CheckoutParams) (string, error) {
	lp := &stripe.CustomerListParams{Email: stripe.String(params.Email)}
	lp.Limit = stripe.Int64(1)
	lp.Context = ctx

	iter := p.api.Customers.List(lp)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", errors.Join(ErrProvider, fmt.Errorf("list customers: %w", err))
	}

	cp := &stripe.CustomerParams{Email: stripe.String(params.Email)}
	if name := strings.TrimSpace(params.Name); name != "" {
		cp.Name = stripe.String(name)
	}
	cp.Context = ctx
	cp.AddMetadata(UserMetadataKey, params.UserID)

	c, err := p.api.Customers.New(cp)
	if err != nil {
		return "", errors.Join(ErrProvider, fmt.Errorf("create customer: %w", err))
	}
	return c.ID, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*PortalSession, error) {
	if customerID == "" {
		return nil, ErrMissingCustomerID
	}

	bp := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	bp.Context = ctx

	session, err := p.api.BillingPortalSessions.New(bp)
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("create portal session: %w", err))
	}
	if session.URL == "" {
		return nil, ErrNoPortalURL
	}
	return &PortalSession{URL: session.URL}, nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("get subscription %s: %w", subscriptionID, err))
	}
	return stripeSubscription(sub), nil
}

// ParseWebhook verifies the Stripe-Signature header against the raw body.
// API version mismatches are tolerated so dashboard upgrades don't break
// delivery.
func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*Event, error) {
	if signature == "" {
		return nil, ErrMissingSignature
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	event := &Event{
		ID:            evt.ID,
		ProviderEvent: string(evt.Type),
		Type:          mapStripeEventType(string(evt.Type)),
	}
	if evt.Data == nil {
		if event.Type == EventUnhandled {
			return event, nil
		}
		return nil, ErrInvalidPayload
	}

	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		event.Subscription = stripeSubscription(&sub)

	case EventPaymentSucceeded, EventPaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		if inv.Subscription != nil {
			event.SubscriptionID = inv.Subscription.ID
		}
	}

	return event, nil
}

func mapStripeEventType(t string) EventType {
	switch t {
	case "customer.subscription.created":
		return EventSubscriptionCreated
	case "customer.subscription.updated":
		return EventSubscriptionUpdated
	case "customer.subscription.deleted":
		return EventSubscriptionDeleted
	case "invoice.payment_succeeded":
		return EventPaymentSucceeded
	case "invoice.payment_failed":
		return EventPaymentFailed
	default:
		return EventUnhandled
	}
}

func stripeSubscription(s *stripe.Subscription) *ProviderSubscription {
	out := &ProviderSubscription{
		ID:                 s.ID,
		UserID:             s.Metadata[UserMetadataKey],
		Status:             ParseStatus(string(s.Status)),
		CurrentPeriodStart: unixTime(s.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(s.CurrentPeriodEnd),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		TrialEnd:           unixTime(s.TrialEnd),
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		price := s.Items.Data[0].Price
		out.PriceID = price.ID
		out.Amount = price.UnitAmount
		out.Currency = string(price.Currency)
	}
	return out
}
