package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/profepj/profepj/pkg/logger"
	"github.com/profepj/profepj/pkg/metrics"
)

// Service ties the billing provider to the profile/subscription store.
type Service struct {
	cfg      Config
	provider Provider
	store    Store
	log      *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService panics on nil dependencies so misconfiguration fails at startup.
func NewService(cfg Config, provider Provider, store Store, opts ...ServiceOption) *Service {
	if provider == nil {
		panic("subscription: Provider is required")
	}
	if store == nil {
		panic("subscription: Store is required")
	}
	s := &Service{
		cfg:      cfg,
		provider: provider,
		store:    store,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("subscription"), slog.String("provider", provider.Name()))
	return s
}

// Config returns the billing settings the service was built with.
func (s *Service) Config() Config { return s.cfg }

// SignatureHeader is the webhook signature header of the configured provider.
func (s *Service) SignatureHeader() string { return s.provider.SignatureHeader() }

// Access loads the profile and evaluates it at the current time. A missing
// profile is not an error; it evaluates to no access.
func (s *Service) Access(ctx context.Context, uid string) (Access, error) {
	profile, err := s.store.GetProfile(ctx, uid)
	if errors.Is(err, ErrProfileNotFound) {
		return Evaluate(nil, nil, s.now()), nil
	}
	if err != nil {
		return Access{}, err
	}

	sub, err := s.store.GetSubscription(ctx, uid)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return Access{}, err
	}
	return Evaluate(profile, sub, s.now()), nil
}

type CheckoutRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// CreateCheckout opens a hosted checkout for the configured price.
func (s *Service) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, ErrMissingFields
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		UserID:     req.UserID,
		Email:      req.Email,
		Name:       req.Name,
		PriceID:    s.cfg.PriceID,
		SuccessURL: s.cfg.SuccessURL(),
		CancelURL:  s.cfg.CancelURL(),
	})
	if err != nil {
		metrics.IncCheckoutSession("failed")
		s.log.ErrorContext(ctx, "checkout session failed", logger.UserID(req.UserID), logger.Error(err))
		return nil, err
	}

	metrics.IncCheckoutSession("created")
	s.log.InfoContext(ctx, "checkout session created",
		logger.UserID(req.UserID),
		logger.CustomerID(session.CustomerID),
	)
	return session, nil
}

// CreatePortal opens the provider's self-service billing portal.
func (s *Service) CreatePortal(ctx context.Context, customerID string) (*PortalSession, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrMissingCustomerID
	}

	session, err := s.provider.CreatePortalSession(ctx, customerID, s.cfg.PortalReturnURL())
	if err != nil {
		metrics.IncPortalSession("failed")
		return nil, err
	}
	metrics.IncPortalSession("created")
	return session, nil
}

// HandleWebhook verifies a delivery and applies it to the store.
// Signature problems return ErrMissingSignature or ErrInvalidSignature
// before any write. Deliveries that cannot be tied to a user are logged
// and acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if signature == "" {
		metrics.IncWebhookEvent("unknown", "rejected")
		return ErrMissingSignature
	}

	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		metrics.IncWebhookEvent("unknown", "rejected")
		return err
	}

	log := s.log.With(logger.EventID(event.ID), logger.EventType(event.ProviderEvent))

	outcome, err := s.dispatch(ctx, log, event)
	if err != nil {
		metrics.IncWebhookEvent(string(event.Type), "failed")
		log.ErrorContext(ctx, "webhook handling failed", logger.Error(err))
		return err
	}
	metrics.IncWebhookEvent(string(event.Type), outcome)
	return nil
}

func (s *Service) dispatch(ctx context.Context, log *slog.Logger, event *Event) (string, error) {
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return s.applySubscription(ctx, log, event.Subscription)

	case EventSubscriptionDeleted:
		// Only the projection changes; the record keeps its last state
		// until the provider sends something newer.
		return s.patchStatus(ctx, log, event.Subscription, StatusCanceled)

	case EventPaymentSucceeded:
		if event.SubscriptionID == "" {
			log.InfoContext(ctx, "invoice without subscription ignored")
			return "skipped", nil
		}
		sub, err := s.provider.GetSubscription(ctx, event.SubscriptionID)
		if err != nil {
			return "", fmt.Errorf("fetch subscription %s: %w", event.SubscriptionID, err)
		}
		return s.applySubscription(ctx, log, sub)

	case EventPaymentFailed:
		if event.SubscriptionID == "" {
			log.InfoContext(ctx, "invoice without subscription ignored")
			return "skipped", nil
		}
		sub, err := s.provider.GetSubscription(ctx, event.SubscriptionID)
		if err != nil {
			return "", fmt.Errorf("fetch subscription %s: %w", event.SubscriptionID, err)
		}
		return s.patchStatus(ctx, log, sub, StatusPastDue)

	default:
		log.InfoContext(ctx, "unhandled webhook event")
		return "skipped", nil
	}
}

func (s *Service) applySubscription(ctx context.Context, log *slog.Logger, sub *ProviderSubscription) (string, error) {
	if sub == nil {
		return "", ErrInvalidPayload
	}
	if sub.UserID == "" {
		log.WarnContext(ctx, "subscription has no user id in metadata", logger.SubscriptionID(sub.ID))
		return "skipped", nil
	}

	err := s.store.ApplySubscription(ctx, sub.UserID, sub.Record(), sub.CustomerID)
	if errors.Is(err, ErrProfileNotFound) {
		log.WarnContext(ctx, "subscription for unknown profile", logger.UserID(sub.UserID), logger.SubscriptionID(sub.ID))
		return "skipped", nil
	}
	if err != nil {
		return "", fmt.Errorf("apply subscription for %s: %w", sub.UserID, err)
	}

	log.InfoContext(ctx, "subscription applied",
		logger.UserID(sub.UserID),
		logger.SubscriptionID(sub.ID),
		logger.Status(sub.Status.String()),
	)
	return "applied", nil
}

func (s *Service) patchStatus(ctx context.Context, log *slog.Logger, sub *ProviderSubscription, status Status) (string, error) {
	if sub == nil {
		return "", ErrInvalidPayload
	}
	if sub.UserID == "" {
		log.WarnContext(ctx, "subscription has no user id in metadata", logger.SubscriptionID(sub.ID))
		return "skipped", nil
	}

	err := s.store.UpdateProfileStatus(ctx, sub.UserID, status)
	if errors.Is(err, ErrProfileNotFound) {
		log.WarnContext(ctx, "status change for unknown profile", logger.UserID(sub.UserID))
		return "skipped", nil
	}
	if err != nil {
		return "", fmt.Errorf("update status for %s: %w", sub.UserID, err)
	}

	log.InfoContext(ctx, "profile status updated", logger.UserID(sub.UserID), logger.Status(status.String()))
	return "applied", nil
}
