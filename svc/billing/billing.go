// Package billing exposes checkout, billing portal and webhook endpoints
// over a subscription.Service.
package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/binder"
	"github.com/profepj/profepj/pkg/subscription"
)

// MaxWebhookBody caps the webhook payload read into memory.
const MaxWebhookBody = 1 << 20

// Billing is the slice of subscription.Service used by the endpoints.
type Billing interface {
	CreateCheckout(ctx context.Context, req subscription.CheckoutRequest) (*subscription.CheckoutSession, error)
	CreatePortal(ctx context.Context, customerID string) (*subscription.PortalSession, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	SignatureHeader() string
}

type Service struct {
	billing      Billing
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewService(billing Billing, errorHandler handler.ErrorHandler[handler.Context]) *Service {
	if billing == nil {
		panic("billing: Billing is required")
	}
	return &Service{billing: billing, errorHandler: errorHandler}
}

// Handle serves /create-checkout, /create-portal and /webhook. Mount it at
// both /api/stripe and /api/billing.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/create-checkout", handler.Wrap(s.createCheckout,
		handler.WithBinders[handler.Context, subscription.CheckoutRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, subscription.CheckoutRequest](s.errorHandler),
	))
	r.Post("/create-portal", handler.Wrap(s.createPortal,
		handler.WithBinders[handler.Context, portalRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, portalRequest](s.errorHandler),
	))
	r.Post("/webhook", handler.Wrap(s.webhook,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))

	return r
}

type checkoutResponse struct {
	SessionID  string `json:"sessionId"`
	URL        string `json:"url"`
	CustomerID string `json:"customerId"`
}

func (s *Service) createCheckout(ctx handler.Context, req subscription.CheckoutRequest) handler.Response {
	session, err := s.billing.CreateCheckout(ctx, req)
	if err != nil {
		return handler.JSONError(providerError(err))
	}
	return handler.JSON(checkoutResponse{
		SessionID:  session.ID,
		URL:        session.URL,
		CustomerID: session.CustomerID,
	})
}

type portalRequest struct {
	CustomerID string `json:"customerId"`
}

type portalResponse struct {
	URL string `json:"url"`
}

func (s *Service) createPortal(ctx handler.Context, req portalRequest) handler.Response {
	session, err := s.billing.CreatePortal(ctx, req.CustomerID)
	if err != nil {
		return handler.JSONError(providerError(err))
	}
	return handler.JSON(portalResponse{URL: session.URL})
}

type webhookResponse struct {
	Received bool `json:"received"`
}

func (s *Service) webhook(ctx handler.Context, _ struct{}) handler.Response {
	r := ctx.Request()
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.ResponseWriter(), r.Body, MaxWebhookBody))
	if err != nil {
		return handler.JSONError(handler.ErrBadRequest.WithMessage(fmt.Sprintf("read body: %v", err)))
	}

	if err := s.billing.HandleWebhook(ctx, payload, r.Header.Get(s.billing.SignatureHeader())); err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(webhookResponse{Received: true})
}

// httpError assigns client statuses to validation and signature failures.
// Anything else stays a 500 with a generic message.
func httpError(err error) error {
	switch {
	case errors.Is(err, subscription.ErrMissingFields):
		return errors.Join(handler.ErrBadRequest.WithMessage("Missing required fields"), err)
	case errors.Is(err, subscription.ErrMissingCustomerID):
		return errors.Join(handler.ErrBadRequest.WithMessage("Missing customer ID"), err)
	case errors.Is(err, subscription.ErrMissingSignature):
		return errors.Join(handler.ErrBadRequest.WithMessage("Missing signature"), err)
	case errors.Is(err, subscription.ErrInvalidSignature):
		return errors.Join(handler.ErrBadRequest.WithMessage("Webhook signature verification failed"), err)
	case errors.Is(err, subscription.ErrInvalidPayload):
		return errors.Join(handler.ErrBadRequest.WithMessage("Invalid webhook payload"), err)
	}
	return err
}

// providerError is httpError for checkout and portal calls, where the
// provider's message is shown to the client with a 500.
func providerError(err error) error {
	mapped := httpError(err)
	var httpErr handler.HTTPError
	if errors.As(mapped, &httpErr) {
		return mapped
	}
	return errors.Join(handler.ErrInternalServerError.WithMessage(err.Error()), err)
}
