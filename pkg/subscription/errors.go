package subscription

import "errors"

var (
	ErrProfileNotFound      = errors.New("user profile not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")

	ErrMissingFields     = errors.New("missing required fields")
	ErrMissingCustomerID = errors.New("missing customer ID")
	ErrMissingSignature  = errors.New("missing webhook signature")
	ErrInvalidSignature  = errors.New("webhook signature verification failed")
	ErrInvalidPayload    = errors.New("invalid webhook payload")

	ErrMissingAPIKey        = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret = errors.New("billing provider webhook secret is required")
	ErrMissingPriceID       = errors.New("billing price ID is required")
	ErrUnknownProvider      = errors.New("unknown billing provider")
	ErrInvalidEnvironment   = errors.New("invalid billing provider environment")
	ErrProvider             = errors.New("billing provider error")
	ErrNoCheckoutURL        = errors.New("no checkout URL returned from provider")
	ErrNoPortalURL          = errors.New("no portal URL returned from provider")
)
