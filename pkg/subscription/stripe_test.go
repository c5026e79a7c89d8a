package subscription_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/pkg/subscription"
)

const whsec = "whsec_test"

func signStripe(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newStripe(t *testing.T) *subscription.StripeProvider {
	t.Helper()
	p, err := subscription.NewStripeProvider(subscription.StripeConfig{SecretKey: "sk_test_1", WebhookSecret: whsec})
	require.NoError(t, err)
	return p
}

func TestNewStripeProvider(t *testing.T) {
	t.Parallel()

	_, err := subscription.NewStripeProvider(subscription.StripeConfig{WebhookSecret: whsec})
	assert.ErrorIs(t, err, subscription.ErrMissingAPIKey)

	_, err = subscription.NewStripeProvider(subscription.StripeConfig{SecretKey: "sk_test_1"})
	assert.ErrorIs(t, err, subscription.ErrMissingWebhookSecret)
}

func TestStripeProvider_ParseWebhook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	subscriptionPayload := []byte(`{
		"id": "evt_sub",
		"object": "event",
		"api_version": "2023-10-16",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1",
			"object": "subscription",
			"customer": "cus_1",
			"status": "active",
			"current_period_start": 1741608000,
			"current_period_end": 1744286400,
			"cancel_at_period_end": true,
			"metadata": {"firebaseUserId": "u1"},
			"items": {"object": "list", "data": [
				{"id": "si_1", "object": "subscription_item", "price": {"id": "price_123", "object": "price", "unit_amount": 4990, "currency": "brl"}}
			]}
		}}
	}`)

	t.Run("subscription event is normalized", func(t *testing.T) {
		t.Parallel()
		event, err := newStripe(t).ParseWebhook(ctx, subscriptionPayload, signStripe(subscriptionPayload, whsec))
		require.NoError(t, err)

		assert.Equal(t, "evt_sub", event.ID)
		assert.Equal(t, subscription.EventSubscriptionUpdated, event.Type)
		require.NotNil(t, event.Subscription)

		sub := event.Subscription
		assert.Equal(t, "sub_1", sub.ID)
		assert.Equal(t, "cus_1", sub.CustomerID)
		assert.Equal(t, "u1", sub.UserID)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, "price_123", sub.PriceID)
		assert.Equal(t, int64(4990), sub.Amount)
		assert.Equal(t, "brl", sub.Currency)
		assert.True(t, sub.CancelAtPeriodEnd)
		require.NotNil(t, sub.CurrentPeriodEnd)
		assert.Equal(t, time.Unix(1744286400, 0).UTC(), *sub.CurrentPeriodEnd)
		assert.Nil(t, sub.TrialEnd)
	})

	t.Run("invoice event carries subscription id", func(t *testing.T) {
		t.Parallel()
		payload := []byte(`{
			"id": "evt_inv",
			"object": "event",
			"type": "invoice.payment_failed",
			"data": {"object": {"id": "in_1", "object": "invoice", "subscription": "sub_9"}}
		}`)
		event, err := newStripe(t).ParseWebhook(ctx, payload, signStripe(payload, whsec))
		require.NoError(t, err)
		assert.Equal(t, subscription.EventPaymentFailed, event.Type)
		assert.Equal(t, "sub_9", event.SubscriptionID)
	})

	t.Run("other events are unhandled", func(t *testing.T) {
		t.Parallel()
		payload := []byte(`{"id": "evt_x", "object": "event", "type": "charge.refunded", "data": {"object": {"id": "ch_1"}}}`)
		event, err := newStripe(t).ParseWebhook(ctx, payload, signStripe(payload, whsec))
		require.NoError(t, err)
		assert.Equal(t, subscription.EventUnhandled, event.Type)
		assert.Equal(t, "charge.refunded", event.ProviderEvent)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := newStripe(t).ParseWebhook(ctx, subscriptionPayload, signStripe(subscriptionPayload, "whsec_other"))
		assert.ErrorIs(t, err, subscription.ErrInvalidSignature)
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		t.Parallel()
		sig := signStripe(subscriptionPayload, whsec)
		tampered := append([]byte{}, subscriptionPayload...)
		tampered[len(tampered)-2] = ' '
		_, err := newStripe(t).ParseWebhook(ctx, tampered, sig)
		assert.ErrorIs(t, err, subscription.ErrInvalidSignature)
	})

	t.Run("empty signature", func(t *testing.T) {
		t.Parallel()
		_, err := newStripe(t).ParseWebhook(ctx, subscriptionPayload, "")
		assert.ErrorIs(t, err, subscription.ErrMissingSignature)
	})
}
