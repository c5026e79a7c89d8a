package subscription_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/profepj/profepj/pkg/docstore"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/subscription"
)

const stripeSubscriptionJSON = `{
	"id": "sub_1",
	"object": "subscription",
	"customer": "cus_1",
	"status": "%s",
	"current_period_start": 1741608000,
	"current_period_end": 1744286400,
	"metadata": {"firebaseUserId": "u1"},
	"items": {"object": "list", "data": [
		{"id": "si_1", "object": "subscription_item", "price": {"id": "price_123", "object": "price", "unit_amount": 2990, "currency": "brl"}}
	]}
}`

func subscriptionEvent(id, eventType, status string) []byte {
	return []byte(fmt.Sprintf(`{"id": %q, "object": "event", "type": %q, "data": {"object": %s}}`,
		id, eventType, fmt.Sprintf(stripeSubscriptionJSON, status)))
}

func invoiceEvent(id, eventType string) []byte {
	return []byte(fmt.Sprintf(`{"id": %q, "object": "event", "type": %q, "data": {"object": {"id": "in_1", "object": "invoice", "subscription": "sub_1"}}}`,
		id, eventType))
}

// stripeAPI serves GET /v1/subscriptions/sub_1 with the given status.
func stripeAPI(t *testing.T, status string) *stripe.Backends {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/subscriptions/sub_1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, fmt.Sprintf(stripeSubscriptionJSON, status))
	}))
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
}

func webhookFixture(t *testing.T, apiStatus string) (*subscription.Service, *docstore.Memory) {
	t.Helper()
	store := docstore.NewMemory()
	acc := ledger.NewAccount("u1", "inst-1", ledger.SignupInput{
		Name:        "Ana Souza",
		Email:       "ana@example.com",
		DASDueDate:  20,
		Institution: ledger.InstitutionInput{Name: "Colégio Sol", HourlyRate: 80},
	}, now, 14)
	require.NoError(t, store.CreateAccount(context.Background(), acc))

	provider, err := subscription.NewStripeProvider(
		subscription.StripeConfig{SecretKey: "sk_test_1", WebhookSecret: whsec},
		subscription.WithStripeBackends(stripeAPI(t, apiStatus)),
	)
	require.NoError(t, err)
	return subscription.NewService(testConfig(), provider, store, subscription.WithClock(func() time.Time { return now })), store
}

func deliver(t *testing.T, svc *subscription.Service, payload []byte) {
	t.Helper()
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signStripe(payload, whsec)))
}

func TestHandleWebhookStoredState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("replayed event leaves the same state", func(t *testing.T) {
		t.Parallel()
		svc, store := webhookFixture(t, "active")
		created := subscriptionEvent("evt_1", "customer.subscription.created", "active")

		deliver(t, svc, created)
		profile, err := store.GetProfile(ctx, "u1")
		require.NoError(t, err)
		sub, err := store.GetSubscription(ctx, "u1")
		require.NoError(t, err)

		assert.Equal(t, subscription.StatusActive, profile.SubscriptionStatus)
		assert.Equal(t, "cus_1", profile.CustomerID)
		assert.Equal(t, "sub_1", sub.ProviderSubscriptionID)
		assert.Equal(t, int64(2990), sub.Amount)

		deliver(t, svc, created)
		replayedProfile, err := store.GetProfile(ctx, "u1")
		require.NoError(t, err)
		replayedSub, err := store.GetSubscription(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, profile, replayedProfile)
		assert.Equal(t, sub, replayedSub)
	})

	t.Run("failed payment keeps access as past due", func(t *testing.T) {
		t.Parallel()
		svc, store := webhookFixture(t, "past_due")
		deliver(t, svc, subscriptionEvent("evt_1", "customer.subscription.created", "active"))
		deliver(t, svc, invoiceEvent("evt_2", "invoice.payment_failed"))

		profile, err := store.GetProfile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPastDue, profile.SubscriptionStatus)

		access, err := svc.Access(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, access.HasAccess)
		assert.True(t, access.IsPastDue)
		assert.False(t, access.NeedsPayment)
	})

	t.Run("deleted subscription revokes access", func(t *testing.T) {
		t.Parallel()
		svc, store := webhookFixture(t, "canceled")
		deliver(t, svc, subscriptionEvent("evt_1", "customer.subscription.created", "active"))
		deliver(t, svc, subscriptionEvent("evt_2", "customer.subscription.deleted", "canceled"))

		profile, err := store.GetProfile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCanceled, profile.SubscriptionStatus)

		access, err := svc.Access(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, access.HasAccess)
		assert.True(t, access.NeedsPayment)
		assert.True(t, access.IsCanceled)
	})

	t.Run("payment succeeded restores the fetched state", func(t *testing.T) {
		t.Parallel()
		svc, store := webhookFixture(t, "active")
		deliver(t, svc, subscriptionEvent("evt_1", "customer.subscription.created", "past_due"))
		deliver(t, svc, invoiceEvent("evt_2", "invoice.payment_succeeded"))

		access, err := svc.Access(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, access.IsActive)
		assert.True(t, access.HasAccess)

		sub, err := store.GetSubscription(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, sub.Status)
	})
}
