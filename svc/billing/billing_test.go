package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/subscription"
	"github.com/profepj/profepj/svc/billing"
)

type mockBilling struct {
	mock.Mock
}

func (m *mockBilling) CreateCheckout(ctx context.Context, req subscription.CheckoutRequest) (*subscription.CheckoutSession, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*subscription.CheckoutSession)
	return s, args.Error(1)
}

func (m *mockBilling) CreatePortal(ctx context.Context, customerID string) (*subscription.PortalSession, error) {
	args := m.Called(ctx, customerID)
	s, _ := args.Get(0).(*subscription.PortalSession)
	return s, args.Error(1)
}

func (m *mockBilling) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

func (m *mockBilling) SignatureHeader() string { return "Stripe-Signature" }

func newServer(b *mockBilling) http.Handler {
	svc := billing.NewService(b, handler.NewJSONErrorHandler(nil))
	r := chi.NewRouter()
	r.Mount("/api/stripe", svc.Handle())
	r.Mount("/api/billing", svc.Handle())
	return r
}

func do(t *testing.T, h http.Handler, path, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestCreateCheckout(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		b := &mockBilling{}
		b.On("CreateCheckout", mock.Anything, subscription.CheckoutRequest{UserID: "u1", Email: "a@b.c", Name: "Ana"}).
			Return(&subscription.CheckoutSession{ID: "cs_1", URL: "https://pay/cs_1", CustomerID: "cus_1"}, nil)

		rec, out := do(t, newServer(b), "/api/stripe/create-checkout", `{"userId":"u1","email":"a@b.c","name":"Ana"}`, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "cs_1", out["sessionId"])
		assert.Equal(t, "https://pay/cs_1", out["url"])
		assert.Equal(t, "cus_1", out["customerId"])
		b.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()
		b := &mockBilling{}
		b.On("CreateCheckout", mock.Anything, mock.Anything).Return(nil, subscription.ErrMissingFields)

		rec, out := do(t, newServer(b), "/api/billing/create-checkout", `{"userId":"u1"}`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing required fields", out["error"])
	})

	t.Run("provider failure passes message through", func(t *testing.T) {
		t.Parallel()
		b := &mockBilling{}
		b.On("CreateCheckout", mock.Anything, mock.Anything).Return(nil, errors.New("No such price: 'price_x'"))

		rec, out := do(t, newServer(b), "/api/stripe/create-checkout", `{"userId":"u1","email":"a@b.c"}`, nil)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "No such price: 'price_x'", out["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		b := &mockBilling{}

		rec, _ := do(t, newServer(b), "/api/stripe/create-checkout", `{"userId":`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		b.AssertNotCalled(t, "CreateCheckout", mock.Anything, mock.Anything)
	})
}

func TestCreatePortal(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		b := &mockBilling{}
		b.On("CreatePortal", mock.Anything, "cus_1").Return(&subscription.PortalSession{URL: "https://portal"}, nil)

		rec, out := do(t, newServer(b), "/api/stripe/create-portal", `{"customerId":"cus_1"}`, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://portal", out["url"])
	})

	t.Run("missing customer", func(t *testing.T) {
		t.Parallel()
		b := &mockBilling{}
		b.On("CreatePortal", mock.Anything, "").Return(nil, subscription.ErrMissingCustomerID)

		rec, out := do(t, newServer(b), "/api/stripe/create-portal", `{}`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing customer ID", out["error"])
	})
}

func TestWebhook(t *testing.T) {
	t.Parallel()
	payload := `{"type":"customer.subscription.updated"}`

	t.Run("received", func(t *testing.T) {
		t.Parallel()
		b := &mockBilling{}
		b.On("HandleWebhook", mock.Anything, []byte(payload), "t=1,v1=abc").Return(nil)

		rec, out := do(t, newServer(b), "/api/stripe/webhook", payload, map[string]string{"Stripe-Signature": "t=1,v1=abc"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, out["received"])
		b.AssertExpectations(t)
	})

	t.Run("signature errors are 400", func(t *testing.T) {
		t.Parallel()
		for _, sigErr := range []error{subscription.ErrMissingSignature, subscription.ErrInvalidSignature} {
			b := &mockBilling{}
			b.On("HandleWebhook", mock.Anything, mock.Anything, mock.Anything).Return(sigErr)

			rec, _ := do(t, newServer(b), "/api/stripe/webhook", payload, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("store failure is 500", func(t *testing.T) {
		t.Parallel()
		b := &mockBilling{}
		b.On("HandleWebhook", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("deadline exceeded"))

		rec, out := do(t, newServer(b), "/api/billing/webhook", payload, map[string]string{"Stripe-Signature": "x"})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal Server Error", out["error"])
	})
}

func TestNewServicePanicsWithoutBilling(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { billing.NewService(nil, nil) })
}
