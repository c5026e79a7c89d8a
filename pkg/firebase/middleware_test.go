package firebase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/pkg/cookie"
	"github.com/profepj/profepj/pkg/firebase"
)

type fakeVerifier map[string]*auth.Token

func (f fakeVerifier) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	if t, ok := f[token]; ok {
		return t, nil
	}
	return nil, errors.New("token expired")
}

var verifier = fakeVerifier{
	"good": {UID: "u1", Claims: map[string]any{"email": "ana@example.com"}},
}

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	id, _ := firebase.IdentityFromContext(r.Context())
	_ = json.NewEncoder(w).Encode(map[string]string{"uid": id.UID, "email": id.Email, "token": firebase.Token(r.Context())})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	sessions, err := cookie.New(cookie.DefaultConfig())
	require.NoError(t, err)
	h := firebase.Authenticate(verifier, firebase.WithCookie(sessions))(http.HandlerFunc(echoIdentity))

	t.Run("bearer token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"uid":"u1","email":"ana@example.com","token":"good"}`, rec.Body.String())
	})

	t.Run("cookie fallback", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "firebase-auth-token", Value: "good"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized","code":"unauthorized"}`, rec.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non bearer scheme", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthenticateWithoutCookie(t *testing.T) {
	t.Parallel()
	h := firebase.Authenticate(verifier)(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "firebase-auth-token", Value: "good"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateCustomErrorHandler(t *testing.T) {
	t.Parallel()
	var got error
	h := firebase.Authenticate(verifier, firebase.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}))(http.HandlerFunc(echoIdentity))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.ErrorIs(t, got, firebase.ErrMissingToken)
}

func TestRequireUser(t *testing.T) {
	t.Parallel()
	_, err := firebase.RequireUser(context.Background())
	assert.ErrorIs(t, err, firebase.ErrUnauthenticated)

	uid, err := firebase.RequireUser(firebase.WithIdentity(context.Background(), firebase.Identity{UID: "u1"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}
