package firebase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/cookie"
	"github.com/profepj/profepj/pkg/logger"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type authOptions struct {
	cookies *cookie.Manager
	onError func(w http.ResponseWriter, r *http.Request, err error)
	log     *slog.Logger
}

type AuthOption func(*authOptions)

// WithCookie accepts the session cookie when no bearer token is sent.
func WithCookie(m *cookie.Manager) AuthOption {
	return func(o *authOptions) {
		o.cookies = m
	}
}

// WithErrorHandler replaces the default 401 JSON response.
func WithErrorHandler(fn func(w http.ResponseWriter, r *http.Request, err error)) AuthOption {
	return func(o *authOptions) {
		if fn != nil {
			o.onError = fn
		}
	}
}

func WithLogger(l *slog.Logger) AuthOption {
	return func(o *authOptions) {
		if l != nil {
			o.log = l
		}
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	handler.WriteError(w, r, errors.Join(handler.ErrUnauthorized, err))
}

// Authenticate verifies the caller's ID token and stores the Identity in
// the request context. Requests without a valid token get a 401.
func Authenticate(verifier TokenVerifier, opts ...AuthOption) func(http.Handler) http.Handler {
	if verifier == nil {
		panic("firebase: token verifier is required")
	}
	o := &authOptions{onError: unauthorized, log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	log := o.log.With(logger.Component("auth"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" && o.cookies != nil {
				raw, _ = o.cookies.Get(r)
			}
			if raw == "" {
				o.onError(w, r, ErrMissingToken)
				return
			}

			tok, err := verifier.VerifyIDToken(r.Context(), raw)
			if err != nil {
				log.DebugContext(r.Context(), "id token rejected", logger.Error(err))
				o.onError(w, r, errors.Join(ErrInvalidToken, err))
				return
			}

			id := Identity{UID: tok.UID, Token: raw}
			if email, ok := tok.Claims["email"].(string); ok {
				id.Email = email
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireUser reads the uid stored by Authenticate inside a typed handler.
func RequireUser(ctx context.Context) (string, error) {
	uid := UserID(ctx)
	if uid == "" {
		return "", errors.Join(handler.ErrUnauthorized, ErrUnauthenticated)
	}
	return uid, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
