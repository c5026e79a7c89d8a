package gate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/logger"
	"github.com/profepj/profepj/pkg/metrics"
	"github.com/profepj/profepj/pkg/subscription"
)

// Resolver evaluates the caller's access.
type Resolver func(r *http.Request) (*subscription.Access, error)

// Evaluator is satisfied by *subscription.Service.
type Evaluator interface {
	Access(ctx context.Context, uid string) (subscription.Access, error)
}

// UserAccess resolves the access of the user authenticated by
// firebase.Authenticate. Requests without one get a 401.
func UserAccess(e Evaluator) Resolver {
	return func(r *http.Request) (*subscription.Access, error) {
		uid, err := firebase.RequireUser(r.Context())
		if err != nil {
			return nil, err
		}
		a, err := e.Access(r.Context(), uid)
		if err != nil {
			return nil, err
		}
		return &a, nil
	}
}

type mode int

const (
	modeRedirect mode = iota
	modeBlockedScreen
	modeJSON
)

func (m mode) String() string {
	switch m {
	case modeBlockedScreen:
		return "blocked_screen"
	case modeJSON:
		return "json"
	default:
		return "redirect"
	}
}

type options struct {
	mode          mode
	subscribePath string
	homePath      string
	log           *slog.Logger
}

type Option func(*options)

// WithBlockedScreen renders the blocked screen instead of redirecting.
func WithBlockedScreen() Option {
	return func(o *options) { o.mode = modeBlockedScreen }
}

// WithJSON answers denied API calls with 402 and a JSON body.
func WithJSON() Option {
	return func(o *options) { o.mode = modeJSON }
}

// WithPaths sets the plans and home links used by redirects and the
// blocked screen.
func WithPaths(cfg Config) Option {
	return func(o *options) {
		if cfg.SubscribePath != "" {
			o.subscribePath = cfg.SubscribePath
		}
		if cfg.HomePath != "" {
			o.homePath = cfg.HomePath
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// SubscriptionRequired is the 402 body of the JSON mode.
type SubscriptionRequired struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	NeedsPayment bool   `json:"needsPayment"`
	TrialEnded   bool   `json:"trialEnded"`
}

// RequireAccess lets the request through when the resolved access grants
// it and stores the Access in the request context.
func RequireAccess(resolve Resolver, opts ...Option) func(http.Handler) http.Handler {
	if resolve == nil {
		panic("gate: resolver is required")
	}
	o := &options{subscribePath: "/assinatura", homePath: "/", log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	log := o.log.With(logger.Component("gate"))
	name := o.mode.String()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, err := resolve(r)
			if err != nil {
				metrics.IncGateDecision(name, "error")
				log.ErrorContext(r.Context(), "access resolution failed", logger.Error(err))
				handler.WriteError(w, r, err)
				return
			}
			if access != nil && access.HasAccess {
				metrics.IncGateDecision(name, "allow")
				next.ServeHTTP(w, r.WithContext(WithAccess(r.Context(), *access)))
				return
			}

			metrics.IncGateDecision(name, "deny")
			if access == nil {
				access = &subscription.Access{NeedsPayment: true}
			}
			switch o.mode {
			case modeJSON:
				writeSubscriptionRequired(w, r, access)
			case modeBlockedScreen:
				page := BlockedScreen(BlockedData{
					Access:        *access,
					SubscribePath: o.subscribePath,
					HomePath:      o.homePath,
				})
				resp := handler.TemplWithStatus(page, http.StatusPaymentRequired)
				if err := resp.Render(w, r); err != nil {
					log.ErrorContext(r.Context(), "failed to render blocked screen", logger.Error(err))
				}
			default:
				http.Redirect(w, r, o.subscribePath, http.StatusTemporaryRedirect)
			}
		})
	}
}

func writeSubscriptionRequired(w http.ResponseWriter, r *http.Request, a *subscription.Access) {
	body := SubscriptionRequired{
		Error:        "Subscription required",
		Code:         handler.ErrPaymentRequired.Key,
		NeedsPayment: a.NeedsPayment,
		TrialEnded:   a.TrialEnded,
	}
	_ = handler.JSON(body, handler.WithJSONStatus(http.StatusPaymentRequired)).Render(w, r)
}

type accessKey struct{}

func WithAccess(ctx context.Context, a subscription.Access) context.Context {
	return context.WithValue(ctx, accessKey{}, a)
}

// AccessFromContext returns the Access stored by RequireAccess.
func AccessFromContext(ctx context.Context) (subscription.Access, bool) {
	a, ok := ctx.Value(accessKey{}).(subscription.Access)
	return a, ok
}
