package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/async"
	"github.com/profepj/profepj/pkg/binder"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/logger"
	"github.com/profepj/profepj/pkg/subscription"
)

// DefaultConcurrency bounds parallel subscription lookups.
const DefaultConcurrency = 8

// Store is the persistence the admin endpoints need.
type Store interface {
	GetProfile(ctx context.Context, uid string) (*subscription.Profile, error)
	GetSubscription(ctx context.Context, uid string) (*subscription.Subscription, error)
	ListProfiles(ctx context.Context) ([]subscription.Profile, error)
	SetAdmin(ctx context.Context, uid string, admin bool) error
}

type Service struct {
	store        Store
	errorHandler handler.ErrorHandler[handler.Context]
	log          *slog.Logger
	now          func() time.Time
	concurrency  int
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewService(store Store, errorHandler handler.ErrorHandler[handler.Context], opts ...Option) *Service {
	if store == nil {
		panic("admin: Store is required")
	}
	s := &Service{
		store:        store,
		errorHandler: errorHandler,
		log:          slog.Default(),
		now:          time.Now,
		concurrency:  DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("admin"))
	return s
}

// Handle serves /stats, /users and /subscriptions. The caller must already
// be authenticated; RequireAdmin is applied here.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(RequireAdmin(s.store, s.log))

	r.Get("/stats", handler.Wrap(s.stats,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Get("/users", handler.Wrap(s.users,
		handler.WithBinders[handler.Context, usersQuery](binder.Query()),
		handler.WithErrorHandler[handler.Context, usersQuery](s.errorHandler),
	))
	r.Patch("/users", handler.Wrap(s.setAdmin,
		handler.WithBinders[handler.Context, setAdminRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, setAdminRequest](s.errorHandler),
	))
	r.Get("/subscriptions", handler.Wrap(s.subscriptions,
		handler.WithBinders[handler.Context, subscriptionsQuery](binder.Query()),
		handler.WithErrorHandler[handler.Context, subscriptionsQuery](s.errorHandler),
	))

	return r
}

// RequireAdmin rejects callers whose profile is missing or not flagged
// isAdmin with 403.
func RequireAdmin(store Store, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := firebase.RequireUser(r.Context())
			if err != nil {
				handler.WriteError(w, r, err)
				return
			}
			profile, err := store.GetProfile(r.Context(), uid)
			if err != nil && !errors.Is(err, subscription.ErrProfileNotFound) {
				log.ErrorContext(r.Context(), "load admin profile", logger.UserID(uid), logger.Error(err))
				handler.WriteError(w, r, err)
				return
			}
			if profile == nil || !profile.IsAdmin {
				handler.WriteError(w, r, handler.ErrForbidden.WithMessage("Forbidden: Admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Service) stats(ctx handler.Context, _ struct{}) handler.Response {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return handler.JSONError(err)
	}

	active := make([]subscription.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.SubscriptionStatus == subscription.StatusActive {
			active = append(active, p)
		}
	}
	entries, err := s.withSubscriptions(ctx, active, true)
	if err != nil {
		return handler.JSONError(err)
	}
	subs := make(map[string]*subscription.Subscription, len(entries))
	for _, e := range entries {
		subs[e.ID] = e.Subscription
	}

	return handler.JSON(ComputeStats(profiles, subs, s.now()))
}

type usersQuery struct {
	Status string `query:"status"`
	Search string `query:"search"`
}

type usersResponse struct {
	Users []UserEntry `json:"users"`
}

func (s *Service) users(ctx handler.Context, q usersQuery) handler.Response {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	entries, err := s.withSubscriptions(ctx, FilterUsers(profiles, q.Status, q.Search, s.now()), false)
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(usersResponse{Users: entries})
}

type setAdminRequest struct {
	UserID  string `json:"userId"`
	IsAdmin *bool  `json:"isAdmin"`
}

type setAdminResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Service) setAdmin(ctx handler.Context, req setAdminRequest) handler.Response {
	if req.UserID == "" || req.IsAdmin == nil {
		return handler.JSONError(handler.ErrBadRequest.WithMessage("Invalid request body"))
	}

	err := s.store.SetAdmin(ctx, req.UserID, *req.IsAdmin)
	if errors.Is(err, subscription.ErrProfileNotFound) {
		return handler.JSONError(errors.Join(handler.ErrNotFound.WithMessage("User not found"), err))
	}
	if err != nil {
		return handler.JSONError(err)
	}

	s.log.InfoContext(ctx, "admin flag changed",
		logger.UserID(req.UserID),
		slog.String("changed_by", firebase.UserID(ctx)),
		slog.Bool("is_admin", *req.IsAdmin),
	)
	return handler.JSON(setAdminResponse{Success: true, Message: "User updated successfully"})
}

type subscriptionsQuery struct {
	Status string `query:"status"`
}

type subscriptionsResponse struct {
	Subscriptions []SubscriptionEntry `json:"subscriptions"`
}

func (s *Service) subscriptions(ctx handler.Context, q subscriptionsQuery) handler.Response {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	entries, err := s.withSubscriptions(ctx, profiles, true)
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(subscriptionsResponse{Subscriptions: BuildSubscriptions(entries, q.Status)})
}

// withSubscriptions loads each profile's subscription record concurrently.
// A missing record is null. With strict unset other lookup errors are
// logged and also yield null; with strict set they fail the call.
func (s *Service) withSubscriptions(ctx context.Context, profiles []subscription.Profile, strict bool) ([]UserEntry, error) {
	return async.Map(ctx, profiles, s.concurrency, func(ctx context.Context, p subscription.Profile) (UserEntry, error) {
		sub, err := s.store.GetSubscription(ctx, p.ID)
		switch {
		case err == nil:
		case errors.Is(err, subscription.ErrSubscriptionNotFound):
			sub = nil
		case strict:
			return UserEntry{}, err
		default:
			s.log.WarnContext(ctx, "subscription lookup failed", logger.UserID(p.ID), logger.Error(err))
			sub = nil
		}
		return UserEntry{Profile: p, Subscription: sub}, nil
	})
}
