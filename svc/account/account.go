// Package account serves signup, the session cookie, the caller's access
// flags and profile editing. All routes expect firebase.Authenticate
// upstream.
package account

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/binder"
	"github.com/profepj/profepj/pkg/cookie"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/subscription"
)

// Accounts provisions and edits accounts. *ledger.Service satisfies it.
type Accounts interface {
	Signup(ctx context.Context, uid string, in ledger.SignupInput) (*ledger.Account, error)
	UpdateProfile(ctx context.Context, uid string, upd ledger.ProfileUpdate) error
}

// Access evaluates the caller. *subscription.Service satisfies it.
type Access interface {
	Access(ctx context.Context, uid string) (subscription.Access, error)
}

// Profiles reads profiles.
type Profiles interface {
	GetProfile(ctx context.Context, uid string) (*subscription.Profile, error)
}

type Service struct {
	accounts     Accounts
	access       Access
	profiles     Profiles
	sessions     *cookie.Manager
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewService(
	accounts Accounts,
	access Access,
	profiles Profiles,
	sessions *cookie.Manager,
	errorHandler handler.ErrorHandler[handler.Context],
) *Service {
	if accounts == nil || access == nil || profiles == nil || sessions == nil {
		panic("account: all dependencies are required")
	}
	return &Service{
		accounts:     accounts,
		access:       access,
		profiles:     profiles,
		sessions:     sessions,
		errorHandler: errorHandler,
	}
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/signup", handler.Wrap(s.signup,
		handler.WithBinders[handler.Context, ledger.SignupInput](binder.JSON()),
		handler.WithErrorHandler[handler.Context, ledger.SignupInput](s.errorHandler),
	))
	r.Post("/session", handler.Wrap(s.startSession,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Delete("/session", handler.Wrap(s.endSession,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Get("/access", handler.Wrap(s.getAccess,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Get("/profile", handler.Wrap(s.getProfile,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Patch("/profile", handler.Wrap(s.updateProfile,
		handler.WithBinders[handler.Context, profileRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, profileRequest](s.errorHandler),
	))

	return r
}

type signupResponse struct {
	Profile      subscription.Profile      `json:"profile"`
	Subscription subscription.Subscription `json:"subscription"`
	Institution  ledger.Institution        `json:"institution"`
	Pots         []ledger.Pot              `json:"pots"`
}

func (s *Service) signup(ctx handler.Context, in ledger.SignupInput) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	if in.Email == "" {
		in.Email = firebase.Email(ctx)
	}

	acc, err := s.accounts.Signup(ctx, uid, in)
	if err != nil {
		return handler.JSONError(httpError(err))
	}

	s.setSession(ctx)
	return handler.JSON(signupResponse{
		Profile:      acc.Profile,
		Subscription: acc.Subscription,
		Institution:  acc.Institution,
		Pots:         acc.Pots,
	}, handler.WithJSONStatus(http.StatusCreated))
}

type sessionResponse struct {
	OK bool `json:"ok"`
}

func (s *Service) startSession(ctx handler.Context, _ struct{}) handler.Response {
	if _, err := firebase.RequireUser(ctx); err != nil {
		return handler.JSONError(err)
	}
	s.setSession(ctx)
	return handler.JSON(sessionResponse{OK: true})
}

func (s *Service) endSession(ctx handler.Context, _ struct{}) handler.Response {
	s.sessions.Delete(ctx.ResponseWriter())
	return handler.Empty()
}

// setSession stores the verified ID token in the session cookie the route
// gate looks for.
func (s *Service) setSession(ctx handler.Context) {
	if tok := firebase.Token(ctx); tok != "" {
		s.sessions.Set(ctx.ResponseWriter(), tok)
	}
}

func (s *Service) getAccess(ctx handler.Context, _ struct{}) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	access, err := s.access.Access(ctx, uid)
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(access)
}

func (s *Service) getProfile(ctx handler.Context, _ struct{}) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	profile, err := s.profiles.GetProfile(ctx, uid)
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(profile)
}

type profileRequest struct {
	Name       *string `json:"name"`
	DASDueDate *int    `json:"dasDueDate"`
}

func (s *Service) updateProfile(ctx handler.Context, req profileRequest) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	if err := s.accounts.UpdateProfile(ctx, uid, ledger.ProfileUpdate{Name: req.Name, DASDueDate: req.DASDueDate}); err != nil {
		return handler.JSONError(httpError(err))
	}
	profile, err := s.profiles.GetProfile(ctx, uid)
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(profile)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrAccountExists):
		return errors.Join(handler.ErrConflict.WithMessage("Account already exists"), err)
	case errors.Is(err, subscription.ErrProfileNotFound):
		return errors.Join(handler.ErrNotFound.WithMessage("Profile not found"), err)
	}
	return err
}
