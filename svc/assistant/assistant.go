// Package assistant serves the AI copy flows: the home greeting, the lesson
// completion feedback and the DAS alert.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/binder"
	"github.com/profepj/profepj/pkg/copywriter"
	"github.com/profepj/profepj/pkg/finance"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/logger"
	"github.com/profepj/profepj/pkg/ratelimiter"
	"github.com/profepj/profepj/pkg/subscription"
)

// Ledger supplies the numbers the greeting and DAS alert are built from.
type Ledger interface {
	MonthLessons(ctx context.Context, uid, month string) ([]ledger.Lesson, error)
	DaysUntilDAS(dueDay int) int
}

type Profiles interface {
	GetProfile(ctx context.Context, uid string) (*subscription.Profile, error)
}

type Service struct {
	copy         copywriter.Generator
	ledger       Ledger
	profiles     Profiles
	limiter      ratelimiter.RateLimiter
	errorHandler handler.ErrorHandler[handler.Context]
	log          *slog.Logger
}

type Option func(*Service)

// WithRateLimiter limits every route per signed-in user.
func WithRateLimiter(l ratelimiter.RateLimiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

func WithErrorHandler(h handler.ErrorHandler[handler.Context]) Option {
	return func(s *Service) {
		s.errorHandler = h
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(gen copywriter.Generator, l Ledger, profiles Profiles, opts ...Option) *Service {
	if l == nil || profiles == nil {
		panic("assistant: ledger and profiles are required")
	}
	if gen == nil {
		gen = copywriter.Static{}
	}
	s := &Service{
		copy:     gen,
		ledger:   l,
		profiles: profiles,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("assistant"))
	return s
}

// Handle serves POST /greeting, /feedback and /das-alert.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	if s.limiter != nil {
		r.Use(ratelimiter.Middleware(s.limiter, ratelimiter.UserKey))
	}

	r.Post("/greeting", wrap(s, s.greeting))
	r.Post("/feedback", wrap(s, s.feedback))
	r.Post("/das-alert", wrap(s, s.dasAlert))

	return r
}

// wrap binds an optional JSON body: a bodyless POST is the zero request.
func wrap[R any](s *Service, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	body := binder.JSON()
	optional := func(r *http.Request, v any) error {
		if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
			return binder.ErrBinderNotApplicable
		}
		return body(r, v)
	}
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](optional),
		handler.WithErrorHandler[handler.Context, R](s.errorHandler),
	)
}

func (s *Service) greeting(ctx handler.Context, _ struct{}) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	p, err := s.profile(ctx, uid)
	if err != nil {
		return handler.JSONError(err)
	}
	lessons, err := s.ledger.MonthLessons(ctx, uid, "")
	if err != nil {
		return handler.JSONError(err)
	}

	in := copywriter.GreetingInput{UserName: p.Name, StreakDays: p.StreakDays}
	var cents int64
	for _, l := range lessons {
		if l.Status == ledger.LessonCompleted {
			in.MonthlyLessons++
			cents += finance.ToCents(l.TotalValue)
		}
	}
	in.MonthlyEarnings = finance.FromCents(cents)

	g, err := s.copy.HomeGreeting(ctx, in)
	if err != nil {
		s.log.WarnContext(ctx, "greeting copy failed", logger.UserID(uid), logger.Error(err))
		g, _ = copywriter.Static{}.HomeGreeting(ctx, in)
	}
	return handler.JSON(g)
}

type feedbackRequest struct {
	copywriter.FeedbackInput
}

func (s *Service) feedback(ctx handler.Context, req feedbackRequest) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	in := req.FeedbackInput
	if in.UserName == "" {
		if p, err := s.profiles.GetProfile(ctx, uid); err == nil {
			in.UserName = p.Name
		}
	}

	fb, err := s.copy.DopamineFeedback(ctx, in)
	if err != nil {
		s.log.WarnContext(ctx, "feedback copy failed", logger.UserID(uid), logger.Error(err))
		fb, _ = copywriter.Static{}.DopamineFeedback(ctx, in)
	}
	return handler.JSON(fb)
}

type dasAlertRequest struct {
	DaysUntilDue *int `json:"daysUntilDue"`
}

type dasAlertResponse struct {
	*copywriter.DASAlert
	DaysUntilDue int `json:"daysUntilDue"`
}

// dasAlert uses the caller's countdown when given, otherwise the days left
// until the profile's due day.
func (s *Service) dasAlert(ctx handler.Context, req dasAlertRequest) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}

	var days int
	if req.DaysUntilDue != nil {
		days = *req.DaysUntilDue
	} else {
		p, err := s.profile(ctx, uid)
		if err != nil {
			return handler.JSONError(err)
		}
		days = s.ledger.DaysUntilDAS(p.DASDueDate)
	}

	in := copywriter.DASAlertInput{DaysUntilDue: days}
	alert, err := s.copy.DASAlert(ctx, in)
	if err != nil {
		s.log.WarnContext(ctx, "das alert copy failed", logger.UserID(uid), logger.Error(err))
		alert, _ = copywriter.Static{}.DASAlert(ctx, in)
	}
	return handler.JSON(dasAlertResponse{DASAlert: alert, DaysUntilDue: days})
}

var errProfileNotFound = handler.ErrNotFound.WithMessage("Profile not found")

func (s *Service) profile(ctx context.Context, uid string) (*subscription.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, uid)
	if err != nil {
		if errors.Is(err, subscription.ErrProfileNotFound) {
			return nil, errors.Join(errProfileNotFound, err)
		}
		return nil, err
	}
	return p, nil
}
