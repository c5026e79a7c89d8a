// Package records serves the caller's institutions, lessons, savings pots,
// DAS obligations and monthly summary.
package records

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/copywriter"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/logger"
	"github.com/profepj/profepj/pkg/subscription"
)

// Ledger is the record keeping behind the endpoints. *ledger.Service
// satisfies it.
type Ledger interface {
	ListInstitutions(ctx context.Context, uid string) ([]ledger.Institution, error)
	CreateInstitution(ctx context.Context, uid string, in ledger.InstitutionInput) (*ledger.Institution, error)
	UpdateInstitution(ctx context.Context, uid, id string, in ledger.InstitutionInput) (*ledger.Institution, error)
	DeleteInstitution(ctx context.Context, uid, id string) error

	ListLessons(ctx context.Context, uid string, filter ledger.LessonFilter) ([]ledger.Lesson, error)
	MonthLessons(ctx context.Context, uid, month string) ([]ledger.Lesson, error)
	CreateLesson(ctx context.Context, uid string, in ledger.LessonInput) (*ledger.Lesson, error)
	UpdateLesson(ctx context.Context, uid, id string, in ledger.LessonInput) (*ledger.Lesson, error)
	DeleteLesson(ctx context.Context, uid, id string) error
	CompleteLesson(ctx context.Context, uid, id string) (*ledger.Completion, error)

	ListPots(ctx context.Context, uid string) ([]ledger.Pot, error)
	CreatePot(ctx context.Context, uid string, in ledger.PotInput) (*ledger.Pot, error)
	UpdatePot(ctx context.Context, uid, id string, in ledger.PotInput) (*ledger.Pot, error)
	DeletePot(ctx context.Context, uid, id string) error

	ListObligations(ctx context.Context, uid string) ([]ledger.MonthlyObligation, error)
	CurrentMonth() string
	Obligation(ctx context.Context, uid, monthRef string) (*ledger.MonthlyObligation, error)
	PayCurrent(ctx context.Context, uid string) (*ledger.MonthlyObligation, error)
	Summary(ctx context.Context, uid, month string) (*ledger.Summary, error)
}

// Profiles reads the caller's profile for personalized copy.
type Profiles interface {
	GetProfile(ctx context.Context, uid string) (*subscription.Profile, error)
}

type Service struct {
	ledger       Ledger
	profiles     Profiles
	copy         copywriter.Generator
	guard        []func(http.Handler) http.Handler
	errorHandler handler.ErrorHandler[handler.Context]
	log          *slog.Logger
}

type Option func(*Service)

// WithGuard adds middleware in front of every route, e.g. the access gate.
func WithGuard(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Service) {
		s.guard = append(s.guard, mw...)
	}
}

// WithCopywriter sets the generator for lesson completion messages.
// Static copy is used otherwise.
func WithCopywriter(g copywriter.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.copy = g
		}
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

func NewService(l Ledger, profiles Profiles, opts ...Option) *Service {
	if l == nil || profiles == nil {
		panic("records: ledger and profiles are required")
	}
	s := &Service{
		ledger:   l,
		profiles: profiles,
		copy:     copywriter.Static{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("records"))
	return s
}

// Handle serves /institutions, /lessons, /pots, /obligations and /summary.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(s.guard...)

	r.Route("/institutions", func(r chi.Router) {
		r.Get("/", wrap(s, s.listInstitutions))
		r.Post("/", wrapJSON(s, s.createInstitution))
		r.Put("/{id}", wrapJSON(s, s.updateInstitution))
		r.Delete("/{id}", wrap(s, s.deleteInstitution))
	})

	r.Route("/lessons", func(r chi.Router) {
		r.Get("/", wrapQuery(s, s.listLessons))
		r.Post("/", wrapJSON(s, s.createLesson))
		r.Put("/{id}", wrapJSON(s, s.updateLesson))
		r.Delete("/{id}", wrap(s, s.deleteLesson))
		r.Post("/{id}/complete", wrap(s, s.completeLesson))
	})

	r.Route("/pots", func(r chi.Router) {
		r.Get("/", wrap(s, s.listPots))
		r.Post("/", wrapJSON(s, s.createPot))
		r.Put("/{id}", wrapJSON(s, s.updatePot))
		r.Delete("/{id}", wrap(s, s.deletePot))
	})

	r.Route("/obligations", func(r chi.Router) {
		r.Get("/", wrap(s, s.listObligations))
		r.Get("/current", wrap(s, s.currentObligation))
		r.Post("/current/pay", wrap(s, s.payCurrent))
	})

	r.Get("/summary", wrapQuery(s, s.summary))

	return r
}
