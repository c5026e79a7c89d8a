package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/profepj/profepj/pkg/finance"
	"github.com/profepj/profepj/pkg/logger"
	"github.com/profepj/profepj/pkg/validator"
)

// DefaultEstimatedTax is the DAS estimate, in reais, for a new obligation.
const DefaultEstimatedTax = 82.00

// Config holds ledger settings.
type Config struct {
	TrialDays    int     `env:"SUBSCRIPTION_TRIAL_DAYS" envDefault:"14"`
	EstimatedTax float64 `env:"DAS_ESTIMATED_VALUE" envDefault:"82.00"`
	Timezone     string  `env:"APP_TIMEZONE" envDefault:"America/Sao_Paulo"`
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

type Service struct {
	store Store
	cfg   Config
	loc   *time.Location
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides record id generation (uuid by default).
func WithIDGenerator(gen func() string) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func NewService(store Store, cfg Config, opts ...ServiceOption) *Service {
	if store == nil {
		panic("ledger: Store is required")
	}
	if cfg.TrialDays <= 0 {
		cfg.TrialDays = 14
	}
	if cfg.EstimatedTax <= 0 {
		cfg.EstimatedTax = DefaultEstimatedTax
	}
	s := &Service{
		store: store,
		cfg:   cfg,
		loc:   cfg.Location(),
		log:   slog.Default(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("ledger"))
	return s
}

// Signup provisions a new account with a trial of the configured length.
func (s *Service) Signup(ctx context.Context, uid string, in SignupInput) (*Account, error) {
	if err := validator.Apply(
		validator.Required("name", in.Name),
		validator.MaxLen("name", in.Name, 120),
		validator.When(in.Email != "", validator.ValidEmail("email", in.Email)),
		validator.Between("dasDueDate", in.DASDueDate, 1, 31),
		validator.Required("institution.name", in.Institution.Name),
		validator.NonNegativeAmount("institution.hourlyRate", in.Institution.HourlyRate),
	); err != nil {
		return nil, err
	}

	acc := NewAccount(uid, s.newID(), in, s.now().UTC(), s.cfg.TrialDays)
	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "account created", logger.UserID(uid), logger.Event("signup"))
	return &acc, nil
}

func (s *Service) UpdateProfile(ctx context.Context, uid string, upd ProfileUpdate) error {
	var rules []validator.Rule
	if upd.Name != nil {
		rules = append(rules, validator.Required("name", *upd.Name), validator.MaxLen("name", *upd.Name, 120))
	}
	if upd.DASDueDate != nil {
		rules = append(rules, validator.Between("dasDueDate", *upd.DASDueDate, 1, 31))
	}
	if err := validator.Apply(rules...); err != nil {
		return err
	}
	return s.store.UpdateProfile(ctx, uid, upd)
}

type InstitutionInput struct {
	Name        string     `json:"name"`
	HourlyRate  float64    `json:"hourlyRate"`
	Color       string     `json:"color,omitempty"`
	RecessStart *time.Time `json:"recessStart,omitempty"`
	RecessEnd   *time.Time `json:"recessEnd,omitempty"`
}

func (in InstitutionInput) validate() error {
	hasRecess := in.RecessStart != nil && in.RecessEnd != nil
	return validator.Apply(
		validator.Required("name", in.Name),
		validator.MaxLen("name", in.Name, 120),
		validator.NonNegativeAmount("hourlyRate", in.HourlyRate),
		validator.When(hasRecess, validator.Rule{
			Check: func() bool { return !Noon(*in.RecessEnd).Before(Noon(*in.RecessStart)) },
			Error: validator.ValidationError{Field: "recessEnd", Message: "must not be before the recess start", TranslationKey: "validation.recess_end"},
		}),
	)
}

func (in InstitutionInput) apply(inst *Institution) {
	inst.Name = in.Name
	inst.HourlyRate = in.HourlyRate
	if in.Color != "" {
		inst.Color = in.Color
	}
	if inst.Color == "" {
		inst.Color = ColorFor(in.Name)
	}
	inst.RecessStart, inst.RecessEnd = nil, nil
	if in.RecessStart != nil && in.RecessEnd != nil {
		start, end := Noon(*in.RecessStart), Noon(*in.RecessEnd)
		inst.RecessStart, inst.RecessEnd = &start, &end
	}
}

func (s *Service) ListInstitutions(ctx context.Context, uid string) ([]Institution, error) {
	return s.store.ListInstitutions(ctx, uid)
}

func (s *Service) CreateInstitution(ctx context.Context, uid string, in InstitutionInput) (*Institution, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	inst := Institution{ID: s.newID()}
	in.apply(&inst)
	if err := s.store.SaveInstitution(ctx, uid, inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *Service) UpdateInstitution(ctx context.Context, uid, id string, in InstitutionInput) (*Institution, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	inst, err := s.store.GetInstitution(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	in.apply(inst)
	if err := s.store.SaveInstitution(ctx, uid, *inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *Service) DeleteInstitution(ctx context.Context, uid, id string) error {
	return s.store.DeleteInstitution(ctx, uid, id)
}

type LessonInput struct {
	InstitutionID string       `json:"institutionId"`
	StartTime     time.Time    `json:"startTime"`
	EndTime       time.Time    `json:"endTime"`
	TotalValue    float64      `json:"totalValue"`
	Status        LessonStatus `json:"status,omitempty"`
	Turma         string       `json:"turma,omitempty"`
	Disciplina    string       `json:"disciplina,omitempty"`
}

func (in LessonInput) validate() error {
	return validator.Apply(
		validator.Required("institutionId", in.InstitutionID),
		validator.RequiredTime("startTime", in.StartTime),
		validator.TimeAfter("endTime", in.EndTime, in.StartTime),
		validator.NonNegativeAmount("totalValue", in.TotalValue),
		validator.When(in.Status != "", validator.OneOf("status", in.Status, LessonScheduled, LessonCancelled)),
	)
}

// buildLesson fills the institution name and derives the value from the
// hourly rate when none was given.
func (s *Service) buildLesson(ctx context.Context, uid string, lesson *Lesson, in LessonInput) error {
	inst, err := s.store.GetInstitution(ctx, uid, in.InstitutionID)
	if err != nil {
		return err
	}

	lesson.InstitutionID = inst.ID
	lesson.InstitutionName = inst.Name
	lesson.StartTime = in.StartTime.UTC()
	lesson.EndTime = in.EndTime.UTC()
	lesson.Turma = in.Turma
	lesson.Disciplina = in.Disciplina
	lesson.TotalValue = in.TotalValue
	if lesson.TotalValue == 0 {
		lesson.TotalValue = finance.Round2(inst.HourlyRate * lesson.Hours())
	}
	if in.Status != "" {
		lesson.Status = in.Status
	}
	if lesson.Status == "" {
		lesson.Status = LessonScheduled
	}
	return nil
}

func (s *Service) ListLessons(ctx context.Context, uid string, filter LessonFilter) ([]Lesson, error) {
	return s.store.ListLessons(ctx, uid, filter)
}

func (s *Service) CreateLesson(ctx context.Context, uid string, in LessonInput) (*Lesson, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	lesson := Lesson{ID: s.newID()}
	if err := s.buildLesson(ctx, uid, &lesson, in); err != nil {
		return nil, err
	}
	if err := s.store.SaveLesson(ctx, uid, lesson); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// UpdateLesson edits a lesson that has not been completed yet.
func (s *Service) UpdateLesson(ctx context.Context, uid, id string, in LessonInput) (*Lesson, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	lesson, err := s.store.GetLesson(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	if lesson.Status == LessonCompleted {
		return nil, ErrLessonAlreadyCompleted
	}
	if err := s.buildLesson(ctx, uid, lesson, in); err != nil {
		return nil, err
	}
	if err := s.store.SaveLesson(ctx, uid, *lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *Service) DeleteLesson(ctx context.Context, uid, id string) error {
	return s.store.DeleteLesson(ctx, uid, id)
}

// Completion is the outcome of completing a lesson.
type Completion struct {
	Lesson Lesson          `json:"lesson"`
	Total  float64         `json:"total"`
	Pots   []finance.Share `json:"pots"`
	Pocket float64         `json:"pocket"`
	XP     int             `json:"xp"`
}

// CompleteLesson splits the lesson value across the pots by allocation
// percentage, credits them and awards XP.
func (s *Service) CompleteLesson(ctx context.Context, uid, id string) (*Completion, error) {
	lesson, err := s.store.GetLesson(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	switch lesson.Status {
	case LessonCompleted:
		return nil, ErrLessonAlreadyCompleted
	case LessonCancelled:
		return nil, ErrLessonCancelled
	}

	pots, err := s.store.ListPots(ctx, uid)
	if err != nil {
		return nil, err
	}
	allocations := make([]finance.Allocation, 0, len(pots))
	for _, p := range pots {
		allocations = append(allocations, finance.Allocation{ID: p.ID, Name: p.Name, Percentage: p.AllocationPercentage})
	}
	shares, pocket := finance.Split(lesson.TotalValue, allocations)

	if err := s.store.CompleteLesson(ctx, uid, id, shares, XPPerLesson); err != nil {
		return nil, fmt.Errorf("complete lesson %s: %w", id, err)
	}
	lesson.Status = LessonCompleted

	s.log.InfoContext(ctx, "lesson completed",
		logger.UserID(uid),
		slog.String("lesson_id", id),
		slog.Float64("total", lesson.TotalValue),
	)
	return &Completion{
		Lesson: *lesson,
		Total:  lesson.TotalValue,
		Pots:   shares,
		Pocket: pocket,
		XP:     XPPerLesson,
	}, nil
}

type PotInput struct {
	Name                 string  `json:"name"`
	Goal                 float64 `json:"goal"`
	AllocationPercentage float64 `json:"allocationPercentage"`
}

func (in PotInput) validate() error {
	return validator.Apply(
		validator.Required("name", in.Name),
		validator.MaxLen("name", in.Name, 60),
		validator.NonNegativeAmount("goal", in.Goal),
		validator.ValidPercentage("allocationPercentage", in.AllocationPercentage),
	)
}

func (s *Service) ListPots(ctx context.Context, uid string) ([]Pot, error) {
	return s.store.ListPots(ctx, uid)
}

func (s *Service) CreatePot(ctx context.Context, uid string, in PotInput) (*Pot, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	pot := Pot{
		ID:                   s.newID(),
		Name:                 in.Name,
		Type:                 PotCustom,
		Goal:                 in.Goal,
		AllocationPercentage: in.AllocationPercentage,
	}
	if err := s.store.SavePot(ctx, uid, pot); err != nil {
		return nil, err
	}
	return &pot, nil
}

// UpdatePot edits name, goal and percentage. Balance and type are kept.
func (s *Service) UpdatePot(ctx context.Context, uid, id string, in PotInput) (*Pot, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	pot, err := s.store.GetPot(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	pot.Name = in.Name
	pot.Goal = in.Goal
	pot.AllocationPercentage = in.AllocationPercentage
	if err := s.store.SavePot(ctx, uid, *pot); err != nil {
		return nil, err
	}
	return pot, nil
}

func (s *Service) DeletePot(ctx context.Context, uid, id string) error {
	pot, err := s.store.GetPot(ctx, uid, id)
	if err != nil {
		return err
	}
	if pot.Type == PotMandatory {
		return ErrMandatoryPot
	}
	return s.store.DeletePot(ctx, uid, id)
}

func (s *Service) ListObligations(ctx context.Context, uid string) ([]MonthlyObligation, error) {
	return s.store.ListObligations(ctx, uid)
}

// CurrentMonth is the month reference of now in the configured timezone.
func (s *Service) CurrentMonth() string {
	return MonthRef(s.now().In(s.loc))
}

// Obligation returns the obligation for monthRef, or a pending one with
// the default estimate when none was recorded.
func (s *Service) Obligation(ctx context.Context, uid, monthRef string) (*MonthlyObligation, error) {
	ob, err := s.store.GetObligation(ctx, uid, monthRef)
	if errors.Is(err, ErrObligationNotFound) {
		return &MonthlyObligation{
			ID:                monthRef,
			MonthRef:          monthRef,
			Status:            ObligationPending,
			EstimatedTaxValue: s.cfg.EstimatedTax,
		}, nil
	}
	return ob, err
}

// PayCurrent records this month's DAS as paid, with the month's completed
// lesson revenue.
func (s *Service) PayCurrent(ctx context.Context, uid string) (*MonthlyObligation, error) {
	month := s.CurrentMonth()
	ob, err := s.Obligation(ctx, uid, month)
	if err != nil {
		return nil, err
	}
	if ob.Status == ObligationPaid {
		return nil, ErrObligationPaid
	}

	revenue, err := s.monthRevenue(ctx, uid, month)
	if err != nil {
		return nil, err
	}
	paidAt := s.now().UTC()
	ob.Status = ObligationPaid
	ob.PaymentDate = &paidAt
	ob.TotalRevenue = revenue

	if err := s.store.SaveObligation(ctx, uid, *ob); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "das paid", logger.UserID(uid), slog.String("month", month))
	return ob, nil
}

// MonthLessons lists the lessons starting in month, in start order. An
// empty month means the current one.
func (s *Service) MonthLessons(ctx context.Context, uid, month string) ([]Lesson, error) {
	if month == "" {
		month = s.CurrentMonth()
	}
	return s.monthLessons(ctx, uid, month)
}

// Location is the timezone month boundaries are computed in.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) monthLessons(ctx context.Context, uid, month string) ([]Lesson, error) {
	from, to, err := MonthRange(month, s.loc)
	if err != nil {
		return nil, validator.ValidationErrors{{Field: "month", Message: "must be a month in yyyy-MM format", TranslationKey: "validation.month"}}
	}
	return s.store.ListLessons(ctx, uid, LessonFilter{From: from, To: to})
}

func (s *Service) monthRevenue(ctx context.Context, uid, month string) (float64, error) {
	lessons, err := s.monthLessons(ctx, uid, month)
	if err != nil {
		return 0, err
	}
	var cents int64
	for _, l := range lessons {
		if l.Status == LessonCompleted {
			cents += finance.ToCents(l.TotalValue)
		}
	}
	return finance.FromCents(cents), nil
}

// Summary counts the month's scheduled and completed lessons. An empty
// month means the current one.
func (s *Service) Summary(ctx context.Context, uid, month string) (*Summary, error) {
	if month == "" {
		month = s.CurrentMonth()
	}
	lessons, err := s.monthLessons(ctx, uid, month)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Month: month}
	var cents int64
	for _, l := range lessons {
		if l.Status == LessonCancelled {
			continue
		}
		sum.TotalLessons++
		cents += finance.ToCents(l.TotalValue)
	}
	sum.TotalValue = finance.FromCents(cents)
	return sum, nil
}
