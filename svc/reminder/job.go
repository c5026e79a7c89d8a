// Package reminder emails teachers a few days before their DAS is due.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/profepj/profepj/pkg/async"
	"github.com/profepj/profepj/pkg/copywriter"
	"github.com/profepj/profepj/pkg/email"
	"github.com/profepj/profepj/pkg/email/templates"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/logger"
	"github.com/profepj/profepj/pkg/metrics"
	"github.com/profepj/profepj/pkg/subscription"
)

// Outcomes of a single profile check.
const (
	OutcomeSent      = "sent"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomePaid      = "paid"
	OutcomeNotDue    = "not_due"
	OutcomeNoEmail   = "no_email"
)

const (
	claimTTL            = 35 * 24 * time.Hour
	reminderTag         = "das-reminder"
	defaultDaysBefore   = 3
	defaultTickInterval = 24 * time.Hour
)

type Profiles interface {
	ListProfiles(ctx context.Context) ([]subscription.Profile, error)
}

// Ledger answers whether a month's DAS was paid. *ledger.Service satisfies
// it.
type Ledger interface {
	Obligation(ctx context.Context, uid, monthRef string) (*ledger.MonthlyObligation, error)
	Location() *time.Location
}

// Claimer marks a reminder as sent. The first Claim of a key wins.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Job struct {
	cfg      Config
	profiles Profiles
	ledger   Ledger
	copy     copywriter.Generator
	sender   email.Sender
	claimer  Claimer
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Job)

// WithClaimer deduplicates reminders across ticks and replicas.
func WithClaimer(c Claimer) Option {
	return func(j *Job) {
		j.claimer = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		if now != nil {
			j.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.log = l
		}
	}
}

func New(cfg Config, profiles Profiles, l Ledger, gen copywriter.Generator, sender email.Sender, opts ...Option) *Job {
	if profiles == nil || l == nil || sender == nil {
		panic("reminder: profiles, ledger and sender are required")
	}
	if gen == nil {
		gen = copywriter.Static{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultTickInterval
	}
	if cfg.DaysBefore < 1 {
		cfg.DaysBefore = defaultDaysBefore
	}
	j := &Job{
		cfg:      cfg,
		profiles: profiles,
		ledger:   l,
		copy:     gen,
		sender:   sender,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.log = j.log.With(logger.Component("reminder"))
	return j
}

// Report counts profile outcomes of one run.
type Report map[string]int

// Run checks immediately and then on every interval until ctx is done.
func (j *Job) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	j.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			j.log.Info("reminder job stopped")
			return nil
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *Job) tick(ctx context.Context) {
	start := time.Now()
	report, err := j.RunOnce(ctx)
	if err != nil {
		j.log.ErrorContext(ctx, "reminder run failed", logger.Error(err))
		return
	}
	j.log.InfoContext(ctx, "reminder run finished",
		slog.Int("sent", report[OutcomeSent]),
		slog.Int("failed", report[OutcomeFailed]),
		logger.Duration(time.Since(start)),
	)
}

// RunOnce checks every profile once. Per-profile failures are logged and
// counted; only a failure to list profiles is returned.
func (j *Job) RunOnce(ctx context.Context) (Report, error) {
	profiles, err := j.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	now := j.now()

	outcomes, err := async.Map(ctx, profiles, j.cfg.Concurrency, func(ctx context.Context, p subscription.Profile) (string, error) {
		return j.remind(ctx, p, now), nil
	})
	if err != nil {
		return nil, err
	}

	report := Report{}
	for _, o := range outcomes {
		report[o]++
	}
	return report, nil
}

// remind checks the obligation of the month the next due date falls in,
// which is the following month once this month's due day has passed.
func (j *Job) remind(ctx context.Context, p subscription.Profile, now time.Time) string {
	if p.DASDueDate < 1 {
		return OutcomeNotDue
	}
	loc := j.ledger.Location()
	due := ledger.NextDASDue(p.DASDueDate, now, loc)
	month := ledger.MonthRef(due)
	days := ledger.DaysUntilDAS(p.DASDueDate, now, loc)
	if days < 1 || days > j.cfg.DaysBefore {
		return OutcomeNotDue
	}
	if strings.TrimSpace(p.Email) == "" {
		return OutcomeNoEmail
	}
	log := j.log.With(logger.UserID(p.ID))

	ob, err := j.ledger.Obligation(ctx, p.ID, month)
	if err != nil {
		log.ErrorContext(ctx, "load obligation", logger.Error(err))
		return j.count(OutcomeFailed)
	}
	if ob.Status == ledger.ObligationPaid {
		return j.count(OutcomePaid)
	}

	if j.claimer != nil {
		key := fmt.Sprintf("reminder:das:%s:%s:%d", p.ID, month, days)
		ok, err := j.claimer.Claim(ctx, key, claimTTL)
		if err != nil {
			log.ErrorContext(ctx, "claim reminder", logger.Error(err))
			return j.count(OutcomeFailed)
		}
		if !ok {
			return j.count(OutcomeDuplicate)
		}
	}

	in := copywriter.DASAlertInput{DaysUntilDue: days}
	alert, err := j.copy.DASAlert(ctx, in)
	if err != nil {
		log.WarnContext(ctx, "das alert copy failed", logger.Error(err))
		alert, _ = copywriter.Static{}.DASAlert(ctx, in)
	}

	data := EmailData{
		Name:         firstName(p.Name),
		Message:      alert.Message,
		DueDate:      due.Format("02/01/2006"),
		DaysUntilDue: days,
		EstimatedTax: ob.EstimatedTaxValue,
		AppURL:       j.cfg.AppURL,
	}
	body, err := templates.Render(ctx, Email(data))
	if err != nil {
		log.ErrorContext(ctx, "render reminder", logger.Error(err))
		return j.count(OutcomeFailed)
	}

	err = j.sender.Send(ctx, email.Message{
		To:       p.Email,
		Subject:  data.Subject(),
		HTMLBody: body,
		Tag:      reminderTag,
	})
	if err != nil {
		log.ErrorContext(ctx, "send reminder", logger.Error(err))
		return j.count(OutcomeFailed)
	}
	log.InfoContext(ctx, "das reminder sent", slog.Int("days_until_due", days))
	return j.count(OutcomeSent)
}

func (j *Job) count(outcome string) string {
	metrics.IncReminderEmail(outcome)
	return outcome
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "Profe"
}
