package reminder_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/pkg/copywriter"
	"github.com/profepj/profepj/pkg/docstore"
	"github.com/profepj/profepj/pkg/email"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/svc/reminder"
)

// 2025-03-10 09:00 in São Paulo.
var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type outbox struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg email.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) messages() []email.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]email.Message(nil), o.sent...)
}

type claims struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (c *claims) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys == nil {
		c.keys = map[string]bool{}
	}
	if c.keys[key] {
		return false, nil
	}
	c.keys[key] = true
	return true, nil
}

func setup(t *testing.T) (*docstore.Memory, *ledger.Service) {
	t.Helper()
	store := docstore.NewMemory()
	svc := ledger.NewService(store, ledger.Config{TrialDays: 14, Timezone: "America/Sao_Paulo", EstimatedTax: 82},
		ledger.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()
	signup := func(uid, mail string, due int) {
		_, err := svc.Signup(ctx, uid, ledger.SignupInput{
			Name:        "Ana Souza",
			Email:       mail,
			DASDueDate:  due,
			Institution: ledger.InstitutionInput{Name: "Colégio Sol", HourlyRate: 80},
		})
		require.NoError(t, err)
	}
	signup("due-soon", "ana@example.com", 12)
	signup("due-later", "bia@example.com", 20)
	signup("paid", "caio@example.com", 13)
	signup("no-email", "", 11)
	signup("due-today", "dani@example.com", 10)

	_, err := svc.PayCurrent(ctx, "paid")
	require.NoError(t, err)
	return store, svc
}

func newJob(store *docstore.Memory, svc *ledger.Service, sender email.Sender, opts ...reminder.Option) *reminder.Job {
	cfg := reminder.Config{Interval: time.Hour, DaysBefore: 3, Concurrency: 2, AppURL: "https://app.profepj.com.br"}
	opts = append([]reminder.Option{reminder.WithClock(func() time.Time { return now })}, opts...)
	return reminder.New(cfg, store, svc, copywriter.Static{}, sender, opts...)
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	t.Run("emails profiles inside the window", func(t *testing.T) {
		t.Parallel()
		store, svc := setup(t)
		box := &outbox{}

		report, err := newJob(store, svc, box).RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, reminder.Report{
			reminder.OutcomeSent:    1,
			reminder.OutcomeNotDue:  2,
			reminder.OutcomePaid:    1,
			reminder.OutcomeNoEmail: 1,
		}, report)

		sent := box.messages()
		require.Len(t, sent, 1)
		msg := sent[0]
		assert.Equal(t, "ana@example.com", msg.To)
		assert.Equal(t, "O DAS vence em 2 dias", msg.Subject)
		assert.Equal(t, "das-reminder", msg.Tag)
		assert.Contains(t, msg.HTMLBody, "Olá, Ana!")
		assert.Contains(t, msg.HTMLBody, "O monstro do DAS chega em 2 dias. Prepare-se!")
		assert.Contains(t, msg.HTMLBody, "12/03/2025")
		assert.Contains(t, msg.HTMLBody, "R$ 82,00")
		assert.Contains(t, msg.HTMLBody, `href="https://app.profepj.com.br"`)
	})

	t.Run("claims dedupe repeated runs", func(t *testing.T) {
		t.Parallel()
		store, svc := setup(t)
		box := &outbox{}
		job := newJob(store, svc, box, reminder.WithClaimer(&claims{}))

		_, err := job.RunOnce(context.Background())
		require.NoError(t, err)
		report, err := job.RunOnce(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, report[reminder.OutcomeDuplicate])
		assert.Zero(t, report[reminder.OutcomeSent])
		assert.Len(t, box.messages(), 1)
	})

	t.Run("send failures are counted", func(t *testing.T) {
		t.Parallel()
		store, svc := setup(t)
		box := &outbox{err: errors.New("postmark down")}

		report, err := newJob(store, svc, box).RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report[reminder.OutcomeFailed])
	})
}

func TestRunOnceNextMonth(t *testing.T) {
	t.Parallel()
	store := docstore.NewMemory()
	cfg := ledger.Config{TrialDays: 14, Timezone: "America/Sao_Paulo", EstimatedTax: 82}
	early := time.Date(2026, 10, 2, 15, 0, 0, 0, time.UTC)
	late := time.Date(2026, 10, 30, 15, 0, 0, 0, time.UTC)
	octSvc := ledger.NewService(store, cfg, ledger.WithClock(func() time.Time { return early }))
	lateSvc := ledger.NewService(store, cfg, ledger.WithClock(func() time.Time { return late }))

	ctx := context.Background()
	_, err := octSvc.Signup(ctx, "u1", ledger.SignupInput{
		Name:        "Ana Souza",
		Email:       "ana@example.com",
		DASDueDate:  2,
		Institution: ledger.InstitutionInput{Name: "Colégio Sol", HourlyRate: 80},
	})
	require.NoError(t, err)
	_, err = octSvc.PayCurrent(ctx, "u1")
	require.NoError(t, err)

	box := &outbox{}
	claimer := &claims{}
	job := reminder.New(reminder.Config{DaysBefore: 3}, store, lateSvc, copywriter.Static{}, box,
		reminder.WithClock(func() time.Time { return late }),
		reminder.WithClaimer(claimer),
	)

	report, err := job.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, reminder.Report{reminder.OutcomeSent: 1}, report)

	sent := box.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "O DAS vence em 3 dias", sent[0].Subject)
	assert.Contains(t, sent[0].HTMLBody, "02/11/2026")
	assert.True(t, claimer.keys["reminder:das:u1:2026-11:3"])
}

func TestRun(t *testing.T) {
	t.Parallel()
	store, svc := setup(t)
	box := &outbox{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newJob(store, svc, box).Run(ctx) }()

	require.Eventually(t, func() bool { return len(box.messages()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}

func TestEmailSubject(t *testing.T) {
	t.Parallel()
	for days, want := range map[int]string{1: "O DAS vence amanhã", 3: "O DAS vence em 3 dias"} {
		t.Run(fmt.Sprint(days), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, reminder.EmailData{DaysUntilDue: days}.Subject())
		})
	}
}
