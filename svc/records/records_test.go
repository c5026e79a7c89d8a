package records_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/pkg/copywriter"
	"github.com/profepj/profepj/pkg/docstore"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/gate"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/subscription"
	"github.com/profepj/profepj/svc/records"
)

// 2025-03-10 09:00 in São Paulo.
var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	h       http.Handler
	store   *docstore.Memory
	account *ledger.Account
}

func setup(t *testing.T, opts ...records.Option) fixture {
	t.Helper()
	store := docstore.NewMemory()
	n := 0
	svc := ledger.NewService(store, ledger.Config{TrialDays: 14, Timezone: "America/Sao_Paulo"},
		ledger.WithClock(func() time.Time { return now }),
		ledger.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
	acc, err := svc.Signup(context.Background(), "u1", ledger.SignupInput{
		Name:        "Ana Souza",
		DASDueDate:  20,
		Institution: ledger.InstitutionInput{Name: "Colégio Sol", HourlyRate: 80},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(firebase.WithIdentity(r.Context(), firebase.Identity{UID: "u1"})))
		})
	})
	r.Mount("/api", records.NewService(svc, store, opts...).Handle())
	return fixture{h: r, store: store, account: acc}
}

func (f fixture) do(t *testing.T, method, target, body string, out any) int {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (f fixture) lesson(t *testing.T, start time.Time, value float64) ledger.Lesson {
	t.Helper()
	var l ledger.Lesson
	body := fmt.Sprintf(`{"institutionId":%q,"startTime":%q,"endTime":%q,"totalValue":%v}`,
		f.account.Institution.ID, start.Format(time.RFC3339), start.Add(90*time.Minute).Format(time.RFC3339), value)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/lessons", body, &l))
	return l
}

func TestInstitutionsEndpoints(t *testing.T) {
	t.Parallel()
	f := setup(t)

	var inst ledger.Institution
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/institutions", `{"name":"Escola Lua","hourlyRate":60}`, &inst))
	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, ledger.ColorFor("Escola Lua"), inst.Color)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/institutions/"+inst.ID,
		`{"name":"Escola Lua","hourlyRate":70,"recessStart":"2025-07-01T03:00:00Z","recessEnd":"2025-07-15T03:00:00Z"}`, &inst))
	assert.InDelta(t, 70.0, inst.HourlyRate, 0.001)
	require.NotNil(t, inst.RecessStart)
	assert.Equal(t, 12, inst.RecessStart.Hour())

	var list struct {
		Institutions []ledger.Institution `json:"institutions"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/institutions", "", &list))
	assert.Len(t, list.Institutions, 2)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/institutions", `{"name":"","hourlyRate":-1}`, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/institutions", `{"name":"X","unknown":1}`, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/api/institutions/missing", `{"name":"X","hourlyRate":1}`, nil))

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/institutions/"+inst.ID, "", nil))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/institutions", "", &list))
	assert.Len(t, list.Institutions, 1)
}

func TestLessonsEndpoints(t *testing.T) {
	t.Parallel()
	f := setup(t)

	derived := f.lesson(t, now, 0)
	assert.InDelta(t, 120.0, derived.TotalValue, 0.001)
	assert.Equal(t, "Colégio Sol", derived.InstitutionName)
	assert.Equal(t, ledger.LessonScheduled, derived.Status)

	f.lesson(t, now.AddDate(0, 1, 0), 100)

	var resp struct {
		Lessons []ledger.Lesson `json:"lessons"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/lessons", "", &resp))
	assert.Len(t, resp.Lessons, 2)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/lessons?month=2025-04", "", &resp))
	require.Len(t, resp.Lessons, 1)
	assert.InDelta(t, 100.0, resp.Lessons[0].TotalValue, 0.001)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/lessons?from=2025-03-01T00:00:00Z&to=2025-03-31T00:00:00Z", "", &resp))
	assert.Len(t, resp.Lessons, 1)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/lessons?from=yesterday", "", nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/lessons?from=2025-03-02T00:00:00Z&to=2025-03-01T00:00:00Z", "", nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/lessons?month=marco", "", nil))

	body := fmt.Sprintf(`{"institutionId":%q,"startTime":%q,"endTime":%q,"totalValue":90,"status":"Cancelled"}`,
		f.account.Institution.ID, now.Format(time.RFC3339), now.Add(time.Hour).Format(time.RFC3339))
	var updated ledger.Lesson
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/lessons/"+derived.ID, body, &updated))
	assert.Equal(t, ledger.LessonCancelled, updated.Status)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/lessons/"+derived.ID, "", nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/lessons/"+derived.ID, "", nil))
}

func TestCompleteLessonEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("splits and celebrates", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		l := f.lesson(t, now, 200)

		var resp struct {
			Total   float64 `json:"total"`
			Pocket  float64 `json:"pocket"`
			XP      int     `json:"xp"`
			Message string  `json:"message"`
			Pots    []struct {
				ID     string  `json:"id"`
				Amount float64 `json:"amount"`
			} `json:"pots"`
			Lesson ledger.Lesson `json:"lesson"`
		}
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/lessons/"+l.ID+"/complete", "", &resp))
		assert.InDelta(t, 200.0, resp.Total, 0.001)
		assert.InDelta(t, 160.0, resp.Pocket, 0.001)
		assert.Equal(t, ledger.XPPerLesson, resp.XP)
		assert.Len(t, resp.Pots, 2)
		assert.Equal(t, ledger.LessonCompleted, resp.Lesson.Status)
		assert.Contains(t, resp.Message, "Ana")

		p, err := f.store.GetProfile(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, ledger.XPPerLesson, p.XPTotal)

		assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/lessons/"+l.ID+"/complete", "", nil))
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/lessons/missing/complete", "", nil))
	})

	t.Run("copy failure falls back", func(t *testing.T) {
		t.Parallel()
		f := setup(t, records.WithCopywriter(brokenCopy{}))
		l := f.lesson(t, now, 100)

		var resp struct {
			Message string `json:"message"`
		}
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/lessons/"+l.ID+"/complete", "", &resp))
		assert.NotEmpty(t, resp.Message)
	})
}

type brokenCopy struct{ copywriter.Static }

func (brokenCopy) DopamineFeedback(context.Context, copywriter.FeedbackInput) (*copywriter.Feedback, error) {
	return nil, errors.New("model unavailable")
}

func TestPotsEndpoints(t *testing.T) {
	t.Parallel()
	f := setup(t)

	var pot ledger.Pot
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/pots", `{"name":"Viagem","goal":3000,"allocationPercentage":5}`, &pot))
	assert.Equal(t, ledger.PotCustom, pot.Type)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/pots/"+pot.ID, `{"name":"Viagem","goal":4000,"allocationPercentage":5}`, &pot))
	assert.InDelta(t, 4000.0, pot.Goal, 0.001)

	var list struct {
		Pots []ledger.Pot `json:"pots"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/pots", "", &list))
	assert.Len(t, list.Pots, 3)

	var body map[string]any
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodDelete, "/api/pots/"+ledger.PotVacation, "", &body))
	assert.Equal(t, ledger.ErrMandatoryPot.Error(), body["error"])
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/pots", `{"name":"X","allocationPercentage":150}`, nil))
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/pots/"+pot.ID, "", nil))
}

func TestObligationsEndpoints(t *testing.T) {
	t.Parallel()
	f := setup(t)

	var ob ledger.MonthlyObligation
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/obligations/current", "", &ob))
	assert.Equal(t, "2025-03", ob.MonthRef)
	assert.Equal(t, ledger.ObligationPending, ob.Status)
	assert.InDelta(t, ledger.DefaultEstimatedTax, ob.EstimatedTaxValue, 0.001)

	l := f.lesson(t, now, 150.5)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/lessons/"+l.ID+"/complete", "", nil))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/obligations/current/pay", "", &ob))
	assert.Equal(t, ledger.ObligationPaid, ob.Status)
	assert.InDelta(t, 150.5, ob.TotalRevenue, 0.001)
	require.NotNil(t, ob.PaymentDate)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/obligations/current/pay", "", nil))

	var list struct {
		Obligations []ledger.MonthlyObligation `json:"obligations"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/obligations", "", &list))
	require.Len(t, list.Obligations, 1)
	assert.Equal(t, "2025-03", list.Obligations[0].ID)
}

func TestSummaryEndpoint(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.lesson(t, now, 80)
	f.lesson(t, now.AddDate(0, 0, 1), 80)

	var sum ledger.Summary
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/summary", "", &sum))
	assert.Equal(t, "2025-03", sum.Month)
	assert.Equal(t, 2, sum.TotalLessons)
	assert.InDelta(t, 160.0, sum.TotalValue, 0.001)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/summary?month=2025-02", "", &sum))
	assert.Zero(t, sum.TotalLessons)
}

func TestGuard(t *testing.T) {
	t.Parallel()
	denied := func(*http.Request) (*subscription.Access, error) {
		return &subscription.Access{NeedsPayment: true, TrialEnded: true}, nil
	}
	f := setup(t, records.WithGuard(gate.RequireAccess(denied, gate.WithJSON())))

	var body map[string]any
	assert.Equal(t, http.StatusPaymentRequired, f.do(t, http.MethodGet, "/api/pots", "", &body))
	assert.Equal(t, "subscription_required", body["code"])
}
