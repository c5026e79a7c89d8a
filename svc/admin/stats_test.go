package admin_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/profepj/profepj/pkg/subscription"
	"github.com/profepj/profepj/svc/admin"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func ahead(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

const day = 24 * time.Hour

func profiles() []subscription.Profile {
	return []subscription.Profile{
		{ID: "active", Name: "Ana Lima", Email: "ana@example.com", SubscriptionStatus: subscription.StatusActive, TrialEndsAt: ago(20 * day), CreatedAt: now.Add(-40 * day)},
		{ID: "trial", Name: "Bruno", Email: "bruno@escola.com", SubscriptionStatus: subscription.StatusTrialing, TrialEndsAt: ahead(5 * day), CreatedAt: now.Add(-2 * day)},
		{ID: "lapsed", Name: "Carla", Email: "carla@example.com", SubscriptionStatus: subscription.StatusTrialing, TrialEndsAt: ago(day), CreatedAt: now.Add(-20 * day)},
		{ID: "canceled", Name: "Davi", Email: "davi@example.com", SubscriptionStatus: subscription.StatusCanceled, CreatedAt: now.Add(-60 * day)},
		{ID: "legacy", Name: "Eva", Email: "EVA@example.com", CreatedAt: now.Add(-7 * day)},
	}
}

func TestExpired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profile subscription.Profile
		want    bool
	}{
		{"canceled", subscription.Profile{SubscriptionStatus: subscription.StatusCanceled}, true},
		{"unpaid", subscription.Profile{SubscriptionStatus: subscription.StatusUnpaid}, true},
		{"active past trial end", subscription.Profile{SubscriptionStatus: subscription.StatusActive, TrialEndsAt: ago(day)}, false},
		{"trial ended", subscription.Profile{SubscriptionStatus: subscription.StatusTrialing, TrialEndsAt: ago(time.Minute)}, true},
		{"past due after trial", subscription.Profile{SubscriptionStatus: subscription.StatusPastDue, TrialEndsAt: ago(day)}, true},
		{"trial running", subscription.Profile{SubscriptionStatus: subscription.StatusTrialing, TrialEndsAt: ahead(day)}, false},
		{"no trial end", subscription.Profile{SubscriptionStatus: subscription.StatusTrialing}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, admin.Expired(tt.profile, now))
		})
	}
}

func TestComputeStats(t *testing.T) {
	t.Parallel()

	t.Run("aggregates", func(t *testing.T) {
		t.Parallel()
		subs := map[string]*subscription.Subscription{
			"active": {Status: subscription.StatusActive, Amount: 2990},
		}

		st := admin.ComputeStats(profiles(), subs, now)

		assert.Equal(t, 5, st.TotalUsers)
		assert.Equal(t, 1, st.ActiveUsers)
		assert.Equal(t, 2, st.TrialingUsers)
		assert.Equal(t, 2, st.ExpiredUsers)
		assert.Equal(t, 1, st.UnknownStatusUsers)
		assert.Equal(t, 2, st.NewUsersLast7Days)
		assert.Equal(t, 3, st.NewUsersLast30Days)
		assert.InDelta(t, 29.90, st.TotalMRR, 0.001)
		assert.Equal(t, 1, st.ActiveSubscriptions)
		assert.InDelta(t, 40.0, st.ChurnRate, 0.001)
	})

	t.Run("active without amount is not counted", func(t *testing.T) {
		t.Parallel()
		subs := map[string]*subscription.Subscription{"active": {Status: subscription.StatusActive}}

		st := admin.ComputeStats(profiles(), subs, now)
		assert.Zero(t, st.TotalMRR)
		assert.Zero(t, st.ActiveSubscriptions)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		st := admin.ComputeStats(nil, nil, now)
		assert.Equal(t, admin.Stats{}, st)
	})

	t.Run("churn rounds to two decimals", func(t *testing.T) {
		t.Parallel()
		ps := []subscription.Profile{
			{ID: "a", SubscriptionStatus: subscription.StatusCanceled},
			{ID: "b", SubscriptionStatus: subscription.StatusActive},
			{ID: "c", SubscriptionStatus: subscription.StatusActive},
		}
		st := admin.ComputeStats(ps, nil, now)
		assert.InDelta(t, 33.33, st.ChurnRate, 0.0001)
	})
}

func TestFilterUsers(t *testing.T) {
	t.Parallel()

	ids := func(ps []subscription.Profile) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Len(t, admin.FilterUsers(profiles(), "", "", now), 5)
	assert.Equal(t, []string{"trial", "lapsed"}, ids(admin.FilterUsers(profiles(), "trialing", "", now)))
	assert.Equal(t, []string{"lapsed", "canceled"}, ids(admin.FilterUsers(profiles(), admin.StatusExpired, "", now)))
	assert.Equal(t, []string{"trial"}, ids(admin.FilterUsers(profiles(), "", "ESCOLA", now)))
	assert.Equal(t, []string{"legacy"}, ids(admin.FilterUsers(profiles(), "", "eva@", now)))
	assert.Equal(t, []string{"active"}, ids(admin.FilterUsers(profiles(), "active", "lima", now)))
	assert.Empty(t, admin.FilterUsers(profiles(), "past_due", "", now))
}

func TestBuildSubscriptions(t *testing.T) {
	t.Parallel()

	ps := profiles()
	users := []admin.UserEntry{
		{Profile: ps[0], Subscription: &subscription.Subscription{Status: subscription.StatusActive, CurrentPeriodStart: ago(3 * day), Amount: 2990}},
		{Profile: ps[1]},
		{Profile: ps[2]},
		{Profile: ps[3], Subscription: &subscription.Subscription{Status: subscription.StatusCanceled, CurrentPeriodStart: ago(90 * day)}},
		{Profile: ps[4]},
	}

	t.Run("all", func(t *testing.T) {
		t.Parallel()
		got := admin.BuildSubscriptions(users, "")
		want := []string{"trial", "lapsed", "active", "canceled"}
		var gotIDs []string
		for _, e := range got {
			gotIDs = append(gotIDs, e.UserID)
		}
		assert.Equal(t, want, gotIDs)

		assert.Equal(t, admin.TrialEntryID, got[0].ID)
		assert.Equal(t, subscription.StatusTrialing, got[0].Status)
		assert.Equal(t, ps[1].TrialEndsAt, got[0].TrialEnd)
		assert.Zero(t, got[0].Amount)
		assert.Equal(t, "current", got[2].ID)
		assert.Equal(t, "Ana Lima", got[2].UserName)
		assert.Equal(t, int64(2990), got[2].Amount)
	})

	t.Run("filter by record status", func(t *testing.T) {
		t.Parallel()
		got := admin.BuildSubscriptions(users, "canceled")
		assert.Len(t, got, 1)
		assert.Equal(t, "canceled", got[0].UserID)

		got = admin.BuildSubscriptions(users, "trialing")
		assert.Len(t, got, 2)
	})
}
