// Package admin serves the back-office endpoints: user statistics, user
// listing with admin toggling and the subscription overview.
package admin

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/profepj/profepj/pkg/finance"
	"github.com/profepj/profepj/pkg/subscription"
)

// StatusExpired is the synthetic filter value for lapsed users.
const StatusExpired = "expired"

// Stats is the dashboard summary. Counts use the stored status as is; a
// profile without one is counted in UnknownStatusUsers only.
type Stats struct {
	TotalUsers          int     `json:"totalUsers"`
	ActiveUsers         int     `json:"activeUsers"`
	TrialingUsers       int     `json:"trialingUsers"`
	ExpiredUsers        int     `json:"expiredUsers"`
	UnknownStatusUsers  int     `json:"unknownStatusUsers"`
	NewUsersLast7Days   int     `json:"newUsersLast7Days"`
	NewUsersLast30Days  int     `json:"newUsersLast30Days"`
	TotalMRR            float64 `json:"totalMRR"`
	ActiveSubscriptions int     `json:"activeSubscriptions"`
	ChurnRate           float64 `json:"churnRate"`
}

// Expired reports whether p counts as lapsed: canceled, unpaid, or past
// the trial end without an active subscription.
func Expired(p subscription.Profile, now time.Time) bool {
	switch p.SubscriptionStatus {
	case subscription.StatusCanceled, subscription.StatusUnpaid:
		return true
	case subscription.StatusActive:
		return false
	}
	return p.TrialEndsAt != nil && p.TrialEndsAt.Before(now)
}

// ComputeStats aggregates profiles. subs holds the subscription record of
// active users by uid; only records with an amount count toward MRR.
func ComputeStats(profiles []subscription.Profile, subs map[string]*subscription.Subscription, now time.Time) Stats {
	week := now.Add(-7 * 24 * time.Hour)
	month := now.Add(-30 * 24 * time.Hour)

	var st Stats
	var mrrCents int64
	st.TotalUsers = len(profiles)
	for _, p := range profiles {
		switch p.SubscriptionStatus {
		case subscription.StatusActive:
			st.ActiveUsers++
			if sub := subs[p.ID]; sub != nil && sub.Amount > 0 {
				mrrCents += sub.Amount
				st.ActiveSubscriptions++
			}
		case subscription.StatusTrialing:
			st.TrialingUsers++
		case "":
			st.UnknownStatusUsers++
		}
		if Expired(p, now) {
			st.ExpiredUsers++
		}
		if !p.CreatedAt.IsZero() {
			if !p.CreatedAt.Before(week) {
				st.NewUsersLast7Days++
			}
			if !p.CreatedAt.Before(month) {
				st.NewUsersLast30Days++
			}
		}
	}

	st.TotalMRR = finance.FromCents(mrrCents)
	if st.TotalUsers > 0 {
		st.ChurnRate = finance.Round2(float64(st.ExpiredUsers) / float64(st.TotalUsers) * 100)
	}
	return st
}

// FilterUsers keeps profiles matching status (a stored status or
// StatusExpired) and a case-insensitive substring of name or email.
// Empty arguments do not filter.
func FilterUsers(profiles []subscription.Profile, status, search string, now time.Time) []subscription.Profile {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]subscription.Profile, 0, len(profiles))
	for _, p := range profiles {
		switch {
		case status == "":
		case status == StatusExpired:
			if !Expired(p, now) {
				continue
			}
		default:
			if string(p.SubscriptionStatus) != status {
				continue
			}
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Email), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// UserEntry is a profile with its subscription record, or null.
type UserEntry struct {
	subscription.Profile
	Subscription *subscription.Subscription `json:"subscription"`
}

// SubscriptionEntry is one row of the subscription overview.
type SubscriptionEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
	subscription.Subscription
}

// TrialEntryID marks rows synthesized for trialing users without a record.
const TrialEntryID = "trial"

// BuildSubscriptions lists users' subscription records filtered by record
// status, plus a trial row for trialing users without a record. Rows are
// sorted newest first by period start, or trial end when there is none.
func BuildSubscriptions(users []UserEntry, status string) []SubscriptionEntry {
	out := make([]SubscriptionEntry, 0, len(users))
	for _, u := range users {
		switch {
		case u.Subscription != nil:
			if status != "" && string(u.Subscription.Status) != status {
				continue
			}
			out = append(out, SubscriptionEntry{
				ID:           "current",
				UserID:       u.ID,
				UserName:     u.Name,
				UserEmail:    u.Email,
				Subscription: *u.Subscription,
			})
		case u.SubscriptionStatus == subscription.StatusTrialing:
			if status != "" && status != string(subscription.StatusTrialing) {
				continue
			}
			out = append(out, SubscriptionEntry{
				ID:        TrialEntryID,
				UserID:    u.ID,
				UserName:  u.Name,
				UserEmail: u.Email,
				Subscription: subscription.Subscription{
					Status:   subscription.StatusTrialing,
					TrialEnd: u.TrialEndsAt,
				},
			})
		}
	}

	slices.SortStableFunc(out, func(a, b SubscriptionEntry) int {
		return cmp.Compare(sortKey(b), sortKey(a))
	})
	return out
}

func sortKey(e SubscriptionEntry) int64 {
	switch {
	case e.CurrentPeriodStart != nil:
		return e.CurrentPeriodStart.UnixMilli()
	case e.TrialEnd != nil:
		return e.TrialEnd.UnixMilli()
	}
	return 0
}
