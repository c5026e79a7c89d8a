package subscription

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// Evaluate derives access flags from the profile and the current time.
// It has no side effects. A nil profile fails closed. A trialing profile
// without a trial boundary fails open.
//
// The subscription record is accepted for symmetry with the stored pair,
// but the decision only reads the profile projection.
func Evaluate(profile *Profile, _ *Subscription, now time.Time) Access {
	if profile == nil {
		return Access{NeedsPayment: true}
	}

	status := profile.EffectiveStatus()
	a := Access{
		IsTrialing:  status == StatusTrialing,
		IsActive:    status == StatusActive,
		IsPastDue:   status == StatusPastDue,
		IsCanceled:  status == StatusCanceled || status == StatusUnpaid,
		Status:      status,
		TrialEndsAt: profile.TrialEndsAt,
	}

	if a.IsTrialing && profile.TrialEndsAt != nil {
		a.TrialEnded = !profile.TrialEndsAt.After(now)
		if !a.TrialEnded {
			days := DaysLeft(*profile.TrialEndsAt, now)
			a.DaysLeftInTrial = &days
		}
	}

	// Past due keeps access as a grace period.
	a.HasAccess = (a.IsTrialing && !a.TrialEnded) || a.IsActive || a.IsPastDue
	a.NeedsPayment = (a.IsTrialing && a.TrialEnded) || a.IsCanceled
	return a
}

// DaysLeft rounds the remaining time up to whole days: one hour left is one day.
func DaysLeft(end, now time.Time) int {
	ms := end.Sub(now).Milliseconds()
	return int(math.Ceil(float64(ms) / float64(day.Milliseconds())))
}

// NewTrial returns the trial boundary and the placeholder subscription
// created at signup.
func NewTrial(now time.Time, days int) (time.Time, Subscription) {
	end := now.Add(time.Duration(days) * day)
	return end, Subscription{
		Status:   StatusTrialing,
		TrialEnd: &end,
	}
}
