package subscription

import (
	"strings"
	"time"
)

// Status is the billing state of a user, shared by the profile projection
// and the subscription record.
type Status string

const (
	StatusTrialing   Status = "trialing"
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusUnpaid     Status = "unpaid"
	StatusIncomplete Status = "incomplete"
)

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled, StatusUnpaid, StatusIncomplete:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus maps a provider status string onto the enum. Statuses with no
// equivalent become StatusIncomplete, so nothing outside the enum is stored.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trialing":
		return StatusTrialing
	case "active":
		return StatusActive
	case "past_due":
		return StatusPastDue
	case "canceled", "cancelled":
		return StatusCanceled
	case "unpaid", "paused":
		return StatusUnpaid
	default:
		return StatusIncomplete
	}
}

// Profile is the per-user document. SubscriptionStatus is a cached
// projection of the subscription record's status.
type Profile struct {
	ID                 string     `json:"id" firestore:"-" bson:"_id"`
	Name               string     `json:"name" firestore:"name" bson:"name"`
	Email              string     `json:"email" firestore:"email" bson:"email"`
	DASDueDate         int        `json:"dasDueDate" firestore:"dasDueDate" bson:"das_due_date"`
	StreakDays         int        `json:"streakDays" firestore:"streakDays" bson:"streak_days"`
	XPTotal            int        `json:"xpTotal" firestore:"xpTotal" bson:"xp_total"`
	CustomerID         string     `json:"stripeCustomerId,omitempty" firestore:"stripeCustomerId,omitempty" bson:"customer_id,omitempty"`
	TrialEndsAt        *time.Time `json:"trialEndsAt,omitempty" firestore:"trialEndsAt,omitempty" bson:"trial_ends_at,omitempty"`
	SubscriptionStatus Status     `json:"subscriptionStatus,omitempty" firestore:"subscriptionStatus,omitempty" bson:"subscription_status,omitempty"`
	CreatedAt          time.Time  `json:"createdAt" firestore:"createdAt" bson:"created_at"`
	IsAdmin            bool       `json:"isAdmin,omitempty" firestore:"isAdmin,omitempty" bson:"is_admin,omitempty"`
}

// EffectiveStatus is the status consumers act on: a missing value counts
// as trialing. Admin aggregates read SubscriptionStatus directly instead.
func (p *Profile) EffectiveStatus() Status {
	if p.SubscriptionStatus == "" {
		return StatusTrialing
	}
	return p.SubscriptionStatus
}

// Subscription mirrors the provider's subscription. There is at most one per
// user, stored as the "current" record and overwritten wholesale.
type Subscription struct {
	ProviderSubscriptionID string     `json:"stripeSubscriptionId,omitempty" firestore:"stripeSubscriptionId,omitempty" bson:"provider_subscription_id,omitempty"`
	PriceID                string     `json:"stripePriceId,omitempty" firestore:"stripePriceId,omitempty" bson:"price_id,omitempty"`
	Status                 Status     `json:"status" firestore:"status" bson:"status"`
	CurrentPeriodStart     *time.Time `json:"currentPeriodStart,omitempty" firestore:"currentPeriodStart,omitempty" bson:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `json:"currentPeriodEnd,omitempty" firestore:"currentPeriodEnd,omitempty" bson:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `json:"cancelAtPeriodEnd" firestore:"cancelAtPeriodEnd" bson:"cancel_at_period_end"`
	TrialEnd               *time.Time `json:"trialEnd,omitempty" firestore:"trialEnd,omitempty" bson:"trial_end,omitempty"`
	// Amount is the recurring price in minor units (centavos).
	Amount   int64  `json:"amount" firestore:"amount" bson:"amount"`
	Currency string `json:"currency,omitempty" firestore:"currency,omitempty" bson:"currency,omitempty"`
}

// Access is the set of derived flags the gates act on.
type Access struct {
	HasAccess       bool       `json:"hasAccess"`
	IsTrialing      bool       `json:"isTrialing"`
	IsActive        bool       `json:"isActive"`
	IsPastDue       bool       `json:"isPastDue"`
	IsCanceled      bool       `json:"isCanceled"`
	TrialEnded      bool       `json:"trialEnded"`
	NeedsPayment    bool       `json:"needsPayment"`
	DaysLeftInTrial *int       `json:"daysLeftInTrial"`
	Status          Status     `json:"status,omitempty"`
	TrialEndsAt     *time.Time `json:"trialEndsAt,omitempty"`
}
