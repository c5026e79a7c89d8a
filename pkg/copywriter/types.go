package copywriter

import "context"

// Generator turns structured input into display copy.
type Generator interface {
	HomeGreeting(ctx context.Context, in GreetingInput) (*Greeting, error)
	DopamineFeedback(ctx context.Context, in FeedbackInput) (*Feedback, error)
	DASAlert(ctx context.Context, in DASAlertInput) (*DASAlert, error)
}

// Flow names, used as metric labels and cache key prefixes.
const (
	FlowGreeting = "greeting"
	FlowFeedback = "feedback"
	FlowDASAlert = "das_alert"
)

type GreetingInput struct {
	UserName        string  `json:"userName"`
	StreakDays      int     `json:"streakDays"`
	MonthlyLessons  int     `json:"monthlyLessons"`
	MonthlyEarnings float64 `json:"monthlyEarnings"`
}

type Greeting struct {
	Title    string `json:"greetingTitle"`
	Subtitle string `json:"greetingSubtitle"`
}

// SplitItem is one pot credit in a lesson payout.
type SplitItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type FeedbackInput struct {
	UserName string      `json:"userName"`
	Total    float64     `json:"total"`
	Pocket   float64     `json:"pocket"`
	Split    []SplitItem `json:"split"`
}

type Feedback struct {
	Message string `json:"message"`
}

type DASAlertInput struct {
	DaysUntilDue int `json:"daysUntilDue"`
}

type DASAlert struct {
	Message string `json:"alertMessage"`
}
