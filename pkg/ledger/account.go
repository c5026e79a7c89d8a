package ledger

import (
	"hash/fnv"
	"time"

	"github.com/profepj/profepj/pkg/subscription"
)

// Palette is the set of institution colors.
var Palette = []string{"#34D399", "#F87171", "#60A5FA", "#FBBF24", "#A78BFA"}

// Mandatory pot ids. Every account has both.
const (
	PotVacation   = "ferias"
	PotThirteenth = "13salario"
)

// XPPerLesson is awarded for each completed lesson.
const XPPerLesson = 10

// Account is everything created at signup.
type Account struct {
	Profile      subscription.Profile
	Subscription subscription.Subscription
	Institution  Institution
	Pots         []Pot
}

type SignupInput struct {
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	DASDueDate  int              `json:"dasDueDate"`
	Institution InstitutionInput `json:"institution"`
}

// NewAccount builds the signup records. The trial starts now.
func NewAccount(uid, institutionID string, in SignupInput, now time.Time, trialDays int) Account {
	trialEnd, sub := subscription.NewTrial(now, trialDays)
	return Account{
		Profile: subscription.Profile{
			ID:                 uid,
			Name:               in.Name,
			Email:              in.Email,
			DASDueDate:         in.DASDueDate,
			SubscriptionStatus: subscription.StatusTrialing,
			TrialEndsAt:        &trialEnd,
			CreatedAt:          now,
		},
		Subscription: sub,
		Institution: Institution{
			ID:         institutionID,
			Name:       in.Institution.Name,
			HourlyRate: in.Institution.HourlyRate,
			Color:      ColorFor(in.Institution.Name),
		},
		Pots: DefaultPots(),
	}
}

// DefaultPots are the mandatory pots with their starting goals.
func DefaultPots() []Pot {
	return []Pot{
		{ID: PotVacation, Name: "Férias 🏖️", Type: PotMandatory, Goal: 0, AllocationPercentage: 10},
		{ID: PotThirteenth, Name: "Meu 13º 🎁", Type: PotMandatory, Goal: 1500, AllocationPercentage: 10},
	}
}

// ColorFor picks a stable palette color for a name.
func ColorFor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return Palette[h.Sum32()%uint32(len(Palette))]
}

// Noon returns t's calendar day at 12:00 UTC.
func Noon(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// MonthRef formats t as "yyyy-MM".
func MonthRef(t time.Time) string {
	return t.Format("2006-01")
}

// MonthRange returns [start of month, start of next month) in loc.
func MonthRange(monthRef string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01", monthRef, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}
