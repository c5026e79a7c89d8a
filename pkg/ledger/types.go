package ledger

import (
	"time"
)

type LessonStatus string

const (
	LessonScheduled LessonStatus = "Scheduled"
	LessonCompleted LessonStatus = "Completed"
	LessonCancelled LessonStatus = "Cancelled"
)

type PotType string

const (
	PotMandatory PotType = "Mandatory"
	PotCustom    PotType = "Custom"
)

type ObligationStatus string

const (
	ObligationPending ObligationStatus = "Pending"
	ObligationPaid    ObligationStatus = "Paid"
)

// Institution is a school or client the teacher bills by the hour.
// Recess dates are stored at noon UTC so they survive timezone shifts.
type Institution struct {
	ID          string     `json:"id" firestore:"-" bson:"-"`
	Name        string     `json:"name" firestore:"name" bson:"name"`
	HourlyRate  float64    `json:"hourlyRate" firestore:"hourlyRate" bson:"hourly_rate"`
	Color       string     `json:"color" firestore:"color" bson:"color"`
	RecessStart *time.Time `json:"recessStart,omitempty" firestore:"recessStart,omitempty" bson:"recess_start,omitempty"`
	RecessEnd   *time.Time `json:"recessEnd,omitempty" firestore:"recessEnd,omitempty" bson:"recess_end,omitempty"`
}

// InRecess reports whether t falls on a recess day.
func (i Institution) InRecess(t time.Time) bool {
	if i.RecessStart == nil || i.RecessEnd == nil {
		return false
	}
	day := Noon(t)
	return !day.Before(*i.RecessStart) && !day.After(*i.RecessEnd)
}

type Lesson struct {
	ID              string       `json:"id" firestore:"-" bson:"-"`
	InstitutionID   string       `json:"institutionId" firestore:"institutionId" bson:"institution_id"`
	InstitutionName string       `json:"institutionName" firestore:"institutionName" bson:"institution_name"`
	StartTime       time.Time    `json:"startTime" firestore:"startTime" bson:"start_time"`
	EndTime         time.Time    `json:"endTime" firestore:"endTime" bson:"end_time"`
	TotalValue      float64      `json:"totalValue" firestore:"totalValue" bson:"total_value"`
	Status          LessonStatus `json:"status" firestore:"status" bson:"status"`
	Turma           string       `json:"turma,omitempty" firestore:"turma,omitempty" bson:"turma,omitempty"`
	Disciplina      string       `json:"disciplina,omitempty" firestore:"disciplina,omitempty" bson:"disciplina,omitempty"`
}

// Hours is the lesson duration in hours.
func (l Lesson) Hours() float64 {
	return l.EndTime.Sub(l.StartTime).Hours()
}

// Pot is a savings envelope that receives a percentage of each completed lesson.
type Pot struct {
	ID                   string  `json:"id" firestore:"-" bson:"-"`
	Name                 string  `json:"name" firestore:"name" bson:"name"`
	Type                 PotType `json:"type" firestore:"type" bson:"type"`
	Balance              float64 `json:"balance" firestore:"virtualBalance" bson:"balance"`
	Goal                 float64 `json:"goal" firestore:"goal" bson:"goal"`
	AllocationPercentage float64 `json:"allocationPercentage" firestore:"allocationPercentage" bson:"allocation_percentage"`
}

// MonthlyObligation is the DAS payment for one month, keyed "yyyy-MM".
type MonthlyObligation struct {
	ID                string           `json:"id" firestore:"-" bson:"-"`
	MonthRef          string           `json:"monthRef" firestore:"monthRef" bson:"month_ref"`
	Status            ObligationStatus `json:"status" firestore:"status" bson:"status"`
	PaymentDate       *time.Time       `json:"paymentDate,omitempty" firestore:"paymentDate,omitempty" bson:"payment_date,omitempty"`
	TotalRevenue      float64          `json:"totalRevenue" firestore:"totalRevenue" bson:"total_revenue"`
	EstimatedTaxValue float64          `json:"estimatedTaxValue" firestore:"estimatedTaxValue" bson:"estimated_tax_value"`
}

// LessonFilter bounds a lesson listing by start time, [From, To).
// Zero bounds are open.
type LessonFilter struct {
	From time.Time
	To   time.Time
}

func (f LessonFilter) Match(l Lesson) bool {
	if !f.From.IsZero() && l.StartTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !l.StartTime.Before(f.To) {
		return false
	}
	return true
}

// Summary aggregates a month of lessons.
type Summary struct {
	Month        string  `json:"month"`
	TotalLessons int     `json:"totalLessons"`
	TotalValue   float64 `json:"totalValue"`
}

// ProfileUpdate patches the editable profile fields. Nil fields are kept.
type ProfileUpdate struct {
	Name       *string
	DASDueDate *int
}
