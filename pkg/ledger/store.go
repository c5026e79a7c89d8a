package ledger

import (
	"context"

	"github.com/profepj/profepj/pkg/finance"
)

// Store persists the per-user records. Save methods upsert by ID; Get and
// Delete return the record's not-found sentinel.
type Store interface {
	// CreateAccount writes the profile, subscription placeholder, first
	// institution and mandatory pots atomically. ErrAccountExists when the
	// profile is already there.
	CreateAccount(ctx context.Context, acc Account) error
	UpdateProfile(ctx context.Context, uid string, upd ProfileUpdate) error

	ListInstitutions(ctx context.Context, uid string) ([]Institution, error)
	GetInstitution(ctx context.Context, uid, id string) (*Institution, error)
	SaveInstitution(ctx context.Context, uid string, inst Institution) error
	DeleteInstitution(ctx context.Context, uid, id string) error

	ListLessons(ctx context.Context, uid string, filter LessonFilter) ([]Lesson, error)
	GetLesson(ctx context.Context, uid, id string) (*Lesson, error)
	SaveLesson(ctx context.Context, uid string, lesson Lesson) error
	DeleteLesson(ctx context.Context, uid, id string) error

	// CompleteLesson marks the lesson completed, credits each share to its
	// pot and adds xp to the profile. ErrLessonAlreadyCompleted when
	// another request got there first.
	CompleteLesson(ctx context.Context, uid, lessonID string, credits []finance.Share, xp int) error

	ListPots(ctx context.Context, uid string) ([]Pot, error)
	GetPot(ctx context.Context, uid, id string) (*Pot, error)
	SavePot(ctx context.Context, uid string, pot Pot) error
	DeletePot(ctx context.Context, uid, id string) error

	ListObligations(ctx context.Context, uid string) ([]MonthlyObligation, error)
	GetObligation(ctx context.Context, uid, monthRef string) (*MonthlyObligation, error)
	SaveObligation(ctx context.Context, uid string, ob MonthlyObligation) error
}
