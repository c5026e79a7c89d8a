package ledger

import "errors"

var (
	ErrAccountExists          = errors.New("account already exists")
	ErrInstitutionNotFound    = errors.New("institution not found")
	ErrLessonNotFound         = errors.New("lesson not found")
	ErrPotNotFound            = errors.New("pot not found")
	ErrObligationNotFound     = errors.New("monthly obligation not found")
	ErrLessonAlreadyCompleted = errors.New("lesson already completed")
	ErrLessonCancelled        = errors.New("cancelled lessons cannot be completed")
	ErrMandatoryPot           = errors.New("mandatory pots cannot be deleted")
	ErrObligationPaid         = errors.New("monthly obligation already paid")
)
