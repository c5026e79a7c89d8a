package records

import (
	"errors"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/subscription"
)

var ErrInvalidRange = errors.New("invalid lesson range")

func httpError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInstitutionNotFound),
		errors.Is(err, ledger.ErrLessonNotFound),
		errors.Is(err, ledger.ErrPotNotFound),
		errors.Is(err, ledger.ErrObligationNotFound),
		errors.Is(err, subscription.ErrProfileNotFound):
		return errors.Join(handler.ErrNotFound.WithMessage(err.Error()), err)
	case errors.Is(err, ledger.ErrLessonAlreadyCompleted),
		errors.Is(err, ledger.ErrLessonCancelled),
		errors.Is(err, ledger.ErrMandatoryPot),
		errors.Is(err, ledger.ErrObligationPaid):
		return errors.Join(handler.ErrConflict.WithMessage(err.Error()), err)
	case errors.Is(err, ErrInvalidRange):
		return errors.Join(handler.ErrBadRequest.WithMessage(err.Error()), err)
	}
	return err
}

func fail(err error) handler.Response {
	return handler.JSONError(httpError(err))
}
