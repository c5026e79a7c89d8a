package records

import (
	"net/http"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/ledger"
)

type potRequest struct {
	ID string `path:"id" json:"-"`
	ledger.PotInput
}

type potsResponse struct {
	Pots []ledger.Pot `json:"pots"`
}

func (s *Service) listPots(ctx handler.Context, _ struct{}) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	pots, err := s.ledger.ListPots(ctx, uid)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(potsResponse{Pots: pots})
}

func (s *Service) createPot(ctx handler.Context, req potRequest) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	pot, err := s.ledger.CreatePot(ctx, uid, req.PotInput)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(pot, handler.WithJSONStatus(http.StatusCreated))
}

func (s *Service) updatePot(ctx handler.Context, req potRequest) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	pot, err := s.ledger.UpdatePot(ctx, uid, req.ID, req.PotInput)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(pot)
}

func (s *Service) deletePot(ctx handler.Context, req idParam) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	if err := s.ledger.DeletePot(ctx, uid, req.ID); err != nil {
		return fail(err)
	}
	return handler.Empty()
}
