package records

import (
	"net/http"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/ledger"
)

type idParam struct {
	ID string `path:"id" json:"-"`
}

type institutionRequest struct {
	ID string `path:"id" json:"-"`
	ledger.InstitutionInput
}

type institutionsResponse struct {
	Institutions []ledger.Institution `json:"institutions"`
}

func (s *Service) listInstitutions(ctx handler.Context, _ struct{}) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	list, err := s.ledger.ListInstitutions(ctx, uid)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(institutionsResponse{Institutions: list})
}

func (s *Service) createInstitution(ctx handler.Context, req institutionRequest) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	inst, err := s.ledger.CreateInstitution(ctx, uid, req.InstitutionInput)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(inst, handler.WithJSONStatus(http.StatusCreated))
}

func (s *Service) updateInstitution(ctx handler.Context, req institutionRequest) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	inst, err := s.ledger.UpdateInstitution(ctx, uid, req.ID, req.InstitutionInput)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(inst)
}

func (s *Service) deleteInstitution(ctx handler.Context, req idParam) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	if err := s.ledger.DeleteInstitution(ctx, uid, req.ID); err != nil {
		return fail(err)
	}
	return handler.Empty()
}
