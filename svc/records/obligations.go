package records

import (
	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/ledger"
)

type obligationsResponse struct {
	Obligations []ledger.MonthlyObligation `json:"obligations"`
}

func (s *Service) listObligations(ctx handler.Context, _ struct{}) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	list, err := s.ledger.ListObligations(ctx, uid)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(obligationsResponse{Obligations: list})
}

func (s *Service) currentObligation(ctx handler.Context, _ struct{}) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	ob, err := s.ledger.Obligation(ctx, uid, s.ledger.CurrentMonth())
	if err != nil {
		return fail(err)
	}
	return handler.JSON(ob)
}

func (s *Service) payCurrent(ctx handler.Context, _ struct{}) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	ob, err := s.ledger.PayCurrent(ctx, uid)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(ob)
}

type summaryQuery struct {
	Month string `query:"month"`
}

func (s *Service) summary(ctx handler.Context, q summaryQuery) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	sum, err := s.ledger.Summary(ctx, uid, q.Month)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(sum)
}
