package records

import (
	"fmt"
	"net/http"
	"time"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/copywriter"
	"github.com/profepj/profepj/pkg/finance"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/logger"
)

type lessonsQuery struct {
	Month string `query:"month"`
	From  string `query:"from"`
	To    string `query:"to"`
}

// filter turns RFC 3339 bounds into a LessonFilter.
func (q lessonsQuery) filter() (ledger.LessonFilter, error) {
	var f ledger.LessonFilter
	var err error
	if q.From != "" {
		if f.From, err = time.Parse(time.RFC3339, q.From); err != nil {
			return f, fmt.Errorf("%w: from must be RFC 3339", ErrInvalidRange)
		}
	}
	if q.To != "" {
		if f.To, err = time.Parse(time.RFC3339, q.To); err != nil {
			return f, fmt.Errorf("%w: to must be RFC 3339", ErrInvalidRange)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.To.After(f.From) {
		return f, fmt.Errorf("%w: to must be after from", ErrInvalidRange)
	}
	return f, nil
}

type lessonRequest struct {
	ID string `path:"id" json:"-"`
	ledger.LessonInput
}

type lessonsResponse struct {
	Lessons []ledger.Lesson `json:"lessons"`
}

// listLessons filters by month ("yyyy-MM") when given, else by from/to.
func (s *Service) listLessons(ctx handler.Context, q lessonsQuery) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}

	var list []ledger.Lesson
	if q.Month != "" {
		list, err = s.ledger.MonthLessons(ctx, uid, q.Month)
	} else {
		var f ledger.LessonFilter
		if f, err = q.filter(); err == nil {
			list, err = s.ledger.ListLessons(ctx, uid, f)
		}
	}
	if err != nil {
		return fail(err)
	}
	return handler.JSON(lessonsResponse{Lessons: list})
}

func (s *Service) createLesson(ctx handler.Context, req lessonRequest) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	lesson, err := s.ledger.CreateLesson(ctx, uid, req.LessonInput)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(lesson, handler.WithJSONStatus(http.StatusCreated))
}

func (s *Service) updateLesson(ctx handler.Context, req lessonRequest) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	lesson, err := s.ledger.UpdateLesson(ctx, uid, req.ID, req.LessonInput)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(lesson)
}

func (s *Service) deleteLesson(ctx handler.Context, req idParam) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	if err := s.ledger.DeleteLesson(ctx, uid, req.ID); err != nil {
		return fail(err)
	}
	return handler.Empty()
}

type completionResponse struct {
	*ledger.Completion
	Message string `json:"message"`
}

// completeLesson credits the pots and attaches a celebration message.
// Copy failures never fail the request.
func (s *Service) completeLesson(ctx handler.Context, req idParam) handler.Response {
	uid, err := firebase.RequireUser(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	done, err := s.ledger.CompleteLesson(ctx, uid, req.ID)
	if err != nil {
		return fail(err)
	}

	in := copywriter.FeedbackInput{
		Total:  done.Total,
		Pocket: done.Pocket,
		Split:  splitItems(done.Pots),
	}
	if p, err := s.profiles.GetProfile(ctx, uid); err == nil {
		in.UserName = p.Name
	}

	fb, err := s.copy.DopamineFeedback(ctx, in)
	if err != nil {
		s.log.WarnContext(ctx, "feedback copy failed", logger.UserID(uid), logger.Error(err))
		fb, _ = copywriter.Static{}.DopamineFeedback(ctx, in)
	}
	return handler.JSON(completionResponse{Completion: done, Message: fb.Message})
}

func splitItems(shares []finance.Share) []copywriter.SplitItem {
	out := make([]copywriter.SplitItem, 0, len(shares))
	for _, sh := range shares {
		out = append(out, copywriter.SplitItem{Name: sh.Name, Amount: sh.Amount})
	}
	return out
}
