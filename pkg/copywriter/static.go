package copywriter

import (
	"context"
	"fmt"

	"github.com/profepj/profepj/pkg/finance"
)

var _ Generator = Static{}

// Static writes fixed copy from the input. It never fails.
type Static struct{}

func (Static) HomeGreeting(_ context.Context, in GreetingInput) (*Greeting, error) {
	name := displayName(in.UserName)
	g := &Greeting{Title: fmt.Sprintf("Olá, %s!", name)}
	if in.StreakDays > 1 {
		g.Title = fmt.Sprintf("%d dias de ofensiva, %s!", in.StreakDays, name)
	}
	switch {
	case in.MonthlyLessons == 0:
		g.Subtitle = "Bora registrar a primeira aula do mês?"
	case in.MonthlyLessons == 1:
		g.Subtitle = fmt.Sprintf("1 aula concluída e %s faturados este mês.", finance.FormatBRL(in.MonthlyEarnings))
	default:
		g.Subtitle = fmt.Sprintf("%d aulas concluídas e %s faturados este mês.", in.MonthlyLessons, finance.FormatBRL(in.MonthlyEarnings))
	}
	return g, nil
}

func (Static) DopamineFeedback(_ context.Context, in FeedbackInput) (*Feedback, error) {
	msg := fmt.Sprintf("Mandou bem, %s! %s caíram no seu bolso.", displayName(in.UserName), finance.FormatBRL(in.Pocket))
	if len(in.Split) > 0 {
		var saved float64
		for _, s := range in.Split {
			saved += s.Amount
		}
		msg += fmt.Sprintf(" E %s já foram guardados nos potes.", finance.FormatBRL(finance.Round2(saved)))
	}
	return &Feedback{Message: msg}, nil
}

func (Static) DASAlert(_ context.Context, in DASAlertInput) (*DASAlert, error) {
	var msg string
	switch {
	case in.DaysUntilDue < 0:
		msg = fmt.Sprintf("O monstro do DAS escapou há %d dia(s)! Pague logo para evitar juros.", -in.DaysUntilDue)
	case in.DaysUntilDue == 0:
		msg = "Hoje é o dia de derrotar o monstro do DAS!"
	case in.DaysUntilDue == 1:
		msg = "O monstro do DAS chega amanhã. Prepare-se!"
	default:
		msg = fmt.Sprintf("O monstro do DAS chega em %d dias. Prepare-se!", in.DaysUntilDue)
	}
	return &DASAlert{Message: msg}, nil
}
