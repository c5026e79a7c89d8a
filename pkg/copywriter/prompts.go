package copywriter

import (
	"fmt"
	"strings"

	"github.com/profepj/profepj/pkg/finance"
)

const persona = `Você é o Profe PJ, um assistente animado e acolhedor para professores autônomos no Brasil.
Fale em português do Brasil, de forma curta, positiva e informal, com no máximo um emoji por frase.
Nunca invente números: use apenas os valores informados.`

func greetingPrompt(in GreetingInput) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nCrie uma saudação para a tela inicial do app.\n")
	fmt.Fprintf(&b, "Nome: %s\n", displayName(in.UserName))
	fmt.Fprintf(&b, "Dias seguidos de ofensiva: %d\n", in.StreakDays)
	fmt.Fprintf(&b, "Aulas concluídas no mês: %d\n", in.MonthlyLessons)
	fmt.Fprintf(&b, "Faturamento do mês: %s\n", finance.FormatBRL(in.MonthlyEarnings))
	b.WriteString(`
Exemplos de título: "{{streakDays}} dias de ofensiva, {{userName}}!", "Bora pra mais uma, {{userName}}?"
O subtítulo comenta o progresso do mês em uma frase.
Responda em JSON com os campos "greetingTitle" e "greetingSubtitle".`)
	return b.String()
}

func feedbackPrompt(in FeedbackInput) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nA professora acabou de concluir uma aula e receber o pagamento. Comemore em até duas frases.\n")
	fmt.Fprintf(&b, "Nome: %s\n", displayName(in.UserName))
	fmt.Fprintf(&b, "Valor total da aula: %s\n", finance.FormatBRL(in.Total))
	fmt.Fprintf(&b, "Valor livre no bolso: %s\n", finance.FormatBRL(in.Pocket))
	if len(in.Split) > 0 {
		b.WriteString("Separado automaticamente para os potes:\n")
		for _, s := range in.Split {
			fmt.Fprintf(&b, "- %s: %s\n", s.Name, finance.FormatBRL(s.Amount))
		}
	}
	b.WriteString(`Mencione o valor no bolso e que os potes foram abastecidos.
Responda em JSON com o campo "message".`)
	return b.String()
}

func dasAlertPrompt(in DASAlertInput) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nEscreva um alerta curto sobre o vencimento do DAS do MEI, tratando o imposto como um \"monstro do DAS\" que precisa ser derrotado.\n")
	switch {
	case in.DaysUntilDue < 0:
		fmt.Fprintf(&b, "O DAS está atrasado há %d dia(s).\n", -in.DaysUntilDue)
	case in.DaysUntilDue == 0:
		b.WriteString("O DAS vence hoje.\n")
	default:
		fmt.Fprintf(&b, "Faltam %d dia(s) para o vencimento.\n", in.DaysUntilDue)
	}
	b.WriteString(`Responda em JSON com o campo "alertMessage".`)
	return b.String()
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Profe"
	}
	first, _, _ := strings.Cut(name, " ")
	return first
}
