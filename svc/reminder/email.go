package reminder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/profepj/profepj/pkg/finance"
)

// EmailData feeds the reminder email.
type EmailData struct {
	Name         string
	Message      string
	DueDate      string
	DaysUntilDue int
	EstimatedTax float64
	AppURL       string
}

// Subject is the email subject line.
func (d EmailData) Subject() string {
	if d.DaysUntilDue == 1 {
		return "O DAS vence amanhã"
	}
	return fmt.Sprintf("O DAS vence em %d dias", d.DaysUntilDue)
}

// Email renders the DAS reminder body.
func Email(d EmailData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="pt-BR"><head><meta charset="utf-8">`)
		b.WriteString(`<title>` + templ.EscapeString(d.Subject()) + `</title></head>`)
		b.WriteString(`<body style="font-family:sans-serif;color:#1f2937">`)
		b.WriteString(`<h1>Olá, ` + templ.EscapeString(d.Name) + `!</h1>`)
		b.WriteString(`<p>` + templ.EscapeString(d.Message) + `</p>`)
		b.WriteString(`<p>Vencimento: <strong>` + templ.EscapeString(d.DueDate) + `</strong>`)
		b.WriteString(` · Valor estimado: <strong>` + templ.EscapeString(finance.FormatBRL(d.EstimatedTax)) + `</strong></p>`)
		b.WriteString(`<p><a href="` + templ.EscapeString(string(templ.URL(d.AppURL))) + `">Abrir o Profe PJ</a></p>`)
		b.WriteString(`</body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
