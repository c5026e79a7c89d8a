package gate

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/profepj/profepj/pkg/subscription"
)

// BlockedData feeds the blocked screen.
type BlockedData struct {
	Access        subscription.Access
	SubscribePath string
	HomePath      string
}

// Message is the explanation shown under the title.
func (d BlockedData) Message() string {
	if d.Access.TrialEnded {
		return "Seu período de teste terminou. Assine agora para continuar usando o Profe PJ!"
	}
	return "Você precisa de uma assinatura ativa para acessar este recurso."
}

// TrialNotice is the days-left line, empty when there is nothing to show.
func (d BlockedData) TrialNotice() string {
	days := d.Access.DaysLeftInTrial
	if !d.Access.IsTrialing || days == nil || *days <= 0 {
		return ""
	}
	return fmt.Sprintf("Você ainda tem %d dias de teste grátis!", *days)
}

// BlockedScreen is the page shown by RequireAccess in blocked-screen mode.
func BlockedScreen(d BlockedData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.write(`<!DOCTYPE html><html lang="pt-BR"><head><meta charset="utf-8">`)
		ew.write(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		ew.write(`<title>Acesso Bloqueado | Profe PJ</title></head><body>`)
		ew.write(`<main class="blocked"><section class="card">`)
		ew.write(`<h1>Acesso Bloqueado</h1>`)
		ew.write(`<p class="description">` + templ.EscapeString(d.Message()) + `</p>`)
		if notice := d.TrialNotice(); notice != "" {
			ew.write(`<div class="trial-notice"><p>` + templ.EscapeString(notice) + `</p></div>`)
		}
		ew.write(`<a class="button primary" href="` + templ.EscapeString(string(templ.URL(d.SubscribePath))) + `">Ver Planos</a>`)
		ew.write(`<a class="button outline" href="` + templ.EscapeString(string(templ.URL(d.HomePath))) + `">Voltar para Início</a>`)
		ew.write(`</section></main></body></html>`)
		return ew.err
	})
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) write(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}
