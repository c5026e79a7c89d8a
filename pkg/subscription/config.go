package subscription

import (
	"net/url"
	"strings"
)

// Config holds provider-independent billing settings.
type Config struct {
	Provider         string `env:"BILLING_PROVIDER" envDefault:"stripe"`
	PriceID          string `env:"BILLING_PRICE_ID"`
	TrialDays        int    `env:"SUBSCRIPTION_TRIAL_DAYS" envDefault:"14"`
	AppURL           string `env:"APP_URL" envDefault:"http://localhost:9002"`
	SuccessPath      string `env:"BILLING_SUCCESS_PATH" envDefault:"/assinatura/sucesso"`
	CancelPath       string `env:"BILLING_CANCEL_PATH" envDefault:"/assinatura/cancelado"`
	PortalReturnPath string `env:"BILLING_PORTAL_RETURN_PATH" envDefault:"/perfil"`
}

// SuccessURL carries the provider's session placeholder so the success page
// can look the session up.
func (c Config) SuccessURL() string {
	return c.link(c.SuccessPath) + "?session_id={CHECKOUT_SESSION_ID}"
}

func (c Config) CancelURL() string {
	return c.link(c.CancelPath)
}

func (c Config) PortalReturnURL() string {
	return c.link(c.PortalReturnPath)
}

func (c Config) link(path string) string {
	base := strings.TrimRight(c.AppURL, "/")
	if u, err := url.Parse(base); err == nil && u.Scheme != "" {
		base = u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/")
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
