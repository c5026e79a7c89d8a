package gate

import (
	"net/http"
	"strings"

	"github.com/profepj/profepj/pkg/cookie"
	"github.com/profepj/profepj/pkg/metrics"
)

// Route redirects requests without a session cookie to the login page.
// It does not verify the token or look at the subscription.
func Route(sessions *cookie.Manager, cfg Config) func(http.Handler) http.Handler {
	if sessions == nil {
		panic("gate: cookie manager is required")
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if hasAnyPrefix(path, cfg.ExcludedPaths) || hasAnyPrefix(path, cfg.PublicPaths) {
				next.ServeHTTP(w, r)
				return
			}
			if !sessions.Present(r) {
				metrics.IncGateDecision("route", "redirect")
				target := *r.URL
				target.Path, target.RawPath = cfg.LoginPath, ""
				http.Redirect(w, r, target.RequestURI(), http.StatusTemporaryRedirect)
				return
			}
			metrics.IncGateDecision("route", "allow")
			next.ServeHTTP(w, r)
		})
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
