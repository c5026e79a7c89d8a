package cookie

import (
	"net/http"
	"time"
)

// Manager reads and writes one named cookie with fixed attributes.
type Manager struct {
	name     string
	defaults Options
}

// New builds a Manager from cfg. Extra options override the config.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.Name == "" {
		return nil, ErrEmptyName
	}
	defaults := Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	defaults = applyOptions(defaults, append(cfg.options(), opts...))
	return &Manager{name: cfg.Name, defaults: defaults}, nil
}

func (m *Manager) Name() string { return m.name }

func (m *Manager) Set(w http.ResponseWriter, value string, opts ...Option) {
	o := applyOptions(m.defaults, opts)
	c := &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   o.MaxAge,
		Secure:   o.Secure,
		HttpOnly: o.HttpOnly,
		SameSite: o.SameSite,
	}
	if o.MaxAge > 0 {
		c.Expires = time.Now().Add(time.Duration(o.MaxAge) * time.Second)
	}
	http.SetCookie(w, c)
}

// Get returns the cookie value. An empty value counts as missing.
func (m *Manager) Get(r *http.Request) (string, error) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return "", ErrCookieNotFound
	}
	return c.Value, nil
}

// Present reports whether the request carries a non-empty cookie.
func (m *Manager) Present(r *http.Request) bool {
	_, err := m.Get(r)
	return err == nil
}

func (m *Manager) Delete(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     m.defaults.Path,
		Domain:   m.defaults.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.defaults.Secure,
		HttpOnly: m.defaults.HttpOnly,
		SameSite: m.defaults.SameSite,
	})
}
