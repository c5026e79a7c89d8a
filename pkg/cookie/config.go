package cookie

import "net/http"

type Config struct {
	Name     string        `env:"SESSION_COOKIE_NAME" envDefault:"firebase-auth-token"`
	Path     string        `env:"SESSION_COOKIE_PATH" envDefault:"/"`
	Domain   string        `env:"SESSION_COOKIE_DOMAIN" envDefault:""`
	MaxAge   int           `env:"SESSION_COOKIE_MAX_AGE" envDefault:"86400"`
	Secure   bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	HttpOnly bool          `env:"SESSION_COOKIE_HTTP_ONLY" envDefault:"true"`
	SameSite http.SameSite `env:"SESSION_COOKIE_SAME_SITE" envDefault:"2"` // 2 = SameSiteLaxMode
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		Name:     "firebase-auth-token",
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c Config) options() []Option {
	opts := make([]Option, 0, 6)
	if c.Path != "" {
		opts = append(opts, WithPath(c.Path))
	}
	if c.Domain != "" {
		opts = append(opts, WithDomain(c.Domain))
	}
	if c.MaxAge != 0 {
		opts = append(opts, WithMaxAge(c.MaxAge))
	}
	opts = append(opts, WithSecure(c.Secure), WithHTTPOnly(c.HttpOnly))
	if c.SameSite != 0 {
		opts = append(opts, WithSameSite(c.SameSite))
	}
	return opts
}
