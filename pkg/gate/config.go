package gate

type Config struct {
	LoginPath     string   `env:"GATE_LOGIN_PATH" envDefault:"/login"`
	SubscribePath string   `env:"GATE_SUBSCRIBE_PATH" envDefault:"/assinatura"`
	HomePath      string   `env:"GATE_HOME_PATH" envDefault:"/"`
	PublicPaths   []string `env:"GATE_PUBLIC_PATHS" envSeparator:"," envDefault:"/login,/cadastro,/_next,/static"`
	ExcludedPaths []string `env:"GATE_EXCLUDED_PATHS" envSeparator:"," envDefault:"/api,/_next/image,/favicon.ico"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		LoginPath:     "/login",
		SubscribePath: "/assinatura",
		HomePath:      "/",
		PublicPaths:   []string{"/login", "/cadastro", "/_next", "/static"},
		ExcludedPaths: []string{"/api", "/_next/image", "/favicon.ico"},
	}
}
