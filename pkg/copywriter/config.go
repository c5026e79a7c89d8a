package copywriter

import "time"

type Config struct {
	APIKey      string        `env:"GEMINI_API_KEY"`
	Model       string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	Temperature float32       `env:"GEMINI_TEMPERATURE" envDefault:"0.9"`
	MaxTokens   int32         `env:"GEMINI_MAX_OUTPUT_TOKENS" envDefault:"256"`
	Timeout     time.Duration `env:"AI_TIMEOUT" envDefault:"10s"`
	CacheTTL    time.Duration `env:"AI_CACHE_TTL" envDefault:"6h"`
}

// Enabled reports whether a Gemini key is configured.
func (c Config) Enabled() bool {
	return c.APIKey != ""
}
