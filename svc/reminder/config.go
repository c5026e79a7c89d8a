package reminder

import "time"

type Config struct {
	Enabled    bool          `env:"REMINDER_ENABLED" envDefault:"true"`
	Interval   time.Duration `env:"REMINDER_INTERVAL" envDefault:"24h"`
	DaysBefore int           `env:"REMINDER_DAYS_BEFORE" envDefault:"3"`
	// Concurrency bounds the reminders built and sent in parallel.
	Concurrency int    `env:"REMINDER_CONCURRENCY" envDefault:"4"`
	AppURL      string `env:"APP_URL" envDefault:"http://localhost:9002"`
}
