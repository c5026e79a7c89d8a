package email

type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"ola@profepj.com.br"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"suporte@profepj.com.br"`
	// PreviewDir receives rendered emails when Postmark is not configured.
	PreviewDir string `env:"EMAIL_PREVIEW_DIR" envDefault:"./tmp/emails"`
}

// UsePostmark reports whether production delivery is configured.
func (c Config) UsePostmark() bool {
	return c.PostmarkServerToken != ""
}
