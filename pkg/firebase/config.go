package firebase

type Config struct {
	ProjectID       string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	CredentialsJSON string `env:"FIREBASE_CREDENTIALS_JSON"`
}
