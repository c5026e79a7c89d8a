package docstore

// Backend names accepted by STORE_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
)

type Config struct {
	Backend string `env:"STORE_BACKEND" envDefault:"firestore"`
}
