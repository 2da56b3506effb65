package roles

// Config holds the roles module configuration.
type Config struct {
	// DBPath is the directory holding the member snapshot store.
	DBPath string `env:"ROLES_DB_PATH" envDefault:"data/roles"`
}
