package music

import "time"

// Config holds the music module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`

	// SearchSource is the Lavalink search prefix for free-text queries.
	SearchSource string `env:"SEARCH_SOURCE" envDefault:"ytsearch"`

	// CollectionsEnabled toggles playlist expansion for URLs that carry a
	// playlist identifier.
	CollectionsEnabled bool `env:"COLLECTIONS_ENABLED" envDefault:"true"`

	// IdleTimeout is how long an empty session keeps its voice connection.
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"5m"`
}
