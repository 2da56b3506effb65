package moderation

import "time"

// Config holds the moderation module configuration. An empty Trigger or
// TargetID disables the trigger ban and the protective unban.
type Config struct {
	// DBPath is the sqlite file holding the ban audit log.
	DBPath string `env:"MODERATION_DB_PATH" envDefault:"data/moderation.db"`

	// Trigger is the chat phrase that bans the target, matched
	// case-insensitively as a substring.
	Trigger string `env:"BAN_TRIGGER"`

	// TargetID is the user the trigger bans and the unban hook protects.
	TargetID string `env:"BAN_TARGET_ID"`

	// Cooldown is the minimum gap between trigger bans per guild.
	Cooldown time.Duration `env:"BAN_COOLDOWN" envDefault:"20h"`
}
