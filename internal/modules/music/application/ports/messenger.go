package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// Messenger sends plain messages to text channels.
type Messenger interface {
	Send(channelID snowflake.ID, text string) error
}

// PresenceUpdater publishes the bot's "now playing" status.
// An empty string clears the presence.
type PresenceUpdater interface {
	SetPresence(text string) error
}
