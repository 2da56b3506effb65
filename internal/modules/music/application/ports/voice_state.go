package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// VoiceStateProvider looks up Discord voice state information.
type VoiceStateProvider interface {
	// GetUserVoiceChannel returns the voice channel the user is currently
	// in, or 0 if they are not in one.
	GetUserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)
}
