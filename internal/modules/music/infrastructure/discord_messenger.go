package infrastructure

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/avsenik/tonbot/internal/modules/music/application/ports"
)

// DiscordMessenger sends plain messages through a live Discord session.
type DiscordMessenger struct {
	session *discordgo.Session
}

// NewDiscordMessenger creates a new DiscordMessenger.
func NewDiscordMessenger(session *discordgo.Session) *DiscordMessenger {
	return &DiscordMessenger{session: session}
}

// Send posts text to a channel.
func (m *DiscordMessenger) Send(channelID snowflake.ID, text string) error {
	if _, err := m.session.ChannelMessageSend(channelID.String(), text); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// DiscordPresence publishes the bot's listening status.
type DiscordPresence struct {
	session *discordgo.Session
}

// NewDiscordPresence creates a new DiscordPresence.
func NewDiscordPresence(session *discordgo.Session) *DiscordPresence {
	return &DiscordPresence{session: session}
}

// SetPresence sets the listening activity, or clears it for "".
func (p *DiscordPresence) SetPresence(text string) error {
	if text == "" {
		return p.session.UpdateGameStatus(0, "")
	}
	return p.session.UpdateListeningStatus(text)
}

// Ensure the adapters implement the ports.
var (
	_ ports.Messenger       = (*DiscordMessenger)(nil)
	_ ports.PresenceUpdater = (*DiscordPresence)(nil)
)
