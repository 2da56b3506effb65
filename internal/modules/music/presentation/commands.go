package presentation

import "github.com/bwmarrin/discordgo"

// Commands returns all slash commands for the music module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play media from a URL or search term",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "URL or search term",
					Required:    true,
				},
			},
		},
		{
			Name:        "stop",
			Description: "Stop playback and clear the queue (resume brings it back)",
		},
		{
			Name:        "skip",
			Description: "Skip the current item",
		},
		{
			Name:        "pause",
			Description: "Pause playback",
		},
		{
			Name:        "resume",
			Description: "Resume paused playback or restore the last stopped queue",
		},
		{
			Name:        "queue",
			Description: "Show the current queue",
		},
	}
}
