package presentation

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/avsenik/tonbot/internal/bot"
	"github.com/avsenik/tonbot/internal/modules/music/application"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	player *application.Player
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(player *application.Player) *CommandHandlers {
	return &CommandHandlers{player: player}
}

// HandlePlay handles the /play command. Resolution can take longer than the
// interaction ack window, so the response is deferred and the outcome sent
// as a follow-up.
func (h *CommandHandlers) HandlePlay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return respondError(r, "Invalid channel")
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	if err := respondDeferred(r); err != nil {
		return err
	}

	output, err := h.player.Play(ctx, application.PlayInput{
		GuildID:        guildID,
		UserID:         userID,
		ReplyChannelID: channelID,
		Query:          query,
	})
	if err != nil {
		return r.Followup(err.Error())
	}

	return r.Followup(playReply(output))
}

// playReply picks the reply for a completed play request.
func playReply(output *application.PlayOutput) string {
	switch {
	case output.CollectionTitle != "":
		return fmt.Sprintf("Added **%d** items from **%s** to the queue.",
			output.CollectionCount, output.CollectionTitle)
	case output.QueuedTitle != "":
		return fmt.Sprintf("Added **%s** to the queue.", output.QueuedTitle)
	case output.StartedTitle != "":
		return fmt.Sprintf("Playing **%s**.", output.StartedTitle)
	default:
		return "Added to the queue."
	}
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.player.Stop(ctx, application.StopInput{GuildID: guildID}); err != nil {
		return respondError(r, err.Error())
	}

	return respondSuccess(r, "Stopped playback.")
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	output, err := h.player.Skip(ctx, application.SkipInput{GuildID: guildID})
	if err != nil {
		return respondError(r, err.Error())
	}

	return respondSuccess(r, fmt.Sprintf("Skipped **%s**.", output.SkippedTitle))
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.player.Pause(ctx, application.PauseInput{GuildID: guildID}); err != nil {
		return respondError(r, err.Error())
	}

	return respondSuccess(r, "Paused playback.")
}

// HandleResume handles the /resume command. Restoring a stopped queue joins
// voice and reloads the stream, which can outlast the ack window, so this is
// deferred like play.
func (h *CommandHandlers) HandleResume(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return respondError(r, "Invalid channel")
	}

	if err := respondDeferred(r); err != nil {
		return err
	}

	output, err := h.player.Resume(ctx, application.ResumeInput{
		GuildID:        guildID,
		UserID:         userID,
		ReplyChannelID: channelID,
	})
	if err != nil {
		return r.Followup(err.Error())
	}

	switch {
	case output.Restored && output.ResumedTitle != "":
		return r.Followup(fmt.Sprintf("Resuming **%s**.", output.ResumedTitle))
	case output.ResumedTitle != "":
		return r.Followup(fmt.Sprintf("Resumed **%s**.", output.ResumedTitle))
	default:
		return r.Followup("Resumed playback.")
	}
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	listing := h.player.QueueList(application.QueueListInput{GuildID: guildID})

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: listing,
		},
	})
}

func respondDeferred(r bot.Responder) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func respondSuccess(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: message,
					Color:       colorSuccess,
				},
			},
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: message,
					Color:       colorError,
				},
			},
		},
	})
}
