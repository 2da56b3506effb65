package moderation

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"

	"github.com/avsenik/tonbot/internal/bot"
)

func init() {
	bot.Register(&Module{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*Module)(nil)

// leaderboardSize is how many instigators bantop lists.
const leaderboardSize = 10

// Embed colors.
const (
	colorInfo  = 0x3498DB
	colorError = 0xE74C3C
)

// Module implements the trigger ban, the protective unban and the ban
// leaderboard.
type Module struct {
	config *Config
	store  *Store
}

// Name returns the module name.
func (m *Module) Name() string {
	return "moderation"
}

// Commands returns the slash commands for this module.
func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "bantop",
			Description: "Show who has triggered the most bans",
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"bantop": m.HandleBanTop,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *Module) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.MessageCreate) {
			m.handleMessage(s, event)
		},
		func(s *discordgo.Session, event *discordgo.GuildBanAdd) {
			m.handleBanAdd(s, event)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *Module) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *Module) Init(deps bot.ModuleDependencies) error {
	store, err := OpenStore(m.config.DBPath)
	if err != nil {
		return err
	}
	m.store = store

	if m.config.Trigger == "" || m.config.TargetID == "" {
		slog.Info("moderation module initialized, trigger ban disabled")
	} else {
		slog.Info("moderation module initialized", "cooldown", m.config.Cooldown)
	}
	return nil
}

// Shutdown closes the ban database.
func (m *Module) Shutdown() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// handleMessage bans the target when the trigger phrase appears in chat,
// gated by the per-guild cooldown.
func (m *Module) handleMessage(s *discordgo.Session, event *discordgo.MessageCreate) {
	if m.config.Trigger == "" || m.config.TargetID == "" {
		return
	}
	if event.GuildID == "" || event.Author == nil || event.Author.Bot {
		return
	}
	if !strings.Contains(strings.ToLower(event.Content), strings.ToLower(m.config.Trigger)) {
		return
	}

	last, err := m.store.LastBan(event.GuildID)
	if err != nil {
		slog.Error("failed to read ban cooldown", "guild", event.GuildID, "error", err)
		return
	}

	if remaining := m.config.Cooldown - time.Since(last); !last.IsZero() && remaining > 0 {
		reply := fmt.Sprintf("Not yet. Try again in %s.", remaining.Round(time.Minute))
		if _, err := s.ChannelMessageSend(event.ChannelID, reply); err != nil {
			slog.Warn("failed to send cooldown reply", "channel", event.ChannelID, "error", err)
		}
		return
	}

	reason := "Triggered by " + event.Author.Username
	if err := s.GuildBanCreateWithReason(event.GuildID, m.config.TargetID, reason, 0); err != nil {
		slog.Error("failed to ban target",
			"guild", event.GuildID, "target", m.config.TargetID, "error", err)
		return
	}

	if err := m.store.RecordBan(event.GuildID, event.Author.ID, time.Now()); err != nil {
		slog.Error("failed to record ban", "guild", event.GuildID, "error", err)
	}

	slog.Info("trigger ban executed",
		"guild", event.GuildID, "instigator", event.Author.ID)
}

// handleBanAdd lifts any ban of the protected target, after sending them an
// invite so they can come back.
func (m *Module) handleBanAdd(s *discordgo.Session, event *discordgo.GuildBanAdd) {
	if m.config.TargetID == "" || event.User.ID != m.config.TargetID {
		return
	}

	if invite := m.createInvite(s, event.GuildID); invite != "" {
		m.sendInvite(s, event.User.ID, invite)
	}

	if err := s.GuildBanDelete(event.GuildID, event.User.ID); err != nil {
		slog.Error("failed to lift ban",
			"guild", event.GuildID, "user", event.User.ID, "error", err)
		return
	}

	slog.Info("lifted ban of protected user", "guild", event.GuildID, "user", event.User.ID)
}

// createInvite creates a single-use invite on the guild's first text channel.
func (m *Module) createInvite(s *discordgo.Session, guildID string) string {
	channels, err := s.GuildChannels(guildID)
	if err != nil {
		slog.Warn("failed to list channels for invite", "guild", guildID, "error", err)
		return ""
	}

	for _, channel := range channels {
		if channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		invite, err := s.ChannelInviteCreate(channel.ID, discordgo.Invite{
			MaxAge:  0,
			MaxUses: 1,
		})
		if err != nil {
			slog.Warn("failed to create invite",
				"guild", guildID, "channel", channel.ID, "error", err)
			continue
		}
		return "https://discord.gg/" + invite.Code
	}
	return ""
}

func (m *Module) sendInvite(s *discordgo.Session, userID, invite string) {
	dm, err := s.UserChannelCreate(userID)
	if err != nil {
		slog.Warn("failed to open DM for invite", "user", userID, "error", err)
		return
	}
	if _, err := s.ChannelMessageSend(dm.ID, "Come back: "+invite); err != nil {
		slog.Warn("failed to DM invite", "user", userID, "error", err)
	}
}

// HandleBanTop handles the /bantop command.
func (m *Module) HandleBanTop(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	counts, err := m.store.TopInstigators(i.GuildID, leaderboardSize)
	if err != nil {
		slog.Error("failed to load ban leaderboard", "guild", i.GuildID, "error", err)
		return r.Respond(&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{
					{
						Description: "Failed to load the leaderboard.",
						Color:       colorError,
					},
				},
			},
		})
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Ban leaderboard",
					Description: formatLeaderboard(counts),
					Color:       colorInfo,
				},
			},
		},
	})
}

func formatLeaderboard(counts []BanCount) string {
	if len(counts) == 0 {
		return "No bans recorded yet."
	}

	var b strings.Builder
	for rank, bc := range counts {
		noun := "bans"
		if bc.Count == 1 {
			noun = "ban"
		}
		fmt.Fprintf(&b, "%d. <@%s>: %d %s\n", rank+1, bc.InstigatorID, bc.Count, noun)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
