package roles

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"

	"github.com/avsenik/tonbot/internal/bot"
)

func init() {
	bot.Register(&Module{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*Module)(nil)

// Module snapshots each member's roles and nickname and grants them back
// when the member rejoins.
type Module struct {
	config *Config
	store  *Store
}

// Name returns the module name.
func (m *Module) Name() string {
	return "roles"
}

// Commands returns the slash commands for this module. It has none; it works
// entirely off gateway events.
func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return nil
}

// CommandHandlers returns the command handlers for this module.
func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	return nil
}

// EventHandlers returns the event handlers for this module.
func (m *Module) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.GuildCreate) {
			m.handleGuildCreate(event)
		},
		func(s *discordgo.Session, event *discordgo.GuildMemberUpdate) {
			m.handleMemberUpdate(event)
		},
		func(s *discordgo.Session, event *discordgo.GuildMemberAdd) {
			m.handleMemberAdd(s, event)
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

	slog.Info("roles module initialized", "db", m.config.DBPath)
	return nil
}

// Shutdown closes the snapshot store.
func (m *Module) Shutdown() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// handleGuildCreate sweeps the member list delivered with the guild so the
// store covers members whose last change happened while the bot was down.
func (m *Module) handleGuildCreate(event *discordgo.GuildCreate) {
	for _, member := range event.Members {
		if member.User == nil || member.User.Bot {
			continue
		}
		m.snapshot(event.Guild.ID, member)
	}
	slog.Debug("swept guild members", "guild", event.Guild.ID, "members", len(event.Members))
}

func (m *Module) handleMemberUpdate(event *discordgo.GuildMemberUpdate) {
	if event.User == nil || event.User.Bot {
		return
	}
	m.snapshot(event.GuildID, event.Member)
}

// handleMemberAdd grants a rejoining member their stored roles and nickname.
func (m *Module) handleMemberAdd(s *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.User == nil || event.User.Bot {
		return
	}

	rec, err := m.store.Load(event.GuildID, event.User.ID)
	if err != nil {
		slog.Error("failed to load member snapshot",
			"guild", event.GuildID, "user", event.User.ID, "error", err)
		return
	}
	if rec == nil {
		return
	}

	params := &discordgo.GuildMemberParams{}
	if len(rec.Roles) > 0 {
		roles := rec.Roles
		params.Roles = &roles
	}
	if rec.Nickname != "" {
		params.Nick = rec.Nickname
	}
	if params.Roles == nil && params.Nick == "" {
		return
	}

	if _, err := s.GuildMemberEdit(event.GuildID, event.User.ID, params); err != nil {
		slog.Warn("failed to restore member",
			"guild", event.GuildID, "user", event.User.ID, "error", err)
		return
	}

	slog.Info("restored member roles",
		"guild", event.GuildID, "user", event.User.ID, "roles", len(rec.Roles))
}

func (m *Module) snapshot(guildID string, member *discordgo.Member) {
	rec := &MemberRecord{
		Roles:    member.Roles,
		Nickname: member.Nick,
	}
	if err := m.store.Save(guildID, member.User.ID, rec); err != nil {
		slog.Error("failed to save member snapshot",
			"guild", guildID, "user", member.User.ID, "error", err)
	}
}
