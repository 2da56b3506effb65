package music

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"

	"github.com/avsenik/tonbot/internal/bot"
	"github.com/avsenik/tonbot/internal/modules/music/application"
	"github.com/avsenik/tonbot/internal/modules/music/infrastructure"
	"github.com/avsenik/tonbot/internal/modules/music/presentation"
)

func init() {
	bot.Register(&Module{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*Module)(nil)

// Module provides media playback commands.
type Module struct {
	config          *Config
	player          *application.Player
	commandHandlers *presentation.CommandHandlers
	lavalinkAdapter *infrastructure.LavalinkAdapter
}

// Name returns the module name.
func (m *Module) Name() string {
	return "music"
}

// Commands returns the slash commands for this module.
func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return presentation.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":   m.commandHandlers.HandlePlay,
		"stop":   m.commandHandlers.HandleStop,
		"skip":   m.commandHandlers.HandleSkip,
		"pause":  m.commandHandlers.HandlePause,
		"resume": m.commandHandlers.HandleResume,
		"queue":  m.commandHandlers.HandleQueue,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *Module) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			if m.lavalinkAdapter != nil {
				m.lavalinkAdapter.OnVoiceServerUpdate(event)
			}
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			if m.lavalinkAdapter != nil {
				m.lavalinkAdapter.OnVoiceStateUpdate(event)
			}
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
	if deps.Session == nil {
		// Allows the module to load in tests; the handlers fail at runtime
		// if actually invoked.
		slog.Warn("music module initialized without session, playback disabled")
		m.commandHandlers = presentation.NewCommandHandlers(nil)
		return nil
	}

	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(deps.Session, infrastructure.LavalinkConfig{
		Address:      m.config.LavalinkAddress,
		Password:     m.config.LavalinkPassword,
		SearchPrefix: m.config.SearchSource,
	})
	if err != nil {
		return err
	}
	m.lavalinkAdapter = lavalinkAdapter

	resolver := application.NewResolver(lavalinkAdapter, m.config.CollectionsEnabled)

	m.player = application.NewPlayer(
		resolver,
		lavalinkAdapter,
		infrastructure.NewVoiceStateProvider(deps.Session),
		infrastructure.NewDiscordMessenger(deps.Session),
		infrastructure.NewDiscordPresence(deps.Session),
		m.config.IdleTimeout,
	)

	m.commandHandlers = presentation.NewCommandHandlers(m.player)

	slog.Info("music module initialized with Lavalink")

	return nil
}

// Shutdown cleans up module resources.
func (m *Module) Shutdown() error {
	if m.player != nil {
		m.player.Shutdown(context.Background())
	}
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Link().Close()
	}
	return nil
}
