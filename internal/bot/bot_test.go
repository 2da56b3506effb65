package bot

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestNewBot(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}

	b := NewBot(cfg)

	if b == nil {
		t.Fatal("expected bot to be created, got nil")
	}
	if b.config != cfg {
		t.Error("expected config to be stored")
	}
}

func TestBot_InitModules_CallsInit(t *testing.T) {
	b := NewBot(&Config{DiscordToken: "test-token"})

	initCalled := false
	b.modules = []Module{&trackingStubModule{
		stubModule: stubModule{name: "tracking"},
		initCalled: &initCalled,
	}}

	if err := b.initModules(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !initCalled {
		t.Error("expected Init to be called")
	}
}

func TestBot_InitModules_ReturnsInitError(t *testing.T) {
	b := NewBot(&Config{DiscordToken: "test-token"})

	expectedErr := errors.New("init failed")
	b.modules = []Module{&stubModule{name: "failing", initErr: expectedErr}}

	err := b.initModules()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestBot_LoadModuleConfigs_ReturnsError(t *testing.T) {
	b := NewBot(&Config{DiscordToken: "test-token"})

	expectedErr := errors.New("bad config")
	b.modules = []Module{&configurableStubModule{
		stubModule: stubModule{name: "misconfigured"},
		configErr:  expectedErr,
	}}

	err := b.loadModuleConfigs()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestBot_BuildHandlerMap(t *testing.T) {
	b := NewBot(&Config{DiscordToken: "test-token"})

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error {
		return nil
	}

	b.modules = []Module{
		&stubModule{
			name:     "first",
			handlers: map[string]InteractionHandler{"play": handler},
		},
		&stubModule{
			name:     "second",
			handlers: map[string]InteractionHandler{"bantop": handler},
		},
	}

	b.buildHandlerMap()

	if _, ok := b.handlers["play"]; !ok {
		t.Error("expected play handler to be registered")
	}
	if _, ok := b.handlers["bantop"]; !ok {
		t.Error("expected bantop handler to be registered")
	}
}

func TestBot_CollectCommands(t *testing.T) {
	b := NewBot(&Config{DiscordToken: "test-token"})

	b.modules = []Module{
		&stubModule{
			name: "first",
			commands: []*discordgo.ApplicationCommand{
				{Name: "play", Description: "Play media"},
			},
		},
		&stubModule{
			name: "second",
			commands: []*discordgo.ApplicationCommand{
				{Name: "bantop", Description: "Ban leaderboard"},
			},
		},
	}

	commands := b.collectCommands()

	if len(commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(commands))
	}
	if commands[0].Name != "play" {
		t.Errorf("expected command name %q, got %q", "play", commands[0].Name)
	}
}

// trackingStubModule is a stub that tracks if Init was called
type trackingStubModule struct {
	stubModule
	initCalled *bool
}

func (m *trackingStubModule) Init(deps ModuleDependencies) error {
	*m.initCalled = true
	return m.stubModule.Init(deps)
}

// configurableStubModule is a stub that implements ConfigurableModule
type configurableStubModule struct {
	stubModule
	configErr error
}

func (m *configurableStubModule) LoadConfig() error {
	return m.configErr
}
