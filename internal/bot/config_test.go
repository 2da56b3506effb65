package bot

import (
	"testing"
)

func TestLoadConfig_WithValidToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-abc")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DiscordToken != "token-abc" {
		t.Errorf("expected token %q, got %q", "token-abc", cfg.DiscordToken)
	}
}

func TestLoadConfig_WithEmptyToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for missing token, got nil")
	}
}
