package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadRequiresToken(t *testing.T) {
	setEnv(t, "DISCORD_TOKEN", "")
	setEnv(t, "CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestLoadDefaultsAndEnvOverlay(t *testing.T) {
	setEnv(t, "DISCORD_TOKEN", "token123")
	setEnv(t, "CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	setEnv(t, "SPAM_MESSAGES", "7")
	setEnv(t, "LEVELING_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Thresholds.SpamMessages != 7 {
		t.Fatalf("env overlay ignored: %d", cfg.Thresholds.SpamMessages)
	}
	if cfg.Leveling.Enabled {
		t.Fatal("env overlay did not disable leveling")
	}
	if cfg.Thresholds.RaidJoins != 10 || cfg.Thresholds.RaidWindowSeconds != 30 {
		t.Fatalf("raid defaults wrong: %+v", cfg.Thresholds)
	}
	if cfg.Actions.Type != "warn" || cfg.Actions.Escalation != 3 {
		t.Fatalf("action defaults wrong: %+v", cfg.Actions)
	}
	// Matches the schema default of 3600 seconds.
	if cfg.Actions.MuteMinutes != 60 {
		t.Fatalf("default mute should be one hour, got %d minutes", cfg.Actions.MuteMinutes)
	}
}

func TestLoadYAMLThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("log_level: debug\nthresholds:\n  spam_messages: 4\n  max_mentions: 8\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	setEnv(t, "DISCORD_TOKEN", "token123")
	setEnv(t, "CONFIG_PATH", path)
	setEnv(t, "SPAM_MESSAGES", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("yaml ignored: %q", cfg.LogLevel)
	}
	if cfg.Thresholds.MaxMentions != 8 {
		t.Fatalf("yaml mentions ignored: %d", cfg.Thresholds.MaxMentions)
	}
	if cfg.Thresholds.SpamMessages != 6 {
		t.Fatalf("env should override yaml: %d", cfg.Thresholds.SpamMessages)
	}
}

func TestLoadRejectsBadAction(t *testing.T) {
	setEnv(t, "DISCORD_TOKEN", "token123")
	setEnv(t, "CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	setEnv(t, "ACTION_TYPE", "quarantine")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown action type")
	}
}
