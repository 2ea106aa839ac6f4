package bot

import (
	"diwan-bot/internal/config"
	"diwan-bot/internal/storage"
)

// AutomodDefaults maps process configuration onto the per-guild automod
// row used until a guild configures its own values.
func AutomodDefaults(cfg config.Config) storage.AutomodConfig {
	return storage.AutomodConfig{
		SpamThreshold:  cfg.Thresholds.SpamMessages,
		SpamInterval:   cfg.Thresholds.SpamWindowSeconds,
		SpamSimilarity: cfg.Thresholds.SpamSimilarity,
		MaxMentions:    cfg.Thresholds.MaxMentions,
		RaidThreshold:  cfg.Thresholds.RaidJoins,
		RaidInterval:   cfg.Thresholds.RaidWindowSeconds,
		RaidRecovery:   cfg.Thresholds.RaidRecoverySecs,
		ActionType:     cfg.Actions.Type,
		MuteSeconds:    cfg.Actions.MuteMinutes * 60,
		Enabled:        true,
	}
}

// LevelingDefaults is the leveling counterpart of AutomodDefaults.
func LevelingDefaults(cfg config.Config) storage.LevelingConfig {
	return storage.LevelingConfig{
		Enabled:        cfg.Leveling.Enabled,
		XPPerMessage:   cfg.Leveling.XPPerMessage,
		XPCooldown:     cfg.Leveling.CooldownSeconds,
		LevelUpMessage: cfg.Leveling.LevelUpMessage,
	}
}

func (b *Bot) automodDefaults(guildID string) storage.AutomodConfig {
	defaults := AutomodDefaults(b.cfg)
	defaults.GuildID = guildID
	return defaults
}
