// Package config loads process configuration from config.yaml and the
// environment. Per-guild settings live in storage; this file only holds
// the token, paths and the defaults handed to guilds without rows.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string         `yaml:"discord_token"`
	DatabasePath  string         `yaml:"database_path"`
	LogLevel      string         `yaml:"log_level"`
	Health        HealthConfig   `yaml:"health"`
	Thresholds    Thresholds     `yaml:"thresholds"`
	Actions       ActionConfig   `yaml:"actions"`
	Leveling      LevelingConfig `yaml:"leveling"`
	Notifications NotifyConfig   `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Thresholds are the guild defaults used until a guild configures its
// own values with /automod.
type Thresholds struct {
	SpamMessages      int  `yaml:"spam_messages"`
	SpamWindowSeconds int  `yaml:"spam_window_seconds"`
	SpamSimilarity    bool `yaml:"spam_similarity"`
	MaxMentions       int  `yaml:"max_mentions"`
	RaidJoins         int  `yaml:"raid_joins"`
	RaidWindowSeconds int  `yaml:"raid_window_seconds"`
	RaidRecoverySecs  int  `yaml:"raid_recovery_seconds"`
}

type ActionConfig struct {
	Type        string `yaml:"type"`
	MuteMinutes int    `yaml:"mute_minutes"`
	Escalation  int    `yaml:"escalation_warnings"`
}

type LevelingConfig struct {
	Enabled         bool   `yaml:"enabled"`
	XPPerMessage    int    `yaml:"xp_per_message"`
	CooldownSeconds int    `yaml:"cooldown_seconds"`
	LevelUpMessage  string `yaml:"levelup_message"`
}

type NotifyConfig struct {
	AuditToChannel   bool        `yaml:"audit_to_channel"`
	DailySummary     bool        `yaml:"daily_summary"`
	LogRetentionDays int         `yaml:"log_retention_days"`
	EmbedColors      EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
	Success int `yaml:"success"`
}

var validActions = map[string]bool{"warn": true, "mute": true, "kick": true, "ban": true}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/diwan.db",
		LogLevel:     "info",
		Health:       HealthConfig{Enabled: false, Addr: ":8080"},
		Thresholds: Thresholds{
			SpamMessages:      5,
			SpamWindowSeconds: 5,
			SpamSimilarity:    false,
			MaxMentions:       5,
			RaidJoins:         10,
			RaidWindowSeconds: 30,
			RaidRecoverySecs:  600,
		},
		Actions: ActionConfig{Type: "warn", MuteMinutes: 60, Escalation: 3},
		Leveling: LevelingConfig{
			Enabled:         true,
			XPPerMessage:    15,
			CooldownSeconds: 60,
			LevelUpMessage:  "مبروك {user}! وصلت المستوى {level} 🎉",
		},
		Notifications: NotifyConfig{
			AuditToChannel:   true,
			DailySummary:     true,
			LogRetentionDays: 90,
			EmbedColors: EmbedColors{
				Action:  0xF59E0B,
				Warning: 0xEF4444,
				Error:   0xF97316,
				Success: 0x22C55E,
			},
		},
	}
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	if !validActions[cfg.Actions.Type] {
		return fmt.Errorf("actions.type %q must be warn, mute, kick or ban", cfg.Actions.Type)
	}
	if cfg.Thresholds.SpamMessages < 2 {
		return errors.New("thresholds.spam_messages must be at least 2")
	}
	if cfg.Thresholds.RaidJoins < 2 {
		return errors.New("thresholds.raid_joins must be at least 2")
	}
	if cfg.Leveling.XPPerMessage < 1 {
		return errors.New("leveling.xp_per_message must be at least 1")
	}
	if cfg.Notifications.LogRetentionDays < 1 {
		return errors.New("notifications.log_retention_days must be at least 1")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Thresholds.SpamMessages = envInt("SPAM_MESSAGES", cfg.Thresholds.SpamMessages)
	cfg.Thresholds.SpamWindowSeconds = envInt("SPAM_WINDOW_SECONDS", cfg.Thresholds.SpamWindowSeconds)
	cfg.Thresholds.SpamSimilarity = envBool("SPAM_SIMILARITY", cfg.Thresholds.SpamSimilarity)
	cfg.Thresholds.MaxMentions = envInt("MAX_MENTIONS", cfg.Thresholds.MaxMentions)
	cfg.Thresholds.RaidJoins = envInt("RAID_JOINS", cfg.Thresholds.RaidJoins)
	cfg.Thresholds.RaidWindowSeconds = envInt("RAID_WINDOW_SECONDS", cfg.Thresholds.RaidWindowSeconds)
	cfg.Thresholds.RaidRecoverySecs = envInt("RAID_RECOVERY_SECONDS", cfg.Thresholds.RaidRecoverySecs)
	cfg.Actions.Type = envString("ACTION_TYPE", cfg.Actions.Type)
	cfg.Actions.MuteMinutes = envInt("ACTION_MUTE_MINUTES", cfg.Actions.MuteMinutes)
	cfg.Actions.Escalation = envInt("ACTION_ESCALATION_WARNINGS", cfg.Actions.Escalation)
	cfg.Leveling.Enabled = envBool("LEVELING_ENABLED", cfg.Leveling.Enabled)
	cfg.Leveling.XPPerMessage = envInt("XP_PER_MESSAGE", cfg.Leveling.XPPerMessage)
	cfg.Leveling.CooldownSeconds = envInt("XP_COOLDOWN_SECONDS", cfg.Leveling.CooldownSeconds)
	cfg.Notifications.AuditToChannel = envBool("AUDIT_TO_CHANNEL", cfg.Notifications.AuditToChannel)
	cfg.Notifications.DailySummary = envBool("DAILY_SUMMARY", cfg.Notifications.DailySummary)
	cfg.Notifications.LogRetentionDays = envInt("LOG_RETENTION_DAYS", cfg.Notifications.LogRetentionDays)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
	cfg.Notifications.EmbedColors.Success = envInt("EMBED_COLOR_SUCCESS", cfg.Notifications.EmbedColors.Success)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
