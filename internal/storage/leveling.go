package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// XPRow mirrors one leveling ledger row.
type XPRow struct {
	GuildID         string
	UserID          string
	XP              int
	Level           int
	LastMessageTime time.Time
}

// GetXPRowTx reads a ledger row inside an open transaction. A missing row
// reads as zero values.
func GetXPRowTx(ctx context.Context, tx *sql.Tx, guildID, userID string) (XPRow, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT xp, level, last_message_time FROM leveling
		WHERE guild_id = ? AND user_discord_id = ?
	`, guildID, userID)

	result := XPRow{GuildID: guildID, UserID: userID}
	var last int64
	err := row.Scan(&result.XP, &result.Level, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return XPRow{}, err
	}
	result.LastMessageTime = time.Unix(last, 0)
	return result, nil
}

func PutXPRowTx(ctx context.Context, tx *sql.Tx, row XPRow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO leveling (guild_id, user_discord_id, xp, level, last_message_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_discord_id) DO UPDATE SET
			xp = excluded.xp,
			level = excluded.level,
			last_message_time = excluded.last_message_time
	`, row.GuildID, row.UserID, row.XP, row.Level, row.LastMessageTime.Unix())
	return err
}

func (s *Store) GetXPRow(ctx context.Context, guildID, userID string) (XPRow, error) {
	var result XPRow
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		result, txErr = GetXPRowTx(ctx, tx, guildID, userID)
		return txErr
	})
	return result, err
}

func (s *Store) Leaderboard(ctx context.Context, guildID string, limit int) ([]XPRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_discord_id, xp, level, last_message_time FROM leveling
		WHERE guild_id = ?
		ORDER BY xp DESC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []XPRow
	for rows.Next() {
		row := XPRow{GuildID: guildID}
		var last int64
		if err := rows.Scan(&row.UserID, &row.XP, &row.Level, &last); err != nil {
			return nil, err
		}
		row.LastMessageTime = time.Unix(last, 0)
		result = append(result, row)
	}
	return result, rows.Err()
}

// LevelingConfig is the persisted leveling configuration for one guild.
type LevelingConfig struct {
	GuildID        string
	Enabled        bool
	XPPerMessage   int
	XPCooldown     int
	LevelUpChannel string
	LevelUpMessage string
	RoleRewards    map[int]string
}

func (s *Store) GetLevelingConfig(ctx context.Context, guildID string, defaults LevelingConfig) (LevelingConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT is_enabled, xp_per_message, xp_cooldown, levelup_channel,
		levelup_message, role_rewards
		FROM leveling_config WHERE guild_id = ?`, guildID)

	result := defaults
	result.GuildID = guildID

	var enabled int
	var rewards string
	err := row.Scan(&enabled, &result.XPPerMessage, &result.XPCooldown, &result.LevelUpChannel, &result.LevelUpMessage, &rewards)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return LevelingConfig{}, err
	}
	result.Enabled = enabled == 1
	result.RoleRewards = decodeRoleRewards(rewards)
	return result, nil
}

func (s *Store) UpsertLevelingConfig(ctx context.Context, cfg LevelingConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leveling_config (
			guild_id, is_enabled, xp_per_message, xp_cooldown,
			levelup_channel, levelup_message, role_rewards
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			is_enabled = excluded.is_enabled,
			xp_per_message = excluded.xp_per_message,
			xp_cooldown = excluded.xp_cooldown,
			levelup_channel = excluded.levelup_channel,
			levelup_message = excluded.levelup_message,
			role_rewards = excluded.role_rewards
	`,
		cfg.GuildID,
		boolToInt(cfg.Enabled),
		cfg.XPPerMessage,
		cfg.XPCooldown,
		cfg.LevelUpChannel,
		cfg.LevelUpMessage,
		encodeRoleRewards(cfg.RoleRewards),
	)
	return err
}

func encodeRoleRewards(rewards map[int]string) string {
	if len(rewards) == 0 {
		return "{}"
	}
	byLevel := make(map[string]string, len(rewards))
	for level, roleID := range rewards {
		byLevel[strconv.Itoa(level)] = roleID
	}
	data, err := json.Marshal(byLevel)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeRoleRewards(raw string) map[int]string {
	if raw == "" {
		return nil
	}
	var byLevel map[string]string
	if err := json.Unmarshal([]byte(raw), &byLevel); err != nil {
		return nil
	}
	rewards := make(map[int]string, len(byLevel))
	for key, roleID := range byLevel {
		level, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		rewards[level] = roleID
	}
	return rewards
}
