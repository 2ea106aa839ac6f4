package storage

import (
	"context"
	"time"
)

// AutomodLog is one persisted moderation action.
type AutomodLog struct {
	ID        int64
	GuildID   string
	UserID    string
	Action    string
	Reason    string
	CreatedAt time.Time
}

func (s *Store) AddAutomodLog(ctx context.Context, log AutomodLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO automod_logs (guild_id, user_id, action, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.Action, log.Reason, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAutomodLogs(ctx context.Context, guildID string, limit int) ([]AutomodLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, action, reason, created_at
		FROM automod_logs
		WHERE guild_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AutomodLog
	for rows.Next() {
		var log AutomodLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.Action, &log.Reason, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) CleanupAutomodLogs(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := s.db.ExecContext(ctx, `DELETE FROM automod_logs WHERE created_at < ?`, cutoff.Unix())
	return err
}
