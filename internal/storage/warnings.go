package storage

import (
	"context"
	"database/sql"
	"errors"
)

// IncrementWarning bumps the per-user counter and returns the new count.
func (s *Store) IncrementWarning(ctx context.Context, guildID, userID string) (int, error) {
	var count int
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT count FROM warnings WHERE guild_id = ? AND user_id = ?
		`, guildID, userID)
		scanErr := row.Scan(&count)
		if scanErr != nil && !errors.Is(scanErr, sql.ErrNoRows) {
			return scanErr
		}
		count++
		_, err := tx.ExecContext(ctx, `
			INSERT INTO warnings (guild_id, user_id, count) VALUES (?, ?, ?)
			ON CONFLICT(guild_id, user_id) DO UPDATE SET count = excluded.count
		`, guildID, userID, count)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) GetWarningCount(ctx context.Context, guildID, userID string) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT count FROM warnings WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	var count int
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (s *Store) ResetWarnings(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM warnings WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	return err
}
