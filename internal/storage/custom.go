package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// CustomCommand is one guild-defined text command.
type CustomCommand struct {
	GuildID   string
	Name      string
	Response  string
	CreatedBy string
	CreatedAt time.Time
}

func (s *Store) UpsertCustomCommand(ctx context.Context, cmd CustomCommand) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_commands (guild_id, name, response, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, name) DO UPDATE SET
			response = excluded.response,
			created_by = excluded.created_by
	`, cmd.GuildID, cmd.Name, cmd.Response, cmd.CreatedBy, cmd.CreatedAt.Unix())
	return err
}

func (s *Store) DeleteCustomCommand(ctx context.Context, guildID, name string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM custom_commands WHERE guild_id = ? AND name = ?
	`, guildID, name)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *Store) GetCustomCommand(ctx context.Context, guildID, name string) (CustomCommand, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, name, response, created_by, created_at
		FROM custom_commands WHERE guild_id = ? AND name = ?
	`, guildID, name)

	var cmd CustomCommand
	var created int64
	err := row.Scan(&cmd.GuildID, &cmd.Name, &cmd.Response, &cmd.CreatedBy, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CustomCommand{}, ErrNotFound
		}
		return CustomCommand{}, err
	}
	cmd.CreatedAt = time.Unix(created, 0)
	return cmd, nil
}

func (s *Store) ListCustomCommands(ctx context.Context, guildID string) ([]CustomCommand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, name, response, created_by, created_at
		FROM custom_commands WHERE guild_id = ? ORDER BY name
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []CustomCommand
	for rows.Next() {
		var cmd CustomCommand
		var created int64
		if err := rows.Scan(&cmd.GuildID, &cmd.Name, &cmd.Response, &cmd.CreatedBy, &created); err != nil {
			return nil, err
		}
		cmd.CreatedAt = time.Unix(created, 0)
		commands = append(commands, cmd)
	}
	return commands, rows.Err()
}
