package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	TicketStatusOpen    = "open"
	TicketStatusClosed  = "closed"
	TicketStatusDeleted = "deleted"
)

// Ticket mirrors one support ticket row.
type Ticket struct {
	ID         int64
	GuildID    string
	ChannelID  string
	UserID     string
	Type       string
	Status     string
	ClaimedBy  string
	CreatedAt  time.Time
	ClaimedAt  *time.Time
	ClosedAt   *time.Time
	ClosedBy   string
	ReopenedAt *time.Time
	ReopenedBy string
	DeletedAt  *time.Time
	DeletedBy  string
	Transcript string
}

// CreateTicket inserts an open ticket. A second open ticket for the same
// (guild, user) trips the partial unique index and returns ErrConflict.
func (s *Store) CreateTicket(ctx context.Context, guildID, channelID, userID, ticketType string, now time.Time) (Ticket, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (guild_id, channel_id, user_id, ticket_type, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, guildID, channelID, userID, ticketType, TicketStatusOpen, now.Unix())
	if err != nil {
		if isConflict(err) {
			return Ticket{}, fmt.Errorf("open ticket exists for user %s: %w", userID, ErrConflict)
		}
		return Ticket{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{
		ID:        id,
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		Type:      ticketType,
		Status:    TicketStatusOpen,
		CreatedAt: now,
	}, nil
}

const ticketColumns = `
	id, guild_id, channel_id, user_id, ticket_type, status,
	COALESCE(claimed_by, ''), created_at, claimed_at, closed_at,
	COALESCE(closed_by, ''), reopened_at, COALESCE(reopened_by, ''),
	deleted_at, COALESCE(deleted_by, ''), COALESCE(transcript, '')`

func scanTicket(row interface{ Scan(...any) error }) (Ticket, error) {
	var t Ticket
	var created int64
	var claimedAt, closedAt, reopenedAt, deletedAt sql.NullInt64
	err := row.Scan(
		&t.ID, &t.GuildID, &t.ChannelID, &t.UserID, &t.Type, &t.Status,
		&t.ClaimedBy, &created, &claimedAt, &closedAt,
		&t.ClosedBy, &reopenedAt, &t.ReopenedBy,
		&deletedAt, &t.DeletedBy, &t.Transcript,
	)
	if err != nil {
		return Ticket{}, err
	}
	t.CreatedAt = time.Unix(created, 0)
	t.ClaimedAt = nullTime(claimedAt)
	t.ClosedAt = nullTime(closedAt)
	t.ReopenedAt = nullTime(reopenedAt)
	t.DeletedAt = nullTime(deletedAt)
	return t, nil
}

func nullTime(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := time.Unix(value.Int64, 0)
	return &t
}

func (s *Store) GetTicketByChannel(ctx context.Context, channelID string) (Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ticketColumns+` FROM tickets WHERE channel_id = ?
		ORDER BY id DESC LIMIT 1
	`, channelID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Ticket{}, ErrNotFound
		}
		return Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) GetTicket(ctx context.Context, id int64) (Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ticketColumns+` FROM tickets WHERE id = ?
	`, id)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Ticket{}, ErrNotFound
		}
		return Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ClaimTicket(ctx context.Context, id int64, staffID string, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tickets SET claimed_by = ?, claimed_at = ?
		WHERE id = ? AND status = ? AND claimed_by IS NULL
	`, staffID, now.Unix(), id, TicketStatusOpen)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *Store) CloseTicket(ctx context.Context, id int64, closedBy, transcript string, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tickets SET status = ?, closed_at = ?, closed_by = ?, transcript = ?
		WHERE id = ? AND status = ?
	`, TicketStatusClosed, now.Unix(), closedBy, transcript, id, TicketStatusOpen)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *Store) ReopenTicket(ctx context.Context, id int64, reopenedBy string, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tickets SET status = ?, reopened_at = ?, reopened_by = ?
		WHERE id = ? AND status = ?
	`, TicketStatusOpen, now.Unix(), reopenedBy, id, TicketStatusClosed)
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("reopen ticket %d: %w", id, ErrConflict)
		}
		return err
	}
	return requireRow(result)
}

func (s *Store) DeleteTicket(ctx context.Context, id int64, deletedBy, transcript string, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tickets SET status = ?, deleted_at = ?, deleted_by = ?, transcript = ?
		WHERE id = ? AND status IN (?, ?)
	`, TicketStatusDeleted, now.Unix(), deletedBy, transcript, id, TicketStatusOpen, TicketStatusClosed)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListOpenTickets(ctx context.Context, guildID string) ([]Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE guild_id = ? AND status = ?
	`, guildID, TicketStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

// SearchTickets filters by any combination of user, type and status.
// Empty filters match everything.
func (s *Store) SearchTickets(ctx context.Context, guildID, userID, ticketType, status string, limit int) ([]Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE guild_id = ?`
	args := []any{guildID}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	if ticketType != "" {
		query += ` AND ticket_type = ?`
		args = append(args, ticketType)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

func collectTickets(rows *sql.Rows) ([]Ticket, error) {
	var tickets []Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// TicketStats aggregates counts by status and by type.
type TicketStats struct {
	ByStatus map[string]int
	ByType   map[string]int
	Total    int
}

func (s *Store) GetTicketStats(ctx context.Context, guildID string) (TicketStats, error) {
	stats := TicketStats{ByStatus: make(map[string]int), ByType: make(map[string]int)}
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, ticket_type, COUNT(*) FROM tickets
		WHERE guild_id = ?
		GROUP BY status, ticket_type
	`, guildID)
	if err != nil {
		return TicketStats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var status, ticketType string
		var count int
		if err := rows.Scan(&status, &ticketType, &count); err != nil {
			return TicketStats{}, err
		}
		stats.ByStatus[status] += count
		stats.ByType[ticketType] += count
		stats.Total += count
	}
	return stats, rows.Err()
}
