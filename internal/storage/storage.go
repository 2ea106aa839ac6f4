package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrConflict marks a unique-constraint violation, e.g. a second open
// ticket for the same user. ErrNotFound marks a missing row.
var (
	ErrConflict = errors.New("storage: conflict")
	ErrNotFound = errors.New("storage: not found")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Single-process model: one connection serializes writes.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

// WithTx opens a transaction, runs fn, commits on success and rolls back
// on error. Every multi-row ticket, XP and warning update goes through it.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) UpsertGuild(ctx context.Context, discordID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guilds (discord_id, name) VALUES (?, ?)
		ON CONFLICT(discord_id) DO UPDATE SET name = excluded.name
	`, discordID, name)
	return err
}

// AutomodConfig is the persisted automod row for one guild.
type AutomodConfig struct {
	GuildID          string
	BannedWords      []string
	BannedLinks      []string
	AllowedLinks     []string
	SpamThreshold    int
	SpamInterval     int
	SpamSimilarity   bool
	MaxMentions      int
	RaidThreshold    int
	RaidInterval     int
	RaidRecovery     int
	ActionType       string
	MuteSeconds      int
	Enabled          bool
	RaidMode         bool
	PrevVerification int
}

func (s *Store) GetAutomodConfig(ctx context.Context, guildID string, defaults AutomodConfig) (AutomodConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT banned_words, banned_links, allowed_links, spam_threshold,
		spam_interval, spam_similarity, max_mentions, raid_threshold,
		raid_interval, raid_recovery, action_type, mute_seconds, is_enabled,
		raid_mode, prev_verification
		FROM automod WHERE guild_id = ?`, guildID)

	result := defaults
	result.GuildID = guildID

	var words, links, allowed string
	var similarity, enabled, raidMode int
	err := row.Scan(
		&words,
		&links,
		&allowed,
		&result.SpamThreshold,
		&result.SpamInterval,
		&similarity,
		&result.MaxMentions,
		&result.RaidThreshold,
		&result.RaidInterval,
		&result.RaidRecovery,
		&result.ActionType,
		&result.MuteSeconds,
		&enabled,
		&raidMode,
		&result.PrevVerification,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return AutomodConfig{}, err
	}
	result.SpamSimilarity = similarity == 1
	result.Enabled = enabled == 1
	result.RaidMode = raidMode == 1
	result.BannedWords = decodeStringList(words)
	result.BannedLinks = decodeStringList(links)
	result.AllowedLinks = decodeStringList(allowed)
	return result, nil
}

func (s *Store) UpsertAutomodConfig(ctx context.Context, cfg AutomodConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO automod (
			guild_id, banned_words, banned_links, allowed_links,
			spam_threshold, spam_interval, spam_similarity, max_mentions,
			raid_threshold, raid_interval, raid_recovery, action_type,
			mute_seconds, is_enabled, raid_mode, prev_verification
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			banned_words = excluded.banned_words,
			banned_links = excluded.banned_links,
			allowed_links = excluded.allowed_links,
			spam_threshold = excluded.spam_threshold,
			spam_interval = excluded.spam_interval,
			spam_similarity = excluded.spam_similarity,
			max_mentions = excluded.max_mentions,
			raid_threshold = excluded.raid_threshold,
			raid_interval = excluded.raid_interval,
			raid_recovery = excluded.raid_recovery,
			action_type = excluded.action_type,
			mute_seconds = excluded.mute_seconds,
			is_enabled = excluded.is_enabled,
			raid_mode = excluded.raid_mode,
			prev_verification = excluded.prev_verification
	`,
		cfg.GuildID,
		encodeStringList(cfg.BannedWords),
		encodeStringList(cfg.BannedLinks),
		encodeStringList(cfg.AllowedLinks),
		cfg.SpamThreshold,
		cfg.SpamInterval,
		boolToInt(cfg.SpamSimilarity),
		cfg.MaxMentions,
		cfg.RaidThreshold,
		cfg.RaidInterval,
		cfg.RaidRecovery,
		cfg.ActionType,
		cfg.MuteSeconds,
		boolToInt(cfg.Enabled),
		boolToInt(cfg.RaidMode),
		cfg.PrevVerification,
	)
	return err
}

// SetRaidMode persists the raid flag and pre-raid verification level so a
// restart can reconcile a pending restore.
func (s *Store) SetRaidMode(ctx context.Context, guildID string, active bool, prevVerification int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO automod (guild_id, raid_mode, prev_verification)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			raid_mode = excluded.raid_mode,
			prev_verification = excluded.prev_verification
	`, guildID, boolToInt(active), prevVerification)
	return err
}

// ListRaidModeGuilds returns guilds whose raid flag survived a shutdown.
func (s *Store) ListRaidModeGuilds(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, prev_verification FROM automod WHERE raid_mode = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var guildID string
		var prev int
		if err := rows.Scan(&guildID, &prev); err != nil {
			return nil, err
		}
		result[guildID] = prev
	}
	return result, rows.Err()
}

// GuildSettings holds the non-automod per-guild configuration.
type GuildSettings struct {
	GuildID         string
	VisaRoleID      string
	VisaIssuerRoles []string
	VisaRevokeRole  string
	TicketCategory  string
	TicketStaffRole string
	AuditChannel    string
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT visa_role_id, visa_issuer_roles, visa_revoke_role,
		ticket_category, ticket_staff_role, audit_channel
		FROM guild_settings WHERE guild_id = ?`, guildID)

	result := GuildSettings{GuildID: guildID}
	var issuers string
	err := row.Scan(
		&result.VisaRoleID,
		&issuers,
		&result.VisaRevokeRole,
		&result.TicketCategory,
		&result.TicketStaffRole,
		&result.AuditChannel,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	result.VisaIssuerRoles = decodeStringList(issuers)
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (
			guild_id, visa_role_id, visa_issuer_roles, visa_revoke_role,
			ticket_category, ticket_staff_role, audit_channel
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			visa_role_id = excluded.visa_role_id,
			visa_issuer_roles = excluded.visa_issuer_roles,
			visa_revoke_role = excluded.visa_revoke_role,
			ticket_category = excluded.ticket_category,
			ticket_staff_role = excluded.ticket_staff_role,
			audit_channel = excluded.audit_channel
	`,
		settings.GuildID,
		settings.VisaRoleID,
		encodeStringList(settings.VisaIssuerRoles),
		settings.VisaRevokeRole,
		settings.TicketCategory,
		settings.TicketStaffRole,
		settings.AuditChannel,
	)
	return err
}

func encodeStringList(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
