package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertAutomodConfig(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := AutomodConfig{
		GuildID:       "g1",
		BannedWords:   []string{"badword"},
		BannedLinks:   []string{"bad.com"},
		SpamThreshold: 5,
		SpamInterval:  5,
		MaxMentions:   5,
		RaidThreshold: 10,
		RaidInterval:  30,
		RaidRecovery:  600,
		ActionType:    "mute",
		MuteSeconds:   3600,
		Enabled:       true,
	}
	if err := store.UpsertAutomodConfig(ctx, cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cfg.ActionType = "ban"
	if err := store.UpsertAutomodConfig(ctx, cfg); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetAutomodConfig(ctx, "g1", AutomodConfig{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ActionType != "ban" {
		t.Fatalf("expected action ban, got %q", got.ActionType)
	}
	if len(got.BannedWords) != 1 || got.BannedWords[0] != "badword" {
		t.Fatalf("unexpected banned words: %v", got.BannedWords)
	}
}

func TestAutomodConfigDefaults(t *testing.T) {
	store := newTestStore(t)
	defaults := AutomodConfig{SpamThreshold: 7, ActionType: "warn", Enabled: true}
	got, err := store.GetAutomodConfig(context.Background(), "missing", defaults)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SpamThreshold != 7 || got.ActionType != "warn" || !got.Enabled {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestDuplicateOpenTicketConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	first, err := store.CreateTicket(ctx, "g1", "c1", "u1", "player_report", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == 0 || first.Status != TicketStatusOpen {
		t.Fatalf("unexpected ticket: %+v", first)
	}

	if _, err := store.CreateTicket(ctx, "g1", "c2", "u1", "health", now); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// A different user or guild may still open.
	if _, err := store.CreateTicket(ctx, "g1", "c3", "u2", "health", now); err != nil {
		t.Fatalf("other user: %v", err)
	}
	if _, err := store.CreateTicket(ctx, "g2", "c4", "u1", "health", now); err != nil {
		t.Fatalf("other guild: %v", err)
	}
}

func TestTicketLifecycleRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	ticket, err := store.CreateTicket(ctx, "g1", "c1", "u1", "feedback", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.ClaimTicket(ctx, ticket.ID, "staff1", now); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// Second claim must not overwrite.
	if err := store.ClaimTicket(ctx, ticket.ID, "staff2", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected claim rejection, got %v", err)
	}

	if err := store.CloseTicket(ctx, ticket.ID, "staff1", "[t] u1: hi", now); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err := store.GetTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != TicketStatusClosed || got.Transcript != "[t] u1: hi" || got.ClaimedBy != "staff1" {
		t.Fatalf("unexpected row after close: %+v", got)
	}

	// User can open a new ticket once the old one is closed.
	if _, err := store.CreateTicket(ctx, "g1", "c9", "u1", "health", now); err != nil {
		t.Fatalf("create after close: %v", err)
	}

	if err := store.DeleteTicket(ctx, ticket.ID, "staff1", "[t] u1: hi", now); err != nil {
		t.Fatalf("delete closed: %v", err)
	}
	got, err = store.GetTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	if got.Status != TicketStatusDeleted {
		t.Fatalf("expected deleted, got %q", got.Status)
	}
}

func TestReopenBlockedByNewOpenTicket(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old, err := store.CreateTicket(ctx, "g1", "c1", "u1", "feedback", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CloseTicket(ctx, old.ID, "staff1", "", now); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := store.CreateTicket(ctx, "g1", "c2", "u1", "health", now); err != nil {
		t.Fatalf("second create: %v", err)
	}
	if err := store.ReopenTicket(ctx, old.ID, "staff1", now); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on reopen, got %v", err)
	}
}

func TestWarningsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		count, err := store.IncrementWarning(ctx, "g1", "u1")
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
	}

	if err := store.ResetWarnings(ctx, "g1", "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	count, err := store.GetWarningCount(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 after reset, got %d", count)
	}
}

func TestRoleRewardsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := LevelingConfig{
		GuildID:      "g1",
		Enabled:      true,
		XPPerMessage: 15,
		XPCooldown:   60,
		RoleRewards:  map[int]string{5: "r5", 10: "r10"},
	}
	if err := store.UpsertLevelingConfig(ctx, cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := store.GetLevelingConfig(ctx, "g1", LevelingConfig{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RoleRewards[5] != "r5" || got.RoleRewards[10] != "r10" {
		t.Fatalf("unexpected rewards: %v", got.RoleRewards)
	}
}

func TestCustomCommands(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cmd := CustomCommand{GuildID: "g1", Name: "rules", Response: "read them", CreatedBy: "u1", CreatedAt: time.Now()}
	if err := store.UpsertCustomCommand(ctx, cmd); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := store.GetCustomCommand(ctx, "g1", "rules")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Response != "read them" {
		t.Fatalf("unexpected response: %q", got.Response)
	}
	if err := store.DeleteCustomCommand(ctx, "g1", "rules"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetCustomCommand(ctx, "g1", "rules"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRaidModePersistence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetRaidMode(ctx, "g1", true, 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	pending, err := store.ListRaidModeGuilds(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if prev, ok := pending["g1"]; !ok || prev != 2 {
		t.Fatalf("unexpected pending: %v", pending)
	}
	if err := store.SetRaidMode(ctx, "g1", false, 0); err != nil {
		t.Fatalf("clear: %v", err)
	}
	pending, err = store.ListRaidModeGuilds(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending guilds, got %v", pending)
	}
}
