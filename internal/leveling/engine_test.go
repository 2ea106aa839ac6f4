package leveling

import (
	"context"
	"errors"
	"testing"
	"time"

	"diwan-bot/internal/clock"
	"diwan-bot/internal/guildcfg"
	"diwan-bot/internal/storage"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) clock.Timer { return fakeTimer{} }

type fakeTimer struct{}

func (fakeTimer) Stop() bool { return true }

func newEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	fake := &fakeClock{now: time.Unix(1000, 0)}
	return New(store, fake), fake
}

func levelSnapshot(perMessage int, cooldown time.Duration) *guildcfg.Snapshot {
	return &guildcfg.Snapshot{
		GuildID:         "g1",
		LevelingEnabled: true,
		XPPerMessage:    perMessage,
		XPCooldown:      cooldown,
	}
}

func TestLevelCurve(t *testing.T) {
	if got := XPForLevel(0); got != 100 {
		t.Fatalf("xp_for_level(0) = %d, want 100", got)
	}
	if got := XPForLevel(1); got != 155 {
		t.Fatalf("xp_for_level(1) = %d, want 155", got)
	}
	if got := LevelFromXP(0); got != 0 {
		t.Fatalf("level_from_xp(0) = %d, want 0", got)
	}
	if got := LevelFromXP(99); got != 0 {
		t.Fatalf("level_from_xp(99) = %d, want 0", got)
	}
	if got := LevelFromXP(100); got != 1 {
		t.Fatalf("level_from_xp(100) = %d, want 1", got)
	}
	if got := LevelFromXP(254); got != 1 {
		t.Fatalf("level_from_xp(254) = %d, want 1", got)
	}
	if got := LevelFromXP(255); got != 2 {
		t.Fatalf("level_from_xp(255) = %d, want 2", got)
	}
}

// LevelFromXP must invert the cumulative curve: for every level L the
// cumulative sum boundary maps exactly onto the level step.
func TestLevelInverseProperty(t *testing.T) {
	cumulative := 0
	for level := 0; level < 25; level++ {
		if got := LevelFromXP(cumulative); got != level {
			t.Fatalf("level_from_xp(%d) = %d, want %d", cumulative, got, level)
		}
		cumulative += XPForLevel(level)
		if got := LevelFromXP(cumulative - 1); got != level {
			t.Fatalf("level_from_xp(%d) = %d, want %d", cumulative-1, got, level)
		}
	}
}

func TestLevelMonotonicOnAward(t *testing.T) {
	for xp := 0; xp < 2000; xp += 7 {
		before := LevelFromXP(xp)
		after := LevelFromXP(xp + 15)
		if after < before {
			t.Fatalf("level decreased: %d -> %d at xp %d", before, after, xp)
		}
	}
}

func TestProgressNeverExceedsRequirement(t *testing.T) {
	for xp := 0; xp < 2000; xp++ {
		into, required := Progress(xp)
		if into < 0 || into >= required {
			t.Fatalf("progress out of range at xp=%d: %d/%d", xp, into, required)
		}
	}
}

func TestSevenMessagesReachLevelOneOnce(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()
	snap := levelSnapshot(15, 0)

	var levelUps []*LevelUp
	for i := 0; i < 7; i++ {
		up, err := engine.HandleMessage(ctx, snap, "g1", "u1")
		if err != nil {
			t.Fatalf("award %d: %v", i, err)
		}
		if up != nil {
			levelUps = append(levelUps, up)
		}
	}
	if len(levelUps) != 1 || levelUps[0].Level != 1 {
		t.Fatalf("expected one LevelUp to level 1, got %v", levelUps)
	}

	row, err := engine.Rank(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if row.XP != 105 || row.Level != 1 {
		t.Fatalf("expected xp=105 level=1, got xp=%d level=%d", row.XP, row.Level)
	}

	// 8th message must not fire a second level-up.
	up, err := engine.HandleMessage(ctx, snap, "g1", "u1")
	if err != nil {
		t.Fatalf("8th award: %v", err)
	}
	if up != nil {
		t.Fatalf("unexpected second LevelUp: %+v", up)
	}
}

func TestCooldownLimitsAwards(t *testing.T) {
	engine, fake := newEngine(t)
	ctx := context.Background()
	snap := levelSnapshot(15, 60*time.Second)

	// Bursty messaging within one cooldown window awards once.
	for i := 0; i < 5; i++ {
		if _, err := engine.HandleMessage(ctx, snap, "g1", "u1"); err != nil {
			t.Fatalf("award: %v", err)
		}
		fake.now = fake.now.Add(5 * time.Second)
	}
	row, err := engine.Rank(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if row.XP != 15 {
		t.Fatalf("expected a single award of 15, got %d", row.XP)
	}

	fake.now = fake.now.Add(60 * time.Second)
	if _, err := engine.HandleMessage(ctx, snap, "g1", "u1"); err != nil {
		t.Fatalf("award: %v", err)
	}
	row, _ = engine.Rank(ctx, "g1", "u1")
	if row.XP != 30 {
		t.Fatalf("expected second award after cooldown, got %d", row.XP)
	}
}

func TestLevelingDisabledAwardsNothing(t *testing.T) {
	engine, _ := newEngine(t)
	snap := levelSnapshot(15, 0)
	snap.LevelingEnabled = false

	if up, err := engine.HandleMessage(context.Background(), snap, "g1", "u1"); err != nil || up != nil {
		t.Fatalf("disabled leveling acted: up=%v err=%v", up, err)
	}
	row, _ := engine.Rank(context.Background(), "g1", "u1")
	if row.XP != 0 {
		t.Fatalf("expected no XP, got %d", row.XP)
	}
}

func TestSetXPRecomputesLevel(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()

	level, err := engine.SetXP(ctx, "g1", "u1", 300)
	if err != nil {
		t.Fatalf("setxp: %v", err)
	}
	if level != 2 {
		t.Fatalf("expected level 2 at 300 xp, got %d", level)
	}

	if _, err := engine.SetXP(ctx, "g1", "u1", -1); !errors.Is(err, ErrNegativeXP) {
		t.Fatalf("expected ErrNegativeXP, got %v", err)
	}
}
