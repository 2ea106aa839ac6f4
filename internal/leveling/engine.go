// Package leveling awards XP on qualifying messages and computes levels
// with a fixed, reproducible curve.
package leveling

import (
	"context"
	"database/sql"
	"errors"

	"diwan-bot/internal/clock"
	"diwan-bot/internal/guildcfg"
	"diwan-bot/internal/storage"
)

// ErrNegativeXP rejects admin overwrites below zero.
var ErrNegativeXP = errors.New("leveling: xp must not be negative")

// LevelUp is emitted when an award crosses a level boundary.
type LevelUp struct {
	GuildID string
	UserID  string
	Level   int
}

type Engine struct {
	store     *storage.Store
	cooldowns *clock.Cooldowns
	clock     clock.Clock
}

func New(store *storage.Store, c clock.Clock) *Engine {
	return &Engine{
		store:     store,
		cooldowns: clock.NewCooldowns(c),
		clock:     c,
	}
}

// HandleMessage awards XP for one qualifying message. Returns a LevelUp
// when the award crossed a level boundary, nil otherwise. The per-user
// cooldown is checked before any storage work.
func (e *Engine) HandleMessage(ctx context.Context, snap *guildcfg.Snapshot, guildID, userID string) (*LevelUp, error) {
	if !snap.LevelingEnabled {
		return nil, nil
	}
	if !e.cooldowns.Allow(guildID+":"+userID, snap.XPCooldown) {
		return nil, nil
	}

	var levelUp *LevelUp
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		row, err := storage.GetXPRowTx(ctx, tx, guildID, userID)
		if err != nil {
			return err
		}
		row.XP += snap.XPPerMessage
		newLevel := LevelFromXP(row.XP)
		crossed := newLevel > row.Level
		row.Level = newLevel
		row.LastMessageTime = e.clock.Now()
		if err := storage.PutXPRowTx(ctx, tx, row); err != nil {
			return err
		}
		if crossed {
			levelUp = &LevelUp{GuildID: guildID, UserID: userID, Level: newLevel}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return levelUp, nil
}

// SetXP overwrites a user's XP and recomputes the level.
func (e *Engine) SetXP(ctx context.Context, guildID, userID string, xp int) (int, error) {
	if xp < 0 {
		return 0, ErrNegativeXP
	}
	level := LevelFromXP(xp)
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.PutXPRowTx(ctx, tx, storage.XPRow{
			GuildID:         guildID,
			UserID:          userID,
			XP:              xp,
			Level:           level,
			LastMessageTime: e.clock.Now(),
		})
	})
	if err != nil {
		return 0, err
	}
	return level, nil
}

func (e *Engine) Rank(ctx context.Context, guildID, userID string) (storage.XPRow, error) {
	return e.store.GetXPRow(ctx, guildID, userID)
}

func (e *Engine) Leaderboard(ctx context.Context, guildID string, limit int) ([]storage.XPRow, error) {
	return e.store.Leaderboard(ctx, guildID, limit)
}
