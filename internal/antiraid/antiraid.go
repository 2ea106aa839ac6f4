// Package antiraid watches member joins for bursts and manages the raid
// mode flag with its scheduled, idempotent recovery.
package antiraid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"diwan-bot/internal/clock"
	"diwan-bot/internal/modules/audit"
)

const retryDelay = 30 * time.Second

// AccountAgeHint is the account age under which a join is flagged in the
// audit trail. Informational only, no automated action.
const AccountAgeHint = 7 * 24 * time.Hour

type raidState struct {
	joins     []time.Time
	active    bool
	prevLevel int
	timer     clock.Timer
}

type Engine struct {
	mu     sync.Mutex
	clock  clock.Clock
	audit  *audit.Logger
	states map[string]*raidState

	// persist records flag transitions so a restart can reconcile.
	persist func(ctx context.Context, guildID string, active bool, prevLevel int)
}

func New(c clock.Clock, auditLogger *audit.Logger) *Engine {
	return &Engine{
		clock:  c,
		audit:  auditLogger,
		states: make(map[string]*raidState),
	}
}

func (e *Engine) SetPersist(persist func(ctx context.Context, guildID string, active bool, prevLevel int)) {
	e.persist = persist
}

// HandleJoin records one join and reports whether a raid burst just
// started: the deque holds `threshold` joins, the oldest is younger than
// `interval`, and raid mode is off.
func (e *Engine) HandleJoin(guildID string, threshold int, interval time.Duration, now time.Time) bool {
	if threshold <= 0 || interval <= 0 {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.stateLocked(guildID)
	state.joins = append(state.joins, now)
	if len(state.joins) > threshold {
		state.joins = state.joins[len(state.joins)-threshold:]
	}
	if len(state.joins) < threshold {
		return false
	}
	oldest := state.joins[0]
	return now.Sub(oldest) < interval && !state.active
}

// Active reports the raid flag for a guild.
func (e *Engine) Active(guildID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	state := e.states[guildID]
	return state != nil && state.active
}

// Enter flips raid mode on, remembers the pre-raid verification level and
// schedules the restore callback after the recovery duration. A second
// Enter while active is a no-op.
func (e *Engine) Enter(ctx context.Context, guildID string, prevLevel int, recovery time.Duration, restore func(prevLevel int) error) bool {
	e.mu.Lock()
	state := e.stateLocked(guildID)
	if state.active {
		e.mu.Unlock()
		return false
	}
	state.active = true
	state.prevLevel = prevLevel
	if recovery <= 0 {
		recovery = 10 * time.Minute
	}
	state.timer = e.clock.AfterFunc(recovery, func() {
		e.Restore(context.Background(), guildID, restore)
	})
	e.mu.Unlock()

	if e.persist != nil {
		e.persist(ctx, guildID, true, prevLevel)
	}
	e.audit.Log(ctx, audit.LevelWarn, guildID, "", "raid_mode",
		fmt.Sprintf("raid detected, verification raised, restore in %s", recovery))
	return true
}

// Restore clears the flag and invokes the restore callback with the
// recorded pre-raid level. Idempotent: a cleared flag means no action.
// A failing callback is retried once after 30 seconds; the flag stays
// cleared either way and the failure is audited.
func (e *Engine) Restore(ctx context.Context, guildID string, restore func(prevLevel int) error) {
	e.mu.Lock()
	state := e.states[guildID]
	if state == nil || !state.active {
		e.mu.Unlock()
		return
	}
	state.active = false
	prevLevel := state.prevLevel
	if state.timer != nil {
		state.timer.Stop()
		state.timer = nil
	}
	e.mu.Unlock()

	if e.persist != nil {
		e.persist(ctx, guildID, false, 0)
	}

	if restore == nil {
		return
	}
	if err := restore(prevLevel); err != nil {
		e.audit.Log(ctx, audit.LevelWarn, guildID, "", "raid_restore_failed",
			fmt.Sprintf("restore failed, retrying in %s: %v", retryDelay, err))
		e.clock.AfterFunc(retryDelay, func() {
			if retryErr := restore(prevLevel); retryErr != nil {
				e.audit.Log(context.Background(), audit.LevelWarn, guildID, "", "raid_restore_failed",
					fmt.Sprintf("restore retry failed: %v", retryErr))
				return
			}
			e.audit.Log(context.Background(), audit.LevelInfo, guildID, "", "raid_mode", "verification level restored")
		})
		return
	}
	e.audit.Log(ctx, audit.LevelInfo, guildID, "", "raid_mode", "verification level restored")
}

func (e *Engine) stateLocked(guildID string) *raidState {
	state := e.states[guildID]
	if state == nil {
		state = &raidState{}
		e.states[guildID] = state
	}
	return state
}
