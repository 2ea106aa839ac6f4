// Package warnings keeps the per-user warning counter and decides when
// it escalates.
package warnings

import (
	"context"

	"diwan-bot/internal/storage"
)

// DefaultEscalation is the count at which the dispatcher mutes.
const DefaultEscalation = 3

type Ledger struct {
	store     *storage.Store
	threshold int
}

func New(store *storage.Store, threshold int) *Ledger {
	if threshold <= 0 {
		threshold = DefaultEscalation
	}
	return &Ledger{store: store, threshold: threshold}
}

// Incr bumps the counter and reports whether the new count reached the
// escalation threshold.
func (l *Ledger) Incr(ctx context.Context, guildID, userID string) (count int, escalate bool, err error) {
	count, err = l.store.IncrementWarning(ctx, guildID, userID)
	if err != nil {
		return 0, false, err
	}
	return count, count >= l.threshold, nil
}

func (l *Ledger) Get(ctx context.Context, guildID, userID string) (int, error) {
	return l.store.GetWarningCount(ctx, guildID, userID)
}

func (l *Ledger) Reset(ctx context.Context, guildID, userID string) error {
	return l.store.ResetWarnings(ctx, guildID, userID)
}
