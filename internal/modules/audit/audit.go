package audit

import (
	"context"
	"time"

	"diwan-bot/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Logger records every moderation action: one automod_logs row, one zap
// entry, and an optional channel notification.
type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.AutomodLog)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.AutomodLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, action, reason string) {
	entry := storage.AutomodLog{
		GuildID:   guildID,
		UserID:    userID,
		Action:    action,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	if l.store != nil {
		_ = l.store.AddAutomodLog(ctx, entry)
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("audit",
		zap.String("level", level),
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("action", action),
		zap.String("reason", reason))
}
