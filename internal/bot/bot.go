package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"diwan-bot/internal/antiraid"
	"diwan-bot/internal/automod"
	"diwan-bot/internal/clock"
	"diwan-bot/internal/config"
	"diwan-bot/internal/guildcfg"
	"diwan-bot/internal/leveling"
	"diwan-bot/internal/modules/audit"
	"diwan-bot/internal/storage"
	"diwan-bot/internal/tickets"
	"diwan-bot/internal/warnings"
)

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *storage.Store
	registry *guildcfg.Registry
	audit    *audit.Logger
	clock    clock.Clock
	session  *discordgo.Session

	scorer   *automod.Scorer
	antiraid *antiraid.Engine
	warnings *warnings.Ledger
	leveling *leveling.Engine
	tickets  *tickets.Service

	cancelBackground context.CancelFunc
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, registry *guildcfg.Registry, auditLogger *audit.Logger, c clock.Clock) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		audit:    auditLogger,
		clock:    c,
		session:  session,
		scorer:   automod.NewScorer(),
		antiraid: antiraid.New(c, auditLogger),
		warnings: warnings.New(store, cfg.Actions.Escalation),
		leveling: leveling.New(store, c),
		tickets:  tickets.NewService(store, c, logger),
	}

	b.antiraid.SetPersist(func(ctx context.Context, guildID string, active bool, prevLevel int) {
		if err := store.SetRaidMode(ctx, guildID, active, prevLevel); err != nil {
			logger.Warn("raid mode persist failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	})
	auditLogger.SetNotifier(func(ctx context.Context, entry storage.AutomodLog) {
		if !b.cfg.Notifications.AuditToChannel {
			return
		}
		b.notifyAudit(ctx, entry)
	})

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancelBackground = cancel

	b.reconcileRaidModes(ctx)
	go b.tickets.RunRefresher(ctx, b.guildIDs)
	b.startMaintenance(ctx)

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.cancelBackground != nil {
		b.cancelBackground()
	}
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil || event.Guild.ID == "" {
		return
	}
	ctx := context.Background()
	if err := b.store.UpsertGuild(ctx, event.Guild.ID, event.Guild.Name); err != nil {
		b.logger.Warn("guild upsert failed", zap.String("guild_id", event.Guild.ID), zap.Error(err))
	}
	if _, err := b.registry.Reload(ctx, event.Guild.ID); err != nil {
		b.logger.Warn("snapshot load failed", zap.String("guild_id", event.Guild.ID), zap.Error(err))
	}
	if err := b.tickets.Refresh(ctx, event.Guild.ID); err != nil {
		b.logger.Warn("ticket refresh failed", zap.String("guild_id", event.Guild.ID), zap.Error(err))
	}
}

// onMessageCreate runs the fixed fan-out: automod, then custom commands,
// then XP. A deleted message never earns XP, and a command invocation
// still counts toward the spam window.
func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	snap, err := b.registry.Get(ctx, msg.GuildID)
	if err != nil {
		b.logger.Warn("snapshot fetch failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return
	}

	violation := b.scorer.Check(snap, automod.Message{
		GuildID:         msg.GuildID,
		AuthorID:        msg.Author.ID,
		AuthorIsBot:     msg.Author.Bot,
		Content:         msg.Content,
		MentionCount:    len(msg.Mentions),
		CanCreateInvite: b.canCreateInvite(msg.Author.ID, msg.ChannelID),
	}, b.clock.Now())
	if violation != nil {
		b.dispatchViolation(ctx, snap, msg, violation)
		return
	}

	if strings.HasPrefix(msg.Content, "!") {
		if b.handleCustomCommand(ctx, msg) {
			return
		}
	}

	levelUp, err := b.leveling.HandleMessage(ctx, snap, msg.GuildID, msg.Author.ID)
	if err != nil {
		b.logger.Warn("xp award failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return
	}
	if levelUp != nil {
		b.announceLevelUp(ctx, snap, msg.ChannelID, levelUp)
	}
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	ctx := context.Background()
	snap, err := b.registry.Get(ctx, event.GuildID)
	if err != nil {
		b.logger.Warn("snapshot fetch failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		return
	}

	now := b.clock.Now()
	if created, err := discordgo.SnowflakeTimestamp(event.User.ID); err == nil {
		if age := now.Sub(created); age < antiraid.AccountAgeHint {
			b.audit.Log(ctx, audit.LevelInfo, event.GuildID, event.User.ID, "young_account",
				fmt.Sprintf("account age %s at join", age.Round(time.Hour)))
		}
	}

	if b.antiraid.HandleJoin(event.GuildID, snap.RaidThreshold, snap.RaidInterval, now) {
		b.enterRaidMode(ctx, event.GuildID, snap)
	}
}

func (b *Bot) enterRaidMode(ctx context.Context, guildID string, snap *guildcfg.Snapshot) {
	guild, err := b.guild(guildID)
	if err != nil {
		b.logger.Warn("guild lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	prevLevel := int(guild.VerificationLevel)

	entered := b.antiraid.Enter(ctx, guildID, prevLevel, snap.RaidRecovery, func(restoreLevel int) error {
		return b.setVerificationLevel(guildID, restoreLevel)
	})
	if !entered {
		return
	}
	if err := b.setVerificationLevel(guildID, int(discordgo.VerificationLevelVeryHigh)); err != nil {
		b.audit.Log(ctx, audit.LevelWarn, guildID, "", "raid_mode", "verification raise failed: "+err.Error())
	}
}

func (b *Bot) setVerificationLevel(guildID string, level int) error {
	verification := discordgo.VerificationLevel(level)
	_, err := b.session.GuildEdit(guildID, &discordgo.GuildParams{VerificationLevel: &verification})
	return err
}

// reconcileRaidModes clears raid flags that survived a shutdown and puts
// the stored pre-raid verification level back.
func (b *Bot) reconcileRaidModes(ctx context.Context) {
	pending, err := b.store.ListRaidModeGuilds(ctx)
	if err != nil {
		b.logger.Warn("raid reconciliation failed", zap.Error(err))
		return
	}
	for guildID, prevLevel := range pending {
		if err := b.setVerificationLevel(guildID, prevLevel); err != nil {
			b.audit.Log(ctx, audit.LevelWarn, guildID, "", "raid_restore_failed",
				"startup restore failed: "+err.Error())
		} else {
			b.audit.Log(ctx, audit.LevelInfo, guildID, "", "raid_mode", "verification level restored at startup")
		}
		if err := b.store.SetRaidMode(ctx, guildID, false, 0); err != nil {
			b.logger.Warn("raid flag clear failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
}

func (b *Bot) handleCustomCommand(ctx context.Context, msg *discordgo.MessageCreate) bool {
	name := strings.ToLower(strings.TrimPrefix(strings.Fields(msg.Content)[0], "!"))
	if name == "" {
		return false
	}
	cmd, err := b.store.GetCustomCommand(ctx, msg.GuildID, name)
	if err != nil {
		return false
	}
	_, _ = b.session.ChannelMessageSend(msg.ChannelID, cmd.Response)
	return true
}

func (b *Bot) canCreateInvite(userID, channelID string) bool {
	perms, err := b.session.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionCreateInstantInvite != 0
}

func (b *Bot) guild(guildID string) (*discordgo.Guild, error) {
	guild, err := b.session.State.Guild(guildID)
	if err == nil && guild != nil {
		return guild, nil
	}
	return b.session.Guild(guildID)
}

func (b *Bot) memberForUser(guildID, userID string) *discordgo.Member {
	member, err := b.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member
	}
	member, _ = b.session.GuildMember(guildID, userID)
	return member
}

func (b *Bot) guildIDs() []string {
	if b.session == nil || b.session.State == nil {
		return nil
	}
	ids := make([]string, 0, len(b.session.State.Guilds))
	for _, guild := range b.session.State.Guilds {
		if guild != nil {
			ids = append(ids, guild.ID)
		}
	}
	return ids
}

func (b *Bot) notifyAudit(ctx context.Context, entry storage.AutomodLog) {
	snap, err := b.registry.Get(ctx, entry.GuildID)
	if err != nil || snap.AuditChannel == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title:     "سجل الحماية",
		Color:     b.cfg.Notifications.EmbedColors.Action,
		Timestamp: entry.CreatedAt.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "الحدث", Value: entry.Action, Inline: true},
			{Name: "العضو", Value: mentionOrSystem(entry.UserID), Inline: true},
			{Name: "التفاصيل", Value: entry.Reason, Inline: false},
		},
	}
	_, _ = b.session.ChannelMessageSendEmbed(snap.AuditChannel, embed)
}

func mentionOrSystem(userID string) string {
	if userID == "" {
		return "النظام"
	}
	return "<@" + userID + ">"
}

// startMaintenance runs the daily housekeeping: audit-log retention and
// the optional summary post.
func (b *Bot) startMaintenance(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := b.store.CleanupAutomodLogs(ctx, b.cfg.Notifications.LogRetentionDays); err != nil {
					b.logger.Warn("log cleanup failed", zap.Error(err))
				}
				if b.cfg.Notifications.DailySummary {
					b.sendDailySummary(ctx)
				}
			}
		}
	}()
}

func (b *Bot) sendDailySummary(ctx context.Context) {
	for _, guildID := range b.guildIDs() {
		snap, err := b.registry.Get(ctx, guildID)
		if err != nil || snap.AuditChannel == "" {
			continue
		}
		logs, err := b.store.ListAutomodLogs(ctx, guildID, 200)
		if err != nil {
			continue
		}
		cutoff := b.clock.Now().Add(-24 * time.Hour)
		byAction := make(map[string]int)
		total := 0
		for _, entry := range logs {
			if entry.CreatedAt.Before(cutoff) {
				continue
			}
			byAction[entry.Action]++
			total++
		}
		stats, err := b.tickets.Stats(ctx, guildID)
		if err != nil {
			continue
		}

		var lines []string
		for action, count := range byAction {
			lines = append(lines, fmt.Sprintf("%s: %d", action, count))
		}
		actionsValue := "لا شيء"
		if len(lines) > 0 {
			actionsValue = strings.Join(lines, "\n")
		}
		embed := &discordgo.MessageEmbed{
			Title:     "ملخص اليوم",
			Color:     b.cfg.Notifications.EmbedColors.Action,
			Timestamp: b.clock.Now().Format(time.RFC3339),
			Fields: []*discordgo.MessageEmbedField{
				{Name: "إجراءات الحماية", Value: fmt.Sprintf("%d\n%s", total, actionsValue), Inline: false},
				{Name: "التذاكر المفتوحة", Value: fmt.Sprintf("%d", stats.ByStatus[storage.TicketStatusOpen]), Inline: true},
				{Name: "مجموع التذاكر", Value: fmt.Sprintf("%d", stats.Total), Inline: true},
			},
		}
		_, _ = b.session.ChannelMessageSendEmbed(snap.AuditChannel, embed)
	}
}
