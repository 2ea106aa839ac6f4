package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"diwan-bot/internal/automod"
	"diwan-bot/internal/guildcfg"
	"diwan-bot/internal/leveling"
	"diwan-bot/internal/modules/audit"
)

const defaultMuteDuration = time.Hour

// dispatchViolation deletes the offending message and applies the guild's
// configured action. Escalation rides on the warning ledger: the third
// warning becomes a mute regardless of the configured action.
func (b *Bot) dispatchViolation(ctx context.Context, snap *guildcfg.Snapshot, msg *discordgo.MessageCreate, violation *automod.Violation) {
	if err := b.session.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil {
		b.logger.Warn("message delete failed",
			zap.String("guild_id", msg.GuildID),
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}

	action := snap.Action
	if action == "" {
		action = "warn"
	}
	b.audit.Log(ctx, violationLevel(action), msg.GuildID, msg.Author.ID, string(violation.Kind), violation.Reason)

	switch action {
	case "warn":
		b.applyWarn(ctx, snap, msg.GuildID, msg.Author.ID, violation.Reason)
	case "mute":
		b.applyMute(ctx, snap, msg.GuildID, msg.Author.ID, violation.Reason)
	case "kick":
		if err := b.session.GuildMemberDeleteWithReason(msg.GuildID, msg.Author.ID, violation.Reason); err != nil {
			b.audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.Author.ID, "action_failed", "kick failed: "+err.Error())
		}
	case "ban":
		if err := b.session.GuildBanCreateWithReason(msg.GuildID, msg.Author.ID, violation.Reason, 1); err != nil {
			b.audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.Author.ID, "action_failed", "ban failed: "+err.Error())
		}
	}
}

func violationLevel(action string) string {
	switch action {
	case "kick", "ban":
		return audit.LevelCrit
	case "mute":
		return audit.LevelWarn
	default:
		return audit.LevelInfo
	}
}

func (b *Bot) applyWarn(ctx context.Context, snap *guildcfg.Snapshot, guildID, userID, reason string) {
	count, escalate, err := b.warnings.Incr(ctx, guildID, userID)
	if err != nil {
		b.logger.Warn("warning increment failed", zap.String("guild_id", guildID), zap.Error(err))
		return
	}

	// DM failures (closed DMs) are expected, not errors.
	if channel, err := b.session.UserChannelCreate(userID); err == nil {
		_, _ = b.session.ChannelMessageSend(channel.ID, fmt.Sprintf(msgWarnedUser, reason))
	}

	if escalate {
		b.audit.Log(ctx, audit.LevelWarn, guildID, userID, "warn_escalation",
			fmt.Sprintf("warning %d reached threshold, muting", count))
		b.applyMute(ctx, snap, guildID, userID, "escalation after repeated warnings")
	}
}

func (b *Bot) applyMute(ctx context.Context, snap *guildcfg.Snapshot, guildID, userID, reason string) {
	duration := snap.MuteDuration
	if duration <= 0 {
		duration = defaultMuteDuration
	}
	until := b.clock.Now().Add(duration)
	if err := b.session.GuildMemberTimeout(guildID, userID, &until); err != nil {
		b.audit.Log(ctx, audit.LevelWarn, guildID, userID, "action_failed", "mute failed: "+err.Error())
		return
	}
	b.audit.Log(ctx, audit.LevelWarn, guildID, userID, "mute",
		fmt.Sprintf("muted for %s: %s", duration, reason))
}

// announceLevelUp posts the level-up message and grants the level's role
// reward when one is configured and the hierarchy allows it.
func (b *Bot) announceLevelUp(ctx context.Context, snap *guildcfg.Snapshot, fallbackChannel string, levelUp *leveling.LevelUp) {
	channelID := snap.LevelUpChannel
	if channelID == "" {
		channelID = fallbackChannel
	}
	template := snap.LevelUpMessage
	if template == "" {
		template = msgDefaultLevelUp
	}
	text := strings.NewReplacer(
		"{user}", "<@"+levelUp.UserID+">",
		"{level}", strconv.Itoa(levelUp.Level),
	).Replace(template)
	_, _ = b.session.ChannelMessageSend(channelID, text)

	roleID := snap.RoleRewards[levelUp.Level]
	if roleID == "" {
		return
	}
	if !b.botOutranks(levelUp.GuildID, levelUp.UserID) {
		b.audit.Log(ctx, audit.LevelWarn, levelUp.GuildID, levelUp.UserID, "permission_denied",
			"role reward skipped: bot role not above member")
		return
	}
	if err := b.session.GuildMemberRoleAdd(levelUp.GuildID, levelUp.UserID, roleID); err != nil {
		b.audit.Log(ctx, audit.LevelWarn, levelUp.GuildID, levelUp.UserID, "action_failed",
			"role reward failed: "+err.Error())
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, levelUp.GuildID, levelUp.UserID, "role_reward",
		fmt.Sprintf("level %d reward granted", levelUp.Level))
}

// botOutranks checks the bot's top role sits strictly above the target's.
func (b *Bot) botOutranks(guildID, targetID string) bool {
	guild, err := b.guild(guildID)
	if err != nil {
		return false
	}
	botID := ""
	if b.session.State != nil && b.session.State.User != nil {
		botID = b.session.State.User.ID
	}
	actor := b.memberForUser(guildID, botID)
	target := b.memberForUser(guildID, targetID)
	return canModify(guild, actor, target)
}
