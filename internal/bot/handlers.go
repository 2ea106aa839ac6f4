package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"diwan-bot/internal/guildcfg"
	"diwan-bot/internal/leveling"
	"diwan-bot/internal/modules/audit"
	"diwan-bot/internal/storage"
	"diwan-bot/internal/tickets"
)

// requirement is the declarative gate a command or button declares; the
// router evaluates it before the handler runs.
type requirement int

const (
	requireNone requirement = iota
	requireAdmin
	requireIssuer
	requireRevoker
	requireStaff
)

var commandRequirements = map[string]requirement{
	"automod":       requireAdmin,
	"automodstatus": requireAdmin,
	"rank":          requireNone,
	"leaderboard":   requireNone,
	"setxp":         requireAdmin,
	"warnings":      requireNone,
	"clearwarnings": requireAdmin,
	"setup-tickets": requireAdmin,
	"ticket-stats":  requireAdmin,
	"ticket-search": requireAdmin,
	"custom":        requireAdmin,
	"settings":      requireAdmin,
	"مقبول":         requireIssuer,
	"مرفوض":         requireRevoker,
}

var componentRequirements = map[string]requirement{
	"ticket_open":   requireNone,
	"ticket_claim":  requireStaff,
	"ticket_close":  requireNone, // opener or staff, checked in the handler
	"ticket_reopen": requireStaff,
	"ticket_delete": requireStaff,
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx := context.Background()

	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		b.routeCommand(ctx, interaction)
	case discordgo.InteractionMessageComponent:
		b.routeComponent(ctx, interaction)
	}
}

func (b *Bot) routeCommand(ctx context.Context, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID == "" {
		b.respond(interaction, msgGuildOnly, true)
		return
	}
	snap, err := b.registry.Get(ctx, interaction.GuildID)
	if err != nil {
		b.logger.Warn("snapshot fetch failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(interaction, msgFailed, true)
		return
	}

	data := interaction.ApplicationCommandData()
	if !b.allowed(snap, interaction, commandRequirements[data.Name]) {
		b.respond(interaction, msgNoPermission, true)
		return
	}

	switch data.Name {
	case "automod":
		b.handleAutomod(ctx, interaction, data.Options)
	case "automodstatus":
		b.handleAutomodStatus(ctx, snap, interaction)
	case "rank":
		b.handleRank(ctx, interaction, data.Options)
	case "leaderboard":
		b.handleLeaderboard(ctx, interaction)
	case "setxp":
		b.handleSetXP(ctx, interaction, data.Options)
	case "warnings":
		b.handleWarnings(ctx, interaction, data.Options, false)
	case "clearwarnings":
		b.handleWarnings(ctx, interaction, data.Options, true)
	case "setup-tickets":
		b.handleSetupTickets(interaction)
	case "ticket-stats":
		b.handleTicketStats(ctx, interaction)
	case "ticket-search":
		b.handleTicketSearch(ctx, interaction, data.Options)
	case "custom":
		b.handleCustom(ctx, interaction, data.Options)
	case "settings":
		b.handleSettings(ctx, interaction, data.Options)
	case "مقبول":
		b.handleVisa(ctx, snap, interaction, data.Options, true)
	case "مرفوض":
		b.handleVisa(ctx, snap, interaction, data.Options, false)
	default:
		b.respond(interaction, msgFailed, true)
	}
}

func (b *Bot) routeComponent(ctx context.Context, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID == "" {
		b.respond(interaction, msgGuildOnly, true)
		return
	}
	snap, err := b.registry.Get(ctx, interaction.GuildID)
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}

	customID := interaction.MessageComponentData().CustomID
	action, arg, _ := strings.Cut(customID, ":")
	if !b.allowed(snap, interaction, componentRequirements[action]) {
		b.respond(interaction, msgNoPermission, true)
		return
	}

	switch action {
	case "ticket_open":
		b.handleTicketOpen(ctx, snap, interaction, tickets.Type(arg))
	case "ticket_claim":
		b.handleTicketClaim(ctx, interaction)
	case "ticket_close":
		b.handleTicketClose(ctx, snap, interaction)
	case "ticket_reopen":
		b.handleTicketReopen(ctx, interaction)
	case "ticket_delete":
		b.handleTicketDelete(ctx, interaction)
	}
}

// allowed evaluates a declarative requirement against the caller.
func (b *Bot) allowed(snap *guildcfg.Snapshot, interaction *discordgo.InteractionCreate, req requirement) bool {
	member := interaction.Member
	if member == nil || member.User == nil {
		return false
	}
	isAdmin := member.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0

	switch req {
	case requireNone:
		return true
	case requireAdmin:
		return isAdmin
	case requireIssuer:
		if isAdmin {
			return true
		}
		for _, roleID := range member.Roles {
			if _, ok := snap.VisaIssuerRoles[roleID]; ok {
				return true
			}
		}
		return false
	case requireRevoker:
		return isAdmin || hasRole(member, snap.VisaRevokeRole)
	case requireStaff:
		if isAdmin {
			return true
		}
		if snap.TicketStaffRole == "" {
			return false
		}
		for _, roleID := range member.Roles {
			if roleID == snap.TicketStaffRole {
				return true
			}
		}
		return false
	}
	return false
}

func (b *Bot) handleAutomod(ctx context.Context, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	action := ""
	value := ""
	for _, opt := range options {
		switch opt.Name {
		case "action":
			action = opt.StringValue()
		case "value":
			value = strings.TrimSpace(opt.StringValue())
		}
	}

	cfg, err := b.store.GetAutomodConfig(ctx, interaction.GuildID, b.automodDefaults(interaction.GuildID))
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}

	lower := strings.ToLower(value)
	switch action {
	case "enable":
		cfg.Enabled = true
	case "disable":
		cfg.Enabled = false
	case "action":
		if lower != "warn" && lower != "mute" && lower != "kick" && lower != "ban" {
			b.respond(interaction, msgFailed, true)
			return
		}
		cfg.ActionType = lower
	case "addword":
		if lower == "" {
			b.respond(interaction, msgFailed, true)
			return
		}
		cfg.BannedWords = appendUnique(cfg.BannedWords, lower)
	case "removeword":
		cfg.BannedWords = removeValue(cfg.BannedWords, lower)
	case "addlink":
		if lower == "" {
			b.respond(interaction, msgFailed, true)
			return
		}
		cfg.BannedLinks = appendUnique(cfg.BannedLinks, lower)
	case "removelink":
		cfg.BannedLinks = removeValue(cfg.BannedLinks, lower)
	case "allowlink":
		if lower == "" {
			b.respond(interaction, msgFailed, true)
			return
		}
		cfg.AllowedLinks = appendUnique(cfg.AllowedLinks, lower)
	case "similarity":
		cfg.SpamSimilarity = lower == "on" || lower == "true" || lower == "1"
	default:
		b.respond(interaction, msgFailed, true)
		return
	}

	if err := b.store.UpsertAutomodConfig(ctx, cfg); err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	if _, err := b.registry.Reload(ctx, interaction.GuildID); err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, interaction.Member.User.ID,
		"automod_config", fmt.Sprintf("%s %s", action, value))
	b.respond(interaction, msgAutomodUpdated, true)
}

func (b *Bot) handleAutomodStatus(ctx context.Context, snap *guildcfg.Snapshot, interaction *discordgo.InteractionCreate) {
	logs, err := b.store.ListAutomodLogs(ctx, interaction.GuildID, 5)
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	recent := "لا شيء"
	if len(logs) > 0 {
		lines := make([]string, 0, len(logs))
		for _, entry := range logs {
			lines = append(lines, fmt.Sprintf("%s — %s %s", entry.CreatedAt.Format("01-02 15:04"), entry.Action, mentionOrSystem(entry.UserID)))
		}
		recent = strings.Join(lines, "\n")
	}

	enabled := "❌"
	if snap.AutomodEnabled {
		enabled = "✅"
	}
	similarity := "❌"
	if snap.SpamSimilarity {
		similarity = "✅"
	}
	embed := &discordgo.MessageEmbed{
		Title:     "حالة الحماية",
		Color:     b.cfg.Notifications.EmbedColors.Action,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "مفعّلة", Value: enabled, Inline: true},
			{Name: "العقوبة", Value: snap.Action, Inline: true},
			{Name: "السبام", Value: fmt.Sprintf("%d/%ds", snap.SpamThreshold, int(snap.SpamInterval/time.Second)), Inline: true},
			{Name: "التشابه", Value: similarity, Inline: true},
			{Name: "المنشنات", Value: fmt.Sprintf("%d", snap.MaxMentions), Inline: true},
			{Name: "الرايد", Value: fmt.Sprintf("%d/%ds", snap.RaidThreshold, int(snap.RaidInterval/time.Second)), Inline: true},
			{Name: "الكلمات المحظورة", Value: fmt.Sprintf("%d", len(snap.BannedWords)), Inline: true},
			{Name: "الروابط المحظورة", Value: fmt.Sprintf("%d", len(snap.BannedLinks)), Inline: true},
			{Name: "آخر الإجراءات", Value: recent, Inline: false},
		},
	}
	b.respondEmbed(interaction, embed, true)
}

func (b *Bot) handleRank(ctx context.Context, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := interaction.Member.User.ID
	for _, opt := range options {
		if opt.Name == "member" && opt.Type == discordgo.ApplicationCommandOptionUser {
			if user := opt.UserValue(b.session); user != nil {
				userID = user.ID
			}
		}
	}

	row, err := b.leveling.Rank(ctx, interaction.GuildID, userID)
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	if row.XP == 0 && row.Level == 0 {
		b.respond(interaction, msgRankUnranked, true)
		return
	}
	into, required := leveling.Progress(row.XP)
	embed := &discordgo.MessageEmbed{
		Title: "المستوى",
		Color: b.cfg.Notifications.EmbedColors.Success,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "العضو", Value: "<@" + userID + ">", Inline: true},
			{Name: "المستوى", Value: fmt.Sprintf("%d", row.Level), Inline: true},
			{Name: "النقاط", Value: fmt.Sprintf("%d", row.XP), Inline: true},
			{Name: "التقدم", Value: fmt.Sprintf("%d/%d", into, required), Inline: true},
		},
	}
	b.respondEmbed(interaction, embed, false)
}

func (b *Bot) handleLeaderboard(ctx context.Context, interaction *discordgo.InteractionCreate) {
	rows, err := b.leveling.Leaderboard(ctx, interaction.GuildID, 10)
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	if len(rows) == 0 {
		b.respond(interaction, msgLeaderboardEmpty, true)
		return
	}
	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		lines = append(lines, fmt.Sprintf("**%d.** <@%s> — المستوى %d (%d نقطة)", i+1, row.UserID, row.Level, row.XP))
	}
	embed := &discordgo.MessageEmbed{
		Title:       "لوحة الصدارة",
		Description: strings.Join(lines, "\n"),
		Color:       b.cfg.Notifications.EmbedColors.Success,
	}
	b.respondEmbed(interaction, embed, false)
}

func (b *Bot) handleSetXP(ctx context.Context, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := ""
	xp := -1
	for _, opt := range options {
		switch opt.Name {
		case "member":
			if user := opt.UserValue(b.session); user != nil {
				userID = user.ID
			}
		case "xp":
			xp = int(opt.IntValue())
		}
	}
	if userID == "" {
		b.respond(interaction, msgFailed, true)
		return
	}

	level, err := b.leveling.SetXP(ctx, interaction.GuildID, userID, xp)
	if err != nil {
		if errors.Is(err, leveling.ErrNegativeXP) {
			b.respond(interaction, msgSetXPNegative, true)
			return
		}
		b.respond(interaction, msgFailed, true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, userID, "setxp",
		fmt.Sprintf("xp set to %d by %s", xp, interaction.Member.User.ID))
	b.respond(interaction, fmt.Sprintf(msgSetXPDone, userID, xp, level), true)
}

func (b *Bot) handleWarnings(ctx context.Context, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption, clear bool) {
	userID := ""
	for _, opt := range options {
		if opt.Name == "member" {
			if user := opt.UserValue(b.session); user != nil {
				userID = user.ID
			}
		}
	}
	if userID == "" {
		b.respond(interaction, msgFailed, true)
		return
	}

	if clear {
		if err := b.warnings.Reset(ctx, interaction.GuildID, userID); err != nil {
			b.respond(interaction, msgFailed, true)
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, userID, "clear_warnings",
			"cleared by "+interaction.Member.User.ID)
		b.respond(interaction, fmt.Sprintf(msgWarningsCleared, userID), true)
		return
	}

	count, err := b.warnings.Get(ctx, interaction.GuildID, userID)
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	b.respond(interaction, fmt.Sprintf(msgWarningsCount, userID, count), true)
}

func (b *Bot) handleSetupTickets(interaction *discordgo.InteractionCreate) {
	buttons := make([]discordgo.MessageComponent, 0, len(tickets.AllTypes))
	for _, t := range tickets.AllTypes {
		buttons = append(buttons, discordgo.Button{
			Label:    t.Label(),
			Style:    discordgo.SecondaryButton,
			CustomID: "ticket_open:" + string(t),
			Emoji:    discordgo.ComponentEmoji{Name: t.Emoji()},
		})
	}
	embed := &discordgo.MessageEmbed{
		Title:       msgTicketPanelTitle,
		Description: msgTicketPanelBody,
		Color:       b.cfg.Notifications.EmbedColors.Action,
	}
	_, err := b.session.ChannelMessageSendComplex(interaction.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}},
	})
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	b.respond(interaction, "تم نشر اللوحة", true)
}

func (b *Bot) handleTicketStats(ctx context.Context, interaction *discordgo.InteractionCreate) {
	stats, err := b.tickets.Stats(ctx, interaction.GuildID)
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	typeLines := make([]string, 0, len(tickets.AllTypes))
	for _, t := range tickets.AllTypes {
		typeLines = append(typeLines, fmt.Sprintf("%s %s: %d", t.Emoji(), t.Label(), stats.ByType[string(t)]))
	}
	embed := &discordgo.MessageEmbed{
		Title: "إحصائيات التذاكر",
		Color: b.cfg.Notifications.EmbedColors.Action,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "المجموع", Value: fmt.Sprintf("%d", stats.Total), Inline: true},
			{Name: "مفتوحة", Value: fmt.Sprintf("%d", stats.ByStatus[storage.TicketStatusOpen]), Inline: true},
			{Name: "مغلقة", Value: fmt.Sprintf("%d", stats.ByStatus[storage.TicketStatusClosed]), Inline: true},
			{Name: "محذوفة", Value: fmt.Sprintf("%d", stats.ByStatus[storage.TicketStatusDeleted]), Inline: true},
			{Name: "حسب النوع", Value: strings.Join(typeLines, "\n"), Inline: false},
		},
	}
	b.respondEmbed(interaction, embed, true)
}

func (b *Bot) handleTicketSearch(ctx context.Context, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := ""
	ticketType := ""
	status := ""
	for _, opt := range options {
		switch opt.Name {
		case "user":
			if user := opt.UserValue(b.session); user != nil {
				userID = user.ID
			}
		case "type":
			ticketType = opt.StringValue()
		case "status":
			status = opt.StringValue()
		}
	}

	results, err := b.tickets.Search(ctx, interaction.GuildID, userID, tickets.Type(ticketType), status, 15)
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	if len(results) == 0 {
		b.respond(interaction, "لا توجد نتائج", true)
		return
	}
	lines := make([]string, 0, len(results))
	for _, ticket := range results {
		lines = append(lines, fmt.Sprintf("#%d <@%s> %s — %s (%s)",
			ticket.ID, ticket.UserID, tickets.Type(ticket.Type).Label(), ticket.Status,
			ticket.CreatedAt.Format("2006-01-02")))
	}
	embed := &discordgo.MessageEmbed{
		Title:       "نتائج البحث",
		Description: strings.Join(lines, "\n"),
		Color:       b.cfg.Notifications.EmbedColors.Action,
	}
	b.respondEmbed(interaction, embed, true)
}

func (b *Bot) handleCustom(ctx context.Context, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	action := ""
	name := ""
	response := ""
	for _, opt := range options {
		switch opt.Name {
		case "action":
			action = opt.StringValue()
		case "name":
			name = strings.ToLower(strings.TrimSpace(opt.StringValue()))
		case "response":
			response = opt.StringValue()
		}
	}

	switch action {
	case "add":
		if !validCommandName(name) || response == "" {
			b.respond(interaction, msgCustomBadName, true)
			return
		}
		cmd := storage.CustomCommand{
			GuildID:   interaction.GuildID,
			Name:      name,
			Response:  response,
			CreatedBy: interaction.Member.User.ID,
			CreatedAt: b.clock.Now(),
		}
		if err := b.store.UpsertCustomCommand(ctx, cmd); err != nil {
			b.respond(interaction, msgFailed, true)
			return
		}
		b.respond(interaction, fmt.Sprintf(msgCustomSaved, name), true)
	case "remove":
		if err := b.store.DeleteCustomCommand(ctx, interaction.GuildID, name); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				b.respond(interaction, msgCustomMissing, true)
				return
			}
			b.respond(interaction, msgFailed, true)
			return
		}
		b.respond(interaction, fmt.Sprintf(msgCustomRemoved, name), true)
	case "list":
		commands, err := b.store.ListCustomCommands(ctx, interaction.GuildID)
		if err != nil {
			b.respond(interaction, msgFailed, true)
			return
		}
		if len(commands) == 0 {
			b.respond(interaction, msgCustomEmpty, true)
			return
		}
		lines := make([]string, 0, len(commands))
		for _, cmd := range commands {
			lines = append(lines, "!"+cmd.Name)
		}
		b.respond(interaction, strings.Join(lines, "\n"), true)
	default:
		b.respond(interaction, msgFailed, true)
	}
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}

func removeValue(values []string, value string) []string {
	out := values[:0]
	for _, existing := range values {
		if existing != value {
			out = append(out, existing)
		}
	}
	return out
}

func validCommandName(name string) bool {
	if name == "" || len(name) > 32 {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

func (b *Bot) handleVisa(ctx context.Context, snap *guildcfg.Snapshot, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption, grant bool) {
	if snap.VisaRoleID == "" {
		b.respond(interaction, msgVisaNoRole, true)
		return
	}
	userID := ""
	for _, opt := range options {
		if opt.Name == "member" {
			if user := opt.UserValue(b.session); user != nil {
				userID = user.ID
			}
		}
	}
	if userID == "" {
		b.respond(interaction, msgFailed, true)
		return
	}
	target := b.memberForUser(interaction.GuildID, userID)
	if target == nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	if grant && hasRole(target, snap.VisaRoleID) {
		b.respond(interaction, msgVisaAlready, true)
		return
	}
	if !grant && !hasRole(target, snap.VisaRoleID) {
		b.respond(interaction, msgVisaNotIssued, true)
		return
	}
	if !b.botOutranks(interaction.GuildID, userID) {
		b.audit.Log(ctx, audit.LevelWarn, interaction.GuildID, userID, "permission_denied",
			"visa change blocked: bot role not above member")
		b.respond(interaction, msgHierarchyDenied, true)
		return
	}

	var err error
	notice := msgVisaGranted
	event := "visa_granted"
	if grant {
		err = b.session.GuildMemberRoleAdd(interaction.GuildID, userID, snap.VisaRoleID)
	} else {
		notice = msgVisaRevoked
		event = "visa_revoked"
		err = b.session.GuildMemberRoleRemove(interaction.GuildID, userID, snap.VisaRoleID)
	}
	if err != nil {
		b.audit.Log(ctx, audit.LevelWarn, interaction.GuildID, userID, "action_failed", event+" failed: "+err.Error())
		b.respond(interaction, msgFailed, true)
		return
	}

	if channel, dmErr := b.session.UserChannelCreate(userID); dmErr == nil {
		_, _ = b.session.ChannelMessageSend(channel.ID, notice)
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, userID, event,
		"decided by "+interaction.Member.User.ID)
	b.respond(interaction, fmt.Sprintf(msgVisaDone, userID), true)
}

// applyGuildSetting mutates one field of the settings row. Role-valued
// keys take a role ID, channel-valued keys a channel ID.
func applyGuildSetting(settings *storage.GuildSettings, key, id string) error {
	if id == "" {
		return errors.New("missing value")
	}
	switch key {
	case "visa_role":
		settings.VisaRoleID = id
	case "visa_issuer_add":
		settings.VisaIssuerRoles = appendUnique(settings.VisaIssuerRoles, id)
	case "visa_issuer_remove":
		settings.VisaIssuerRoles = removeValue(settings.VisaIssuerRoles, id)
	case "visa_revoke_role":
		settings.VisaRevokeRole = id
	case "ticket_category":
		settings.TicketCategory = id
	case "ticket_staff_role":
		settings.TicketStaffRole = id
	case "audit_channel":
		settings.AuditChannel = id
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func (b *Bot) handleSettings(ctx context.Context, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	key := ""
	id := ""
	for _, opt := range options {
		switch opt.Name {
		case "key":
			key = opt.StringValue()
		case "role":
			if role := opt.RoleValue(b.session, interaction.GuildID); role != nil {
				id = role.ID
			}
		case "channel":
			if channel := opt.ChannelValue(b.session); channel != nil {
				id = channel.ID
			}
		}
	}

	settings, err := b.store.GetGuildSettings(ctx, interaction.GuildID)
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	if err := applyGuildSetting(&settings, key, id); err != nil {
		b.respond(interaction, msgSettingsBadValue, true)
		return
	}
	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	if _, err := b.registry.Reload(ctx, interaction.GuildID); err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, interaction.Member.User.ID,
		"settings", fmt.Sprintf("%s = %s", key, id))
	b.respond(interaction, msgSettingsUpdated, true)
}

func (b *Bot) handleTicketOpen(ctx context.Context, snap *guildcfg.Snapshot, interaction *discordgo.InteractionCreate, ticketType tickets.Type) {
	if !ticketType.Valid() {
		b.respond(interaction, msgFailed, true)
		return
	}
	opener := interaction.Member.User
	if b.tickets.HasOpen(interaction.GuildID, opener.ID) {
		b.respond(interaction, msgTicketDuplicate, true)
		return
	}
	b.deferEphemeral(interaction)

	overwrites := []*discordgo.PermissionOverwrite{
		{ID: interaction.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: opener.ID, Type: discordgo.PermissionOverwriteTypeMember, Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages},
	}
	if snap.TicketStaffRole != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: snap.TicketStaffRole, Type: discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}

	channel, err := b.session.GuildChannelCreateComplex(interaction.GuildID, discordgo.GuildChannelCreateData{
		Name:                 tickets.ChannelName(ticketType, opener.Username),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             snap.TicketCategory,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		b.followup(interaction, msgFailed)
		return
	}

	ticket, err := b.tickets.Create(ctx, interaction.GuildID, channel.ID, opener.ID, ticketType)
	if err != nil {
		_, _ = b.session.ChannelDelete(channel.ID)
		if errors.Is(err, storage.ErrConflict) {
			b.followup(interaction, msgTicketDuplicate)
			return
		}
		b.followup(interaction, msgFailed)
		return
	}

	controls := discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: "استلام", Style: discordgo.PrimaryButton, CustomID: "ticket_claim"},
		discordgo.Button{Label: "إغلاق", Style: discordgo.SecondaryButton, CustomID: "ticket_close"},
		discordgo.Button{Label: "إعادة فتح", Style: discordgo.SecondaryButton, CustomID: "ticket_reopen"},
		discordgo.Button{Label: "حذف", Style: discordgo.DangerButton, CustomID: "ticket_delete"},
	}}
	welcome := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", ticketType.Emoji(), ticketType.Label()),
		Description: fmt.Sprintf("تذكرة #%d لـ <@%s>، سيرد عليك الفريق قريباً", ticket.ID, opener.ID),
		Color:       b.cfg.Notifications.EmbedColors.Action,
	}
	_, _ = b.session.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{welcome},
		Components: []discordgo.MessageComponent{controls},
	})

	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, opener.ID, "ticket_opened",
		fmt.Sprintf("ticket #%d type=%s", ticket.ID, ticketType))
	b.followup(interaction, fmt.Sprintf(msgTicketCreated, channel.ID))
}

func (b *Bot) handleTicketClaim(ctx context.Context, interaction *discordgo.InteractionCreate) {
	ticket, err := b.tickets.ByChannel(ctx, interaction.ChannelID)
	if err != nil {
		b.respond(interaction, msgTicketNotFound, true)
		return
	}
	staffID := interaction.Member.User.ID
	if err := b.tickets.Claim(ctx, ticket.ID, staffID); err != nil {
		b.respond(interaction, msgTicketClaimTaken, true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, staffID, "ticket_claimed",
		fmt.Sprintf("ticket #%d", ticket.ID))
	b.respond(interaction, fmt.Sprintf(msgTicketClaimed, staffID), false)
}

func (b *Bot) handleTicketClose(ctx context.Context, snap *guildcfg.Snapshot, interaction *discordgo.InteractionCreate) {
	ticket, err := b.tickets.ByChannel(ctx, interaction.ChannelID)
	if err != nil {
		b.respond(interaction, msgTicketNotFound, true)
		return
	}
	caller := interaction.Member.User.ID
	if caller != ticket.UserID && !b.allowed(snap, interaction, requireStaff) {
		b.respond(interaction, msgNoPermission, true)
		return
	}
	b.deferEphemeral(interaction)

	transcript := b.renderChannelTranscript(interaction.ChannelID)
	if err := b.tickets.Close(ctx, ticket.ID, caller, transcript); err != nil {
		b.followup(interaction, msgFailed)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, caller, "ticket_closed",
		fmt.Sprintf("ticket #%d", ticket.ID))
	b.postTranscript(snap, ticket.ID, transcript)
	_, _ = b.session.ChannelMessageSendEmbed(interaction.ChannelID, &discordgo.MessageEmbed{
		Description: msgTicketClosing,
		Color:       b.cfg.Notifications.EmbedColors.Action,
	})
	b.scheduleTicketChannelDelete(interaction.ChannelID)
	b.followup(interaction, msgTicketClosed)
}

func (b *Bot) handleTicketReopen(ctx context.Context, interaction *discordgo.InteractionCreate) {
	ticket, err := b.tickets.ByChannel(ctx, interaction.ChannelID)
	if err != nil {
		b.respond(interaction, msgTicketNotFound, true)
		return
	}
	if err := b.tickets.Reopen(ctx, ticket.ID, interaction.Member.User.ID); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			b.respond(interaction, msgTicketDuplicate, true)
			return
		}
		b.respond(interaction, msgFailed, true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, interaction.Member.User.ID, "ticket_reopened",
		fmt.Sprintf("ticket #%d", ticket.ID))
	b.respond(interaction, msgTicketReopened, false)
}

func (b *Bot) handleTicketDelete(ctx context.Context, interaction *discordgo.InteractionCreate) {
	ticket, err := b.tickets.ByChannel(ctx, interaction.ChannelID)
	if err != nil {
		b.respond(interaction, msgTicketNotFound, true)
		return
	}
	snap, err := b.registry.Get(ctx, interaction.GuildID)
	if err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}

	transcript := ticket.Transcript
	if transcript == "" {
		transcript = b.renderChannelTranscript(interaction.ChannelID)
	}
	if err := b.tickets.Delete(ctx, ticket.ID, interaction.Member.User.ID, transcript); err != nil {
		b.respond(interaction, msgFailed, true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, interaction.Member.User.ID, "ticket_deleted",
		fmt.Sprintf("ticket #%d", ticket.ID))
	b.postTranscript(snap, ticket.ID, transcript)
	b.respond(interaction, msgTicketDeleted, true)

	// Channel removal failure does not revert the row.
	if _, err := b.session.ChannelDelete(interaction.ChannelID); err != nil {
		b.logger.Warn("ticket channel delete failed", zap.String("channel_id", interaction.ChannelID), zap.Error(err))
	}
}

// ticketCloseGrace keeps the closing notice readable before the channel
// disappears.
const ticketCloseGrace = 5 * time.Second

func (b *Bot) scheduleTicketChannelDelete(channelID string) {
	b.clock.AfterFunc(ticketCloseGrace, func() {
		if _, err := b.session.ChannelDelete(channelID); err != nil {
			b.logger.Warn("ticket channel delete failed", zap.String("channel_id", channelID), zap.Error(err))
		}
	})
}

func (b *Bot) renderChannelTranscript(channelID string) string {
	messages, err := tickets.FetchHistory(func(beforeID string) ([]*discordgo.Message, error) {
		return b.session.ChannelMessages(channelID, 100, beforeID, "", "")
	})
	if err != nil {
		b.logger.Warn("transcript fetch failed", zap.String("channel_id", channelID), zap.Error(err))
		return ""
	}
	return tickets.RenderTranscript(messages)
}

func (b *Bot) postTranscript(snap *guildcfg.Snapshot, ticketID int64, transcript string) {
	if snap.AuditChannel == "" || transcript == "" {
		return
	}
	_, _ = b.session.ChannelFileSend(snap.AuditChannel,
		fmt.Sprintf("ticket-%d.txt", ticketID), strings.NewReader(transcript))
}

func (b *Bot) respond(interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	})
}

func (b *Bot) respondEmbed(interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

// deferEphemeral acknowledges within the 3 second deadline; the real
// answer follows as a followup message.
func (b *Bot) deferEphemeral(interaction *discordgo.InteractionCreate) {
	_ = b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (b *Bot) followup(interaction *discordgo.InteractionCreate, content string) {
	_, _ = b.session.FollowupMessageCreate(interaction.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}
