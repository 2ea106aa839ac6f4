package bot

import "github.com/bwmarrin/discordgo"

func (b *Bot) registerCommands() error {
	manageGuild := int64(discordgo.PermissionManageServer)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "automod",
			Description:              "إعدادات الحماية التلقائية",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "الإجراء المطلوب",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "enable", Value: "enable"},
						{Name: "disable", Value: "disable"},
						{Name: "action", Value: "action"},
						{Name: "addword", Value: "addword"},
						{Name: "removeword", Value: "removeword"},
						{Name: "addlink", Value: "addlink"},
						{Name: "removelink", Value: "removelink"},
						{Name: "allowlink", Value: "allowlink"},
						{Name: "similarity", Value: "similarity"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "الكلمة أو الرابط أو نوع العقوبة",
					Required:    false,
				},
			},
		},
		{
			Name:                     "automodstatus",
			Description:              "عرض حالة الحماية وآخر الإجراءات",
			DefaultMemberPermissions: &manageGuild,
		},
		{
			Name:        "rank",
			Description: "عرض مستواك ونقاطك",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "عضو آخر",
					Required:    false,
				},
			},
		},
		{
			Name:        "leaderboard",
			Description: "لوحة الصدارة",
		},
		{
			Name:                     "setxp",
			Description:              "ضبط نقاط عضو",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "العضو",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "xp",
					Description: "النقاط الجديدة",
					Required:    true,
				},
			},
		},
		{
			Name:        "warnings",
			Description: "عرض تحذيرات عضو",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "العضو",
					Required:    true,
				},
			},
		},
		{
			Name:                     "clearwarnings",
			Description:              "مسح تحذيرات عضو",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "العضو",
					Required:    true,
				},
			},
		},
		{
			Name:                     "setup-tickets",
			Description:              "نشر لوحة التذاكر",
			DefaultMemberPermissions: &manageGuild,
		},
		{
			Name:                     "ticket-stats",
			Description:              "إحصائيات التذاكر",
			DefaultMemberPermissions: &manageGuild,
		},
		{
			Name:                     "ticket-search",
			Description:              "البحث في التذاكر",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "صاحب التذكرة",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "type",
					Description: "نوع التذكرة",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "شكوى على لاعب", Value: "player_report"},
						{Name: "الصحة", Value: "health"},
						{Name: "الداخلية", Value: "interior"},
						{Name: "اقتراح", Value: "feedback"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "status",
					Description: "حالة التذكرة",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "مفتوحة", Value: "open"},
						{Name: "مغلقة", Value: "closed"},
						{Name: "محذوفة", Value: "deleted"},
					},
				},
			},
		},
		{
			Name:                     "custom",
			Description:              "الأوامر المخصصة",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "add أو remove أو list",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "add", Value: "add"},
						{Name: "remove", Value: "remove"},
						{Name: "list", Value: "list"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "اسم الأمر بدون !",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "response",
					Description: "الرد",
					Required:    false,
				},
			},
		},
		{
			Name:                     "settings",
			Description:              "إعدادات السيرفر",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "key",
					Description: "الإعداد المطلوب تغييره",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "رتبة الفيزا", Value: "visa_role"},
						{Name: "إضافة رتبة قبول", Value: "visa_issuer_add"},
						{Name: "إزالة رتبة قبول", Value: "visa_issuer_remove"},
						{Name: "رتبة الرفض", Value: "visa_revoke_role"},
						{Name: "فئة التذاكر", Value: "ticket_category"},
						{Name: "رتبة فريق التذاكر", Value: "ticket_staff_role"},
						{Name: "قناة السجل", Value: "audit_channel"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "الرتبة",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "القناة",
					Required:    false,
				},
			},
		},
		{
			Name:        "مقبول",
			Description: "قبول عضو ومنحه رتبة الفيزا",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "العضو",
					Required:    true,
				},
			},
		},
		{
			Name:        "مرفوض",
			Description: "رفض عضو وسحب رتبة الفيزا",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "العضو",
					Required:    true,
				},
			},
		},
	}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
