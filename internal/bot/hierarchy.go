package bot

import "github.com/bwmarrin/discordgo"

// topRolePosition returns the highest role position a member holds. The
// @everyone role sits at position 0, so memberless or roleless members
// resolve to 0.
func topRolePosition(guild *discordgo.Guild, member *discordgo.Member) int {
	if guild == nil || member == nil {
		return 0
	}
	byID := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		byID[role.ID] = role
	}
	top := 0
	for _, roleID := range member.Roles {
		if role := byID[roleID]; role != nil && role.Position > top {
			top = role.Position
		}
	}
	return top
}

// hasRole reports whether the member holds the given role.
func hasRole(member *discordgo.Member, roleID string) bool {
	if member == nil || roleID == "" {
		return false
	}
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// canModify reports whether the actor's top role sits strictly above the
// target's. The guild owner outranks everyone.
func canModify(guild *discordgo.Guild, actor, target *discordgo.Member) bool {
	if guild == nil || actor == nil || target == nil {
		return false
	}
	if actor.User != nil && guild.OwnerID == actor.User.ID {
		return true
	}
	if target.User != nil && guild.OwnerID == target.User.ID {
		return false
	}
	return topRolePosition(guild, actor) > topRolePosition(guild, target)
}
