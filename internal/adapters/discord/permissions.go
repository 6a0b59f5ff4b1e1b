package discord

import "github.com/bwmarrin/discordgo"

// requireModerator: owner del guild, bit Administrator, o alguno de los
// roles de moderación configurados en el bot.
func (r *Router) requireModerator(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	if ic.Member == nil || ic.Member.User == nil {
		replyEphemeral(s, ic, "🔒 Este comando sólo funciona dentro del guild.")
		return false
	}

	// Owner
	if g, _ := s.State.Guild(ic.GuildID); g != nil && ic.Member.User.ID == g.OwnerID {
		return true
	}

	// Administrator bit
	roles, _ := s.GuildRoles(ic.GuildID)
	var perms int64
outer:
	for _, rid := range ic.Member.Roles {
		for _, ro := range roles {
			if ro.ID == rid {
				perms |= ro.Permissions
				if (perms & discordgo.PermissionAdministrator) != 0 {
					break outer
				}
			}
		}
	}
	if (perms & discordgo.PermissionAdministrator) != 0 {
		return true
	}

	// Roles de moderación explícitos del bot
	if len(r.modRoleIDs) > 0 {
		has := make(map[string]struct{}, len(ic.Member.Roles))
		for _, rid := range ic.Member.Roles {
			has[rid] = struct{}{}
		}
		for _, want := range r.modRoleIDs {
			if _, ok := has[want]; ok {
				return true
			}
		}
	}

	replyEphemeral(s, ic, "🔒 No tienes permisos de moderación.")
	return false
}
