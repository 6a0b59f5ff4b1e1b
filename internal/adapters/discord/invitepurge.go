package discord

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
)

var reInvite = regexp.MustCompile(`(?i)\b(?:discord\.gg|discord(?:app)?\.com/invite)/[A-Za-z0-9-]+`)

// handleMessage: invite purging. Gobernado enteramente por el behaviour
// configuration (toggle, roles exentos, canal de log); si nunca cargó,
// IsEnabled es false y no se toca nada.
func (r *Router) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID != r.guildID || m.Author == nil || m.Author.Bot {
		return
	}
	b := r.behaviours.InvitePurge()
	if !b.IsEnabled || !reInvite.MatchString(m.Content) {
		return
	}

	if m.Member != nil {
		roleIDs := make([]uint64, 0, len(m.Member.Roles))
		for _, rid := range m.Member.Roles {
			roleIDs = append(roleIDs, s2u(rid))
		}
		if b.Exempt(roleIDs) {
			return
		}
	}

	if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		log.Printf("invite purge: delete message %s: %v", m.ID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, err := r.mod.CreateInfraction(ctx, domain.InfractionNotice, s2u(m.Author.ID),
		s2u(s.State.User.ID), "invite link purgeado automáticamente", nil)
	if err != nil {
		log.Printf("invite purge: record notice for %s: %v", m.Author.ID, err)
	}

	r.postModLog(inviteLogLine(m.Author.ID, m.ChannelID, id))
}

// inviteLogLine: si el notice no se persistió (id 0) no referenciamos
// una infracción que no existe.
func inviteLogLine(authorID, channelID string, noticeID int64) string {
	if noticeID == 0 {
		return fmt.Sprintf("🧹 Invite de <@%s> borrado en <#%s> (no se pudo registrar el notice).", authorID, channelID)
	}
	return fmt.Sprintf("🧹 Invite de <@%s> borrado en <#%s> (notice `#%d`).", authorID, channelID, noticeID)
}
