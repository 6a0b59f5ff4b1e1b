package discord

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/guild-mod-bot/internal/app/service"
	"github.com/jose-valero/guild-mod-bot/internal/domain"
)

const searchPageSize = 10

type Router struct {
	s       *discordgo.Session
	guildID string

	mod        *service.ModerationService
	rec        *service.ReconcilerService
	behaviours *service.BehaviourService

	modRoleIDs  []string
	searchLimit *userLimiter
}

func NewRouter(
	s *discordgo.Session,
	guildID string,
	mod *service.ModerationService,
	rec *service.ReconcilerService,
	behaviours *service.BehaviourService,
	modRoleIDs []string,
) *Router {
	return &Router{
		s:           s,
		guildID:     guildID,
		mod:         mod,
		rec:         rec,
		behaviours:  behaviours,
		modRoleIDs:  modRoleIDs,
		searchLimit: newUserLimiter(3 * time.Second),
	}
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	// Slash commands
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		data := ic.ApplicationCommandData()
		log.Printf("slash: /%s by=%s guild=%s", data.Name, ic.Member.User.ID, ic.GuildID)

		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic in slash /%s: %v", data.Name, rec)
				replyEphemeral(s, ic, "⚠️ Ocurrió un error inesperado.")
			}
		}()

		_ = deferEphemeral(s, ic)
		ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
		defer cancel()

		switch data.Name {
		case "ping":
			replyEphemeral(s, ic, "🏓 pong")

		case "note", "warn", "mute", "ban", "kick":
			if !r.requireModerator(s, ic) {
				return
			}
			r.handleCreate(ctx, s, ic, data)

		case "rescind":
			if !r.requireModerator(s, ic) {
				return
			}
			r.handleRescind(ctx, s, ic, data)

		case "infractions":
			if !r.requireModerator(s, ic) {
				return
			}
			if len(data.Options) == 0 {
				replyEphemeral(s, ic, "Usa `/infractions search` o `/infractions detail`.")
				return
			}
			switch data.Options[0].Name {
			case "search":
				if !r.searchLimit.Allow(ic.Member.User.ID) {
					replyEphemeral(s, ic, "⏳ Esperá un momento entre búsquedas.")
					return
				}
				r.handleSearch(ctx, s, ic, cmdOpts(data.Options[0].Options))
			case "detail":
				r.handleDetail(ctx, s, ic, cmdOpts(data.Options[0].Options))
			}

		case "modconfig":
			if !r.requireModerator(s, ic) {
				return
			}
			if len(data.Options) == 0 {
				replyEphemeral(s, ic, "Usa `/modconfig setup`, `teardown`, `reload` o `set`.")
				return
			}
			r.handleModConfig(ctx, s, ic, data.Options[0])
		}
	})

	// Mensajes → invite purge (si el behaviour está habilitado)
	r.s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		r.handleMessage(s, m)
	})

	// Canal nuevo → auto-configurar sus overwrites de mute
	r.s.AddHandler(func(s *discordgo.Session, ev *discordgo.ChannelCreate) {
		if ev.GuildID != r.guildID {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := r.rec.AutoConfigureChannel(ctx, s2u(ev.GuildID), s2u(ev.ID)); err != nil {
			log.Printf("auto-configure channel %s: %v", ev.ID, err)
		}
	})

	// Canal borrado → soltar el tracking de sus overwrites
	r.s.AddHandler(func(s *discordgo.Session, ev *discordgo.ChannelDelete) {
		if ev.GuildID != r.guildID {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := r.rec.ForgetChannel(ctx, s2u(ev.GuildID), s2u(ev.ID)); err != nil {
			log.Printf("forget channel %s: %v", ev.ID, err)
		}
	})
}

// ---------- handlers ----------

func (r *Router) handleCreate(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	typ, ok := domain.ParseInfractionType(data.Name)
	if !ok {
		replyEphemeral(s, ic, "❌ Tipo de infracción desconocido.")
		return
	}
	opts := cmdOpts(data.Options)
	userID, _ := opts.user("user")
	reason, _ := opts.str("reason")
	dur := durationFromMinutes(opts.integer("duration_minutes"))

	id, err := r.mod.CreateInfraction(ctx, typ, s2u(userID), s2u(ic.Member.User.ID), reason, dur)
	if err != nil {
		replyEphemeral(s, ic, errorMessage(err))
		// el registro pudo haber quedado grabado igual (efecto de
		// plataforma fallido): al mod log va lo mismo
		if id != 0 {
			r.postModLog(fmt.Sprintf("⚠️ `#%d` **%s** sobre <@%s> por <@%s> (efecto de Discord pendiente): %s",
				id, typ, userID, ic.Member.User.ID, reason))
		}
		return
	}

	replyEphemeral(s, ic, fmt.Sprintf("✅ `#%d` **%s** aplicado a <@%s>.", id, typ, userID))
	r.postModLog(fmt.Sprintf("🔨 `#%d` **%s** sobre <@%s> por <@%s>: %s", id, typ, userID, ic.Member.User.ID, reason))
}

func (r *Router) handleRescind(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := cmdOpts(data.Options)
	id, _ := opts.integer("id")
	reason, _ := opts.str("reason")

	if err := r.mod.RescindInfraction(ctx, id, s2u(ic.Member.User.ID), reason); err != nil {
		replyEphemeral(s, ic, errorMessage(err))
		return
	}
	replyEphemeral(s, ic, fmt.Sprintf("✅ Infracción `#%d` rescindida.", id))
	r.postModLog(fmt.Sprintf("↩️ `#%d` rescindida por <@%s>: %s", id, ic.Member.User.ID, reason))
}

func (r *Router) handleSearch(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, opts cmdOpts) {
	var criteria domain.InfractionSearchCriteria
	if uid, ok := opts.user("user"); ok {
		v := s2u(uid)
		criteria.SubjectID = &v
	}
	if ts, ok := opts.str("type"); ok {
		if t, ok := domain.ParseInfractionType(ts); ok {
			criteria.Type = &t
		}
	}
	if active, ok := opts.boolean("active"); ok {
		criteria.ActiveOnly = active
	}
	if sub, ok := opts.str("reason"); ok {
		criteria.ReasonContains = sub
	}

	sorts := []domain.SortingCriteria{{Field: domain.SortByCreatedAt, Direction: domain.Descending}}
	if sortKey, ok := opts.str("sort"); ok {
		switch sortKey {
		case "created_asc":
			sorts = []domain.SortingCriteria{{Field: domain.SortByCreatedAt, Direction: domain.Ascending}}
		case "type":
			sorts = []domain.SortingCriteria{
				{Field: domain.SortByType, Direction: domain.Ascending},
				{Field: domain.SortByCreatedAt, Direction: domain.Descending},
			}
		case "subject":
			sorts = []domain.SortingCriteria{
				{Field: domain.SortBySubjectID, Direction: domain.Ascending},
				{Field: domain.SortByCreatedAt, Direction: domain.Descending},
			}
		}
	}

	page := 0
	if p, ok := opts.integer("page"); ok && p > 0 {
		page = int(p)
	}

	res, err := r.mod.SearchInfractionsPage(ctx, criteria, sorts, domain.PagingCriteria{
		PageIndex: page,
		PageSize:  searchPageSize,
	})
	if err != nil {
		replyEphemeral(s, ic, errorMessage(err))
		return
	}
	if res.TotalCount == 0 {
		replyEphemeral(s, ic, "ℹ️ Sin resultados para esos filtros.")
		return
	}

	now := time.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Infracciones** — página %d/%d (%d en total)\n",
		page+1, (res.TotalCount+searchPageSize-1)/searchPageSize, res.TotalCount)
	for _, inf := range res.Records {
		b.WriteString(fmtInfraction(inf, now))
		b.WriteByte('\n')
	}
	if len(res.Records) == 0 {
		b.WriteString("_(página fuera de rango)_\n")
	}
	replyEphemeral(s, ic, b.String())
}

func (r *Router) handleDetail(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, opts cmdOpts) {
	id, _ := opts.integer("id")
	inf, acts, err := r.mod.GetInfraction(ctx, id)
	if err != nil {
		replyEphemeral(s, ic, errorMessage(err))
		return
	}
	replyEphemeral(s, ic, fmtInfraction(inf, time.Now())+"\n\n**Log de moderación**\n"+fmtActions(acts))
}

func (r *Router) handleModConfig(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	var err error
	switch sub.Name {
	case "setup":
		err = r.rec.AutoConfigureGuild(ctx, s2u(ic.GuildID))
	case "teardown":
		err = r.rec.UnConfigureGuild(ctx, s2u(ic.GuildID))
	case "reload":
		err = r.behaviours.Load(ctx)
	case "set":
		opts := cmdOpts(sub.Options)
		key, _ := opts.str("key")
		value, _ := opts.str("value")
		err = r.behaviours.Update(ctx, domain.CategoryInvitePurging, key, value)
	default:
		replyEphemeral(s, ic, "Usa `setup`, `teardown`, `reload` o `set`.")
		return
	}
	if err != nil {
		replyEphemeral(s, ic, errorMessage(err))
		return
	}
	replyEphemeral(s, ic, "✅ `"+sub.Name+"` listo.")
}

// postModLog manda el resumen al canal de log configurado. Best effort:
// si no hay behaviour cargado o el canal no existe, sólo logueamos.
func (r *Router) postModLog(content string) {
	b := r.behaviours.InvitePurge()
	if b.LoggingChannelID == 0 {
		return
	}
	if _, err := r.s.ChannelMessageSend(u2s(b.LoggingChannelID), content); err != nil {
		log.Printf("mod log send: %v", err)
	}
}
