package discord

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
)

type cmdOpts []*discordgo.ApplicationCommandInteractionDataOption

func (o cmdOpts) str(name string) (string, bool) {
	for _, opt := range o {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue(), true
		}
	}
	return "", false
}

func (o cmdOpts) integer(name string) (int64, bool) {
	for _, opt := range o {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionInteger {
			return opt.IntValue(), true
		}
	}
	return 0, false
}

func (o cmdOpts) boolean(name string) (bool, bool) {
	for _, opt := range o {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionBoolean {
			return opt.BoolValue(), true
		}
	}
	return false, false
}

func (o cmdOpts) user(name string) (string, bool) {
	for _, opt := range o {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionUser {
			return opt.UserValue(nil).ID, true
		}
	}
	return "", false
}

// durationFromMinutes: 0 o ausente = permanente (nil).
func durationFromMinutes(mins int64, ok bool) *time.Duration {
	if !ok || mins == 0 {
		return nil
	}
	d := time.Duration(mins) * time.Minute
	return &d
}

func fmtInfraction(inf domain.Infraction, now time.Time) string {
	state := "activa"
	switch {
	case inf.RescindedAt != nil:
		state = "rescindida"
	case !inf.Active(now):
		state = "expirada"
	}
	line := fmt.Sprintf("`#%d` **%s** <@%d> — %s · <t:%d:R> · _%s_",
		inf.ID, inf.Type, inf.SubjectID, inf.Reason, inf.CreatedAt.Unix(), state)
	if exp, ok := inf.ExpiresAt(); ok && inf.RescindedAt == nil {
		line += fmt.Sprintf(" · vence <t:%d:R>", exp.Unix())
	}
	return line
}

func fmtActions(acts []domain.ModerationAction) string {
	if len(acts) == 0 {
		return "_(sin acciones)_"
	}
	var b strings.Builder
	for _, a := range acts {
		fmt.Fprintf(&b, "• **%s** por <@%d> — %s · <t:%d:R>\n", a.Kind, a.ActorID, a.Reason, a.CreatedAt.Unix())
	}
	return b.String()
}

// errorMessage traduce la taxonomía de errores del core a algo accionable
// para el moderador, sin tragarse el contexto (ids, keys).
func errorMessage(err error) string {
	var (
		valErr      *domain.ValidationError
		nfErr       *domain.NotFoundError
		rescErr     *domain.AlreadyRescindedError
		conflictErr *domain.ConflictingInfractionError
		platErr     *domain.PlatformEffectError
		partialErr  *domain.PartialConfigurationError
		confErr     *domain.ConfigurationError
		sortErr     *domain.InvalidSortFieldError
	)
	switch {
	// conflicto antes que validación: el conflicto destapa a ValidationError
	// y si no perdemos el subject/type en el mensaje.
	case errors.As(err, &conflictErr):
		return fmt.Sprintf("❌ <@%d> ya tiene un **%s** activo.", conflictErr.SubjectID, conflictErr.Type)
	case errors.As(err, &valErr):
		return fmt.Sprintf("❌ %s: %s.", valErr.Field, valErr.Msg)
	case errors.As(err, &nfErr):
		return fmt.Sprintf("❌ No existe la infracción `#%d`.", nfErr.InfractionID)
	case errors.As(err, &rescErr):
		return fmt.Sprintf("ℹ️ La infracción `#%d` ya estaba rescindida.", rescErr.InfractionID)
	case errors.As(err, &platErr):
		return fmt.Sprintf("⚠️ Infracción `#%d` registrada, pero Discord falló al %s: %v. Reintentá o reconciliá a mano.",
			platErr.InfractionID, platErr.Op, platErr.Err)
	case errors.As(err, &partialErr):
		return fmt.Sprintf("⚠️ Configuración parcial: %d target(s) fallaron. Volvé a correr el comando.\n```%v```",
			partialErr.Failed, partialErr.Err)
	case errors.As(err, &confErr):
		return fmt.Sprintf("❌ Behaviour config inválida (%s/%s): %v. Nada se recargó.",
			confErr.Category, confErr.Key, confErr.Err)
	case errors.As(err, &sortErr):
		return fmt.Sprintf("❌ Campo de orden inválido: %s.", sortErr.Field)
	}
	return "⚠️ Error inesperado: " + err.Error()
}
