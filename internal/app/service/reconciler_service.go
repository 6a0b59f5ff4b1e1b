package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
	"github.com/jose-valero/guild-mod-bot/internal/infra/storage"
)

// Bits que le negamos al rol de mute según el tipo de canal.
const (
	textDeny  = discordgo.PermissionSendMessages | discordgo.PermissionAddReactions
	voiceDeny = discordgo.PermissionVoiceSpeak
)

// ReconcilerService calcula y aplica el diff de permission overwrites que
// la moderación necesita (visibilidad del rol de mute) y su inversa.
// El plan se computa fresco en cada llamada: el estado de Discord puede
// haber driftado (canales nuevos, roles borrados) desde la última vez.
type ReconcilerService struct {
	client       GuildClient
	tracked      OverwriteStore
	muteRoleName string
	guilds       *keyedMutex
	retryBase    time.Duration
}

func NewReconcilerService(client GuildClient, tracked OverwriteStore, muteRoleName string) *ReconcilerService {
	return &ReconcilerService{
		client:       client,
		tracked:      tracked,
		muteRoleName: muteRoleName,
		guilds:       newKeyedMutex(),
		retryBase:    250 * time.Millisecond,
	}
}

// AutoConfigureGuild es idempotente: aplica sólo los overwrites que
// difieren del estado actual. Segunda corrida seguida = cero escrituras.
// Las fallas por canal se juntan en PartialConfigurationError; un canal
// caído no aborta el resto.
func (s *ReconcilerService) AutoConfigureGuild(ctx context.Context, guildID uint64) error {
	unlock := s.guilds.Lock(guildID)
	defer unlock()

	role, err := s.ensureMuteRole(ctx, guildID)
	if err != nil {
		return fmt.Errorf("mute role: %w", err)
	}
	chans, err := s.client.Channels(ctx, guildID)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	var failed error
	for _, ch := range chans {
		if err := s.configureChannel(ctx, guildID, ch, role.ID); err != nil {
			failed = multierr.Append(failed, fmt.Errorf("channel %d: %w", ch.ID, err))
		}
	}
	return s.partial(guildID, failed)
}

// AutoConfigureChannel: mismo contrato, un solo canal (para canales creados
// después del setup inicial del guild).
func (s *ReconcilerService) AutoConfigureChannel(ctx context.Context, guildID, channelID uint64) error {
	unlock := s.guilds.Lock(guildID)
	defer unlock()

	role, err := s.ensureMuteRole(ctx, guildID)
	if err != nil {
		return fmt.Errorf("mute role: %w", err)
	}
	ch, err := s.client.Channel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("channel %d: %w", channelID, err)
	}
	if err := s.configureChannel(ctx, guildID, ch, role.ID); err != nil {
		return s.partial(guildID, fmt.Errorf("channel %d: %w", channelID, err))
	}
	return nil
}

// UnConfigureGuild revierte EXACTAMENTE lo que este sistema aplicó antes:
// sólo filas trackeadas en configured_overwrites. Overwrites ajenos no se
// tocan jamás.
func (s *ReconcilerService) UnConfigureGuild(ctx context.Context, guildID uint64) error {
	unlock := s.guilds.Lock(guildID)
	defer unlock()

	rows, err := s.tracked.ListActive(ctx, guildID)
	if err != nil {
		return err
	}

	var failed error
	for _, row := range rows {
		err := s.withRetry(ctx, func(ctx context.Context) error {
			return s.client.DeleteOverwrite(ctx, row.ChannelID, row.TargetID)
		})
		if err != nil {
			failed = multierr.Append(failed, fmt.Errorf("channel %d target %d: %w", row.ChannelID, row.TargetID, err))
			continue
		}
		if err := s.tracked.MarkRemoved(ctx, guildID, row.ChannelID, row.TargetID); err != nil {
			failed = multierr.Append(failed, fmt.Errorf("untrack channel %d: %w", row.ChannelID, err))
		}
	}
	return s.partial(guildID, failed)
}

// ForgetChannel descarta el tracking de un canal que ya no existe. No hay
// nada que revertir del lado de Discord (el canal se fue con sus
// overwrites); sólo se sueltan los marcadores para que UnConfigureGuild no
// intente tocarlos.
func (s *ReconcilerService) ForgetChannel(ctx context.Context, guildID, channelID uint64) error {
	unlock := s.guilds.Lock(guildID)
	defer unlock()

	rows, err := s.tracked.ListActiveByChannels(ctx, guildID, []uint64{channelID})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.tracked.MarkRemoved(ctx, guildID, row.ChannelID, row.TargetID); err != nil {
			return err
		}
	}
	return nil
}

// ---------- efecto per-subject (lo invoca ModerationService) ----------

func (s *ReconcilerService) ApplyEffect(ctx context.Context, inf domain.Infraction) error {
	switch inf.Type {
	case domain.InfractionMute:
		role, err := s.ensureMuteRole(ctx, inf.GuildID)
		if err != nil {
			return err
		}
		return s.withRetry(ctx, func(ctx context.Context) error {
			return s.client.AddRole(ctx, inf.GuildID, inf.SubjectID, role.ID)
		})
	case domain.InfractionBan:
		return s.withRetry(ctx, func(ctx context.Context) error {
			return s.client.Ban(ctx, inf.GuildID, inf.SubjectID, inf.Reason)
		})
	case domain.InfractionKick:
		return s.withRetry(ctx, func(ctx context.Context) error {
			return s.client.Kick(ctx, inf.GuildID, inf.SubjectID, inf.Reason)
		})
	}
	return nil
}

func (s *ReconcilerService) RevertEffect(ctx context.Context, inf domain.Infraction) error {
	switch inf.Type {
	case domain.InfractionMute:
		role, ok, err := s.findMuteRole(ctx, inf.GuildID)
		if err != nil {
			return err
		}
		if !ok {
			// el rol ya no existe: no queda nada que revertir
			return nil
		}
		return s.withRetry(ctx, func(ctx context.Context) error {
			return s.client.RemoveRole(ctx, inf.GuildID, inf.SubjectID, role.ID)
		})
	case domain.InfractionBan:
		return s.withRetry(ctx, func(ctx context.Context) error {
			return s.client.Unban(ctx, inf.GuildID, inf.SubjectID)
		})
	}
	// kick no tiene inversa
	return nil
}

// ---------- internos ----------

func (s *ReconcilerService) configureChannel(ctx context.Context, guildID uint64, ch ChannelInfo, roleID uint64) error {
	var deny int64
	switch ch.Kind {
	case ChannelText:
		deny = textDeny
	case ChannelVoice:
		deny = voiceDeny
	default:
		return nil
	}

	// diff-apply: si el overwrite ya está como lo queremos, cero escrituras
	cur, ok := lo.Find(ch.Overwrites, func(o OverwriteState) bool {
		return o.IsRole && o.TargetID == roleID
	})
	if ok && cur.Allow == 0 && cur.Deny == deny {
		return nil
	}

	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.client.SetRoleOverwrite(ctx, ch.ID, roleID, 0, deny)
	})
	if err != nil {
		return err
	}
	return s.tracked.Record(ctx, storage.TrackedOverwrite{
		GuildID:    guildID,
		ChannelID:  ch.ID,
		TargetID:   roleID,
		TargetType: "role",
		AllowBits:  0,
		DenyBits:   deny,
	})
}

func (s *ReconcilerService) ensureMuteRole(ctx context.Context, guildID uint64) (RoleInfo, error) {
	role, ok, err := s.findMuteRole(ctx, guildID)
	if err != nil {
		return RoleInfo{}, err
	}
	if ok {
		return role, nil
	}
	return s.client.CreateRole(ctx, guildID, s.muteRoleName)
}

func (s *ReconcilerService) findMuteRole(ctx context.Context, guildID uint64) (RoleInfo, bool, error) {
	roles, err := s.client.Roles(ctx, guildID)
	if err != nil {
		return RoleInfo{}, false, err
	}
	role, ok := lo.Find(roles, func(r RoleInfo) bool { return r.Name == s.muteRoleName })
	return role, ok, nil
}

// withRetry: backoff exponencial acotado para aguantar 429 de Discord.
// Si igual falla, el error sube al caller (reporta, no esconde).
func (s *ReconcilerService) withRetry(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(3, retry.NewExponential(s.retryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (s *ReconcilerService) partial(guildID uint64, failed error) error {
	if failed == nil {
		return nil
	}
	return &domain.PartialConfigurationError{
		GuildID: guildID,
		Failed:  len(multierr.Errors(failed)),
		Err:     failed,
	}
}
