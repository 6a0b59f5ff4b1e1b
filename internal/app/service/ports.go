package service

import (
	"context"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
	"github.com/jose-valero/guild-mod-bot/internal/infra/storage"
)

// Lo implementa internal/infra/storage.InfractionRepo
type InfractionStore interface {
	Create(ctx context.Context, inf domain.Infraction) (int64, error)
	GetByID(ctx context.Context, id int64) (domain.Infraction, error)
	Rescind(ctx context.Context, id int64, rescindedBy uint64, reason string) (domain.Infraction, error)
	Search(ctx context.Context, c domain.InfractionSearchCriteria) ([]domain.Infraction, error)
	ListExpiredUnhandled(ctx context.Context) ([]domain.Infraction, error)
}

// Lo implementa internal/infra/storage.ActionRepo
type ActionStore interface {
	Insert(ctx context.Context, a domain.ModerationAction) error
	ListForInfraction(ctx context.Context, infractionID int64) ([]domain.ModerationAction, error)
}

// Lo implementa internal/infra/storage.BehaviourRepo
type BehaviourStore interface {
	GetBehaviours(ctx context.Context) ([]domain.BehaviourEntry, error)
	Set(ctx context.Context, category, key, value string) error
}

// Lo implementa internal/infra/storage.OverwriteRepo
type OverwriteStore interface {
	Record(ctx context.Context, o storage.TrackedOverwrite) error
	ListActive(ctx context.Context, guildID uint64) ([]storage.TrackedOverwrite, error)
	ListActiveByChannels(ctx context.Context, guildID uint64, channelIDs []uint64) ([]storage.TrackedOverwrite, error)
	MarkRemoved(ctx context.Context, guildID, channelID, targetID uint64) error
}

// ChannelKind: lo mínimo que la reconciliación necesita distinguir.
type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelVoice
	ChannelCategory
	ChannelOther
)

type RoleInfo struct {
	ID   uint64
	Name string
}

// OverwriteState: estado actual de un overwrite en Discord.
type OverwriteState struct {
	TargetID uint64
	IsRole   bool
	Allow    int64
	Deny     int64
}

type ChannelInfo struct {
	ID         uint64
	Kind       ChannelKind
	Overwrites []OverwriteState
}

// GuildClient es el puerto hacia Discord. Lo implementa
// internal/adapters/discord.Client sobre *discordgo.Session.
type GuildClient interface {
	Roles(ctx context.Context, guildID uint64) ([]RoleInfo, error)
	CreateRole(ctx context.Context, guildID uint64, name string) (RoleInfo, error)
	Channels(ctx context.Context, guildID uint64) ([]ChannelInfo, error)
	Channel(ctx context.Context, channelID uint64) (ChannelInfo, error)
	SetRoleOverwrite(ctx context.Context, channelID, roleID uint64, allow, deny int64) error
	DeleteOverwrite(ctx context.Context, channelID, targetID uint64) error
	AddRole(ctx context.Context, guildID, userID, roleID uint64) error
	RemoveRole(ctx context.Context, guildID, userID, roleID uint64) error
	Ban(ctx context.Context, guildID, userID uint64, reason string) error
	Unban(ctx context.Context, guildID, userID uint64) error
	Kick(ctx context.Context, guildID, userID uint64, reason string) error
}

// PlatformEffector: el paso per-subject de la reconciliación (aplicar o
// revertir el efecto de plataforma de una infracción). Lo implementa
// ReconcilerService.
type PlatformEffector interface {
	ApplyEffect(ctx context.Context, inf domain.Infraction) error
	RevertEffect(ctx context.Context, inf domain.Infraction) error
}
