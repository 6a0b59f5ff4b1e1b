package domain

import (
	"fmt"
	"time"
)

// InfractionType es la enumeración cerrada de tipos de infracción.
type InfractionType int

const (
	InfractionNotice InfractionType = iota
	InfractionWarning
	InfractionMute
	InfractionBan
	InfractionKick
)

func (t InfractionType) String() string {
	switch t {
	case InfractionNotice:
		return "notice"
	case InfractionWarning:
		return "warning"
	case InfractionMute:
		return "mute"
	case InfractionBan:
		return "ban"
	case InfractionKick:
		return "kick"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// ParseInfractionType mapea el nombre (como viene del slash command) al enum.
func ParseInfractionType(s string) (InfractionType, bool) {
	switch s {
	case "notice", "note":
		return InfractionNotice, true
	case "warning", "warn":
		return InfractionWarning, true
	case "mute":
		return InfractionMute, true
	case "ban":
		return InfractionBan, true
	case "kick":
		return InfractionKick, true
	}
	return 0, false
}

// HasPlatformEffect: mute/ban/kick tocan estado del lado de Discord.
func (t InfractionType) HasPlatformEffect() bool {
	return t == InfractionMute || t == InfractionBan || t == InfractionKick
}

// Exclusive: tipos que admiten a lo sumo UNA infracción activa por sujeto.
func (t InfractionType) Exclusive() bool {
	return t == InfractionMute || t == InfractionBan
}

// Infraction es el registro punitivo persistido. Nunca se borra físicamente;
// sólo se mutan los campos de rescisión (audit trail).
type Infraction struct {
	ID        int64
	GuildID   uint64
	Type      InfractionType
	SubjectID uint64
	CreatedBy uint64
	CreatedAt time.Time
	// nil = permanente
	Duration *time.Duration
	Reason   string

	RescindedAt *time.Time
	RescindedBy *uint64
}

// Active: no rescindida y (si tiene duración) no expirada a `now`.
func (i Infraction) Active(now time.Time) bool {
	if i.RescindedAt != nil {
		return false
	}
	if i.Duration != nil && now.After(i.CreatedAt.Add(*i.Duration)) {
		return false
	}
	return true
}

// ExpiresAt devuelve el instante de expiración, o false si es permanente.
func (i Infraction) ExpiresAt() (time.Time, bool) {
	if i.Duration == nil {
		return time.Time{}, false
	}
	return i.CreatedAt.Add(*i.Duration), true
}

// ActionKind clasifica las entradas del log de moderación.
type ActionKind int

const (
	ActionCreate ActionKind = iota
	ActionRescind
	ActionExpire
)

func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "create"
	case ActionRescind:
		return "rescind"
	case ActionExpire:
		return "expire"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// ModerationAction es una entrada append-only del log de auditoría:
// quién hizo qué sobre qué infracción y por qué. Inmutable una vez escrita.
type ModerationAction struct {
	ID           int64
	InfractionID int64
	Kind         ActionKind
	ActorID      uint64
	Reason       string
	CreatedAt    time.Time
}
