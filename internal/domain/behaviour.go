package domain

// BehaviourEntry: par key/value crudo, con namespace por categoría.
// La interpretación tipada es del feature consumidor, no del store.
type BehaviourEntry struct {
	Category string
	Key      string
	Value    string
}

// Categorías conocidas de behaviour configuration.
const (
	CategoryInvitePurging = "InvitePurging"
)

// Keys requeridas por InvitePurging. Las tres deben existir y parsear,
// o la carga completa falla (sin defaults).
const (
	KeyIsEnabled        = "IsEnabled"
	KeyExemptRoleIDs    = "ExemptRoleIds"
	KeyLoggingChannelID = "LoggingChannelId"
)

// InvitePurgeBehaviour es la vista tipada de la categoría InvitePurging,
// construida una sola vez por carga.
type InvitePurgeBehaviour struct {
	IsEnabled        bool
	ExemptRoleIDs    []uint64
	LoggingChannelID uint64
}

// Exempt dice si alguno de los roles del autor está exento del purge.
func (b InvitePurgeBehaviour) Exempt(roleIDs []uint64) bool {
	for _, have := range roleIDs {
		for _, exempt := range b.ExemptRoleIDs {
			if have == exempt {
				return true
			}
		}
	}
	return false
}
