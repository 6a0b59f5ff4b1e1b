package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
)

// ModerationService es el dueño del ciclo de vida de las infracciones:
// crear, rescindir, buscar. Valida invariantes ANTES de persistir; el
// efecto de plataforma va DESPUÉS de persistir y nunca lo revierte
// (el audit trail no desaparece porque Discord falló).
type ModerationService struct {
	store    InfractionStore
	actions  ActionStore
	engine   *SearchEngine
	effects  PlatformEffector
	subjects *keyedMutex

	guildID   uint64
	botUserID uint64
}

func NewModerationService(store InfractionStore, actions ActionStore, engine *SearchEngine, effects PlatformEffector, guildID, botUserID uint64) *ModerationService {
	return &ModerationService{
		store:     store,
		actions:   actions,
		engine:    engine,
		effects:   effects,
		subjects:  newKeyedMutex(),
		guildID:   guildID,
		botUserID: botUserID,
	}
}

// CreateInfraction persiste la infracción (+ModerationAction) y aplica el
// efecto de plataforma para mute/ban/kick. Orden de efectos: persistir
// primero; si Discord falla después, devuelve el id grabado junto con
// PlatformEffectError para que el caller reintente/reconcilie a mano.
func (s *ModerationService) CreateInfraction(ctx context.Context, typ domain.InfractionType, subjectID, createdBy uint64, reason string, duration *time.Duration) (int64, error) {
	if strings.TrimSpace(reason) == "" {
		return 0, &domain.ValidationError{Field: "reason", Msg: "must not be empty"}
	}
	if duration != nil && *duration < 0 {
		return 0, &domain.ValidationError{Field: "duration", Msg: "must not be negative"}
	}
	switch typ {
	case domain.InfractionNotice, domain.InfractionWarning, domain.InfractionMute,
		domain.InfractionBan, domain.InfractionKick:
	default:
		return 0, &domain.ValidationError{Field: "type", Msg: "unknown infraction type"}
	}

	// serializa create/rescind por sujeto; el insert condicional del store
	// es la guarda autoritativa entre procesos
	unlock := s.subjects.Lock(subjectID)
	defer unlock()

	inf := domain.Infraction{
		GuildID:   s.guildID,
		Type:      typ,
		SubjectID: subjectID,
		CreatedBy: createdBy,
		Reason:    reason,
		Duration:  duration,
	}
	id, err := s.store.Create(ctx, inf)
	if err != nil {
		return 0, err
	}
	inf.ID = id

	if typ.HasPlatformEffect() {
		if err := s.effects.ApplyEffect(ctx, inf); err != nil {
			return id, &domain.PlatformEffectError{InfractionID: id, Op: "apply", Err: err}
		}
	}
	return id, nil
}

// RescindInfraction setea los campos de rescisión (una sola vez) y
// revierte el efecto de plataforma para mute/ban. Mismo orden que create:
// el registro se comitea primero.
func (s *ModerationService) RescindInfraction(ctx context.Context, infractionID int64, rescindedBy uint64, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return &domain.ValidationError{Field: "reason", Msg: "must not be empty"}
	}

	// hay que conocer el sujeto antes de poder serializar por sujeto
	existing, err := s.store.GetByID(ctx, infractionID)
	if err != nil {
		return err
	}
	unlock := s.subjects.Lock(existing.SubjectID)
	defer unlock()

	inf, err := s.store.Rescind(ctx, infractionID, rescindedBy, reason)
	if err != nil {
		return err
	}

	if inf.Type == domain.InfractionMute || inf.Type == domain.InfractionBan {
		if err := s.effects.RevertEffect(ctx, inf); err != nil {
			return &domain.PlatformEffectError{InfractionID: infractionID, Op: "revert", Err: err}
		}
	}
	return nil
}

// SearchInfractions delega en el engine; acá no se agrega filtrado.
func (s *ModerationService) SearchInfractions(ctx context.Context, c domain.InfractionSearchCriteria, sorts []domain.SortingCriteria) ([]domain.Infraction, error) {
	return s.engine.Search(ctx, c, sorts)
}

func (s *ModerationService) SearchInfractionsPage(ctx context.Context, c domain.InfractionSearchCriteria, sorts []domain.SortingCriteria, paging domain.PagingCriteria) (domain.RecordsPage, error) {
	return s.engine.SearchPage(ctx, c, sorts, paging)
}

// GetInfraction devuelve el registro más su historial de acciones.
func (s *ModerationService) GetInfraction(ctx context.Context, infractionID int64) (domain.Infraction, []domain.ModerationAction, error) {
	inf, err := s.store.GetByID(ctx, infractionID)
	if err != nil {
		return domain.Infraction{}, nil, err
	}
	acts, err := s.actions.ListForInfraction(ctx, infractionID)
	if err != nil {
		return domain.Infraction{}, nil, err
	}
	return inf, acts, nil
}

// ExpireDue revierte el efecto de plataforma de mutes/bans cuya duración
// venció y escribe ModerationAction(expire) como marcador de procesado.
// El registro NO se rescinde: una infracción expirada simplemente dejó de
// estar activa. Si el revert falla se saltea y sale en el próximo tick.
func (s *ModerationService) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.store.ListExpiredUnhandled(ctx)
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, inf := range due {
		unlock := s.subjects.Lock(inf.SubjectID)
		if err := s.effects.RevertEffect(ctx, inf); err != nil {
			unlock()
			log.Printf("expire: revert infraction %d: %v", inf.ID, err)
			continue
		}
		err := s.actions.Insert(ctx, domain.ModerationAction{
			InfractionID: inf.ID,
			Kind:         domain.ActionExpire,
			ActorID:      s.botUserID,
			Reason:       "duration elapsed",
		})
		unlock()
		if err != nil {
			return handled, err
		}
		handled++
	}
	return handled, nil
}
