package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/df-mc/atomic"
	"github.com/samber/lo"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
)

var errMissingKey = errors.New("key missing")

// Behaviours es el snapshot tipado completo. Se reemplaza entero en cada
// carga exitosa; los lectores nunca ven un estado a medio actualizar.
type Behaviours struct {
	InvitePurge domain.InvitePurgeBehaviour
	LoadedAt    time.Time
}

// BehaviourService carga las behaviour entries crudas del store y las baja
// a structs tipados de una sola vez (nada de lookups por string regados
// por los call sites). Carga fail-fast: key faltante o que no parsea =
// ConfigurationError y el snapshot anterior queda intacto.
type BehaviourService struct {
	repo BehaviourStore
	cur  atomic.Value[*Behaviours]
}

func NewBehaviourService(repo BehaviourStore) *BehaviourService {
	return &BehaviourService{repo: repo, cur: *atomic.NewValue[*Behaviours](nil)}
}

// Load lee todas las entradas, arma el snapshot completo y lo swapea
// atómicamente. Cualquier error deja la configuración previa como estaba.
func (s *BehaviourService) Load(ctx context.Context) error {
	entries, err := s.repo.GetBehaviours(ctx)
	if err != nil {
		return err
	}
	byCategory := lo.GroupBy(entries, func(e domain.BehaviourEntry) string { return e.Category })

	invitePurge, err := buildInvitePurge(byCategory[domain.CategoryInvitePurging])
	if err != nil {
		return err
	}

	s.cur.Store(&Behaviours{
		InvitePurge: invitePurge,
		LoadedAt:    time.Now(),
	})
	return nil
}

// Update upsertea una entrada cruda y recarga. Si el nuevo valor rompe la
// carga, el error nombra la key y el snapshot vigente no cambia.
func (s *BehaviourService) Update(ctx context.Context, category, key, value string) error {
	if err := s.repo.Set(ctx, category, key, value); err != nil {
		return err
	}
	return s.Load(ctx)
}

// Loaded dice si ya hubo al menos una carga exitosa.
func (s *BehaviourService) Loaded() bool { return s.cur.Load() != nil }

// InvitePurge devuelve la vista tipada vigente. Zero value si nunca cargó.
func (s *BehaviourService) InvitePurge() domain.InvitePurgeBehaviour {
	if b := s.cur.Load(); b != nil {
		return b.InvitePurge
	}
	return domain.InvitePurgeBehaviour{}
}

func buildInvitePurge(entries []domain.BehaviourEntry) (domain.InvitePurgeBehaviour, error) {
	var out domain.InvitePurgeBehaviour

	raw, err := requireKey(entries, domain.KeyIsEnabled)
	if err != nil {
		return out, err
	}
	if out.IsEnabled, err = strconv.ParseBool(raw); err != nil {
		return out, confErr(domain.KeyIsEnabled, err)
	}

	if raw, err = requireKey(entries, domain.KeyExemptRoleIDs); err != nil {
		return out, err
	}
	if err = json.Unmarshal([]byte(raw), &out.ExemptRoleIDs); err != nil {
		return out, confErr(domain.KeyExemptRoleIDs, err)
	}

	if raw, err = requireKey(entries, domain.KeyLoggingChannelID); err != nil {
		return out, err
	}
	if out.LoggingChannelID, err = strconv.ParseUint(raw, 10, 64); err != nil {
		return out, confErr(domain.KeyLoggingChannelID, err)
	}

	return out, nil
}

func requireKey(entries []domain.BehaviourEntry, key string) (string, error) {
	e, ok := lo.Find(entries, func(e domain.BehaviourEntry) bool { return e.Key == key })
	if !ok {
		return "", confErr(key, errMissingKey)
	}
	return e.Value, nil
}

func confErr(key string, err error) *domain.ConfigurationError {
	return &domain.ConfigurationError{Category: domain.CategoryInvitePurging, Key: key, Err: err}
}
