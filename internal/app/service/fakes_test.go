package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
	"github.com/jose-valero/guild-mod-bot/internal/infra/storage"
)

// ---------- infraction store ----------

// fakeInfractionStore replica el contrato del repo real: insert condicional
// para tipos exclusivos, acciones create/rescind escritas junto con la
// mutación, rescisión guardada una sola vez.
type fakeInfractionStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]domain.Infraction
	actions *fakeActionStore

	searchCalls int
	createErr   error
}

func newFakeInfractionStore(actions *fakeActionStore) *fakeInfractionStore {
	return &fakeInfractionStore{records: map[int64]domain.Infraction{}, actions: actions}
}

func (f *fakeInfractionStore) Create(ctx context.Context, inf domain.Infraction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}

	now := time.Now()
	if inf.Type.Exclusive() {
		for _, cur := range f.records {
			if cur.SubjectID == inf.SubjectID && cur.Type == inf.Type && cur.Active(now) {
				return 0, &domain.ConflictingInfractionError{SubjectID: inf.SubjectID, Type: inf.Type}
			}
		}
	}

	f.nextID++
	inf.ID = f.nextID
	if inf.CreatedAt.IsZero() {
		inf.CreatedAt = now
	}
	f.records[inf.ID] = inf
	f.actions.append(domain.ModerationAction{
		InfractionID: inf.ID,
		Kind:         domain.ActionCreate,
		ActorID:      inf.CreatedBy,
		Reason:       inf.Reason,
		CreatedAt:    now,
	})
	return inf.ID, nil
}

func (f *fakeInfractionStore) GetByID(ctx context.Context, id int64) (domain.Infraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inf, ok := f.records[id]
	if !ok {
		return domain.Infraction{}, &domain.NotFoundError{InfractionID: id}
	}
	return inf, nil
}

func (f *fakeInfractionStore) Rescind(ctx context.Context, id int64, rescindedBy uint64, reason string) (domain.Infraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inf, ok := f.records[id]
	if !ok {
		return domain.Infraction{}, &domain.NotFoundError{InfractionID: id}
	}
	if inf.RescindedAt != nil {
		return domain.Infraction{}, &domain.AlreadyRescindedError{InfractionID: id}
	}
	now := time.Now()
	inf.RescindedAt = &now
	inf.RescindedBy = &rescindedBy
	f.records[id] = inf
	f.actions.append(domain.ModerationAction{
		InfractionID: id,
		Kind:         domain.ActionRescind,
		ActorID:      rescindedBy,
		Reason:       reason,
		CreatedAt:    now,
	})
	return inf, nil
}

func (f *fakeInfractionStore) Search(ctx context.Context, c domain.InfractionSearchCriteria) ([]domain.Infraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++

	now := time.Now()
	var out []domain.Infraction
	for id := int64(1); id <= f.nextID; id++ {
		inf, ok := f.records[id]
		if ok && matchesCriteria(inf, c, now) {
			out = append(out, inf)
		}
	}
	return out, nil
}

func (f *fakeInfractionStore) ListExpiredUnhandled(ctx context.Context) ([]domain.Infraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	var out []domain.Infraction
	for id := int64(1); id <= f.nextID; id++ {
		inf, ok := f.records[id]
		if !ok || !inf.Type.Exclusive() || inf.RescindedAt != nil || inf.Duration == nil {
			continue
		}
		if exp, _ := inf.ExpiresAt(); exp.After(now) {
			continue
		}
		if f.actions.hasKind(id, domain.ActionExpire) {
			continue
		}
		out = append(out, inf)
	}
	return out, nil
}

// matchesCriteria implementa la misma conjunción que buildSearchWhere.
func matchesCriteria(inf domain.Infraction, c domain.InfractionSearchCriteria, now time.Time) bool {
	if c.SubjectID != nil && inf.SubjectID != *c.SubjectID {
		return false
	}
	if c.Type != nil && inf.Type != *c.Type {
		return false
	}
	if c.ActiveOnly && !inf.Active(now) {
		return false
	}
	if c.CreatedAfter != nil && inf.CreatedAt.Before(*c.CreatedAfter) {
		return false
	}
	if c.CreatedBefore != nil && inf.CreatedAt.After(*c.CreatedBefore) {
		return false
	}
	if c.ReasonContains != "" && !strings.Contains(strings.ToLower(inf.Reason), strings.ToLower(c.ReasonContains)) {
		return false
	}
	return true
}

// ---------- action store ----------

type fakeActionStore struct {
	mu      sync.Mutex
	entries []domain.ModerationAction
}

func newFakeActionStore() *fakeActionStore { return &fakeActionStore{} }

func (f *fakeActionStore) Insert(ctx context.Context, a domain.ModerationAction) error {
	f.append(a)
	return nil
}

func (f *fakeActionStore) append(a domain.ModerationAction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = int64(len(f.entries) + 1)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	f.entries = append(f.entries, a)
}

func (f *fakeActionStore) ListForInfraction(ctx context.Context, infractionID int64) ([]domain.ModerationAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ModerationAction
	for _, a := range f.entries {
		if a.InfractionID == infractionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeActionStore) hasKind(infractionID int64, kind domain.ActionKind) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.entries {
		if a.InfractionID == infractionID && a.Kind == kind {
			return true
		}
	}
	return false
}

func (f *fakeActionStore) countKind(infractionID int64, kind domain.ActionKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.entries {
		if a.InfractionID == infractionID && a.Kind == kind {
			n++
		}
	}
	return n
}

// ---------- platform effector ----------

type fakeEffector struct {
	mu        sync.Mutex
	applied   []int64
	reverted  []int64
	applyErr  error
	revertErr error
}

func (f *fakeEffector) ApplyEffect(ctx context.Context, inf domain.Infraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, inf.ID)
	return nil
}

func (f *fakeEffector) RevertEffect(ctx context.Context, inf domain.Infraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revertErr != nil {
		return f.revertErr
	}
	f.reverted = append(f.reverted, inf.ID)
	return nil
}

func (f *fakeEffector) revertedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.reverted...)
}

// ---------- guild client ----------

type fakeGuildClient struct {
	mu         sync.Mutex
	roles      []RoleInfo
	channels   map[uint64]*ChannelInfo
	nextRoleID uint64

	setCalls    int
	deleteCalls int
	roleCreates int

	failSet    map[uint64]error // channel id → error en SetRoleOverwrite
	failDelete map[uint64]error

	memberRoles map[uint64]map[uint64]bool // user → roles
	banned      map[uint64]bool
	kicked      []uint64
}

func newFakeGuildClient() *fakeGuildClient {
	return &fakeGuildClient{
		channels:    map[uint64]*ChannelInfo{},
		nextRoleID:  1000,
		failSet:     map[uint64]error{},
		failDelete:  map[uint64]error{},
		memberRoles: map[uint64]map[uint64]bool{},
		banned:      map[uint64]bool{},
	}
}

func (f *fakeGuildClient) addChannel(id uint64, kind ChannelKind) {
	f.channels[id] = &ChannelInfo{ID: id, Kind: kind}
}

func (f *fakeGuildClient) Roles(ctx context.Context, guildID uint64) ([]RoleInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RoleInfo(nil), f.roles...), nil
}

func (f *fakeGuildClient) CreateRole(ctx context.Context, guildID uint64, name string) (RoleInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRoleID++
	f.roleCreates++
	r := RoleInfo{ID: f.nextRoleID, Name: name}
	f.roles = append(f.roles, r)
	return r, nil
}

func (f *fakeGuildClient) Channels(ctx context.Context, guildID uint64) ([]ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint64, 0, len(f.channels))
	for id := range f.channels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]ChannelInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.channels[id])
	}
	return out, nil
}

func (f *fakeGuildClient) Channel(ctx context.Context, channelID uint64) (ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return ChannelInfo{}, fmt.Errorf("channel %d not found", channelID)
	}
	return *ch, nil
}

func (f *fakeGuildClient) SetRoleOverwrite(ctx context.Context, channelID, roleID uint64, allow, deny int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSet[channelID]; err != nil {
		return err
	}
	f.setCalls++
	ch := f.channels[channelID]
	for i, ow := range ch.Overwrites {
		if ow.IsRole && ow.TargetID == roleID {
			ch.Overwrites[i].Allow = allow
			ch.Overwrites[i].Deny = deny
			return nil
		}
	}
	ch.Overwrites = append(ch.Overwrites, OverwriteState{TargetID: roleID, IsRole: true, Allow: allow, Deny: deny})
	return nil
}

func (f *fakeGuildClient) DeleteOverwrite(ctx context.Context, channelID, targetID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDelete[channelID]; err != nil {
		return err
	}
	f.deleteCalls++
	ch, ok := f.channels[channelID]
	if !ok {
		return nil
	}
	for i, ow := range ch.Overwrites {
		if ow.TargetID == targetID {
			ch.Overwrites = append(ch.Overwrites[:i], ch.Overwrites[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeGuildClient) AddRole(ctx context.Context, guildID, userID, roleID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberRoles[userID] == nil {
		f.memberRoles[userID] = map[uint64]bool{}
	}
	f.memberRoles[userID][roleID] = true
	return nil
}

func (f *fakeGuildClient) RemoveRole(ctx context.Context, guildID, userID, roleID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.memberRoles[userID], roleID)
	return nil
}

func (f *fakeGuildClient) Ban(ctx context.Context, guildID, userID uint64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned[userID] = true
	return nil
}

func (f *fakeGuildClient) Unban(ctx context.Context, guildID, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.banned, userID)
	return nil
}

func (f *fakeGuildClient) Kick(ctx context.Context, guildID, userID uint64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicked = append(f.kicked, userID)
	return nil
}

// ---------- overwrite store ----------

type owKey struct{ guild, channel, target uint64 }

type fakeOverwriteStore struct {
	mu      sync.Mutex
	rows    map[owKey]storage.TrackedOverwrite
	removed map[owKey]bool
}

func newFakeOverwriteStore() *fakeOverwriteStore {
	return &fakeOverwriteStore{rows: map[owKey]storage.TrackedOverwrite{}, removed: map[owKey]bool{}}
}

func (f *fakeOverwriteStore) Record(ctx context.Context, o storage.TrackedOverwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := owKey{o.GuildID, o.ChannelID, o.TargetID}
	f.rows[k] = o
	delete(f.removed, k)
	return nil
}

func (f *fakeOverwriteStore) ListActive(ctx context.Context, guildID uint64) ([]storage.TrackedOverwrite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.TrackedOverwrite
	for k, o := range f.rows {
		if k.guild == guildID && !f.removed[k] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOverwriteStore) ListActiveByChannels(ctx context.Context, guildID uint64, channelIDs []uint64) ([]storage.TrackedOverwrite, error) {
	all, _ := f.ListActive(ctx, guildID)
	var out []storage.TrackedOverwrite
	for _, o := range all {
		for _, c := range channelIDs {
			if o.ChannelID == c {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

func (f *fakeOverwriteStore) MarkRemoved(ctx context.Context, guildID, channelID, targetID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed[owKey{guildID, channelID, targetID}] = true
	return nil
}

func (f *fakeOverwriteStore) activeCount(guildID uint64) int {
	rows, _ := f.ListActive(context.Background(), guildID)
	return len(rows)
}

// ---------- behaviour store ----------

type fakeBehaviourStore struct {
	mu      sync.Mutex
	entries []domain.BehaviourEntry
	err     error
}

func (f *fakeBehaviourStore) GetBehaviours(ctx context.Context) ([]domain.BehaviourEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.BehaviourEntry(nil), f.entries...), nil
}

func (f *fakeBehaviourStore) Set(ctx context.Context, category, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].Category == category && f.entries[i].Key == key {
			f.entries[i].Value = value
			return nil
		}
	}
	f.entries = append(f.entries, domain.BehaviourEntry{Category: category, Key: key, Value: value})
	return nil
}

func (f *fakeBehaviourStore) set(entries []domain.BehaviourEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = entries
}
