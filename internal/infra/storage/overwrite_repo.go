package storage

import (
	"context"
	"database/sql"
	"time"

	pq "github.com/lib/pq"
)

// TrackedOverwrite es el marcador de un permission overwrite que aplicó el
// bot. UnConfigure sólo revierte filas trackeadas: jamás tocamos overwrites
// que no creamos nosotros.
type TrackedOverwrite struct {
	GuildID    uint64
	ChannelID  uint64
	TargetID   uint64
	TargetType string // por ahora siempre "role"
	AllowBits  int64
	DenyBits   int64
	AppliedAt  time.Time
}

type OverwriteRepo struct{ db *sql.DB }

func NewOverwriteRepo(db *sql.DB) *OverwriteRepo { return &OverwriteRepo{db: db} }

// Record marca el overwrite como aplicado (revive filas soft-deleted).
func (r *OverwriteRepo) Record(ctx context.Context, o TrackedOverwrite) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO configured_overwrites
  (guild_id, channel_id, target_id, target_type, allow_bits, deny_bits, removed_at)
VALUES ($1, $2, $3, $4, $5, $6, NULL)
ON CONFLICT (guild_id, channel_id, target_id) DO UPDATE SET
  target_type = EXCLUDED.target_type,
  allow_bits  = EXCLUDED.allow_bits,
  deny_bits   = EXCLUDED.deny_bits,
  applied_at  = now(),
  removed_at  = NULL
`, int64(o.GuildID), int64(o.ChannelID), int64(o.TargetID), o.TargetType, o.AllowBits, o.DenyBits)
	return err
}

func (r *OverwriteRepo) ListActive(ctx context.Context, guildID uint64) ([]TrackedOverwrite, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT guild_id, channel_id, target_id, target_type, allow_bits, deny_bits, applied_at
  FROM configured_overwrites
 WHERE guild_id = $1 AND removed_at IS NULL
`, int64(guildID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOverwrites(rows)
}

// ListActiveByChannels: lookup en bloque para un subconjunto de canales
// (p.ej. soltar el tracking cuando se borra un canal).
func (r *OverwriteRepo) ListActiveByChannels(ctx context.Context, guildID uint64, channelIDs []uint64) ([]TrackedOverwrite, error) {
	if len(channelIDs) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(channelIDs))
	for i, c := range channelIDs {
		ids[i] = int64(c)
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT guild_id, channel_id, target_id, target_type, allow_bits, deny_bits, applied_at
  FROM configured_overwrites
 WHERE guild_id = $1 AND channel_id = ANY($2) AND removed_at IS NULL
`, int64(guildID), pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOverwrites(rows)
}

// MarkRemoved hace soft-delete del marcador (el janitor purga después).
func (r *OverwriteRepo) MarkRemoved(ctx context.Context, guildID, channelID, targetID uint64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE configured_overwrites
   SET removed_at = now()
 WHERE guild_id = $1 AND channel_id = $2 AND target_id = $3 AND removed_at IS NULL
`, int64(guildID), int64(channelID), int64(targetID))
	return err
}

func collectOverwrites(rows *sql.Rows) ([]TrackedOverwrite, error) {
	var out []TrackedOverwrite
	for rows.Next() {
		var (
			o                 TrackedOverwrite
			guild, ch, target int64
		)
		if err := rows.Scan(&guild, &ch, &target, &o.TargetType, &o.AllowBits, &o.DenyBits, &o.AppliedAt); err != nil {
			return nil, err
		}
		o.GuildID = uint64(guild)
		o.ChannelID = uint64(ch)
		o.TargetID = uint64(target)
		out = append(out, o)
	}
	return out, rows.Err()
}
