package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
)

type InfractionRepo struct{ db *sql.DB }

func NewInfractionRepo(db *sql.DB) *InfractionRepo { return &InfractionRepo{db: db} }

const infractionCols = `id, guild_id, type, subject_id, created_by, created_at, duration_secs, reason, rescinded_at, rescinded_by`

// Create persiste la infracción + su ModerationAction(create) en una tx.
// Para tipos exclusivos (mute/ban) el INSERT es condicional: si ya hay una
// infracción activa del mismo tipo para el sujeto, no inserta y devuelve
// ConflictingInfractionError. El advisory lock por sujeto hace el chequeo
// race-safe entre procesos (el check-then-insert solo no alcanza bajo
// read committed).
func (r *InfractionRepo) Create(ctx context.Context, inf domain.Infraction) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if inf.Type.Exclusive() {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(inf.SubjectID)); err != nil {
			return 0, err
		}
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
INSERT INTO infractions (guild_id, type, subject_id, created_by, reason, duration_secs)
SELECT $1, $2, $3, $4, $5, $6
 WHERE NOT ( $7::bool AND EXISTS (
         SELECT 1 FROM infractions
          WHERE subject_id = $3
            AND type       = $2
            AND rescinded_at IS NULL
            AND (duration_secs IS NULL OR created_at + make_interval(secs => duration_secs) > now())
       ))
RETURNING id
`,
		int64(inf.GuildID), int16(inf.Type), int64(inf.SubjectID), int64(inf.CreatedBy),
		inf.Reason, durationSecs(inf.Duration), inf.Type.Exclusive(),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, &domain.ConflictingInfractionError{SubjectID: inf.SubjectID, Type: inf.Type}
	}
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO moderation_actions (infraction_id, kind, actor_id, reason)
VALUES ($1, $2, $3, $4)
`, id, int16(domain.ActionCreate), int64(inf.CreatedBy), inf.Reason); err != nil {
		return 0, err
	}

	return id, tx.Commit()
}

func (r *InfractionRepo) GetByID(ctx context.Context, id int64) (domain.Infraction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+infractionCols+`
  FROM infractions
 WHERE id = $1
`, id)
	inf, err := scanInfraction(row)
	if err == sql.ErrNoRows {
		return domain.Infraction{}, &domain.NotFoundError{InfractionID: id}
	}
	return inf, err
}

// Rescind setea los campos de rescisión exactamente una vez (UPDATE
// guardado con rescinded_at IS NULL) y escribe la ModerationAction(rescind)
// en la misma tx. Devuelve la infracción ya actualizada; el caller la
// necesita para revertir el efecto de plataforma.
func (r *InfractionRepo) Rescind(ctx context.Context, id int64, rescindedBy uint64, reason string) (domain.Infraction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Infraction{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
UPDATE infractions
   SET rescinded_at = now(), rescinded_by = $2
 WHERE id = $1 AND rescinded_at IS NULL
RETURNING `+infractionCols+`
`, id, int64(rescindedBy))
	inf, err := scanInfraction(row)
	if err == sql.ErrNoRows {
		// ¿no existe, o ya estaba rescindida?
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM infractions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return domain.Infraction{}, err
		}
		if !exists {
			return domain.Infraction{}, &domain.NotFoundError{InfractionID: id}
		}
		return domain.Infraction{}, &domain.AlreadyRescindedError{InfractionID: id}
	}
	if err != nil {
		return domain.Infraction{}, err
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO moderation_actions (infraction_id, kind, actor_id, reason)
VALUES ($1, $2, $3, $4)
`, id, int16(domain.ActionRescind), int64(rescindedBy), reason); err != nil {
		return domain.Infraction{}, err
	}

	return inf, tx.Commit()
}

// Search aplica los filtros de criteria como conjunción. El orden fino
// (multi-key, estable) lo hace el search engine en memoria; acá sólo
// garantizamos un orden base determinista por id.
func (r *InfractionRepo) Search(ctx context.Context, c domain.InfractionSearchCriteria) ([]domain.Infraction, error) {
	where, args := buildSearchWhere(c)
	q := `SELECT ` + infractionCols + ` FROM infractions`
	if where != "" {
		q += "\n WHERE " + where
	}
	q += "\n ORDER BY id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Infraction
	for rows.Next() {
		inf, err := scanInfraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inf)
	}
	return out, rows.Err()
}

// ListExpiredUnhandled: mutes/bans con duración vencida, no rescindidos,
// que todavía no tienen ModerationAction(expire). El log de auditoría hace
// de marcador: procesado una vez, no vuelve a salir.
func (r *InfractionRepo) ListExpiredUnhandled(ctx context.Context) ([]domain.Infraction, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+qualify(infractionCols, "i")+`
  FROM infractions i
 WHERE i.rescinded_at IS NULL
   AND i.duration_secs IS NOT NULL
   AND i.created_at + make_interval(secs => i.duration_secs) <= now()
   AND i.type IN ($1, $2)
   AND NOT EXISTS (
         SELECT 1 FROM moderation_actions a
          WHERE a.infraction_id = i.id AND a.kind = $3
       )
 ORDER BY i.id ASC
`, int16(domain.InfractionMute), int16(domain.InfractionBan), int16(domain.ActionExpire))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Infraction
	for rows.Next() {
		inf, err := scanInfraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inf)
	}
	return out, rows.Err()
}

// ---------- helpers ----------

func buildSearchWhere(c domain.InfractionSearchCriteria) (string, []any) {
	conds := make([]string, 0, 6)
	args := make([]any, 0, 6)
	n := func() int { return len(args) }

	if c.SubjectID != nil {
		args = append(args, int64(*c.SubjectID))
		conds = append(conds, fmt.Sprintf("subject_id = $%d", n()))
	}
	if c.Type != nil {
		args = append(args, int16(*c.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", n()))
	}
	if c.ActiveOnly {
		conds = append(conds, "rescinded_at IS NULL AND (duration_secs IS NULL OR created_at + make_interval(secs => duration_secs) > now())")
	}
	if c.CreatedAfter != nil {
		args = append(args, *c.CreatedAfter)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", n()))
	}
	if c.CreatedBefore != nil {
		args = append(args, *c.CreatedBefore)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", n()))
	}
	if c.ReasonContains != "" {
		args = append(args, "%"+c.ReasonContains+"%")
		conds = append(conds, fmt.Sprintf("reason ILIKE $%d", n()))
	}
	return strings.Join(conds, " AND "), args
}

type rowScanner interface{ Scan(dest ...any) error }

func scanInfraction(row rowScanner) (domain.Infraction, error) {
	var (
		inf         domain.Infraction
		guildID     int64
		typ         int16
		subjectID   int64
		createdBy   int64
		durSecs     sql.NullInt64
		rescindedBy sql.NullInt64
	)
	err := row.Scan(&inf.ID, &guildID, &typ, &subjectID, &createdBy,
		&inf.CreatedAt, &durSecs, &inf.Reason, &inf.RescindedAt, &rescindedBy)
	if err != nil {
		return domain.Infraction{}, err
	}
	inf.GuildID = uint64(guildID)
	inf.Type = domain.InfractionType(typ)
	inf.SubjectID = uint64(subjectID)
	inf.CreatedBy = uint64(createdBy)
	if durSecs.Valid {
		d := time.Duration(durSecs.Int64) * time.Second
		inf.Duration = &d
	}
	if rescindedBy.Valid {
		b := uint64(rescindedBy.Int64)
		inf.RescindedBy = &b
	}
	return inf, nil
}

func durationSecs(d *time.Duration) any {
	if d == nil {
		return nil
	}
	return int64(d.Seconds())
}

func qualify(cols, alias string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
