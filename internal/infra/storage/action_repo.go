package storage

import (
	"context"
	"database/sql"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
)

type ActionRepo struct{ db *sql.DB }

func NewActionRepo(db *sql.DB) *ActionRepo { return &ActionRepo{db: db} }

// Insert escribe una entrada del log de moderación. Las entradas create y
// rescind las escribe InfractionRepo dentro de su tx; esto lo usa el loop
// de expiración (kind=expire).
func (r *ActionRepo) Insert(ctx context.Context, a domain.ModerationAction) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO moderation_actions (infraction_id, kind, actor_id, reason)
VALUES ($1, $2, $3, $4)
`, a.InfractionID, int16(a.Kind), int64(a.ActorID), a.Reason)
	return err
}

func (r *ActionRepo) ListForInfraction(ctx context.Context, infractionID int64) ([]domain.ModerationAction, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, infraction_id, kind, actor_id, reason, created_at
  FROM moderation_actions
 WHERE infraction_id = $1
 ORDER BY id ASC
`, infractionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ModerationAction
	for rows.Next() {
		var (
			a     domain.ModerationAction
			kind  int16
			actor int64
		)
		if err := rows.Scan(&a.ID, &a.InfractionID, &kind, &actor, &a.Reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Kind = domain.ActionKind(kind)
		a.ActorID = uint64(actor)
		out = append(out, a)
	}
	return out, rows.Err()
}
