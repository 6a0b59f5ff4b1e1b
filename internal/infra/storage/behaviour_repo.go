package storage

import (
	"context"
	"database/sql"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
)

type BehaviourRepo struct{ db *sql.DB }

func NewBehaviourRepo(db *sql.DB) *BehaviourRepo { return &BehaviourRepo{db: db} }

// GetBehaviours devuelve TODAS las entradas (categoría, key, value).
// El agrupado y el parseo tipado son del BehaviourService.
func (r *BehaviourRepo) GetBehaviours(ctx context.Context) ([]domain.BehaviourEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT category, key, value
  FROM behaviours
 ORDER BY category, key
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BehaviourEntry
	for rows.Next() {
		var e domain.BehaviourEntry
		if err := rows.Scan(&e.Category, &e.Key, &e.Value); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Set upsertea una entrada cruda. Lo usa /modconfig set.
func (r *BehaviourRepo) Set(ctx context.Context, category, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO behaviours (category, key, value)
VALUES ($1, $2, $3)
ON CONFLICT (category, key) DO UPDATE SET
  value      = EXCLUDED.value,
  updated_at = now()
`, category, key, value)
	return err
}
