package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
)

// Lo implementa internal/infra/storage.InfractionRepo (subset de lectura).
type SearchStore interface {
	Search(ctx context.Context, c domain.InfractionSearchCriteria) ([]domain.Infraction, error)
}

// SearchEngine: filtrado vía store (conjunción de criteria), orden y paging
// acá, en memoria. Nunca toca Discord. Cada llamada re-consulta: el
// resultado es un snapshot fresco, sin cursor entre llamadas.
type SearchEngine struct {
	store SearchStore
}

func NewSearchEngine(store SearchStore) *SearchEngine { return &SearchEngine{store: store} }

// Search devuelve el resultado completo, ordenado de forma estable y
// determinista (desempate final por id ascendente).
func (e *SearchEngine) Search(ctx context.Context, c domain.InfractionSearchCriteria, sorts []domain.SortingCriteria) ([]domain.Infraction, error) {
	if err := validateSorting(sorts); err != nil {
		return nil, err
	}
	records, err := e.store.Search(ctx, c)
	if err != nil {
		return nil, err
	}
	sortInfractions(records, sorts)
	return records, nil
}

// SearchPage: mismo filtrado+orden, más la ventana [idx*size, idx*size+size).
// PageIndex fuera de rango devuelve página vacía, no error.
func (e *SearchEngine) SearchPage(ctx context.Context, c domain.InfractionSearchCriteria, sorts []domain.SortingCriteria, paging domain.PagingCriteria) (domain.RecordsPage, error) {
	if paging.PageIndex < 0 {
		return domain.RecordsPage{}, &domain.ValidationError{Field: "pageIndex", Msg: "must be >= 0"}
	}
	if paging.PageSize <= 0 {
		return domain.RecordsPage{}, &domain.ValidationError{Field: "pageSize", Msg: "must be > 0"}
	}

	records, err := e.Search(ctx, c, sorts)
	if err != nil {
		return domain.RecordsPage{}, err
	}

	start := paging.PageIndex * paging.PageSize
	// lo.Slice recorta fuera de rango sin panics
	page := lo.Slice(records, start, start+paging.PageSize)

	return domain.RecordsPage{
		Records:    page,
		TotalCount: len(records),
		PageIndex:  paging.PageIndex,
		PageSize:   paging.PageSize,
	}, nil
}

// validateSorting corre ANTES de cualquier query: campo fuera del
// allow-list = InvalidSortFieldError, sin ejecución parcial.
func validateSorting(sorts []domain.SortingCriteria) error {
	for _, s := range sorts {
		switch s.Field {
		case domain.SortByCreatedAt, domain.SortByType, domain.SortBySubjectID:
		default:
			return &domain.InvalidSortFieldError{Field: fmt.Sprintf("%s (%d)", s.Field, int(s.Field))}
		}
	}
	return nil
}

func sortInfractions(records []domain.Infraction, sorts []domain.SortingCriteria) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		for _, s := range sorts {
			c := compareBy(a, b, s.Field)
			if c == 0 {
				continue
			}
			if s.Direction == domain.Descending {
				return c > 0
			}
			return c < 0
		}
		// desempate determinista para que el paging sea estable
		return a.ID < b.ID
	})
}

func compareBy(a, b domain.Infraction, f domain.SortField) int {
	switch f {
	case domain.SortByCreatedAt:
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return 1
		}
	case domain.SortByType:
		if a.Type != b.Type {
			if a.Type < b.Type {
				return -1
			}
			return 1
		}
	case domain.SortBySubjectID:
		if a.SubjectID != b.SubjectID {
			if a.SubjectID < b.SubjectID {
				return -1
			}
			return 1
		}
	}
	return 0
}
