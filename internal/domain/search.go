package domain

import "time"

// InfractionSearchCriteria: filtros opcionales combinados con AND.
// Todo nil/zero significa "match all".
type InfractionSearchCriteria struct {
	SubjectID      *uint64
	Type           *InfractionType
	ActiveOnly     bool
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	ReasonContains string
}

// SortField: allow-list cerrado de campos ordenables.
type SortField int

const (
	SortByCreatedAt SortField = iota
	SortByType
	SortBySubjectID
)

func (f SortField) String() string {
	switch f {
	case SortByCreatedAt:
		return "created_at"
	case SortByType:
		return "type"
	case SortBySubjectID:
		return "subject_id"
	}
	return "invalid"
}

// ParseSortField acepta los nombres expuestos en /infractions search.
func ParseSortField(s string) (SortField, bool) {
	switch s {
	case "created_at", "created":
		return SortByCreatedAt, true
	case "type":
		return SortByType, true
	case "subject_id", "subject":
		return SortBySubjectID, true
	}
	return 0, false
}

type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// SortingCriteria: (campo, dirección). En una secuencia, cada entrada
// desempata a la anterior.
type SortingCriteria struct {
	Field     SortField
	Direction SortDirection
}

// PagingCriteria define la ventana sobre el resultado ya ordenado.
type PagingCriteria struct {
	PageIndex int // >= 0
	PageSize  int // > 0
}

// RecordsPage: una página más el total de matches (para calcular páginas).
type RecordsPage struct {
	Records    []Infraction
	TotalCount int
	PageIndex  int
	PageSize   int
}
