package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound lo devuelven los repos cuando no hay fila.
var ErrNotFound = errors.New("not found")

// ValidationError: input mal formado. Se reporta al caller, no se reintenta.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// NotFoundError: la infracción referida no existe.
type NotFoundError struct {
	InfractionID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("infraction %d not found", e.InfractionID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadyRescindedError: segunda rescisión sobre la misma infracción.
type AlreadyRescindedError struct {
	InfractionID int64
}

func (e *AlreadyRescindedError) Error() string {
	return fmt.Sprintf("infraction %d is already rescinded", e.InfractionID)
}

// ConflictingInfractionError: ya existe mute/ban activo para el sujeto.
// Es una falla de validación del create (input rechazado, no se reintenta),
// así que destapa a ValidationError; el tipo concreto conserva el contexto.
type ConflictingInfractionError struct {
	SubjectID uint64
	Type      InfractionType
}

func (e *ConflictingInfractionError) Error() string {
	return fmt.Sprintf("subject %d already has an active %s", e.SubjectID, e.Type)
}

func (e *ConflictingInfractionError) Unwrap() error {
	return &ValidationError{Field: "type", Msg: e.Error()}
}

// PlatformEffectError: la infracción quedó persistida pero el efecto del
// lado de Discord falló. El caller decide reintentar; el registro NO se
// revierte (el audit trail no puede desaparecer en silencio).
type PlatformEffectError struct {
	InfractionID int64
	Op           string // "apply" | "revert"
	Err          error
}

func (e *PlatformEffectError) Error() string {
	return fmt.Sprintf("infraction %d recorded, but platform %s failed: %v", e.InfractionID, e.Op, e.Err)
}

func (e *PlatformEffectError) Unwrap() error { return e.Err }

// PartialConfigurationError: fallas individuales de reconciliación agrupadas.
// Los targets independientes que sí funcionaron quedan aplicados.
type PartialConfigurationError struct {
	GuildID uint64
	Failed  int
	Err     error // multierr con una entrada por target
}

func (e *PartialConfigurationError) Error() string {
	return fmt.Sprintf("guild %d: %d configuration target(s) failed: %v", e.GuildID, e.Failed, e.Err)
}

func (e *PartialConfigurationError) Unwrap() error { return e.Err }

// ConfigurationError: falla fatal al cargar behaviour configuration.
// Nombra la key que faltó o no parseó; la carga entera se aborta.
type ConfigurationError struct {
	Category string
	Key      string
	Err      error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("behaviour config %s/%s: %v", e.Category, e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InvalidSortFieldError: campo de orden fuera del allow-list. Se falla
// antes de ejecutar cualquier query.
type InvalidSortFieldError struct {
	Field string
}

func (e *InvalidSortFieldError) Error() string {
	return fmt.Sprintf("invalid sort field %q", e.Field)
}
