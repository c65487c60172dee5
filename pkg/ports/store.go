package ports

import (
	"context"
	"errors"

	"github.com/aescanero/autocal/pkg/domain"
)

var (
	// ErrFieldNotFound is returned when a hash field does not exist.
	ErrFieldNotFound = errors.New("field not found")
	// ErrStatusMissing is returned when an entity has no status for a node.
	ErrStatusMissing = errors.New("calibration status missing")
)

// ParameterStore persists device parameters and calibration statuses.
// Unset values travel as domain.None and are written as "nan".
type ParameterStore interface {
	GetField(ctx context.Context, entity domain.Entity, field string) (domain.Value, error)
	SetField(ctx context.Context, entity domain.Entity, field string, value domain.Value) error
	FieldExists(ctx context.Context, entity domain.Entity, field string) (bool, error)
	GetFields(ctx context.Context, entity domain.Entity) (map[string]domain.Value, error)

	// PopulateIfAbsent writes each field only if it does not exist yet.
	PopulateIfAbsent(ctx context.Context, entity domain.Entity, fields map[string]domain.Value) error

	GetStatus(ctx context.Context, entity domain.Entity, node string) (domain.CalibrationStatus, error)
	SetStatus(ctx context.Context, entity domain.Entity, node string, status domain.CalibrationStatus) error
	// PopulateStatusIfAbsent sets not_calibrated when no status exists.
	PopulateStatusIfAbsent(ctx context.Context, entity domain.Entity, node string) error
}
