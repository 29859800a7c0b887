// Package store persists field measurements and serves the windowed history
// reads the alert handlers run on.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/agrosense/fieldalert/internal/model"
)

// ErrNotReady marks a store whose backing database is unreachable.
var ErrNotReady = errors.New("measurement store not ready")

// MeasurementStore is the primary persistence contract: durable writes and
// windowed reads ordered ascending by collection time.
type MeasurementStore interface {
	Save(ctx context.Context, m model.FieldMeasurement) error
	GetByFieldAndRange(ctx context.Context, fieldID string, from, to time.Time) ([]model.FieldMeasurement, error)
}

// Reader is the read-only slice of the store the alert handlers depend on.
type Reader interface {
	GetByFieldAndRange(ctx context.Context, fieldID string, from, to time.Time) ([]model.FieldMeasurement, error)
}
