package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/agrosense/fieldalert/internal/model"
)

// Breaker trip policy: a handful of consecutive read failures opens the
// circuit so a struggling database is not hammered by every incoming
// measurement; reads resume after the open interval.
const (
	breakerConsecutiveFails = 3
	breakerOpenFor          = 10 * time.Second
	breakerCountInterval    = 60 * time.Second
)

// BreakerStore decorates a MeasurementStore with a circuit breaker around the
// read path. Writes pass through untouched: a failed save already fails the
// ingesting request on its own.
type BreakerStore struct {
	inner MeasurementStore
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerStore(inner MeasurementStore) *BreakerStore {
	return &BreakerStore{
		inner: inner,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "measurement-store",
			Interval: breakerCountInterval,
			Timeout:  breakerOpenFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= breakerConsecutiveFails
			},
		}),
	}
}

func (s *BreakerStore) Save(ctx context.Context, m model.FieldMeasurement) error {
	return s.inner.Save(ctx, m)
}

// GetByFieldAndRange runs the read under the breaker. An open circuit
// surfaces as a wrapped gobreaker.ErrOpenState, which handlers treat like any
// other transient store failure.
func (s *BreakerStore) GetByFieldAndRange(ctx context.Context, fieldID string, from, to time.Time) ([]model.FieldMeasurement, error) {
	res, err := s.cb.Execute(func() (any, error) {
		return s.inner.GetByFieldAndRange(ctx, fieldID, from, to)
	})
	if err != nil {
		return nil, fmt.Errorf("history read for field %s: %w", fieldID, err)
	}
	return res.([]model.FieldMeasurement), nil
}
