// Package event defines the occurrences the alerting core reacts to and the
// dispatcher that fans them out to registered handlers.
package event

import (
	"context"
	"time"

	"github.com/agrosense/fieldalert/internal/model"
)

// Kind tags the closed set of event variants. Dispatch matches on the tag,
// never on reflection.
type Kind string

// KindMeasurementCreated fires once per measurement accepted at ingestion.
const KindMeasurementCreated Kind = "measurement.created"

// Event is one domain occurrence.
type Event interface {
	Kind() Kind
	OccurredAt() time.Time
}

// MeasurementCreated carries the full snapshot of a just-persisted
// measurement so handlers never re-read what triggered them.
type MeasurementCreated struct {
	Measurement model.FieldMeasurement
	At          time.Time
}

func (e MeasurementCreated) Kind() Kind            { return KindMeasurementCreated }
func (e MeasurementCreated) OccurredAt() time.Time { return e.At }

// NewMeasurementCreated stamps the event with the measurement's receipt time,
// falling back to collection time when the receipt stamp is missing.
func NewMeasurementCreated(m model.FieldMeasurement) MeasurementCreated {
	at := m.ReceivedAt
	if at.IsZero() {
		at = m.CollectedAt
	}
	return MeasurementCreated{Measurement: m, At: at}
}

// Handler reacts to a single kind of event. Name identifies it in logs and
// metrics.
type Handler interface {
	Name() string
	Kind() Kind
	Handle(ctx context.Context, ev Event) error
}
