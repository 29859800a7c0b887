// Package ingest runs the measurement intake workflow: deduplicate, decode,
// validate, persist, then dispatch the created event to the alert handlers.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrosense/fieldalert/internal/correlate"
	"github.com/agrosense/fieldalert/internal/event"
	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/internal/observability"
	"github.com/agrosense/fieldalert/internal/store"
	"github.com/agrosense/fieldalert/pkg/broker"
	"github.com/agrosense/fieldalert/pkg/dedup"
)

// IncomingMeasurement is the wire shape sensors publish on the intake topic.
type IncomingMeasurement struct {
	ID              string    `json:"id,omitempty"`
	FieldID         string    `json:"field_id"`
	SensorID        string    `json:"sensor_id,omitempty"`
	SoilMoisture    float64   `json:"soil_moisture"`
	AirTemperature  float64   `json:"air_temperature"`
	PrecipitationMM float64   `json:"precipitation_mm,omitempty"`
	CollectedAt     time.Time `json:"collected_at"`
	CreatedBy       string    `json:"created_by,omitempty"`
	AlertEmail      string    `json:"alert_email,omitempty"`
}

func (in IncomingMeasurement) measurement() model.FieldMeasurement {
	return model.FieldMeasurement{
		ID:              in.ID,
		FieldID:         in.FieldID,
		SensorID:        in.SensorID,
		SoilMoisture:    in.SoilMoisture,
		AirTemperature:  in.AirTemperature,
		PrecipitationMM: in.PrecipitationMM,
		CollectedAt:     in.CollectedAt,
		CreatedBy:       in.CreatedBy,
		AlertEmail:      in.AlertEmail,
	}
}

// Service accepts raw intake deliveries and turns them into dispatched
// measurement events.
type Service struct {
	store      store.MeasurementStore
	dispatcher *event.Dispatcher
	dedup      *dedup.Deduper
	log        *slog.Logger
	metrics    *observability.Metrics
}

func NewService(st store.MeasurementStore, d *event.Dispatcher, dd *dedup.Deduper, log *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{store: st, dispatcher: d, dedup: dd, log: log, metrics: metrics}
}

// Attach binds the service to a consumer's deliveries. The context bounds the
// work spawned per message, not the subscription itself.
func (s *Service) Attach(ctx context.Context, c broker.IConsumer) {
	c.SetHandler(func(topic string, msg broker.Message) error {
		return s.Ingest(ctx, msg.Payload, msg.Properties)
	})
}

// Ingest processes one raw intake payload. Duplicates and malformed or
// invalid measurements are dropped without error: the delivery is done, there
// is nothing to retry. Persistence or dispatch failures return an error after
// the fact is logged, so redelivery can try again.
func (s *Service) Ingest(ctx context.Context, payload []byte, props map[string]string) error {
	if s.dedup.Seen(dedup.Key(payload)) {
		s.metrics.MeasurementsIngested.WithLabelValues("duplicate").Inc()
		s.log.Debug("duplicate delivery dropped", "bytes", len(payload))
		return nil
	}

	var in IncomingMeasurement
	if err := json.Unmarshal(payload, &in); err != nil {
		s.metrics.MeasurementsIngested.WithLabelValues("rejected").Inc()
		s.log.Warn("malformed measurement dropped", "error", err)
		return nil
	}

	m, err := model.NewFieldMeasurement(in.measurement())
	if err != nil {
		s.metrics.MeasurementsIngested.WithLabelValues("rejected").Inc()
		s.log.Warn("invalid measurement dropped",
			"field_id", in.FieldID, "sensor_id", in.SensorID, "error", err)
		return nil
	}

	if err := s.store.Save(ctx, m); err != nil {
		s.log.Error("measurement save failed", "measurement_id", m.ID, "field_id", m.FieldID, "error", err)
		return fmt.Errorf("save measurement %s: %w", m.ID, err)
	}
	s.metrics.MeasurementsIngested.WithLabelValues("accepted").Inc()

	ctx, corr := correlate.Ensure(correlate.WithContext(ctx, correlate.FromProperties(props)))
	s.log.Info("measurement accepted",
		"measurement_id", m.ID, "field_id", m.FieldID, "sensor_id", m.SensorID,
		"correlation_id", corr.ID)

	// The measurement is durable at this point. A handler failure surfaces to
	// the consumer loop, and the dedup guard already holds this payload, so a
	// broker redelivery inside the TTL does not rerun the handlers. There is
	// no transactional outbox; an alert can be lost where a crash lands here.
	if err := s.dispatcher.Dispatch(ctx, event.NewMeasurementCreated(m)); err != nil {
		return fmt.Errorf("dispatch measurement %s: %w", m.ID, err)
	}
	return nil
}
