package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/query"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/internal/observability"
)

// measurementName is the InfluxDB measurement every reading lands in.
const measurementName = "field_measurement"

// InfluxStore persists measurements through the blocking write API and reads
// history windows back with Flux.
type InfluxStore struct {
	client  influxdb2.Client
	write   api.WriteAPIBlocking
	query   api.QueryAPI
	bucket  string
	log     *slog.Logger
	metrics *observability.Metrics
}

func NewInfluxStore(client influxdb2.Client, org, bucket string, log *slog.Logger, metrics *observability.Metrics) *InfluxStore {
	return &InfluxStore{
		client:  client,
		write:   client.WriteAPIBlocking(org, bucket),
		query:   client.QueryAPI(org),
		bucket:  bucket,
		log:     log,
		metrics: metrics,
	}
}

// Save writes one measurement point. The call returns only after the write is
// durable, so dispatch never runs ahead of persistence.
func (s *InfluxStore) Save(ctx context.Context, m model.FieldMeasurement) error {
	if err := s.write.WritePoint(ctx, measurementPoint(m)); err != nil {
		return fmt.Errorf("write measurement %s: %w", m.ID, err)
	}
	s.log.Debug("measurement stored", "measurement_id", m.ID, "field_id", m.FieldID)
	return nil
}

// GetByFieldAndRange returns the field's measurements collected in [from, to],
// ordered ascending by collection time. No readings yields an empty slice.
func (s *InfluxStore) GetByFieldAndRange(ctx context.Context, fieldID string, from, to time.Time) ([]model.FieldMeasurement, error) {
	res, err := s.query.Query(ctx, buildFlux(s.bucket, fieldID, from, to))
	if err != nil {
		s.metrics.StoreQueries.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("query history for field %s: %w", fieldID, err)
	}
	defer func() { _ = res.Close() }()

	var out []model.FieldMeasurement
	for res.Next() {
		out = append(out, measurementFromRecord(res.Record(), fieldID))
	}
	if err := res.Err(); err != nil {
		s.metrics.StoreQueries.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("iterate history for field %s: %w", fieldID, err)
	}

	s.metrics.StoreQueries.WithLabelValues("ok").Inc()
	return out, nil
}

// Ready pings the database for /readyz.
func (s *InfluxStore) Ready(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	if !ok {
		return ErrNotReady
	}
	return nil
}

// measurementPoint maps a measurement onto the Influx line shape shared by
// the primary store and the journal mirror. Identity and routing live in
// string fields so the read path can rebuild the full value.
func measurementPoint(m model.FieldMeasurement) *write.Point {
	tags := map[string]string{
		"field_id":  m.FieldID,
		"sensor_id": m.SensorID,
	}
	fields := map[string]interface{}{
		"soil_moisture":    m.SoilMoisture,
		"air_temperature":  m.AirTemperature,
		"precipitation_mm": m.PrecipitationMM,
		"measurement_id":   m.ID,
		"alert_email":      m.AlertEmail,
		"created_by":       m.CreatedBy,
		"received_at":      m.ReceivedAt.UTC().Format(time.RFC3339Nano),
	}
	return influxdb2.NewPoint(measurementName, tags, fields, m.CollectedAt)
}

// buildFlux renders the window query. Flux range stops are exclusive, so the
// stop is nudged one nanosecond past `to` to keep the triggering measurement
// inside its own window.
func buildFlux(bucket, fieldID string, from, to time.Time) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q and r.field_id == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"])
`, bucket,
		from.UTC().Format(time.RFC3339Nano),
		to.Add(time.Nanosecond).UTC().Format(time.RFC3339Nano),
		measurementName, fieldID)
}

func measurementFromRecord(rec *query.FluxRecord, fieldID string) model.FieldMeasurement {
	m := model.FieldMeasurement{
		ID:              stringAt(rec, "measurement_id"),
		FieldID:         fieldID,
		SensorID:        stringAt(rec, "sensor_id"),
		SoilMoisture:    floatAt(rec, "soil_moisture"),
		AirTemperature:  floatAt(rec, "air_temperature"),
		PrecipitationMM: floatAt(rec, "precipitation_mm"),
		CollectedAt:     rec.Time(),
		AlertEmail:      stringAt(rec, "alert_email"),
		CreatedBy:       stringAt(rec, "created_by"),
	}
	if raw := stringAt(rec, "received_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			m.ReceivedAt = t
		}
	}
	return m
}

func floatAt(rec *query.FluxRecord, key string) float64 {
	switch v := rec.ValueByKey(key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func stringAt(rec *query.FluxRecord, key string) string {
	if s, ok := rec.ValueByKey(key).(string); ok {
		return s
	}
	return ""
}
