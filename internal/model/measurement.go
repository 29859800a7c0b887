package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Physical bounds accepted at ingestion. Readings outside these ranges are
// sensor faults, not weather.
const (
	MinSoilMoisture   = 0.0
	MaxSoilMoisture   = 100.0
	MinAirTemperature = -90.0
	MaxAirTemperature = 60.0
)

// FieldMeasurement is one validated sensor reading for a field.
type FieldMeasurement struct {
	ID              string    `json:"id"`
	FieldID         string    `json:"field_id"`
	SensorID        string    `json:"sensor_id,omitempty"`
	SoilMoisture    float64   `json:"soil_moisture"`
	AirTemperature  float64   `json:"air_temperature"`
	PrecipitationMM float64   `json:"precipitation_mm"`
	CollectedAt     time.Time `json:"collected_at"`
	ReceivedAt      time.Time `json:"received_at,omitempty"`
	CreatedBy       string    `json:"created_by,omitempty"`
	AlertEmail      string    `json:"alert_email,omitempty"` // where alerts for this field go
}

// NewFieldMeasurement normalizes and validates a measurement. A missing ID is
// assigned, a zero ReceivedAt is stamped with the current time.
func NewFieldMeasurement(m FieldMeasurement) (FieldMeasurement, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = clock.Now()
	}
	if err := m.Validate(); err != nil {
		return FieldMeasurement{}, err
	}
	return m, nil
}

// Validate checks the measurement against the ingestion contract.
func (m FieldMeasurement) Validate() error {
	if strings.TrimSpace(m.FieldID) == "" {
		return errors.New("field id is required")
	}
	if m.SoilMoisture < MinSoilMoisture || m.SoilMoisture > MaxSoilMoisture {
		return fmt.Errorf("soil moisture %.1f%% outside [%.0f, %.0f]", m.SoilMoisture, MinSoilMoisture, MaxSoilMoisture)
	}
	if m.AirTemperature < MinAirTemperature || m.AirTemperature > MaxAirTemperature {
		return fmt.Errorf("air temperature %.1f°C outside [%.0f, %.0f]", m.AirTemperature, MinAirTemperature, MaxAirTemperature)
	}
	if m.PrecipitationMM < 0 {
		return fmt.Errorf("precipitation %.1fmm is negative", m.PrecipitationMM)
	}
	if m.CollectedAt.IsZero() {
		return errors.New("collection timestamp is required")
	}
	if m.CollectedAt.After(clock.Now()) {
		return fmt.Errorf("collection timestamp %s is in the future", m.CollectedAt.Format(time.RFC3339))
	}
	if m.AlertEmail != "" && !strings.Contains(m.AlertEmail, "@") {
		return fmt.Errorf("alert email %q is not an address", m.AlertEmail)
	}
	return nil
}
