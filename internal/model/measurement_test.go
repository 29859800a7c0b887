package model

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFieldMeasurement(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	defer SetClock(nil)

	valid := FieldMeasurement{
		FieldID:        "field-7",
		SensorID:       "sensor-1",
		SoilMoisture:   42.5,
		AirTemperature: 21.3,
		CollectedAt:    now.Add(-time.Minute),
		AlertEmail:     "grower@example.com",
	}

	t.Run("assigns id and received-at", func(t *testing.T) {
		m, err := NewFieldMeasurement(valid)
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, now, m.ReceivedAt)
	})

	t.Run("keeps supplied id and received-at", func(t *testing.T) {
		in := valid
		in.ID = "m-123"
		in.ReceivedAt = now.Add(-time.Second)
		m, err := NewFieldMeasurement(in)
		require.NoError(t, err)
		assert.Equal(t, "m-123", m.ID)
		assert.Equal(t, now.Add(-time.Second), m.ReceivedAt)
	})

	t.Run("boundary values pass", func(t *testing.T) {
		in := valid
		in.SoilMoisture = 0
		in.CollectedAt = now
		_, err := NewFieldMeasurement(in)
		assert.NoError(t, err)

		in.SoilMoisture = 100
		_, err = NewFieldMeasurement(in)
		assert.NoError(t, err)
	})

	tests := []struct {
		name    string
		mutate  func(*FieldMeasurement)
		wantErr string
	}{
		{"blank field id", func(m *FieldMeasurement) { m.FieldID = "  " }, "field id"},
		{"moisture below range", func(m *FieldMeasurement) { m.SoilMoisture = -0.1 }, "soil moisture"},
		{"moisture above range", func(m *FieldMeasurement) { m.SoilMoisture = 100.1 }, "soil moisture"},
		{"temperature below range", func(m *FieldMeasurement) { m.AirTemperature = -90.5 }, "air temperature"},
		{"temperature above range", func(m *FieldMeasurement) { m.AirTemperature = 60.5 }, "air temperature"},
		{"negative precipitation", func(m *FieldMeasurement) { m.PrecipitationMM = -1 }, "precipitation"},
		{"zero collected-at", func(m *FieldMeasurement) { m.CollectedAt = time.Time{} }, "collection timestamp"},
		{"future collected-at", func(m *FieldMeasurement) { m.CollectedAt = now.Add(time.Second) }, "in the future"},
		{"malformed alert email", func(m *FieldMeasurement) { m.AlertEmail = "not-an-address" }, "alert email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := NewFieldMeasurement(in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
