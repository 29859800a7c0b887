package analysis

import (
	"testing"
	"time"

	"github.com/agrosense/fieldalert/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hotSpell(temps ...float64) []model.FieldMeasurement {
	history := make([]model.FieldMeasurement, 0, len(temps))
	for i, temp := range temps {
		history = append(history, reading(testStart.Add(time.Duration(i)*time.Hour), 50, temp, 0))
	}
	return history
}

func TestDetectHeatStress(t *testing.T) {
	const critical = 35.0
	minDuration := 6 * time.Hour

	t.Run("sustained heat classifies severe by average", func(t *testing.T) {
		history := []model.FieldMeasurement{
			reading(testStart, 50, 41, 0),
			reading(testStart.Add(3*time.Hour+30*time.Minute), 50, 42, 0),
			reading(testStart.Add(7*time.Hour), 50, 43, 0),
		}

		cond := DetectHeatStress(history, critical, minDuration)

		require.NotNil(t, cond)
		assert.Equal(t, "field-7", cond.FieldID)
		assert.Equal(t, 7*time.Hour, cond.Duration)
		assert.Equal(t, 43.0, cond.PeakTemperature)
		assert.InDelta(t, 42.0, cond.AverageTemperature, 1e-9)
		assert.Equal(t, model.HeatSeveritySevere, cond.Severity)
	})

	t.Run("average picks the severity tier", func(t *testing.T) {
		tests := []struct {
			name  string
			temps []float64
			want  model.HeatStressSeverity
		}{
			{"moderate", []float64{35, 35.5, 35.5, 36, 35, 35.5, 35.5}, model.HeatSeverityModerate},
			{"high", []float64{37, 38, 38.5, 38, 37.5, 38, 39}, model.HeatSeverityHigh},
			{"severe", []float64{40, 41, 42, 41, 40.5, 41, 42}, model.HeatSeveritySevere},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cond := DetectHeatStress(hotSpell(tt.temps...), critical, minDuration)
				require.NotNil(t, cond)
				assert.Equal(t, tt.want, cond.Severity)
			})
		}
	})

	t.Run("cooler reading clears the streak", func(t *testing.T) {
		// One dip at hour 6: the trailing streak spans only 2 hours.
		temps := []float64{41, 41, 41, 41, 41, 41, 30, 41, 41, 41}
		assert.Nil(t, DetectHeatStress(hotSpell(temps...), critical, minDuration))
	})

	t.Run("average covers the trailing streak only", func(t *testing.T) {
		// The 45s before the dip must not lift the trailing streak's average.
		temps := []float64{45, 45, 45, 30, 36, 36, 36, 36, 36, 36, 36}
		cond := DetectHeatStress(hotSpell(temps...), critical, minDuration)
		require.NotNil(t, cond)
		assert.InDelta(t, 36.0, cond.AverageTemperature, 1e-9)
		assert.Equal(t, 36.0, cond.PeakTemperature)
		assert.Equal(t, model.HeatSeverityModerate, cond.Severity)
	})

	t.Run("below minimum duration yields nothing", func(t *testing.T) {
		assert.Nil(t, DetectHeatStress(hotSpell(41, 42, 43), critical, minDuration))
	})

	t.Run("reading at critical counts toward the streak", func(t *testing.T) {
		cond := DetectHeatStress(hotSpell(35, 35, 35, 35, 35, 35, 35), critical, minDuration)
		require.NotNil(t, cond)
		assert.Equal(t, model.HeatSeverityModerate, cond.Severity)
	})

	t.Run("qualifying streak below moderate average reports none severity", func(t *testing.T) {
		cond := DetectHeatStress(hotSpell(31, 32, 33, 32, 31, 32, 33), 30, minDuration)
		require.NotNil(t, cond)
		assert.Equal(t, model.HeatSeverityNone, cond.Severity)
	})

	t.Run("insufficient history yields nothing", func(t *testing.T) {
		assert.Nil(t, DetectHeatStress(nil, critical, minDuration))
		assert.Nil(t, DetectHeatStress(hotSpell(41), critical, minDuration))
	})
}
