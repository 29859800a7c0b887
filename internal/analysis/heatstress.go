package analysis

import (
	"time"

	"github.com/agrosense/fieldalert/internal/model"
)

// Severity bounds for the streak's average temperature.
const (
	severeHeatAverage   = 40.0
	highHeatAverage     = 37.0
	moderateHeatAverage = 35.0
)

// DetectHeatStress reports a run of readings at or above the critical
// temperature extending through the latest point for at least the minimum
// duration. Peak and average cover the streak only; a single cooler reading
// clears the streak entirely.
func DetectHeatStress(history []model.FieldMeasurement, criticalTemperature float64, minimumDuration time.Duration) *model.HeatStressCondition {
	if len(history) < minHistoryPoints {
		return nil
	}

	start := -1
	var peak, sum float64
	count := 0
	for i := range history {
		if history[i].AirTemperature >= criticalTemperature {
			if start == -1 {
				start = i
				peak = history[i].AirTemperature
			} else if history[i].AirTemperature > peak {
				peak = history[i].AirTemperature
			}
			sum += history[i].AirTemperature
			count++
		} else {
			start, peak, sum, count = -1, 0, 0, 0
		}
	}
	if start == -1 {
		return nil
	}

	latest := history[len(history)-1]
	duration := latest.CollectedAt.Sub(history[start].CollectedAt)
	if duration < minimumDuration {
		return nil
	}

	average := sum / float64(count)
	return &model.HeatStressCondition{
		FieldID:            latest.FieldID,
		Start:              history[start].CollectedAt,
		Duration:           duration,
		PeakTemperature:    peak,
		AverageTemperature: average,
		Severity:           classifyHeat(average),
	}
}

func classifyHeat(average float64) model.HeatStressSeverity {
	switch {
	case average >= severeHeatAverage:
		return model.HeatSeveritySevere
	case average >= highHeatAverage:
		return model.HeatSeverityHigh
	case average >= moderateHeatAverage:
		return model.HeatSeverityModerate
	default:
		return model.HeatSeverityNone
	}
}
