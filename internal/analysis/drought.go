package analysis

import (
	"time"

	"github.com/agrosense/fieldalert/internal/model"
)

// DetectDrought reports soil moisture held continuously below the threshold
// through the latest reading for at least the minimum duration. Any reading
// at or above the threshold resets the run, so only the trailing dry spell
// counts.
func DetectDrought(history []model.FieldMeasurement, moistureThreshold float64, minimumDuration time.Duration) *model.DroughtCondition {
	if len(history) < minHistoryPoints {
		return nil
	}

	start := -1
	for i := range history {
		if history[i].SoilMoisture < moistureThreshold {
			if start == -1 {
				start = i
			}
		} else {
			start = -1
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

	return &model.DroughtCondition{
		FieldID:           latest.FieldID,
		Start:             history[start].CollectedAt,
		Duration:          duration,
		MoistureThreshold: moistureThreshold,
		LatestMoisture:    latest.SoilMoisture,
	}
}
