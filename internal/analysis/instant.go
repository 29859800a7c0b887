package analysis

import "github.com/agrosense/fieldalert/internal/model"

// ThresholdBreach reports a single reading crossing an instantaneous limit.
// No history is involved.
type ThresholdBreach struct {
	Metric    string
	Value     float64
	Threshold float64
	Unit      string
}

// CheckExcessiveRainfall flags precipitation strictly above the threshold.
func CheckExcessiveRainfall(m model.FieldMeasurement, thresholdMM float64) *ThresholdBreach {
	if m.PrecipitationMM > thresholdMM {
		return &ThresholdBreach{Metric: "precipitation", Value: m.PrecipitationMM, Threshold: thresholdMM, Unit: "mm"}
	}
	return nil
}

// CheckExtremeHeat flags air temperature strictly above the threshold.
func CheckExtremeHeat(m model.FieldMeasurement, thresholdC float64) *ThresholdBreach {
	if m.AirTemperature > thresholdC {
		return &ThresholdBreach{Metric: "air_temperature", Value: m.AirTemperature, Threshold: thresholdC, Unit: "°C"}
	}
	return nil
}

// CheckFreeze flags air temperature strictly below the threshold.
func CheckFreeze(m model.FieldMeasurement, thresholdC float64) *ThresholdBreach {
	if m.AirTemperature < thresholdC {
		return &ThresholdBreach{Metric: "air_temperature", Value: m.AirTemperature, Threshold: thresholdC, Unit: "°C"}
	}
	return nil
}
