package analysis

import (
	"fmt"
	"math"

	"github.com/agrosense/fieldalert/internal/model"
)

// IrrigationConfig describes the moisture targets of a field's soil.
type IrrigationConfig struct {
	OptimalMoisture     float64
	CriticalMoisture    float64
	SoilWaterCapacityMM float64
}

// Trend and deficit bounds for the urgency table, in moisture percentage
// points.
const (
	fastDryingTrend = -2.0
	steadyTrendBand = 0.5

	highDeficit   = 30.0
	mediumDeficit = 15.0
	lowDeficit    = 5.0
)

// RecommendIrrigation decides whether the field needs water now. At or above
// the optimum it recommends nothing. Below the critical floor the urgency is
// Critical regardless of trend; otherwise deficit size sets the urgency and a
// fast-drying trend escalates it one level. The recommended amount refills
// the deficit share of the soil's water capacity.
func RecommendIrrigation(history []model.FieldMeasurement, cfg IrrigationConfig) *model.IrrigationRecommendation {
	if len(history) < minHistoryPoints {
		return nil
	}

	latest := history[len(history)-1]
	current := latest.SoilMoisture
	if current >= cfg.OptimalMoisture {
		return nil
	}

	deficit := cfg.OptimalMoisture - current
	trend := moistureTrend(history)
	urgency := classifyUrgency(current, deficit, trend, cfg)
	if urgency == model.IrrigationNone {
		return nil
	}

	return &model.IrrigationRecommendation{
		FieldID:         latest.FieldID,
		Urgency:         urgency,
		CurrentMoisture: current,
		OptimalMoisture: cfg.OptimalMoisture,
		MoistureTrend:   trend,
		WaterAmountMM:   deficit / 100 * cfg.SoilWaterCapacityMM,
		Reason:          irrigationReason(current, deficit, cfg.OptimalMoisture, trend),
	}
}

// moistureTrend compares the mean of the most recent half of the window with
// the mean of the earlier half. Negative means the field is drying.
func moistureTrend(history []model.FieldMeasurement) float64 {
	mid := len(history) / 2
	return meanMoisture(history[mid:]) - meanMoisture(history[:mid])
}

func classifyUrgency(current, deficit, trend float64, cfg IrrigationConfig) model.IrrigationUrgency {
	if current <= cfg.CriticalMoisture {
		return model.IrrigationCritical
	}

	var urgency model.IrrigationUrgency
	switch {
	case deficit >= highDeficit:
		urgency = model.IrrigationHigh
	case deficit >= mediumDeficit:
		urgency = model.IrrigationMedium
	case deficit >= lowDeficit:
		urgency = model.IrrigationLow
	default:
		return model.IrrigationNone
	}
	if trend <= fastDryingTrend && urgency < model.IrrigationCritical {
		urgency++
	}
	return urgency
}

func irrigationReason(current, deficit, optimal, trend float64) string {
	var posture string
	switch {
	case math.Abs(trend) < steadyTrendBand:
		posture = "holding steady"
	case trend <= fastDryingTrend:
		posture = fmt.Sprintf("falling rapidly (%.1f points over the window)", -trend)
	case trend < 0:
		posture = fmt.Sprintf("falling (%.1f points over the window)", -trend)
	case trend >= -fastDryingTrend:
		posture = fmt.Sprintf("recovering strongly (%.1f points over the window)", trend)
	default:
		posture = fmt.Sprintf("recovering (%.1f points over the window)", trend)
	}
	return fmt.Sprintf("soil moisture %.1f%% is %.1f points below the %.1f%% optimum and %s", current, deficit, optimal, posture)
}
