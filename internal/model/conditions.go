package model

import "time"

// HeatStressSeverity classifies a sustained heat episode by its average
// temperature over the streak.
type HeatStressSeverity int

const (
	HeatSeverityNone HeatStressSeverity = iota
	HeatSeverityModerate
	HeatSeverityHigh
	HeatSeveritySevere
)

func (s HeatStressSeverity) String() string {
	switch s {
	case HeatSeverityModerate:
		return "moderate"
	case HeatSeverityHigh:
		return "high"
	case HeatSeveritySevere:
		return "severe"
	default:
		return "none"
	}
}

// PestRiskLevel orders pest pressure from negligible to critical.
type PestRiskLevel int

const (
	PestRiskMinimal PestRiskLevel = iota
	PestRiskLow
	PestRiskMedium
	PestRiskHigh
	PestRiskCritical
)

func (l PestRiskLevel) String() string {
	switch l {
	case PestRiskLow:
		return "low"
	case PestRiskMedium:
		return "medium"
	case PestRiskHigh:
		return "high"
	case PestRiskCritical:
		return "critical"
	default:
		return "minimal"
	}
}

// IrrigationUrgency orders how soon a field needs water.
type IrrigationUrgency int

const (
	IrrigationNone IrrigationUrgency = iota
	IrrigationLow
	IrrigationMedium
	IrrigationHigh
	IrrigationCritical
)

func (u IrrigationUrgency) String() string {
	switch u {
	case IrrigationLow:
		return "low"
	case IrrigationMedium:
		return "medium"
	case IrrigationHigh:
		return "high"
	case IrrigationCritical:
		return "critical"
	default:
		return "none"
	}
}

// DroughtCondition reports soil moisture held continuously below a threshold
// long enough to matter.
type DroughtCondition struct {
	FieldID           string
	Start             time.Time
	Duration          time.Duration
	MoistureThreshold float64
	LatestMoisture    float64
}

// HeatStressCondition reports a sustained run of critical temperatures.
type HeatStressCondition struct {
	FieldID            string
	Start              time.Time
	Duration           time.Duration
	PeakTemperature    float64
	AverageTemperature float64
	Severity           HeatStressSeverity
}

// PestRiskAssessment scores how favorable recent conditions were for pest
// development.
type PestRiskAssessment struct {
	FieldID                  string
	Level                    PestRiskLevel
	Score                    float64
	ConsecutiveFavorableDays int
	AverageTemperature       float64
	AverageMoisture          float64
	RiskFactors              []string
}

// IrrigationRecommendation advises how much water a field needs now.
type IrrigationRecommendation struct {
	FieldID         string
	Urgency         IrrigationUrgency
	CurrentMoisture float64
	OptimalMoisture float64
	MoistureTrend   float64 // percentage points, negative = drying
	WaterAmountMM   float64
	Reason          string
}

// Deficit is how far current moisture sits below the optimum, in percentage
// points.
func (r IrrigationRecommendation) Deficit() float64 {
	return r.OptimalMoisture - r.CurrentMoisture
}

// EstimatedDuration converts the recommended water amount into runtime at the
// given application rate in mm/hour.
func (r IrrigationRecommendation) EstimatedDuration(ratePerHourMM float64) time.Duration {
	if ratePerHourMM <= 0 || r.WaterAmountMM <= 0 {
		return 0
	}
	hours := r.WaterAmountMM / ratePerHourMM
	return time.Duration(hours * float64(time.Hour))
}
