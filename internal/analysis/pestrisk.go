package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/agrosense/fieldalert/internal/model"
)

// PestRiskConfig bounds the daily conditions considered favorable to pest
// development.
type PestRiskConfig struct {
	MinTemperature       float64
	MaxTemperature       float64
	MinMoisture          float64
	MinimumFavorableDays int
}

// Scoring constants. Run length dominates, temperature posture comes second,
// surplus moisture matters least. Most pest species studied for this system
// develop fastest between 25 and 28 °C.
const (
	pestOptimalTempLow  = 25.0
	pestOptimalTempHigh = 28.0
	pestTempFalloff     = 5.0 // °C outside the band where the temperature score reaches zero

	pestRunWeight      = 50.0
	pestTempWeight     = 30.0
	pestMoistureWeight = 20.0
)

type dayAverages struct {
	day      time.Time // UTC midnight
	temp     float64
	moisture float64
}

// AssessPestRisk groups history by UTC calendar day, finds the longest run of
// consecutive favorable days, and scores it. A day is favorable when its
// average temperature lies inside [MinTemperature, MaxTemperature] and its
// average moisture is at least MinMoisture. Runs shorter than the configured
// minimum but at least two days long yield a Low assessment; anything shorter
// yields nothing.
func AssessPestRisk(history []model.FieldMeasurement, cfg PestRiskConfig) *model.PestRiskAssessment {
	if len(history) < minHistoryPoints {
		return nil
	}

	days := groupByDay(history)
	run := longestFavorableRun(days, cfg)
	if len(run) < 2 {
		return nil
	}

	var tempSum, moistSum float64
	for _, d := range run {
		tempSum += d.temp
		moistSum += d.moisture
	}
	avgTemp := tempSum / float64(len(run))
	avgMoist := moistSum / float64(len(run))

	score := runScore(len(run), cfg.MinimumFavorableDays) +
		tempScore(avgTemp) +
		moistScore(avgMoist, cfg.MinMoisture)

	latest := history[len(history)-1]
	assessment := &model.PestRiskAssessment{
		FieldID:                  latest.FieldID,
		Score:                    score,
		ConsecutiveFavorableDays: len(run),
		AverageTemperature:       avgTemp,
		AverageMoisture:          avgMoist,
	}

	if len(run) >= cfg.MinimumFavorableDays {
		assessment.Level = levelForScore(score)
		assessment.RiskFactors = riskFactors(len(run), cfg, avgTemp, avgMoist)
	} else {
		// Partial signal: favorable streak exists but has not reached the
		// configured minimum yet.
		assessment.Level = model.PestRiskLow
		assessment.RiskFactors = []string{
			fmt.Sprintf("only %d consecutive favorable days, below the %d-day minimum", len(run), cfg.MinimumFavorableDays),
		}
	}
	return assessment
}

// groupByDay averages readings per UTC calendar day, returned in day order.
func groupByDay(history []model.FieldMeasurement) []dayAverages {
	type accum struct {
		tempSum, moistSum float64
		n int
	}
	byDay := make(map[time.Time]*accum)
	for _, m := range history {
		day := m.CollectedAt.UTC().Truncate(24 * time.Hour)
		a, ok := byDay[day]
		if !ok {
			a = &accum{}
			byDay[day] = a
		}
		a.tempSum += m.AirTemperature
		a.moistSum += m.SoilMoisture
		a.n++
	}

	days := make([]dayAverages, 0, len(byDay))
	for day, a := range byDay {
		days = append(days, dayAverages{
			day:      day,
			temp:     a.tempSum / float64(a.n),
			moisture: a.moistSum / float64(a.n),
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].day.Before(days[j].day) })
	return days
}

// longestFavorableRun returns the longest stretch of favorable days on
// consecutive calendar dates. A missing day breaks the run just like an
// unfavorable one.
func longestFavorableRun(days []dayAverages, cfg PestRiskConfig) []dayAverages {
	var best, current []dayAverages
	for i, d := range days {
		favorable := d.temp >= cfg.MinTemperature && d.temp <= cfg.MaxTemperature && d.moisture >= cfg.MinMoisture
		contiguous := i == 0 || days[i-1].day.Add(24*time.Hour).Equal(d.day)
		switch {
		case favorable && (len(current) == 0 || contiguous):
			current = append(current, d)
		case favorable:
			current = []dayAverages{d}
		default:
			current = nil
		}
		if len(current) > len(best) {
			best = current
		}
	}
	return best
}

func runScore(run, minimumDays int) float64 {
	if minimumDays <= 0 {
		minimumDays = 1
	}
	ratio := float64(run) / float64(2*minimumDays)
	if ratio > 1 {
		ratio = 1
	}
	return ratio * pestRunWeight
}

func tempScore(avgTemp float64) float64 {
	var dist float64
	switch {
	case avgTemp < pestOptimalTempLow:
		dist = pestOptimalTempLow - avgTemp
	case avgTemp > pestOptimalTempHigh:
		dist = avgTemp - pestOptimalTempHigh
	}
	proximity := 1 - dist/pestTempFalloff
	if proximity < 0 {
		proximity = 0
	}
	return proximity * pestTempWeight
}

func moistScore(avgMoist, minMoisture float64) float64 {
	headroom := model.MaxSoilMoisture - minMoisture
	if headroom <= 0 {
		return pestMoistureWeight
	}
	ratio := (avgMoist - minMoisture) / headroom
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return ratio * pestMoistureWeight
}

func levelForScore(score float64) model.PestRiskLevel {
	switch {
	case score >= 85:
		return model.PestRiskCritical
	case score >= 65:
		return model.PestRiskHigh
	case score >= 45:
		return model.PestRiskMedium
	case score >= 25:
		return model.PestRiskLow
	default:
		return model.PestRiskMinimal
	}
}

func riskFactors(run int, cfg PestRiskConfig, avgTemp, avgMoist float64) []string {
	factors := []string{
		fmt.Sprintf("%d consecutive favorable days (minimum %d)", run, cfg.MinimumFavorableDays),
	}
	if avgTemp >= pestOptimalTempLow && avgTemp <= pestOptimalTempHigh {
		factors = append(factors,
			fmt.Sprintf("average temperature %.1f°C inside the optimal %.1f-%.1f°C band", avgTemp, pestOptimalTempLow, pestOptimalTempHigh))
	} else {
		factors = append(factors,
			fmt.Sprintf("average temperature %.1f°C within the favorable %.1f-%.1f°C range", avgTemp, cfg.MinTemperature, cfg.MaxTemperature))
	}
	factors = append(factors,
		fmt.Sprintf("average soil moisture %.1f%% sustains pest activity (minimum %.1f%%)", avgMoist, cfg.MinMoisture))
	return factors
}
