package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DroughtRule bounds the drought analysis window.
type DroughtRule struct {
	MoistureThreshold float64 `yaml:"moisture_threshold" json:"moisture_threshold"`
	MinimumHours      int     `yaml:"minimum_hours" json:"minimum_hours"`
	WindowHours       int     `yaml:"window_hours" json:"window_hours"`
}

func (r DroughtRule) MinimumDuration() time.Duration { return time.Duration(r.MinimumHours) * time.Hour }
func (r DroughtRule) Window() time.Duration          { return time.Duration(r.WindowHours) * time.Hour }

// HeatStressRule bounds the heat stress analysis window.
type HeatStressRule struct {
	CriticalTemperature float64 `yaml:"critical_temperature" json:"critical_temperature"`
	MinimumHours        int     `yaml:"minimum_hours" json:"minimum_hours"`
	WindowHours         int     `yaml:"window_hours" json:"window_hours"`
}

func (r HeatStressRule) MinimumDuration() time.Duration {
	return time.Duration(r.MinimumHours) * time.Hour
}
func (r HeatStressRule) Window() time.Duration { return time.Duration(r.WindowHours) * time.Hour }

// PestRiskRule bounds the favorable-day detection.
type PestRiskRule struct {
	MinTemperature       float64 `yaml:"min_temperature" json:"min_temperature"`
	MaxTemperature       float64 `yaml:"max_temperature" json:"max_temperature"`
	MinMoisture          float64 `yaml:"min_moisture" json:"min_moisture"`
	MinimumFavorableDays int     `yaml:"minimum_favorable_days" json:"minimum_favorable_days"`
	WindowDays           int     `yaml:"window_days" json:"window_days"`
}

func (r PestRiskRule) Window() time.Duration {
	return time.Duration(r.WindowDays) * 24 * time.Hour
}

// IrrigationRule describes the soil's moisture targets.
type IrrigationRule struct {
	OptimalMoisture     float64 `yaml:"optimal_moisture" json:"optimal_moisture"`
	CriticalMoisture    float64 `yaml:"critical_moisture" json:"critical_moisture"`
	SoilWaterCapacityMM float64 `yaml:"soil_water_capacity_mm" json:"soil_water_capacity_mm"`
	ApplicationRateMMH  float64 `yaml:"application_rate_mm_per_hour" json:"application_rate_mm_per_hour"`
	WindowHours         int     `yaml:"window_hours" json:"window_hours"`
}

func (r IrrigationRule) Window() time.Duration { return time.Duration(r.WindowHours) * time.Hour }

// NotificationRule sets where notification requests go when the triggering
// measurement carries no alert address, and which queue carries them.
type NotificationRule struct {
	DefaultRecipient string   `yaml:"default_recipient" json:"default_recipient"`
	CC               []string `yaml:"cc" json:"cc"`
	BCC              []string `yaml:"bcc" json:"bcc"`
	Topic            string   `yaml:"topic" json:"topic"`
}

// Rules carries every alert threshold the handlers evaluate.
type Rules struct {
	Drought    DroughtRule    `yaml:"drought" json:"drought"`
	HeatStress HeatStressRule `yaml:"heat_stress" json:"heat_stress"`
	PestRisk   PestRiskRule   `yaml:"pest_risk" json:"pest_risk"`
	Irrigation IrrigationRule `yaml:"irrigation" json:"irrigation"`

	RainfallThresholdMM   float64 `yaml:"rainfall_threshold_mm" json:"rainfall_threshold_mm"`
	ExtremeHeatThresholdC float64 `yaml:"extreme_heat_threshold_c" json:"extreme_heat_threshold_c"`
	FreezeThresholdC      float64 `yaml:"freeze_threshold_c" json:"freeze_threshold_c"`

	Notification NotificationRule `yaml:"notification" json:"notification"`
}

// DefaultRules returns the built-in thresholds used when no rules file is
// configured.
func DefaultRules() Rules {
	return Rules{
		Drought: DroughtRule{
			MoistureThreshold: 30,
			MinimumHours:      24,
			WindowHours:       72,
		},
		HeatStress: HeatStressRule{
			CriticalTemperature: 35,
			MinimumHours:        6,
			WindowHours:         24,
		},
		PestRisk: PestRiskRule{
			MinTemperature:       20,
			MaxTemperature:       30,
			MinMoisture:          60,
			MinimumFavorableDays: 5,
			WindowDays:           14,
		},
		Irrigation: IrrigationRule{
			OptimalMoisture:     60,
			CriticalMoisture:    25,
			SoilWaterCapacityMM: 150,
			ApplicationRateMMH:  10,
			WindowHours:         48,
		},
		RainfallThresholdMM:   60,
		ExtremeHeatThresholdC: 42,
		FreezeThresholdC:      0,
		Notification: NotificationRule{
			Topic: "field-notifications",
		},
	}
}

// LoadRules reads thresholds from a YAML or JSON file, detected by extension,
// layered over the defaults so a partial file only overrides what it names.
// An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rules); err != nil {
			return Rules{}, fmt.Errorf("parse rules yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &rules); err != nil {
			return Rules{}, fmt.Errorf("parse rules json: %w", err)
		}
	default:
		return Rules{}, fmt.Errorf("unsupported rules file extension %q", ext)
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

// Validate rejects threshold combinations no handler could evaluate sanely.
func (r Rules) Validate() error {
	if r.Drought.WindowHours <= 0 || r.HeatStress.WindowHours <= 0 ||
		r.PestRisk.WindowDays <= 0 || r.Irrigation.WindowHours <= 0 {
		return errors.New("analysis windows must be positive")
	}
	if r.Drought.MinimumHours <= 0 {
		return errors.New("drought minimum_hours must be positive")
	}
	if r.HeatStress.MinimumHours <= 0 {
		return errors.New("heat_stress minimum_hours must be positive")
	}
	if r.PestRisk.MinTemperature > r.PestRisk.MaxTemperature {
		return fmt.Errorf("pest_risk min_temperature %.1f above max_temperature %.1f",
			r.PestRisk.MinTemperature, r.PestRisk.MaxTemperature)
	}
	if r.PestRisk.MinimumFavorableDays < 1 {
		return errors.New("pest_risk minimum_favorable_days must be at least 1")
	}
	if r.Irrigation.CriticalMoisture >= r.Irrigation.OptimalMoisture {
		return fmt.Errorf("irrigation critical_moisture %.1f must sit below optimal_moisture %.1f",
			r.Irrigation.CriticalMoisture, r.Irrigation.OptimalMoisture)
	}
	if r.Irrigation.SoilWaterCapacityMM <= 0 {
		return errors.New("irrigation soil_water_capacity_mm must be positive")
	}
	if strings.TrimSpace(r.Notification.Topic) == "" {
		return errors.New("notification topic is required")
	}
	return nil
}
