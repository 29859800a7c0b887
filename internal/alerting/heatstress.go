package alerting

import (
	"context"
	"log/slog"
	"time"

	"github.com/agrosense/fieldalert/internal/analysis"
	"github.com/agrosense/fieldalert/internal/config"
	"github.com/agrosense/fieldalert/internal/event"
	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/internal/observability"
	"github.com/agrosense/fieldalert/internal/store"
	"github.com/agrosense/fieldalert/pkg/broker"
)

// HeatStressHandler checks each accepted measurement for a sustained run of
// critical temperatures on its field.
type HeatStressHandler struct {
	store    store.Reader
	rule     config.HeatStressRule
	notifier notifier
}

func NewHeatStressHandler(r store.Reader, rules config.Rules, registry *broker.Registry, log *slog.Logger, metrics *observability.Metrics) *HeatStressHandler {
	return &HeatStressHandler{
		store:    r,
		rule:     rules.HeatStress,
		notifier: notifier{registry: registry, rule: rules.Notification, log: log, metrics: metrics},
	}
}

func (h *HeatStressHandler) Name() string     { return "heat_stress" }
func (h *HeatStressHandler) Kind() event.Kind { return event.KindMeasurementCreated }

func (h *HeatStressHandler) Handle(ctx context.Context, ev event.Event) error {
	m, err := measurementFrom(ev)
	if err != nil {
		return err
	}

	history, err := fetchHistory(ctx, h.store, m, h.rule.Window())
	if err != nil {
		return err
	}

	cond := analysis.DetectHeatStress(history, h.rule.CriticalTemperature, h.rule.MinimumDuration())
	if cond == nil {
		return nil
	}
	if cond.Severity == model.HeatSeverityNone {
		h.notifier.metrics.AlertsSuppressed.WithLabelValues(alertTypeHeatStress, "below_gate").Inc()
		return nil
	}

	params := map[string]string{
		"field_id":            m.FieldID,
		"severity":            cond.Severity.String(),
		"average_temperature": formatQuantity(cond.AverageTemperature),
		"peak_temperature":    formatQuantity(cond.PeakTemperature),
		"duration_hours":      formatQuantity(cond.Duration.Hours()),
		"started_at":          cond.Start.UTC().Format(time.RFC3339),
	}
	return h.notifier.notify(ctx, alertTypeHeatStress, m, templateHeatStress, params,
		heatPriority(cond.Severity), cond.Severity.String())
}

func heatPriority(s model.HeatStressSeverity) model.NotificationPriority {
	switch s {
	case model.HeatSeveritySevere:
		return model.PriorityCritical
	case model.HeatSeverityHigh:
		return model.PriorityHigh
	default:
		return model.PriorityMedium
	}
}
