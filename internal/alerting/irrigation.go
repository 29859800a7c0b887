package alerting

import (
	"context"
	"log/slog"

	"github.com/agrosense/fieldalert/internal/analysis"
	"github.com/agrosense/fieldalert/internal/config"
	"github.com/agrosense/fieldalert/internal/event"
	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/internal/observability"
	"github.com/agrosense/fieldalert/internal/store"
	"github.com/agrosense/fieldalert/pkg/broker"
)

// IrrigationHandler turns moisture deficits into watering advice.
type IrrigationHandler struct {
	store    store.Reader
	rule     config.IrrigationRule
	notifier notifier
}

func NewIrrigationHandler(r store.Reader, rules config.Rules, registry *broker.Registry, log *slog.Logger, metrics *observability.Metrics) *IrrigationHandler {
	return &IrrigationHandler{
		store:    r,
		rule:     rules.Irrigation,
		notifier: notifier{registry: registry, rule: rules.Notification, log: log, metrics: metrics},
	}
}

func (h *IrrigationHandler) Name() string     { return "irrigation" }
func (h *IrrigationHandler) Kind() event.Kind { return event.KindMeasurementCreated }

func (h *IrrigationHandler) Handle(ctx context.Context, ev event.Event) error {
	m, err := measurementFrom(ev)
	if err != nil {
		return err
	}

	history, err := fetchHistory(ctx, h.store, m, h.rule.Window())
	if err != nil {
		return err
	}

	rec := analysis.RecommendIrrigation(history, analysis.IrrigationConfig{
		OptimalMoisture:     h.rule.OptimalMoisture,
		CriticalMoisture:    h.rule.CriticalMoisture,
		SoilWaterCapacityMM: h.rule.SoilWaterCapacityMM,
	})
	if rec == nil {
		return nil
	}

	params := map[string]string{
		"field_id":          m.FieldID,
		"urgency":           rec.Urgency.String(),
		"current_moisture":  formatQuantity(rec.CurrentMoisture),
		"optimal_moisture":  formatQuantity(rec.OptimalMoisture),
		"deficit":           formatQuantity(rec.Deficit()),
		"water_amount_mm":   formatQuantity(rec.WaterAmountMM),
		"estimated_minutes": formatQuantity(rec.EstimatedDuration(h.rule.ApplicationRateMMH).Minutes()),
		"trend":             formatQuantity(rec.MoistureTrend),
		"reason":            rec.Reason,
	}
	return h.notifier.notify(ctx, alertTypeIrrigation, m, templateIrrigation, params,
		irrigationPriority(rec.Urgency), rec.Urgency.String())
}

// irrigationPriority maps urgency one-to-one onto delivery priority.
func irrigationPriority(u model.IrrigationUrgency) model.NotificationPriority {
	switch u {
	case model.IrrigationCritical:
		return model.PriorityCritical
	case model.IrrigationHigh:
		return model.PriorityHigh
	case model.IrrigationMedium:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}
