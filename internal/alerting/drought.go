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

// DroughtHandler checks each accepted measurement for a sustained dry spell
// on its field.
type DroughtHandler struct {
	store    store.Reader
	rule     config.DroughtRule
	notifier notifier
}

func NewDroughtHandler(r store.Reader, rules config.Rules, registry *broker.Registry, log *slog.Logger, metrics *observability.Metrics) *DroughtHandler {
	return &DroughtHandler{
		store:    r,
		rule:     rules.Drought,
		notifier: notifier{registry: registry, rule: rules.Notification, log: log, metrics: metrics},
	}
}

func (h *DroughtHandler) Name() string     { return "drought" }
func (h *DroughtHandler) Kind() event.Kind { return event.KindMeasurementCreated }

func (h *DroughtHandler) Handle(ctx context.Context, ev event.Event) error {
	m, err := measurementFrom(ev)
	if err != nil {
		return err
	}

	history, err := fetchHistory(ctx, h.store, m, h.rule.Window())
	if err != nil {
		return err
	}

	cond := analysis.DetectDrought(history, h.rule.MoistureThreshold, h.rule.MinimumDuration())
	if cond == nil {
		return nil
	}

	// A dry spell running twice the configured minimum is an emergency.
	priority := model.PriorityHigh
	if cond.Duration >= 2*h.rule.MinimumDuration() {
		priority = model.PriorityCritical
	}

	params := map[string]string{
		"field_id":       m.FieldID,
		"moisture":       formatQuantity(cond.LatestMoisture),
		"threshold":      formatQuantity(cond.MoistureThreshold),
		"duration_hours": formatQuantity(cond.Duration.Hours()),
		"started_at":     cond.Start.UTC().Format(time.RFC3339),
	}
	return h.notifier.notify(ctx, alertTypeDrought, m, templateDrought, params, priority, priority.String())
}
