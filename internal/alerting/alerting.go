// Package alerting implements the handlers that react to accepted
// measurements: four run analyses over a history window from the measurement
// store, three compare the single reading against instantaneous limits, and
// one mirrors the measurement into the best-effort journal. Detections leave
// as notification requests on the Kafka queue or generic alerts on MQTT
// topics, always stamped with correlation properties.
package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/agrosense/fieldalert/internal/config"
	"github.com/agrosense/fieldalert/internal/correlate"
	"github.com/agrosense/fieldalert/internal/event"
	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/internal/observability"
	"github.com/agrosense/fieldalert/internal/store"
	"github.com/agrosense/fieldalert/pkg/broker"
)

// Alert type tags carried in notification metadata, alert payloads, and
// metric labels.
const (
	alertTypeDrought     = "drought"
	alertTypeHeatStress  = "heat_stress"
	alertTypePestRisk    = "pest_risk"
	alertTypeIrrigation  = "irrigation"
	alertTypeRainfall    = "excessive_rainfall"
	alertTypeExtremeHeat = "extreme_heat"
	alertTypeFreeze      = "freeze"
)

// Notification template identifiers, fixed per alert type.
const (
	templateDrought    = "drought-alert"
	templateHeatStress = "heat-stress-alert"
	templatePestRisk   = "pest-risk-alert"
	templateIrrigation = "irrigation-advice"
)

// formatQuantity renders a physical quantity for template substitution.
// One decimal everywhere, so rendered messages are stable.
func formatQuantity(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// measurementFrom unwraps the triggering measurement. A mismatched event is a
// wiring bug and fails the dispatch loudly.
func measurementFrom(ev event.Event) (model.FieldMeasurement, error) {
	mc, ok := ev.(event.MeasurementCreated)
	if !ok {
		return model.FieldMeasurement{}, fmt.Errorf("unexpected event %T for kind %s", ev, ev.Kind())
	}
	return mc.Measurement, nil
}

// fetchHistory reads the field's window ending at the triggering measurement.
// The window includes the trigger itself. Analyses require ascending
// collection order, so the slice is normalized before it leaves here.
func fetchHistory(ctx context.Context, r store.Reader, m model.FieldMeasurement, window time.Duration) ([]model.FieldMeasurement, error) {
	history, err := r.GetByFieldAndRange(ctx, m.FieldID, m.CollectedAt.Add(-window), m.CollectedAt)
	if err != nil {
		return nil, fmt.Errorf("history for field %s (measurement %s): %w", m.FieldID, m.ID, err)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CollectedAt.Before(history[j].CollectedAt)
	})
	return history, nil
}

// recipients picks the alert destination: the measurement's own address wins,
// the rules' default backstops it.
func recipients(m model.FieldMeasurement, rule config.NotificationRule) []string {
	if m.AlertEmail != "" {
		return []string{m.AlertEmail}
	}
	if rule.DefaultRecipient != "" {
		return []string{rule.DefaultRecipient}
	}
	return nil
}

// notifier publishes notification requests to the Kafka notification queue.
// One value is shared by all four condition handlers.
type notifier struct {
	registry *broker.Registry
	rule     config.NotificationRule
	log      *slog.Logger
	metrics  *observability.Metrics
}

// notify assembles and publishes one notification request. A measurement
// with nowhere to send the alert suppresses the publish without failing the
// dispatch; a publish failure is logged and re-raised.
func (n notifier) notify(ctx context.Context, alertType string, m model.FieldMeasurement,
	templateID string, params map[string]string, priority model.NotificationPriority, severity string) error {

	to := recipients(m, n.rule)
	if len(to) == 0 {
		n.log.Warn("alert has no recipient", "alert_type", alertType, "field_id", m.FieldID, "measurement_id", m.ID)
		n.metrics.AlertsSuppressed.WithLabelValues(alertType, "no_recipient").Inc()
		return nil
	}

	_, corr := correlate.Ensure(ctx)
	req, err := model.NewTemplateNotification(to, templateID, params, priority, model.NotificationMetadata{
		AlertType:     alertType,
		FieldID:       m.FieldID,
		DetectedAt:    m.CollectedAt,
		Severity:      severity,
		CorrelationID: corr.ID,
	})
	if err != nil {
		return fmt.Errorf("build %s notification: %w", alertType, err)
	}
	req.CC = n.rule.CC
	req.BCC = n.rule.BCC

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s notification: %w", alertType, err)
	}

	pub, err := n.registry.Get(broker.TransportKafka)
	if err != nil {
		return err
	}
	props := corr.Properties()
	props[broker.PropPartitionKey] = m.FieldID
	if err := pub.Publish(ctx, n.rule.Topic, payload, props); err != nil {
		n.log.Error("notification publish failed",
			"alert_type", alertType, "field_id", m.FieldID, "measurement_id", m.ID, "error", err)
		return fmt.Errorf("publish %s notification: %w", alertType, err)
	}

	n.metrics.AlertsPublished.WithLabelValues(alertType, string(broker.TransportKafka)).Inc()
	n.log.Info("notification published",
		"alert_type", alertType, "field_id", m.FieldID, "priority", priority.String(),
		"severity", severity, "correlation_id", corr.ID)
	return nil
}
