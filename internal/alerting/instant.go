package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agrosense/fieldalert/internal/analysis"
	"github.com/agrosense/fieldalert/internal/config"
	"github.com/agrosense/fieldalert/internal/correlate"
	"github.com/agrosense/fieldalert/internal/event"
	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/internal/observability"
	"github.com/agrosense/fieldalert/pkg/broker"
)

// Generic alert topics, one family per alert type. The {field} segment keys
// consumer subscriptions the same way the measurement intake topics do.
const (
	rainfallTopicTmpl    = "alert/excessiveRainfall/{field}"
	extremeHeatTopicTmpl = "alert/extremeHeat/{field}"
	freezeTopicTmpl      = "alert/freeze/{field}"
)

func alertTopic(tmpl, fieldID string) string {
	return strings.NewReplacer("{field}", fieldID).Replace(tmpl)
}

// thresholdAlert is the loosely-typed payload instantaneous breaches publish
// to the generic MQTT alert queue.
type thresholdAlert struct {
	AlertType     string    `json:"alert_type"`
	FieldID       string    `json:"field_id"`
	SensorID      string    `json:"sensor_id,omitempty"`
	MeasurementID string    `json:"measurement_id"`
	Value         float64   `json:"value"`
	Threshold     float64   `json:"threshold"`
	Unit          string    `json:"unit"`
	ObservedAt    time.Time `json:"observed_at"`
	Severity      string    `json:"severity"`
	CorrelationID string    `json:"correlation_id"`
}

// InstantHandler raises a generic alert when a single reading crosses its
// configured limit. No history is fetched.
type InstantHandler struct {
	name      string
	alertType string
	severity  string
	topicTmpl string
	check     func(model.FieldMeasurement) *analysis.ThresholdBreach
	registry  *broker.Registry
	log       *slog.Logger
	metrics   *observability.Metrics
}

// NewRainfallHandler alerts on precipitation above the rainfall threshold.
func NewRainfallHandler(rules config.Rules, registry *broker.Registry, log *slog.Logger, metrics *observability.Metrics) *InstantHandler {
	return &InstantHandler{
		name:      "excessive_rainfall",
		alertType: alertTypeRainfall,
		severity:  "high",
		topicTmpl: rainfallTopicTmpl,
		check: func(m model.FieldMeasurement) *analysis.ThresholdBreach {
			return analysis.CheckExcessiveRainfall(m, rules.RainfallThresholdMM)
		},
		registry: registry,
		log:      log,
		metrics:  metrics,
	}
}

// NewExtremeHeatHandler alerts on air temperature above the extreme-heat
// threshold.
func NewExtremeHeatHandler(rules config.Rules, registry *broker.Registry, log *slog.Logger, metrics *observability.Metrics) *InstantHandler {
	return &InstantHandler{
		name:      "extreme_heat",
		alertType: alertTypeExtremeHeat,
		severity:  "critical",
		topicTmpl: extremeHeatTopicTmpl,
		check: func(m model.FieldMeasurement) *analysis.ThresholdBreach {
			return analysis.CheckExtremeHeat(m, rules.ExtremeHeatThresholdC)
		},
		registry: registry,
		log:      log,
		metrics:  metrics,
	}
}

// NewFreezeHandler alerts on air temperature below the freeze threshold.
func NewFreezeHandler(rules config.Rules, registry *broker.Registry, log *slog.Logger, metrics *observability.Metrics) *InstantHandler {
	return &InstantHandler{
		name:      "freeze",
		alertType: alertTypeFreeze,
		severity:  "critical",
		topicTmpl: freezeTopicTmpl,
		check: func(m model.FieldMeasurement) *analysis.ThresholdBreach {
			return analysis.CheckFreeze(m, rules.FreezeThresholdC)
		},
		registry: registry,
		log:      log,
		metrics:  metrics,
	}
}

func (h *InstantHandler) Name() string     { return h.name }
func (h *InstantHandler) Kind() event.Kind { return event.KindMeasurementCreated }

func (h *InstantHandler) Handle(ctx context.Context, ev event.Event) error {
	m, err := measurementFrom(ev)
	if err != nil {
		return err
	}

	breach := h.check(m)
	if breach == nil {
		return nil
	}

	_, corr := correlate.Ensure(ctx)
	payload, err := json.Marshal(thresholdAlert{
		AlertType:     h.alertType,
		FieldID:       m.FieldID,
		SensorID:      m.SensorID,
		MeasurementID: m.ID,
		Value:         breach.Value,
		Threshold:     breach.Threshold,
		Unit:          breach.Unit,
		ObservedAt:    m.CollectedAt,
		Severity:      h.severity,
		CorrelationID: corr.ID,
	})
	if err != nil {
		return fmt.Errorf("encode %s alert: %w", h.alertType, err)
	}

	pub, err := h.registry.Get(broker.TransportMQTT)
	if err != nil {
		return err
	}
	topic := alertTopic(h.topicTmpl, m.FieldID)
	if err := pub.Publish(ctx, topic, payload, corr.Properties()); err != nil {
		h.log.Error("alert publish failed",
			"alert_type", h.alertType, "field_id", m.FieldID, "measurement_id", m.ID, "error", err)
		return fmt.Errorf("publish %s alert: %w", h.alertType, err)
	}

	h.metrics.AlertsPublished.WithLabelValues(h.alertType, string(broker.TransportMQTT)).Inc()
	h.log.Info("alert published",
		"alert_type", h.alertType, "field_id", m.FieldID, "topic", topic,
		"value", breach.Value, "threshold", breach.Threshold, "correlation_id", corr.ID)
	return nil
}
