package alerting

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/agrosense/fieldalert/internal/analysis"
	"github.com/agrosense/fieldalert/internal/config"
	"github.com/agrosense/fieldalert/internal/event"
	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/internal/observability"
	"github.com/agrosense/fieldalert/internal/store"
	"github.com/agrosense/fieldalert/pkg/broker"
)

// PestRiskHandler scores pest pressure over the recent favorable-day run.
// Only assessments at Medium or above are worth a notification; lower levels
// are recorded as suppressed detections.
type PestRiskHandler struct {
	store    store.Reader
	rule     config.PestRiskRule
	notifier notifier
}

func NewPestRiskHandler(r store.Reader, rules config.Rules, registry *broker.Registry, log *slog.Logger, metrics *observability.Metrics) *PestRiskHandler {
	return &PestRiskHandler{
		store:    r,
		rule:     rules.PestRisk,
		notifier: notifier{registry: registry, rule: rules.Notification, log: log, metrics: metrics},
	}
}

func (h *PestRiskHandler) Name() string     { return "pest_risk" }
func (h *PestRiskHandler) Kind() event.Kind { return event.KindMeasurementCreated }

func (h *PestRiskHandler) Handle(ctx context.Context, ev event.Event) error {
	m, err := measurementFrom(ev)
	if err != nil {
		return err
	}

	history, err := fetchHistory(ctx, h.store, m, h.rule.Window())
	if err != nil {
		return err
	}

	assessment := analysis.AssessPestRisk(history, analysis.PestRiskConfig{
		MinTemperature:       h.rule.MinTemperature,
		MaxTemperature:       h.rule.MaxTemperature,
		MinMoisture:          h.rule.MinMoisture,
		MinimumFavorableDays: h.rule.MinimumFavorableDays,
	})
	if assessment == nil {
		return nil
	}
	if assessment.Level < model.PestRiskMedium {
		h.notifier.metrics.AlertsSuppressed.WithLabelValues(alertTypePestRisk, "below_gate").Inc()
		return nil
	}

	params := map[string]string{
		"field_id":            m.FieldID,
		"risk_level":          assessment.Level.String(),
		"score":               formatQuantity(assessment.Score),
		"favorable_days":      strconv.Itoa(assessment.ConsecutiveFavorableDays),
		"average_temperature": formatQuantity(assessment.AverageTemperature),
		"average_moisture":    formatQuantity(assessment.AverageMoisture),
		"risk_factors":        strings.Join(assessment.RiskFactors, "; "),
	}
	return h.notifier.notify(ctx, alertTypePestRisk, m, templatePestRisk, params,
		pestPriority(assessment.Level), assessment.Level.String())
}

func pestPriority(l model.PestRiskLevel) model.NotificationPriority {
	switch l {
	case model.PestRiskCritical:
		return model.PriorityCritical
	case model.PestRiskHigh:
		return model.PriorityHigh
	default:
		return model.PriorityMedium
	}
}
