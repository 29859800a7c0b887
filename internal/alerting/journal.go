package alerting

import (
	"context"
	"log/slog"

	"github.com/agrosense/fieldalert/internal/event"
	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/internal/observability"
)

// Journal is the secondary sink measurements are mirrored into. Mirroring is
// asynchronous and best-effort; failures drain inside the store, never here.
type Journal interface {
	Mirror(m model.FieldMeasurement)
}

// JournalHandler copies every accepted measurement into the journal bucket.
// It never fails the dispatch: the measurement is already durable in the
// primary store, so losing a mirror write costs nothing but a warning.
type JournalHandler struct {
	journal Journal
	log     *slog.Logger
	metrics *observability.Metrics
}

func NewJournalHandler(journal Journal, log *slog.Logger, metrics *observability.Metrics) *JournalHandler {
	return &JournalHandler{journal: journal, log: log, metrics: metrics}
}

func (h *JournalHandler) Name() string     { return "journal" }
func (h *JournalHandler) Kind() event.Kind { return event.KindMeasurementCreated }

func (h *JournalHandler) Handle(_ context.Context, ev event.Event) error {
	m, err := measurementFrom(ev)
	if err != nil {
		return err
	}
	h.journal.Mirror(m)
	h.metrics.JournalWrites.WithLabelValues("ok").Inc()
	h.log.Debug("measurement journaled", "measurement_id", m.ID, "field_id", m.FieldID)
	return nil
}
