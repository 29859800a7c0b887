package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrosense/fieldalert/internal/config"
	"github.com/agrosense/fieldalert/internal/correlate"
	"github.com/agrosense/fieldalert/internal/event"
	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/internal/observability"
	"github.com/agrosense/fieldalert/pkg/broker"
)

var trigger = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

type fakeReader struct {
	history []model.FieldMeasurement
	err     error

	gotFieldID string
	gotFrom    time.Time
	gotTo      time.Time
	calls      int
}

func (f *fakeReader) GetByFieldAndRange(_ context.Context, fieldID string, from, to time.Time) ([]model.FieldMeasurement, error) {
	f.calls++
	f.gotFieldID, f.gotFrom, f.gotTo = fieldID, from, to
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

type publishedMsg struct {
	topic   string
	payload []byte
	props   map[string]string
}

type fakePublisher struct {
	err       error
	published []publishedMsg
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte, props map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMsg{topic: topic, payload: payload, props: props})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

// fixture wires one of everything a handler needs, with fakes behind the
// registry.
type fixture struct {
	reader  *fakeReader
	mqtt    *fakePublisher
	kafka   *fakePublisher
	reg     *broker.Registry
	rules   config.Rules
	log     *slog.Logger
	metrics *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mqtt := &fakePublisher{}
	kafka := &fakePublisher{}
	reg, err := broker.NewRegistry(map[broker.Transport]broker.IPublisher{
		broker.TransportMQTT:  mqtt,
		broker.TransportKafka: kafka,
	})
	require.NoError(t, err)

	rules := config.DefaultRules()
	rules.Notification.DefaultRecipient = "agronomist@example.org"

	return &fixture{
		reader:  &fakeReader{},
		mqtt:    mqtt,
		kafka:   kafka,
		reg:     reg,
		rules:   rules,
		log:     slog.Default(),
		metrics: observability.NewMetricsForTesting(),
	}
}

func testMeasurement(mut ...func(*model.FieldMeasurement)) model.FieldMeasurement {
	m := model.FieldMeasurement{
		ID:             "m-1",
		FieldID:        "field-7",
		SensorID:       "sensor-1",
		SoilMoisture:   50,
		AirTemperature: 22,
		CollectedAt:    trigger,
		ReceivedAt:     trigger.Add(time.Second),
		AlertEmail:     "grower@example.org",
	}
	for _, f := range mut {
		f(&m)
	}
	return m
}

func eventFor(m model.FieldMeasurement) event.MeasurementCreated {
	return event.NewMeasurementCreated(m)
}

// corrCtx carries a fixed correlation so tests can assert propagation.
func corrCtx() context.Context {
	return correlate.WithContext(context.Background(), correlate.Correlation{
		ID:          "corr-1",
		TraceParent: "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01",
	})
}

// decodeNotification unmarshals the single published notification request.
func decodeNotification(t *testing.T, pub *fakePublisher) model.NotificationRequest {
	t.Helper()
	require.Len(t, pub.published, 1)
	var req model.NotificationRequest
	require.NoError(t, json.Unmarshal(pub.published[0].payload, &req))
	return req
}

// hourly builds one reading per hour ending at the trigger time, so the last
// value is the triggering measurement itself.
func hourly(m model.FieldMeasurement, moistures ...float64) []model.FieldMeasurement {
	history := make([]model.FieldMeasurement, 0, len(moistures))
	for i, v := range moistures {
		r := m
		r.SoilMoisture = v
		r.CollectedAt = trigger.Add(-time.Duration(len(moistures)-1-i) * time.Hour)
		history = append(history, r)
	}
	return history
}

type wrongKindEvent struct{}

func (wrongKindEvent) Kind() event.Kind      { return event.KindMeasurementCreated }
func (wrongKindEvent) OccurredAt() time.Time { return trigger }

func TestMeasurementFromRejectsForeignEvent(t *testing.T) {
	_, err := measurementFrom(wrongKindEvent{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrongKindEvent")
}

func TestRecipients(t *testing.T) {
	rule := config.NotificationRule{DefaultRecipient: "fallback@example.org"}

	t.Run("measurement address wins", func(t *testing.T) {
		got := recipients(testMeasurement(), rule)
		assert.Equal(t, []string{"grower@example.org"}, got)
	})

	t.Run("default backstops", func(t *testing.T) {
		m := testMeasurement(func(m *model.FieldMeasurement) { m.AlertEmail = "" })
		got := recipients(m, rule)
		assert.Equal(t, []string{"fallback@example.org"}, got)
	})

	t.Run("nothing configured", func(t *testing.T) {
		m := testMeasurement(func(m *model.FieldMeasurement) { m.AlertEmail = "" })
		assert.Nil(t, recipients(m, config.NotificationRule{}))
	})
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "25.0", formatQuantity(25))
	assert.Equal(t, "59.9", formatQuantity(59.94))
	assert.Equal(t, "-3.5", formatQuantity(-3.5))
}

func TestNotifierSuppressesWithoutRecipient(t *testing.T) {
	f := newFixture(t)
	f.rules.Notification.DefaultRecipient = ""
	n := notifier{registry: f.reg, rule: f.rules.Notification, log: f.log, metrics: f.metrics}
	m := testMeasurement(func(m *model.FieldMeasurement) { m.AlertEmail = "" })

	err := n.notify(corrCtx(), alertTypeDrought, m, templateDrought,
		map[string]string{"moisture": "25.0"}, model.PriorityHigh, "high")

	require.NoError(t, err)
	assert.Empty(t, f.kafka.published)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AlertsSuppressed.WithLabelValues(alertTypeDrought, "no_recipient")))
}

func TestNotifierPropagatesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.kafka.err = errors.New("broker unavailable")
	n := notifier{registry: f.reg, rule: f.rules.Notification, log: f.log, metrics: f.metrics}

	err := n.notify(corrCtx(), alertTypeDrought, testMeasurement(), templateDrought,
		map[string]string{"moisture": "25.0"}, model.PriorityHigh, "high")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestNotifierStampsCorrelationAndPartitionKey(t *testing.T) {
	f := newFixture(t)
	n := notifier{registry: f.reg, rule: f.rules.Notification, log: f.log, metrics: f.metrics}

	err := n.notify(corrCtx(), alertTypeDrought, testMeasurement(), templateDrought,
		map[string]string{"moisture": "25.0"}, model.PriorityHigh, "high")

	require.NoError(t, err)
	require.Len(t, f.kafka.published, 1)
	msg := f.kafka.published[0]
	assert.Equal(t, f.rules.Notification.Topic, msg.topic)
	assert.Equal(t, "corr-1", msg.props[correlate.PropCorrelationID])
	assert.Equal(t, "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01", msg.props[correlate.PropTraceParent])
	assert.Equal(t, "field-7", msg.props[broker.PropPartitionKey])
}

func TestNotifierGeneratesMissingCorrelation(t *testing.T) {
	f := newFixture(t)
	n := notifier{registry: f.reg, rule: f.rules.Notification, log: f.log, metrics: f.metrics}

	err := n.notify(context.Background(), alertTypeDrought, testMeasurement(), templateDrought,
		map[string]string{"moisture": "25.0"}, model.PriorityHigh, "high")

	require.NoError(t, err)
	require.Len(t, f.kafka.published, 1)
	props := f.kafka.published[0].props
	assert.NotEmpty(t, props[correlate.PropCorrelationID])
	assert.NotEmpty(t, props[correlate.PropTraceParent])
}

func TestJournalHandlerNeverFails(t *testing.T) {
	f := newFixture(t)
	journal := &recordingJournal{}
	h := NewJournalHandler(journal, f.log, f.metrics)

	require.Equal(t, "journal", h.Name())
	require.Equal(t, event.KindMeasurementCreated, h.Kind())

	err := h.Handle(context.Background(), eventFor(testMeasurement()))

	require.NoError(t, err)
	require.Len(t, journal.mirrored, 1)
	assert.Equal(t, "m-1", journal.mirrored[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.JournalWrites.WithLabelValues("ok")))
}

type recordingJournal struct {
	mirrored []model.FieldMeasurement
}

func (r *recordingJournal) Mirror(m model.FieldMeasurement) {
	r.mirrored = append(r.mirrored, m)
}
