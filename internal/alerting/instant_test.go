package alerting

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrosense/fieldalert/internal/correlate"
	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/pkg/broker"
)

func decodeAlert(t *testing.T, pub *fakePublisher) thresholdAlert {
	t.Helper()
	require.Len(t, pub.published, 1)
	var alert thresholdAlert
	require.NoError(t, json.Unmarshal(pub.published[0].payload, &alert))
	return alert
}

func TestRainfallHandlerAlertsAboveThreshold(t *testing.T) {
	f := newFixture(t)
	m := testMeasurement(func(m *model.FieldMeasurement) { m.PrecipitationMM = 75 })
	h := NewRainfallHandler(f.rules, f.reg, f.log, f.metrics)

	require.NoError(t, h.Handle(corrCtx(), eventFor(m)))

	require.Len(t, f.mqtt.published, 1)
	msg := f.mqtt.published[0]
	assert.Equal(t, "alert/excessiveRainfall/field-7", msg.topic)
	assert.Equal(t, "corr-1", msg.props[correlate.PropCorrelationID])
	assert.NotEmpty(t, msg.props[correlate.PropTraceParent])
	assert.NotContains(t, msg.props, broker.PropPartitionKey)

	alert := decodeAlert(t, f.mqtt)
	assert.Equal(t, alertTypeRainfall, alert.AlertType)
	assert.Equal(t, "field-7", alert.FieldID)
	assert.Equal(t, "sensor-1", alert.SensorID)
	assert.Equal(t, "m-1", alert.MeasurementID)
	assert.Equal(t, 75.0, alert.Value)
	assert.Equal(t, 60.0, alert.Threshold)
	assert.Equal(t, "mm", alert.Unit)
	assert.Equal(t, "high", alert.Severity)
	assert.Equal(t, "corr-1", alert.CorrelationID)
	assert.True(t, alert.ObservedAt.Equal(trigger))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AlertsPublished.WithLabelValues(alertTypeRainfall, "mqtt")))
	assert.Empty(t, f.kafka.published)
}

func TestRainfallHandlerIgnoresReadingsAtOrBelowThreshold(t *testing.T) {
	for _, mm := range []float64{59.4, 60} {
		f := newFixture(t)
		m := testMeasurement(func(m *model.FieldMeasurement) { m.PrecipitationMM = mm })
		h := NewRainfallHandler(f.rules, f.reg, f.log, f.metrics)

		require.NoError(t, h.Handle(corrCtx(), eventFor(m)))
		assert.Empty(t, f.mqtt.published, "precipitation %.1f must not alert", mm)
	}
}

func TestExtremeHeatHandlerAlertsAboveThreshold(t *testing.T) {
	f := newFixture(t)
	m := testMeasurement(func(m *model.FieldMeasurement) { m.AirTemperature = 45 })
	h := NewExtremeHeatHandler(f.rules, f.reg, f.log, f.metrics)

	require.NoError(t, h.Handle(corrCtx(), eventFor(m)))

	require.Len(t, f.mqtt.published, 1)
	assert.Equal(t, "alert/extremeHeat/field-7", f.mqtt.published[0].topic)

	alert := decodeAlert(t, f.mqtt)
	assert.Equal(t, alertTypeExtremeHeat, alert.AlertType)
	assert.Equal(t, 45.0, alert.Value)
	assert.Equal(t, 42.0, alert.Threshold)
	assert.Equal(t, "°C", alert.Unit)
	assert.Equal(t, "critical", alert.Severity)
}

func TestFreezeHandlerAlertsBelowThreshold(t *testing.T) {
	f := newFixture(t)
	m := testMeasurement(func(m *model.FieldMeasurement) { m.AirTemperature = -3 })
	h := NewFreezeHandler(f.rules, f.reg, f.log, f.metrics)

	require.NoError(t, h.Handle(corrCtx(), eventFor(m)))

	require.Len(t, f.mqtt.published, 1)
	assert.Equal(t, "alert/freeze/field-7", f.mqtt.published[0].topic)

	alert := decodeAlert(t, f.mqtt)
	assert.Equal(t, alertTypeFreeze, alert.AlertType)
	assert.Equal(t, -3.0, alert.Value)
	assert.Equal(t, 0.0, alert.Threshold)
	assert.Equal(t, "critical", alert.Severity)
}

func TestInstantHandlerPropagatesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.mqtt.err = errors.New("connection lost")
	m := testMeasurement(func(m *model.FieldMeasurement) { m.PrecipitationMM = 75 })
	h := NewRainfallHandler(f.rules, f.reg, f.log, f.metrics)

	err := h.Handle(corrCtx(), eventFor(m))

	require.Error(t, err)
	assert.ErrorContains(t, err, "publish excessive_rainfall alert")
	assert.ErrorContains(t, err, "connection lost")
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.AlertsPublished.WithLabelValues(alertTypeRainfall, "mqtt")))
}
