package sensor_simulator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrosense/fieldalert/internal/correlate"
	"github.com/agrosense/fieldalert/internal/services/ingest"
)

type capturePublisher struct {
	mu        sync.Mutex
	topics    []string
	payloads  [][]byte
	props     []map[string]string
	delivered chan struct{}
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{delivered: make(chan struct{}, 64)}
}

func (p *capturePublisher) Publish(_ context.Context, topic string, payload []byte, props map[string]string) error {
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	p.props = append(p.props, props)
	p.mu.Unlock()
	p.delivered <- struct{}{}
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) waitFor(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.delivered:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for publish %d of %d", i+1, n)
		}
	}
}

func TestRunPublishesEveryProbePerRound(t *testing.T) {
	clock := clockwork.NewFakeClockAt(simStart)
	pub := newCapturePublisher()
	specs := []SensorSpec{
		{FieldID: "field-1", SensorID: "sensor-1"},
		{FieldID: "field-2", SensorID: "sensor-1"},
	}
	sim := NewSimulator(NewDataGenerator(1, clock), pub, specs, time.Minute, clock, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	// First round goes out before any tick.
	pub.waitFor(t, 2)

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	pub.waitFor(t, 2)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, []string{
		"measurement/field-1/sensor-1",
		"measurement/field-2/sensor-1",
		"measurement/field-1/sensor-1",
		"measurement/field-2/sensor-1",
	}, pub.topics)

	var m ingest.IncomingMeasurement
	require.NoError(t, json.Unmarshal(pub.payloads[0], &m))
	assert.Equal(t, "field-1", m.FieldID)
	assert.False(t, m.CollectedAt.IsZero())
}

func TestRunStampsFreshCorrelationPerMeasurement(t *testing.T) {
	clock := clockwork.NewFakeClockAt(simStart)
	pub := newCapturePublisher()
	specs := []SensorSpec{
		{FieldID: "field-1", SensorID: "sensor-1"},
		{FieldID: "field-1", SensorID: "sensor-2"},
	}
	sim := NewSimulator(NewDataGenerator(1, clock), pub, specs, time.Minute, clock, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()
	pub.waitFor(t, 2)
	cancel()
	<-done

	pub.mu.Lock()
	defer pub.mu.Unlock()
	first := pub.props[0][correlate.PropCorrelationID]
	second := pub.props[1][correlate.PropCorrelationID]
	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
	assert.NotEmpty(t, pub.props[0][correlate.PropTraceParent])
}
