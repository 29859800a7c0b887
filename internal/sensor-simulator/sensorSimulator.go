package sensor_simulator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/agrosense/fieldalert/internal/correlate"
	"github.com/agrosense/fieldalert/pkg/broker"
)

// Simulator publishes synthetic measurements for a set of probes at a fixed
// interval. Each measurement leaves with fresh correlation properties, the
// same way a real producer would start a chain.
type Simulator struct {
	generator *DataGenerator
	publisher broker.IPublisher
	sensors   []SensorSpec
	interval  time.Duration
	clock     clockwork.Clock
	log       *slog.Logger
}

func NewSimulator(gen *DataGenerator, pub broker.IPublisher, sensors []SensorSpec,
	interval time.Duration, clock clockwork.Clock, log *slog.Logger) *Simulator {
	return &Simulator{
		generator: gen,
		publisher: pub,
		sensors:   sensors,
		interval:  interval,
		clock:     clock,
		log:       log,
	}
}

// Run publishes one round immediately, then one per interval until the
// context ends. Publish failures are logged and the loop keeps going.
func (s *Simulator) Run(ctx context.Context) error {
	s.publishRound(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			s.publishRound(ctx)
		}
	}
}

func (s *Simulator) publishRound(ctx context.Context) {
	for _, spec := range s.sensors {
		m := s.generator.Next(spec)
		payload, err := json.Marshal(m)
		if err != nil {
			s.log.Error("measurement encode failed", "sensor", spec.key(), "error", err)
			continue
		}

		corr := correlate.New()
		if err := s.publisher.Publish(ctx, spec.Topic(), payload, corr.Properties()); err != nil {
			s.log.Error("measurement publish failed", "sensor", spec.key(), "error", err)
			continue
		}
		s.log.Debug("measurement published",
			"topic", spec.Topic(), "moisture", m.SoilMoisture,
			"temperature", m.AirTemperature, "correlation_id", corr.ID)
	}
}
