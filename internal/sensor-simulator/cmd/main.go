package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/agrosense/fieldalert/internal/observability"
	sensorSimulator "github.com/agrosense/fieldalert/internal/sensor-simulator"
	"github.com/agrosense/fieldalert/pkg/broker"
)

func main() {
	brokerAddr := flag.String("broker", "localhost:1883", "mqtt broker host:port")
	fields := flag.Int("fields", 2, "number of simulated fields")
	sensors := flag.Int("sensors", 2, "sensors per field")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	alertEmail := flag.String("alert-email", "", "alert address stamped on every measurement")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed, fixed seeds replay the same weather")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	flag.Parse()

	logger := observability.NewLogger(*logLevel, "text")

	host, port, err := splitBrokerAddr(*brokerAddr)
	if err != nil {
		logger.Error("invalid broker address", "broker", *brokerAddr, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := broker.NewMQTTConn(ctx, broker.MQTTConfig{
		Host:     host,
		Port:     port,
		User:     envOr("MQTT_USER", "guest"),
		Password: envOr("MQTT_PASSWORD", "guest"),
		ClientID: fmt.Sprintf("sensor-simulator-%d", os.Getpid()),
	}, logger)
	if err != nil {
		logger.Error("mqtt connection failed", "error", err)
		os.Exit(1)
	}

	specs := make([]sensorSimulator.SensorSpec, 0, (*fields)*(*sensors))
	for f := 1; f <= *fields; f++ {
		for s := 1; s <= *sensors; s++ {
			specs = append(specs, sensorSimulator.SensorSpec{
				FieldID:    fmt.Sprintf("field-%d", f),
				SensorID:   fmt.Sprintf("sensor-%d", s),
				AlertEmail: *alertEmail,
			})
		}
	}

	gen := sensorSimulator.NewDataGenerator(*seed, clockwork.NewRealClock())
	sim := sensorSimulator.NewSimulator(gen, broker.NewMQTTPublisher(client, logger),
		specs, *interval, clockwork.NewRealClock(), logger)

	logger.Info("simulator started",
		"broker", *brokerAddr, "probes", len(specs), "interval", interval.String(), "seed", *seed)

	if err := sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("simulator stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("simulator stopped")
}

func splitBrokerAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
