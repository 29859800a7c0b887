package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agrosense/fieldalert/internal/alerting"
	"github.com/agrosense/fieldalert/internal/config"
	"github.com/agrosense/fieldalert/internal/event"
	"github.com/agrosense/fieldalert/internal/observability"
	"github.com/agrosense/fieldalert/internal/services/ingest"
	"github.com/agrosense/fieldalert/internal/store"
	"github.com/agrosense/fieldalert/pkg/broker"
	"github.com/agrosense/fieldalert/pkg/dedup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		slog.Error("failed to load alert rules", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	influx := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	defer influx.Close()
	measurements := store.NewInfluxStore(influx, cfg.InfluxOrg, cfg.InfluxBucket, logger, metrics)
	guarded := store.NewBreakerStore(measurements)
	journal := store.NewJournalStore(influx.WriteAPI(cfg.InfluxOrg, cfg.JournalBucket), logger, metrics)

	mqttClient, err := broker.NewMQTTConn(ctx, broker.MQTTConfig{
		Host:     cfg.MQTTHost,
		Port:     cfg.MQTTPort,
		User:     cfg.MQTTUser,
		Password: cfg.MQTTPassword,
		ClientID: cfg.MQTTClientID,
	}, logger)
	if err != nil {
		logger.Error("mqtt connection failed", "error", err)
		os.Exit(1)
	}

	registry, err := broker.NewRegistry(map[broker.Transport]broker.IPublisher{
		broker.TransportMQTT:  broker.NewMQTTPublisher(mqttClient, logger),
		broker.TransportKafka: broker.NewKafkaPublisher(cfg.KafkaBrokers, logger),
	})
	if err != nil {
		logger.Error("broker registry failed", "error", err)
		os.Exit(1)
	}

	dispatcher := event.NewDispatcher(logger, metrics,
		alerting.NewDroughtHandler(guarded, rules, registry, logger, metrics),
		alerting.NewHeatStressHandler(guarded, rules, registry, logger, metrics),
		alerting.NewPestRiskHandler(guarded, rules, registry, logger, metrics),
		alerting.NewIrrigationHandler(guarded, rules, registry, logger, metrics),
		alerting.NewRainfallHandler(rules, registry, logger, metrics),
		alerting.NewExtremeHeatHandler(rules, registry, logger, metrics),
		alerting.NewFreezeHandler(rules, registry, logger, metrics),
		alerting.NewJournalHandler(journal, logger, metrics),
	)

	svc := ingest.NewService(guarded, dispatcher, dedup.New(0, 0), logger, metrics)
	consumer := broker.NewMQTTConsumer(mqttClient, cfg.IntakeTopic, logger)
	svc.Attach(ctx, consumer)

	srv := ingest.NewServer(cfg.HTTPAddr, measurements, mqttClient, journal, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error("intake consumer error", "error", err)
			stop()
		}
	}()

	logger.Info("ingest service started",
		"intake_topic", cfg.IntakeTopic, "http_addr", cfg.HTTPAddr,
		"notification_topic", rules.Notification.Topic)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	journal.Flush()
	if err := registry.CloseAll(); err != nil {
		logger.Error("publisher close error", "error", err)
	}

	logger.Info("shutdown complete")
}
