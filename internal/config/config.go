// Package config loads service settings from the environment and alert rule
// thresholds from an optional file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the ingest service settings, populated from environment
// variables.
type Config struct {
	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string
	IntakeTopic  string

	KafkaBrokers []string

	InfluxURL     string
	InfluxToken   string
	InfluxOrg     string
	InfluxBucket  string
	JournalBucket string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	RulesPath       string
	ShutdownTimeout time.Duration
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads configuration from environment variables, applying defaults
// where unset. Fields without a safe default are required.
func Load() (Config, error) {
	shutdownStr := getenv("SHUTDOWN_TIMEOUT", "10s")
	shutdown, err := time.ParseDuration(shutdownStr)
	if err != nil || shutdown <= 0 {
		return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q", shutdownStr)
	}

	cfg := Config{
		MQTTHost:     getenv("MQTT_HOST", "localhost"),
		MQTTPort:     getenvInt("MQTT_PORT", 1883),
		MQTTUser:     getenv("MQTT_USER", "guest"),
		MQTTPassword: getenv("MQTT_PASSWORD", "guest"),
		MQTTClientID: getenv("HOSTNAME", "fieldalert-ingest"),
		IntakeTopic:  getenv("INTAKE_TOPIC", "measurement/#"),

		KafkaBrokers: splitList(getenv("KAFKA_BROKERS", "localhost:9092")),

		InfluxURL:     getenv("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:   os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:     getenv("INFLUX_ORG", "agrosense"),
		InfluxBucket:  getenv("INFLUX_BUCKET", "measurements"),
		JournalBucket: getenv("JOURNAL_BUCKET", "measurement_journal"),

		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
		RulesPath:       os.Getenv("RULES_PATH"),
		ShutdownTimeout: shutdown,
	}

	if cfg.InfluxToken == "" {
		return Config{}, errors.New("INFLUX_TOKEN is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return Config{}, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.MQTTPort <= 0 || cfg.MQTTPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d", cfg.MQTTPort)
	}

	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
