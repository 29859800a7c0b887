package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-influx-token"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INFLUX_TOKEN", testToken)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.MQTTHost)
	assert.Equal(t, 1883, cfg.MQTTPort)
	assert.Equal(t, "measurement/#", cfg.IntakeTopic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "http://localhost:8086", cfg.InfluxURL)
	assert.Equal(t, testToken, cfg.InfluxToken)
	assert.Equal(t, "agrosense", cfg.InfluxOrg)
	assert.Equal(t, "measurements", cfg.InfluxBucket)
	assert.Equal(t, "measurement_journal", cfg.JournalBucket)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.RulesPath)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("INFLUX_TOKEN", testToken)
	t.Setenv("MQTT_HOST", "broker.internal")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("INTAKE_TOPIC", "measurement/north/#")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("RULES_PATH", "/etc/fieldalert/rules.yaml")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "broker.internal", cfg.MQTTHost)
	assert.Equal(t, 8883, cfg.MQTTPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "measurement/north/#", cfg.IntakeTopic)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/etc/fieldalert/rules.yaml", cfg.RulesPath)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_MissingInfluxToken(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFLUX_TOKEN")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("INFLUX_TOKEN", testToken)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidMQTTPort(t *testing.T) {
	t.Setenv("INFLUX_TOKEN", testToken)
	t.Setenv("MQTT_PORT", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT_PORT")
}
