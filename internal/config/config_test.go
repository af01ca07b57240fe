package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
serial:
  port: /dev/ttyUSB1
device:
  model: KX-R
  twenty: true
logging:
  level: debug
  format: json
mqtt:
  enabled: true
  broker:
    host: broker.local
    port: 8883
  topic_prefix: hifi/preamp
`)

	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 2400, cfg.Serial.Baud)
	assert.Equal(t, "KX-R", cfg.Device.Model)
	assert.True(t, cfg.Device.Twenty)
	assert.Equal(t, "K", cfg.Device.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "broker.local", cfg.MQTT.Broker.Host)
	assert.Equal(t, 8883, cfg.MQTT.Broker.Port)
	assert.Equal(t, "hifi/preamp", cfg.MQTT.TopicPrefix)
	assert.Equal(t, 1, cfg.MQTT.QoS)
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := Load(missing, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(missing, false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "serial: [\n"), false)
	assert.ErrorContains(t, err, "parsing config file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AYRELINK_SERIAL_PORT", "/dev/ttyS3")
	t.Setenv("AYRELINK_MODEL", "KX-R")
	t.Setenv("AYRELINK_TWENTY", "true")
	t.Setenv("AYRELINK_MQTT_HOST", "mqtt.example")
	t.Setenv("AYRELINK_MQTT_PASSWORD", "secret")

	cfg, err := Load(writeConfig(t, "serial:\n  port: /dev/ttyUSB0\n"), false)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyS3", cfg.Serial.Port)
	assert.Equal(t, "KX-R", cfg.Device.Model)
	assert.True(t, cfg.Device.Twenty)
	assert.Equal(t, "mqtt.example", cfg.MQTT.Broker.Host)
	assert.Equal(t, "secret", cfg.MQTT.Auth.Password)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{name: "baud", modify: func(c *Config) { c.Serial.Baud = 0 }, want: "serial.baud"},
		{name: "address", modify: func(c *Config) { c.Device.Address = "KK" }, want: "device.address"},
		{name: "format", modify: func(c *Config) { c.Logging.Format = "xml" }, want: "logging.format"},
		{name: "mqtt host", modify: func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Broker.Host = "" }, want: "mqtt.broker.host"},
		{name: "mqtt qos", modify: func(c *Config) { c.MQTT.Enabled = true; c.MQTT.QoS = 3 }, want: "mqtt.qos"},
		{name: "mqtt disabled", modify: func(c *Config) { c.MQTT.QoS = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
