package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"trackcore/internal/config"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "receiver.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaultsForOmittedKeys(t *testing.T) {
	assert := assert.New(t)

	path := writeYAML(t, "n_channels: 4\n")
	cfg, err := config.Load(path)
	assert.NoError(err)
	assert.Equal(4, cfg.NumChannels)
	assert.True(cfg.Device.Sim)
	assert.NotEmpty(cfg.LoopParams)
}

func TestLoad_RejectsNonPositiveChannelCount(t *testing.T) {
	assert := assert.New(t)

	path := writeYAML(t, "n_channels: 0\n")
	_, err := config.Load(path)
	assert.Error(err)
}

func TestLoad_RejectsMalformedLoopParamsEagerly(t *testing.T) {
	assert := assert.New(t)

	path := writeYAML(t, "n_channels: 4\nloop_params: \"not a grammar\"\n")
	_, err := config.Load(path)
	assert.Error(err)
}

func TestLoad_OverridesDeviceAndTelemetry(t *testing.T) {
	assert := assert.New(t)

	path := writeYAML(t, `
n_channels: 8
device:
  sim: false
  port: /dev/ttyUSB0
  baud: 921600
telemetry:
  websocket_addr: ":9000"
  compress_iq: true
  rtp_addr: 239.1.1.1:5004
`)
	cfg, err := config.Load(path)
	assert.NoError(err)
	assert.False(cfg.Device.Sim)
	assert.Equal("/dev/ttyUSB0", cfg.Device.Port)
	assert.Equal(921600, cfg.Device.Baud)
	assert.Equal(":9000", cfg.Telemetry.WebsocketAddr)
	assert.True(cfg.Telemetry.CompressIQ)
	assert.Equal("239.1.1.1:5004", cfg.Telemetry.RTPAddr)
}
