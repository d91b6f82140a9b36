package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seann-Moser/useless/pkg/pwm"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "useless.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint8(0x40), cfg.Bus.Address)
	assert.Equal(t, 21, cfg.Trigger.Line)
	assert.Equal(t, pwm.Channel(15), cfg.Actuators.Lid.Channel)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
bus:
  backend: sim
actuators:
  flag:
    channel: 12
    min: 1500
    max: 2450
    rest: 2450
dispatcher:
  cooldown: 30s
  schedule: ["@every 1h"]
logger:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sim", cfg.Bus.Backend)
	assert.Equal(t, pwm.Channel(12), cfg.Actuators.Flag.Channel)
	assert.Equal(t, pwm.Channel(14), cfg.Actuators.Arm.Channel, "unset sections keep defaults")
	assert.Equal(t, 30*time.Second, cfg.Dispatcher.Cooldown)
	assert.Equal(t, 10*time.Millisecond, cfg.Dispatcher.PollInterval)
	assert.Equal(t, []string{"@every 1h"}, cfg.Dispatcher.Schedule)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"backend":       "bus:\n  backend: spi\n",
		"address":       "bus:\n  address: 200\n",
		"shared":        "actuators:\n  flag:\n    channel: 15\n    min: 1500\n    max: 2450\n    rest: 2450\n",
		"indicator":     "indicator:\n  line: 21\n",
		"poll interval": "dispatcher:\n  poll_interval: 0s\n",
		"yaml":          "bus: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
