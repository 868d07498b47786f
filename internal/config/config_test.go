package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
wifi:
  ssid: atlas
  password: secret
time_source:
  correction: difference
  target_offset_hours: 2
  primary_clocks:
    - protocol: ipgeolocation
      api_key: k1
  secondary_clocks:
    - protocol: ntp
      ip: pool.ntp.org
      timeout_ms: 3000
sync:
  sync_interval_ms: 3600000
  push_interval_ms: 30000
head_unit:
  device: /dev/ttyUSB0
  driver: tarm
`

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "atlas-time-sync.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "atlas", cfg.WiFi.SSID)
	assert.Equal(t, "wlan0", cfg.WiFi.Interface, "default interface")
	assert.Equal(t, 200, cfg.WiFi.ConnectAttempts)
	assert.Equal(t, 100, cfg.WiFi.ConnectDelayMs)
	assert.Equal(t, "difference", cfg.TimeSource.Correction)
	assert.InDelta(t, 2.0, cfg.TimeSource.TargetOffsetHours, 1e-9)
	assert.Equal(t, int64(3600000), cfg.Sync.SyncIntervalMs)
	assert.Equal(t, int64(30000), cfg.Sync.PushIntervalMs)
	assert.Equal(t, int64(15000), cfg.Sync.TickMs, "default tick")
	assert.Equal(t, uint16(0x68), cfg.RTC.Address)
	assert.Equal(t, "/dev/ttyUSB0", cfg.HeadUnit.Device)
	assert.Equal(t, 921600, cfg.HeadUnit.Baud)
	assert.Equal(t, DriverTarm, cfg.HeadUnit.Driver)
	require.Len(t, cfg.TimeSource.SecondaryClocks, 1)
	assert.Equal(t, 3000, cfg.TimeSource.SecondaryClocks[0].TimeoutMs)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad yaml", func(t *testing.T) {
		t.Parallel()
		_, err := Parse([]byte("sync: [1, 2"))
		assert.ErrorContains(t, err, "parse config")
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"negative push interval", func(c *Config) { c.Sync.PushIntervalMs = -1 }, "push_interval_ms"},
		{"zero tick", func(c *Config) { c.Sync.TickMs = 0 }, "tick_ms"},
		{"zero attempts", func(c *Config) { c.WiFi.ConnectAttempts = 0 }, "connect_attempts"},
		{"unknown correction", func(c *Config) { c.TimeSource.Correction = "smart" }, "unknown policy"},
		{"unknown driver", func(c *Config) { c.HeadUnit.Driver = "usb" }, "unknown driver"},
		{"ipgeolocation without key", func(c *Config) {
			c.TimeSource.PrimaryClocks = []ClockSource{{Protocol: ProtocolIPGeolocation}}
		}, "requires api_key"},
		{"disabled source is not checked", func(c *Config) {
			c.TimeSource.PrimaryClocks = []ClockSource{{Protocol: "gps", Disable: true}}
		}, ""},
		{"unknown protocol", func(c *Config) {
			c.TimeSource.SecondaryClocks = []ClockSource{{Protocol: "gps"}}
		}, "unknown protocol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSetAPIKey(t *testing.T) {
	t.Parallel()

	t.Run("overrides configured sources", func(t *testing.T) {
		t.Parallel()
		c := Default()
		c.TimeSource.PrimaryClocks = []ClockSource{{Protocol: ProtocolIPGeolocation}, {Protocol: ProtocolNTP, IP: "pool.ntp.org"}}
		c.SetAPIKey("env-key")
		assert.Equal(t, "env-key", c.TimeSource.PrimaryClocks[0].APIKey)
		assert.Empty(t, c.TimeSource.PrimaryClocks[1].APIKey)
		assert.NoError(t, c.Validate())
	})

	t.Run("adds primary source when none configured", func(t *testing.T) {
		t.Parallel()
		c := Default()
		c.SetAPIKey("env-key")
		require.Len(t, c.TimeSource.PrimaryClocks, 1)
		assert.Equal(t, ProtocolIPGeolocation, c.TimeSource.PrimaryClocks[0].Protocol)
	})

	t.Run("empty key is ignored", func(t *testing.T) {
		t.Parallel()
		c := Default()
		c.SetAPIKey("")
		assert.Empty(t, c.TimeSource.PrimaryClocks)
	})
}

func TestSyncConfig_Intervals(t *testing.T) {
	t.Parallel()
	syncEvery, pushEvery, tick := Default().Sync.Intervals()
	assert.Equal(t, "2h0m0s", syncEvery.String())
	assert.Equal(t, "1m0s", pushEvery.String())
	assert.Equal(t, "15s", tick.String())
}
