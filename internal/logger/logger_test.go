package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(zapcore.AddSync(&buf))
	t.Cleanup(func() {
		SetQuiet(false)
		SetOutput(zapcore.AddSync(&bytes.Buffer{}))
	})
	return &buf
}

func TestQuiet(t *testing.T) {
	buf := capture(t)
	SetQuiet(true)
	Info("timesync: hidden %d", 1)
	Warn("timesync: shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")
}

func TestDebug(t *testing.T) {
	buf := capture(t)
	Debug("rtc: before")
	SetDebug(true)
	Debug("rtc: after")
	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "rtc: after")
	assert.Contains(t, buf.String(), "DEBUG")
}

func TestWriter(t *testing.T) {
	buf := capture(t)
	_, err := Writer("wpa_supplicant").Write([]byte("wlan0: CTRL-EVENT-CONNECTED\n"))
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "wpa_supplicant")
	assert.Contains(t, buf.String(), "CTRL-EVENT-CONNECTED")
}
