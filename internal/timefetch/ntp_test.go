package timefetch

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexwizp/iot-backup/internal/calendar"
)

func ntpPacket(t time.Time) []byte {
	b := make([]byte, ntpPacketSize)
	b[0] = 0x1c
	binary.BigEndian.PutUint32(b[40:44], uint32(t.Unix()+ntpEpochOffset))
	return b
}

func TestNTP_Fetch(t *testing.T) {
	t.Parallel()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	want := time.Date(2025, 6, 5, 11, 7, 9, 0, time.UTC)
	go func() {
		buf := make([]byte, 64)
		n, addr, err := pc.ReadFrom(buf)
		if err != nil || n < ntpPacketSize || buf[0] != 0x1b {
			return
		}
		_, _ = pc.WriteTo(ntpPacket(want), addr)
	}()

	src := NewNTP(pc.LocalAddr().String(), time.Second)
	r, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, calendar.FromTime(want), r.Time)
	assert.True(t, r.HasOffset)
	assert.Zero(t, r.ReportedOffsetHours)
}

func TestNTP_Timeout(t *testing.T) {
	t.Parallel()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	_, err = NewNTP(pc.LocalAddr().String(), 100*time.Millisecond).Fetch(context.Background())
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "read", fe.Op)
}

func TestNewNTP_DefaultPort(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ntp:192.0.2.1:123", NewNTP("192.0.2.1", 0).Name())
	assert.Equal(t, "ntp:192.0.2.1:1123", NewNTP("192.0.2.1:1123", 0).Name())
}

func TestParseNTPResponse(t *testing.T) {
	t.Parallel()
	_, err := parseNTPResponse(make([]byte, 10))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = parseNTPResponse(make([]byte, ntpPacketSize))
	assert.ErrorIs(t, err, ErrMalformed)

	want := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := parseNTPResponse(ntpPacket(want))
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}
