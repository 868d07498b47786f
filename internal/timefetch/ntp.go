package timefetch

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/alexwizp/iot-backup/internal/calendar"
)

const (
	ntpPacketSize = 48
	// NTP epoch = 1900-01-01
	ntpEpochOffset = 2208988800
)

// NTP — запасной источник: один SNTP-запрос (RFC 5905, упрощённо), время в UTC.
// Сообщённое смещение всегда 0, поэтому коррекция переводит UTC в зону head unit.
type NTP struct {
	host    string
	timeout time.Duration
}

// NewNTP создаёт NTP источник; host без порта дополняется :123.
func NewNTP(host string, timeout time.Duration) *NTP {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "123")
	}
	return &NTP{host: host, timeout: timeout}
}

// Name возвращает имя источника
func (n *NTP) Name() string {
	return fmt.Sprintf("ntp:%s", n.host)
}

// Fetch запрашивает время у NTP сервера.
func (n *NTP) Fetch(ctx context.Context) (Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", n.host)
	if err != nil {
		return Reading{}, &FetchError{Source: n.Name(), Op: "dial", Err: err}
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Reading{}, &FetchError{Source: n.Name(), Op: "deadline", Err: err}
		}
	}
	// first byte = 0x1b (version 3, client)
	req := make([]byte, ntpPacketSize)
	req[0] = 0x1b
	if _, err := conn.Write(req); err != nil {
		return Reading{}, &FetchError{Source: n.Name(), Op: "write", Err: err}
	}
	resp := make([]byte, ntpPacketSize)
	nr, err := conn.Read(resp)
	if err != nil {
		return Reading{}, &FetchError{Source: n.Name(), Op: "read", Err: err}
	}
	t, err := parseNTPResponse(resp[:nr])
	if err != nil {
		return Reading{}, &FetchError{Source: n.Name(), Op: "parse", Err: err}
	}
	return Reading{Time: calendar.FromTime(t), HasOffset: true}, nil
}

// parseNTPResponse берёт transmit timestamp (байты 40-47).
func parseNTPResponse(b []byte) (time.Time, error) {
	if len(b) < ntpPacketSize {
		return time.Time{}, fmt.Errorf("%w: short NTP packet (%d bytes)", ErrMalformed, len(b))
	}
	sec := binary.BigEndian.Uint32(b[40:44])
	frac := binary.BigEndian.Uint32(b[44:48])
	if sec == 0 {
		return time.Time{}, fmt.Errorf("%w: zero transmit timestamp", ErrMalformed)
	}
	nsec := (int64(frac) * 1e9) >> 32
	return time.Unix(int64(sec)-ntpEpochOffset, nsec).UTC(), nil
}
