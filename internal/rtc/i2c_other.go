//go:build !linux

package rtc

import (
	"errors"
	"io"
)

// OpenDS3231 — на не-Linux шина I2C недоступна.
func OpenDS3231(busName string, addr uint16) (*DS3231, io.Closer, error) {
	_, _ = busName, addr
	return nil, nil, &ClockError{Op: "open", Err: errors.New("i2c is supported on linux only")}
}
