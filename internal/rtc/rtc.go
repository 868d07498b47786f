// Package rtc — адаптер аппаратных часов реального времени (DS3231 на шине I2C).
// Повторы здесь не делаются: их решает оркестратор синхронизации.
package rtc

import (
	"fmt"

	"github.com/alexwizp/iot-backup/internal/calendar"
)

// Clock — часы с батарейным питанием: чтение и установка календарного времени.
type Clock interface {
	Read() (calendar.Timestamp, error)
	Write(calendar.Timestamp) error
}

// ClockError — сбой шины или устройства при чтении/записи RTC.
type ClockError struct {
	Op  string
	Err error
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("rtc %s: %v", e.Op, e.Err)
}

func (e *ClockError) Unwrap() error {
	return e.Err
}
