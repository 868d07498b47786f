package rtc

import (
	"errors"
	"fmt"

	"github.com/alexwizp/iot-backup/internal/calendar"
)

// DefaultAddress — адрес DS3231 на шине I2C.
const DefaultAddress = 0x68

// Регистры DS3231
const (
	regSeconds = 0x00
	regStatus  = 0x0F

	timeRegs = 7

	hour12Mode = 0x40
	hourPM     = 0x20
	century    = 0x80
	statusOSF  = 0x80
)

// Conn — транзакция на шине: запись w, затем чтение в r (periph conn.Conn).
type Conn interface {
	Tx(w, r []byte) error
}

// DS3231 — RTC Maxim DS3231, время хранится в BCD, 24-часовой режим при записи.
type DS3231 struct {
	conn Conn
}

// NewDS3231 создаёт адаптер поверх готового соединения с устройством.
func NewDS3231(conn Conn) *DS3231 {
	return &DS3231{conn: conn}
}

// Read читает регистры 0x00..0x06 и декодирует календарное время.
func (d *DS3231) Read() (calendar.Timestamp, error) {
	buf := make([]byte, timeRegs)
	if err := d.conn.Tx([]byte{regSeconds}, buf); err != nil {
		return calendar.Timestamp{}, &ClockError{Op: "read", Err: err}
	}
	ts, err := decodeTime(buf)
	if err != nil {
		return calendar.Timestamp{}, &ClockError{Op: "read", Err: err}
	}
	return ts, nil
}

// Write записывает время и сбрасывает флаг остановки генератора (OSF).
func (d *DS3231) Write(ts calendar.Timestamp) error {
	regs, err := encodeTime(ts)
	if err != nil {
		return &ClockError{Op: "write", Err: err}
	}
	if err := d.conn.Tx(append([]byte{regSeconds}, regs...), nil); err != nil {
		return &ClockError{Op: "write", Err: err}
	}
	status := make([]byte, 1)
	if err := d.conn.Tx([]byte{regStatus}, status); err != nil {
		return &ClockError{Op: "write status", Err: err}
	}
	if status[0]&statusOSF != 0 {
		if err := d.conn.Tx([]byte{regStatus, status[0] &^ statusOSF}, nil); err != nil {
			return &ClockError{Op: "write status", Err: err}
		}
	}
	return nil
}

// LostPower сообщает, останавливался ли генератор с момента последней установки времени.
func (d *DS3231) LostPower() (bool, error) {
	status := make([]byte, 1)
	if err := d.conn.Tx([]byte{regStatus}, status); err != nil {
		return false, &ClockError{Op: "read status", Err: err}
	}
	return status[0]&statusOSF != 0, nil
}

func encodeTime(ts calendar.Timestamp) ([]byte, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	if ts.Year < 2000 || ts.Year > 2199 {
		return nil, fmt.Errorf("%w: year %d outside 2000..2199", calendar.ErrInvalid, ts.Year)
	}
	month := toBCD(ts.Month)
	yy := ts.Year - 2000
	if yy >= 100 {
		month |= century
		yy -= 100
	}
	return []byte{
		toBCD(ts.Second),
		toBCD(ts.Minute),
		toBCD(ts.Hour),
		byte(ts.Weekday()),
		toBCD(ts.Day),
		month,
		toBCD(yy),
	}, nil
}

func decodeTime(b []byte) (calendar.Timestamp, error) {
	if len(b) < timeRegs {
		return calendar.Timestamp{}, errors.New("short register read")
	}
	var hour int
	if b[2]&hour12Mode != 0 {
		hour = fromBCD(b[2] & 0x1F)
		if hour == 12 {
			hour = 0
		}
		if b[2]&hourPM != 0 {
			hour += 12
		}
	} else {
		hour = fromBCD(b[2] & 0x3F)
	}
	year := 2000 + fromBCD(b[6])
	if b[5]&century != 0 {
		year += 100
	}
	ts := calendar.Timestamp{
		Year:   year,
		Month:  fromBCD(b[5] & 0x1F),
		Day:    fromBCD(b[4] & 0x3F),
		Hour:   hour,
		Minute: fromBCD(b[1] & 0x7F),
		Second: fromBCD(b[0] & 0x7F),
	}
	if err := ts.Validate(); err != nil {
		return calendar.Timestamp{}, err
	}
	return ts, nil
}

func toBCD(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}
