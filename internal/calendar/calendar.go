// Package calendar — календарная метка времени без долей секунды и без часового пояса.
// Её производят сетевой источник времени и RTC, потребляет канал head unit.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid — метка времени вне допустимых диапазонов.
var ErrInvalid = errors.New("invalid calendar timestamp")

// Timestamp — {год, месяц, день, час, минута, секунда}.
type Timestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// FromTime берёт календарные поля t в его собственной зоне, доли секунды отбрасываются.
func FromTime(t time.Time) Timestamp {
	return Timestamp{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Time возвращает метку как time.Time в UTC (зона условная, метка «наивная»).
func (ts Timestamp) Time() time.Time {
	return time.Date(ts.Year, time.Month(ts.Month), ts.Day, ts.Hour, ts.Minute, ts.Second, 0, time.UTC)
}

// Add сдвигает метку на d с нормализацией календаря; доли секунды отбрасываются.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	return FromTime(ts.Time().Add(d).Truncate(time.Second))
}

// Validate проверяет month∈[1,12], day в пределах месяца, hour∈[0,23], minute/second∈[0,59].
func (ts Timestamp) Validate() error {
	if ts.Month < 1 || ts.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalid, ts.Month)
	}
	if ts.Day < 1 || ts.Day > DaysIn(ts.Year, ts.Month) {
		return fmt.Errorf("%w: day %d for %04d-%02d", ErrInvalid, ts.Day, ts.Year, ts.Month)
	}
	if ts.Hour < 0 || ts.Hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalid, ts.Hour)
	}
	if ts.Minute < 0 || ts.Minute > 59 {
		return fmt.Errorf("%w: minute %d", ErrInvalid, ts.Minute)
	}
	if ts.Second < 0 || ts.Second > 59 {
		return fmt.Errorf("%w: second %d", ErrInvalid, ts.Second)
	}
	return nil
}

// DaysIn возвращает число дней в месяце с учётом високосного года.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Weekday — день недели 1..7 (понедельник = 1), как в регистре DS3231.
func (ts Timestamp) Weekday() int {
	wd := int(ts.Time().Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second)
}
