//go:build linux

// Package clockadj — монотонный счётчик тиков и установка системного времени.
package clockadj

import (
	"time"

	"golang.org/x/sys/unix"
)

// MonotonicMillis возвращает CLOCK_MONOTONIC в миллисекундах (эпоха — загрузка системы).
// Значение не переживает перезагрузку и используется только для арифметики интервалов.
func MonotonicMillis() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return time.Since(processStart).Milliseconds()
	}
	return int64(ts.Sec)*1000 + int64(ts.Nsec)/1_000_000
}

var processStart = time.Now()

// Step устанавливает системное время (скачок). Требует CAP_SYS_TIME или root.
func Step(t time.Time) error {
	ts := unix.NsecToTimespec(t.UnixNano())
	return unix.ClockSettime(unix.CLOCK_REALTIME, &ts)
}
