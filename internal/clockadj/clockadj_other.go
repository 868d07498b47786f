//go:build !linux

// Package clockadj — монотонный счётчик тиков и установка системного времени.
package clockadj

import (
	"errors"
	"time"
)

var processStart = time.Now()

// MonotonicMillis — на не-Linux миллисекунды от старта процесса (монотонная часть time.Time).
func MonotonicMillis() int64 {
	return time.Since(processStart).Milliseconds()
}

// Step — на не-Linux установка системного времени не поддерживается.
func Step(t time.Time) error {
	_ = t
	return errors.New("clock step is supported on linux only")
}
