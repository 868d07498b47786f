// Package timefetch — получение внешнего авторитетного времени по сети
// (ipgeolocation.io, NTP) и коррекция часового пояса для head unit.
package timefetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexwizp/iot-backup/internal/calendar"
)

// ErrMalformed — ответ сервиса неполный или не разбирается.
var ErrMalformed = errors.New("malformed response")

// Source — один сетевой источник времени (аналог TimeSource, но с явной ошибкой).
type Source interface {
	// Name возвращает имя источника для логов
	Name() string
	// Fetch выполняет один сетевой запрос
	Fetch(ctx context.Context) (Reading, error)
}

// Reading — результат одного запроса: «наивное» время источника и сообщённое им смещение от UTC.
type Reading struct {
	Time calendar.Timestamp
	// ReportedOffsetHours — смещение зоны источника с учётом DST, часы (может быть дробным)
	ReportedOffsetHours float64
	// HasOffset — источник сообщил смещение
	HasOffset bool
}

// FetchError — сеть недоступна, ответ неполный или метка времени не разбирается.
type FetchError struct {
	Source string
	Op     string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
