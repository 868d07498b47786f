// Package wifi — подключение станции WiFi с ограниченным числом опросов.
package wifi

import (
	"context"
	"errors"
	"fmt"
)

// ErrTimeout — станция не подключилась за отведённое число опросов.
var ErrTimeout = errors.New("association timed out")

// Status — состояние подключения.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Station — драйвер WiFi станции (wpa_cli на устройстве, заглушка в тестах).
type Station interface {
	// IsConnected сообщает, ассоциирована ли станция и получен ли адрес
	IsConnected(ctx context.Context) (bool, error)
	// Connect начинает ассоциацию и не ждёт её завершения
	Connect(ctx context.Context, ssid, password string) error
	// Addrs возвращает сведения о сети для лога (ip, ssid, bssid)
	Addrs(ctx context.Context) (map[string]string, error)
}

// ConnectivityError — сбой ассоциации или истёк лимит опросов.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("wifi %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}
