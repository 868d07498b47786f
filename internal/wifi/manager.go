package wifi

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/alexwizp/iot-backup/internal/logger"
)

var errNotYet = errors.New("not connected yet")

// Options — учётные данные и лимиты опроса.
type Options struct {
	SSID     string
	Password string
	// Attempts — число опросов после запуска ассоциации (200)
	Attempts int
	// Delay — пауза между опросами (100ms)
	Delay time.Duration
}

// Manager владеет станцией и отслеживает переходы состояния.
type Manager struct {
	station Station
	opts    Options
	last    Status
}

// NewManager создаёт менеджер; Attempts<1 — 1, Delay<0 — 0.
func NewManager(station Station, opts Options) *Manager {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	return &Manager{station: station, opts: opts, last: Disconnected}
}

// Status опрашивает станцию один раз; ошибка драйвера — Disconnected.
func (m *Manager) Status(ctx context.Context) Status {
	ok, err := m.station.IsConnected(ctx)
	if err != nil {
		logger.Debug("wifi: status: %v", err)
		ok = false
	}
	if ok {
		m.observe(ctx, Connected)
		return Connected
	}
	m.observe(ctx, Disconnected)
	return Disconnected
}

// EnsureConnected возвращает Connected сразу, если станция уже подключена.
// Иначе запускает ассоциацию и ждёт до Attempts опросов через Delay.
// Ошибка всегда *ConnectivityError, статус при ней Disconnected.
func (m *Manager) EnsureConnected(ctx context.Context) (Status, error) {
	if m.Status(ctx) == Connected {
		return Connected, nil
	}
	m.last = Connecting
	logger.Info("wifi: connecting to %q", m.opts.SSID)
	if err := m.station.Connect(ctx, m.opts.SSID, m.opts.Password); err != nil {
		m.last = Disconnected
		return Disconnected, &ConnectivityError{Op: "associate", Err: err}
	}

	poll := func() (struct{}, error) {
		ok, err := m.station.IsConnected(ctx)
		if err != nil {
			logger.Debug("wifi: poll: %v", err)
		}
		if !ok {
			return struct{}{}, errNotYet
		}
		return struct{}{}, nil
	}
	_, err := backoff.Retry(ctx, poll,
		backoff.WithBackOff(backoff.NewConstantBackOff(m.opts.Delay)),
		backoff.WithMaxTries(uint(m.opts.Attempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		m.last = Disconnected
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Disconnected, &ConnectivityError{Op: "wait", Err: ctxErr}
		}
		logger.Warn("wifi: not connected after %d polls", m.opts.Attempts)
		return Disconnected, &ConnectivityError{Op: "wait", Err: ErrTimeout}
	}
	m.observe(ctx, Connected)
	return Connected, nil
}

// observe фиксирует статус; при переходе в Connected пишет сведения о сети.
func (m *Manager) observe(ctx context.Context, s Status) {
	prev := m.last
	m.last = s
	if s != Connected || prev == Connected {
		if s == Disconnected && prev == Connected {
			logger.Warn("wifi: connection lost")
		}
		return
	}
	addrs, err := m.station.Addrs(ctx)
	if err != nil {
		logger.Info("wifi: connected")
		return
	}
	logger.Info("wifi: connected: %s", formatAddrs(addrs))
}

func formatAddrs(addrs map[string]string) string {
	keys := make([]string, 0, len(addrs))
	for k := range addrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+addrs[k])
	}
	return strings.Join(parts, " ")
}
