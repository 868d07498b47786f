// Package clocksync — цикл синхронизации: WiFi → сетевое время → RTC → head unit.
// Стадии идут по собственным интервалам, сбой одной не блокирует остальные.
package clocksync

import (
	"context"
	"math"
	"time"

	"github.com/alexwizp/iot-backup/internal/calendar"
	"github.com/alexwizp/iot-backup/internal/logger"
	"github.com/alexwizp/iot-backup/internal/metrics"
	"github.com/alexwizp/iot-backup/internal/rtc"
	"github.com/alexwizp/iot-backup/internal/wifi"
)

// never — «последний запуск» до старта: стадия готова на первом же тике.
const never = math.MinInt64

// Stage — имя стадии тика
type Stage string

const (
	StageConnect Stage = "connect"
	StageSync    Stage = "sync"
	StagePush    Stage = "push"
)

// Outcome — итог стадии в одном тике
type Outcome int

const (
	Skipped Outcome = iota
	OK
	Failed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// StageResult — типизированный результат стадии; Err задан только при Failed.
type StageResult struct {
	Stage   Stage
	Outcome Outcome
	Err     error
}

// Report — что произошло за один тик.
type Report struct {
	Now     int64
	Status  wifi.Status
	Connect StageResult
	Sync    StageResult
	Push    StageResult
}

// Connectivity — менеджер WiFi
type Connectivity interface {
	Status(ctx context.Context) wifi.Status
	EnsureConnected(ctx context.Context) (wifi.Status, error)
}

// TimeFetcher — сетевое время, уже приведённое к зоне head unit
type TimeFetcher interface {
	Fetch(ctx context.Context) (calendar.Timestamp, error)
}

// Pusher — канал к head unit
type Pusher interface {
	Push(ctx context.Context, ts calendar.Timestamp) (string, error)
}

// Options — интервалы и поведение стадий.
type Options struct {
	SyncInterval time.Duration
	PushInterval time.Duration
	Tick         time.Duration
	// PushAfterSync — сразу после успешной синхронизации отправить время на head unit
	PushAfterSync bool
	// SyncOnReconnect — переход Disconnected→Connected делает синхронизацию готовой вне интервала
	SyncOnReconnect bool
}

// Deps — компоненты, созданные до запуска цикла.
type Deps struct {
	WiFi    Connectivity
	Fetcher TimeFetcher
	Clock   rtc.Clock
	Link    Pusher
	Metrics *metrics.Recorder
	// Monotonic — монотонное время в миллисекундах; nil — clockadj.MonotonicMillis
	Monotonic func() int64
	// Sleep — пауза между тиками; nil — таймер с учётом ctx
	Sleep func(ctx context.Context, d time.Duration) error
}

// State — состояние цикла; меняется только в Tick.
type State struct {
	LastSyncTick int64
	LastPushTick int64
	Status       wifi.Status
}

// Orchestrator — однопоточный цикл синхронизации.
type Orchestrator struct {
	deps  Deps
	opts  Options
	state State
	wall  func() time.Time
}

// New создаёт оркестратор; обе стадии готовы к первому тику.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Monotonic == nil {
		deps.Monotonic = monotonicMillis
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepCtx
	}
	return &Orchestrator{
		deps: deps,
		opts: opts,
		state: State{
			LastSyncTick: never,
			LastPushTick: never,
			Status:       wifi.Disconnected,
		},
		wall: time.Now,
	}
}

// State возвращает копию текущего состояния
func (o *Orchestrator) State() State {
	return o.state
}

// due — интервал истёк строго: last + interval < now.
func due(last, now int64, interval time.Duration) bool {
	if last == never {
		return true
	}
	return now-last > interval.Milliseconds()
}

// Tick выполняет один проход: connect → sync → push. Ошибки стадий не выходят наружу.
func (o *Orchestrator) Tick(ctx context.Context) Report {
	now := o.deps.Monotonic()
	rep := Report{
		Now:     now,
		Connect: StageResult{Stage: StageConnect},
		Sync:    StageResult{Stage: StageSync},
		Push:    StageResult{Stage: StagePush},
	}

	prev := o.state.Status
	status := o.deps.WiFi.Status(ctx)
	if status != wifi.Connected {
		s, err := o.deps.WiFi.EnsureConnected(ctx)
		status = s
		rep.Connect = o.finish(StageConnect, err)
	}
	o.state.Status = status
	rep.Status = status
	o.deps.Metrics.Connected(status == wifi.Connected)

	reconnected := o.opts.SyncOnReconnect && prev != wifi.Connected && status == wifi.Connected
	if status == wifi.Connected && (due(o.state.LastSyncTick, now, o.opts.SyncInterval) || reconnected) {
		rep.Sync = o.finish(StageSync, o.syncTime(ctx))
		if rep.Sync.Outcome == OK {
			o.state.LastSyncTick = now
			if o.opts.PushAfterSync {
				rep.Push = o.finish(StagePush, o.push(ctx))
				if rep.Push.Outcome == OK {
					o.state.LastPushTick = now
				}
			}
		}
	}

	// push уже выполнен после синхронизации в этом тике (успешно или нет)
	if rep.Push.Outcome == Skipped && due(o.state.LastPushTick, now, o.opts.PushInterval) {
		rep.Push = o.finish(StagePush, o.push(ctx))
		if rep.Push.Outcome == OK {
			o.state.LastPushTick = now
		}
	}
	return rep
}

func (o *Orchestrator) finish(stage Stage, err error) StageResult {
	o.deps.Metrics.Attempt(string(stage), err, o.wall())
	if err != nil {
		logger.Warn("clocksync: %s failed: %v", stage, err)
		return StageResult{Stage: stage, Outcome: Failed, Err: err}
	}
	return StageResult{Stage: stage, Outcome: OK}
}

// syncTime получает сетевое время и записывает его в RTC. Сбой чтения после
// успешной записи только логируется.
func (o *Orchestrator) syncTime(ctx context.Context) error {
	ts, err := o.deps.Fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	logger.Info("timesync: network time %s", ts)
	if err := o.deps.Clock.Write(ts); err != nil {
		return err
	}
	back, err := o.deps.Clock.Read()
	if err != nil {
		logger.Warn("rtc: read back after set: %v", err)
		return nil
	}
	logger.Info("rtc: set to %s", back)
	return nil
}

// push читает RTC и отправляет время на head unit.
func (o *Orchestrator) push(ctx context.Context) error {
	ts, err := o.deps.Clock.Read()
	if err != nil {
		return err
	}
	reply, err := o.deps.Link.Push(ctx, ts)
	if err != nil {
		return err
	}
	logger.Info("headunit: pushed %s, reply %q", ts, reply)
	return nil
}

// Run выполняет тики до отмены ctx; пауза Tick идёт после каждого прохода.
func (o *Orchestrator) Run(ctx context.Context) error {
	logger.Info("clocksync: sync every %v, push every %v, tick %v",
		o.opts.SyncInterval, o.opts.PushInterval, o.opts.Tick)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.Tick(ctx)
		if err := o.deps.Sleep(ctx, o.opts.Tick); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
