package clocksync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexwizp/iot-backup/internal/calendar"
	"github.com/alexwizp/iot-backup/internal/clockadj"
	"github.com/alexwizp/iot-backup/internal/config"
	"github.com/alexwizp/iot-backup/internal/headunit"
	"github.com/alexwizp/iot-backup/internal/logger"
	"github.com/alexwizp/iot-backup/internal/metrics"
	"github.com/alexwizp/iot-backup/internal/rtc"
	"github.com/alexwizp/iot-backup/internal/timefetch"
	"github.com/alexwizp/iot-backup/internal/wifi"
)

var (
	monotonicMillis = clockadj.MonotonicMillis
	stepSystemClock = clockadj.Step
)

// RunDaemon собирает компоненты из cfg и крутит цикл до отмены ctx.
// cfg должен пройти Validate.
func RunDaemon(ctx context.Context, cfg *config.Config, quiet bool) error {
	if cfg == nil {
		return errors.New("clocksync: nil config")
	}

	fetcher, chain, err := timefetch.NewFromConfig(cfg.TimeSource)
	if err != nil {
		return fmt.Errorf("time source: %w", err)
	}

	clock, closer, err := rtc.OpenDS3231(cfg.RTC.Bus, cfg.RTC.Address)
	if err != nil {
		return fmt.Errorf("rtc: %w", err)
	}
	defer closer.Close()
	seedFromRTC(clock, cfg.RTC.SeedSystemClock, cfg.TimeSource.TargetOffsetHours)

	if cfg.WiFi.StartSupplicant {
		stop := wifi.Supplicant{
			Path:      cfg.WiFi.SupplicantPath,
			Interface: cfg.WiFi.Interface,
			Config:    cfg.WiFi.SupplicantConfig,
			Args:      cfg.WiFi.SupplicantArgs,
		}.Start(quiet)
		defer stop()
	}
	station := wifi.NewWpaCli(cfg.WiFi.WpaCliPath, cfg.WiFi.Interface, config.Millis(cfg.WiFi.CommandTimeoutMs))
	mgr := wifi.NewManager(station, wifi.Options{
		SSID:     cfg.WiFi.SSID,
		Password: cfg.WiFi.Password,
		Attempts: cfg.WiFi.ConnectAttempts,
		Delay:    config.Millis(cfg.WiFi.ConnectDelayMs),
	})

	link := &reopeningLink{open: func() (*headunit.Link, error) {
		return headunit.Open(cfg.HeadUnit.Device, cfg.HeadUnit.Baud, cfg.HeadUnit.Driver,
			config.Millis(cfg.HeadUnit.ReplyTimeoutMs))
	}}
	defer link.Close()
	if _, err := link.get(); err != nil {
		logger.Error("headunit: %v (will retry on push)", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	rec := metrics.NewRecorder()
	waitMetrics := startMetrics(runCtx, cfg.Metrics.Listen, rec)

	if cfg.RemoteAccess.Password != "" {
		logger.Info("clocksync: remote_access is configured but not served by this agent")
	}

	syncEvery, pushEvery, tick := cfg.Sync.Intervals()
	logger.Info("clocksync: sources %s, correction %s (target %+.1fh), head unit %s@%d",
		chain.Name(), fetcher.Policy().Name, cfg.TimeSource.TargetOffsetHours,
		cfg.HeadUnit.Device, cfg.HeadUnit.Baud)

	o := New(Deps{
		WiFi:    mgr,
		Fetcher: fetcher,
		Clock:   clock,
		Link:    link,
		Metrics: rec,
	}, Options{
		SyncInterval:    syncEvery,
		PushInterval:    pushEvery,
		Tick:            tick,
		PushAfterSync:   cfg.Sync.PushAfterSync,
		SyncOnReconnect: cfg.Sync.SyncOnReconnect,
	})
	err = o.Run(runCtx)
	cancel()
	waitMetrics()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startMetrics поднимает /metrics до отмены ctx; пустой listen — выключено.
// Возвращённая wait ждёт завершения Shutdown сервера.
func startMetrics(ctx context.Context, listen string, rec *metrics.Recorder) (wait func()) {
	if listen == "" {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := metrics.Serve(ctx, listen, rec); err != nil {
			logger.Error("metrics: %v", err)
		}
	}()
	return func() { <-done }
}

// seedFromRTC логирует время RTC при старте и, если нужно, выставляет по нему
// системные часы. RTC хранит время зоны head unit, поэтому смещение вычитается.
func seedFromRTC(clock rtc.Clock, seed bool, offsetHours float64) {
	ts, err := clock.Read()
	if err != nil {
		logger.Warn("rtc: startup read: %v", err)
		return
	}
	logger.Info("rtc: startup time %s", ts)
	if !seed {
		return
	}
	utc := ts.Time().Add(-time.Duration(offsetHours * float64(time.Hour)))
	if err := stepSystemClock(utc); err != nil {
		logger.Warn("rtc: seed system clock: %v", err)
		return
	}
	logger.Info("rtc: system clock set to %s UTC", utc.Format(time.DateTime))
}

// reopeningLink открывает порт head unit при первой отправке и заново после
// ошибки записи, чтобы отсутствие UART на старте не останавливало цикл.
type reopeningLink struct {
	open func() (*headunit.Link, error)
	link *headunit.Link
}

func (r *reopeningLink) get() (*headunit.Link, error) {
	if r.link != nil {
		return r.link, nil
	}
	l, err := r.open()
	if err != nil {
		return nil, err
	}
	r.link = l
	return l, nil
}

func (r *reopeningLink) Push(ctx context.Context, ts calendar.Timestamp) (string, error) {
	l, err := r.get()
	if err != nil {
		return "", err
	}
	reply, err := l.Push(ctx, ts)
	var le *headunit.LinkError
	if errors.As(err, &le) && le.Op == "write" {
		_ = l.Close()
		r.link = nil
	}
	return reply, err
}

func (r *reopeningLink) Close() error {
	if r.link == nil {
		return nil
	}
	err := r.link.Close()
	r.link = nil
	return err
}
