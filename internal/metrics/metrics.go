// Package metrics — счётчики стадий синхронизации в формате Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexwizp/iot-backup/internal/logger"
)

const namespace = "atlas_time_sync"

// Recorder — набор метрик агента. Методы безопасны для nil-получателя.
type Recorder struct {
	registry    *prometheus.Registry
	attempts    *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	connected   prometheus.Gauge
}

// NewRecorder регистрирует метрики в собственном реестре.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_attempts_total",
			Help:      "Stage attempts by result (ok, failed).",
		}, []string{"stage", "result"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful stage run.",
		}, []string{"stage"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wifi_connected",
			Help:      "1 when the WiFi station is connected.",
		}),
	}
	r.registry.MustRegister(r.attempts, r.lastSuccess, r.connected)
	return r
}

// Attempt учитывает попытку стадии; err==nil — ok.
func (r *Recorder) Attempt(stage string, err error, at time.Time) {
	if r == nil {
		return
	}
	if err != nil {
		r.attempts.WithLabelValues(stage, "failed").Inc()
		return
	}
	r.attempts.WithLabelValues(stage, "ok").Inc()
	r.lastSuccess.WithLabelValues(stage).Set(float64(at.Unix()))
}

// Connected выставляет состояние WiFi.
func (r *Recorder) Connected(ok bool) {
	if r == nil {
		return
	}
	if ok {
		r.connected.Set(1)
		return
	}
	r.connected.Set(0)
}

// Registry возвращает реестр (для тестов и дополнительных коллекторов)
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler — HTTP обработчик /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve отдаёт /metrics на listen до отмены ctx.
func Serve(ctx context.Context, listen string, r *Recorder) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("metrics: listening on %s", listen)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
