package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Attempt(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	at := time.Unix(1750000000, 0)
	r.Attempt("sync", nil, at)
	r.Attempt("sync", errors.New("x"), at)
	r.Attempt("sync", errors.New("y"), at)
	r.Attempt("push", nil, at)

	assert.InDelta(t, 1, testutil.ToFloat64(r.attempts.WithLabelValues("sync", "ok")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.attempts.WithLabelValues("sync", "failed")), 0)
	assert.InDelta(t, 1750000000, testutil.ToFloat64(r.lastSuccess.WithLabelValues("push")), 0)
}

func TestRecorder_Connected(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	r.Connected(true)
	assert.InDelta(t, 1, testutil.ToFloat64(r.connected), 0)
	r.Connected(false)
	assert.InDelta(t, 0, testutil.ToFloat64(r.connected), 0)
}

func TestRecorder_Nil(t *testing.T) {
	t.Parallel()
	var r *Recorder
	r.Attempt("sync", nil, time.Now())
	r.Connected(true)
}

func TestRecorder_Handler(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	r.Attempt("push", nil, time.Unix(10, 0))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `atlas_time_sync_stage_attempts_total{result="ok",stage="push"} 1`)
}

func TestServe(t *testing.T) {
	t.Parallel()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	r := NewRecorder()
	r.Connected(true)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, r) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, strings.Contains(body, "atlas_time_sync_wifi_connected 1"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
