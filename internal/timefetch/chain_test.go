package timefetch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexwizp/iot-backup/internal/calendar"
	"github.com/alexwizp/iot-backup/internal/config"
)

func TestChain_PrimaryWins(t *testing.T) {
	t.Parallel()
	p := &stubSource{name: "p", reading: Reading{Time: calendar.Timestamp{Year: 2025, Month: 1, Day: 1}}}
	s := &stubSource{name: "s", reading: Reading{Time: calendar.Timestamp{Year: 2026, Month: 1, Day: 1}}}
	c := NewChain([]Source{p}, []Source{s})

	r, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2025, r.Time.Year)
	assert.Equal(t, 1, p.calls)
	assert.Zero(t, s.calls)
	assert.Same(t, p, c.Active())
}

func TestChain_FallsBackToSecondary(t *testing.T) {
	t.Parallel()
	p := &stubSource{name: "p", err: errors.New("down")}
	s := &stubSource{name: "s", reading: Reading{Time: calendar.Timestamp{Year: 2026, Month: 1, Day: 1}}}
	c := NewChain([]Source{p}, []Source{s})

	r, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2026, r.Time.Year)
	assert.Same(t, s, c.Active())
}

func TestChain_AllFail(t *testing.T) {
	t.Parallel()
	e1, e2 := errors.New("first"), errors.New("second")
	c := NewChain([]Source{&stubSource{name: "p", err: e1}}, []Source{&stubSource{name: "s", err: e2}})

	_, err := c.Fetch(context.Background())
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
	assert.Nil(t, c.Active())

	_, err = NewChain(nil, nil).Fetch(context.Background())
	assert.Error(t, err)
}

func TestChain_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &stubSource{name: "p"}
	_, err := NewChain([]Source{p}, nil).Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.calls)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()
	f, chain, err := NewFromConfig(config.TimeSourceConfig{
		PrimaryClocks: []config.ClockSource{
			{Protocol: config.ProtocolIPGeolocation, APIKey: "k"},
			{Protocol: config.ProtocolIPGeolocation},
		},
		SecondaryClocks: []config.ClockSource{
			{Protocol: config.ProtocolNTP, IP: "192.0.2.1"},
			{Protocol: config.ProtocolNTP, IP: "192.0.2.2", Disable: true},
		},
		Correction:        "difference",
		TargetOffsetHours: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "difference", f.Policy().Name)
	assert.Len(t, chain.primary, 1)
	assert.Len(t, chain.secondary, 1)

	_, _, err = NewFromConfig(config.TimeSourceConfig{Correction: "bogus"})
	assert.Error(t, err)

}

func TestNewFromConfig_NoSourcesFailsEveryFetch(t *testing.T) {
	t.Parallel()
	f, chain, err := NewFromConfig(config.TimeSourceConfig{
		PrimaryClocks: []config.ClockSource{{Protocol: config.ProtocolIPGeolocation}},
	})
	require.NoError(t, err)
	assert.Empty(t, chain.primary)

	for i := 0; i < 3; i++ {
		_, err = f.Fetch(context.Background())
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
	}
	assert.Nil(t, chain.Active())
}

func TestNewFromClockSource(t *testing.T) {
	t.Parallel()
	s, err := NewFromClockSource(config.ClockSource{Protocol: config.ProtocolNTP, IP: "192.0.2.9"})
	require.NoError(t, err)
	assert.Equal(t, "ntp:192.0.2.9:123", s.Name())

	_, err = NewFromClockSource(config.ClockSource{Protocol: "gps"})
	assert.Error(t, err)
}
