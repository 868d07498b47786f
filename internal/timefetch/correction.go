package timefetch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/alexwizp/iot-backup/internal/calendar"
)

// Policy — именованная формула поправки часового пояса.
// Delta возвращает поправку в часах, которая вычитается из времени источника.
type Policy struct {
	Name  string
	Delta func(reportedHours, targetHours float64) float64
}

var (
	// PolicyLegacy — формула прошивки устройства: (reported - target) + reported.
	// reported учитывается дважды; head unit в поле настроен под этот результат.
	// reported берётся дробным (offset_with_dst как есть); прошивка устройства отбрасывала
	// дробную часть, поэтому для зон с получасом (+5.5) дельта здесь отличается от полевой.
	PolicyLegacy = Policy{Name: "legacy", Delta: func(r, t float64) float64 { return (r - t) + r }}
	// PolicyDifference — разница зон: reported - target.
	PolicyDifference = Policy{Name: "difference", Delta: func(r, t float64) float64 { return r - t }}
	// PolicyNone — время источника без поправки.
	PolicyNone = Policy{Name: "none"}
)

// PolicyByName возвращает политику по имени из конфига; пусто — legacy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", PolicyLegacy.Name:
		return PolicyLegacy, nil
	case PolicyDifference.Name:
		return PolicyDifference, nil
	case PolicyNone.Name:
		return PolicyNone, nil
	default:
		return Policy{}, fmt.Errorf("unknown timezone correction %q", name)
	}
}

// Fetcher — источник времени плюс поправка под зону head unit.
type Fetcher struct {
	src         Source
	policy      Policy
	targetHours float64
}

// NewFetcher оборачивает src политикой поправки и смещением зоны head unit (часы).
func NewFetcher(src Source, policy Policy, targetOffsetHours float64) *Fetcher {
	return &Fetcher{src: src, policy: policy, targetHours: targetOffsetHours}
}

// Policy возвращает действующую политику поправки
func (f *Fetcher) Policy() Policy {
	return f.policy
}

// Fetch получает время источника и вычитает поправку Delta(reported, target) часов.
func (f *Fetcher) Fetch(ctx context.Context) (calendar.Timestamp, error) {
	r, err := f.src.Fetch(ctx)
	if err != nil {
		return calendar.Timestamp{}, err
	}
	ts := r.Time
	if f.policy.Delta != nil {
		if !r.HasOffset {
			return calendar.Timestamp{}, &FetchError{Source: f.src.Name(), Op: "correct", Err: fmt.Errorf("%w: no UTC offset reported", ErrMalformed)}
		}
		ts = Correct(ts, f.policy, r.ReportedOffsetHours, f.targetHours)
	}
	if err := ts.Validate(); err != nil {
		return calendar.Timestamp{}, &FetchError{Source: f.src.Name(), Op: "validate", Err: err}
	}
	return ts, nil
}

// Correct применяет политику к метке: ts - Delta(reported, target) часов.
func Correct(ts calendar.Timestamp, p Policy, reportedHours, targetHours float64) calendar.Timestamp {
	if p.Delta == nil {
		return ts
	}
	deltaSec := math.Round(p.Delta(reportedHours, targetHours) * 3600)
	return ts.Add(-time.Duration(deltaSec) * time.Second)
}
