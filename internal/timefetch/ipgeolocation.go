package timefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alexwizp/iot-backup/internal/calendar"
)

// DefaultIPGeolocationEndpoint — сервис геолокации с текущим временем зоны клиента.
const DefaultIPGeolocationEndpoint = "https://api.ipgeolocation.io/ipgeo"

const (
	currentTimePath   = "time_zone.current_time"
	offsetWithDSTPath = "time_zone.offset_with_dst"

	// "2020-12-17 07:25:52.386+0530" — берутся первые 19 символов
	isoPrefixLen  = 19
	isoNaiveSpace = "2006-01-02 15:04:05"

	maxBodyBytes = 64 << 10
)

// IPGeolocation — источник времени ipgeolocation.io: один GET с apiKey, JSON с time_zone.
type IPGeolocation struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewIPGeolocation создаёт источник; пустой endpoint — сервис по умолчанию, timeout<=0 — 10s.
func NewIPGeolocation(endpoint, apiKey string, timeout time.Duration) *IPGeolocation {
	if endpoint == "" {
		endpoint = DefaultIPGeolocationEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IPGeolocation{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name возвращает имя источника
func (g *IPGeolocation) Name() string {
	return "ipgeolocation"
}

// Fetch запрашивает время и смещение зоны.
func (g *IPGeolocation) Fetch(ctx context.Context) (Reading, error) {
	u, err := url.Parse(g.endpoint)
	if err != nil {
		return Reading{}, &FetchError{Source: g.Name(), Op: "build request", Err: err}
	}
	q := u.Query()
	q.Set("apiKey", g.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Reading{}, &FetchError{Source: g.Name(), Op: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Reading{}, &FetchError{Source: g.Name(), Op: "get", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Reading{}, &FetchError{Source: g.Name(), Op: "read body", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Reading{}, &FetchError{Source: g.Name(), Op: "get", Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	return parseIPGeolocation(body)
}

func parseIPGeolocation(body []byte) (Reading, error) {
	if !gjson.ValidBytes(body) {
		return Reading{}, &FetchError{Source: "ipgeolocation", Op: "parse", Err: fmt.Errorf("%w: not JSON", ErrMalformed)}
	}
	cur := gjson.GetBytes(body, currentTimePath)
	if !cur.Exists() || cur.Type != gjson.String {
		return Reading{}, &FetchError{Source: "ipgeolocation", Op: "parse", Err: fmt.Errorf("%w: no %s", ErrMalformed, currentTimePath)}
	}
	ts, err := ParseNaiveTimestamp(cur.String())
	if err != nil {
		return Reading{}, &FetchError{Source: "ipgeolocation", Op: "parse", Err: err}
	}
	r := Reading{Time: ts}
	if off := gjson.GetBytes(body, offsetWithDSTPath); off.Exists() && off.Type == gjson.Number {
		r.ReportedOffsetHours = off.Float()
		r.HasOffset = true
	}
	return r, nil
}

// ParseNaiveTimestamp разбирает первые 19 символов ISO-8601-подобной строки
// ("YYYY-MM-DD hh:mm:ss" или с 'T'), отбрасывая доли секунды и суффикс зоны.
func ParseNaiveTimestamp(s string) (calendar.Timestamp, error) {
	if len(s) < isoPrefixLen {
		return calendar.Timestamp{}, fmt.Errorf("%w: timestamp %q too short", ErrMalformed, s)
	}
	prefix := strings.Replace(s[:isoPrefixLen], "T", " ", 1)
	t, err := time.Parse(isoNaiveSpace, prefix)
	if err != nil {
		return calendar.Timestamp{}, fmt.Errorf("%w: timestamp %q: %v", ErrMalformed, s, err)
	}
	return calendar.FromTime(t), nil
}
