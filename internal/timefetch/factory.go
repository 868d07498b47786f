package timefetch

import (
	"fmt"

	"github.com/alexwizp/iot-backup/internal/config"
	"github.com/alexwizp/iot-backup/internal/logger"
)

// NewFromClockSource создаёт Source из записи конфига (protocol: ipgeolocation, ntp)
func NewFromClockSource(c config.ClockSource) (Source, error) {
	if c.Disable {
		return nil, fmt.Errorf("source disabled")
	}
	timeout := config.Millis(c.TimeoutMs)
	switch c.Protocol {
	case config.ProtocolIPGeolocation:
		if c.APIKey == "" {
			return nil, fmt.Errorf("ipgeolocation: api_key required")
		}
		return NewIPGeolocation(c.Endpoint, c.APIKey, timeout), nil
	case config.ProtocolNTP:
		if c.IP == "" {
			return nil, fmt.Errorf("ntp: ip required")
		}
		return NewNTP(c.IP, timeout), nil
	default:
		return nil, fmt.Errorf("unknown protocol: %s", c.Protocol)
	}
}

// NewFromConfig собирает цепочку primary → secondary и оборачивает её поправкой зоны.
// Источники с ошибкой конфигурации пропускаются с записью в лог. Если не осталось ни одного,
// цепочка пуста и каждый Fetch возвращает *FetchError: синхронизация не идёт, push продолжает работать.
func NewFromConfig(c config.TimeSourceConfig) (*Fetcher, *Chain, error) {
	policy, err := PolicyByName(c.Correction)
	if err != nil {
		return nil, nil, err
	}
	build := func(kind string, list []config.ClockSource) []Source {
		var out []Source
		for _, cs := range list {
			if cs.Disable {
				continue
			}
			s, err := NewFromClockSource(cs)
			if err != nil {
				logger.Warn("timesync: %s %s: %v", kind, cs.Protocol, err)
				continue
			}
			out = append(out, s)
		}
		return out
	}
	primary := build("primary", c.PrimaryClocks)
	secondary := build("secondary", c.SecondaryClocks)
	if len(primary) == 0 && len(secondary) == 0 {
		logger.Warn("timesync: no usable time sources configured, network sync disabled")
	}
	chain := NewChain(primary, secondary)
	return NewFetcher(chain, policy, c.TargetOffsetHours), chain, nil
}
