package timefetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexwizp/iot-backup/internal/logger"
)

// Chain — выбор источника времени: сначала primary, при сбое — secondary.
// Первый успешный ответ побеждает; ошибки всех источников объединяются.
type Chain struct {
	primary   []Source
	secondary []Source
	active    Source
}

// NewChain создаёт цепочку из списков primary и secondary
func NewChain(primary, secondary []Source) *Chain {
	return &Chain{
		primary:   primary,
		secondary: secondary,
	}
}

// Name возвращает имя цепочки
func (c *Chain) Name() string {
	return fmt.Sprintf("chain(primary=%d secondary=%d)", len(c.primary), len(c.secondary))
}

// Fetch опрашивает источники по порядку до первого успеха.
func (c *Chain) Fetch(ctx context.Context) (Reading, error) {
	var errs []error
	for _, group := range [][]Source{c.primary, c.secondary} {
		for _, s := range group {
			if err := ctx.Err(); err != nil {
				return Reading{}, &FetchError{Source: c.Name(), Op: "fetch", Err: err}
			}
			r, err := s.Fetch(ctx)
			if err == nil {
				c.active = s
				return r, nil
			}
			logger.Debug("timesync: source %s failed: %v", s.Name(), err)
			errs = append(errs, err)
		}
	}
	c.active = nil
	if len(errs) == 0 {
		return Reading{}, &FetchError{Source: c.Name(), Op: "fetch", Err: errors.New("no time sources configured")}
	}
	return Reading{}, &FetchError{Source: c.Name(), Op: "fetch", Err: errors.Join(errs...)}
}

// Active возвращает источник последнего успешного запроса (nil, если все отказали)
func (c *Chain) Active() Source {
	return c.active
}
