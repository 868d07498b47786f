//go:build linux

package rtc

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// OpenDS3231 инициализирует драйверы periph, открывает шину busName ("" — первая найденная)
// и возвращает адаптер DS3231 по адресу addr. Закрывающий объект освобождает шину.
func OpenDS3231(busName string, addr uint16) (*DS3231, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, &ClockError{Op: "open", Err: fmt.Errorf("periph host init: %w", err)}
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, &ClockError{Op: "open", Err: fmt.Errorf("i2c bus %q: %w", busName, err)}
	}
	if addr == 0 {
		addr = DefaultAddress
	}
	dev := &i2c.Dev{Addr: addr, Bus: bus}
	return NewDS3231(dev), bus, nil
}
