package headunit

import (
	"fmt"
	"io"
	"time"

	bugst "go.bug.st/serial"

	tarm "github.com/tarm/serial"
)

// Драйверы последовательного порта
const (
	DriverBugst = "bugst"
	DriverTarm  = "tarm"
)

// readPoll — таймаут одного Read порта; общий дедлайн ответа держит Link
const readPoll = 100 * time.Millisecond

// Open открывает UART 8N1 и возвращает Link; пустой driver — bugst.
func Open(device string, baud int, driver string, replyTimeout time.Duration) (*Link, error) {
	port, err := openPort(device, baud, driver)
	if err != nil {
		return nil, &LinkError{Op: "open", Err: err}
	}
	return NewLink(port, replyTimeout), nil
}

func openPort(device string, baud int, driver string) (io.ReadWriteCloser, error) {
	switch driver {
	case "", DriverBugst:
		p, err := bugst.Open(device, &bugst.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   bugst.NoParity,
			StopBits: bugst.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("serial open %s: %w", device, err)
		}
		if err := p.SetReadTimeout(readPoll); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("serial %s: set read timeout: %w", device, err)
		}
		return p, nil
	case DriverTarm:
		p, err := tarm.OpenPort(&tarm.Config{
			Name:        device,
			Baud:        baud,
			Size:        8,
			Parity:      tarm.ParityNone,
			StopBits:    tarm.Stop1,
			ReadTimeout: readPoll,
		})
		if err != nil {
			return nil, fmt.Errorf("serial open %s: %w", device, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown serial driver %q", driver)
	}
}
