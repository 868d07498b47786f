package headunit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alexwizp/iot-backup/internal/calendar"
	"github.com/alexwizp/iot-backup/internal/logger"
)

// ErrReplyTimeout — head unit не ответил до истечения таймаута.
var ErrReplyTimeout = errors.New("reply timeout")

const maxReplyLen = 256

// LinkError — сбой записи в порт или чтения ответа.
type LinkError struct {
	Op  string
	Err error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("headunit %s: %v", e.Op, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// Link — отправка команды и чтение одной строки ответа.
// Port должен возвращать из Read (0, nil) или (0, io.EOF) по истечении собственного таймаута чтения.
type Link struct {
	port    io.ReadWriteCloser
	timeout time.Duration
	now     func() time.Time
}

// NewLink оборачивает уже открытый порт; timeout<=0 — 2s.
func NewLink(port io.ReadWriteCloser, replyTimeout time.Duration) *Link {
	if replyTimeout <= 0 {
		replyTimeout = 2 * time.Second
	}
	return &Link{port: port, timeout: replyTimeout, now: time.Now}
}

// Push отправляет "date ..." и возвращает строку ответа без CR/LF. Повторов нет.
func (l *Link) Push(ctx context.Context, ts calendar.Timestamp) (string, error) {
	cmd := EncodeDateCommand(ts)
	if _, err := l.port.Write(cmd); err != nil {
		return "", &LinkError{Op: "write", Err: err}
	}
	logger.Debug("headunit: sent %q", cmd)
	reply, err := l.readLine(ctx)
	if err != nil {
		return "", &LinkError{Op: "read", Err: err}
	}
	return reply, nil
}

// readLine читает до '\n', дедлайна или ctx. Частичная строка по дедлайну считается ответом.
func (l *Link) readLine(ctx context.Context) (string, error) {
	deadline := l.now().Add(l.timeout)
	var line []byte
	var b [64]byte
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := l.port.Read(b[:])
		if n > 0 {
			line = append(line, b[:n]...)
			if i := bytes.IndexByte(line, '\n'); i >= 0 {
				return trimReply(line[:i]), nil
			}
			if len(line) >= maxReplyLen {
				return trimReply(line), nil
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if l.now().After(deadline) {
			if len(line) > 0 {
				return trimReply(line), nil
			}
			return "", ErrReplyTimeout
		}
	}
}

func trimReply(b []byte) string {
	return string(bytes.Trim(b, "\r\n"))
}

// Close закрывает порт
func (l *Link) Close() error {
	if l.port == nil {
		return nil
	}
	return l.port.Close()
}
