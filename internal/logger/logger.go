// Package logger — единый вывод логов atlas-time-sync с учётом quiet/debug.
// Бэкенд — zap (SugaredLogger, консольный формат), API в стиле printf.
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.Mutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar = newSugar(os.Stderr)
)

func newSugar(w zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(w), level)
	return zap.New(core).Sugar()
}

// SetQuiet при true отключает информационные сообщения (Info/Debug); Warn и Error выводятся всегда.
func SetQuiet(quiet bool) {
	if quiet {
		level.SetLevel(zapcore.WarnLevel)
		return
	}
	level.SetLevel(zapcore.InfoLevel)
}

// SetDebug включает отладочный вывод.
func SetDebug(debug bool) {
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}
}

// SetOutput перенаправляет вывод (используется в тестах).
func SetOutput(w zapcore.WriteSyncer) {
	mu.Lock()
	defer mu.Unlock()
	sugar = newSugar(w)
}

func current() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return sugar
}

// Debug выводит отладочное сообщение.
func Debug(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// Info выводит информационное сообщение, если не включён quiet.
func Info(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// Warn выводит предупреждение.
func Warn(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// Error выводит сообщение об ошибке всегда.
func Error(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// Writer возвращает io.Writer, каждая строка которого пишется как Info с именем name.
// Используется для stdout/stderr дочерних процессов.
func Writer(name string) io.Writer {
	l, err := zap.NewStdLogAt(current().Desugar().Named(name), zapcore.InfoLevel)
	if err != nil {
		return io.Discard
	}
	return l.Writer()
}

// Sync сбрасывает буферы zap перед выходом.
func Sync() {
	_ = current().Sync()
}
